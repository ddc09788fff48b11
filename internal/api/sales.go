package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Query parsing
	"time"     // Reporting clock

	"notes_marketplace/internal/domain"     // Domain models
	"notes_marketplace/internal/middleware" // Auth context helpers
	"notes_marketplace/internal/service"    // Business logic
	"notes_marketplace/internal/utils"      // Pagination

	"github.com/gin-gonic/gin" // Gin web framework
)

// SaleStatusRequest settles a pending sale by hand
type SaleStatusRequest struct {
	Status  string `json:"status" binding:"required,oneof=completed failed"` // Target status
	Message string `json:"message" binding:"max=500"`                        // Reason shown on failed sales
}

// MySalesHandler lists sales of the caller's notes
func MySalesHandler(sales *service.SalesService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := sales.SellerSales(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sales": list})
	}
}

// MyOrdersHandler lists the caller's purchases attempts
func MyOrdersHandler(sales *service.SalesService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := sales.BuyerSales(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sales": list})
	}
}

// NoteSalesHandler lists the sales of one note
func NoteSalesHandler(sales *service.SalesService, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		list, err := sales.NoteSales(c.Request.Context(), viewer(c, users), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sales": list})
	}
}

// GetSaleHandler returns one sale to its buyer, its seller or an admin
func GetSaleHandler(sales *service.SalesService, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		detail, err := sales.Get(c.Request.Context(), viewer(c, users), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

// ListSalesHandler returns the filtered admin sales table
func ListSalesHandler(sales *service.SalesService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id uint // Zero disables the filter
		if v, err := strconv.ParseUint(c.Query("id"), 10, 64); err == nil {
			id = uint(v)
		}
		filters := service.SaleFilters{
			ID:        id,
			InvoiceID: c.Query("invoice_id"),
			NoteTitle: c.Query("note_title"),
			Status:    c.Query("status"),
			Date:      c.Query("date"),
		}
		sort := service.SaleSort{Key: c.Query("sort"), Ascending: c.Query("order") == "asc"}
		page := utils.ParsePage(c.Query("page"), c.Query("page_size"))
		out, err := sales.List(c.Request.Context(), filters, sort, page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// UpdateSaleStatusHandler completes or fails a pending sale
func UpdateSaleStatusHandler(sales *service.SalesService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req SaleStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		sale, err := sales.UpdateStatus(c.Request.Context(), id, domain.SaleStatus(req.Status), req.Message)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sale": sale})
	}
}

// SalesStatsHandler returns revenue totals and the monthly series
func SalesStatsHandler(sales *service.SalesService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := sales.Statistics(c.Request.Context(), time.Now().UTC())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
