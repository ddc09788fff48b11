package api

import (
	"context"  // Action signature
	"errors"   // EOF detection
	"io"       // Empty body
	"net/http" // HTTP status codes
	"time"     // Routing date parsing

	"notes_marketplace/internal/domain"     // Domain models
	"notes_marketplace/internal/middleware" // Auth context helpers
	"notes_marketplace/internal/service"    // Business logic
	"notes_marketplace/internal/utils"      // Pagination

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money values
)

// WithdrawalRequest asks for a payout of the seller balance
type WithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`                                     // Checked against the minimum by the service
	BankName    string          `json:"bank_name" binding:"required,min=3,max=255"` // Receiving bank
	IBAN        string          `json:"iban" binding:"required,iban"`               // Saudi IBAN
	AccountName string          `json:"account_name" binding:"required,max=255"`    // Holder's full name
}

// NotesRequest carries an optional admin note
type NotesRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// RoutingRequest records the bank transfer of an accepted withdrawal
type RoutingRequest struct {
	RoutingNumber string `json:"routing_number" binding:"required,max=64"`
	RoutingDate   string `json:"routing_date" binding:"required,datetime=2006-01-02"`
}

// bindOptionalJSON binds a body that may be absent, writing a 400 on malformed input
func bindOptionalJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return false
	}
	return true
}

// CreateWithdrawalHandler files a payout request for the caller
func CreateWithdrawalHandler(withdrawals *service.WithdrawalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WithdrawalRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		w, err := withdrawals.Create(c.Request.Context(), middleware.UserID(c), service.WithdrawalInput{
			Amount:      req.Amount,
			BankName:    req.BankName,
			IBAN:        req.IBAN,
			AccountName: req.AccountName,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"withdrawal": w})
	}
}

// WithdrawalHistoryHandler lists the caller's withdrawals
func WithdrawalHistoryHandler(withdrawals *service.WithdrawalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := withdrawals.UserHistory(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": list})
	}
}

// ListWithdrawalsHandler returns the filtered admin withdrawal table
func ListWithdrawalsHandler(withdrawals *service.WithdrawalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := service.WithdrawalFilters{
			Search:   c.Query("search"),
			Status:   c.Query("status"),
			DateFrom: c.Query("date_from"),
			DateTo:   c.Query("date_to"),
		}
		page := utils.ParsePage(c.Query("page"), c.Query("page_size"))
		out, err := withdrawals.List(c.Request.Context(), filters, page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// WithdrawalStatsHandler returns the per-status totals
func WithdrawalStatsHandler(withdrawals *service.WithdrawalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := withdrawals.Stats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GetWithdrawalHandler returns one withdrawal with its user
func GetWithdrawalHandler(withdrawals *service.WithdrawalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		w, err := withdrawals.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawal": w})
	}
}

// WithdrawalActionHandler runs an admin action that takes an optional note:
// Accept, Reject or UpdateNotes
func WithdrawalActionHandler(action func(ctx context.Context, id uint, notes string) (domain.Withdrawal, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req NotesRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		w, err := action(c.Request.Context(), id, req.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawal": w})
	}
}

// RoutingDetailsHandler completes an accepted withdrawal
func RoutingDetailsHandler(withdrawals *service.WithdrawalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req RoutingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		date, _ := time.Parse("2006-01-02", req.RoutingDate) // Format checked by binding
		w, err := withdrawals.AddRoutingDetails(c.Request.Context(), id, req.RoutingNumber, date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawal": w})
	}
}

// DeleteWithdrawalHandler removes a pending or rejected withdrawal
func DeleteWithdrawalHandler(withdrawals *service.WithdrawalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := withdrawals.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Withdrawal deleted"})
	}
}
