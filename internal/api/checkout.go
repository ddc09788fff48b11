package api

import (
	"net/http" // HTTP status codes

	"notes_marketplace/internal/middleware" // Auth context helpers
	"notes_marketplace/internal/service"    // Business logic

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// CheckoutRequest starts the purchase of a note
type CheckoutRequest struct {
	NoteID uint `json:"note_id" binding:"required"` // Note to buy
}

// ConfirmRequest is sent by the web app after the buyer returns from the gateway
type ConfirmRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required"` // Gateway invoice id
}

// CheckoutHandler creates the invoice for a paid note or completes a free one
func CheckoutHandler(purchases *service.PurchaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := purchases.Checkout(c.Request.Context(), middleware.UserID(c), req.NoteID)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusCreated // Pending sale awaiting payment
		if res.Completed {
			status = http.StatusOK // Free note, already owned
		}
		c.JSON(status, res)
	}
}

// ConfirmCheckoutHandler checks the invoice with the gateway and settles the sale
func ConfirmCheckoutHandler(purchases *service.PurchaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		sale, err := purchases.Confirm(c.Request.Context(), req.InvoiceID, middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sale": sale})
	}
}

// PaymentCallbackHandler receives gateway webhooks. The body is verified by the service.
func PaymentCallbackHandler(purchases *service.PurchaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData() // Raw body for token and payload checks
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		sale, err := purchases.Webhook(c.Request.Context(), body)
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{"sale_id": sale.ID, "status": sale.Status}).Info("Payment callback processed")
		c.JSON(http.StatusOK, gin.H{"received": true, "status": sale.Status})
	}
}
