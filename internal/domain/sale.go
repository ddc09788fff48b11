package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus is the lifecycle state of a sale
type SaleStatus string

// Sale statuses
const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleFailed    SaleStatus = "failed"
)

// Valid reports whether s is a known sale status
func (s SaleStatus) Valid() bool {
	switch s {
	case SalePending, SaleCompleted, SaleFailed:
		return true
	}
	return false
}

// CanTransition reports whether a sale may move from s to next.
// Completed and failed are terminal.
func (s SaleStatus) CanTransition(next SaleStatus) bool {
	return s == SalePending && (next == SaleCompleted || next == SaleFailed)
}

// Sale Model
type Sale struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	BuyerID       uint            `gorm:"index;not null" json:"buyer_id"`
	SellerID      uint            `gorm:"index;not null" json:"seller_id"`
	NoteID        uint            `gorm:"index;not null" json:"note_id"`
	NoteTitle     string          `gorm:"size:255" json:"note_title"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PlatformFee   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"platform_fee"`
	OwnerEarnings decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"owner_earnings"`
	PaymentMethod string          `gorm:"size:32" json:"payment_method"`
	InvoiceID     *string         `gorm:"size:64;uniqueIndex" json:"invoice_id"` // Gateway invoice id, nil for free notes
	Status        SaleStatus      `gorm:"size:16;index;not null" json:"status"`
	Message       string          `gorm:"size:512" json:"message"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
