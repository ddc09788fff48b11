package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle state of a withdrawal request
type WithdrawalStatus string

// Withdrawal statuses
const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalAccepted  WithdrawalStatus = "accepted"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:  {WithdrawalAccepted, WithdrawalRejected},
	WithdrawalAccepted: {WithdrawalCompleted},
}

// Valid reports whether s is a known withdrawal status
func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalAccepted, WithdrawalRejected, WithdrawalCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a withdrawal may move from s to next
func (s WithdrawalStatus) CanTransition(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Deletable reports whether a withdrawal in status s may be removed.
// Accepted and completed withdrawals already moved money.
func (s WithdrawalStatus) Deletable() bool {
	return s == WithdrawalPending || s == WithdrawalRejected
}

// Withdrawal Model
type Withdrawal struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UserID        uint             `gorm:"index;not null" json:"user_id"`
	Amount        decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status        WithdrawalStatus `gorm:"size:16;index;not null" json:"status"`
	BankName      string           `gorm:"size:255" json:"bank_name"`
	IBAN          string           `gorm:"column:iban;size:34" json:"iban"`
	AccountName   string           `gorm:"size:255" json:"account_name"`
	AdminNotes    string           `gorm:"type:text" json:"admin_notes"`
	RoutingNumber string           `gorm:"size:64" json:"routing_number"`
	RoutingDate   *time.Time       `json:"routing_date"`
	CreatedAt     time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	User          *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
