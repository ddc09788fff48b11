package domain

import "time"

// Notification types
const (
	NotifyWithdrawal = "withdrawal"
	NotifySale       = "sale"
	NotifyPurchase   = "purchase"
	NotifyNote       = "note"
	NotifyReview     = "review"
)

// Notification Model
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Type      string    `gorm:"size:16;index" json:"type"`
	Read      bool      `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
