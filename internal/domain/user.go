package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Money values
)

// Roles
const (
	RoleUser  = "user"  // Regular buyer/seller
	RoleAdmin = "admin" // Platform administrator
)

// User Model
type User struct {
	ID              uint            `gorm:"primaryKey" json:"id"`                                 // Primary key
	Email           string          `gorm:"size:255;uniqueIndex;not null" json:"email"`           // Unique login email
	Password        string          `gorm:"not null" json:"-"`                                    // Hashed password
	FullName        string          `gorm:"size:255;index" json:"full_name"`                      // Display name
	Role            string          `gorm:"size:16;default:user" json:"role"`                     // Role: user or admin
	Balance         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"` // Seller earnings available for withdrawal
	WithdrawalTimes int             `gorm:"not null" json:"withdrawal_times"`                     // Remaining withdrawal requests
	CreatedAt       time.Time       `json:"created_at"`                                           // Timestamp of creation
}

// IsAdmin reports whether the user has the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicUser is the part of a user that other users may see
type PublicUser struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
}

// Public strips private fields
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, FullName: u.FullName}
}
