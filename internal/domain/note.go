package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Note Model, a sellable study summary backed by a PDF blob
type Note struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OwnerID       uint            `gorm:"index;not null" json:"owner_id"`
	Title         string          `gorm:"size:255;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	University    string          `gorm:"size:255;index" json:"university"`
	College       string          `gorm:"size:255;index" json:"college"`
	Subject       string          `gorm:"size:255" json:"subject"`
	PagesNumber   int             `json:"pages_number"`
	Year          int             `gorm:"index" json:"year"`
	ContactMethod string          `gorm:"size:255" json:"contact_method"`
	FilePath      string          `gorm:"size:512" json:"-"`  // Object key of the PDF
	FileURL       string          `gorm:"size:1024" json:"-"` // Unsigned object URL, buyers get presigned links instead
	CoverPath     string          `gorm:"size:512" json:"-"`  // Object key of the cover, empty for the default cover
	CoverURL      string          `gorm:"size:1024" json:"cover_url"`
	Downloads     int64           `gorm:"not null;default:0" json:"downloads"`
	IsPublished   bool            `gorm:"not null;index" json:"is_published"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Review Model, one per (note, user)
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	NoteID    uint      `gorm:"uniqueIndex:idx_review_note_user;not null" json:"note_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_review_note_user;not null" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Purchase Model, the record that a user owns a note
type Purchase struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	NoteID    uint      `gorm:"uniqueIndex:idx_purchase_note_user;not null" json:"note_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_purchase_note_user;index;not null" json:"user_id"`
	SaleID    uint      `json:"sale_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Like Model, a note saved to a user's liked list
type Like struct {
	NoteID    uint      `gorm:"primaryKey;autoIncrement:false" json:"note_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
