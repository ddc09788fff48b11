package service

import (
	"context"
	"io"
	"time"

	"notes_marketplace/internal/config"
	"notes_marketplace/internal/payment"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BlobStore keeps note files and cover images
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PublicURL(key string) string
}

// PaymentGateway creates and looks up hosted invoices
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req payment.InvoiceRequest) (payment.Invoice, error)
	FetchInvoice(ctx context.Context, id string) (payment.Invoice, error)
}

// Settings are the business constants shared by the services
type Settings struct {
	PlatformFeeRate decimal.Decimal // Share of the price kept by the platform
	EditionTax      decimal.Decimal // Fixed amount deducted from the owner's earnings per sale
	MinWithdrawal   decimal.Decimal
	WithdrawalTimes int // Withdrawal requests granted to a new or reset user
	Currency        string
	WebhookToken    string // Shared secret expected in gateway callbacks
	PublicBaseURL   string // Base URL of this API, used for gateway callbacks
	FrontendURL     string // Base URL of the web app, used for buyer redirects
	DefaultCoverURL string
	MaxUploadBytes  int64
	CacheTTL        time.Duration
	DownloadURLTTL  time.Duration
	JWTSecret       string
	JWTTTL          time.Duration
}

// SettingsFromConfig copies the relevant configuration values
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		PlatformFeeRate: cfg.PlatformFeeRate,
		EditionTax:      cfg.EditionTax,
		MinWithdrawal:   cfg.MinWithdrawal,
		WithdrawalTimes: cfg.WithdrawalTimes,
		Currency:        cfg.Currency,
		WebhookToken:    cfg.MoyasarWebhookToken,
		PublicBaseURL:   cfg.PublicBaseURL,
		FrontendURL:     cfg.FrontendURL,
		DefaultCoverURL: cfg.DefaultCoverURL,
		MaxUploadBytes:  cfg.MaxUploadBytes(),
		CacheTTL:        cfg.CacheTTL,
		DownloadURLTTL:  15 * time.Minute,
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTTTL,
	}
}

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	DB       *gorm.DB
	Redis    *redis.Client // Optional, nil disables caching
	Store    BlobStore
	Gateway  PaymentGateway
	Settings Settings
}

// Services bundles every service built from one set of dependencies
type Services struct {
	Users         *UserService
	Notes         *NoteService
	Reviews       *ReviewService
	Purchases     *PurchaseService
	Sales         *SalesService
	Withdrawals   *WithdrawalService
	Notifications *NotificationService
	Dashboard     *DashboardService
}

// New builds all services
func New(deps Dependencies) *Services {
	notifications := NewNotificationService(deps)
	notes := NewNoteService(deps)
	purchases := NewPurchaseService(deps)
	sales := NewSalesService(deps, purchases)
	withdrawals := NewWithdrawalService(deps)
	return &Services{
		Users:         NewUserService(deps),
		Notes:         notes,
		Reviews:       NewReviewService(deps),
		Purchases:     purchases,
		Sales:         sales,
		Withdrawals:   withdrawals,
		Notifications: notifications,
		Dashboard:     NewDashboardService(deps, notes, sales, withdrawals),
	}
}
