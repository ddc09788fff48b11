package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/payment"
	"notes_marketplace/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	salesNamespace = "sales"

	methodGateway = "moyasar"
	methodFree    = "free"
)

// Fees splits a sale price between the platform and the note owner.
// The owner's share never goes below zero for cheap notes.
func Fees(price, feeRate, editionTax decimal.Decimal) (platformFee, ownerEarnings decimal.Decimal) {
	platformFee = price.Mul(feeRate).Round(2)
	ownerEarnings = price.Sub(platformFee).Sub(editionTax).Round(2)
	if ownerEarnings.IsNegative() {
		ownerEarnings = decimal.Zero
	}
	return platformFee, ownerEarnings
}

// PurchaseService runs the checkout flow from invoice to ownership
type PurchaseService struct {
	db       *gorm.DB
	rdb      *redis.Client
	gateway  PaymentGateway
	settings Settings
}

// NewPurchaseService creates the service
func NewPurchaseService(deps Dependencies) *PurchaseService {
	return &PurchaseService{db: deps.DB, rdb: deps.Redis, gateway: deps.Gateway, settings: deps.Settings}
}

// CheckoutResult tells the buyer where to pay, or that the note is already theirs
type CheckoutResult struct {
	Sale       domain.Sale `json:"sale"`
	InvoiceID  string      `json:"invoice_id,omitempty"`
	PaymentURL string      `json:"payment_url,omitempty"`
	Completed  bool        `json:"completed"` // True for free notes
}

// Checkout starts a purchase. Paid notes get a gateway invoice and a pending sale;
// free notes are completed immediately.
func (s *PurchaseService) Checkout(ctx context.Context, buyerID, noteID uint) (CheckoutResult, error) {
	note, err := loadNote(ctx, s.db, noteID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !note.IsPublished {
		return CheckoutResult{}, fmt.Errorf("note %w", ErrNotFound)
	}
	if note.OwnerID == buyerID {
		return CheckoutResult{}, ErrOwnNote
	}
	var owned int64
	if err := s.db.WithContext(ctx).Model(&domain.Purchase{}).
		Where("note_id = ? AND user_id = ?", noteID, buyerID).Count(&owned).Error; err != nil {
		return CheckoutResult{}, fmt.Errorf("check purchase: %w", err)
	}
	if owned > 0 {
		return CheckoutResult{}, ErrAlreadyPurchased
	}
	if res, resumed, err := s.resumePending(ctx, buyerID, note); err != nil || resumed {
		return res, err
	}

	fee, earnings := Fees(note.Price, s.settings.PlatformFeeRate, s.settings.EditionTax)
	sale := domain.Sale{
		BuyerID:       buyerID,
		SellerID:      note.OwnerID,
		NoteID:        note.ID,
		NoteTitle:     note.Title,
		Amount:        note.Price,
		PlatformFee:   fee,
		OwnerEarnings: earnings,
		Status:        domain.SalePending,
	}

	if !note.Price.IsPositive() {
		sale.PaymentMethod = methodFree
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&sale).Error; err != nil {
				return err
			}
			return s.completeTx(tx, &sale)
		})
		if err != nil {
			return CheckoutResult{}, s.completionError(err)
		}
		s.afterCompletion(ctx, sale)
		return CheckoutResult{Sale: sale, Completed: true}, nil
	}

	invoice, err := s.gateway.CreateInvoice(ctx, payment.InvoiceRequest{
		Amount:      note.Price,
		Currency:    s.settings.Currency,
		Description: fmt.Sprintf("Purchase of note: %s", note.Title),
		CallbackURL: strings.TrimRight(s.settings.PublicBaseURL, "/") + "/api/payments/callback",
		SuccessURL:  strings.TrimRight(s.settings.FrontendURL, "/") + "/purchase/success",
		BackURL:     strings.TrimRight(s.settings.FrontendURL, "/") + "/notes/" + strconv.FormatUint(uint64(note.ID), 10),
		Metadata: map[string]string{
			"note_id":  strconv.FormatUint(uint64(note.ID), 10),
			"buyer_id": strconv.FormatUint(uint64(buyerID), 10),
		},
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"note_id": noteID, "buyer_id": buyerID, "error": err.Error()}).Error("Invoice creation failed")
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	sale.PaymentMethod = methodGateway
	sale.InvoiceID = &invoice.ID
	if err := s.db.WithContext(ctx).Create(&sale).Error; err != nil {
		return CheckoutResult{}, fmt.Errorf("record sale: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"sale_id":    sale.ID,
		"invoice_id": invoice.ID,
		"note_id":    noteID,
		"buyer_id":   buyerID,
		"amount":     sale.Amount.StringFixed(2),
	}).Info("Checkout started")
	return CheckoutResult{Sale: sale, InvoiceID: invoice.ID, PaymentURL: invoice.URL}, nil
}

// resumePending hands back the buyer's open invoice for the note instead of issuing a second one.
// A paid invoice is confirmed on the spot. Failed invoices, and invoices issued at an old price,
// fail their sale so a fresh checkout can start.
func (s *PurchaseService) resumePending(ctx context.Context, buyerID uint, note domain.Note) (CheckoutResult, bool, error) {
	var pending domain.Sale
	err := s.db.WithContext(ctx).
		Where("buyer_id = ? AND note_id = ? AND status = ? AND invoice_id IS NOT NULL", buyerID, note.ID, domain.SalePending).
		Order("id desc").First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CheckoutResult{}, false, nil
	}
	if err != nil {
		return CheckoutResult{}, false, fmt.Errorf("find pending sale: %w", err)
	}

	invoiceID := *pending.InvoiceID
	invoice, err := s.gateway.FetchInvoice(ctx, invoiceID)
	if err != nil {
		return CheckoutResult{}, false, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	var reason string
	switch {
	case invoice.Status == payment.InvoicePaid:
		sale, err := s.Confirm(ctx, invoiceID, buyerID)
		if err != nil {
			return CheckoutResult{}, false, err
		}
		return CheckoutResult{Sale: sale, InvoiceID: invoiceID, Completed: sale.Status == domain.SaleCompleted}, true, nil
	case invoice.IsFinalFailure():
		reason = "payment " + invoice.Status
	case invoice.Amount != payment.ToMinorUnits(note.Price):
		reason = "price changed"
	default:
		logrus.WithFields(logrus.Fields{"sale_id": pending.ID, "invoice_id": invoiceID, "buyer_id": buyerID}).Info("Checkout resumed")
		return CheckoutResult{Sale: pending, InvoiceID: invoiceID, PaymentURL: invoice.URL}, true, nil
	}
	if _, err := s.Fail(ctx, pending.ID, reason); err != nil && !errors.Is(err, ErrInvalidTransition) {
		return CheckoutResult{}, false, err
	}
	return CheckoutResult{}, false, nil
}

// Confirm reconciles a sale with the gateway's view of its invoice.
// buyerID restricts the lookup to that buyer's sales; zero means a trusted caller.
// A sale that already reached a final state is returned unchanged.
func (s *PurchaseService) Confirm(ctx context.Context, invoiceID string, buyerID uint) (domain.Sale, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return domain.Sale{}, validationf("invoice id is required")
	}
	q := s.db.WithContext(ctx).Where("invoice_id = ?", invoiceID)
	if buyerID != 0 {
		q = q.Where("buyer_id = ?", buyerID)
	}
	var sale domain.Sale
	if err := q.First(&sale).Error; err != nil {
		return domain.Sale{}, notFound(err, "sale")
	}
	if sale.Status != domain.SalePending {
		return sale, nil
	}

	invoice, err := s.gateway.FetchInvoice(ctx, invoiceID)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	switch {
	case invoice.Status == payment.InvoicePaid:
		if invoice.Amount != payment.ToMinorUnits(sale.Amount) {
			logrus.WithFields(logrus.Fields{
				"sale_id":    sale.ID,
				"invoice_id": invoiceID,
				"paid":       invoice.Amount,
				"expected":   payment.ToMinorUnits(sale.Amount),
			}).Error("Paid amount does not match sale")
			return domain.Sale{}, fmt.Errorf("%w: paid amount does not match the sale", ErrConflict)
		}
		completed, err := s.Complete(ctx, sale.ID)
		if errors.Is(err, ErrAlreadyPurchased) {
			// Paid twice for the same note; close the duplicate so it can be refunded
			logrus.WithFields(logrus.Fields{
				"sale_id":    sale.ID,
				"invoice_id": invoiceID,
				"buyer_id":   sale.BuyerID,
				"note_id":    sale.NoteID,
			}).Error("Duplicate payment for an owned note, refund required")
			if _, failErr := s.Fail(ctx, sale.ID, "duplicate payment, refund required"); failErr != nil {
				logrus.WithError(failErr).Warn("Closing duplicate sale failed")
			}
			notifyBestEffort(ctx, s.db, sale.BuyerID, domain.NotifyPurchase, "Duplicate payment",
				fmt.Sprintf("You already own %q, the extra payment will be refunded", sale.NoteTitle))
		}
		return completed, err
	case invoice.IsFinalFailure():
		return s.Fail(ctx, sale.ID, "payment "+invoice.Status)
	}
	return sale, nil
}

// Webhook handles a gateway callback. The payload only names the invoice;
// its status is always re-read from the gateway.
func (s *PurchaseService) Webhook(ctx context.Context, body []byte) (domain.Sale, error) {
	ev, err := payment.ParseWebhook(body, s.settings.WebhookToken)
	if err != nil {
		if errors.Is(err, payment.ErrWebhookToken) {
			return domain.Sale{}, fmt.Errorf("%w: %v", ErrForbidden, err)
		}
		return domain.Sale{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	logrus.WithFields(logrus.Fields{"event_id": ev.ID, "type": ev.Type, "invoice_id": ev.InvoiceID}).Info("Payment callback received")
	return s.Confirm(ctx, ev.InvoiceID, 0)
}

// Complete moves a pending sale to completed and hands the note to the buyer
func (s *PurchaseService) Complete(ctx context.Context, saleID uint) (domain.Sale, error) {
	var sale domain.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sale, saleID).Error; err != nil {
			return notFound(err, "sale")
		}
		return s.completeTx(tx, &sale)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// Lost a race with another confirmation, report the stored state
			var current domain.Sale
			if loadErr := s.db.WithContext(ctx).First(&current, saleID).Error; loadErr == nil && current.Status == domain.SaleCompleted {
				return current, nil
			}
		}
		return domain.Sale{}, s.completionError(err)
	}
	s.afterCompletion(ctx, sale)
	return sale, nil
}

// completeTx does the whole purchase inside tx: status change, ownership record,
// owner credit and both notifications. Any error rolls all of it back.
func (s *PurchaseService) completeTx(tx *gorm.DB, sale *domain.Sale) error {
	res := tx.Model(&domain.Sale{}).
		Where("id = ? AND status = ?", sale.ID, domain.SalePending).
		Update("status", domain.SaleCompleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: sale %d is not pending", ErrInvalidTransition, sale.ID)
	}
	sale.Status = domain.SaleCompleted

	purchase := domain.Purchase{NoteID: sale.NoteID, UserID: sale.BuyerID, SaleID: sale.ID}
	if err := tx.Create(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyPurchased
		}
		return err
	}
	if sale.OwnerEarnings.IsPositive() {
		res := tx.Model(&domain.User{}).Where("id = ?", sale.SellerID).
			UpdateColumn("balance", gorm.Expr("balance + ?", sale.OwnerEarnings))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("seller %w", ErrNotFound)
		}
	}
	if err := notify(tx, sale.BuyerID, domain.NotifyPurchase, "Purchase completed",
		fmt.Sprintf("You bought %q", sale.NoteTitle)); err != nil {
		return err
	}
	return notify(tx, sale.SellerID, domain.NotifySale, "New sale",
		fmt.Sprintf("Your note %q was sold, %s added to your balance", sale.NoteTitle, sale.OwnerEarnings.StringFixed(2)))
}

func (s *PurchaseService) completionError(err error) error {
	switch {
	case errors.Is(err, ErrAlreadyPurchased), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
		return err
	}
	return fmt.Errorf("complete purchase: %w", err)
}

func (s *PurchaseService) afterCompletion(ctx context.Context, sale domain.Sale) {
	if err := utils.BumpGeneration(ctx, s.rdb, salesNamespace); err != nil {
		logrus.WithError(err).Warn("Sales cache invalidation failed")
	}
	logrus.WithFields(logrus.Fields{
		"sale_id":        sale.ID,
		"note_id":        sale.NoteID,
		"buyer_id":       sale.BuyerID,
		"seller_id":      sale.SellerID,
		"amount":         sale.Amount.StringFixed(2),
		"platform_fee":   sale.PlatformFee.StringFixed(2),
		"owner_earnings": sale.OwnerEarnings.StringFixed(2),
	}).Info("Purchase completed")
}

// Fail moves a pending sale to failed and tells the buyer
func (s *PurchaseService) Fail(ctx context.Context, saleID uint, message string) (domain.Sale, error) {
	var sale domain.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sale, saleID).Error; err != nil {
			return notFound(err, "sale")
		}
		res := tx.Model(&domain.Sale{}).
			Where("id = ? AND status = ?", sale.ID, domain.SalePending).
			Updates(map[string]any{"status": domain.SaleFailed, "message": message})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: sale %d is not pending", ErrInvalidTransition, sale.ID)
		}
		sale.Status, sale.Message = domain.SaleFailed, message
		return notify(tx, sale.BuyerID, domain.NotifyPurchase, "Purchase failed",
			fmt.Sprintf("Your purchase of %q did not go through", sale.NoteTitle))
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			return domain.Sale{}, err
		}
		return domain.Sale{}, fmt.Errorf("fail sale: %w", err)
	}
	if err := utils.BumpGeneration(ctx, s.rdb, salesNamespace); err != nil {
		logrus.WithError(err).Warn("Sales cache invalidation failed")
	}
	logrus.WithFields(logrus.Fields{"sale_id": sale.ID, "message": message}).Info("Sale failed")
	return sale, nil
}
