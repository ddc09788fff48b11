package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ibanPattern = regexp.MustCompile(`^SA[0-9]{22}$`)

// NormalizeIBAN strips spaces and upper-cases an IBAN
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ValidIBAN reports whether s is a Saudi IBAN once normalized
func ValidIBAN(s string) bool {
	return ibanPattern.MatchString(NormalizeIBAN(s))
}

// WithdrawalService handles payout requests and their admin review
type WithdrawalService struct {
	db       *gorm.DB
	settings Settings
}

// NewWithdrawalService creates the service
func NewWithdrawalService(deps Dependencies) *WithdrawalService {
	return &WithdrawalService{db: deps.DB, settings: deps.Settings}
}

// WithdrawalInput is a payout request
type WithdrawalInput struct {
	Amount      decimal.Decimal
	BankName    string
	IBAN        string
	AccountName string
}

func (s *WithdrawalService) validate(in *WithdrawalInput) error {
	in.BankName = strings.TrimSpace(in.BankName)
	in.AccountName = strings.Join(strings.Fields(in.AccountName), " ")
	in.IBAN = NormalizeIBAN(in.IBAN)
	if in.Amount.LessThan(s.settings.MinWithdrawal) {
		return validationf("minimum withdrawal is %s", s.settings.MinWithdrawal.StringFixed(2))
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return validationf("amount has more than two decimals")
	}
	if len([]rune(in.BankName)) < 3 {
		return validationf("bank name must be at least 3 characters")
	}
	if !ibanPattern.MatchString(in.IBAN) {
		return validationf("IBAN must start with SA followed by 22 digits")
	}
	if len(strings.Fields(in.AccountName)) < 3 {
		return validationf("account name must contain at least three names")
	}
	return nil
}

// Create records a pending withdrawal, spending one of the user's withdrawal requests.
// The balance is only debited when an admin accepts it.
func (s *WithdrawalService) Create(ctx context.Context, userID uint, in WithdrawalInput) (domain.Withdrawal, error) {
	if err := s.validate(&in); err != nil {
		return domain.Withdrawal{}, err
	}
	w := domain.Withdrawal{
		UserID:      userID,
		Amount:      in.Amount,
		Status:      domain.WithdrawalPending,
		BankName:    in.BankName,
		IBAN:        in.IBAN,
		AccountName: in.AccountName,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ? AND withdrawal_times > 0 AND balance >= ?", userID, in.Amount).
			UpdateColumn("withdrawal_times", gorm.Expr("withdrawal_times - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var user domain.User
			if err := tx.First(&user, userID).Error; err != nil {
				return notFound(err, "user")
			}
			if user.WithdrawalTimes <= 0 {
				return ErrNoWithdrawalsLeft
			}
			return ErrInsufficientBalance
		}
		if err := tx.Create(&w).Error; err != nil {
			return err
		}
		return notify(tx, userID, domain.NotifyWithdrawal, "Withdrawal requested",
			fmt.Sprintf("Your withdrawal of %s is pending review", in.Amount.StringFixed(2)))
	})
	if err != nil {
		return domain.Withdrawal{}, withdrawalError("create withdrawal", err)
	}
	logrus.WithFields(logrus.Fields{
		"withdrawal_id": w.ID,
		"user_id":       userID,
		"amount":        w.Amount.StringFixed(2),
	}).Info("Withdrawal requested")
	return w, nil
}

func withdrawalError(op string, err error) error {
	for _, known := range []error{ErrNotFound, ErrNoWithdrawalsLeft, ErrInsufficientBalance, ErrInvalidTransition, ErrValidation, ErrConflict} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// transition moves w from its current status to next with a conditional update,
// so two admins acting at once cannot both succeed
func transition(tx *gorm.DB, w *domain.Withdrawal, next domain.WithdrawalStatus, updates map[string]any) error {
	if !w.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, w.Status, next)
	}
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = next
	res := tx.Model(&domain.Withdrawal{}).Where("id = ? AND status = ?", w.ID, w.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: withdrawal %d changed concurrently", ErrInvalidTransition, w.ID)
	}
	w.Status = next
	return nil
}

func (s *WithdrawalService) process(ctx context.Context, id uint, op string, fn func(tx *gorm.DB, w *domain.Withdrawal) error) (domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&w, id).Error; err != nil {
			return notFound(err, "withdrawal")
		}
		return fn(tx, &w)
	})
	if err != nil {
		return domain.Withdrawal{}, withdrawalError(op, err)
	}
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return domain.Withdrawal{}, notFound(err, "withdrawal")
	}
	return w, nil
}

// Accept approves a pending withdrawal and debits the user's balance
func (s *WithdrawalService) Accept(ctx context.Context, id uint, notes string) (domain.Withdrawal, error) {
	w, err := s.process(ctx, id, "accept withdrawal", func(tx *gorm.DB, w *domain.Withdrawal) error {
		if err := transition(tx, w, domain.WithdrawalAccepted, map[string]any{"admin_notes": strings.TrimSpace(notes)}); err != nil {
			return err
		}
		res := tx.Model(&domain.User{}).
			Where("id = ? AND balance >= ?", w.UserID, w.Amount).
			UpdateColumn("balance", gorm.Expr("balance - ?", w.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		return notify(tx, w.UserID, domain.NotifyWithdrawal, "Withdrawal accepted",
			fmt.Sprintf("Your withdrawal of %s was accepted", w.Amount.StringFixed(2)))
	})
	if err != nil {
		return domain.Withdrawal{}, err
	}
	logrus.WithFields(logrus.Fields{"withdrawal_id": id, "user_id": w.UserID, "amount": w.Amount.StringFixed(2)}).Info("Withdrawal accepted")
	return w, nil
}

// Reject declines a pending withdrawal. The spent withdrawal request is not returned.
func (s *WithdrawalService) Reject(ctx context.Context, id uint, notes string) (domain.Withdrawal, error) {
	w, err := s.process(ctx, id, "reject withdrawal", func(tx *gorm.DB, w *domain.Withdrawal) error {
		if err := transition(tx, w, domain.WithdrawalRejected, map[string]any{"admin_notes": strings.TrimSpace(notes)}); err != nil {
			return err
		}
		body := fmt.Sprintf("Your withdrawal of %s was rejected", w.Amount.StringFixed(2))
		if n := strings.TrimSpace(notes); n != "" {
			body += ": " + n
		}
		return notify(tx, w.UserID, domain.NotifyWithdrawal, "Withdrawal rejected", body)
	})
	if err != nil {
		return domain.Withdrawal{}, err
	}
	logrus.WithFields(logrus.Fields{"withdrawal_id": id, "user_id": w.UserID}).Info("Withdrawal rejected")
	return w, nil
}

// AddRoutingDetails records the bank transfer of an accepted withdrawal and completes it
func (s *WithdrawalService) AddRoutingDetails(ctx context.Context, id uint, routingNumber string, routingDate time.Time) (domain.Withdrawal, error) {
	routingNumber = strings.TrimSpace(routingNumber)
	if routingNumber == "" {
		return domain.Withdrawal{}, validationf("routing number is required")
	}
	if routingDate.IsZero() {
		return domain.Withdrawal{}, validationf("routing date is required")
	}
	date := routingDate.UTC()
	w, err := s.process(ctx, id, "complete withdrawal", func(tx *gorm.DB, w *domain.Withdrawal) error {
		if err := transition(tx, w, domain.WithdrawalCompleted, map[string]any{
			"routing_number": routingNumber,
			"routing_date":   date,
		}); err != nil {
			return err
		}
		return notify(tx, w.UserID, domain.NotifyWithdrawal, "Withdrawal transferred",
			fmt.Sprintf("Your withdrawal of %s was transferred, reference %s", w.Amount.StringFixed(2), routingNumber))
	})
	if err != nil {
		return domain.Withdrawal{}, err
	}
	logrus.WithFields(logrus.Fields{"withdrawal_id": id, "user_id": w.UserID, "routing_number": routingNumber}).Info("Withdrawal completed")
	return w, nil
}

// UpdateNotes replaces the admin notes of a withdrawal
func (s *WithdrawalService) UpdateNotes(ctx context.Context, id uint, notes string) (domain.Withdrawal, error) {
	return s.process(ctx, id, "update withdrawal notes", func(tx *gorm.DB, w *domain.Withdrawal) error {
		return tx.Model(w).Update("admin_notes", strings.TrimSpace(notes)).Error
	})
}

// Delete removes a withdrawal that never moved money
func (s *WithdrawalService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w domain.Withdrawal
		if err := tx.First(&w, id).Error; err != nil {
			return notFound(err, "withdrawal")
		}
		if !w.Status.Deletable() {
			return fmt.Errorf("%w: %s withdrawals cannot be deleted", ErrConflict, w.Status)
		}
		res := tx.Where("id = ? AND status = ?", w.ID, w.Status).Delete(&domain.Withdrawal{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: withdrawal %d changed concurrently", ErrConflict, w.ID)
		}
		return notify(tx, w.UserID, domain.NotifyWithdrawal, "Withdrawal removed",
			fmt.Sprintf("Your withdrawal request of %s was removed", w.Amount.StringFixed(2)))
	})
	if err != nil {
		return withdrawalError("delete withdrawal", err)
	}
	logrus.WithFields(logrus.Fields{"withdrawal_id": id}).Info("Withdrawal deleted")
	return nil
}

// WithdrawalFilters narrow the admin withdrawal table
type WithdrawalFilters struct {
	Search   string // Substring of account name, bank name or IBAN
	Status   string // Empty or "all" disables the filter
	DateFrom string // YYYY-MM-DD, inclusive
	DateTo   string // YYYY-MM-DD, inclusive
}

// StatusCounts are the per-status totals shown above the table
type StatusCounts struct {
	Accepted int64 `json:"accepted"`
	Pending  int64 `json:"pending"`
	Rejected int64 `json:"rejected"`
}

// WithdrawalPage is one page of withdrawals with the status counts of the whole filter
type WithdrawalPage struct {
	Withdrawals []domain.Withdrawal `json:"withdrawals"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	Total       int64               `json:"total"`
	TotalPages  int                 `json:"total_pages"`
	Counts      StatusCounts        `json:"counts"`
}

// scope applies every filter except status
func (f WithdrawalFilters) scope(q *gorm.DB) (*gorm.DB, error) {
	q = whereAnyContains(q, f.Search, "account_name", "bank_name", "iban")
	if f.DateFrom != "" {
		from, err := parseDay(f.DateFrom)
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at >= ?", from)
	}
	if f.DateTo != "" {
		to, err := parseDay(f.DateTo)
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at < ?", to.AddDate(0, 0, 1))
	}
	return q, nil
}

// List returns a page of withdrawals, newest first. The page and the three
// status counts are queried in parallel; a failed count is logged and reported as 0.
func (s *WithdrawalService) List(ctx context.Context, f WithdrawalFilters, page utils.Page) (WithdrawalPage, error) {
	var status domain.WithdrawalStatus
	if f.Status != "" && f.Status != "all" {
		status = domain.WithdrawalStatus(f.Status)
		if !status.Valid() {
			return WithdrawalPage{}, validationf("unknown withdrawal status %q", f.Status)
		}
	}
	base := func(ctx context.Context) (*gorm.DB, error) {
		return f.scope(s.db.WithContext(ctx).Model(&domain.Withdrawal{}))
	}
	if _, err := base(ctx); err != nil {
		return WithdrawalPage{}, err
	}

	out := WithdrawalPage{Withdrawals: []domain.Withdrawal{}, Page: page.Number, PageSize: page.Size}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, _ := base(gctx)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		if err := q.Count(&out.Total).Error; err != nil {
			return fmt.Errorf("count withdrawals: %w", err)
		}
		if err := q.Order("created_at desc, id desc").Offset(page.Offset()).Limit(page.Size).Find(&out.Withdrawals).Error; err != nil {
			return fmt.Errorf("list withdrawals: %w", err)
		}
		return nil
	})
	count := func(st domain.WithdrawalStatus, dest *int64) {
		g.Go(func() error {
			q, _ := base(gctx)
			if err := q.Where("status = ?", st).Count(dest).Error; err != nil {
				logrus.WithFields(logrus.Fields{"status": st, "error": err.Error()}).Warn("Withdrawal status count failed")
				*dest = 0
			}
			return nil
		})
	}
	count(domain.WithdrawalAccepted, &out.Counts.Accepted)
	count(domain.WithdrawalPending, &out.Counts.Pending)
	count(domain.WithdrawalRejected, &out.Counts.Rejected)
	if err := g.Wait(); err != nil {
		return WithdrawalPage{}, err
	}
	out.TotalPages = page.TotalPages(out.Total)
	return out, nil
}

// WithdrawalStats counts withdrawals by status
type WithdrawalStats struct {
	Total     int64 `json:"total"`
	Accepted  int64 `json:"accepted"`
	Pending   int64 `json:"pending"`
	Rejected  int64 `json:"rejected"`
	Completed int64 `json:"completed"`
}

type withdrawalStatusCount struct {
	Status domain.WithdrawalStatus
	Count  int64
}

// Stats returns the withdrawal counts for the dashboard
func (s *WithdrawalService) Stats(ctx context.Context) (WithdrawalStats, error) {
	var rows []withdrawalStatusCount
	if err := s.db.WithContext(ctx).Model(&domain.Withdrawal{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return WithdrawalStats{}, fmt.Errorf("count withdrawals by status: %w", err)
	}
	var stats WithdrawalStats
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case domain.WithdrawalAccepted:
			stats.Accepted = r.Count
		case domain.WithdrawalPending:
			stats.Pending = r.Count
		case domain.WithdrawalRejected:
			stats.Rejected = r.Count
		case domain.WithdrawalCompleted:
			stats.Completed = r.Count
		}
	}
	return stats, nil
}

// Get returns a withdrawal with its user
func (s *WithdrawalService) Get(ctx context.Context, id uint) (domain.Withdrawal, error) {
	var w domain.Withdrawal
	if err := s.db.WithContext(ctx).Preload("User").First(&w, id).Error; err != nil {
		return domain.Withdrawal{}, notFound(err, "withdrawal")
	}
	return w, nil
}

// UserHistory lists a user's withdrawals, newest first
func (s *WithdrawalService) UserHistory(ctx context.Context, userID uint) ([]domain.Withdrawal, error) {
	history := []domain.Withdrawal{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("list withdrawal history: %w", err)
	}
	return history, nil
}
