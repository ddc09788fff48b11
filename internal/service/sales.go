package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const monthlySalesWindow = 12

var saleSortColumns = map[string]string{
	"created_at":   "created_at",
	"amount":       "amount",
	"platform_fee": "platform_fee",
	"status":       "status",
	"note_title":   "note_title",
}

// SalesService reports on sales and lets admins settle them
type SalesService struct {
	db        *gorm.DB
	rdb       *redis.Client
	purchases *PurchaseService
	settings  Settings
}

// NewSalesService creates the service. Completing a sale goes through purchases.
func NewSalesService(deps Dependencies, purchases *PurchaseService) *SalesService {
	return &SalesService{db: deps.DB, rdb: deps.Redis, purchases: purchases, settings: deps.Settings}
}

// SaleFilters narrow the admin sales table
type SaleFilters struct {
	ID        uint
	InvoiceID string
	NoteTitle string
	Status    string // "all" or empty disables the filter
	Date      string // YYYY-MM-DD, one UTC day
}

// SaleSort orders the admin sales table
type SaleSort struct {
	Key       string
	Ascending bool
}

// SalePage is one page of sales
type SalePage struct {
	Sales      []domain.Sale `json:"sales"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// List returns the filtered, sorted page of sales
func (s *SalesService) List(ctx context.Context, f SaleFilters, sort SaleSort, page utils.Page) (SalePage, error) {
	q := s.db.WithContext(ctx).Model(&domain.Sale{})
	if f.ID != 0 {
		q = q.Where("id = ?", f.ID)
	}
	if id := strings.TrimSpace(f.InvoiceID); id != "" {
		q = q.Where("invoice_id = ?", id)
	}
	if f.NoteTitle != "" {
		q = whereAnyContains(q, f.NoteTitle, "note_title")
	}
	if f.Status != "" && f.Status != "all" {
		status := domain.SaleStatus(f.Status)
		if !status.Valid() {
			return SalePage{}, validationf("unknown sale status %q", f.Status)
		}
		q = q.Where("status = ?", status)
	}
	if f.Date != "" {
		day, err := parseDay(f.Date)
		if err != nil {
			return SalePage{}, err
		}
		q = q.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	}

	column, ok := saleSortColumns[sort.Key]
	if !ok {
		column = "created_at"
	}
	dir := "desc"
	if sort.Ascending {
		dir = "asc"
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return SalePage{}, fmt.Errorf("count sales: %w", err)
	}
	out := SalePage{Sales: []domain.Sale{}, Page: page.Number, PageSize: page.Size, Total: total, TotalPages: page.TotalPages(total)}
	err := q.Order(column + " " + dir + ", id " + dir).Offset(page.Offset()).Limit(page.Size).Find(&out.Sales).Error
	if err != nil {
		return SalePage{}, fmt.Errorf("list sales: %w", err)
	}
	return out, nil
}

// SaleDetail is a sale with both parties
type SaleDetail struct {
	domain.Sale
	Buyer  domain.PublicUser `json:"buyer"`
	Seller domain.PublicUser `json:"seller"`
}

// Get returns a sale to its buyer, its seller or an admin
func (s *SalesService) Get(ctx context.Context, viewer Viewer, id uint) (SaleDetail, error) {
	var sale domain.Sale
	if err := s.db.WithContext(ctx).First(&sale, id).Error; err != nil {
		return SaleDetail{}, notFound(err, "sale")
	}
	if !viewer.Admin && viewer.ID != sale.BuyerID && viewer.ID != sale.SellerID {
		return SaleDetail{}, fmt.Errorf("sale %w", ErrNotFound)
	}
	var users []domain.User
	if err := s.db.WithContext(ctx).Where("id IN ?", []uint{sale.BuyerID, sale.SellerID}).Find(&users).Error; err != nil {
		return SaleDetail{}, fmt.Errorf("load sale parties: %w", err)
	}
	byID := lo.KeyBy(users, func(u domain.User) uint { return u.ID })
	return SaleDetail{Sale: sale, Buyer: byID[sale.BuyerID].Public(), Seller: byID[sale.SellerID].Public()}, nil
}

func (s *SalesService) listBy(ctx context.Context, column string, id uint) ([]domain.Sale, error) {
	sales := []domain.Sale{}
	if err := s.db.WithContext(ctx).Where(column+" = ?", id).Order("created_at desc, id desc").Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("list sales by %s: %w", column, err)
	}
	return sales, nil
}

// SellerSales lists the sales of a seller's notes
func (s *SalesService) SellerSales(ctx context.Context, sellerID uint) ([]domain.Sale, error) {
	return s.listBy(ctx, "seller_id", sellerID)
}

// BuyerSales lists a buyer's orders
func (s *SalesService) BuyerSales(ctx context.Context, buyerID uint) ([]domain.Sale, error) {
	return s.listBy(ctx, "buyer_id", buyerID)
}

// NoteSales lists the sales of one note for its owner or an admin
func (s *SalesService) NoteSales(ctx context.Context, viewer Viewer, noteID uint) ([]domain.Sale, error) {
	note, err := loadNote(ctx, s.db, noteID)
	if err != nil {
		return nil, err
	}
	if note.OwnerID != viewer.ID && !viewer.Admin {
		return nil, fmt.Errorf("%w: only the owner may view these sales", ErrForbidden)
	}
	return s.listBy(ctx, "note_id", noteID)
}

// UpdateStatus settles a pending sale by hand. Completing runs the full purchase.
func (s *SalesService) UpdateStatus(ctx context.Context, id uint, next domain.SaleStatus, message string) (domain.Sale, error) {
	if !next.Valid() {
		return domain.Sale{}, validationf("unknown sale status %q", next)
	}
	var sale domain.Sale
	if err := s.db.WithContext(ctx).First(&sale, id).Error; err != nil {
		return domain.Sale{}, notFound(err, "sale")
	}
	if !sale.Status.CanTransition(next) {
		return domain.Sale{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, sale.Status, next)
	}
	switch next {
	case domain.SaleCompleted:
		return s.purchases.Complete(ctx, id)
	default:
		if strings.TrimSpace(message) == "" {
			message = "cancelled by admin"
		}
		return s.purchases.Fail(ctx, id, message)
	}
}

// MonthlySales is the completed revenue of one calendar month
type MonthlySales struct {
	Month  string          `json:"month"` // YYYY-MM
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// SalesStats summarises completed sales
type SalesStats struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PlatformProfit decimal.Decimal `json:"platform_profit"`
	CompletedCount int64           `json:"completed_count"`
	PendingCount   int64           `json:"pending_count"`
	FailedCount    int64           `json:"failed_count"`
	GrowthRate     float64         `json:"growth_rate"` // Completed amount, this month vs last, percent
	Monthly        []MonthlySales  `json:"monthly"`
	Cached         bool            `json:"cached"`
}

type saleTotals struct {
	TotalAmount    decimal.Decimal
	PlatformProfit decimal.Decimal
}

type statusCount struct {
	Status domain.SaleStatus
	Count  int64
}

// Statistics returns the dashboard numbers for sales
func (s *SalesService) Statistics(ctx context.Context, now time.Time) (SalesStats, error) {
	key := salesNamespace + ":" + utils.Generation(ctx, s.rdb, salesNamespace) + ":stats:" + monthStart(now).Format("2006-01")
	var stats SalesStats
	if found, err := utils.GetCache(ctx, s.rdb, key, &stats); err == nil && found {
		stats.Cached = true
		return stats, nil
	}

	var totals saleTotals
	err := s.db.WithContext(ctx).Model(&domain.Sale{}).
		Select("COALESCE(SUM(amount), 0) AS total_amount, COALESCE(SUM(platform_fee), 0) AS platform_profit").
		Where("status = ?", domain.SaleCompleted).Scan(&totals).Error
	if err != nil {
		return SalesStats{}, fmt.Errorf("sum sales: %w", err)
	}
	stats.TotalAmount = totals.TotalAmount.Round(2)
	stats.PlatformProfit = totals.PlatformProfit.Round(2)

	var counts []statusCount
	if err := s.db.WithContext(ctx).Model(&domain.Sale{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&counts).Error; err != nil {
		return SalesStats{}, fmt.Errorf("count sales by status: %w", err)
	}
	for _, c := range counts {
		switch c.Status {
		case domain.SaleCompleted:
			stats.CompletedCount = c.Count
		case domain.SalePending:
			stats.PendingCount = c.Count
		case domain.SaleFailed:
			stats.FailedCount = c.Count
		}
	}

	if stats.Monthly, err = s.monthlySales(ctx, now); err != nil {
		return SalesStats{}, err
	}
	stats.GrowthRate = s.growthRate(stats.Monthly)

	if err := utils.SetCache(ctx, s.rdb, key, stats, s.settings.CacheTTL); err != nil {
		logrus.WithError(err).Warn("Sales stats cache write failed")
	}
	return stats, nil
}

// monthlySales buckets completed sales into the last twelve calendar months, oldest first
func (s *SalesService) monthlySales(ctx context.Context, now time.Time) ([]MonthlySales, error) {
	start := monthStart(now).AddDate(0, -(monthlySalesWindow - 1), 0)
	var sales []domain.Sale
	err := s.db.WithContext(ctx).Select("amount", "created_at").
		Where("status = ? AND created_at >= ?", domain.SaleCompleted, start).Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("load monthly sales: %w", err)
	}
	months := make([]MonthlySales, monthlySalesWindow)
	index := make(map[string]int, monthlySalesWindow)
	for i := range months {
		m := start.AddDate(0, i, 0).Format("2006-01")
		months[i] = MonthlySales{Month: m, Amount: decimal.Zero}
		index[m] = i
	}
	for _, sale := range sales {
		i, ok := index[sale.CreatedAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		months[i].Amount = months[i].Amount.Add(sale.Amount)
		months[i].Count++
	}
	return months, nil
}

// growthRate compares the last two buckets of the monthly series
func (s *SalesService) growthRate(monthly []MonthlySales) float64 {
	if len(monthly) < 2 {
		return 0
	}
	return growthRate(monthly[len(monthly)-1].Amount, monthly[len(monthly)-2].Amount)
}
