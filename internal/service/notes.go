package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const catalogNamespace = "catalog"

var coverTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Upload is a file received from a client
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Viewer identifies who is asking; the zero value is an anonymous visitor
type Viewer struct {
	ID    uint
	Admin bool
}

// NoteInput holds the editable metadata of a note
type NoteInput struct {
	Title         string
	Description   string
	Price         decimal.Decimal
	University    string
	College       string
	Subject       string
	PagesNumber   int
	Year          int
	ContactMethod string
}

func (in *NoteInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.University = strings.TrimSpace(in.University)
	in.College = strings.TrimSpace(in.College)
	in.Subject = strings.TrimSpace(in.Subject)
	if in.Title == "" {
		return validationf("title is required")
	}
	if in.Price.IsNegative() {
		return validationf("price cannot be negative")
	}
	in.Price = in.Price.Round(2)
	if in.PagesNumber < 0 {
		return validationf("pages number cannot be negative")
	}
	if in.Year == 0 {
		in.Year = time.Now().UTC().Year()
	}
	return nil
}

// NoteService manages the note catalog and the files behind it
type NoteService struct {
	db       *gorm.DB
	rdb      *redis.Client
	store    BlobStore
	settings Settings
}

// NewNoteService creates the service
func NewNoteService(deps Dependencies) *NoteService {
	return &NoteService{db: deps.DB, rdb: deps.Redis, store: deps.Store, settings: deps.Settings}
}

func (s *NoteService) checkPDF(f *Upload) error {
	if f == nil || f.Size <= 0 {
		return validationf("a PDF file is required")
	}
	if strings.ToLower(path.Ext(f.Name)) != ".pdf" {
		return validationf("note file must be a PDF")
	}
	if s.settings.MaxUploadBytes > 0 && f.Size > s.settings.MaxUploadBytes {
		return validationf("file exceeds the %d MB limit", s.settings.MaxUploadBytes>>20)
	}
	return nil
}

func (s *NoteService) checkCover(f *Upload) error {
	if _, ok := coverTypes[strings.ToLower(path.Ext(f.Name))]; !ok {
		return validationf("cover must be a jpg, png or webp image")
	}
	if s.settings.MaxUploadBytes > 0 && f.Size > s.settings.MaxUploadBytes {
		return validationf("cover exceeds the %d MB limit", s.settings.MaxUploadBytes>>20)
	}
	return nil
}

func (s *NoteService) putPDF(ctx context.Context, owner uint, f *Upload) (string, error) {
	key := fmt.Sprintf("pdfs/%d_%s.pdf", owner, uuid.NewString())
	if err := s.store.Put(ctx, key, f.Body, f.Size, "application/pdf"); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return key, nil
}

func (s *NoteService) putCover(ctx context.Context, owner uint, f *Upload) (string, error) {
	ext := strings.ToLower(path.Ext(f.Name))
	key := fmt.Sprintf("images/%d_%s%s", owner, uuid.NewString(), ext)
	if err := s.store.Put(ctx, key, f.Body, f.Size, coverTypes[ext]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return key, nil
}

// removeBlobs deletes objects best-effort; a failed cleanup is logged, never returned
func (s *NoteService) removeBlobs(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Blob cleanup failed")
		}
	}
}

// invalidate makes every cached catalog read stale
func (s *NoteService) invalidate(ctx context.Context) {
	if err := utils.BumpGeneration(ctx, s.rdb, catalogNamespace); err != nil {
		logrus.WithError(err).Warn("Catalog cache invalidation failed")
	}
}

func (s *NoteService) cacheKey(ctx context.Context, parts ...string) string {
	return catalogNamespace + ":" + utils.Generation(ctx, s.rdb, catalogNamespace) + ":" + strings.Join(parts, ":")
}

// Create uploads the files and records a new published note
func (s *NoteService) Create(ctx context.Context, owner uint, in NoteInput, pdf, cover *Upload) (domain.Note, error) {
	if err := in.normalize(); err != nil {
		return domain.Note{}, err
	}
	if err := s.checkPDF(pdf); err != nil {
		return domain.Note{}, err
	}
	if cover != nil {
		if err := s.checkCover(cover); err != nil {
			return domain.Note{}, err
		}
	}

	pdfKey, err := s.putPDF(ctx, owner, pdf)
	if err != nil {
		return domain.Note{}, err
	}
	coverKey, coverURL := "", s.settings.DefaultCoverURL
	if cover != nil {
		if coverKey, err = s.putCover(ctx, owner, cover); err != nil {
			s.removeBlobs(ctx, pdfKey)
			return domain.Note{}, err
		}
		coverURL = s.store.PublicURL(coverKey)
	}

	note := domain.Note{
		OwnerID:       owner,
		Title:         in.Title,
		Description:   in.Description,
		Price:         in.Price,
		University:    in.University,
		College:       in.College,
		Subject:       in.Subject,
		PagesNumber:   in.PagesNumber,
		Year:          in.Year,
		ContactMethod: in.ContactMethod,
		FilePath:      pdfKey,
		FileURL:       s.store.PublicURL(pdfKey),
		CoverPath:     coverKey,
		CoverURL:      coverURL,
		IsPublished:   true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&note).Error; err != nil {
			return err
		}
		return notify(tx, owner, domain.NotifyNote, "Note created", fmt.Sprintf("Your note %q was created", note.Title))
	})
	if err != nil {
		s.removeBlobs(ctx, pdfKey, coverKey) // Compensate the uploads
		return domain.Note{}, fmt.Errorf("save note: %w", err)
	}
	s.invalidate(ctx)
	logrus.WithFields(logrus.Fields{"note_id": note.ID, "owner_id": owner}).Info("Note created")
	return note, nil
}

// UpdateOptions carries the optional file changes of an update
type UpdateOptions struct {
	PDF         *Upload // Replacement PDF, nil keeps the current one
	Cover       *Upload // Replacement cover, nil keeps the current one
	RemoveFile  bool    // Only allowed together with a replacement PDF
	RemoveCover bool    // Reset to the default cover
}

// Update changes a note's metadata and optionally its files. Only the owner may update.
func (s *NoteService) Update(ctx context.Context, owner, id uint, in NoteInput, opts UpdateOptions) (domain.Note, error) {
	if err := in.normalize(); err != nil {
		return domain.Note{}, err
	}
	var note domain.Note
	if err := s.db.WithContext(ctx).First(&note, id).Error; err != nil {
		return domain.Note{}, notFound(err, "note")
	}
	if note.OwnerID != owner {
		return domain.Note{}, fmt.Errorf("%w: only the owner may edit this note", ErrForbidden)
	}
	if opts.PDF != nil {
		if err := s.checkPDF(opts.PDF); err != nil {
			return domain.Note{}, err
		}
	} else if opts.RemoveFile {
		return domain.Note{}, validationf("a new PDF is required when removing the current file")
	}
	if opts.Cover != nil {
		if err := s.checkCover(opts.Cover); err != nil {
			return domain.Note{}, err
		}
	}

	updates := map[string]any{
		"title":          in.Title,
		"description":    in.Description,
		"price":          in.Price,
		"university":     in.University,
		"college":        in.College,
		"subject":        in.Subject,
		"pages_number":   in.PagesNumber,
		"year":           in.Year,
		"contact_method": in.ContactMethod,
	}
	var newPDF, newCover, stalePDF, staleCover string
	if opts.PDF != nil {
		key, err := s.putPDF(ctx, owner, opts.PDF)
		if err != nil {
			return domain.Note{}, err
		}
		newPDF, stalePDF = key, note.FilePath
		updates["file_path"] = key
		updates["file_url"] = s.store.PublicURL(key)
	}
	switch {
	case opts.Cover != nil:
		key, err := s.putCover(ctx, owner, opts.Cover)
		if err != nil {
			s.removeBlobs(ctx, newPDF)
			return domain.Note{}, err
		}
		newCover, staleCover = key, note.CoverPath
		updates["cover_path"] = key
		updates["cover_url"] = s.store.PublicURL(key)
	case opts.RemoveCover:
		staleCover = note.CoverPath
		updates["cover_path"] = ""
		updates["cover_url"] = s.settings.DefaultCoverURL
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&note).Updates(updates).Error; err != nil {
			return err
		}
		return notify(tx, owner, domain.NotifyNote, "Note updated", fmt.Sprintf("Your note %q was updated", in.Title))
	})
	if err != nil {
		s.removeBlobs(ctx, newPDF, newCover)
		return domain.Note{}, fmt.Errorf("update note: %w", err)
	}
	s.removeBlobs(ctx, stalePDF, staleCover)
	s.invalidate(ctx)

	if err := s.db.WithContext(ctx).First(&note, id).Error; err != nil {
		return domain.Note{}, notFound(err, "note")
	}
	return note, nil
}

// Delete removes a note, its reviews, likes and files. Owner or admin only.
// Notes that were sold stay, so buyers keep their downloads.
func (s *NoteService) Delete(ctx context.Context, actor Viewer, id uint) error {
	var note domain.Note
	if err := s.db.WithContext(ctx).First(&note, id).Error; err != nil {
		return notFound(err, "note")
	}
	if note.OwnerID != actor.ID && !actor.Admin {
		return fmt.Errorf("%w: only the owner may delete this note", ErrForbidden)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Abandoned checkouts can no longer complete
		if err := tx.Model(&domain.Sale{}).Where("note_id = ? AND status = ?", id, domain.SalePending).
			Updates(map[string]any{"status": domain.SaleFailed, "message": "note deleted"}).Error; err != nil {
			return err
		}
		// Buyer check and delete in one statement
		res := tx.Where("id = ? AND NOT EXISTS (SELECT 1 FROM purchases WHERE purchases.note_id = ?)", id, id).
			Delete(&domain.Note{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: note has buyers, unpublish it instead", ErrConflict)
		}
		if err := tx.Where("note_id = ?", id).Delete(&domain.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id = ?", id).Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		return notify(tx, note.OwnerID, domain.NotifyNote, "Note deleted", fmt.Sprintf("Your note %q was deleted", note.Title))
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("delete note: %w", err)
	}
	s.removeBlobs(ctx, note.FilePath, note.CoverPath)
	s.invalidate(ctx)
	logrus.WithFields(logrus.Fields{"note_id": id, "actor_id": actor.ID}).Info("Note deleted")
	return nil
}

// SetPublished publishes or unpublishes a note. Owner only.
func (s *NoteService) SetPublished(ctx context.Context, owner, id uint, published bool) error {
	var note domain.Note
	if err := s.db.WithContext(ctx).First(&note, id).Error; err != nil {
		return notFound(err, "note")
	}
	if note.OwnerID != owner {
		return fmt.Errorf("%w: only the owner may publish this note", ErrForbidden)
	}
	if note.IsPublished == published {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&note).Update("is_published", published).Error; err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	s.invalidate(ctx)
	title, body := "Note published", fmt.Sprintf("Your note %q is visible in the catalog", note.Title)
	if !published {
		title, body = "Note unpublished", fmt.Sprintf("Your note %q is hidden from the catalog", note.Title)
	}
	notifyBestEffort(ctx, s.db, owner, domain.NotifyNote, title, body)
	return nil
}

// NoteDetail is a note with its seller and rating summary
type NoteDetail struct {
	domain.Note
	Seller        domain.PublicUser `json:"seller"`
	AverageRating float64           `json:"average_rating"`
	ReviewsCount  int64             `json:"reviews_count"`
	Purchased     bool              `json:"purchased"` // Whether the viewer owns it
	Cached        bool              `json:"cached"`
}

type ratingSummary struct {
	Avg   float64
	Count int64
}

// Get returns one note. Unpublished notes are visible to their owner and admins only.
func (s *NoteService) Get(ctx context.Context, viewer Viewer, id uint) (NoteDetail, error) {
	key := s.cacheKey(ctx, "note", strconv.FormatUint(uint64(id), 10))
	var detail NoteDetail
	found, err := utils.GetCache(ctx, s.rdb, key, &detail)
	if err != nil || !found {
		if detail, err = s.loadDetail(ctx, id); err != nil {
			return NoteDetail{}, err
		}
		_ = utils.SetCache(ctx, s.rdb, key, detail, s.settings.CacheTTL)
	} else {
		detail.Cached = true
	}

	if !detail.IsPublished && detail.OwnerID != viewer.ID && !viewer.Admin {
		return NoteDetail{}, fmt.Errorf("note %w", ErrNotFound)
	}
	if viewer.ID != 0 && viewer.ID != detail.OwnerID {
		owned, err := s.hasPurchased(ctx, viewer.ID, id)
		if err != nil {
			return NoteDetail{}, err
		}
		detail.Purchased = owned
	}
	return detail, nil
}

func (s *NoteService) loadDetail(ctx context.Context, id uint) (NoteDetail, error) {
	var detail NoteDetail
	if err := s.db.WithContext(ctx).First(&detail.Note, id).Error; err != nil {
		return NoteDetail{}, notFound(err, "note")
	}
	var owner domain.User
	if err := s.db.WithContext(ctx).First(&owner, detail.OwnerID).Error; err == nil {
		detail.Seller = owner.Public()
	}
	var sum ratingSummary
	err := s.db.WithContext(ctx).Model(&domain.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("note_id = ?", id).Scan(&sum).Error
	if err != nil {
		return NoteDetail{}, fmt.Errorf("rating summary: %w", err)
	}
	detail.AverageRating = float64(int(sum.Avg*100+0.5)) / 100
	detail.ReviewsCount = sum.Count
	return detail, nil
}

func (s *NoteService) hasPurchased(ctx context.Context, userID, noteID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Purchase{}).
		Where("note_id = ? AND user_id = ?", noteID, userID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return n > 0, nil
}

// SellerNotes lists every note of an owner, published or not
func (s *NoteService) SellerNotes(ctx context.Context, owner uint) ([]domain.Note, error) {
	var notes []domain.Note
	if err := s.db.WithContext(ctx).Where("owner_id = ?", owner).Order("created_at desc, id desc").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list seller notes: %w", err)
	}
	return notes, nil
}

// Catalog sort orders
const (
	SortDateDesc      = "date_desc"
	SortDownloadsDesc = "downloads_desc"
	SortPriceAsc      = "price_asc"
	SortPriceDesc     = "price_desc"
)

var catalogOrder = map[string]string{
	SortDateDesc:      "created_at desc, id desc",
	SortDownloadsDesc: "downloads desc, id desc",
	SortPriceAsc:      "price asc, id asc",
	SortPriceDesc:     "price desc, id desc",
}

// SearchFilters narrow the public catalog
type SearchFilters struct {
	Query      string `json:"q"`
	University string `json:"university"`
	College    string `json:"college"`
	Year       int    `json:"year"`
	Sort       string `json:"sort"`
}

// NotePage is one page of notes
type NotePage struct {
	Notes      []domain.Note `json:"notes"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
	Cached     bool          `json:"cached"`
}

// Search lists published notes matching the filters
func (s *NoteService) Search(ctx context.Context, f SearchFilters, page utils.Page) (NotePage, error) {
	order, ok := catalogOrder[f.Sort]
	if !ok {
		f.Sort, order = SortDateDesc, catalogOrder[SortDateDesc]
	}
	key := s.cacheKey(ctx, "search",
		"q="+strings.ToLower(strings.TrimSpace(f.Query)),
		"u="+f.University, "c="+f.College, "y="+strconv.Itoa(f.Year), "s="+f.Sort,
		"p="+strconv.Itoa(page.Number), "ps="+strconv.Itoa(page.Size))
	var cached NotePage
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		cached.Cached = true
		return cached, nil
	}

	q := s.db.WithContext(ctx).Model(&domain.Note{}).Where("is_published = ?", true)
	q = whereAnyContains(q, f.Query, "title", "description", "subject")
	if f.University != "" {
		q = q.Where("university = ?", f.University)
	}
	if f.College != "" {
		q = q.Where("college = ?", f.College)
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	out, err := s.page(q, order, page)
	if err != nil {
		return NotePage{}, err
	}
	_ = utils.SetCache(ctx, s.rdb, key, out, s.settings.CacheTTL)
	return out, nil
}

// AdminNoteFilters narrow the admin note table
type AdminNoteFilters struct {
	Search     string
	University string
	College    string
	Year       int
	Subject    string
	Price      string
}

// AdminList lists every note, published or not
func (s *NoteService) AdminList(ctx context.Context, f AdminNoteFilters, page utils.Page) (NotePage, error) {
	q := s.db.WithContext(ctx).Model(&domain.Note{})
	q = whereAnyContains(q, f.Search, "title", "description", "subject")
	if f.University != "" {
		q = q.Where("university = ?", f.University)
	}
	if f.College != "" {
		q = q.Where("college = ?", f.College)
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	if f.Subject != "" {
		q = whereAnyContains(q, f.Subject, "subject")
	}
	if f.Price != "" {
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return NotePage{}, validationf("invalid price %q", f.Price)
		}
		q = q.Where("price = ?", price)
	}
	return s.page(q, catalogOrder[SortDateDesc], page)
}

func (s *NoteService) page(q *gorm.DB, order string, page utils.Page) (NotePage, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return NotePage{}, fmt.Errorf("count notes: %w", err)
	}
	out := NotePage{Notes: []domain.Note{}, Page: page.Number, PageSize: page.Size, Total: total, TotalPages: page.TotalPages(total)}
	if err := q.Order(order).Offset(page.Offset()).Limit(page.Size).Find(&out.Notes).Error; err != nil {
		return NotePage{}, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

// distinct returns the sorted distinct non-empty values of a column over published notes
func (s *NoteService) distinct(ctx context.Context, key, column string, scope func(*gorm.DB) *gorm.DB) ([]string, error) {
	var cached []string
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		return cached, nil
	}
	var values []string
	q := s.db.WithContext(ctx).Model(&domain.Note{}).Where("is_published = ?", true)
	if scope != nil {
		q = scope(q)
	}
	if err := q.Distinct().Pluck(column, &values).Error; err != nil {
		return nil, fmt.Errorf("list %s values: %w", column, err)
	}
	values = lo.Uniq(lo.Compact(lo.Map(values, func(v string, _ int) string { return strings.TrimSpace(v) })))
	sort.Strings(values)
	_ = utils.SetCache(ctx, s.rdb, key, values, s.settings.CacheTTL)
	return values, nil
}

// Universities lists the universities that have published notes
func (s *NoteService) Universities(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, s.cacheKey(ctx, "universities"), "university", nil)
}

// Colleges lists the colleges of a university that have published notes
func (s *NoteService) Colleges(ctx context.Context, university string) ([]string, error) {
	university = strings.TrimSpace(university)
	if university == "" {
		return nil, validationf("university is required")
	}
	return s.distinct(ctx, s.cacheKey(ctx, "colleges", university), "college", func(q *gorm.DB) *gorm.DB {
		return q.Where("university = ?", university)
	})
}

// Count returns the number of notes
func (s *NoteService) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.Note{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}

// MonthlyGrowth compares notes created this month with the previous month
func (s *NoteService) MonthlyGrowth(ctx context.Context, now time.Time) (Growth, error) {
	cur := monthStart(now)
	prev := cur.AddDate(0, -1, 0)
	var g Growth
	if err := s.db.WithContext(ctx).Model(&domain.Note{}).Where("created_at >= ?", cur).Count(&g.CurrentCount).Error; err != nil {
		return Growth{}, fmt.Errorf("count current month notes: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&domain.Note{}).
		Where("created_at >= ? AND created_at < ?", prev, cur).Count(&g.PreviousCount).Error; err != nil {
		return Growth{}, fmt.Errorf("count previous month notes: %w", err)
	}
	g.GrowthRate = growthRate(decimal.NewFromInt(g.CurrentCount), decimal.NewFromInt(g.PreviousCount))
	return g, nil
}

// DownloadLink is a short-lived URL to a note's PDF
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Download issues a presigned link for the owner, an admin or a buyer and counts the download
func (s *NoteService) Download(ctx context.Context, actor Viewer, id uint) (DownloadLink, error) {
	var note domain.Note
	if err := s.db.WithContext(ctx).First(&note, id).Error; err != nil {
		return DownloadLink{}, notFound(err, "note")
	}
	if note.OwnerID != actor.ID && !actor.Admin {
		owned, err := s.hasPurchased(ctx, actor.ID, id)
		if err != nil {
			return DownloadLink{}, err
		}
		if !owned {
			return DownloadLink{}, ErrNotPurchased
		}
	}
	url, err := s.store.PresignGet(ctx, note.FilePath, s.settings.DownloadURLTTL)
	if err != nil {
		return DownloadLink{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.db.WithContext(ctx).Model(&note).UpdateColumn("downloads", gorm.Expr("downloads + ?", 1)).Error; err != nil {
		logrus.WithFields(logrus.Fields{"note_id": id, "error": err.Error()}).Warn("Download counter update failed")
	} else if err := utils.DeleteCache(ctx, s.rdb, s.cacheKey(ctx, "note", strconv.FormatUint(uint64(id), 10))); err != nil {
		logrus.WithFields(logrus.Fields{"note_id": id, "error": err.Error()}).Warn("Note cache invalidation failed")
	}
	return DownloadLink{URL: url, ExpiresAt: time.Now().UTC().Add(s.settings.DownloadURLTTL)}, nil
}

// PurchasedNote is a note the user bought, with the sale that paid for it
type PurchasedNote struct {
	domain.Note
	SaleID      uint      `json:"sale_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// PurchasedNotes lists the notes a user bought, most recent purchase first
func (s *NoteService) PurchasedNotes(ctx context.Context, userID uint) ([]PurchasedNote, error) {
	var purchases []domain.Purchase
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc").Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	if len(purchases) == 0 {
		return []PurchasedNote{}, nil
	}
	var notes []domain.Note
	ids := lo.Map(purchases, func(p domain.Purchase, _ int) uint { return p.NoteID })
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("load purchased notes: %w", err)
	}
	byID := lo.KeyBy(notes, func(n domain.Note) uint { return n.ID })
	out := make([]PurchasedNote, 0, len(purchases))
	for _, p := range purchases {
		note, ok := byID[p.NoteID]
		if !ok {
			continue
		}
		out = append(out, PurchasedNote{Note: note, SaleID: p.SaleID, PurchasedAt: p.CreatedAt})
	}
	return out, nil
}

// loadNote fetches a note row with a uniform not-found error
func loadNote(ctx context.Context, db *gorm.DB, id uint) (domain.Note, error) {
	var note domain.Note
	if err := db.WithContext(ctx).First(&note, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Note{}, fmt.Errorf("note %w", ErrNotFound)
		}
		return domain.Note{}, fmt.Errorf("load note: %w", err)
	}
	return note, nil
}
