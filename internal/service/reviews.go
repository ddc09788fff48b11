package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Review sort orders
const (
	ReviewsLatest  = "latest"
	ReviewsOldest  = "oldest"
	ReviewsHighest = "highest"
	ReviewsLowest  = "lowest"
)

var reviewOrder = map[string]string{
	ReviewsLatest:  "created_at desc, id desc",
	ReviewsOldest:  "created_at asc, id asc",
	ReviewsHighest: "rating desc, created_at desc",
	ReviewsLowest:  "rating asc, created_at desc",
}

const maxCommentLen = 2000

// ReviewService handles ratings and the liked-notes list
type ReviewService struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewReviewService creates the service
func NewReviewService(deps Dependencies) *ReviewService {
	return &ReviewService{db: deps.DB, rdb: deps.Redis}
}

// ReviewView is a review with its author's public name
type ReviewView struct {
	domain.Review
	Author domain.PublicUser `json:"author"`
}

// AddReview creates or replaces the user's review of a note they bought
func (s *ReviewService) AddReview(ctx context.Context, userID, noteID uint, rating int, comment string) (domain.Review, error) {
	if rating < 1 || rating > 5 {
		return domain.Review{}, validationf("rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLen {
		return domain.Review{}, validationf("comment is too long")
	}
	note, err := loadNote(ctx, s.db, noteID)
	if err != nil {
		return domain.Review{}, err
	}
	if note.OwnerID == userID {
		return domain.Review{}, fmt.Errorf("%w: owners cannot review their own note", ErrForbidden)
	}
	var bought int64
	if err := s.db.WithContext(ctx).Model(&domain.Purchase{}).
		Where("note_id = ? AND user_id = ?", noteID, userID).Count(&bought).Error; err != nil {
		return domain.Review{}, fmt.Errorf("check purchase: %w", err)
	}
	if bought == 0 {
		return domain.Review{}, ErrNotPurchased
	}

	review := domain.Review{NoteID: noteID, UserID: userID, Rating: rating, Comment: comment}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One review per user and note, a second submission replaces the first
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "note_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
		}).Create(&review).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id = ? AND user_id = ?", noteID, userID).First(&review).Error; err != nil {
			return err
		}
		return notify(tx, note.OwnerID, domain.NotifyReview, "New review",
			fmt.Sprintf("Your note %q received a %d star review", note.Title, rating))
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("save review: %w", err)
	}
	if err := utils.BumpGeneration(ctx, s.rdb, catalogNamespace); err != nil {
		logrus.WithError(err).Warn("Catalog cache invalidation failed")
	}
	return review, nil
}

// HasReviewed reports whether the user already reviewed the note
func (s *ReviewService) HasReviewed(ctx context.Context, userID, noteID uint) (bool, error) {
	var review domain.Review
	err := s.db.WithContext(ctx).Where("note_id = ? AND user_id = ?", noteID, userID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load review: %w", err)
	}
	return true, nil
}

// Reviews lists a note's reviews in the requested order, latest first by default
func (s *ReviewService) Reviews(ctx context.Context, noteID uint, sort string) ([]ReviewView, error) {
	order, ok := reviewOrder[sort]
	if !ok {
		order = reviewOrder[ReviewsLatest]
	}
	var reviews []domain.Review
	if err := s.db.WithContext(ctx).Where("note_id = ?", noteID).Order(order).Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if len(reviews) == 0 {
		return []ReviewView{}, nil
	}
	var users []domain.User
	ids := lo.Uniq(lo.Map(reviews, func(r domain.Review, _ int) uint { return r.UserID }))
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load review authors: %w", err)
	}
	authors := lo.KeyBy(users, func(u domain.User) uint { return u.ID })
	return lo.Map(reviews, func(r domain.Review, _ int) ReviewView {
		return ReviewView{Review: r, Author: authors[r.UserID].Public()}
	}), nil
}

// Like adds a published note to the user's liked list. Liking twice is a no-op.
func (s *ReviewService) Like(ctx context.Context, userID, noteID uint) error {
	note, err := loadNote(ctx, s.db, noteID)
	if err != nil {
		return err
	}
	if !note.IsPublished && note.OwnerID != userID {
		return fmt.Errorf("note %w", ErrNotFound)
	}
	like := domain.Like{NoteID: noteID, UserID: userID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
		return fmt.Errorf("like note: %w", err)
	}
	return nil
}

// Unlike removes a note from the user's liked list
func (s *ReviewService) Unlike(ctx context.Context, userID, noteID uint) error {
	if err := s.db.WithContext(ctx).Where("note_id = ? AND user_id = ?", noteID, userID).Delete(&domain.Like{}).Error; err != nil {
		return fmt.Errorf("unlike note: %w", err)
	}
	return nil
}

// LikedNotes lists the published notes the user liked, most recently liked first
func (s *ReviewService) LikedNotes(ctx context.Context, userID uint) ([]domain.Note, error) {
	var notes []domain.Note
	err := s.db.WithContext(ctx).
		Joins("JOIN likes ON likes.note_id = notes.id").
		Where("likes.user_id = ? AND notes.is_published = ?", userID, true).
		Order("likes.created_at desc, notes.id desc").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("list liked notes: %w", err)
	}
	return notes, nil
}
