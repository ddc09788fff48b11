package service

import (
	"context"
	"fmt"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// notify inserts a notification using tx, so it commits or rolls back with the caller's change
func notify(tx *gorm.DB, userID uint, typ, title, body string) error {
	n := domain.Notification{UserID: userID, Type: typ, Title: title, Body: body}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// notifyBestEffort inserts a notification outside any transaction and only logs failures
func notifyBestEffort(ctx context.Context, db *gorm.DB, userID uint, typ, title, body string) {
	if err := notify(db.WithContext(ctx), userID, typ, title, body); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"type":    typ,
			"error":   err.Error(),
		}).Warn("Notification insert failed")
	}
}

// NotificationService reads and acknowledges a user's notifications
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates the service
func NewNotificationService(deps Dependencies) *NotificationService {
	return &NotificationService{db: deps.DB}
}

// NotificationPage is one page of a user's notifications
type NotificationPage struct {
	Notifications []domain.Notification `json:"notifications"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	Total         int64                 `json:"total"`
	TotalPages    int                   `json:"total_pages"`
}

// List returns the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID uint, page utils.Page, unreadOnly bool) (NotificationPage, error) {
	q := s.db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return NotificationPage{}, fmt.Errorf("count notifications: %w", err)
	}
	out := NotificationPage{Page: page.Number, PageSize: page.Size, Total: total, TotalPages: page.TotalPages(total)}
	if err := q.Order("created_at desc, id desc").Offset(page.Offset()).Limit(page.Size).Find(&out.Notifications).Error; err != nil {
		return NotificationPage{}, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// UnreadCount returns how many notifications the user has not read
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	var n domain.Notification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return notFound(err, "notification")
	}
	if n.Read {
		return nil
	}
	return s.db.WithContext(ctx).Model(&n).Update("is_read", true).Error
}

// MarkAllRead marks every unread notification of the user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
