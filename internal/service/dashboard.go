package service

import (
	"context"
	"time"

	"notes_marketplace/internal/domain"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DashboardService assembles the admin overview
type DashboardService struct {
	db          *gorm.DB
	notes       *NoteService
	sales       *SalesService
	withdrawals *WithdrawalService
}

// NewDashboardService creates the service on top of the reporting services
func NewDashboardService(deps Dependencies, notes *NoteService, sales *SalesService, withdrawals *WithdrawalService) *DashboardService {
	return &DashboardService{db: deps.DB, notes: notes, sales: sales, withdrawals: withdrawals}
}

// Overview is the admin landing page
type Overview struct {
	TotalUsers  int64           `json:"total_users"`
	TotalNotes  int64           `json:"total_notes"`
	NotesGrowth Growth          `json:"notes_growth"`
	Sales       SalesStats      `json:"sales"`
	Withdrawals WithdrawalStats `json:"withdrawals"`
}

// Overview gathers every dashboard figure concurrently. Any failure fails the whole overview.
func (s *DashboardService) Overview(ctx context.Context, now time.Time) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&domain.User{}).Count(&out.TotalUsers).Error
	})
	g.Go(func() (err error) {
		out.TotalNotes, err = s.notes.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.NotesGrowth, err = s.notes.MonthlyGrowth(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		out.Sales, err = s.sales.Statistics(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		out.Withdrawals, err = s.withdrawals.Stats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}
