package service

import (
	"context"
	"testing"
	"time"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/testutil"
	"notes_marketplace/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := env.deps.DB
	user := testutil.CreateUser(t, conn, "user@test.com", "0", 2)
	other := testutil.CreateUser(t, conn, "other@test.com", "0", 2)

	for i := 0; i < 3; i++ {
		require.NoError(t, notify(conn, user.ID, domain.NotifySale, "Sale", "body"))
	}
	notifyBestEffort(ctx, conn, other.ID, domain.NotifyNote, "Note", "body")

	unread, err := env.svc.Notifications.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	page, err := env.svc.Notifications.List(ctx, user.ID, utils.Page{Number: 1, Size: 2}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Notifications, 2)

	newest := page.Notifications[0]
	require.NoError(t, env.svc.Notifications.MarkRead(ctx, user.ID, newest.ID))
	require.NoError(t, env.svc.Notifications.MarkRead(ctx, user.ID, newest.ID), "marking twice is fine")
	assert.ErrorIs(t, env.svc.Notifications.MarkRead(ctx, other.ID, newest.ID), ErrNotFound)

	page, err = env.svc.Notifications.List(ctx, user.ID, utils.Page{Number: 1, Size: 10}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	n, err := env.svc.Notifications.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	unread, err = env.svc.Notifications.UnreadCount(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread, "other users are untouched")
}

func TestDashboardOverview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := env.deps.DB
	seller := testutil.CreateUser(t, conn, "seller@test.com", "100", 2)
	buyer := testutil.CreateUser(t, conn, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, conn, seller.ID, "Calculus", "10")
	testutil.CreateNote(t, conn, seller.ID, "Physics", "10")

	_, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	_, err = env.svc.Withdrawals.Create(ctx, seller.ID, validWithdrawal("10"))
	require.NoError(t, err)

	overview, err := env.svc.Dashboard.Overview(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.TotalUsers)
	assert.Equal(t, int64(2), overview.TotalNotes)
	assert.Equal(t, int64(2), overview.NotesGrowth.CurrentCount)
	assert.Equal(t, int64(1), overview.Sales.PendingCount)
	assert.Equal(t, int64(1), overview.Withdrawals.Pending)
}
