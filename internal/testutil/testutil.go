// Package testutil provides throwaway databases, caches and fakes for package tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"notes_marketplace/internal/db"
	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/payment"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenDB returns a migrated in-memory SQLite database private to the test
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(true))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // One connection keeps the in-memory database alive and serializes writers
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(conn))
	return conn
}

// Redis starts a miniredis server and returns a client connected to it
func Redis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// CreateUser inserts a user with password "password123"
func CreateUser(t *testing.T, conn *gorm.DB, email string, balance string, withdrawalTimes int) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := domain.User{
		Email:           email,
		Password:        string(hash),
		FullName:        "User " + email,
		Role:            domain.RoleUser,
		Balance:         decimal.RequireFromString(balance),
		WithdrawalTimes: withdrawalTimes,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// CreateNote inserts a published note owned by owner
func CreateNote(t *testing.T, conn *gorm.DB, owner uint, title, price string) domain.Note {
	t.Helper()
	note := domain.Note{
		OwnerID:     owner,
		Title:       title,
		Price:       decimal.RequireFromString(price),
		University:  "King Saud University",
		College:     "Engineering",
		Subject:     "Math",
		Year:        2024,
		FilePath:    "pdfs/" + title + ".pdf",
		IsPublished: true,
	}
	require.NoError(t, conn.Create(&note).Error)
	return note
}

// FakeStore is an in-memory blob store
type FakeStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	FailPut bool // Makes every Put fail
}

// NewFakeStore creates an empty store
func NewFakeStore() *FakeStore {
	return &FakeStore{Objects: map[string][]byte{}}
}

func (s *FakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if s.FailPut {
		return fmt.Errorf("put %s: storage offline", key)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = b
	return nil
}

func (s *FakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	return nil
}

func (s *FakeStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?expires=%d", key, int(ttl.Seconds())), nil
}

func (s *FakeStore) PublicURL(key string) string {
	return "https://blobs.test/" + key
}

// Has reports whether key is stored
func (s *FakeStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

// Len is the number of stored objects
func (s *FakeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}

// File wraps content as an upload body
func File(content string) io.Reader {
	return bytes.NewBufferString(content)
}

// FakeGateway is an in-memory invoice API
type FakeGateway struct {
	mu        sync.Mutex
	Invoices  map[string]payment.Invoice
	Requests  []payment.InvoiceRequest
	FailCalls bool // Makes every call fail like an unreachable gateway
	next      int
}

// NewFakeGateway creates a gateway with no invoices
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Invoices: map[string]payment.Invoice{}}
}

func (g *FakeGateway) CreateInvoice(_ context.Context, req payment.InvoiceRequest) (payment.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCalls {
		return payment.Invoice{}, payment.ErrGateway
	}
	g.next++
	inv := payment.Invoice{
		ID:          fmt.Sprintf("inv_%d", g.next),
		Status:      payment.InvoiceInitiated,
		Amount:      payment.ToMinorUnits(req.Amount),
		Currency:    req.Currency,
		Description: req.Description,
		URL:         fmt.Sprintf("https://pay.test/inv_%d", g.next),
		Metadata:    req.Metadata,
	}
	g.Invoices[inv.ID] = inv
	g.Requests = append(g.Requests, req)
	return inv, nil
}

func (g *FakeGateway) FetchInvoice(_ context.Context, id string) (payment.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCalls {
		return payment.Invoice{}, payment.ErrGateway
	}
	inv, ok := g.Invoices[id]
	if !ok {
		return payment.Invoice{}, fmt.Errorf("%w: invoice %s not found", payment.ErrGateway, id)
	}
	return inv, nil
}

// SetStatus changes an invoice the way a customer's payment would
func (g *FakeGateway) SetStatus(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	inv := g.Invoices[id]
	inv.Status = status
	g.Invoices[id] = inv
}
