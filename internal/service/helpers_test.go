package service

import (
	"testing"
	"time"

	"notes_marketplace/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
)

type testEnv struct {
	deps    Dependencies
	svc     *Services
	store   *testutil.FakeStore
	gateway *testutil.FakeGateway
	mr      *miniredis.Miniredis
}

func testSettings() Settings {
	return Settings{
		PlatformFeeRate: decimal.RequireFromString("0.15"),
		EditionTax:      decimal.RequireFromString("2"),
		MinWithdrawal:   decimal.RequireFromString("3"),
		WithdrawalTimes: 2,
		Currency:        "SAR",
		WebhookToken:    "whsec",
		PublicBaseURL:   "https://api.test",
		FrontendURL:     "https://web.test",
		DefaultCoverURL: "https://web.test/default-cover.png",
		MaxUploadBytes:  1 << 20,
		CacheTTL:        time.Minute,
		DownloadURLTTL:  15 * time.Minute,
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	rdb, mr := testutil.Redis(t)
	env := &testEnv{
		store:   testutil.NewFakeStore(),
		gateway: testutil.NewFakeGateway(),
		mr:      mr,
	}
	env.deps = Dependencies{
		DB:       testutil.OpenDB(t),
		Redis:    rdb,
		Store:    env.store,
		Gateway:  env.gateway,
		Settings: testSettings(),
	}
	env.svc = New(env.deps)
	return env
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
