package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/service"
	"notes_marketplace/internal/testutil"
	"notes_marketplace/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	db      *gorm.DB
	store   *testutil.FakeStore
	gateway *testutil.FakeGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rdb, _ := testutil.Redis(t)
	s := &testServer{
		t:       t,
		db:      testutil.OpenDB(t),
		store:   testutil.NewFakeStore(),
		gateway: testutil.NewFakeGateway(),
	}
	svc := service.New(service.Dependencies{
		DB:      s.db,
		Redis:   rdb,
		Store:   s.store,
		Gateway: s.gateway,
		Settings: service.Settings{
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
			JWTSecret:       testSecret,
			JWTTTL:          time.Hour,
		},
	})
	r, err := NewRouter(svc, s.db, RouterOptions{JWTSecret: testSecret, MaxUploadBytes: 1 << 20})
	require.NoError(t, err)
	s.router = r
	return s
}

func (s *testServer) token(u domain.User) string {
	s.t.Helper()
	tok, err := utils.GenerateJWT(u.ID, u.Role, testSecret, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// do sends body as JSON; a nil body sends no body at all
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *testServer) admin(email string) domain.User {
	s.t.Helper()
	u := testutil.CreateUser(s.t, s.db, email, "0", 2)
	require.NoError(s.t, s.db.Model(&u).Update("role", domain.RoleAdmin).Error)
	u.Role = domain.RoleAdmin
	return u
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

// multipartBody builds a note form; an empty pdfName omits the file part
func multipartBody(t *testing.T, fields map[string]string, pdfName string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if pdfName != "" {
		fw, err := mw.CreateFormFile("file", pdfName)
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 lecture notes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
