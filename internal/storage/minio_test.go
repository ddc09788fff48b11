package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MinioStore {
	t.Helper()
	s, err := NewMinioStore(Options{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    " notes ",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	return s
}

func TestNewMinioStoreRequiresEndpoint(t *testing.T) {
	_, err := NewMinioStore(Options{Bucket: "notes"})
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, "http://localhost:9000/notes/pdfs/1_abc.pdf", s.PublicURL("pdfs/1_abc.pdf"))
}

func TestPresignGetSetsDisposition(t *testing.T) {
	s := newTestStore(t)
	raw, err := s.PresignGet(context.Background(), "pdfs/7_x.pdf", 15*time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/notes/pdfs/7_x.pdf", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.True(t, strings.Contains(u.Query().Get("response-content-disposition"), `filename="7_x.pdf"`))
}

func TestInvalidObjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	assert.ErrorIs(t, s.Put(ctx, "", strings.NewReader("x"), 1, "text/plain"), ErrInvalidObject)
	assert.ErrorIs(t, s.Put(ctx, "k", nil, 1, "text/plain"), ErrInvalidObject)
	_, err := s.PresignGet(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidObject)
	assert.NoError(t, s.Delete(ctx, ""))
}
