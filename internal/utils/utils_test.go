package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Size: 10}, ParsePage("", ""))
	assert.Equal(t, Page{Number: 3, Size: 25}, ParsePage("3", "25"))
	assert.Equal(t, Page{Number: 1, Size: 10}, ParsePage("-2", "500"))
	assert.Equal(t, Page{Number: 1, Size: 10}, ParsePage("abc", "0"))

	p := Page{Number: 3, Size: 20}
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(20))
	assert.Equal(t, 2, p.TotalPages(21))
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "admin", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT(42, "user", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)
}

func TestCacheGenerations(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	assert.Equal(t, "0", Generation(ctx, rdb, "catalog"))
	key := "catalog:" + Generation(ctx, rdb, "catalog") + ":list"
	require.NoError(t, SetCache(ctx, rdb, key, map[string]int{"a": 1}, time.Minute))

	var got map[string]int
	found, err := GetCache(ctx, rdb, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, got["a"])

	mr.FastForward(2 * time.Minute)
	found, err = GetCache(ctx, rdb, key, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, BumpGeneration(ctx, rdb, "catalog"))
	assert.Equal(t, "1", Generation(ctx, rdb, "catalog"))

	require.NoError(t, SetCache(ctx, rdb, "k", 1, time.Minute))
	require.NoError(t, DeleteCache(ctx, rdb, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestCacheNilClient(t *testing.T) {
	ctx := context.Background()
	var dest string
	found, err := GetCache(ctx, nil, "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetCache(ctx, nil, "k", "v", time.Minute))
	assert.NoError(t, BumpGeneration(ctx, nil, "ns"))
	assert.Equal(t, "0", Generation(ctx, nil, "ns"))
}
