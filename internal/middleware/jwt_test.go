package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notes_marketplace/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
}

func serve(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", JWTAuthMiddleware("secret"), whoAmI)

	valid, err := utils.GenerateJWT(7, "user", "secret", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateJWT(7, "user", "secret", -time.Minute)
	require.NoError(t, err)
	forged, err := utils.GenerateJWT(7, "user", "other-secret", time.Hour)
	require.NoError(t, err)

	w := serve(r, valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())

	for name, tok := range map[string]string{"missing": "", "expired": expired, "forged": forged} {
		assert.Equal(t, http.StatusUnauthorized, serve(r, tok).Code, name)
	}
}

func TestOptionalJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", OptionalJWT("secret"), whoAmI)

	valid, err := utils.GenerateJWT(3, "user", "secret", time.Hour)
	require.NoError(t, err)

	assert.JSONEq(t, `{"user_id":3}`, serve(r, valid).Body.String())
	assert.JSONEq(t, `{"user_id":0}`, serve(r, "").Body.String())
	assert.JSONEq(t, `{"user_id":0}`, serve(r, "garbage").Body.String())
}
