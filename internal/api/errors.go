package api

import (
	"errors"   // Sentinel matching
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing

	"notes_marketplace/internal/middleware" // Auth context helpers
	"notes_marketplace/internal/service"    // Business errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// statusFor maps a service error to its HTTP status
var statusFor = []struct {
	err    error
	status int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrOwnNote, http.StatusBadRequest},
	{service.ErrInsufficientBalance, http.StatusBadRequest},
	{service.ErrNoWithdrawalsLeft, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotPurchased, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrAlreadyPurchased, http.StatusConflict},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrPaymentGateway, http.StatusBadGateway},
	{service.ErrStorage, http.StatusBadGateway},
}

// respondError writes the error body for err and logs unexpected failures
func respondError(c *gin.Context, err error) {
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				logrus.WithFields(logrus.Fields{"path": c.FullPath(), "error": err.Error()}).Error("Upstream failure")
			}
			c.JSON(m.status, gin.H{"error": err.Error()})
			return
		}
	}
	_ = c.Error(err) // Picked up by the request logger
	logrus.WithFields(logrus.Fields{"path": c.FullPath(), "error": err.Error()}).Error("Unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// pathID parses a numeric path parameter, writing a 400 when it is not one
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// viewer identifies the caller for visibility checks. The role is read from the
// database so a demoted admin loses access immediately.
func viewer(c *gin.Context, users *service.UserService) service.Viewer {
	v := service.Viewer{ID: middleware.UserID(c), Admin: middleware.IsAdmin(c)}
	if v.ID == 0 || v.Admin {
		return v
	}
	if u, err := users.Get(c.Request.Context(), v.ID); err == nil {
		v.Admin = u.IsAdmin()
	}
	return v
}
