package api

import (
	"net/http"

	"notes_marketplace/internal/middleware"
	"notes_marketplace/internal/service"
	"notes_marketplace/internal/utils"

	"github.com/gin-gonic/gin"
)

func ListNotificationsHandler(notifications *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c.Query("page"), c.Query("page_size"))
		out, err := notifications.List(c.Request.Context(), middleware.UserID(c), page, c.Query("unread") == "true")
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func UnreadCountHandler(notifications *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := notifications.UnreadCount(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread": n})
	}
}

func MarkReadHandler(notifications *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := notifications.MarkRead(c.Request.Context(), middleware.UserID(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "is_read": true})
	}
}

func MarkAllReadHandler(notifications *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := notifications.MarkAllRead(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	}
}
