package api

import (
	"net/http"

	"notes_marketplace/internal/middleware"
	"notes_marketplace/internal/service"

	"github.com/gin-gonic/gin"
)

// ReviewRequest rates a purchased note
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

func ListReviewsHandler(reviews *service.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		list, err := reviews.Reviews(c.Request.Context(), id, c.Query("sort"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reviews": list})
	}
}

func AddReviewHandler(reviews *service.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		review, err := reviews.AddReview(c.Request.Context(), middleware.UserID(c), id, req.Rating, req.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"review": review})
	}
}

func HasReviewedHandler(reviews *service.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		done, err := reviews.HasReviewed(c.Request.Context(), middleware.UserID(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reviewed": done})
	}
}

// LikeHandler likes or unlikes a note
func LikeHandler(reviews *service.ReviewService, like bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		op := reviews.Unlike
		if like {
			op = reviews.Like
		}
		if err := op(c.Request.Context(), middleware.UserID(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "liked": like})
	}
}

func LikedNotesHandler(reviews *service.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := reviews.LikedNotes(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": list})
	}
}
