package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Reporting clock

	"notes_marketplace/internal/domain"  // Domain models
	"notes_marketplace/internal/service" // Business logic
	"notes_marketplace/internal/utils"   // Pagination

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/samber/lo"     // Slice helpers
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID              uint   `json:"id"`               // User ID
	Email           string `json:"email"`            // Login email
	FullName        string `json:"full_name"`        // Display name
	Role            string `json:"role"`             // User role
	Balance         string `json:"balance"`          // Seller balance, fixed two decimals
	WithdrawalTimes int    `json:"withdrawal_times"` // Remaining withdrawal requests
}

// toUserAdminResponse maps a user to the admin view
func toUserAdminResponse(u domain.User) UserAdminResponse {
	return UserAdminResponse{
		ID:              u.ID,                     // User ID
		Email:           u.Email,                  // Login email
		FullName:        u.FullName,               // Display name
		Role:            u.Role,                   // User role
		Balance:         u.Balance.StringFixed(2), // Seller balance
		WithdrawalTimes: u.WithdrawalTimes,        // Remaining requests
	}
}

// OverviewHandler returns the admin dashboard counters
func OverviewHandler(dashboard *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := dashboard.Overview(c.Request.Context(), time.Now().UTC())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// AdminNotesHandler lists every note with optional filtering
func AdminNotesHandler(notes *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, _ := strconv.Atoi(c.Query("year")) // Zero disables the filter
		filters := service.AdminNoteFilters{
			Search:     c.Query("search"),     // Title, description or subject
			University: c.Query("university"), // Exact university
			College:    c.Query("college"),    // Exact college
			Year:       year,                  // Study year
			Subject:    c.Query("subject"),    // Exact subject
			Price:      c.Query("price"),      // free or paid
		}
		page := utils.ParsePage(c.Query("page"), c.Query("page_size")) // Pagination
		out, err := notes.AdminList(c.Request.Context(), filters, page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out) // Return the response
	}
}

// SearchUsersHandler finds users by name
func SearchUsersHandler(users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit")) // Service applies the default
		list, err := users.Search(c.Request.Context(), c.Query("q"), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := lo.Map(list, func(u domain.User, _ int) UserAdminResponse { return toUserAdminResponse(u) })
		c.JSON(http.StatusOK, gin.H{"users": resp})
	}
}

// ResetWithdrawalsHandler restores a user's withdrawal allowance
func ResetWithdrawalsHandler(users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		user, err := users.ResetWithdrawalTimes(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": toUserAdminResponse(user)})
	}
}
