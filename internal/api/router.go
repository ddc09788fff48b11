package api

import (
	"notes_marketplace/internal/middleware" // Auth and logging middlewares
	"notes_marketplace/internal/service"    // Business logic

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// RouterOptions are the HTTP settings of the router
type RouterOptions struct {
	JWTSecret      string   // Token signing secret
	MaxUploadBytes int64    // Largest accepted file, also caps upload bodies
	TrustedProxies []string // Proxies allowed to set client IP headers
}

// NewRouter wires every route to its handler
func NewRouter(svc *service.Services, db *gorm.DB, opts RouterOptions) (*gin.Engine, error) {
	RegisterValidators() // Custom binding tags

	r := gin.New()                                    // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger()) // Panic recovery and request logs
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}
	if opts.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = opts.MaxUploadBytes
	}

	api := r.Group("/api")

	// Auth routes
	api.POST("/auth/register", RegisterHandler(svc.Users)) // Registration endpoint
	api.POST("/auth/login", LoginHandler(svc.Users))       // Login endpoint

	// Gateway webhook, authenticated by its shared token
	api.POST("/payments/callback", PaymentCallbackHandler(svc.Purchases))

	// Public catalog, the caller is identified when a token is sent
	public := api.Group("", middleware.OptionalJWT(opts.JWTSecret))
	public.GET("/notes", SearchNotesHandler(svc.Notes))
	public.GET("/notes/:id", GetNoteHandler(svc.Notes, svc.Users))
	public.GET("/notes/:id/reviews", ListReviewsHandler(svc.Reviews))
	public.GET("/catalog/universities", UniversitiesHandler(svc.Notes))
	public.GET("/catalog/colleges", CollegesHandler(svc.Notes))
	public.GET("/sellers/:id", SellerProfileHandler(svc.Users))

	// Authenticated routes
	auth := api.Group("", middleware.JWTAuthMiddleware(opts.JWTSecret))
	auth.GET("/me", MeHandler(svc.Users))
	auth.PATCH("/me", UpdateMeHandler(svc.Users))
	auth.POST("/me/password", ChangePasswordHandler(svc.Users))
	auth.GET("/me/purchases", PurchasedNotesHandler(svc.Notes))
	auth.GET("/me/likes", LikedNotesHandler(svc.Reviews))
	auth.GET("/me/sales", MySalesHandler(svc.Sales))
	auth.GET("/me/orders", MyOrdersHandler(svc.Sales))
	auth.GET("/me/withdrawals", WithdrawalHistoryHandler(svc.Withdrawals))
	auth.POST("/me/withdrawals", CreateWithdrawalHandler(svc.Withdrawals))
	auth.GET("/me/notifications", ListNotificationsHandler(svc.Notifications))
	auth.GET("/me/notifications/unread", UnreadCountHandler(svc.Notifications))
	auth.POST("/me/notifications/:id/read", MarkReadHandler(svc.Notifications))
	auth.POST("/me/notifications/read-all", MarkAllReadHandler(svc.Notifications))

	var bodyLimit int64 // Zero leaves uploads uncapped
	if opts.MaxUploadBytes > 0 {
		bodyLimit = 2*opts.MaxUploadBytes + 1<<20 // PDF, cover and form fields
	}
	uploadLimit := middleware.BodyLimit(bodyLimit)
	auth.POST("/notes", uploadLimit, CreateNoteHandler(svc.Notes))
	auth.PUT("/notes/:id", uploadLimit, UpdateNoteHandler(svc.Notes))
	auth.DELETE("/notes/:id", DeleteNoteHandler(svc.Notes, svc.Users))
	auth.POST("/notes/:id/publish", PublishNoteHandler(svc.Notes, true))
	auth.POST("/notes/:id/unpublish", PublishNoteHandler(svc.Notes, false))
	auth.GET("/notes/:id/download", DownloadNoteHandler(svc.Notes, svc.Users))
	auth.GET("/notes/:id/sales", NoteSalesHandler(svc.Sales, svc.Users))
	auth.POST("/notes/:id/reviews", AddReviewHandler(svc.Reviews))
	auth.GET("/notes/:id/reviewed", HasReviewedHandler(svc.Reviews))
	auth.POST("/notes/:id/like", LikeHandler(svc.Reviews, true))
	auth.DELETE("/notes/:id/like", LikeHandler(svc.Reviews, false))
	auth.GET("/dashboard/notes", SellerNotesHandler(svc.Notes))

	auth.POST("/checkout", CheckoutHandler(svc.Purchases))
	auth.POST("/checkout/confirm", ConfirmCheckoutHandler(svc.Purchases))
	auth.GET("/sales/:id", GetSaleHandler(svc.Sales, svc.Users))

	// Admin routes (protected, admin only)
	admin := api.Group("/admin", middleware.JWTAuthMiddleware(opts.JWTSecret), middleware.AdminOnlyMiddleware(db))
	admin.GET("/overview", OverviewHandler(svc.Dashboard))
	admin.GET("/notes", AdminNotesHandler(svc.Notes))
	admin.GET("/users", SearchUsersHandler(svc.Users))
	admin.POST("/users/:id/reset-withdrawals", ResetWithdrawalsHandler(svc.Users))
	admin.GET("/sales", ListSalesHandler(svc.Sales))
	admin.GET("/sales/stats", SalesStatsHandler(svc.Sales))
	admin.PATCH("/sales/:id/status", UpdateSaleStatusHandler(svc.Sales))
	admin.GET("/withdrawals", ListWithdrawalsHandler(svc.Withdrawals))
	admin.GET("/withdrawals/stats", WithdrawalStatsHandler(svc.Withdrawals))
	admin.GET("/withdrawals/:id", GetWithdrawalHandler(svc.Withdrawals))
	admin.POST("/withdrawals/:id/accept", WithdrawalActionHandler(svc.Withdrawals.Accept))
	admin.POST("/withdrawals/:id/reject", WithdrawalActionHandler(svc.Withdrawals.Reject))
	admin.POST("/withdrawals/:id/routing", RoutingDetailsHandler(svc.Withdrawals))
	admin.PATCH("/withdrawals/:id/notes", WithdrawalActionHandler(svc.Withdrawals.UpdateNotes))
	admin.DELETE("/withdrawals/:id", DeleteWithdrawalHandler(svc.Withdrawals))

	return r, nil
}
