package api

import (
	"ajosave/internal/middleware" // Auth, logging and rate limiting
	"ajosave/internal/realtime"   // Change event hub
	"ajosave/internal/service"    // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// Deps are everything the router wires into handlers.
type Deps struct {
	Wallet         *service.Wallet
	Plans          *service.Plans
	Loans          *service.Loans
	Accounts       *service.Accounts
	Admin          *service.Admin
	Users          middleware.UserLookup   // Role and suspension checks
	Hub            *realtime.Hub           // Nil disables the event streams
	AuthLimiter    *middleware.RateLimiter // Nil disables auth rate limiting
	JWTSecret      string
	TrustedProxies []string
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}

	// Auth routes
	authGroup := r.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(d.AuthLimiter.Middleware())
	}
	authGroup.POST("/register", RegisterHandler(d.Accounts)) // Registration endpoint
	authGroup.POST("/login", LoginHandler(d.Accounts))       // Login endpoint

	r.GET("/plans", ListPlanTypesHandler(d.Plans)) // Public plan catalog

	// Dashboard routes (protected by JWT)
	me := r.Group("/me")
	me.Use(middleware.JWTAuthMiddleware(d.JWTSecret), middleware.ActiveUserMiddleware(d.Users))
	me.GET("", GetProfileHandler(d.Accounts))
	me.PATCH("", UpdateProfileHandler(d.Accounts))
	me.POST("/kyc", SubmitKYCHandler(d.Accounts))
	me.GET("/balance", GetBalanceHandler(d.Wallet))
	me.GET("/transactions", GetTransactionHistoryHandler(d.Wallet))
	me.POST("/deposits", DepositHandler(d.Wallet))
	me.POST("/withdrawals", WithdrawalHandler(d.Wallet))
	me.GET("/plans", ListMyPlansHandler(d.Wallet))
	me.POST("/plans", CreatePlanHandler(d.Plans))
	me.POST("/plans/:id/fund", FundPlanHandler(d.Wallet))
	me.POST("/plans/:id/withdraw", WithdrawPlanHandler(d.Wallet))
	me.GET("/loans", ListMyLoansHandler(d.Loans))
	me.POST("/loans", ApplyLoanHandler(d.Loans))
	me.POST("/loans/:id/repay", RepayLoanHandler(d.Loans))
	me.GET("/notifications", ListNotificationsHandler(d.Accounts))
	me.POST("/notifications/:id/read", MarkNotificationReadHandler(d.Accounts))

	// Admin routes (protected, admin only)
	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuthMiddleware(d.JWTSecret), middleware.AdminOnlyMiddleware(d.Users))
	admin.GET("/users", ListUsersHandler(d.Admin))
	admin.POST("/users/:id/suspend", SuspendUserHandler(d.Admin, true))
	admin.POST("/users/:id/unsuspend", SuspendUserHandler(d.Admin, false))
	admin.GET("/transactions", ListTransactionsHandler(d.Admin))
	admin.GET("/approvals", ApprovalsHandler(d.Admin))
	admin.POST("/kyc/:user_id/approve", DecideKYCHandler(d.Admin, true))
	admin.POST("/kyc/:user_id/reject", DecideKYCHandler(d.Admin, false))
	admin.POST("/loans/:id/approve", DecideLoanHandler(d.Loans, true))
	admin.POST("/loans/:id/reject", DecideLoanHandler(d.Loans, false))
	admin.POST("/withdrawals/:id/approve", DecideWithdrawalHandler(d.Admin, true))
	admin.POST("/withdrawals/:id/reject", DecideWithdrawalHandler(d.Admin, false))
	admin.GET("/plan-types/:code/instances", PlanInstancesHandler(d.Plans))
	admin.GET("/settings", GetSettingsHandler(d.Admin))
	admin.PUT("/settings", PutSettingsHandler(d.Admin))
	admin.POST("/jobs/:name", RunJobHandler(d.Admin))

	if d.Hub != nil {
		me.GET("/events", EventsHandler(d.Hub, false))
		admin.GET("/events", EventsHandler(d.Hub, true))
	}
	return r, nil
}
