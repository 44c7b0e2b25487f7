package api

import (
	"errors"   // Empty body detection
	"io"       // EOF on empty bodies
	"net/http" // HTTP status codes
	"strconv"  // Timestamp parsing
	"time"     // Date filters

	"ajosave/internal/domain"  // Domain models
	"ajosave/internal/service" // Admin services
	"ajosave/internal/store"   // Transaction filters

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListUsersHandler returns a page of users, optionally filtered by q
func ListUsersHandler(admin *service.Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c)
		res, err := admin.Users(c.Request.Context(), service.UserQuery{
			Search:   c.Query("q"),
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// SuspendUserHandler suspends or reinstates a user
func SuspendUserHandler(admin *service.Admin, suspended bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		userID, ok := idParam(c, "id")
		if !ok {
			return
		}
		user, err := admin.SetSuspended(c.Request.Context(), s.UserID, userID, suspended)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// timeParam reads a unix-millis or YYYY-MM-DD query parameter. endOfDay moves
// a bare date to its last millisecond.
func timeParam(c *gin.Context, name string, endOfDay bool) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Millisecond)
	}
	return day.UnixMilli(), true
}

// ListTransactionsHandler returns a page of transactions across users
func ListTransactionsHandler(admin *service.Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := optionalUint(c, "user_id")
		if !ok {
			return
		}
		from, ok := timeParam(c, "from", false)
		if !ok {
			return
		}
		to, ok := timeParam(c, "to", true)
		if !ok {
			return
		}
		filter := store.TxFilter{
			Kind:   domain.TransactionKind(c.Query("kind")),
			Status: domain.TransactionStatus(c.Query("status")),
			From:   from,
			To:     to,
		}
		if userID != nil {
			filter.UserID = *userID
		}
		if filter.Kind != "" && !filter.Kind.Valid() {
			badRequest(c, "Invalid kind")
			return
		}
		if filter.Status != "" && !filter.Status.Valid() {
			badRequest(c, "Invalid status")
			return
		}
		page, pageSize := pageParams(c)
		res, err := admin.Transactions(c.Request.Context(), service.TxQuery{Filter: filter, Page: page, PageSize: pageSize})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// ApprovalsHandler returns everything waiting on an admin decision
func ApprovalsHandler(admin *service.Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := admin.Approvals(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// DecideKYCHandler approves or rejects a KYC submission
func DecideKYCHandler(admin *service.Admin, approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		userID, ok := idParam(c, "user_id")
		if !ok {
			return
		}
		user, err := admin.DecideKYC(c.Request.Context(), s.UserID, userID, approve)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// DecideLoanHandler disburses or rejects a pending loan
func DecideLoanHandler(loans *service.Loans, approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		loanID, ok := idParam(c, "id")
		if !ok {
			return
		}
		decide := loans.Reject
		if approve {
			decide = loans.Approve
		}
		loan, err := decide(c.Request.Context(), s.UserID, loanID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, loan)
	}
}

// DecideWithdrawalHandler completes or fails a pending withdrawal
func DecideWithdrawalHandler(admin *service.Admin, approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		txID, ok := idParam(c, "id")
		if !ok {
			return
		}
		tx, err := admin.DecideWithdrawal(c.Request.Context(), s.UserID, txID, approve)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tx)
	}
}

// PlanInstancesHandler lists every instance of a plan type with balances
func PlanInstancesHandler(plans *service.Plans) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := plans.Instances(c.Request.Context(), c.Param("code"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"plans": list})
	}
}

// GetSettingsHandler returns the effective settings
func GetSettingsHandler(admin *service.Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := admin.Settings(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})
	}
}

// PutSettingsHandler stores key/value settings
func PutSettingsHandler(admin *service.Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		var req map[string]string
		if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
			badRequest(c, "Invalid request")
			return
		}
		settings, err := admin.UpdateSettings(c.Request.Context(), s.UserID, req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})
	}
}

// JobRequest optionally carries procedure arguments
type JobRequest struct {
	Args []any `json:"args"` // Positional CALL arguments
}

// RunJobHandler runs a settlement procedure by name
func RunJobHandler(admin *service.Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		var req JobRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "Invalid request")
			return
		}
		res, err := admin.RunJob(c.Request.Context(), s.UserID, c.Param("name"), req.Args...)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"procedure":     res.Procedure,               // Procedure name
			"rows_affected": res.RowsAffected,            // Rows touched
			"duration_ms":   res.Duration.Milliseconds(), // Wall time
		})
	}
}
