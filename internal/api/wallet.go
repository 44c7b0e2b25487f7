package api

import (
	"net/http" // HTTP status codes

	"ajosave/internal/domain"  // Domain models
	"ajosave/internal/ledger"  // Amount coercion
	"ajosave/internal/service" // Wallet service

	"github.com/gin-gonic/gin" // Gin web framework
)

// AmountRequest carries an amount as a JSON number or numeric string.
// Anything unparseable becomes zero and is rejected by the service.
type AmountRequest struct {
	Amount any `json:"amount" binding:"required"` // Amount in naira
}

func bindAmount(c *gin.Context) (AmountRequest, bool) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return req, false
	}
	return req, true
}

// GetBalanceHandler returns the wallet and per-plan balances
func GetBalanceHandler(wallet *service.Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		snap, cached, err := wallet.Snapshot(c.Request.Context(), s.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id": snap.UserID,  // Owner
			"balance": snap.Balance, // General wallet balance
			"plans":   snap.Plans,   // Per-plan balances with maturity
			"cached":  cached,       // Whether the snapshot came from the cache
		})
	}
}

// GetTransactionHistoryHandler returns the user's transactions, newest first
func GetTransactionHistoryHandler(wallet *service.Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		planID, ok := optionalUint(c, "plan_id")
		if !ok {
			return
		}
		kind := domain.TransactionKind(c.Query("kind"))
		if kind != "" && !kind.Valid() {
			badRequest(c, "Invalid kind")
			return
		}
		status := domain.TransactionStatus(c.Query("status"))
		if status != "" && !status.Valid() {
			badRequest(c, "Invalid status")
			return
		}
		page, pageSize := pageParams(c)
		res, err := wallet.History(c.Request.Context(), s.UserID, service.HistoryQuery{
			Kind:     kind,
			Status:   status,
			PlanID:   planID,
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

// DepositHandler records a completed deposit into the wallet
func DepositHandler(wallet *service.Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		req, ok := bindAmount(c)
		if !ok {
			return
		}
		tx, err := wallet.Deposit(c.Request.Context(), s.UserID, ledger.ParseAmount(req.Amount))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, tx)
	}
}

// WithdrawalHandler files a pending withdrawal for admin approval
func WithdrawalHandler(wallet *service.Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		req, ok := bindAmount(c)
		if !ok {
			return
		}
		tx, err := wallet.RequestWithdrawal(c.Request.Context(), s.UserID, ledger.ParseAmount(req.Amount))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, tx)
	}
}

// FundPlanHandler moves money from the wallet into one of the user's plans
func FundPlanHandler(wallet *service.Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		planID, ok := idParam(c, "id")
		if !ok {
			return
		}
		req, ok := bindAmount(c)
		if !ok {
			return
		}
		txs, err := wallet.FundPlan(c.Request.Context(), s.UserID, planID, ledger.ParseAmount(req.Amount))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"transactions": txs})
	}
}

// WithdrawPlanHandler pays a matured plan out to the wallet
func WithdrawPlanHandler(wallet *service.Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		planID, ok := idParam(c, "id")
		if !ok {
			return
		}
		txs, err := wallet.WithdrawPlan(c.Request.Context(), s.UserID, planID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"transactions": txs})
	}
}
