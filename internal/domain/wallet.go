package domain

import (
	"ajosave/internal/maturity"

	"github.com/shopspring/decimal"
)

// PlanBalance is the folded balance of one plan instance.
type PlanBalance struct {
	Plan     PlanInstance       `json:"plan"`     // The plan instance
	Balance  decimal.Decimal    `json:"balance"`  // Folded balance
	Maturity *maturity.Maturity `json:"maturity"` // Nil when the plan has no start date
}

// Wallet is a read-derived snapshot of a user's money. It is never persisted.
type Wallet struct {
	UserID  uint            `json:"user_id"` // Owner
	Balance decimal.Decimal `json:"balance"` // General wallet balance
	Plans   []PlanBalance   `json:"plans"`   // Per-plan balances
}
