// Package ledger folds transaction rows into balances. Balances are never
// stored; every read recomputes them from the rows the database owns.
package ledger

import (
	"strings"

	"ajosave/internal/domain"

	"github.com/shopspring/decimal"
)

// Scope selects which rows participate in a balance: the general wallet
// (rows with no plan) or a single plan instance.
type Scope struct {
	planID *uint
}

// Wallet is the general-wallet scope.
func Wallet() Scope {
	return Scope{}
}

// Plan is the scope of one plan instance.
func Plan(id uint) Scope {
	return Scope{planID: &id}
}

// IsWallet reports whether s is the general-wallet scope.
func (s Scope) IsWallet() bool {
	return s.planID == nil
}

func (s Scope) matches(planID *uint) bool {
	if s.planID == nil || planID == nil {
		return s.planID == nil && planID == nil
	}
	return *s.planID == *planID
}

// Balance folds txs into the signed balance of scope.
//
// Inflows count once completed, outflows also while pending so that funds
// awaiting approval are already reserved. A completed transfer debits the
// wallet and credits a plan; each side of a transfer is its own row.
func Balance(txs []domain.Transaction, scope Scope) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if !scope.matches(tx.PlanID) {
			continue
		}
		total = total.Add(Effect(tx, scope))
	}
	return total
}

// Effect is the contribution of a single row to scope, ignoring plan matching.
func Effect(tx domain.Transaction, scope Scope) decimal.Decimal {
	amount, charge := tx.Amount, tx.ChargeOrZero()
	switch {
	case isInflow(tx.Kind) && tx.Status == domain.StatusCompleted:
		return amount.Sub(charge)
	case isOutflow(tx.Kind) && (tx.Status == domain.StatusCompleted || tx.Status == domain.StatusPending):
		return amount.Add(charge).Neg()
	case tx.Kind == domain.KindTransfer && tx.Status == domain.StatusCompleted:
		if scope.IsWallet() {
			return amount.Add(charge).Neg()
		}
		return amount.Sub(charge)
	}
	return decimal.Zero
}

func isInflow(k domain.TransactionKind) bool {
	switch k {
	case domain.KindDeposit, domain.KindLoanDisbursement, domain.KindInterest, domain.KindLimitTransfer, domain.KindPayout:
		return true
	}
	return false
}

func isOutflow(k domain.TransactionKind) bool {
	switch k {
	case domain.KindWithdrawal, domain.KindLoanRepayment, domain.KindFee, domain.KindServiceCharge:
		return true
	}
	return false
}

// ParseAmount coerces loosely typed numeric input. It never fails:
// anything that does not parse as a decimal is zero.
func ParseAmount(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case float64:
		return decimal.NewFromFloat(n)
	case float32:
		return decimal.NewFromFloat32(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}
