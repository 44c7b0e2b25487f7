package service

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"ajosave/internal/domain"
	"ajosave/internal/realtime"
	"ajosave/internal/rpc"
	"ajosave/internal/store"

	"github.com/sirupsen/logrus"
)

// ProcedureCaller runs settlement procedures; *rpc.Caller implements it.
type ProcedureCaller interface {
	Call(ctx context.Context, name string, args ...any) (rpc.Result, error)
}

// Admin is the back-office service.
type Admin struct {
	base
	procs ProcedureCaller
}

// NewAdmin creates an Admin service.
func NewAdmin(o Options, procs ProcedureCaller) *Admin {
	return &Admin{base: newBase(o), procs: procs}
}

// UserQuery selects a page of users.
type UserQuery struct {
	Search   string
	Page     int
	PageSize int
}

// Users pages through users.
func (a *Admin) Users(ctx context.Context, q UserQuery) (Paged[domain.User], error) {
	key := fmt.Sprintf("%sq=%s:page=%d:size=%d", adminUsersPrefix, q.Search, q.Page, q.PageSize)
	var cached Paged[domain.User]
	if a.cache != nil {
		if found, err := a.cache.Get(ctx, key, &cached); err == nil && found {
			cached.Cached = true
			return cached, nil
		}
	}
	users, total, err := a.repo.ListUsers(ctx, strings.TrimSpace(q.Search), PageOf(q.Page, q.PageSize))
	if err != nil {
		return Paged[domain.User]{}, fmt.Errorf("listing users: %w", err)
	}
	out := newPaged(users, q.Page, q.PageSize, total)
	if a.cache != nil {
		_ = a.cache.Set(ctx, key, out, a.ttl)
	}
	return out, nil
}

// SetSuspended suspends or reinstates a user. Admins cannot suspend themselves.
func (a *Admin) SetSuspended(ctx context.Context, adminID, userID uint, suspended bool) (domain.User, error) {
	if adminID == userID {
		return domain.User{}, ErrForbidden
	}
	if err := a.repo.UpdateUser(ctx, userID, map[string]any{"suspended": suspended}); err != nil {
		return domain.User{}, err
	}
	logrus.WithFields(logrus.Fields{"admin_id": adminID, "user_id": userID, "suspended": suspended}).Info("User suspension changed")
	a.changed(ctx, "users", realtime.OpUpdate, userID, userID)
	return a.repo.UserByID(ctx, userID)
}

// TxQuery selects a page of transactions across users.
type TxQuery struct {
	Filter   store.TxFilter
	Page     int
	PageSize int
}

// Transactions pages through every transaction.
func (a *Admin) Transactions(ctx context.Context, q TxQuery) (Paged[domain.Transaction], error) {
	f := q.Filter
	key := fmt.Sprintf("%suser=%d:kind=%s:status=%s:from=%d:to=%d:page=%d:size=%d", adminTxPrefix, f.UserID, f.Kind, f.Status, f.From, f.To, q.Page, q.PageSize)
	var cached Paged[domain.Transaction]
	if a.cache != nil {
		if found, err := a.cache.Get(ctx, key, &cached); err == nil && found {
			cached.Cached = true
			return cached, nil
		}
	}
	txs, total, err := a.repo.ListTransactions(ctx, f, PageOf(q.Page, q.PageSize))
	if err != nil {
		return Paged[domain.Transaction]{}, fmt.Errorf("listing transactions: %w", err)
	}
	out := newPaged(txs, q.Page, q.PageSize, total)
	if a.cache != nil {
		_ = a.cache.Set(ctx, key, out, a.ttl)
	}
	return out, nil
}

// Approvals is everything waiting on an admin.
type Approvals struct {
	KYC         []domain.User        `json:"kyc"`
	Loans       []domain.Loan        `json:"loans"`
	Withdrawals []domain.Transaction `json:"withdrawals"`
}

// maxPendingWithdrawals bounds the withdrawals returned in one approvals view.
const maxPendingWithdrawals = 200

// Approvals collects pending KYC submissions, loans and withdrawals.
func (a *Admin) Approvals(ctx context.Context) (Approvals, error) {
	kyc, err := a.repo.UsersByKYCStatus(ctx, domain.KYCSubmitted)
	if err != nil {
		return Approvals{}, fmt.Errorf("listing kyc: %w", err)
	}
	loans, err := a.repo.LoansByStatus(ctx, domain.LoanPending)
	if err != nil {
		return Approvals{}, fmt.Errorf("listing loans: %w", err)
	}
	withdrawals, _, err := a.repo.ListTransactions(ctx,
		store.TxFilter{Kind: domain.KindWithdrawal, Status: domain.StatusPending},
		store.Page{Limit: maxPendingWithdrawals})
	if err != nil {
		return Approvals{}, fmt.Errorf("listing withdrawals: %w", err)
	}
	return Approvals{KYC: nonNil(kyc), Loans: nonNil(loans), Withdrawals: nonNil(withdrawals)}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// DecideKYC approves or rejects a submitted KYC.
func (a *Admin) DecideKYC(ctx context.Context, adminID, userID uint, approve bool) (domain.User, error) {
	status, title := domain.KYCRejected, "Verification rejected"
	if approve {
		status, title = domain.KYCApproved, "Verification approved"
	}
	err := a.repo.Atomic(ctx, func(tx store.Repository) error {
		if err := tx.SetKYCDecision(ctx, userID, status); err != nil {
			return err
		}
		return notify(ctx, tx, userID, title, "Your identity verification has been reviewed.")
	})
	if err != nil {
		return domain.User{}, err
	}
	logrus.WithFields(logrus.Fields{"admin_id": adminID, "user_id": userID, "kyc_status": status}).Info("KYC decided")
	a.changed(ctx, "users", realtime.OpUpdate, userID, userID)
	return a.repo.UserByID(ctx, userID)
}

// DecideWithdrawal completes or fails a pending withdrawal. Failing it
// releases the reserved funds.
func (a *Admin) DecideWithdrawal(ctx context.Context, adminID, txID uint, approve bool) (domain.Transaction, error) {
	status, title := domain.StatusFailed, "Withdrawal declined"
	if approve {
		status, title = domain.StatusCompleted, "Withdrawal completed"
	}
	var t domain.Transaction
	err := a.repo.Atomic(ctx, func(tx store.Repository) error {
		var err error
		if t, err = tx.TransactionByID(ctx, txID); err != nil {
			return err
		}
		if t.Kind != domain.KindWithdrawal || t.PlanID != nil {
			return ErrNotFound
		}
		if err := tx.SettleTransaction(ctx, txID, status); err != nil {
			return err
		}
		t.Status = status
		return notify(ctx, tx, t.UserID, title, fmt.Sprintf("Withdrawal of %s (ref %s).", t.Amount.StringFixed(2), t.Reference))
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	logrus.WithFields(logrus.Fields{"admin_id": adminID, "transaction_id": txID, "status": status}).Info("Withdrawal decided")
	a.changed(ctx, "transactions", realtime.OpUpdate, t.UserID, txID)
	return t, nil
}

// Settings returns the effective settings, defaults included.
func (a *Admin) Settings(ctx context.Context) (map[string]string, error) {
	raw, err := a.repo.Settings(ctx)
	if err != nil {
		return nil, err
	}
	out := maps.Clone(DefaultSettings)
	maps.Copy(out, raw)
	return out, nil
}

// UpdateSettings validates and stores settings.
func (a *Admin) UpdateSettings(ctx context.Context, adminID uint, values map[string]string) (map[string]string, error) {
	if err := validateSettings(values); err != nil {
		return nil, err
	}
	if err := a.repo.PutSettings(ctx, values); err != nil {
		return nil, fmt.Errorf("saving settings: %w", err)
	}
	logrus.WithFields(logrus.Fields{"admin_id": adminID, "settings": values}).Info("Settings updated")
	return a.Settings(ctx)
}

// RunJob invokes a settlement procedure. Procedures can touch any user's
// rows, so every cached read is dropped afterwards.
func (a *Admin) RunJob(ctx context.Context, adminID uint, name string, args ...any) (rpc.Result, error) {
	res, err := a.procs.Call(ctx, name, args...)
	if err != nil {
		return rpc.Result{}, err
	}
	logrus.WithFields(logrus.Fields{"admin_id": adminID, "procedure": name, "rows_affected": res.RowsAffected}).Info("Settlement job ran")
	a.changed(ctx, "transactions", realtime.OpUpdate, realtime.AllUsers, 0)
	return res, nil
}
