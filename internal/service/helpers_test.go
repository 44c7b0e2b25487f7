package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ajosave/internal/domain"
	"ajosave/internal/realtime"
	"ajosave/internal/rpc"
	"ajosave/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (r *recorder) Publish(_ context.Context, ev realtime.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) last() realtime.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return realtime.ChangeEvent{}
	}
	return r.events[len(r.events)-1]
}

type fakeCaller struct {
	calls []string
	err   error
}

func (f *fakeCaller) Call(_ context.Context, name string, _ ...any) (rpc.Result, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return rpc.Result{}, f.err
	}
	return rpc.Result{Procedure: name, RowsAffected: 3}, nil
}

type fixture struct {
	ctx    context.Context
	repo   *storetest.Memory
	cache  *storetest.Cache
	events *recorder
	now    time.Time

	wallet   *Wallet
	plans    *Plans
	loans    *Loans
	accounts *Accounts
	admin    *Admin
	caller   *fakeCaller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		repo:   storetest.NewMemory(),
		cache:  storetest.NewCache(),
		events: &recorder{},
		now:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		caller: &fakeCaller{},
	}
	opts := Options{Repo: f.repo, Cache: f.cache, Events: f.events, Now: func() time.Time { return f.now }}
	f.wallet = NewWallet(opts)
	f.plans = NewPlans(opts)
	f.loans = NewLoans(opts)
	f.accounts = NewAccounts(opts, "test-secret").WithBcryptCost(4)
	f.admin = NewAdmin(opts, f.caller)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) user(t *testing.T, email, kyc string) uint {
	t.Helper()
	u := domain.User{Email: email, Password: "x", Role: domain.RoleUser, KYCStatus: kyc}
	require.NoError(t, f.repo.CreateUser(f.ctx, &u))
	return u.ID
}

func (f *fixture) adminUser(t *testing.T) uint {
	t.Helper()
	u := domain.User{Email: "admin@ajosave.ng", Password: "x", Role: domain.RoleAdmin, KYCStatus: domain.KYCApproved}
	require.NoError(t, f.repo.CreateUser(f.ctx, &u))
	return u.ID
}

func (f *fixture) planType(t *testing.T, code string, weeks int, min string) domain.PlanType {
	t.Helper()
	pt := domain.PlanType{
		Code:            code,
		Name:            code,
		Frequency:       domain.FrequencyWeekly,
		DurationWeeks:   weeks,
		MinContribution: dec(min),
		InterestRate:    decimal.Zero,
		Active:          true,
	}
	require.NoError(t, f.repo.UpsertPlanType(f.ctx, &pt))
	return pt
}

func (f *fixture) deposit(t *testing.T, userID uint, amount string) {
	t.Helper()
	_, err := f.wallet.Deposit(f.ctx, userID, dec(amount))
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	snap, _, err := f.wallet.Snapshot(f.ctx, userID)
	require.NoError(t, err)
	return snap.Balance
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
