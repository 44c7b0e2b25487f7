package service

import (
	"errors"
	"testing"

	"ajosave/internal/domain"
	"ajosave/internal/realtime"
	"ajosave/internal/rpc"
	"ajosave/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_SearchPagingAndCache(t *testing.T) {
	f := newFixture(t)
	f.user(t, "ada@example.com", domain.KYCNone)
	f.user(t, "bola@example.com", domain.KYCNone)
	f.user(t, "chidi@example.com", domain.KYCNone)

	page, err := f.admin.Users(f.ctx, UserQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.Cached)

	page, err = f.admin.Users(f.ctx, UserQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.True(t, page.Cached)

	page, err = f.admin.Users(f.ctx, UserQuery{Search: "bola", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bola@example.com", page.Items[0].Email)

	// Registering a user drops the cached listings.
	_, err = f.accounts.Register(f.ctx, Registration{Email: "dayo@example.com", Password: "long-enough"})
	require.NoError(t, err)
	page, err = f.admin.Users(f.ctx, UserQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.False(t, page.Cached)
	assert.EqualValues(t, 4, page.Total)
}

func TestSetSuspended_Self(t *testing.T) {
	f := newFixture(t)
	adminID := f.adminUser(t)

	_, err := f.admin.SetSuspended(f.ctx, adminID, adminID, true)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTransactions_Filter(t *testing.T) {
	f := newFixture(t)
	ada := f.user(t, "ada@example.com", domain.KYCNone)
	bola := f.user(t, "bola@example.com", domain.KYCNone)
	f.deposit(t, ada, "100")
	f.deposit(t, bola, "200")
	_, err := f.wallet.RequestWithdrawal(f.ctx, bola, dec("50"))
	require.NoError(t, err)

	all, err := f.admin.Transactions(f.ctx, TxQuery{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)

	mine, err := f.admin.Transactions(f.ctx, TxQuery{Filter: store.TxFilter{UserID: bola}, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.Total)

	pending, err := f.admin.Transactions(f.ctx, TxQuery{Filter: store.TxFilter{Status: domain.StatusPending}, Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, domain.KindWithdrawal, pending.Items[0].Kind)

	approvals, err := f.admin.Approvals(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, approvals.KYC)
	assert.Empty(t, approvals.Loans)
	require.Len(t, approvals.Withdrawals, 1)
	assert.Equal(t, bola, approvals.Withdrawals[0].UserID)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	adminID := f.adminUser(t)

	got, err := f.admin.Settings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", got[domain.SettingLoanInterestRate])

	_, err = f.admin.UpdateSettings(f.ctx, adminID, map[string]string{"colour": "blue"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.admin.UpdateSettings(f.ctx, adminID, map[string]string{domain.SettingDepositCharge: "-1"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err = f.admin.UpdateSettings(f.ctx, adminID, map[string]string{
		domain.SettingDepositCharge:           "10",
		domain.SettingWithdrawalChargePercent: "1.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "10", got[domain.SettingDepositCharge])
	assert.Equal(t, "500000", got[domain.SettingMaxLoanAmount])

	uid := f.user(t, "ada@example.com", domain.KYCNone)
	f.deposit(t, uid, "1010")
	assertDec(t, "1000", f.balance(t, uid))

	tx, err := f.wallet.RequestWithdrawal(f.ctx, uid, dec("200"))
	require.NoError(t, err)
	assertDec(t, "3", tx.ChargeOrZero())
	assertDec(t, "797", f.balance(t, uid))
}

func TestRunJob(t *testing.T) {
	f := newFixture(t)
	adminID := f.adminUser(t)
	uid := f.user(t, "ada@example.com", domain.KYCNone)
	f.deposit(t, uid, "100")
	f.balance(t, uid)
	require.True(t, f.cache.Has(balanceKey(uid)))

	res, err := f.admin.RunJob(f.ctx, adminID, rpc.ApplySavingsInterest)
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.RowsAffected)
	assert.Equal(t, []string{rpc.ApplySavingsInterest}, f.caller.calls)
	assert.False(t, f.cache.Has(balanceKey(uid)))

	ev := f.events.last()
	assert.Equal(t, realtime.AllUsers, ev.UserID)
	assert.Equal(t, "transactions", ev.Table)
}

func TestRunJob_Error(t *testing.T) {
	f := newFixture(t)
	adminID := f.adminUser(t)
	f.caller.err = errors.New("boom")

	_, err := f.admin.RunJob(f.ctx, adminID, rpc.SettleAjoCircleWeek)
	assert.EqualError(t, err, "boom")
	assert.Empty(t, f.events.events)
}

func TestPlanInstances(t *testing.T) {
	f := newFixture(t)
	pt := f.planType(t, "ajo-circle", 4, "100")
	f.planType(t, "retired", 4, "100")
	ada := f.user(t, "ada@example.com", domain.KYCNone)
	bola := f.user(t, "bola@example.com", domain.KYCNone)
	f.deposit(t, ada, "500")
	f.deposit(t, bola, "500")

	p1, err := f.plans.Create(f.ctx, ada, pt.Code, dec("100"))
	require.NoError(t, err)
	p2, err := f.plans.Create(f.ctx, bola, pt.Code, dec("100"))
	require.NoError(t, err)
	_, err = f.wallet.FundPlan(f.ctx, ada, p1.ID, dec("300"))
	require.NoError(t, err)

	_, err = f.plans.Create(f.ctx, ada, pt.Code, dec("99.99"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.plans.Create(f.ctx, ada, "missing", dec("100"))
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.plans.Instances(f.ctx, pt.Code)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, p1.ID, got[0].Plan.ID)
	assertDec(t, "300", got[0].Balance)
	assert.Equal(t, p2.ID, got[1].Plan.ID)
	assertDec(t, "0", got[1].Balance)
	require.NotNil(t, got[0].Maturity)
	assert.Equal(t, 29, got[0].Maturity.DaysRemaining)

	types, err := f.plans.Types(f.ctx)
	require.NoError(t, err)
	assert.Len(t, types, 2)
}
