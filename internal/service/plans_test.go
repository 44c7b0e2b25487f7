package service

import (
	"testing"
	"time"

	"ajosave/internal/domain"
	"ajosave/internal/maturity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mysqlDate mimics a DATE column written by go-sql-driver with its default
// UTC location and read back with parseTime.
func mysqlDate(t time.Time) time.Time {
	u := t.In(time.UTC)
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func TestCreate_StartDateKeepsLocalDay(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	eastern := time.FixedZone("EST", -5*3600)
	tests := []struct {
		name string
		now  time.Time
	}{
		{"east of UTC just after midnight", time.Date(2024, 1, 2, 0, 30, 0, 0, lagos)},
		{"west of UTC late evening", time.Date(2024, 1, 2, 23, 30, 0, 0, eastern)},
		{"UTC", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.now = tt.now
			uid := f.user(t, "ada@example.com", domain.KYCNone)
			f.planType(t, "ajo_weekly", 4, "100")

			plan, err := f.plans.Create(f.ctx, uid, "ajo_weekly", dec("100"))
			require.NoError(t, err)
			require.NotNil(t, plan.StartDate)

			stored := mysqlDate(*plan.StartDate)
			assert.True(t, stored.Equal(*plan.StartDate), "stored %s, created %s", stored, plan.StartDate)
			plan.StartDate = &stored
			assert.Equal(t, "2024-01-02", plan.StartDateISO())
		})
	}
}

func TestCreate_MaturityEastOfUTC(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	f := newFixture(t)
	f.now = time.Date(2024, 1, 2, 0, 30, 0, 0, lagos)
	uid := f.user(t, "ada@example.com", domain.KYCNone)
	f.planType(t, "ajo_weekly", 4, "100")
	plan, err := f.plans.Create(f.ctx, uid, "ajo_weekly", dec("100"))
	require.NoError(t, err)
	f.deposit(t, uid, "500")
	_, err = f.wallet.FundPlan(f.ctx, uid, plan.ID, dec("200"))
	require.NoError(t, err)

	f.now = time.Date(2024, 1, 30, 9, 0, 0, 0, lagos)
	stored := mysqlDate(*plan.StartDate)
	m := maturity.Calculate((domain.PlanInstance{StartDate: &stored}).StartDateISO(), 4, f.now)
	require.NotNil(t, m)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, lagos), m.MaturityDate)
	assert.False(t, m.IsMatured)
	assert.Equal(t, 1, m.DaysRemaining)

	_, err = f.wallet.WithdrawPlan(f.ctx, uid, plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotMatured)

	f.now = time.Date(2024, 1, 31, 0, 5, 0, 0, lagos)
	_, err = f.wallet.WithdrawPlan(f.ctx, uid, plan.ID)
	assert.NoError(t, err)
}
