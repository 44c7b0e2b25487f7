package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ajosave/internal/domain"
	"ajosave/internal/realtime"
	"ajosave/internal/rpc"
	"ajosave/internal/service"
	"ajosave/internal/store"
	"ajosave/internal/store/storetest"
)

type fakeProcs struct {
	name string
	args []any
}

func (f *fakeProcs) Call(_ context.Context, name string, args ...any) (rpc.Result, error) {
	if _, ok := rpc.Procedures()[name]; !ok {
		return rpc.Result{}, rpc.ErrUnknownProcedure
	}
	f.name, f.args = name, args
	return rpc.Result{Procedure: name, RowsAffected: 4, Duration: 12 * time.Millisecond}, nil
}

type events struct{ got []realtime.ChangeEvent }

func (e *events) Publish(_ context.Context, ev realtime.ChangeEvent) error {
	e.got = append(e.got, ev)
	return nil
}

type testEnv struct {
	*Env
	repo   *storetest.Memory
	procs  *fakeProcs
	events *events
}

func newTestEnv() *testEnv {
	te := &testEnv{repo: storetest.NewMemory(), procs: &fakeProcs{}, events: &events{}}
	te.Env = &Env{
		Now:    func() time.Time { return time.Date(2024, 1, 27, 9, 0, 0, 0, time.UTC) },
		Repo:   func() (store.Repository, error) { return te.repo, nil },
		Procs:  func() (service.ProcedureCaller, error) { return te.procs, nil },
		Events: func() (realtime.Publisher, error) { return te.events, nil },
	}
	return te
}

func run(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(env)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestJobsList(t *testing.T) {
	out, err := run(t, newTestEnv().Env, "jobs", "list")
	require.NoError(t, err)
	for _, name := range rpc.Names() {
		assert.Contains(t, out, name)
	}
}

func TestJobsRun(t *testing.T) {
	te := newTestEnv()

	out, err := run(t, te.Env, "jobs", "run", rpc.SettleAjoCircleMonth, "--as-of", "2024-02-01", "extra")
	require.NoError(t, err)
	assert.Contains(t, out, "settle_ajo_circle_month: 4 rows affected")
	assert.Equal(t, rpc.SettleAjoCircleMonth, te.procs.name)
	assert.Equal(t, []any{"2024-02-01", "extra"}, te.procs.args)
	require.Len(t, te.events.got, 1)
	assert.Equal(t, realtime.AllUsers, te.events.got[0].UserID)
}

func TestJobsRun_Errors(t *testing.T) {
	te := newTestEnv()

	_, err := run(t, te.Env, "jobs", "run", "drop_everything")
	assert.ErrorIs(t, err, rpc.ErrUnknownProcedure)

	_, err = run(t, te.Env, "jobs", "run", rpc.SettleAjoCircleWeek, "--as-of", "01/02/2024")
	assert.Error(t, err)

	_, err = run(t, te.Env, "jobs", "run")
	assert.Error(t, err)
}

func TestJobsRun_WithoutEvents(t *testing.T) {
	te := newTestEnv()
	te.Events = func() (realtime.Publisher, error) { return nil, errors.New("redis down") }

	_, err := run(t, te.Env, "jobs", "run", rpc.TriggerSprintAutoSave)
	require.NoError(t, err)
	assert.Equal(t, rpc.TriggerSprintAutoSave, te.procs.name)
}

func seedPlan(t *testing.T, te *testEnv) (uint, uint) {
	t.Helper()
	ctx := context.Background()
	u := domain.User{Email: "ada@example.com", Role: domain.RoleUser}
	require.NoError(t, te.repo.CreateUser(ctx, &u))
	pt := domain.PlanType{Code: "sprint", Name: "Sprint", Frequency: domain.FrequencyDaily, DurationWeeks: 4, Active: true}
	require.NoError(t, te.repo.UpsertPlanType(ctx, &pt))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := domain.PlanInstance{UserID: u.ID, PlanTypeID: pt.ID, StartDate: &start, DurationWeeks: 4, Status: domain.PlanActive}
	require.NoError(t, te.repo.CreatePlanInstance(ctx, &p))
	planID := p.ID
	require.NoError(t, te.repo.CreateTransactions(ctx,
		&domain.Transaction{UserID: u.ID, Kind: domain.KindDeposit, Status: domain.StatusCompleted, Amount: decimal.NewFromInt(1000), Reference: "a"},
		&domain.Transaction{UserID: u.ID, Kind: domain.KindTransfer, Status: domain.StatusCompleted, Amount: decimal.NewFromInt(300), Reference: "b"},
		&domain.Transaction{UserID: u.ID, PlanID: &planID, Kind: domain.KindTransfer, Status: domain.StatusCompleted, Amount: decimal.NewFromInt(300), Reference: "c"},
	))
	return u.ID, planID
}

func TestBalance(t *testing.T) {
	te := newTestEnv()
	userID, _ := seedPlan(t, te)

	out, err := run(t, te.Env, "balance", idStr(userID))
	require.NoError(t, err)
	assert.Contains(t, out, "700.00")
	assert.Contains(t, out, "300.00")
	assert.Contains(t, out, "due in 3 days")

	out, err = run(t, te.Env, "balance", idStr(userID), "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"balance": "700"`)

	_, err = run(t, te.Env, "balance", "me")
	assert.Error(t, err)
}

func TestMaturityCalc(t *testing.T) {
	te := newTestEnv()

	out, err := run(t, te.Env, "maturity", "calc", "2024-01-01", "4", "--as-of", "2024-01-30")
	require.NoError(t, err)
	assert.Contains(t, out, "maturity date:  2024-01-30")
	assert.Contains(t, out, "matured:        true")

	_, err = run(t, te.Env, "maturity", "calc", "not-a-date", "4")
	assert.Error(t, err)
}

func TestMaturityReport(t *testing.T) {
	te := newTestEnv()
	_, planID := seedPlan(t, te)

	out, err := run(t, te.Env, "maturity", "report")
	require.NoError(t, err)
	assert.Contains(t, out, "due soon")

	out, err = run(t, te.Env, "maturity", "report", "--as-of", "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"), out)

	out, err = run(t, te.Env, "maturity", "report", "--as-of", "2024-01-10", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "20 days left")
	assert.Contains(t, out, idStr(planID))
}

func idStr(id uint) string {
	return decimal.NewFromInt(int64(id)).String()
}
