package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ajosave/internal/domain"
	"ajosave/internal/middleware"
	"ajosave/internal/realtime"
	"ajosave/internal/rpc"
	"ajosave/internal/service"
	"ajosave/internal/store/storetest"
	"ajosave/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type procs struct{ called []string }

func (p *procs) Call(_ context.Context, name string, _ ...any) (rpc.Result, error) {
	if _, ok := rpc.Procedures()[name]; !ok {
		return rpc.Result{}, rpc.ErrUnknownProcedure
	}
	p.called = append(p.called, name)
	return rpc.Result{Procedure: name, RowsAffected: 2}, nil
}

type harness struct {
	router *gin.Engine
	repo   *storetest.Memory
	procs  *procs
	now    time.Time
}

func newHarness(t *testing.T, limiter *middleware.RateLimiter) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	hub := realtime.NewHub(16)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})

	h := &harness{
		repo:  storetest.NewMemory(),
		procs: &procs{},
		now:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	opts := service.Options{
		Repo:   h.repo,
		Cache:  storetest.NewCache(),
		Events: realtime.LocalPublisher{Hub: hub},
		Now:    func() time.Time { return h.now },
	}
	router, err := NewRouter(Deps{
		Wallet:      service.NewWallet(opts),
		Plans:       service.NewPlans(opts),
		Loans:       service.NewLoans(opts),
		Accounts:    service.NewAccounts(opts, secret).WithBcryptCost(4),
		Admin:       service.NewAdmin(opts, h.procs),
		Users:       h.repo,
		Hub:         hub,
		AuthLimiter: limiter,
		JWTSecret:   secret,
	})
	require.NoError(t, err)
	h.router = router
	return h
}

// user creates an account directly and returns a token for it.
func (h *harness) user(t *testing.T, email, role, kyc string) (uint, string) {
	t.Helper()
	u := domain.User{Email: email, Password: "x", Role: role, KYCStatus: kyc}
	require.NoError(t, h.repo.CreateUser(context.Background(), &u))
	tok, err := utils.GenerateJWT(u.ID, role, secret, time.Now())
	require.NoError(t, err)
	return u.ID, tok
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t, nil)
	body := gin.H{"email": "ada@example.com", "full_name": "Ada", "password": "correct-horse"}

	w := h.do(t, http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = h.do(t, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPost, "/auth/register", "", gin.H{"email": "bola@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ada@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["token"])

	w = h.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, w.Body.String())
}

func TestAuthRateLimit(t *testing.T) {
	h := newHarness(t, middleware.NewRateLimiter(1, 1))
	body := gin.H{"email": "ada@example.com", "password": "x"}

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/auth/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(t, http.MethodPost, "/auth/login", "", body).Code)
}

func TestProtectedRoutes(t *testing.T) {
	h := newHarness(t, nil)
	_, tok := h.user(t, "ada@example.com", domain.RoleUser, domain.KYCNone)

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/me/balance", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/admin/users", tok, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/plans", "", nil).Code)
}

func TestDepositAndBalance(t *testing.T) {
	h := newHarness(t, nil)
	_, tok := h.user(t, "ada@example.com", domain.RoleUser, domain.KYCNone)

	w := h.do(t, http.MethodPost, "/me/deposits", tok, gin.H{"amount": "1000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = h.do(t, http.MethodPost, "/me/deposits", tok, gin.H{"amount": 250.5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, "/me/deposits", tok, gin.H{"amount": "lots"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/me/withdrawals", tok, gin.H{"amount": "5000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"insufficient funds"}`, w.Body.String())

	w = h.do(t, http.MethodPost, "/me/withdrawals", tok, gin.H{"amount": "200"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = h.do(t, http.MethodGet, "/me/balance", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "1050.5", got["balance"])
	assert.Equal(t, false, got["cached"])

	w = h.do(t, http.MethodGet, "/me/balance", tok, nil)
	assert.Equal(t, true, decode(t, w)["cached"])
}

func TestTransactionHistory(t *testing.T) {
	h := newHarness(t, nil)
	_, tok := h.user(t, "ada@example.com", domain.RoleUser, domain.KYCNone)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/me/deposits", tok, gin.H{"amount": "10"}).Code)
	}

	w := h.do(t, http.MethodGet, "/me/transactions?page=1&page_size=2", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Len(t, got["items"], 2)
	assert.EqualValues(t, 3, got["total"])
	assert.EqualValues(t, 2, got["total_pages"])

	w = h.do(t, http.MethodGet, "/me/transactions?kind=gift", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(t, http.MethodGet, "/me/transactions?plan_id=x", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	_, tok := h.user(t, "ada@example.com", domain.RoleUser, domain.KYCNone)
	pt := domain.PlanType{Code: "sprint", Name: "Sprint", Frequency: domain.FrequencyWeekly, DurationWeeks: 4, MinContribution: decimal.NewFromInt(100), Active: true}
	require.NoError(t, h.repo.UpsertPlanType(context.Background(), &pt))
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/me/deposits", tok, gin.H{"amount": "1000"}).Code)

	w := h.do(t, http.MethodPost, "/me/plans", tok, gin.H{"plan_type_code": "sprint", "contribution": "50"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/me/plans", tok, gin.H{"plan_type_code": "sprint", "contribution": "100"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	planID := uint(decode(t, w)["id"].(float64))
	path := "/me/plans/" + idStr(planID)

	w = h.do(t, http.MethodPost, path+"/fund", tok, gin.H{"amount": "400"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, path+"/withdraw", tok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"plan has not matured"}`, w.Body.String())

	w = h.do(t, http.MethodGet, "/me/plans", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	plans := decode(t, w)["plans"].([]any)
	require.Len(t, plans, 1)
	plan := plans[0].(map[string]any)
	assert.Equal(t, "400", plan["balance"])
	maturity := plan["maturity"].(map[string]any)
	assert.True(t, strings.HasPrefix(maturity["maturity_date"].(string), "2024-01-30"), maturity["maturity_date"])
	assert.EqualValues(t, 29, maturity["days_remaining"])

	h.now = h.now.AddDate(0, 0, 30)
	w = h.do(t, http.MethodPost, path+"/withdraw", tok, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/me/balance", tok, nil)
	assert.Equal(t, "1000", decode(t, w)["balance"])

	w = h.do(t, http.MethodPost, "/me/plans/abc/fund", tok, gin.H{"amount": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoanFlow(t *testing.T) {
	h := newHarness(t, nil)
	_, adminTok := h.user(t, "admin@example.com", domain.RoleAdmin, domain.KYCApproved)
	uid, tok := h.user(t, "ada@example.com", domain.RoleUser, domain.KYCNone)
	userID := idStr(uid)

	w := h.do(t, http.MethodPost, "/me/loans", tok, gin.H{"amount": "1000", "duration_months": 6})
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.Equal(t, http.StatusAccepted, h.do(t, http.MethodPost, "/me/kyc", tok, gin.H{"id_type": "nin", "id_number": "123"}).Code)
	w = h.do(t, http.MethodGet, "/admin/approvals", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["kyc"], 1)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/admin/kyc/"+userID+"/approve", adminTok, nil).Code)

	w = h.do(t, http.MethodPost, "/me/loans", tok, gin.H{"amount": "1000", "duration_months": 6})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loanID := idStr(uint(decode(t, w)["id"].(float64)))

	w = h.do(t, http.MethodPost, "/me/loans", tok, gin.H{"amount": "10", "duration_months": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/admin/loans/"+loanID+"/approve", adminTok, nil).Code)
	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/admin/loans/"+loanID+"/reject", adminTok, nil).Code)

	w = h.do(t, http.MethodPost, "/me/loans/"+loanID+"/repay", tok, gin.H{"amount": "400"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "700", decode(t, w)["outstanding"])

	w = h.do(t, http.MethodGet, "/me/notifications", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.EqualValues(t, 2, got["unread"])
	first := got["notifications"].([]any)[0].(map[string]any)
	noteID := idStr(uint(first["id"].(float64)))
	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodPost, "/me/notifications/"+noteID+"/read", tok, nil).Code)
	w = h.do(t, http.MethodGet, "/me/notifications", tok, nil)
	assert.EqualValues(t, 1, decode(t, w)["unread"])
}

func TestAdminWithdrawalsAndSettings(t *testing.T) {
	h := newHarness(t, nil)
	_, adminTok := h.user(t, "admin@example.com", domain.RoleAdmin, domain.KYCApproved)
	_, tok := h.user(t, "ada@example.com", domain.RoleUser, domain.KYCNone)

	w := h.do(t, http.MethodPut, "/admin/settings", adminTok, gin.H{domain.SettingDepositCharge: "50"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = h.do(t, http.MethodPut, "/admin/settings", adminTok, gin.H{"nope": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/me/deposits", tok, gin.H{"amount": "1050"}).Code)
	w = h.do(t, http.MethodPost, "/me/withdrawals", tok, gin.H{"amount": "300"})
	require.Equal(t, http.StatusAccepted, w.Code)
	txID := idStr(uint(decode(t, w)["id"].(float64)))

	w = h.do(t, http.MethodGet, "/admin/transactions?status=pending", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
	w = h.do(t, http.MethodGet, "/admin/transactions?from=2024-13-01", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/admin/withdrawals/"+txID+"/reject", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", decode(t, w)["status"])

	w = h.do(t, http.MethodGet, "/me/balance", tok, nil)
	assert.Equal(t, "1000", decode(t, w)["balance"])

	w = h.do(t, http.MethodGet, "/admin/users?q=ada", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
}

func TestRunJob(t *testing.T) {
	h := newHarness(t, nil)
	_, adminTok := h.user(t, "admin@example.com", domain.RoleAdmin, domain.KYCApproved)

	w := h.do(t, http.MethodPost, "/admin/jobs/"+rpc.SettleAjoCircleWeek, adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["rows_affected"])
	assert.Equal(t, []string{rpc.SettleAjoCircleWeek}, h.procs.called)

	w = h.do(t, http.MethodPost, "/admin/jobs/drop_tables", adminTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventStream(t *testing.T) {
	h := newHarness(t, nil)
	_, tok := h.user(t, "ada@example.com", domain.RoleUser, domain.KYCNone)
	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/me/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := bufio.NewScanner(resp.Body)
	next := func(event string) string {
		for lines.Scan() {
			line := lines.Text()
			if !strings.HasPrefix(line, "event:") || strings.TrimSpace(strings.TrimPrefix(line, "event:")) != event {
				continue
			}
			require.True(t, lines.Scan())
			return strings.TrimSpace(strings.TrimPrefix(lines.Text(), "data:"))
		}
		t.Fatalf("stream ended before %s event", event)
		return ""
	}
	next("ready")

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/me/deposits", tok, gin.H{"amount": "10"}).Code)
	var ev realtime.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(next("change")), &ev))
	assert.Equal(t, "transactions", ev.Table)
	assert.Equal(t, realtime.OpInsert, ev.Op)
}

func idStr(id uint) string {
	return fmt.Sprint(id)
}
