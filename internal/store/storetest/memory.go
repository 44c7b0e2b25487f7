// Package storetest provides an in-memory store.Repository for tests.
package storetest

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"ajosave/internal/domain"
	"ajosave/internal/store"

	"github.com/shopspring/decimal"
)

type data struct {
	users         map[uint]domain.User
	txs           map[uint]domain.Transaction
	planTypes     map[uint]domain.PlanType
	plans         map[uint]domain.PlanInstance
	loans         map[uint]domain.Loan
	notifications map[uint]domain.Notification
	settings      map[string]string
	nextID        uint
}

func (d *data) clone() *data {
	return &data{
		users:         maps.Clone(d.users),
		txs:           maps.Clone(d.txs),
		planTypes:     maps.Clone(d.planTypes),
		plans:         maps.Clone(d.plans),
		loans:         maps.Clone(d.loans),
		notifications: maps.Clone(d.notifications),
		settings:      maps.Clone(d.settings),
		nextID:        d.nextID,
	}
}

// Memory is a map-backed store.Repository. Atomic blocks run against a copy
// that replaces the live data only when the block succeeds. Every other call
// waits for a running block, so no write lands on data about to be replaced.
type Memory struct {
	txMu sync.Mutex // Held for a whole Atomic block
	mu   sync.Mutex
	d    *data
}

var _ store.Repository = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{d: &data{
		users:         map[uint]domain.User{},
		txs:           map[uint]domain.Transaction{},
		planTypes:     map[uint]domain.PlanType{},
		plans:         map[uint]domain.PlanInstance{},
		loans:         map[uint]domain.Loan{},
		notifications: map[uint]domain.Notification{},
		settings:      map[string]string{},
	}}
}

func (m *Memory) lock() func() {
	m.txMu.Lock()
	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		m.txMu.Unlock()
	}
}

func (m *Memory) id() uint {
	m.d.nextID++
	return m.d.nextID
}

func nowMilli() int64 {
	return time.Now().UnixMilli()
}

func page[T any](rows []T, p store.Page) []T {
	if p.Offset >= len(rows) {
		return nil
	}
	end := len(rows)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return rows[p.Offset:end]
}

// Atomic implements store.Repository.
func (m *Memory) Atomic(ctx context.Context, fn func(tx store.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	tx := &Memory{d: m.d.clone()}
	m.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	m.d = tx.d
	m.mu.Unlock()
	return nil
}

// CreateUser implements store.Repository.
func (m *Memory) CreateUser(_ context.Context, u *domain.User) error {
	defer m.lock()()
	for _, existing := range m.d.users {
		if existing.Email == u.Email {
			return store.ErrConflict
		}
	}
	u.ID = m.id()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.KYCStatus == "" {
		u.KYCStatus = domain.KYCNone
	}
	u.CreatedAt = nowMilli()
	m.d.users[u.ID] = *u
	return nil
}

// UserByID implements store.Repository.
func (m *Memory) UserByID(_ context.Context, id uint) (domain.User, error) {
	defer m.lock()()
	u, ok := m.d.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

// LockUser implements store.Repository. Atomic blocks are already serialized.
func (m *Memory) LockUser(ctx context.Context, id uint) (domain.User, error) {
	return m.UserByID(ctx, id)
}

// UserByEmail implements store.Repository.
func (m *Memory) UserByEmail(_ context.Context, email string) (domain.User, error) {
	defer m.lock()()
	for _, u := range m.d.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

// UpdateUser implements store.Repository for the columns the services touch.
func (m *Memory) UpdateUser(_ context.Context, id uint, fields map[string]any) error {
	defer m.lock()()
	u, ok := m.d.users[id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "full_name":
			u.FullName = v.(string)
		case "phone":
			u.Phone = v.(string)
		case "role":
			u.Role = v.(string)
		case "kyc_status":
			u.KYCStatus = v.(string)
		case "kyc_id_type":
			u.KYCIDType = v.(string)
		case "kyc_id_number":
			u.KYCIDNumber = v.(string)
		case "suspended":
			u.Suspended = v.(bool)
		}
	}
	m.d.users[id] = u
	return nil
}

// SetKYCDecision implements store.Repository.
func (m *Memory) SetKYCDecision(_ context.Context, id uint, status string) error {
	defer m.lock()()
	u, ok := m.d.users[id]
	if !ok || u.KYCStatus != domain.KYCSubmitted {
		return store.ErrConflict
	}
	u.KYCStatus = status
	m.d.users[id] = u
	return nil
}

// ListUsers implements store.Repository.
func (m *Memory) ListUsers(_ context.Context, q string, p store.Page) ([]domain.User, int64, error) {
	defer m.lock()()
	var out []domain.User
	for _, u := range m.d.users {
		if q == "" || strings.Contains(u.Email, q) || strings.Contains(u.FullName, q) || strings.Contains(u.Phone, q) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, p), int64(len(out)), nil
}

// UsersByKYCStatus implements store.Repository.
func (m *Memory) UsersByKYCStatus(_ context.Context, status string) ([]domain.User, error) {
	defer m.lock()()
	var out []domain.User
	for _, u := range m.d.users {
		if u.KYCStatus == status {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateTransactions implements store.Repository.
func (m *Memory) CreateTransactions(_ context.Context, txs ...*domain.Transaction) error {
	defer m.lock()()
	for _, tx := range txs {
		tx.ID = m.id()
		if tx.CreatedAt == 0 {
			tx.CreatedAt = nowMilli()
		}
		m.d.txs[tx.ID] = *tx
	}
	return nil
}

// TransactionByID implements store.Repository.
func (m *Memory) TransactionByID(_ context.Context, id uint) (domain.Transaction, error) {
	defer m.lock()()
	tx, ok := m.d.txs[id]
	if !ok {
		return domain.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

// TransactionsForUsers implements store.Repository.
func (m *Memory) TransactionsForUsers(_ context.Context, userIDs ...uint) ([]domain.Transaction, error) {
	defer m.lock()()
	want := map[uint]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []domain.Transaction
	for _, tx := range m.d.txs {
		if want[tx.UserID] {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListTransactions implements store.Repository.
func (m *Memory) ListTransactions(_ context.Context, f store.TxFilter, p store.Page) ([]domain.Transaction, int64, error) {
	defer m.lock()()
	var out []domain.Transaction
	for _, tx := range m.d.txs {
		switch {
		case f.UserID != 0 && tx.UserID != f.UserID:
		case f.PlanID != nil && (tx.PlanID == nil || *tx.PlanID != *f.PlanID):
		case f.Kind != "" && tx.Kind != f.Kind:
		case f.Status != "" && tx.Status != f.Status:
		case f.From != 0 && tx.CreatedAt < f.From:
		case f.To != 0 && tx.CreatedAt > f.To:
		default:
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return page(out, p), int64(len(out)), nil
}

// SettleTransaction implements store.Repository.
func (m *Memory) SettleTransaction(_ context.Context, id uint, status domain.TransactionStatus) error {
	defer m.lock()()
	tx, ok := m.d.txs[id]
	if !ok || tx.Status != domain.StatusPending {
		return store.ErrConflict
	}
	tx.Status = status
	m.d.txs[id] = tx
	return nil
}

// ListPlanTypes implements store.Repository.
func (m *Memory) ListPlanTypes(_ context.Context, activeOnly bool) ([]domain.PlanType, error) {
	defer m.lock()()
	var out []domain.PlanType
	for _, pt := range m.d.planTypes {
		if !activeOnly || pt.Active {
			out = append(out, pt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// PlanTypeByCode implements store.Repository.
func (m *Memory) PlanTypeByCode(_ context.Context, code string) (domain.PlanType, error) {
	defer m.lock()()
	for _, pt := range m.d.planTypes {
		if pt.Code == code {
			return pt, nil
		}
	}
	return domain.PlanType{}, store.ErrNotFound
}

// UpsertPlanType implements store.Repository.
func (m *Memory) UpsertPlanType(_ context.Context, pt *domain.PlanType) error {
	defer m.lock()()
	for id, existing := range m.d.planTypes {
		if existing.Code == pt.Code {
			pt.ID = id
			m.d.planTypes[id] = *pt
			return nil
		}
	}
	pt.ID = m.id()
	m.d.planTypes[pt.ID] = *pt
	return nil
}

// CreatePlanInstance implements store.Repository.
func (m *Memory) CreatePlanInstance(_ context.Context, p *domain.PlanInstance) error {
	defer m.lock()()
	p.ID = m.id()
	if p.Status == "" {
		p.Status = domain.PlanActive
	}
	p.CreatedAt = nowMilli()
	stored := *p
	stored.PlanType = domain.PlanType{}
	m.d.plans[p.ID] = stored
	return nil
}

func (m *Memory) withType(p domain.PlanInstance) domain.PlanInstance {
	p.PlanType = m.d.planTypes[p.PlanTypeID]
	return p
}

// PlanInstanceByID implements store.Repository.
func (m *Memory) PlanInstanceByID(_ context.Context, id uint) (domain.PlanInstance, error) {
	defer m.lock()()
	p, ok := m.d.plans[id]
	if !ok {
		return domain.PlanInstance{}, store.ErrNotFound
	}
	return m.withType(p), nil
}

func (m *Memory) plansWhere(keep func(domain.PlanInstance) bool) []domain.PlanInstance {
	var out []domain.PlanInstance
	for _, p := range m.d.plans {
		if keep(p) {
			out = append(out, m.withType(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PlanInstancesForUser implements store.Repository.
func (m *Memory) PlanInstancesForUser(_ context.Context, userID uint) ([]domain.PlanInstance, error) {
	defer m.lock()()
	return m.plansWhere(func(p domain.PlanInstance) bool { return p.UserID == userID }), nil
}

// PlanInstancesByType implements store.Repository.
func (m *Memory) PlanInstancesByType(_ context.Context, planTypeID uint) ([]domain.PlanInstance, error) {
	defer m.lock()()
	return m.plansWhere(func(p domain.PlanInstance) bool { return p.PlanTypeID == planTypeID }), nil
}

// SetPlanStatus implements store.Repository.
func (m *Memory) SetPlanStatus(_ context.Context, id uint, from, to string) error {
	defer m.lock()()
	p, ok := m.d.plans[id]
	if !ok || p.Status != from {
		return store.ErrConflict
	}
	p.Status = to
	m.d.plans[id] = p
	return nil
}

// CreateLoan implements store.Repository.
func (m *Memory) CreateLoan(_ context.Context, l *domain.Loan) error {
	defer m.lock()()
	l.ID = m.id()
	if l.Status == "" {
		l.Status = domain.LoanPending
	}
	l.CreatedAt = nowMilli()
	m.d.loans[l.ID] = *l
	return nil
}

// LoanByID implements store.Repository.
func (m *Memory) LoanByID(_ context.Context, id uint) (domain.Loan, error) {
	defer m.lock()()
	l, ok := m.d.loans[id]
	if !ok {
		return domain.Loan{}, store.ErrNotFound
	}
	return l, nil
}

// LoansForUser implements store.Repository.
func (m *Memory) LoansForUser(_ context.Context, userID uint) ([]domain.Loan, error) {
	defer m.lock()()
	var out []domain.Loan
	for _, l := range m.d.loans {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// LoansByStatus implements store.Repository.
func (m *Memory) LoansByStatus(_ context.Context, status string) ([]domain.Loan, error) {
	defer m.lock()()
	var out []domain.Loan
	for _, l := range m.d.loans {
		if l.Status == status {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DecideLoan implements store.Repository.
func (m *Memory) DecideLoan(_ context.Context, id uint, status string, adminID uint) error {
	defer m.lock()()
	l, ok := m.d.loans[id]
	if !ok || l.Status != domain.LoanPending {
		return store.ErrConflict
	}
	l.Status = status
	l.DecidedBy = &adminID
	m.d.loans[id] = l
	return nil
}

// AddRepayment implements store.Repository.
func (m *Memory) AddRepayment(_ context.Context, id uint, amount decimal.Decimal, status string) error {
	defer m.lock()()
	l, ok := m.d.loans[id]
	if !ok || l.Status != domain.LoanDisbursed {
		return store.ErrConflict
	}
	l.Repaid = l.Repaid.Add(amount)
	l.Status = status
	m.d.loans[id] = l
	return nil
}

// CreateNotification implements store.Repository.
func (m *Memory) CreateNotification(_ context.Context, n *domain.Notification) error {
	defer m.lock()()
	n.ID = m.id()
	n.CreatedAt = nowMilli()
	m.d.notifications[n.ID] = *n
	return nil
}

// NotificationsForUser implements store.Repository.
func (m *Memory) NotificationsForUser(_ context.Context, userID uint, limit int) ([]domain.Notification, error) {
	defer m.lock()()
	var out []domain.Notification
	for _, n := range m.d.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, store.Page{Limit: limit}), nil
}

// MarkNotificationRead implements store.Repository.
func (m *Memory) MarkNotificationRead(_ context.Context, id, userID uint) error {
	defer m.lock()()
	n, ok := m.d.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	n.Read = true
	m.d.notifications[id] = n
	return nil
}

// Settings implements store.Repository.
func (m *Memory) Settings(_ context.Context) (map[string]string, error) {
	defer m.lock()()
	return maps.Clone(m.d.settings), nil
}

// PutSettings implements store.Repository.
func (m *Memory) PutSettings(_ context.Context, values map[string]string) error {
	defer m.lock()()
	maps.Copy(m.d.settings, values)
	return nil
}
