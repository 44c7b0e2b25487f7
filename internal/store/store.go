// Package store is the gorm-backed persistence layer. It owns every query;
// callers never see *gorm.DB.
package store

import (
	"context"
	"errors"

	"ajosave/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update matched no row
	// because the row moved to another state first.
	ErrConflict = errors.New("state changed concurrently")
)

// TxFilter narrows transaction listings. Zero values mean "any".
type TxFilter struct {
	UserID uint
	PlanID *uint
	Kind   domain.TransactionKind
	Status domain.TransactionStatus
	From   int64 // Inclusive, unix millis
	To     int64 // Inclusive, unix millis
}

// Page is an offset/limit window.
type Page struct {
	Offset int
	Limit  int
}

// Repository is every persistence operation the services need. Store is the
// gorm implementation; storetest.Memory is an in-memory one for tests.
type Repository interface {
	Atomic(ctx context.Context, fn func(tx Repository) error) error

	CreateUser(ctx context.Context, u *domain.User) error
	UserByID(ctx context.Context, id uint) (domain.User, error)
	LockUser(ctx context.Context, id uint) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateUser(ctx context.Context, id uint, fields map[string]any) error
	SetKYCDecision(ctx context.Context, id uint, status string) error
	ListUsers(ctx context.Context, q string, page Page) ([]domain.User, int64, error)
	UsersByKYCStatus(ctx context.Context, status string) ([]domain.User, error)

	CreateTransactions(ctx context.Context, txs ...*domain.Transaction) error
	TransactionByID(ctx context.Context, id uint) (domain.Transaction, error)
	TransactionsForUsers(ctx context.Context, userIDs ...uint) ([]domain.Transaction, error)
	ListTransactions(ctx context.Context, f TxFilter, page Page) ([]domain.Transaction, int64, error)
	SettleTransaction(ctx context.Context, id uint, status domain.TransactionStatus) error

	ListPlanTypes(ctx context.Context, activeOnly bool) ([]domain.PlanType, error)
	PlanTypeByCode(ctx context.Context, code string) (domain.PlanType, error)
	UpsertPlanType(ctx context.Context, pt *domain.PlanType) error
	CreatePlanInstance(ctx context.Context, p *domain.PlanInstance) error
	PlanInstanceByID(ctx context.Context, id uint) (domain.PlanInstance, error)
	PlanInstancesForUser(ctx context.Context, userID uint) ([]domain.PlanInstance, error)
	PlanInstancesByType(ctx context.Context, planTypeID uint) ([]domain.PlanInstance, error)
	SetPlanStatus(ctx context.Context, id uint, from, to string) error

	CreateLoan(ctx context.Context, l *domain.Loan) error
	LoanByID(ctx context.Context, id uint) (domain.Loan, error)
	LoansForUser(ctx context.Context, userID uint) ([]domain.Loan, error)
	LoansByStatus(ctx context.Context, status string) ([]domain.Loan, error)
	DecideLoan(ctx context.Context, id uint, status string, adminID uint) error
	AddRepayment(ctx context.Context, id uint, amount decimal.Decimal, status string) error

	CreateNotification(ctx context.Context, n *domain.Notification) error
	NotificationsForUser(ctx context.Context, userID uint, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uint) error
	Settings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, values map[string]string) error
}

var _ Repository = (*Store)(nil)

// Store implements the persistence operations on top of gorm.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Atomic runs fn inside a database transaction. The Store passed to fn is
// bound to that transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

// expectOne turns a zero-row conditional update into ErrConflict.
func expectOne(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
