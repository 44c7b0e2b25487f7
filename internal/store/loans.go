package store

import (
	"context"

	"ajosave/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateLoan inserts a loan application.
func (s *Store) CreateLoan(ctx context.Context, l *domain.Loan) error {
	return s.conn(ctx).Create(l).Error
}

// LoanByID fetches a loan.
func (s *Store) LoanByID(ctx context.Context, id uint) (domain.Loan, error) {
	var l domain.Loan
	err := s.conn(ctx).First(&l, id).Error
	return l, translate(err)
}

// LoansForUser lists a user's loans, newest first.
func (s *Store) LoansForUser(ctx context.Context, userID uint) ([]domain.Loan, error) {
	var loans []domain.Loan
	err := s.conn(ctx).Where("user_id = ?", userID).Order("id desc").Find(&loans).Error
	return loans, err
}

// LoansByStatus lists loans in a status, oldest first.
func (s *Store) LoansByStatus(ctx context.Context, status string) ([]domain.Loan, error) {
	var loans []domain.Loan
	err := s.conn(ctx).Where("status = ?", status).Order("id").Find(&loans).Error
	return loans, err
}

// DecideLoan moves a pending loan to status and records the deciding admin.
func (s *Store) DecideLoan(ctx context.Context, id uint, status string, adminID uint) error {
	return expectOne(s.conn(ctx).Model(&domain.Loan{}).
		Where("id = ? AND status = ?", id, domain.LoanPending).
		Updates(map[string]any{"status": status, "decided_by": adminID}))
}

// AddRepayment adds amount to a disbursed loan's repaid total and sets its
// status. The total is incremented in SQL, never overwritten.
func (s *Store) AddRepayment(ctx context.Context, id uint, amount decimal.Decimal, status string) error {
	return expectOne(s.conn(ctx).Model(&domain.Loan{}).
		Where("id = ? AND status = ?", id, domain.LoanDisbursed).
		Updates(map[string]any{"repaid": gorm.Expr("repaid + ?", amount), "status": status}))
}
