package service

import (
	"context"
	"errors"
	"fmt"

	"ajosave/internal/domain"
	"ajosave/internal/realtime"
	"ajosave/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Loan term bounds in months
const (
	MinLoanMonths = 1
	MaxLoanMonths = 24
)

// Loans handles applications, disbursement and repayment.
type Loans struct {
	base
}

// NewLoans creates a Loans service.
func NewLoans(o Options) *Loans {
	return &Loans{base: newBase(o)}
}

// Apply files a pending loan application.
func (l *Loans) Apply(ctx context.Context, userID uint, amount decimal.Decimal, months int) (domain.Loan, error) {
	if err := validAmount(amount); err != nil {
		return domain.Loan{}, err
	}
	if months < MinLoanMonths || months > MaxLoanMonths {
		return domain.Loan{}, fmt.Errorf("%w: duration must be %d-%d months", ErrInvalidInput, MinLoanMonths, MaxLoanMonths)
	}
	settings, err := loadSettings(ctx, l.repo)
	if err != nil {
		return domain.Loan{}, err
	}
	if amount.GreaterThan(settings.MaxLoanAmount) {
		return domain.Loan{}, fmt.Errorf("%w: maximum loan is %s", ErrInvalidAmount, settings.MaxLoanAmount.StringFixed(2))
	}

	loan := domain.Loan{
		UserID:         userID,
		Amount:         amount,
		InterestRate:   settings.LoanInterestRate,
		DurationMonths: months,
		Status:         domain.LoanPending,
		Repaid:         decimal.Zero,
	}
	err = l.repo.Atomic(ctx, func(tx store.Repository) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.KYCStatus != domain.KYCApproved {
			return ErrKYCRequired
		}
		existing, err := tx.LoansForUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.IsOpen() {
				return ErrLoanOpen
			}
		}
		return tx.CreateLoan(ctx, &loan)
	})
	if err != nil {
		return domain.Loan{}, err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "loan_id": loan.ID, "amount": amount}).Info("Loan application")
	l.changed(ctx, "loans", realtime.OpInsert, userID, loan.ID)
	return loan, nil
}

// Mine lists a user's loans.
func (l *Loans) Mine(ctx context.Context, userID uint) ([]domain.Loan, error) {
	return l.repo.LoansForUser(ctx, userID)
}

// Pending lists loans awaiting a decision.
func (l *Loans) Pending(ctx context.Context) ([]domain.Loan, error) {
	return l.repo.LoansByStatus(ctx, domain.LoanPending)
}

// Repay records a repayment from the wallet. The loan becomes repaid once
// nothing is outstanding.
func (l *Loans) Repay(ctx context.Context, userID, loanID uint, amount decimal.Decimal) (domain.Loan, error) {
	if err := validAmount(amount); err != nil {
		return domain.Loan{}, err
	}
	var loan domain.Loan
	err := l.repo.Atomic(ctx, func(tx store.Repository) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		loan, err = tx.LoanByID(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.UserID != userID {
			return ErrNotFound
		}
		if loan.Status != domain.LoanDisbursed {
			return ErrLoanNotActive
		}
		if amount.GreaterThan(loan.Outstanding()) {
			return fmt.Errorf("%w: outstanding balance is %s", ErrInvalidAmount, loan.Outstanding().StringFixed(2))
		}
		balance, _, err := walletBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		if balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		t := newTx(userID, nil, domain.KindLoanRepayment, domain.StatusCompleted, amount, fmt.Sprintf("Repayment of loan %d", loan.ID))
		t.LoanID = &loan.ID
		if err := tx.CreateTransactions(ctx, t); err != nil {
			return err
		}
		loan.Repaid = loan.Repaid.Add(amount)
		status := domain.LoanDisbursed
		if loan.Outstanding().IsZero() {
			status = domain.LoanRepaid
		}
		if err := tx.AddRepayment(ctx, loan.ID, amount, status); err != nil {
			return err
		}
		loan.Status = status
		if status == domain.LoanRepaid {
			return notify(ctx, tx, userID, "Loan repaid", fmt.Sprintf("Loan %d is fully repaid.", loan.ID))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Loan{}, ErrLoanNotActive
		}
		return domain.Loan{}, err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "loan_id": loanID, "amount": amount, "status": loan.Status}).Info("Loan repayment")
	l.changed(ctx, "loans", realtime.OpUpdate, userID, loanID)
	return loan, nil
}

// Approve disburses a pending loan into the borrower's wallet.
func (l *Loans) Approve(ctx context.Context, adminID, loanID uint) (domain.Loan, error) {
	var loan domain.Loan
	err := l.repo.Atomic(ctx, func(tx store.Repository) error {
		var err error
		if loan, err = tx.LoanByID(ctx, loanID); err != nil {
			return err
		}
		if err := tx.DecideLoan(ctx, loanID, domain.LoanDisbursed, adminID); err != nil {
			return err
		}
		t := newTx(loan.UserID, nil, domain.KindLoanDisbursement, domain.StatusCompleted, loan.Amount, fmt.Sprintf("Disbursement of loan %d", loan.ID))
		t.LoanID = &loan.ID
		if err := tx.CreateTransactions(ctx, t); err != nil {
			return err
		}
		loan.Status = domain.LoanDisbursed
		loan.DecidedBy = &adminID
		return notify(ctx, tx, loan.UserID, "Loan approved", fmt.Sprintf("%s has been paid into your wallet. Total due: %s.", loan.Amount.StringFixed(2), loan.TotalDue().StringFixed(2)))
	})
	if err != nil {
		return domain.Loan{}, err
	}
	logrus.WithFields(logrus.Fields{"admin_id": adminID, "loan_id": loanID, "user_id": loan.UserID, "amount": loan.Amount}).Info("Loan disbursed")
	l.changed(ctx, "loans", realtime.OpUpdate, loan.UserID, loanID)
	return loan, nil
}

// Reject declines a pending loan.
func (l *Loans) Reject(ctx context.Context, adminID, loanID uint) (domain.Loan, error) {
	var loan domain.Loan
	err := l.repo.Atomic(ctx, func(tx store.Repository) error {
		var err error
		if loan, err = tx.LoanByID(ctx, loanID); err != nil {
			return err
		}
		if err := tx.DecideLoan(ctx, loanID, domain.LoanRejected, adminID); err != nil {
			return err
		}
		loan.Status = domain.LoanRejected
		loan.DecidedBy = &adminID
		return notify(ctx, tx, loan.UserID, "Loan declined", fmt.Sprintf("Your application for %s was declined.", loan.Amount.StringFixed(2)))
	})
	if err != nil {
		return domain.Loan{}, err
	}
	logrus.WithFields(logrus.Fields{"admin_id": adminID, "loan_id": loanID}).Info("Loan rejected")
	l.changed(ctx, "loans", realtime.OpUpdate, loan.UserID, loanID)
	return loan, nil
}
