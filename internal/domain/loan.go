package domain

import "github.com/shopspring/decimal"

// Loan statuses
const (
	LoanPending   = "pending"
	LoanDisbursed = "disbursed"
	LoanRepaid    = "repaid"
	LoanRejected  = "rejected"
)

// Loan Model
type Loan struct {
	ID             uint            `gorm:"primaryKey" json:"id"`                                      // Primary key
	UserID         uint            `gorm:"index;not null" json:"user_id"`                             // Borrower
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`                 // Principal
	InterestRate   decimal.Decimal `gorm:"type:decimal(6,2);not null" json:"interest_rate"`           // Flat percent over the term
	DurationMonths int             `gorm:"not null" json:"duration_months"`                           // Term
	Status         string          `gorm:"size:16;not null;default:pending;index" json:"status"`      // Lifecycle status
	Repaid         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"repaid"`       // Sum of repayments so far
	DecidedBy      *uint           `json:"decided_by,omitempty"`                                      // Admin who approved or rejected
	CreatedAt      int64           `gorm:"autoCreateTime:milli" json:"created_at"`                    // Timestamp of creation in milliseconds
}

// TotalDue is principal plus flat interest.
func (l Loan) TotalDue() decimal.Decimal {
	interest := l.Amount.Mul(l.InterestRate).Div(decimal.NewFromInt(100))
	return l.Amount.Add(interest).Round(2)
}

// Outstanding is what remains to be repaid, never negative.
func (l Loan) Outstanding() decimal.Decimal {
	left := l.TotalDue().Sub(l.Repaid)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// IsOpen reports whether the loan still blocks a new application.
func (l Loan) IsOpen() bool {
	return l.Status == LoanPending || l.Status == LoanDisbursed
}
