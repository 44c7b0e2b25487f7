package domain

import "github.com/shopspring/decimal"

// TransactionKind classifies a money movement.
type TransactionKind string

const (
	KindDeposit          TransactionKind = "deposit"
	KindWithdrawal       TransactionKind = "withdrawal"
	KindLoanDisbursement TransactionKind = "loan_disbursement"
	KindLoanRepayment    TransactionKind = "loan_repayment"
	KindInterest         TransactionKind = "interest"
	KindTransfer         TransactionKind = "transfer"
	KindFee              TransactionKind = "fee"
	KindServiceCharge    TransactionKind = "service_charge"
	KindLimitTransfer    TransactionKind = "limit_transfer"
	KindPayout           TransactionKind = "payout"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction Model
type Transaction struct {
	ID          uint                `gorm:"primaryKey" json:"id"`                               // Primary key
	UserID      uint                `gorm:"index;not null" json:"user_id"`                      // Owner of the money
	PlanID      *uint               `gorm:"index" json:"plan_id"`                               // Plan instance, nil for the general wallet
	LoanID      *uint               `gorm:"index" json:"loan_id,omitempty"`                     // Loan this row settles, if any
	Kind        TransactionKind     `gorm:"type:varchar(32);index;not null" json:"kind"`        // Transaction kind
	Status      TransactionStatus   `gorm:"type:varchar(16);index;not null" json:"status"`      // Lifecycle status
	Amount      decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"amount"`          // Amount of the transaction
	Charge      decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"charge"`                   // Optional charge on top of the amount
	Reference   string              `gorm:"size:64;uniqueIndex" json:"reference"`               // External reference
	Description string              `gorm:"size:255" json:"description,omitempty"`              // Free text
	CreatedAt   int64               `gorm:"autoCreateTime:milli;index" json:"created_at"`       // Timestamp of creation in milliseconds
}

// ChargeOrZero returns the charge, treating a missing one as zero.
func (t Transaction) ChargeOrZero() decimal.Decimal {
	if !t.Charge.Valid {
		return decimal.Zero
	}
	return t.Charge.Decimal
}

// Valid reports whether k is one of the known kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindLoanDisbursement, KindLoanRepayment, KindInterest,
		KindTransfer, KindFee, KindServiceCharge, KindLimitTransfer, KindPayout:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusFailed
}
