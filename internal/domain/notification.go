package domain

// Notification Model
type Notification struct {
	ID        uint   `gorm:"primaryKey" json:"id"`                   // Primary key
	UserID    uint   `gorm:"index;not null" json:"user_id"`          // Recipient
	Title     string `gorm:"size:191;not null" json:"title"`         // Short headline
	Body      string `gorm:"size:1024" json:"body"`                  // Message text
	Read      bool   `gorm:"column:is_read;not null;default:false" json:"read"` // Whether the user has opened it
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"` // Timestamp of creation in milliseconds
}

// Setting is one admin-editable key/value pair.
type Setting struct {
	Key       string `gorm:"column:setting_key;primaryKey;size:64" json:"key"`
	Value     string `gorm:"size:255;not null" json:"value"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// Setting keys
const (
	SettingDepositCharge           = "deposit_charge"            // Flat charge per deposit
	SettingWithdrawalChargePercent = "withdrawal_charge_percent" // Percent of the withdrawn amount
	SettingLoanInterestRate        = "loan_interest_rate"        // Flat percent applied to new loans
	SettingMaxLoanAmount           = "max_loan_amount"           // Upper bound for a single loan
)
