package service

import (
	"context"
	"fmt"
	"maps"

	"ajosave/internal/domain"
	"ajosave/internal/store"

	"github.com/shopspring/decimal"
)

// Settings are the typed admin-editable knobs.
type Settings struct {
	DepositCharge           decimal.Decimal `json:"deposit_charge"`
	WithdrawalChargePercent decimal.Decimal `json:"withdrawal_charge_percent"`
	LoanInterestRate        decimal.Decimal `json:"loan_interest_rate"`
	MaxLoanAmount           decimal.Decimal `json:"max_loan_amount"`
}

// DefaultSettings apply to keys that were never set.
var DefaultSettings = map[string]string{
	domain.SettingDepositCharge:           "0",
	domain.SettingWithdrawalChargePercent: "0",
	domain.SettingLoanInterestRate:        "10",
	domain.SettingMaxLoanAmount:           "500000",
}

func loadSettings(ctx context.Context, repo store.Repository) (Settings, error) {
	raw, err := repo.Settings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	merged := maps.Clone(DefaultSettings)
	maps.Copy(merged, raw)

	get := func(key string) decimal.Decimal {
		d, err := decimal.NewFromString(merged[key])
		if err != nil {
			d = decimal.RequireFromString(DefaultSettings[key])
		}
		return d
	}
	return Settings{
		DepositCharge:           get(domain.SettingDepositCharge),
		WithdrawalChargePercent: get(domain.SettingWithdrawalChargePercent),
		LoanInterestRate:        get(domain.SettingLoanInterestRate),
		MaxLoanAmount:           get(domain.SettingMaxLoanAmount),
	}, nil
}

// WithdrawalCharge is the charge on a withdrawal of amount.
func (s Settings) WithdrawalCharge(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.WithdrawalChargePercent).Div(decimal.NewFromInt(100)).Round(2)
}

// validateSettings accepts known keys with non-negative decimal values.
func validateSettings(values map[string]string) error {
	for k, v := range values {
		if _, ok := DefaultSettings[k]; !ok {
			return fmt.Errorf("%w: unknown setting %q", ErrInvalidInput, k)
		}
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%w: setting %q must be a non-negative number", ErrInvalidInput, k)
		}
	}
	return nil
}
