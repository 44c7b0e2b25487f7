package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan frequencies
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Plan instance statuses
const (
	PlanActive  = "active"  // Accepting contributions
	PlanMatured = "matured" // Past its maturity date
	PlanClosed  = "closed"  // Paid out to the wallet
)

// PlanType is a savings product configuration (ajo circle, sprint, ...).
type PlanType struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Code            string          `gorm:"uniqueIndex;size:64;not null" json:"code" yaml:"code"`
	Name            string          `gorm:"size:128;not null" json:"name" yaml:"name"`
	Description     string          `gorm:"size:512" json:"description" yaml:"description"`
	Frequency       string          `gorm:"size:16;not null" json:"frequency" yaml:"frequency"`
	DurationWeeks   int             `gorm:"not null" json:"duration_weeks" yaml:"duration_weeks"`
	MinContribution decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"min_contribution" yaml:"min_contribution"`
	InterestRate    decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"interest_rate" yaml:"interest_rate"` // Percent over the whole duration
	Active          bool            `gorm:"not null" json:"active" yaml:"active"`
}

// PlanInstance is a user's subscription to a PlanType.
type PlanInstance struct {
	ID            uint            `gorm:"primaryKey" json:"id"`                          // Primary key
	UserID        uint            `gorm:"index;not null" json:"user_id"`                 // Owner
	PlanTypeID    uint            `gorm:"index;not null" json:"plan_type_id"`            // Foreign key to PlanType
	PlanType      PlanType        `gorm:"constraint:OnUpdate:CASCADE;" json:"plan_type"` // Belongs-to relationship
	Contribution  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"contribution"`
	StartDate     *time.Time      `gorm:"type:date" json:"start_date"`       // Calendar day as midnight UTC; nil until fixed
	DurationWeeks int             `gorm:"not null" json:"duration_weeks"`    // Copied from the type at creation
	Status        string          `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt     int64           `gorm:"autoCreateTime:milli" json:"created_at"` // Timestamp of creation in milliseconds
}

// CalendarDate returns the calendar day of t, in t's location, as midnight
// UTC. The driver writes times in UTC, so this keeps a date column on the
// same day whatever the server's zone.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartDateISO returns the start date as YYYY-MM-DD, or "" if unset.
func (p PlanInstance) StartDateISO() string {
	if p.StartDate == nil {
		return ""
	}
	return p.StartDate.UTC().Format("2006-01-02")
}
