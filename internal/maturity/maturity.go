// Package maturity works out when a savings plan matures.
package maturity

import "time"

// dueSoonDays is how close to maturity a plan counts as due soon.
const dueSoonDays = 3

// Maturity describes where a plan stands relative to its maturity date.
type Maturity struct {
	MaturityDate  time.Time `json:"maturity_date"`  // Midnight on the day the plan matures
	IsMatured     bool      `json:"is_matured"`     // Today is on or after the maturity date
	IsDueSoon     bool      `json:"is_due_soon"`    // Not matured and at most three days left
	DaysRemaining int       `json:"days_remaining"` // Whole days left, never negative
}

// Calculate returns the maturity of a plan that started on startDate and runs
// for durationWeeks, as seen at now. The plan matures durationWeeks*7+1 days
// after it starts. Dates are compared at midnight in now's location.
//
// It returns nil when startDate is empty or cannot be parsed.
func Calculate(startDate string, durationWeeks int, now time.Time) *Maturity {
	if startDate == "" {
		return nil
	}
	loc := now.Location()
	start, ok := parseDate(startDate, loc)
	if !ok {
		return nil
	}

	maturityDate := start.AddDate(0, 0, durationWeeks*7+1)
	today := midnight(now, loc)

	days := daysBetween(today, maturityDate)
	if days < 0 {
		days = 0
	}
	matured := !today.Before(maturityDate)

	return &Maturity{
		MaturityDate:  maturityDate,
		IsMatured:     matured,
		IsDueSoon:     !matured && days <= dueSoonDays,
		DaysRemaining: days,
	}
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return midnight(t, loc), true
	}
	return time.Time{}, false
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// daysBetween counts calendar days from a to b, both at midnight.
// Rounding absorbs the hour lost or gained across a DST change.
func daysBetween(a, b time.Time) int {
	hours := b.Sub(a).Hours()
	if hours >= 0 {
		return int((hours + 12) / 24)
	}
	return -int((-hours + 12) / 24)
}
