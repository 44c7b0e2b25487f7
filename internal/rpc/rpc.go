// Package rpc invokes the settlement stored procedures that live in the
// database. The procedures own the settlement rules; this package only
// checks the name, calls, and logs.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrUnknownProcedure is returned for names outside the whitelist.
var ErrUnknownProcedure = errors.New("unknown procedure")

// Settlement procedures
const (
	SettleAjoCircleWeek   = "settle_ajo_circle_week"
	SettleAjoCircleMonth  = "settle_ajo_circle_month"
	TriggerSprintAutoSave = "trigger_sprint_auto_save"
	ApplySavingsInterest  = "apply_savings_interest"
)

var procedures = map[string]string{
	SettleAjoCircleWeek:   "Advance weekly ajo circles, apply penalties and rotate the payout",
	SettleAjoCircleMonth:  "Advance monthly ajo circles, apply penalties and rotate the payout",
	TriggerSprintAutoSave: "Move scheduled sprint contributions from wallets into plans",
	ApplySavingsInterest:  "Credit accrued interest to matured savings plans",
}

// Procedures lists the callable procedure names with a short description.
func Procedures() map[string]string {
	out := make(map[string]string, len(procedures))
	for k, v := range procedures {
		out[k] = v
	}
	return out
}

// Names returns the callable procedure names, sorted.
func Names() []string {
	names := make([]string, 0, len(procedures))
	for k := range procedures {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Result describes one invocation.
type Result struct {
	Procedure    string        `json:"procedure"`
	RowsAffected int64         `json:"rows_affected"`
	Duration     time.Duration `json:"duration"`
}

// Caller runs procedures over a gorm connection.
type Caller struct {
	db *gorm.DB
}

// NewCaller wraps a gorm connection.
func NewCaller(db *gorm.DB) *Caller {
	return &Caller{db: db}
}

// Call invokes procedure name with positional args.
func (c *Caller) Call(ctx context.Context, name string, args ...any) (Result, error) {
	if _, ok := procedures[name]; !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownProcedure, name)
	}
	stmt := "CALL " + name + "(" + placeholders(len(args)) + ")"

	start := time.Now()
	res := c.db.WithContext(ctx).Exec(stmt, args...)
	elapsed := time.Since(start)

	fields := logrus.Fields{"procedure": name, "args": args, "duration_ms": elapsed.Milliseconds()}
	if res.Error != nil {
		logrus.WithFields(fields).WithError(res.Error).Error("Procedure call failed")
		return Result{}, fmt.Errorf("calling %s: %w", name, res.Error)
	}
	logrus.WithFields(fields).WithField("rows_affected", res.RowsAffected).Info("Procedure call completed")
	return Result{Procedure: name, RowsAffected: res.RowsAffected, Duration: elapsed}, nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
