package service

import (
	"context"
	"fmt"

	"ajosave/internal/domain"
	"ajosave/internal/realtime"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Plans manages the plan catalog and users' plan instances.
type Plans struct {
	base
}

// NewPlans creates a Plans service.
func NewPlans(o Options) *Plans {
	return &Plans{base: newBase(o)}
}

// Types lists the plan types users can subscribe to.
func (p *Plans) Types(ctx context.Context) ([]domain.PlanType, error) {
	return p.repo.ListPlanTypes(ctx, true)
}

// Create subscribes a user to a plan type, starting today.
func (p *Plans) Create(ctx context.Context, userID uint, code string, contribution decimal.Decimal) (domain.PlanInstance, error) {
	if err := validAmount(contribution); err != nil {
		return domain.PlanInstance{}, err
	}
	pt, err := p.repo.PlanTypeByCode(ctx, code)
	if err != nil {
		return domain.PlanInstance{}, err
	}
	if !pt.Active {
		return domain.PlanInstance{}, ErrNotFound
	}
	if contribution.LessThan(pt.MinContribution) {
		return domain.PlanInstance{}, fmt.Errorf("%w: minimum contribution for %s is %s", ErrInvalidAmount, pt.Name, pt.MinContribution.StringFixed(2))
	}
	start := domain.CalendarDate(p.now())
	inst := domain.PlanInstance{
		UserID:        userID,
		PlanTypeID:    pt.ID,
		Contribution:  contribution,
		StartDate:     &start,
		DurationWeeks: pt.DurationWeeks,
		Status:        domain.PlanActive,
	}
	if err := p.repo.CreatePlanInstance(ctx, &inst); err != nil {
		return domain.PlanInstance{}, fmt.Errorf("creating plan: %w", err)
	}
	inst.PlanType = pt
	logrus.WithFields(logrus.Fields{"user_id": userID, "plan_id": inst.ID, "plan_type": code}).Info("Plan created")
	p.changed(ctx, "plan_instances", realtime.OpInsert, userID, inst.ID)
	return inst, nil
}

// Instances is the admin view of a plan type: every instance with its
// balance and maturity.
func (p *Plans) Instances(ctx context.Context, code string) ([]domain.PlanBalance, error) {
	key := adminPlansPrefix + code
	var cached []domain.PlanBalance
	if p.cache != nil {
		if found, err := p.cache.Get(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}
	pt, err := p.repo.PlanTypeByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	plans, err := p.repo.PlanInstancesByType(ctx, pt.ID)
	if err != nil {
		return nil, fmt.Errorf("listing plan instances: %w", err)
	}
	seen := map[uint]bool{}
	var users []uint
	for _, inst := range plans {
		if !seen[inst.UserID] {
			seen[inst.UserID] = true
			users = append(users, inst.UserID)
		}
	}
	txs, err := p.repo.TransactionsForUsers(ctx, users...)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	now := p.now()
	out := make([]domain.PlanBalance, 0, len(plans))
	for _, inst := range plans {
		out = append(out, planBalance(inst, txs, now))
	}
	if p.cache != nil {
		_ = p.cache.Set(ctx, key, out, p.ttl)
	}
	return out, nil
}
