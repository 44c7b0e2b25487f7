package store

import (
	"context"

	"ajosave/internal/domain"

	"gorm.io/gorm/clause"
)

// ListPlanTypes returns plan types ordered by code.
func (s *Store) ListPlanTypes(ctx context.Context, activeOnly bool) ([]domain.PlanType, error) {
	query := s.conn(ctx).Order("code")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var types []domain.PlanType
	err := query.Find(&types).Error
	return types, err
}

// PlanTypeByCode fetches a plan type by its code.
func (s *Store) PlanTypeByCode(ctx context.Context, code string) (domain.PlanType, error) {
	var pt domain.PlanType
	err := s.conn(ctx).Where("code = ?", code).First(&pt).Error
	return pt, translate(err)
}

// UpsertPlanType inserts a plan type or updates the existing row with the same code.
func (s *Store) UpsertPlanType(ctx context.Context, pt *domain.PlanType) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "frequency", "duration_weeks", "min_contribution", "interest_rate", "active"}),
	}).Create(pt).Error
}

// CreatePlanInstance inserts a plan instance.
func (s *Store) CreatePlanInstance(ctx context.Context, p *domain.PlanInstance) error {
	return s.conn(ctx).Omit("PlanType").Create(p).Error
}

// PlanInstanceByID fetches a plan instance with its type.
func (s *Store) PlanInstanceByID(ctx context.Context, id uint) (domain.PlanInstance, error) {
	var p domain.PlanInstance
	err := s.conn(ctx).Preload("PlanType").First(&p, id).Error
	return p, translate(err)
}

// PlanInstancesForUser lists a user's plans with their types.
func (s *Store) PlanInstancesForUser(ctx context.Context, userID uint) ([]domain.PlanInstance, error) {
	var plans []domain.PlanInstance
	err := s.conn(ctx).Preload("PlanType").Where("user_id = ?", userID).Order("id").Find(&plans).Error
	return plans, err
}

// PlanInstancesByType lists every instance of a plan type.
func (s *Store) PlanInstancesByType(ctx context.Context, planTypeID uint) ([]domain.PlanInstance, error) {
	var plans []domain.PlanInstance
	err := s.conn(ctx).Preload("PlanType").Where("plan_type_id = ?", planTypeID).Order("id").Find(&plans).Error
	return plans, err
}

// SetPlanStatus moves a plan from one status to another.
func (s *Store) SetPlanStatus(ctx context.Context, id uint, from, to string) error {
	return expectOne(s.conn(ctx).Model(&domain.PlanInstance{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to))
}
