package store

import (
	"context"
	"strings"

	"ajosave/internal/domain"

	"gorm.io/gorm/clause"
)

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

// UserByID fetches a user by primary key.
func (s *Store) UserByID(ctx context.Context, id uint) (domain.User, error) {
	var u domain.User
	err := s.conn(ctx).First(&u, id).Error
	return u, translate(err)
}

// LockUser fetches a user with a row lock held until the surrounding
// transaction ends. Money-moving writes take it first so balance checks and
// inserts for one user are serialized.
func (s *Store) LockUser(ctx context.Context, id uint) (domain.User, error) {
	var u domain.User
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error
	return u, translate(err)
}

// UserByEmail fetches a user by their lower-cased email.
func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.conn(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error
	return u, translate(err)
}

// UpdateUser applies column updates to a user.
func (s *Store) UpdateUser(ctx context.Context, id uint, fields map[string]any) error {
	res := s.conn(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetKYCDecision moves a user out of the submitted state.
func (s *Store) SetKYCDecision(ctx context.Context, id uint, status string) error {
	return expectOne(s.conn(ctx).Model(&domain.User{}).
		Where("id = ? AND kyc_status = ?", id, domain.KYCSubmitted).
		Update("kyc_status", status))
}

// ListUsers pages through users, optionally matching q against email, name or phone.
func (s *Store) ListUsers(ctx context.Context, q string, page Page) ([]domain.User, int64, error) {
	query := s.conn(ctx).Model(&domain.User{})
	if q != "" {
		like := "%" + q + "%"
		query = query.Where("email LIKE ? OR full_name LIKE ? OR phone LIKE ?", like, like, like)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	err := query.Order("id").Offset(page.Offset).Limit(page.Limit).Find(&users).Error
	return users, total, err
}

// UsersByKYCStatus lists users in a KYC state, oldest first.
func (s *Store) UsersByKYCStatus(ctx context.Context, status string) ([]domain.User, error) {
	var users []domain.User
	err := s.conn(ctx).Where("kyc_status = ?", status).Order("id").Find(&users).Error
	return users, err
}
