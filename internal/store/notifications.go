package store

import (
	"context"

	"ajosave/internal/domain"

	"gorm.io/gorm/clause"
)

// CreateNotification inserts a notification.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	return s.conn(ctx).Create(n).Error
}

// NotificationsForUser lists a user's notifications, newest first.
func (s *Store) NotificationsForUser(ctx context.Context, userID uint, limit int) ([]domain.Notification, error) {
	var ns []domain.Notification
	err := s.conn(ctx).Where("user_id = ?", userID).Order("id desc").Limit(limit).Find(&ns).Error
	return ns, err
}

// MarkNotificationRead flags a user's notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uint) error {
	res := s.conn(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Settings returns every setting as a map.
func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	var rows []domain.Setting
	if err := s.conn(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// PutSettings upserts the given settings.
func (s *Store) PutSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]domain.Setting, 0, len(values))
	for k, v := range values {
		rows = append(rows, domain.Setting{Key: k, Value: v})
	}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}
