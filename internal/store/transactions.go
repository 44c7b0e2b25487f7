package store

import (
	"context"

	"ajosave/internal/domain"
)

// CreateTransactions inserts rows in order.
func (s *Store) CreateTransactions(ctx context.Context, txs ...*domain.Transaction) error {
	for _, tx := range txs {
		if err := s.conn(ctx).Create(tx).Error; err != nil {
			return err
		}
	}
	return nil
}

// TransactionByID fetches one transaction.
func (s *Store) TransactionByID(ctx context.Context, id uint) (domain.Transaction, error) {
	var tx domain.Transaction
	err := s.conn(ctx).First(&tx, id).Error
	return tx, translate(err)
}

// TransactionsForUsers returns every row owned by the given users, the input
// to balance folding.
func (s *Store) TransactionsForUsers(ctx context.Context, userIDs ...uint) ([]domain.Transaction, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var txs []domain.Transaction
	err := s.conn(ctx).Where("user_id IN ?", userIDs).Order("id").Find(&txs).Error
	return txs, err
}

// ListTransactions pages through transactions matching f, newest first.
func (s *Store) ListTransactions(ctx context.Context, f TxFilter, page Page) ([]domain.Transaction, int64, error) {
	query := s.conn(ctx).Model(&domain.Transaction{})
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.PlanID != nil {
		query = query.Where("plan_id = ?", *f.PlanID)
	}
	if f.Kind != "" {
		query = query.Where("kind = ?", f.Kind)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.From != 0 {
		query = query.Where("created_at >= ?", f.From)
	}
	if f.To != 0 {
		query = query.Where("created_at <= ?", f.To)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	err := query.Order("created_at desc, id desc").Offset(page.Offset).Limit(page.Limit).Find(&txs).Error
	return txs, total, err
}

// SettleTransaction moves a pending transaction to status.
func (s *Store) SettleTransaction(ctx context.Context, id uint, status domain.TransactionStatus) error {
	return expectOne(s.conn(ctx).Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", status))
}
