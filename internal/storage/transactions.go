package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"cambiobot/internal/domain"
)

// TxRepo persists exchange transactions.
type TxRepo struct {
	db *sqlx.DB
}

// NewTxRepo wraps the shared database handle.
func NewTxRepo(db *sqlx.DB) *TxRepo {
	return &TxRepo{db: db}
}

// Create inserts a settled transaction and returns the stored row.
func (r *TxRepo) Create(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	var out domain.Transaction
	err := r.db.GetContext(ctx, &out,
		`INSERT INTO transactions
		   (user_telegram_id, direction, amount_usd, commission_usd, total_usd,
		    rate_bs, total_bs, method_id, reference, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, 0), $9, $10)
		 RETURNING id, user_telegram_id, direction, amount_usd, commission_usd,
		           total_usd, rate_bs, total_bs, COALESCE(method_id, 0) AS method_id,
		           reference, status, created_at`,
		t.UserTelegramID, t.Direction, t.AmountUSD, t.CommissionUSD, t.TotalUSD,
		t.RateBs, t.TotalBs, t.MethodID, t.Reference, t.Status)
	if err != nil {
		return nil, fmt.Errorf("storage: create transaction: %w", err)
	}
	return &out, nil
}

// History lists a user's most recent transactions, newest first.
func (r *TxRepo) History(ctx context.Context, telegramID int64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []domain.Transaction
	err := r.db.SelectContext(ctx, &list,
		`SELECT id, user_telegram_id, direction, amount_usd, commission_usd,
		        total_usd, rate_bs, total_bs, COALESCE(method_id, 0) AS method_id,
		        reference, status, created_at
		 FROM transactions
		 WHERE user_telegram_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: transaction history: %w", err)
	}
	return list, nil
}
