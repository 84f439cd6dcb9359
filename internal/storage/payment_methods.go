package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"cambiobot/internal/domain"
)

// ErrNicknameTaken is returned when a user already owns a method with the
// same nickname.
var ErrNicknameTaken = errors.New("storage: nickname already in use")

// MethodRepo persists payout destinations.
type MethodRepo struct {
	db *sqlx.DB
}

// NewMethodRepo wraps the shared database handle.
func NewMethodRepo(db *sqlx.DB) *MethodRepo {
	return &MethodRepo{db: db}
}

// Create inserts a payment method. Nickname uniqueness is enforced per user
// by the database.
func (r *MethodRepo) Create(ctx context.Context, m *domain.PaymentMethod) (*domain.PaymentMethod, error) {
	var out domain.PaymentMethod
	err := r.db.GetContext(ctx, &out,
		`INSERT INTO payment_methods (user_telegram_id, type, nickname, details)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_telegram_id, type, nickname, details, created_at`,
		m.UserTelegramID, m.Type, m.Nickname, m.Details)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrNicknameTaken
		}
		return nil, fmt.Errorf("storage: create payment method: %w", err)
	}
	return &out, nil
}

// ByUser lists every method owned by a user, oldest first.
func (r *MethodRepo) ByUser(ctx context.Context, telegramID int64) ([]domain.PaymentMethod, error) {
	var list []domain.PaymentMethod
	err := r.db.SelectContext(ctx, &list,
		`SELECT id, user_telegram_id, type, nickname, details, created_at
		 FROM payment_methods WHERE user_telegram_id = $1 ORDER BY created_at, id`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("storage: methods by user: %w", err)
	}
	return list, nil
}

// ByUserAndTypes lists a user's methods restricted to the given rails.
func (r *MethodRepo) ByUserAndTypes(ctx context.Context, telegramID int64, types []domain.MethodType) ([]domain.PaymentMethod, error) {
	if len(types) == 0 {
		return nil, nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	var list []domain.PaymentMethod
	err := r.db.SelectContext(ctx, &list,
		`SELECT id, user_telegram_id, type, nickname, details, created_at
		 FROM payment_methods
		 WHERE user_telegram_id = $1 AND type = ANY($2)
		 ORDER BY created_at, id`, telegramID, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("storage: methods by type: %w", err)
	}
	return list, nil
}
