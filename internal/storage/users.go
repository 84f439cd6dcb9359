package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"cambiobot/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// UserRepo persists registered users.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo wraps the shared database handle.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ByTelegramID fetches a user by their Telegram ID.
func (r *UserRepo) ByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, telegram_id, username, first_name, last_name, email, phone, created_at
		 FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: user by telegram id: %w", err)
	}
	return &u, nil
}

// Exists reports whether a user with the given Telegram ID is registered.
func (r *UserRepo) Exists(ctx context.Context, telegramID int64) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS (SELECT 1 FROM users WHERE telegram_id = $1)`, telegramID)
	if err != nil {
		return false, fmt.Errorf("storage: user exists: %w", err)
	}
	return ok, nil
}

// Create inserts a new user and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	var out domain.User
	err := r.db.GetContext(ctx, &out,
		`INSERT INTO users (telegram_id, username, first_name, last_name, email, phone)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, telegram_id, username, first_name, last_name, email, phone, created_at`,
		u.TelegramID, u.Username, u.FirstName, u.LastName, u.Email, u.Phone)
	if err != nil {
		return nil, fmt.Errorf("storage: create user: %w", err)
	}
	return &out, nil
}

// AllTelegramIDs returns the Telegram IDs of every registered user,
// ordered by registration time. Used by broadcast.
func (r *UserRepo) AllTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT telegram_id FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("storage: all telegram ids: %w", err)
	}
	return ids, nil
}
