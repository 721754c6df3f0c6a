package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/domain"
)

type Users struct{ pool *pgxpool.Pool }

func NewUsers(p *pgxpool.Pool) *Users { return &Users{pool: p} }

// Upsert registers a user on first contact and keeps the username fresh
// afterwards (last seen value wins).
func (r *Users) Upsert(ctx context.Context, id int64, username string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users(id, username)
		VALUES($1,$2)
		ON CONFLICT (id) DO UPDATE
		SET username=EXCLUDED.username
	`, id, username)
	return err
}

// Remove deletes the user; their payments go with them (FK cascade).
func (r *Users) Remove(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Users) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, created_at
		FROM users
		ORDER BY lower(username), id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if e := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); e != nil {
			return nil, e
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// WithoutConfirmedClaim returns every user lacking a confirmed payment for
// the given month. This is the reminder sweep primitive.
func (r *Users) WithoutConfirmedClaim(ctx context.Context, month string) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.created_at
		FROM users u
		WHERE NOT EXISTS (
			SELECT 1 FROM payments p
			WHERE p.user_id = u.id
			  AND p.month = $1
			  AND p.status = 'confirmed'
		)
		ORDER BY lower(u.username), u.id
	`, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if e := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); e != nil {
			return nil, e
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
