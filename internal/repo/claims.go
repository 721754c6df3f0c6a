package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/domain"
)

type Claims struct{ pool *pgxpool.Pool }

func NewClaims(p *pgxpool.Pool) *Claims { return &Claims{pool: p} }

// SplitAmount divides a purchase total across n months: an even share per
// month, with the remainder added to the first month so no cents are lost.
func SplitAmount(totalCents int64, n int) []int64 {
	per := totalCents / int64(n)
	out := make([]int64, n)
	for i := range out {
		out[i] = per
	}
	out[0] += totalCents % int64(n)
	return out
}

// Create inserts one pending claim per month in a single transaction.
// The total is split evenly; the remainder goes to the first month so no
// cents are dropped. All rows share the transaction timestamp, which is what
// the pending-review grouping keys on.
//
// The partial unique index on active (user_id, month) pairs makes this the
// final line of defense against double-claiming a month: a concurrent claim
// that slipped past the proposal check aborts the whole insert with
// domain.ErrMonthTaken.
func (r *Claims) Create(ctx context.Context, userID, totalCents int64, months []string) ([]int64, error) {
	if len(months) == 0 {
		return nil, errors.New("no months to claim")
	}

	amounts := SplitAmount(totalCents, len(months))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]int64, 0, len(months))
	for i, month := range months {
		amount := amounts[i]
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO payments(user_id, amount_cents, month, status)
			VALUES($1,$2,$3,'pending')
			RETURNING id
		`, userID, amount, month).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, domain.ErrMonthTaken
			}
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetStatus moves a pending claim to confirmed or rejected and returns the
// owning user. A claim that exists but was already finalized is left as is
// (each transition is independent); a missing id is domain.ErrClaimNotFound.
func (r *Claims) SetStatus(ctx context.Context, id int64, status domain.ClaimStatus, comment *string) (int64, error) {
	var userID int64
	err := r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status=$2, comment=$3
		WHERE id=$1 AND status='pending'
		RETURNING user_id
	`, id, status, comment).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// Not pending: distinguish "already finalized" from "gone".
	err = r.pool.QueryRow(ctx, `SELECT user_id FROM payments WHERE id=$1`, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrClaimNotFound
	}
	return userID, err
}

// Delete removes a claim outright, whatever its status.
func (r *Claims) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClaimNotFound
	}
	return nil
}

// ActiveExists reports whether the user already holds the month with a
// pending or confirmed claim. Rejected claims do not block.
func (r *Claims) ActiveExists(ctx context.Context, userID int64, month string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE user_id=$1 AND month=$2 AND status <> 'rejected'
		)
	`, userID, month).Scan(&exists)
	return exists, err
}

// LastConfirmed is the most recent confirmed claim by payment date — "when
// did they last pay". Returns nil when there is none.
func (r *Claims) LastConfirmed(ctx context.Context, userID int64) (*domain.Claim, error) {
	var c domain.Claim
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at, amount_cents, month, status, comment
		FROM payments
		WHERE user_id=$1 AND status='confirmed'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.AmountCents, &c.Month, &c.Status, &c.Comment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LastConfirmedMonth is the furthest month label covered by a confirmed
// claim — "how far are they paid up". Distinct from LastConfirmed: the two
// diverge when confirmations land out of chronological order. Empty string
// when there is none.
func (r *Claims) LastConfirmedMonth(ctx context.Context, userID int64) (string, error) {
	var month string
	err := r.pool.QueryRow(ctx, `
		SELECT max(month) FROM payments
		WHERE user_id=$1 AND status='confirmed'
		HAVING max(month) IS NOT NULL
	`, userID).Scan(&month)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return month, err
}

// PendingGroup is one submitted purchase awaiting review: all pending rows
// of one user sharing a submission timestamp.
type PendingGroup struct {
	UserID     int64
	Username   string
	CreatedAt  time.Time
	TotalCents int64
	Months     []string
	ClaimIDs   []int64
}

func (r *Claims) ListPendingGrouped(ctx context.Context) ([]PendingGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.user_id, u.username, p.created_at, p.amount_cents, p.month
		FROM payments p
		JOIN users u ON u.id = p.user_id
		WHERE p.status='pending'
		ORDER BY p.created_at, p.user_id, p.month
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingGroup
	for rows.Next() {
		var (
			id, userID, amount int64
			username, month    string
			createdAt          time.Time
		)
		if e := rows.Scan(&id, &userID, &username, &createdAt, &amount, &month); e != nil {
			return nil, e
		}

		n := len(out)
		if n == 0 || out[n-1].UserID != userID || !out[n-1].CreatedAt.Equal(createdAt) {
			out = append(out, PendingGroup{UserID: userID, Username: username, CreatedAt: createdAt})
			n++
		}
		g := &out[n-1]
		g.TotalCents += amount
		g.Months = append(g.Months, month)
		g.ClaimIDs = append(g.ClaimIDs, id)
	}
	return out, rows.Err()
}

// StatRow is one confirmed payment in the per-user history view.
type StatRow struct {
	UserID      int64
	Username    string
	CreatedAt   time.Time
	Month       string
	AmountCents int64
}

func (r *Claims) ConfirmedStats(ctx context.Context) ([]StatRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id, u.username, p.created_at, p.month, p.amount_cents
		FROM payments p
		JOIN users u ON u.id = p.user_id
		WHERE p.status='confirmed'
		ORDER BY lower(u.username), p.created_at, p.month
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatRow
	for rows.Next() {
		var s StatRow
		if e := rows.Scan(&s.UserID, &s.Username, &s.CreatedAt, &s.Month, &s.AmountCents); e != nil {
			return nil, e
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type MonthCount struct {
	Username string
	Month    string
	Count    int64
}

// MonthlyConfirmedCounts: confirmed claims per user per month, newest month
// first.
func (r *Claims) MonthlyConfirmedCounts(ctx context.Context) ([]MonthCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.username, p.month, count(*)
		FROM payments p
		JOIN users u ON u.id = p.user_id
		WHERE p.status='confirmed'
		GROUP BY u.id, u.username, p.month
		ORDER BY p.month DESC, lower(u.username)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthCount
	for rows.Next() {
		var m MonthCount
		if e := rows.Scan(&m.Username, &m.Month, &m.Count); e != nil {
			return nil, e
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClaimRow is a claim joined with its owner's name, for the admin menus.
type ClaimRow struct {
	ID          int64
	Username    string
	Month       string
	AmountCents int64
	Status      domain.ClaimStatus
}

func (r *Claims) ListAll(ctx context.Context) ([]ClaimRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, u.username, p.month, p.amount_cents, p.status
		FROM payments p
		JOIN users u ON u.id = p.user_id
		ORDER BY lower(u.username), p.month, p.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClaimRow
	for rows.Next() {
		var c ClaimRow
		if e := rows.Scan(&c.ID, &c.Username, &c.Month, &c.AmountCents, &c.Status); e != nil {
			return nil, e
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
