package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/domain"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/period"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/repo"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/service"
)

// fakeLedger is an in-memory stand-in for the pgx repos. It enforces the
// same active-month uniqueness the partial index does, so engine tests run
// without a database.
type fakeLedger struct {
	nextID int64
	claims map[int64]*domain.Claim
	users  map[int64]domain.User
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		claims: map[int64]*domain.Claim{},
		users:  map[int64]domain.User{},
	}
}

func (f *fakeLedger) ActiveExists(_ context.Context, userID int64, month string) (bool, error) {
	for _, c := range f.claims {
		if c.UserID == userID && c.Month == month && c.Status != domain.StatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) Create(ctx context.Context, userID, totalCents int64, months []string) ([]int64, error) {
	for _, m := range months {
		if taken, _ := f.ActiveExists(ctx, userID, m); taken {
			return nil, domain.ErrMonthTaken
		}
	}
	amounts := repo.SplitAmount(totalCents, len(months))
	now := time.Now()
	var ids []int64
	for i, m := range months {
		f.nextID++
		f.claims[f.nextID] = &domain.Claim{
			ID:          f.nextID,
			UserID:      userID,
			CreatedAt:   now,
			AmountCents: amounts[i],
			Month:       m,
			Status:      domain.StatusPending,
		}
		ids = append(ids, f.nextID)
	}
	return ids, nil
}

func (f *fakeLedger) SetStatus(_ context.Context, id int64, status domain.ClaimStatus, comment *string) (int64, error) {
	c, ok := f.claims[id]
	if !ok {
		return 0, domain.ErrClaimNotFound
	}
	if c.Status != domain.StatusPending {
		return c.UserID, nil
	}
	c.Status = status
	c.Comment = comment
	return c.UserID, nil
}

func (f *fakeLedger) LastConfirmedMonth(_ context.Context, userID int64) (string, error) {
	var max string
	for _, c := range f.claims {
		if c.UserID == userID && c.Status == domain.StatusConfirmed && c.Month > max {
			max = c.Month
		}
	}
	return max, nil
}

func (f *fakeLedger) WithoutConfirmedClaim(ctx context.Context, month string) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		covered := false
		for _, c := range f.claims {
			if c.UserID == u.ID && c.Month == month && c.Status == domain.StatusConfirmed {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeLedger) activeMonths(userID int64) []string {
	var out []string
	for _, c := range f.claims {
		if c.UserID == userID && c.Status != domain.StatusRejected {
			out = append(out, c.Month)
		}
	}
	return out
}

const price = 10000 // cents per month

func newEngine() (*service.Service, *fakeLedger) {
	f := newFakeLedger()
	return service.New(f, f, price), f
}

func TestProposeCleanMonths(t *testing.T) {
	svc, _ := newEngine()
	err := svc.Propose(context.Background(), 1, []string{"2024-01", "2024-02"})
	assert.NoError(t, err)
}

func TestProposeNamesEveryConflict(t *testing.T) {
	svc, _ := newEngine()
	ctx := context.Background()

	_, err := svc.Commit(ctx, 1, svc.Quote(2), []string{"2024-01", "2024-02"})
	require.NoError(t, err)

	err = svc.Propose(ctx, 1, []string{"2024-01", "2024-02", "2024-03"})
	var conflict *service.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"2024-01", "2024-02"}, conflict.Months)

	// A different user is unaffected.
	assert.NoError(t, svc.Propose(ctx, 2, []string{"2024-01"}))
}

func TestCommitRevalidates(t *testing.T) {
	svc, _ := newEngine()
	ctx := context.Background()

	// Proposal succeeds while the month is free.
	require.NoError(t, svc.Propose(ctx, 1, []string{"2024-05"}))

	// Another claim lands during the human-paced gap.
	_, err := svc.Commit(ctx, 1, price, []string{"2024-05"})
	require.NoError(t, err)

	// The stale confirmation must fail, not double-insert.
	_, err = svc.Commit(ctx, 1, price, []string{"2024-05"})
	var conflict *service.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Months, "2024-05")
}

func TestActiveMonthsStayUnique(t *testing.T) {
	svc, f := newEngine()
	ctx := context.Background()

	requests := [][]string{
		{"2024-01", "2024-02"},
		{"2024-02", "2024-03"}, // overlaps 2024-02, must fail whole
		{"2024-03"},            // free again after the atomic failure above
		{"2024-04", "2024-05", "2024-06"},
		{"2024-01"}, // overlap
	}
	for _, months := range requests {
		_, _ = svc.Commit(ctx, 7, svc.Quote(len(months)), months)
	}

	seen := map[string]bool{}
	for _, m := range f.activeMonths(7) {
		assert.False(t, seen[m], "duplicate active month %s", m)
		seen[m] = true
	}
}

func TestRejectedMonthDoesNotBlock(t *testing.T) {
	svc, _ := newEngine()
	ctx := context.Background()

	ids, err := svc.Commit(ctx, 1, price, []string{"2024-02"})
	require.NoError(t, err)

	_, err = svc.Reject(ctx, ids, "не вижу перевода")
	require.NoError(t, err)

	_, err = svc.Commit(ctx, 1, price, []string{"2024-02"})
	assert.NoError(t, err)
}

func TestConfirmedMonthBlocks(t *testing.T) {
	svc, _ := newEngine()
	ctx := context.Background()

	ids, err := svc.Commit(ctx, 1, price, []string{"2024-02"})
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, ids))

	err = svc.Propose(ctx, 1, []string{"2024-02"})
	var conflict *service.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestConfirmTransitionsAreIndependent(t *testing.T) {
	svc, f := newEngine()
	ctx := context.Background()

	ids, err := svc.Commit(ctx, 1, svc.Quote(2), []string{"2024-01", "2024-02"})
	require.NoError(t, err)

	// One id is bogus; the valid ones must still be confirmed.
	err = svc.Confirm(ctx, append([]int64{999}, ids...))
	assert.ErrorIs(t, err, domain.ErrClaimNotFound)
	for _, id := range ids {
		assert.Equal(t, domain.StatusConfirmed, f.claims[id].Status)
	}

	// Confirming again is harmless: already-finalized claims are skipped.
	assert.NoError(t, svc.Confirm(ctx, ids))
}

func TestRejectReturnsOwnerAndComment(t *testing.T) {
	svc, f := newEngine()
	ctx := context.Background()

	ids, err := svc.Commit(ctx, 42, svc.Quote(2), []string{"2024-01", "2024-02"})
	require.NoError(t, err)

	owner, err := svc.Reject(ctx, ids, "сумма не совпадает")
	require.NoError(t, err)
	assert.Equal(t, int64(42), owner)
	for _, id := range ids {
		require.Equal(t, domain.StatusRejected, f.claims[id].Status)
		require.NotNil(t, f.claims[id].Comment)
		assert.Equal(t, "сумма не совпадает", *f.claims[id].Comment)
	}
}

func TestNextPayable(t *testing.T) {
	svc, _ := newEngine()
	ctx := context.Background()
	now := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	// Nothing confirmed: current month.
	m, err := svc.NextPayable(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-06", m.String())

	// Confirm 2024-03: next payable is 2024-04, not 2024-05.
	ids, err := svc.Commit(ctx, 1, price, []string{"2024-03"})
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, ids))

	m, err = svc.NextPayable(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, period.Month{Year: 2024, Mon: time.April}, m)
}

func TestUsersNeedingReminder(t *testing.T) {
	svc, f := newEngine()
	ctx := context.Background()

	f.users[1] = domain.User{ID: 1, Username: "paid_up"}
	f.users[2] = domain.User{ID: 2, Username: "lagging"}

	ids, err := svc.Commit(ctx, 1, price, []string{"2024-06"})
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, ids))

	// Pending is not enough to silence the reminder.
	_, err = svc.Commit(ctx, 2, price, []string{"2024-06"})
	require.NoError(t, err)

	due, err := svc.UsersNeedingReminder(ctx, "2024-06")
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(2), due[0].ID)

	// Idempotent: same day, same set.
	again, err := svc.UsersNeedingReminder(ctx, "2024-06")
	require.NoError(t, err)
	assert.Equal(t, due, again)
}

// Full flow from the user's first purchase through admin confirmation and a
// duplicate attempt.
func TestPurchaseLifecycle(t *testing.T) {
	svc, f := newEngine()
	ctx := context.Background()
	now := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)

	start, err := svc.NextPayable(ctx, 9, now)
	require.NoError(t, err)
	months := period.Labels(start, 2)
	require.Equal(t, []string{"2024-01", "2024-02"}, months)

	require.NoError(t, svc.Propose(ctx, 9, months))
	ids, err := svc.Commit(ctx, 9, svc.Quote(2), months)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	for _, id := range ids {
		assert.Equal(t, domain.StatusPending, f.claims[id].Status)
	}

	require.NoError(t, svc.Confirm(ctx, ids))

	last, err := f.LastConfirmedMonth(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "2024-02", last)

	m, err := svc.NextPayable(ctx, 9, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", m.String())

	// The same two months again: rejected as conflicting.
	_, err = svc.Commit(ctx, 9, svc.Quote(2), months)
	var conflict *service.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, months, conflict.Months)
}
