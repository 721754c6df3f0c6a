package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/domain"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/period"
)

// ClaimStore is the slice of the ledger the engine mutates.
type ClaimStore interface {
	ActiveExists(ctx context.Context, userID int64, month string) (bool, error)
	Create(ctx context.Context, userID, totalCents int64, months []string) ([]int64, error)
	SetStatus(ctx context.Context, id int64, status domain.ClaimStatus, comment *string) (int64, error)
	LastConfirmedMonth(ctx context.Context, userID int64) (string, error)
}

type UserStore interface {
	WithoutConfirmedClaim(ctx context.Context, month string) ([]domain.User, error)
}

// ConflictError names every requested month already covered by an active
// claim. Not fatal: it is reported back to the requester.
type ConflictError struct {
	Months []string
}

func (e *ConflictError) Error() string {
	return "months already claimed: " + strings.Join(e.Months, ", ")
}

// Service is the reconciliation engine. It owns no state beyond its injected
// stores and the monthly price.
type Service struct {
	claims     ClaimStore
	users      UserStore
	priceCents int64
}

func New(claims ClaimStore, users UserStore, priceCents int64) *Service {
	return &Service{claims: claims, users: users, priceCents: priceCents}
}

// Quote is the price of an n-month purchase.
func (s *Service) Quote(n int) int64 { return int64(n) * s.priceCents }

// NextPayable is the first month the user may buy: the one after their
// furthest confirmed month, or the current month if nothing is confirmed.
func (s *Service) NextPayable(ctx context.Context, userID int64, now time.Time) (period.Month, error) {
	label, err := s.claims.LastConfirmedMonth(ctx, userID)
	if err != nil {
		return period.Month{}, fmt.Errorf("last confirmed month: %w", err)
	}
	if label == "" {
		return period.NextPayable(nil, now), nil
	}
	last, err := period.Parse(label)
	if err != nil {
		return period.Month{}, err
	}
	return period.NextPayable(&last, now), nil
}

// conflictingMonths collects every requested month the user already holds.
func (s *Service) conflictingMonths(ctx context.Context, userID int64, months []string) ([]string, error) {
	var taken []string
	for _, m := range months {
		exists, err := s.claims.ActiveExists(ctx, userID, m)
		if err != nil {
			return nil, fmt.Errorf("check month %s: %w", m, err)
		}
		if exists {
			taken = append(taken, m)
		}
	}
	return taken, nil
}

// Propose validates a candidate purchase without creating anything. A user
// abandoning the flow after a successful proposal leaves no trace.
func (s *Service) Propose(ctx context.Context, userID int64, months []string) error {
	taken, err := s.conflictingMonths(ctx, userID, months)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return &ConflictError{Months: taken}
	}
	return nil
}

// Commit records the purchase as pending claims, one per month, atomically.
// The proposal round-trip is human-paced and unbounded, so the months are
// re-validated here; a race past the re-check still aborts on the store's
// active-month uniqueness and surfaces as the same ConflictError.
func (s *Service) Commit(ctx context.Context, userID, totalCents int64, months []string) ([]int64, error) {
	taken, err := s.conflictingMonths(ctx, userID, months)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, &ConflictError{Months: taken}
	}

	ids, err := s.claims.Create(ctx, userID, totalCents, months)
	if errors.Is(err, domain.ErrMonthTaken) {
		return nil, &ConflictError{Months: months}
	}
	if err != nil {
		return nil, fmt.Errorf("create claims: %w", err)
	}
	return ids, nil
}

// Confirm marks each claim confirmed. Transitions are independent: one bad
// id does not touch the others, and already-finalized claims are skipped by
// the store.
func (s *Service) Confirm(ctx context.Context, ids []int64) error {
	var errs []error
	for _, id := range ids {
		if _, err := s.claims.SetStatus(ctx, id, domain.StatusConfirmed, nil); err != nil {
			errs = append(errs, fmt.Errorf("claim %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Reject marks each claim rejected with the shared comment and returns the
// owning user so the caller can notify them.
func (s *Service) Reject(ctx context.Context, ids []int64, comment string) (int64, error) {
	var (
		owner int64
		errs  []error
	)
	for _, id := range ids {
		userID, err := s.claims.SetStatus(ctx, id, domain.StatusRejected, &comment)
		if err != nil {
			errs = append(errs, fmt.Errorf("claim %d: %w", id, err))
			continue
		}
		owner = userID
	}
	if owner == 0 {
		return 0, errors.Join(errs...)
	}
	return owner, errors.Join(errs...)
}

// UsersNeedingReminder lists users without a confirmed claim for the month.
// Stateless: calling it twice for the same day yields the same set.
func (s *Service) UsersNeedingReminder(ctx context.Context, month string) ([]domain.User, error) {
	return s.users.WithoutConfirmedClaim(ctx, month)
}
