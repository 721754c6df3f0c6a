package domain

import (
	"errors"
	"time"
)

type ClaimStatus string

const (
	StatusPending   ClaimStatus = "pending"
	StatusConfirmed ClaimStatus = "confirmed"
	StatusRejected  ClaimStatus = "rejected"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrClaimNotFound = errors.New("claim not found")
	// ErrMonthTaken: an active (pending or confirmed) claim already covers
	// one of the requested months.
	ErrMonthTaken = errors.New("month already claimed")
)

type User struct {
	ID        int64 // telegram user id
	Username  string
	CreatedAt time.Time
}

type Claim struct {
	ID          int64
	UserID      int64
	CreatedAt   time.Time
	AmountCents int64
	Month       string // "2006-01" label, a closed one-month interval
	Status      ClaimStatus
	Comment     *string // set on rejection
}
