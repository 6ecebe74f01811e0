package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status of a booking attempt as recorded in the order ledger.
type Status string

const (
	StatusBooked    Status = "booked"
	StatusWaiting   Status = "waiting"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the ledger statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusBooked, StatusWaiting, StatusCancelled:
		return true
	}
	return false
}

// Order is a ledger entry: one row per (event, user) booking attempt whose
// status reflects the latest known state of that attempt.
type Order struct {
	ID        uuid.UUID
	EventID   string
	UserID    string
	UserName  string
	Status    Status
	CreatedAt time.Time
}
