package domain

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// User is an externally supplied identity. It has no lifecycle of its own.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is the per-event booking aggregate: a fixed ticket pool, the users
// currently holding tickets and a FIFO waiting list. All mutation happens
// through a single admitted operation at a time (the serialization gate);
// the internal mutex only makes status snapshots safe against a concurrent
// mutator, it is not the concurrency discipline itself.
//
// Invariant after every transition: available + len(bookings) == TotalTickets,
// and a user id appears in at most one of bookings or waitingList.
type Event struct {
	ID           string
	TotalTickets int

	mu          sync.Mutex
	available   int
	bookings    []User
	waitingList []User
}

// NewEvent creates an aggregate with the full pool available.
func NewEvent(id string, totalTickets int) (*Event, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "event id must not be empty")
	}
	if totalTickets < 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "total tickets must be positive, got %d", totalTickets)
	}
	return &Event{
		ID:           id,
		TotalTickets: totalTickets,
		available:    totalTickets,
	}, nil
}

// Book gives u a ticket if one is available, otherwise appends u to the
// waiting list. The returned undo reverses the transition exactly; the
// caller uses it when the ledger write fails.
func (e *Event) Book(u User) (Status, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.holds(u.ID) {
		return "", nil, errors.Wrapf(ErrAlreadyBooked, "user %q on event %q", u.ID, e.ID)
	}

	if e.available > 0 {
		e.bookings = append(e.bookings, u)
		e.available--
		undo := func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.removeBooking(u.ID)
			e.available++
		}
		return StatusBooked, undo, nil
	}

	e.waitingList = append(e.waitingList, u)
	undo := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.removeWaiting(u.ID)
	}
	return StatusWaiting, undo, nil
}

// CancelOutcome reports what a Cancel transition did.
type CancelOutcome struct {
	// From is the status the cancelled user held: booked or waiting.
	From Status
	// Promoted is the waiting-list head that took over the freed ticket,
	// nil when the user was cancelled from the waiting list or no one waited.
	Promoted *User
}

// Cancel removes the user's booking or waiting spot. Cancelling a booking
// frees a ticket; if anyone is waiting, the earliest waiter is promoted into
// it as part of the same transition. Returns ErrNotFound when the user holds
// neither. The undo restores the aggregate to its exact prior state.
func (e *Event) Cancel(userID string) (CancelOutcome, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if idx := indexOf(e.bookings, userID); idx >= 0 {
		cancelled := e.bookings[idx]
		e.bookings = append(e.bookings[:idx], e.bookings[idx+1:]...)
		e.available++

		out := CancelOutcome{From: StatusBooked}
		var promoted User
		if len(e.waitingList) > 0 {
			promoted = e.waitingList[0]
			e.waitingList = e.waitingList[1:]
			e.bookings = append(e.bookings, promoted)
			e.available--
			out.Promoted = &promoted
		}

		undo := func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if out.Promoted != nil {
				e.removeBooking(promoted.ID)
				e.waitingList = append([]User{promoted}, e.waitingList...)
				e.available++
			}
			rest := append([]User{}, e.bookings[idx:]...)
			e.bookings = append(append(e.bookings[:idx], cancelled), rest...)
			e.available--
		}
		return out, undo, nil
	}

	if idx := indexOf(e.waitingList, userID); idx >= 0 {
		cancelled := e.waitingList[idx]
		e.waitingList = append(e.waitingList[:idx], e.waitingList[idx+1:]...)
		// No ticket was freed, so no promotion happens on this path.
		undo := func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			rest := append([]User{}, e.waitingList[idx:]...)
			e.waitingList = append(append(e.waitingList[:idx], cancelled), rest...)
		}
		return CancelOutcome{From: StatusWaiting}, undo, nil
	}

	return CancelOutcome{}, nil, errors.Wrapf(ErrNotFound, "no booking for user %q on event %q", userID, e.ID)
}

// StatusSnapshot is a point-in-time view of the pool.
type StatusSnapshot struct {
	EventID          string `json:"eventId"`
	AvailableTickets int    `json:"availableTickets"`
	WaitingListCount int    `json:"waitingListCount"`
}

// Snapshot returns a consistent view without queueing behind mutators.
func (e *Event) Snapshot() StatusSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return StatusSnapshot{
		EventID:          e.ID,
		AvailableTickets: e.available,
		WaitingListCount: len(e.waitingList),
	}
}

// Available reports the current free-ticket count.
func (e *Event) Available() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// Bookings returns a copy of the current ticket holders in booking order.
func (e *Event) Bookings() []User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]User{}, e.bookings...)
}

// WaitingList returns a copy of the waiting users in promotion order.
func (e *Event) WaitingList() []User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]User{}, e.waitingList...)
}

func (e *Event) holds(userID string) bool {
	return indexOf(e.bookings, userID) >= 0 || indexOf(e.waitingList, userID) >= 0
}

func (e *Event) removeBooking(userID string) {
	if idx := indexOf(e.bookings, userID); idx >= 0 {
		e.bookings = append(e.bookings[:idx], e.bookings[idx+1:]...)
	}
}

func (e *Event) removeWaiting(userID string) {
	if idx := indexOf(e.waitingList, userID); idx >= 0 {
		e.waitingList = append(e.waitingList[:idx], e.waitingList[idx+1:]...)
	}
}

func indexOf(users []User, id string) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
