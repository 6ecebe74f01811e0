// Package service coordinates the booking state machine: gate admission,
// in-memory transition, write-through ledger recording with rollback, and
// best-effort lifecycle notifications.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tickethub/ticket-inventory/internal/domain"
	"github.com/tickethub/ticket-inventory/internal/gate"
	"github.com/tickethub/ticket-inventory/internal/observability"
	"github.com/tickethub/ticket-inventory/internal/registry"
)

// Ledger is the durable write-through journal of booking attempts.
type Ledger interface {
	RecordAttempt(ctx context.Context, eventID, userID, userName string, status domain.Status) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, eventID, userID string, from, to domain.Status) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Order, error)
}

// Publisher emits ticket lifecycle messages. Failures are logged, never
// surfaced: messaging is not part of the booking transaction.
type Publisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

// Auditor records transitions in a secondary audit trail, best-effort.
type Auditor interface {
	LogTransition(ctx context.Context, eventID, userID, userName string, status domain.Status) error
}

type Service struct {
	registry *registry.Registry
	gate     *gate.Gate
	ledger   Ledger
	pub      Publisher
	audit    Auditor
	logger   observability.Logger
	retries  int
}

// New wires a Service. pub and audit may be nil. retries bounds the internal
// ledger-write retry loop; values below 1 are raised to 1.
func New(reg *registry.Registry, g *gate.Gate, ledger Ledger, pub Publisher, audit Auditor, logger observability.Logger, retries int) *Service {
	if retries < 1 {
		retries = 1
	}
	return &Service{
		registry: reg,
		gate:     g,
		ledger:   ledger,
		pub:      pub,
		audit:    audit,
		logger:   logger,
		retries:  retries,
	}
}

// InitializeEvent registers a new event with the given capacity.
func (s *Service) InitializeEvent(ctx context.Context, eventID string, totalTickets int) error {
	if _, err := s.registry.Create(eventID, totalTickets); err != nil {
		return err
	}
	observability.EventsInitialized.Inc()
	s.logger.WithField("event_id", eventID).Info("event initialized")
	return nil
}

// BookResult reports the outcome of a booking attempt.
type BookResult struct {
	Status  domain.Status
	OrderID uuid.UUID
}

// BookTicket books a ticket for user on eventID, falling back to the waiting
// list when the pool is exhausted. The outcome is durably recorded before it
// is reported; on a failed ledger write the in-memory transition is rolled
// back and a persistence error returned.
func (s *Service) BookTicket(ctx context.Context, eventID string, user domain.User) (BookResult, error) {
	if user.ID == "" || user.Name == "" {
		return BookResult{}, errors.Wrap(domain.ErrInvalidArgument, "user id and name are required")
	}

	event, err := s.registry.Get(eventID)
	if err != nil {
		return BookResult{}, err
	}

	var res BookResult
	err = s.gate.RunExclusive(ctx, eventID, func() error {
		status, undo, err := event.Book(user)
		if err != nil {
			return err
		}

		// Once admitted the operation runs to completion; the caller's
		// cancellation no longer applies.
		dctx := context.WithoutCancel(ctx)
		orderID, err := s.recordWithRetry(dctx, eventID, user, status)
		if err != nil {
			undo()
			return err
		}

		res = BookResult{Status: status, OrderID: orderID}
		return nil
	})
	if err != nil {
		return BookResult{}, err
	}

	observability.BookingsTotal.WithLabelValues(string(res.Status)).Inc()
	s.observeWaitingDepth(event)
	s.notify(ctx, "ticket."+string(res.Status), eventID, user, res.Status)
	return res, nil
}

// CancelResult reports a cancellation and any promotion it triggered.
type CancelResult struct {
	// From is the status the user held before cancelling.
	From domain.Status
	// PromotedUserID names the waiting user who took the freed ticket,
	// empty when no promotion happened.
	PromotedUserID string
}

// CancelBooking cancels userID's booking or waiting spot on eventID. When a
// booked ticket is freed and someone is waiting, the earliest waiter is
// promoted within the same exclusive operation. Memory and ledger either
// both reflect the full transition or neither does.
func (s *Service) CancelBooking(ctx context.Context, eventID, userID string) (CancelResult, error) {
	if userID == "" {
		return CancelResult{}, errors.Wrap(domain.ErrInvalidArgument, "user id is required")
	}

	event, err := s.registry.Get(eventID)
	if err != nil {
		return CancelResult{}, err
	}

	var res CancelResult
	var promoted *domain.User
	err = s.gate.RunExclusive(ctx, eventID, func() error {
		out, undo, err := event.Cancel(userID)
		if err != nil {
			return err
		}

		dctx := context.WithoutCancel(ctx)
		matched, err := s.updateWithRetry(dctx, eventID, userID, out.From, domain.StatusCancelled)
		if err != nil {
			undo()
			return err
		}
		if !matched {
			s.logger.WithField("event_id", eventID).WithField("user_id", userID).
				Warn("no ledger row matched cancellation")
		}

		if out.Promoted != nil {
			ok, err := s.updateWithRetry(dctx, eventID, out.Promoted.ID, domain.StatusWaiting, domain.StatusBooked)
			if err != nil {
				undo()
				s.compensateCancellation(dctx, eventID, userID, out.From, matched)
				return err
			}
			if !ok {
				s.logger.WithField("event_id", eventID).WithField("user_id", out.Promoted.ID).
					Warn("no ledger row matched promotion")
			}
			res.PromotedUserID = out.Promoted.ID
			promoted = out.Promoted
		}

		res.From = out.From
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	observability.CancellationsTotal.Inc()
	s.observeWaitingDepth(event)
	s.notify(ctx, "ticket.cancelled", eventID, domain.User{ID: userID}, domain.StatusCancelled)
	if promoted != nil {
		observability.PromotionsTotal.Inc()
		s.notify(ctx, "ticket.promoted", eventID, *promoted, domain.StatusBooked)
	}
	return res, nil
}

// GetStatus returns a point-in-time snapshot without queueing behind
// mutating operations.
func (s *Service) GetStatus(ctx context.Context, eventID string) (domain.StatusSnapshot, error) {
	event, err := s.registry.Get(eventID)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	return event.Snapshot(), nil
}

// OrderHistory returns the persisted ledger rows for an event, for audit.
func (s *Service) OrderHistory(ctx context.Context, eventID string) ([]domain.Order, error) {
	if _, err := s.registry.Get(eventID); err != nil {
		return nil, err
	}
	return s.ledger.ListByEvent(ctx, eventID)
}

func (s *Service) recordWithRetry(ctx context.Context, eventID string, user domain.User, status domain.Status) (uuid.UUID, error) {
	var lastErr error
	for i := 0; i < s.retries; i++ {
		start := time.Now()
		id, err := s.ledger.RecordAttempt(ctx, eventID, user.ID, user.Name, status)
		observability.LedgerWriteDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			return id, nil
		}
		lastErr = err
		s.backoff(i)
	}
	return uuid.Nil, lastErr
}

func (s *Service) updateWithRetry(ctx context.Context, eventID, userID string, from, to domain.Status) (bool, error) {
	var lastErr error
	for i := 0; i < s.retries; i++ {
		start := time.Now()
		matched, err := s.ledger.UpdateStatus(ctx, eventID, userID, from, to)
		observability.LedgerWriteDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			return matched, nil
		}
		lastErr = err
		s.backoff(i)
	}
	return false, lastErr
}

// compensateCancellation reverts an already-written cancellation row after a
// later write of the same transition failed, so the ledger does not record a
// half-applied cancel+promote.
func (s *Service) compensateCancellation(ctx context.Context, eventID, userID string, from domain.Status, matched bool) {
	if !matched {
		return
	}
	if _, err := s.updateWithRetry(ctx, eventID, userID, domain.StatusCancelled, from); err != nil {
		s.logger.WithField("event_id", eventID).WithField("user_id", userID).
			Error("failed to compensate cancellation, ledger and memory diverge: ", err)
	}
}

func (s *Service) backoff(attempt int) {
	if attempt+1 < s.retries {
		time.Sleep(time.Duration(1<<attempt) * 50 * time.Millisecond)
	}
}

func (s *Service) observeWaitingDepth(event *domain.Event) {
	snap := event.Snapshot()
	observability.WaitingListDepth.WithLabelValues(snap.EventID).Set(float64(snap.WaitingListCount))
}

func (s *Service) notify(ctx context.Context, key, eventID string, user domain.User, status domain.Status) {
	payload, _ := json.Marshal(map[string]any{
		"event_id": eventID,
		"user_id":  user.ID,
		"status":   status,
	})
	if s.pub != nil {
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		if err := s.pub.Publish(ctx, key, msg); err != nil {
			s.logger.WithField("routing_key", key).Error("failed to publish lifecycle message: ", err)
		}
	}
	if s.audit != nil {
		if err := s.audit.LogTransition(ctx, eventID, user.ID, user.Name, status); err != nil {
			s.logger.WithField("event_id", eventID).Error("failed to write audit entry: ", err)
		}
	}
}
