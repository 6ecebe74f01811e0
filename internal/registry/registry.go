// Package registry is the process-wide directory of event aggregates.
package registry

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/tickethub/ticket-inventory/internal/domain"
)

// Registry owns the lifecycle of every known event aggregate. It only
// guards the directory itself; mutation of an aggregate's contents is
// serialized elsewhere, per event.
type Registry struct {
	mu     sync.RWMutex
	events map[string]*domain.Event
}

func New() *Registry {
	return &Registry{events: make(map[string]*domain.Event)}
}

// Create registers a new aggregate. Fails with ErrAlreadyExists when the id
// is already known and ErrInvalidArgument on a non-positive capacity.
func (r *Registry) Create(eventID string, totalTickets int) (*domain.Event, error) {
	event, err := domain.NewEvent(eventID, totalTickets)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[eventID]; ok {
		return nil, errors.Wrapf(domain.ErrAlreadyExists, "event %q", eventID)
	}
	r.events[eventID] = event
	return event, nil
}

// Get returns the aggregate or ErrNotFound.
func (r *Registry) Get(eventID string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[eventID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "event %q", eventID)
	}
	return event, nil
}

// Len reports the number of registered events.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
