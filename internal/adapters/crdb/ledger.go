// Package crdb persists the order ledger in CockroachDB (or any
// postgres-wire database) through pgx.
package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tickethub/ticket-inventory/internal/domain"
)

type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	event_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	user_name TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('booked', 'waiting', 'cancelled')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS orders_event_user_idx ON orders (event_id, user_id, created_at DESC);
`

// EnsureSchema creates the orders table if it does not exist yet.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, schema)
	return err
}

// RecordAttempt appends a new order row for a booking attempt and returns
// its generated id. I/O failures are marked as persistence errors.
func (l *Ledger) RecordAttempt(ctx context.Context, eventID, userID, userName string, status domain.Status) (uuid.UUID, error) {
	id := uuid.New()
	_, err := l.pool.Exec(ctx, `
		INSERT INTO orders (id, event_id, user_id, user_name, status)
		VALUES ($1, $2, $3, $4, $5)
	`, id, eventID, userID, userName, status)
	if err != nil {
		return uuid.Nil, errors.Mark(errors.Wrap(err, "insert order"), domain.ErrPersistence)
	}
	return id, nil
}

// UpdateStatus moves the most recent (event, user) row in from to to.
// Returns false with no error when no row matched, so the caller can log
// the no-op without treating it as a write failure.
func (l *Ledger) UpdateStatus(ctx context.Context, eventID, userID string, from, to domain.Status) (bool, error) {
	tag, err := l.pool.Exec(ctx, `
		UPDATE orders SET status = $4
		WHERE id = (
			SELECT id FROM orders
			WHERE event_id = $1 AND user_id = $2 AND status = $3
			ORDER BY created_at DESC
			LIMIT 1
		)
	`, eventID, userID, from, to)
	if err != nil {
		return false, errors.Mark(errors.Wrapf(err, "update order %s -> %s", from, to), domain.ErrPersistence)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByEvent returns every recorded attempt for an event, oldest first.
// This is the audit/recovery query; live state is never rebuilt from it
// automatically.
func (l *Ledger) ListByEvent(ctx context.Context, eventID string) ([]domain.Order, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, event_id, user_id, user_name, status, created_at
		FROM orders WHERE event_id = $1
		ORDER BY created_at ASC
	`, eventID)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "list orders"), domain.ErrPersistence)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.EventID, &o.UserID, &o.UserName, &o.Status, &o.CreatedAt); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "scan order"), domain.ErrPersistence)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
