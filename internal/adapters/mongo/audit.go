// Package mongo keeps a best-effort secondary audit trail of ticket
// transitions. The order ledger, not this collection, is the durable
// record; failures here are logged and swallowed by the caller.
package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tickethub/ticket-inventory/internal/domain"
	"github.com/tickethub/ticket-inventory/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("ticket_audit"),
		logger: logger,
	}
}

type auditEntry struct {
	ID        uuid.UUID `bson:"_id"`
	EventID   string    `bson:"event_id"`
	UserID    string    `bson:"user_id"`
	UserName  string    `bson:"user_name"`
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
}

func (a *AuditLogger) LogTransition(ctx context.Context, eventID, userID, userName string, status domain.Status) error {
	entry := auditEntry{
		ID:        uuid.New(),
		EventID:   eventID,
		UserID:    userID,
		UserName:  userName,
		Status:    string(status),
		Timestamp: time.Now(),
	}
	_, err := a.coll.InsertOne(ctx, entry)
	if err != nil {
		a.logger.Error("failed to insert audit entry", err)
		return err
	}
	return nil
}

// ListByEvent returns the audit entries for one event, oldest first.
func (a *AuditLogger) ListByEvent(ctx context.Context, eventID string) ([]domain.Order, error) {
	cur, err := a.coll.Find(ctx, bson.M{"event_id": eventID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []domain.Order
	for cur.Next(ctx) {
		var e auditEntry
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		orders = append(orders, domain.Order{
			ID:        e.ID,
			EventID:   e.EventID,
			UserID:    e.UserID,
			UserName:  e.UserName,
			Status:    domain.Status(e.Status),
			CreatedAt: e.Timestamp,
		})
	}
	return orders, cur.Err()
}
