// Package events publishes domain change notifications.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the write paths.
const (
	TransactionCreated = "transaction.created"
	TransactionUpdated = "transaction.updated"
	TransactionDeleted = "transaction.deleted"
	BudgetSaved        = "budget.saved"
	BudgetDeleted      = "budget.deleted"
	PaymentSaved       = "payment.saved"
	PaymentDeleted     = "payment.deleted"
	PaymentOverdue     = "payment.overdue"
)

// Event is a lightweight change notification. Consumers fetch the full
// entity themselves using EntityID and Version.
type Event struct {
	Type       string    `json:"type"`
	Owner      uuid.UUID `json:"owner"`
	EntityID   uuid.UUID `json:"entityId"`
	Version    int64     `json:"version,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New builds an event stamped with the current time.
func New(eventType string, owner, entityID uuid.UUID, version int64) Event {
	return Event{
		Type:       eventType,
		Owner:      owner,
		EntityID:   entityID,
		Version:    version,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON encodes the event body.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
