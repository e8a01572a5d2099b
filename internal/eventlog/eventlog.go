// Package eventlog records household activity (expenses created, shares
// paid, members joining) asynchronously, so request handling never
// blocks on the audit trail.
package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

const (
	TypeExpenseCreated Type = "expense_created"
	TypeExpenseDeleted Type = "expense_deleted"
	TypeSharePaid      Type = "share_paid"
	TypeShareUnpaid    Type = "share_unpaid"
	TypeMemberJoined   Type = "member_joined"
)

// Event is one activity-log entry.
type Event struct {
	ID          string            `json:"id"`
	HouseholdID string            `json:"household_id"`
	ActorID     string            `json:"actor_id"`
	Type        Type              `json:"type"`
	Data        map[string]string `json:"data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Option customizes an event under construction.
type Option func(*Event)

// WithActor sets the user who performed the action.
func WithActor(userID string) Option {
	return func(e *Event) {
		e.ActorID = userID
	}
}

// WithData attaches structured details to the event.
func WithData(data map[string]string) Option {
	return func(e *Event) {
		e.Data = data
	}
}

// NewEvent creates an event with a fresh ID and timestamp.
func NewEvent(householdID string, eventType Type, opts ...Option) Event {
	e := Event{
		ID:          uuid.New().String(),
		HouseholdID: householdID,
		Type:        eventType,
		CreatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Sink persists events. Implemented by the SQLite store.
type Sink interface {
	SaveEvent(ctx context.Context, e Event) error
}
