// Package events carries post-commit change notifications to live readers.
package events

import (
	"context"
	"time"
)

// Kind names what changed.
type Kind string

const (
	ExpenseCreated Kind = "expense.created"
	ExpenseUpdated Kind = "expense.updated"
	ExpenseDeleted Kind = "expense.deleted"
	WalletChanged  Kind = "wallet.changed"
	AdvanceChanged Kind = "advance.changed"
	RefundChanged  Kind = "refund.changed"
	SavingsChanged Kind = "savings.changed"
	NoteChanged    Kind = "note.changed"
)

// Event tells a subscriber that committed state changed and should be re-read.
type Event struct {
	Kind     Kind      `json:"kind"`
	UserID   string    `json:"userId"`
	EntityID string    `json:"entityId,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher sends events after a transaction commits.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Broker is a Publisher that also feeds per-user subscriptions. The channel
// returned by Subscribe is closed once ctx is done.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, userID string) (<-chan Event, error)
}
