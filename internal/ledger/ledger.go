// Package ledger keeps payment source balances consistent with the expenses
// charged to them. Every expense write and its balance effect commit in one
// storage transaction.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wallet-ledger/internal/events"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"
)

// DefaultCurrency is stored on expenses created without an explicit currency.
const DefaultCurrency = "INR"

// Ledger owns the balance rules and the expense transaction coordinator.
type Ledger struct {
	db       *storage.DB
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
	currency string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithDefaultCurrency sets the currency stored when a draft has none.
func WithDefaultCurrency(code string) Option {
	return func(l *Ledger) {
		if code != "" {
			l.currency = code
		}
	}
}

// New creates a Ledger. pub may be nil, in which case no change events
// are sent.
func New(db *storage.DB, pub events.Publisher, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		db:       db,
		events:   pub,
		logger:   logger,
		now:      time.Now,
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// fail passes domain errors through untouched and reports everything else
// as ErrTransactionFailed.
func (l *Ledger) fail(op string, err error) error {
	if models.IsDomainError(err) {
		return err
	}
	l.logger.Error("ledger transaction failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w: %w", op, models.ErrTransactionFailed, err)
}

func (l *Ledger) publish(ctx context.Context, kind events.Kind, userID, entityID string) {
	if l.events == nil {
		return
	}
	ev := events.Event{Kind: kind, UserID: userID, EntityID: entityID, At: l.now().UTC()}
	if err := l.events.Publish(ctx, ev); err != nil {
		l.logger.Warn("failed to publish change event", "kind", kind, "user_id", userID, "error", err)
	}
}
