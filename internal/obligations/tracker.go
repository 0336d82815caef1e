// Package obligations tracks money lent out (advances) and money owed back
// (refunds). They never touch payment source balances.
package obligations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wallet-ledger/internal/events"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tracker manages advances and refunds.
type Tracker struct {
	db     *storage.DB
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Tracker.
func New(db *storage.DB, pub events.Publisher, logger *slog.Logger) *Tracker {
	return &Tracker{db: db, events: pub, logger: logger, now: time.Now}
}

// SetClock overrides the time source used for timestamps.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

func (t *Tracker) fail(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, models.ErrObligationNotFound)
	}
	if models.IsDomainError(err) {
		return err
	}
	t.logger.Error("obligation transaction failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w: %w", op, models.ErrTransactionFailed, err)
}

func (t *Tracker) publish(ctx context.Context, kind events.Kind, userID, id string) {
	if t.events == nil {
		return
	}
	ev := events.Event{Kind: kind, UserID: userID, EntityID: id, At: t.now().UTC()}
	if err := t.events.Publish(ctx, ev); err != nil {
		t.logger.Warn("failed to publish change event", "kind", kind, "user_id", userID, "error", err)
	}
}

// AddAdvance records money lent out. New advances are outstanding.
func (t *Tracker) AddAdvance(ctx context.Context, userID string, draft models.AdvanceDraft) (*models.Advance, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	now := t.now().UTC()
	a := &models.Advance{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(draft.Name),
		Amount:    draft.Amount,
		Purpose:   strings.TrimSpace(draft.Purpose),
		Status:    models.AdvanceOutstanding,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := t.db.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.InsertAdvance(ctx, userID, a)
	})
	if err != nil {
		return nil, t.fail("add advance", err)
	}
	t.publish(ctx, events.AdvanceChanged, userID, a.ID)
	return a, nil
}

// EditAdvance changes the name, amount and purpose of an advance. The
// status is left as it is.
func (t *Tracker) EditAdvance(ctx context.Context, userID, id string, draft models.AdvanceDraft) (*models.Advance, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	return t.changeAdvance(ctx, "edit advance", userID, id, func(a *models.Advance) {
		a.Name = strings.TrimSpace(draft.Name)
		a.Amount = draft.Amount
		a.Purpose = strings.TrimSpace(draft.Purpose)
	})
}

// MarkReturned sets an advance to returned. Marking it again is a no-op
// apart from the timestamp.
func (t *Tracker) MarkReturned(ctx context.Context, userID, id string) (*models.Advance, error) {
	return t.changeAdvance(ctx, "mark advance returned", userID, id, func(a *models.Advance) {
		a.Status = models.AdvanceReturned
	})
}

func (t *Tracker) changeAdvance(ctx context.Context, op, userID, id string, apply func(*models.Advance)) (*models.Advance, error) {
	var a *models.Advance
	err := t.db.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		if a, err = tx.GetAdvance(ctx, userID, id); err != nil {
			return err
		}
		apply(a)
		a.UpdatedAt = t.now().UTC()
		return tx.UpdateAdvance(ctx, userID, a)
	})
	if err != nil {
		return nil, t.fail(op, err)
	}
	t.publish(ctx, events.AdvanceChanged, userID, id)
	return a, nil
}

// DeleteAdvance removes an advance.
func (t *Tracker) DeleteAdvance(ctx context.Context, userID, id string) error {
	err := t.db.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.DeleteAdvance(ctx, userID, id)
	})
	if err != nil {
		return t.fail("delete advance", err)
	}
	t.publish(ctx, events.AdvanceChanged, userID, id)
	return nil
}

// ListAdvances returns a user's advances, newest first.
func (t *Tracker) ListAdvances(ctx context.Context, userID string) ([]models.Advance, error) {
	advances, err := t.db.ListAdvances(ctx, userID)
	if err != nil {
		return nil, t.fail("list advances", err)
	}
	return advances, nil
}

// AddRefund records money owed to the user. New refunds are pending.
func (t *Tracker) AddRefund(ctx context.Context, userID string, draft models.RefundDraft) (*models.Refund, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	now := t.now().UTC()
	r := &models.Refund{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(draft.Name),
		Amount:        draft.Amount,
		Purpose:       strings.TrimSpace(draft.Purpose),
		ContactNumber: strings.TrimSpace(draft.ContactNumber),
		Status:        models.RefundPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := t.db.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.InsertRefund(ctx, userID, r)
	})
	if err != nil {
		return nil, t.fail("add refund", err)
	}
	t.publish(ctx, events.RefundChanged, userID, r.ID)
	return r, nil
}

// EditRefund changes everything but the status of a refund.
func (t *Tracker) EditRefund(ctx context.Context, userID, id string, draft models.RefundDraft) (*models.Refund, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	return t.changeRefund(ctx, "edit refund", userID, id, func(r *models.Refund) {
		r.Name = strings.TrimSpace(draft.Name)
		r.Amount = draft.Amount
		r.Purpose = strings.TrimSpace(draft.Purpose)
		r.ContactNumber = strings.TrimSpace(draft.ContactNumber)
	})
}

// MarkReceived sets a refund to received.
func (t *Tracker) MarkReceived(ctx context.Context, userID, id string) (*models.Refund, error) {
	return t.changeRefund(ctx, "mark refund received", userID, id, func(r *models.Refund) {
		r.Status = models.RefundReceived
	})
}

func (t *Tracker) changeRefund(ctx context.Context, op, userID, id string, apply func(*models.Refund)) (*models.Refund, error) {
	var r *models.Refund
	err := t.db.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		if r, err = tx.GetRefund(ctx, userID, id); err != nil {
			return err
		}
		apply(r)
		r.UpdatedAt = t.now().UTC()
		return tx.UpdateRefund(ctx, userID, r)
	})
	if err != nil {
		return nil, t.fail(op, err)
	}
	t.publish(ctx, events.RefundChanged, userID, id)
	return r, nil
}

// DeleteRefund removes a refund.
func (t *Tracker) DeleteRefund(ctx context.Context, userID, id string) error {
	err := t.db.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.DeleteRefund(ctx, userID, id)
	})
	if err != nil {
		return t.fail("delete refund", err)
	}
	t.publish(ctx, events.RefundChanged, userID, id)
	return nil
}

// ListRefunds returns a user's refunds, newest first.
func (t *Tracker) ListRefunds(ctx context.Context, userID string) ([]models.Refund, error) {
	refunds, err := t.db.ListRefunds(ctx, userID)
	if err != nil {
		return nil, t.fail("list refunds", err)
	}
	return refunds, nil
}

// AdvanceTotals sums advances by status.
func AdvanceTotals(advances []models.Advance) models.AdvanceTotals {
	totals := models.AdvanceTotals{Outstanding: decimal.Zero, Returned: decimal.Zero}
	for _, a := range advances {
		switch a.Status {
		case models.AdvanceOutstanding:
			totals.Outstanding = totals.Outstanding.Add(a.Amount)
		case models.AdvanceReturned:
			totals.Returned = totals.Returned.Add(a.Amount)
		}
	}
	return totals
}

// RefundTotals sums refunds by status.
func RefundTotals(refunds []models.Refund) models.RefundTotals {
	totals := models.RefundTotals{Pending: decimal.Zero, Received: decimal.Zero}
	for _, r := range refunds {
		switch r.Status {
		case models.RefundPending:
			totals.Pending = totals.Pending.Add(r.Amount)
		case models.RefundReceived:
			totals.Received = totals.Received.Add(r.Amount)
		}
	}
	return totals
}
