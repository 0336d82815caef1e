// Package notes is a per-user ordered checklist.
package notes

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
)

// Checklist manages a user's notes.
type Checklist struct {
	db     *storage.DB
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Checklist.
func New(db *storage.DB, pub events.Publisher, logger *slog.Logger) *Checklist {
	return &Checklist{db: db, events: pub, logger: logger, now: time.Now}
}

// SetClock overrides the time source used for timestamps.
func (c *Checklist) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Checklist) fail(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, models.ErrNoteNotFound)
	}
	if models.IsDomainError(err) {
		return err
	}
	c.logger.Error("note transaction failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w: %w", op, models.ErrTransactionFailed, err)
}

func (c *Checklist) publish(ctx context.Context, userID, id string) {
	if c.events == nil {
		return
	}
	ev := events.Event{Kind: events.NoteChanged, UserID: userID, EntityID: id, At: c.now().UTC()}
	if err := c.events.Publish(ctx, ev); err != nil {
		c.logger.Warn("failed to publish change event", "kind", ev.Kind, "user_id", userID, "error", err)
	}
}

func clean(draft models.NoteDraft) models.NoteDraft {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Body = strings.TrimSpace(draft.Body)
	return draft
}

// Add appends an open note to the end of the checklist.
func (c *Checklist) Add(ctx context.Context, userID string, draft models.NoteDraft) (*models.Note, error) {
	draft = clean(draft)
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	now := c.now().UTC()
	n := &models.Note{
		ID:        uuid.NewString(),
		Title:     draft.Title,
		Body:      draft.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := c.db.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.InsertNote(ctx, userID, n)
	})
	if err != nil {
		return nil, c.fail("add note", err)
	}
	c.publish(ctx, userID, n.ID)
	return n, nil
}

// Edit changes the title and body of a note.
func (c *Checklist) Edit(ctx context.Context, userID, id string, draft models.NoteDraft) (*models.Note, error) {
	draft = clean(draft)
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	return c.change(ctx, "edit note", userID, id, func(n *models.Note) {
		n.Title = draft.Title
		n.Body = draft.Body
	})
}

// Toggle flips a note between open and done.
func (c *Checklist) Toggle(ctx context.Context, userID, id string) (*models.Note, error) {
	return c.change(ctx, "toggle note", userID, id, func(n *models.Note) {
		n.Done = !n.Done
	})
}

func (c *Checklist) change(ctx context.Context, op, userID, id string, apply func(*models.Note)) (*models.Note, error) {
	var n *models.Note
	err := c.db.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		if n, err = tx.GetNote(ctx, userID, id); err != nil {
			return err
		}
		apply(n)
		n.UpdatedAt = c.now().UTC()
		return tx.UpdateNote(ctx, userID, n)
	})
	if err != nil {
		return nil, c.fail(op, err)
	}
	c.publish(ctx, userID, id)
	return n, nil
}

// Delete removes a note.
func (c *Checklist) Delete(ctx context.Context, userID, id string) error {
	err := c.db.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.DeleteNote(ctx, userID, id)
	})
	if err != nil {
		return c.fail("delete note", err)
	}
	c.publish(ctx, userID, id)
	return nil
}

// List returns the checklist in order.
func (c *Checklist) List(ctx context.Context, userID string) ([]models.Note, error) {
	list, err := c.db.ListNotes(ctx, userID)
	if err != nil {
		return nil, c.fail("list notes", err)
	}
	return list, nil
}
