package storage

import (
	"context"

	"wallet-ledger/internal/models"
)

const noteColumns = "id, title, body, done, position, created_at, updated_at"

func scanNote(s scanner) (*models.Note, error) {
	var n models.Note
	if err := s.Scan(&n.ID, &n.Title, &n.Body, &n.Done, &n.Order, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// InsertNote appends a note to the end of the user's checklist and sets its
// Order.
func (t *Tx) InsertNote(ctx context.Context, userID string, n *models.Note) error {
	err := t.tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM notes WHERE user_id = ?", userID,
	).Scan(&n.Order)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		"INSERT INTO notes ("+noteColumns+", user_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		n.ID, n.Title, n.Body, n.Done, n.Order, n.CreatedAt.UTC(), n.UpdatedAt.UTC(), userID,
	)
	return err
}

// GetNote retrieves a note inside the transaction.
func (t *Tx) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE user_id = ? AND id = ?",
		userID, id,
	)
	n, err := scanNote(row)
	return n, notFound(err)
}

// UpdateNote overwrites the title, body and done flag of a note.
func (t *Tx) UpdateNote(ctx context.Context, userID string, n *models.Note) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE notes SET title = ?, body = ?, done = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		n.Title, n.Body, n.Done, n.UpdatedAt.UTC(), userID, n.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// DeleteNote removes a note. The remaining notes keep their order.
func (t *Tx) DeleteNote(ctx context.Context, userID, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM notes WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// ListNotes retrieves a user's checklist in order.
func (db *DB) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE user_id = ? ORDER BY position, created_at",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}
