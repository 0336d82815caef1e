package storage

import (
	"context"
	"fmt"

	"wallet-ledger/internal/models"
)

const (
	advanceColumns = "id, name, amount, purpose, status, created_at, updated_at"
	refundColumns  = "id, name, amount, purpose, contact_number, status, created_at, updated_at"
)

func scanAdvance(s scanner) (*models.Advance, error) {
	var a models.Advance
	var status string
	if err := s.Scan(&a.ID, &a.Name, &a.Amount, &a.Purpose, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.Status, err = models.ParseAdvanceStatus(status); err != nil {
		return nil, fmt.Errorf("advance %s: %w", a.ID, err)
	}
	return &a, nil
}

func scanRefund(s scanner) (*models.Refund, error) {
	var r models.Refund
	var status string
	if err := s.Scan(&r.ID, &r.Name, &r.Amount, &r.Purpose, &r.ContactNumber, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if r.Status, err = models.ParseRefundStatus(status); err != nil {
		return nil, fmt.Errorf("refund %s: %w", r.ID, err)
	}
	return &r, nil
}

// InsertAdvance creates an advance.
func (t *Tx) InsertAdvance(ctx context.Context, userID string, a *models.Advance) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO advances ("+advanceColumns+", user_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.Name, a.Amount, a.Purpose, string(a.Status), a.CreatedAt.UTC(), a.UpdatedAt.UTC(), userID,
	)
	return err
}

// GetAdvance retrieves an advance inside the transaction.
func (t *Tx) GetAdvance(ctx context.Context, userID, id string) (*models.Advance, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+advanceColumns+" FROM advances WHERE user_id = ? AND id = ?",
		userID, id,
	)
	a, err := scanAdvance(row)
	return a, notFound(err)
}

// UpdateAdvance overwrites the name, amount, purpose and status of an advance.
func (t *Tx) UpdateAdvance(ctx context.Context, userID string, a *models.Advance) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE advances SET name = ?, amount = ?, purpose = ?, status = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		a.Name, a.Amount, a.Purpose, string(a.Status), a.UpdatedAt.UTC(), userID, a.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// DeleteAdvance removes an advance.
func (t *Tx) DeleteAdvance(ctx context.Context, userID, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM advances WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// InsertRefund creates a refund.
func (t *Tx) InsertRefund(ctx context.Context, userID string, r *models.Refund) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO refunds ("+refundColumns+", user_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Name, r.Amount, r.Purpose, r.ContactNumber, string(r.Status), r.CreatedAt.UTC(), r.UpdatedAt.UTC(), userID,
	)
	return err
}

// GetRefund retrieves a refund inside the transaction.
func (t *Tx) GetRefund(ctx context.Context, userID, id string) (*models.Refund, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+refundColumns+" FROM refunds WHERE user_id = ? AND id = ?",
		userID, id,
	)
	r, err := scanRefund(row)
	return r, notFound(err)
}

// UpdateRefund overwrites the editable fields and status of a refund.
func (t *Tx) UpdateRefund(ctx context.Context, userID string, r *models.Refund) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE refunds SET name = ?, amount = ?, purpose = ?, contact_number = ?, status = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		r.Name, r.Amount, r.Purpose, r.ContactNumber, string(r.Status), r.UpdatedAt.UTC(), userID, r.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// DeleteRefund removes a refund.
func (t *Tx) DeleteRefund(ctx context.Context, userID, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM refunds WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// ListAdvances retrieves a user's advances, newest first.
func (db *DB) ListAdvances(ctx context.Context, userID string) ([]models.Advance, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+advanceColumns+" FROM advances WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	advances := []models.Advance{}
	for rows.Next() {
		a, err := scanAdvance(rows)
		if err != nil {
			return nil, err
		}
		advances = append(advances, *a)
	}
	return advances, rows.Err()
}

// ListRefunds retrieves a user's refunds, newest first.
func (db *DB) ListRefunds(ctx context.Context, userID string) ([]models.Refund, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+refundColumns+" FROM refunds WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := []models.Refund{}
	for rows.Next() {
		r, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, *r)
	}
	return refunds, rows.Err()
}
