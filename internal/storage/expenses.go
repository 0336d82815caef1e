package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wallet-ledger/internal/models"
)

const expenseColumns = "id, amount, currency, category, purpose, source_type, source_id, date, attachments, created_at, updated_at"

func scanExpense(s scanner) (*models.Expense, error) {
	var e models.Expense
	var category, sourceType, sourceID, attachments string
	if err := s.Scan(&e.ID, &e.Amount, &e.Currency, &category, &e.Purpose,
		&sourceType, &sourceID, &e.Date, &attachments, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if e.Category, err = models.ParseCategory(category); err != nil {
		return nil, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	if e.Source, err = models.ParseSourceRef(sourceType, sourceID); err != nil {
		return nil, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(attachments), &e.Attachments); err != nil {
		return nil, fmt.Errorf("expense %s attachments: %w", e.ID, err)
	}
	if e.Attachments == nil {
		e.Attachments = []string{}
	}
	return &e, nil
}

func encodeAttachments(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	return string(b), err
}

func getExpense(ctx context.Context, q querier, userID, id string) (*models.Expense, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? AND id = ?",
		userID, id,
	)
	e, err := scanExpense(row)
	return e, notFound(err)
}

// InsertExpense inserts a new expense.
func (t *Tx) InsertExpense(ctx context.Context, userID string, e *models.Expense) error {
	attachments, err := encodeAttachments(e.Attachments)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+", user_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Amount, e.Currency, string(e.Category), e.Purpose,
		string(e.Source.Kind()), e.Source.ID(), e.Date.UTC(), attachments,
		e.CreatedAt.UTC(), e.UpdatedAt.UTC(), userID,
	)
	return err
}

// GetExpense retrieves a single expense inside the transaction.
func (t *Tx) GetExpense(ctx context.Context, userID, id string) (*models.Expense, error) {
	return getExpense(ctx, t.tx, userID, id)
}

// UpdateExpense overwrites every field of an existing expense except its
// creation time.
func (t *Tx) UpdateExpense(ctx context.Context, userID string, e *models.Expense) error {
	attachments, err := encodeAttachments(e.Attachments)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, currency = ?, category = ?, purpose = ?, source_type = ?,
			source_id = ?, date = ?, attachments = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		e.Amount, e.Currency, string(e.Category), e.Purpose, string(e.Source.Kind()),
		e.Source.ID(), e.Date.UTC(), attachments, e.UpdatedAt.UTC(), userID, e.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// DeleteExpense removes an expense.
func (t *Tx) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM expenses WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// GetExpense retrieves a single expense by ID.
func (db *DB) GetExpense(ctx context.Context, userID, id string) (*models.Expense, error) {
	return getExpense(ctx, db.conn, userID, id)
}

// ListExpenses retrieves a user's expenses matching the filter, ordered by
// date descending. From is inclusive, To is exclusive.
func (db *DB) ListExpenses(ctx context.Context, userID string, f models.ExpenseFilter) ([]models.Expense, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "date < ?")
		args = append(args, f.To.UTC())
	}
	if f.Source != nil {
		where = append(where, "source_type = ? AND source_id = ?")
		args = append(args, string(f.Source.Kind()), f.Source.ID())
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}

	query := "SELECT " + expenseColumns + " FROM expenses WHERE " + strings.Join(where, " AND ") +
		" ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}

	return expenses, rows.Err()
}
