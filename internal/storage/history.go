package storage

import (
	"context"
	"fmt"

	"wallet-ledger/internal/models"
)

// InsertBalanceChange appends a row to a source's balance history.
func (t *Tx) InsertBalanceChange(ctx context.Context, userID string, c *models.BalanceChange) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO balance_changes
			(user_id, source_type, source_id, action, amount, before_amount, after_amount, expense_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, string(c.Source.Kind()), c.Source.ID(), string(c.Action),
		c.Amount, c.Before, c.After, c.ExpenseID, c.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// ListBalanceChanges retrieves the most recent changes of one source.
func (db *DB) ListBalanceChanges(ctx context.Context, userID string, ref models.SourceRef, limit int) ([]models.BalanceChange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, source_type, source_id, action, amount, before_amount, after_amount, expense_id, created_at
		FROM balance_changes
		WHERE user_id = ? AND source_type = ? AND source_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		userID, string(ref.Kind()), ref.ID(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []models.BalanceChange{}
	for rows.Next() {
		var c models.BalanceChange
		var sourceType, sourceID, action string
		if err := rows.Scan(&c.ID, &sourceType, &sourceID, &action, &c.Amount,
			&c.Before, &c.After, &c.ExpenseID, &c.CreatedAt); err != nil {
			return nil, err
		}
		if c.Source, err = models.ParseSourceRef(sourceType, sourceID); err != nil {
			return nil, fmt.Errorf("balance change %d: %w", c.ID, err)
		}
		c.Action = models.BalanceAction(action)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
