package storage

import (
	"context"
	"database/sql"
	"time"

	"wallet-ledger/internal/models"
)

const (
	savingsColumns        = "pin_hash, failed_attempts, locked_until, cash, last_accessed_at, last_updated_at, created_at"
	savingsAccountColumns = "id, bank_name, amount, last_updated"
)

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func scanSavings(s scanner) (*models.Savings, error) {
	var sv models.Savings
	var lockedUntil, lastAccessed sql.NullTime
	if err := s.Scan(&sv.PINHash, &sv.FailedAttempts, &lockedUntil, &sv.Cash, &lastAccessed, &sv.LastUpdatedAt, &sv.CreatedAt); err != nil {
		return nil, err
	}
	sv.LockedUntil = timePtr(lockedUntil)
	sv.LastAccessedAt = timePtr(lastAccessed)
	return &sv, nil
}

func scanSavingsAccount(s scanner) (*models.SavingsAccount, error) {
	var a models.SavingsAccount
	if err := s.Scan(&a.ID, &a.BankName, &a.Amount, &a.LastUpdated); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetSavings retrieves a user's savings record without its accounts.
func (db *DB) GetSavings(ctx context.Context, userID string) (*models.Savings, error) {
	return getSavings(ctx, db.conn, userID)
}

// GetSavings retrieves a user's savings record inside the transaction.
func (t *Tx) GetSavings(ctx context.Context, userID string) (*models.Savings, error) {
	return getSavings(ctx, t.tx, userID)
}

func getSavings(ctx context.Context, q querier, userID string) (*models.Savings, error) {
	row := q.QueryRowContext(ctx, "SELECT "+savingsColumns+" FROM savings WHERE user_id = ?", userID)
	s, err := scanSavings(row)
	return s, notFound(err)
}

// InsertSavings creates a user's savings record.
func (t *Tx) InsertSavings(ctx context.Context, userID string, s *models.Savings) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO savings (user_id, "+savingsColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		userID, s.PINHash, s.FailedAttempts, nullTime(s.LockedUntil), s.Cash,
		nullTime(s.LastAccessedAt), s.LastUpdatedAt.UTC(), s.CreatedAt.UTC(),
	)
	return err
}

// UpdateSavings overwrites everything but the creation time.
func (t *Tx) UpdateSavings(ctx context.Context, userID string, s *models.Savings) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE savings SET pin_hash = ?, failed_attempts = ?, locked_until = ?, cash = ?,
			last_accessed_at = ?, last_updated_at = ? WHERE user_id = ?`,
		s.PINHash, s.FailedAttempts, nullTime(s.LockedUntil), s.Cash,
		nullTime(s.LastAccessedAt), s.LastUpdatedAt.UTC(), userID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// InsertSavingsAccount adds a savings bank account.
func (t *Tx) InsertSavingsAccount(ctx context.Context, userID string, a *models.SavingsAccount) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO savings_accounts ("+savingsAccountColumns+", user_id) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.BankName, a.Amount, a.LastUpdated.UTC(), userID,
	)
	return err
}

// GetSavingsAccount retrieves a savings bank account inside the transaction.
func (t *Tx) GetSavingsAccount(ctx context.Context, userID, id string) (*models.SavingsAccount, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+savingsAccountColumns+" FROM savings_accounts WHERE user_id = ? AND id = ?",
		userID, id,
	)
	a, err := scanSavingsAccount(row)
	return a, notFound(err)
}

// UpdateSavingsAccount overwrites the bank name and amount.
func (t *Tx) UpdateSavingsAccount(ctx context.Context, userID string, a *models.SavingsAccount) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE savings_accounts SET bank_name = ?, amount = ?, last_updated = ? WHERE user_id = ? AND id = ?",
		a.BankName, a.Amount, a.LastUpdated.UTC(), userID, a.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// DeleteSavingsAccount removes a savings bank account.
func (t *Tx) DeleteSavingsAccount(ctx context.Context, userID, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM savings_accounts WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// ListSavingsAccounts retrieves a user's savings accounts in the order they
// were added.
func (t *Tx) ListSavingsAccounts(ctx context.Context, userID string) ([]models.SavingsAccount, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+savingsAccountColumns+" FROM savings_accounts WHERE user_id = ? ORDER BY rowid",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.SavingsAccount{}
	for rows.Next() {
		a, err := scanSavingsAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}
