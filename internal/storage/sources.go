package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wallet-ledger/internal/models"

	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...any) error
}

const (
	bankColumns = "id, name, balance, version, last_updated"
	cardColumns = "id, name, due_amount, bill_due_day, version, last_updated"
)

func scanBankAccount(s scanner) (*models.BankAccount, error) {
	var b models.BankAccount
	if err := s.Scan(&b.ID, &b.Name, &b.Balance, &b.Version, &b.LastUpdated); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanCreditCard(s scanner) (*models.CreditCard, error) {
	var c models.CreditCard
	var dueDay sql.NullInt64
	if err := s.Scan(&c.ID, &c.Name, &c.DueAmount, &dueDay, &c.Version, &c.LastUpdated); err != nil {
		return nil, err
	}
	if dueDay.Valid {
		d := int(dueDay.Int64)
		c.BillDueDay = &d
	}
	return &c, nil
}

func getBankAccount(ctx context.Context, q querier, userID, id string) (*models.BankAccount, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+bankColumns+" FROM bank_accounts WHERE user_id = ? AND id = ?",
		userID, id,
	)
	b, err := scanBankAccount(row)
	return b, notFound(err)
}

func getCreditCard(ctx context.Context, q querier, userID, id string) (*models.CreditCard, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM credit_cards WHERE user_id = ? AND id = ?",
		userID, id,
	)
	c, err := scanCreditCard(row)
	return c, notFound(err)
}

func getCashWallet(ctx context.Context, q querier, userID string) (*models.CashWallet, error) {
	row := q.QueryRowContext(ctx,
		"SELECT balance, version, last_updated FROM cash_wallets WHERE user_id = ?",
		userID,
	)
	var w models.CashWallet
	if err := row.Scan(&w.Balance, &w.Version, &w.LastUpdated); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// GetBankAccount retrieves a bank account inside the transaction.
func (t *Tx) GetBankAccount(ctx context.Context, userID, id string) (*models.BankAccount, error) {
	return getBankAccount(ctx, t.tx, userID, id)
}

// GetCreditCard retrieves a credit card inside the transaction.
func (t *Tx) GetCreditCard(ctx context.Context, userID, id string) (*models.CreditCard, error) {
	return getCreditCard(ctx, t.tx, userID, id)
}

// EnsureCashWallet returns the user's cash wallet, creating it with a zero
// balance on first use.
func (t *Tx) EnsureCashWallet(ctx context.Context, userID string, now time.Time) (*models.CashWallet, error) {
	_, err := t.tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO cash_wallets (user_id, balance, version, last_updated) VALUES (?, ?, 1, ?)",
		userID, decimal.Zero, now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	return getCashWallet(ctx, t.tx, userID)
}

// SetSourceAmount writes the balance (or due amount) of a source. The write
// only lands when the row still has the expected version; otherwise
// ErrConflict is returned and the caller's transaction should be retried.
func (t *Tx) SetSourceAmount(ctx context.Context, userID string, ref models.SourceRef, amount decimal.Decimal, version int64, now time.Time) error {
	var query string
	var args []any
	switch ref.Kind() {
	case models.SourceBank:
		query = "UPDATE bank_accounts SET balance = ?, version = version + 1, last_updated = ? WHERE user_id = ? AND id = ? AND version = ?"
		args = []any{amount, now.UTC(), userID, ref.ID(), version}
	case models.SourceCreditCard:
		query = "UPDATE credit_cards SET due_amount = ?, version = version + 1, last_updated = ? WHERE user_id = ? AND id = ? AND version = ?"
		args = []any{amount, now.UTC(), userID, ref.ID(), version}
	case models.SourceCash:
		query = "UPDATE cash_wallets SET balance = ?, version = version + 1, last_updated = ? WHERE user_id = ? AND version = ?"
		args = []any{amount, now.UTC(), userID, version}
	default:
		return fmt.Errorf("storage: unknown source %q", ref.Kind())
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrConflict)
}

// InsertBankAccount creates a bank account.
func (t *Tx) InsertBankAccount(ctx context.Context, userID string, b *models.BankAccount) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO bank_accounts (id, user_id, name, balance, version, last_updated) VALUES (?, ?, ?, ?, 1, ?)",
		b.ID, userID, b.Name, b.Balance, b.LastUpdated.UTC(),
	)
	if err == nil {
		b.Version = 1
	}
	return err
}

// UpdateBankAccount overwrites the name and balance of a bank account.
func (t *Tx) UpdateBankAccount(ctx context.Context, userID string, b *models.BankAccount) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE bank_accounts SET name = ?, balance = ?, version = version + 1, last_updated = ? WHERE user_id = ? AND id = ? AND version = ?",
		b.Name, b.Balance, b.LastUpdated.UTC(), userID, b.ID, b.Version,
	)
	if err != nil {
		return err
	}
	if err := expectOneRow(res, ErrConflict); err != nil {
		return err
	}
	b.Version++
	return nil
}

// DeleteBankAccount removes a bank account.
func (t *Tx) DeleteBankAccount(ctx context.Context, userID, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM bank_accounts WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

func nullableDay(day *int) sql.NullInt64 {
	if day == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*day), Valid: true}
}

// InsertCreditCard creates a credit card.
func (t *Tx) InsertCreditCard(ctx context.Context, userID string, c *models.CreditCard) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO credit_cards (id, user_id, name, due_amount, bill_due_day, version, last_updated) VALUES (?, ?, ?, ?, ?, 1, ?)",
		c.ID, userID, c.Name, c.DueAmount, nullableDay(c.BillDueDay), c.LastUpdated.UTC(),
	)
	if err == nil {
		c.Version = 1
	}
	return err
}

// UpdateCreditCard overwrites the editable fields of a credit card.
func (t *Tx) UpdateCreditCard(ctx context.Context, userID string, c *models.CreditCard) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE credit_cards SET name = ?, due_amount = ?, bill_due_day = ?, version = version + 1, last_updated = ? WHERE user_id = ? AND id = ? AND version = ?",
		c.Name, c.DueAmount, nullableDay(c.BillDueDay), c.LastUpdated.UTC(), userID, c.ID, c.Version,
	)
	if err != nil {
		return err
	}
	if err := expectOneRow(res, ErrConflict); err != nil {
		return err
	}
	c.Version++
	return nil
}

// DeleteCreditCard removes a credit card.
func (t *Tx) DeleteCreditCard(ctx context.Context, userID, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM credit_cards WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotFound)
}

// ListBankAccounts retrieves a user's bank accounts ordered by name.
func (db *DB) ListBankAccounts(ctx context.Context, userID string) ([]models.BankAccount, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+bankColumns+" FROM bank_accounts WHERE user_id = ? ORDER BY name, id",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.BankAccount{}
	for rows.Next() {
		b, err := scanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *b)
	}
	return accounts, rows.Err()
}

// ListCreditCards retrieves a user's credit cards ordered by name.
func (db *DB) ListCreditCards(ctx context.Context, userID string) ([]models.CreditCard, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+cardColumns+" FROM credit_cards WHERE user_id = ? ORDER BY name, id",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []models.CreditCard{}
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

// GetBankAccount retrieves a single bank account.
func (db *DB) GetBankAccount(ctx context.Context, userID, id string) (*models.BankAccount, error) {
	return getBankAccount(ctx, db.conn, userID, id)
}

// GetCreditCard retrieves a single credit card.
func (db *DB) GetCreditCard(ctx context.Context, userID, id string) (*models.CreditCard, error) {
	return getCreditCard(ctx, db.conn, userID, id)
}

// GetCashWallet retrieves the cash wallet. A user who never touched cash
// gets a zero wallet.
func (db *DB) GetCashWallet(ctx context.Context, userID string) (*models.CashWallet, error) {
	w, err := getCashWallet(ctx, db.conn, userID)
	if err == ErrNotFound {
		return &models.CashWallet{Balance: decimal.Zero}, nil
	}
	return w, err
}
