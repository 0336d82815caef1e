package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrConflict is returned when a versioned row changed under a transaction.
	ErrConflict = errors.New("storage: concurrent modification")
)

// DefaultTxAttempts is how many times WithTx runs a transaction that keeps
// hitting conflicts before giving up.
const DefaultTxAttempts = 3

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection.
type DB struct {
	conn       *sql.DB
	txAttempts int
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	// One connection: every writer is serialized and ":memory:" stays a
	// single database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := NewWithConn(conn)
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// NewWithConn wraps an already opened connection without migrating it.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn, txAttempts: DefaultTxAttempts}
}

// SetTxAttempts changes how many times WithTx retries on conflict.
func (db *DB) SetTxAttempts(n int) {
	if n > 0 {
		db.txAttempts = n
	}
}

func dsn(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS bank_accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			balance TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			last_updated DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credit_cards (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			due_amount TEXT NOT NULL,
			bill_due_day INTEGER,
			version INTEGER NOT NULL DEFAULT 1,
			last_updated DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cash_wallets (
			user_id TEXT PRIMARY KEY,
			balance TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			last_updated DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			category TEXT NOT NULL,
			purpose TEXT NOT NULL,
			source_type TEXT NOT NULL,
			source_id TEXT NOT NULL,
			date DATETIME NOT NULL,
			attachments TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date)`,
		`CREATE TABLE IF NOT EXISTS advances (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			amount TEXT NOT NULL,
			purpose TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS refunds (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			amount TEXT NOT NULL,
			purpose TEXT NOT NULL,
			contact_number TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS balance_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			source_type TEXT NOT NULL,
			source_id TEXT NOT NULL,
			action TEXT NOT NULL,
			amount TEXT NOT NULL,
			before_amount TEXT NOT NULL,
			after_amount TEXT NOT NULL,
			expense_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_balance_changes_source ON balance_changes(user_id, source_type, source_id)`,
		`CREATE TABLE IF NOT EXISTS savings (
			user_id TEXT PRIMARY KEY,
			pin_hash TEXT NOT NULL,
			failed_attempts INTEGER NOT NULL DEFAULT 0,
			locked_until DATETIME,
			cash TEXT NOT NULL,
			last_accessed_at DATETIME,
			last_updated_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS savings_accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			bank_name TEXT NOT NULL,
			amount TEXT NOT NULL,
			last_updated DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			done INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_user_position ON notes(user_id, position)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Tx is an open transaction. Every compound ledger operation runs its reads
// and writes through one Tx.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction. Any error from fn rolls everything
// back. Conflicts and SQLITE_BUSY rerun fn from scratch up to the configured
// number of attempts; the last error is returned when they run out.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	var err error
	for attempt := 0; attempt < db.txAttempts; attempt++ {
		err = db.runTx(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (db *DB) runTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	return sqlTx.Commit()
}

func retryable(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func expectOneRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
