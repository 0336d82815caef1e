package storage

import (
	"context"
	"time"

	"wallet-ledger/internal/models"

	"github.com/google/uuid"
)

// CreateUser creates a new user with the given username and password hash.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		id, username, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?",
		id,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.UTC(), now,
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (db *DB) ValidateSessionWithInfo(ctx context.Context, token string) (*SessionInfo, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now().UTC())

	var u models.User
	var lastActivity, expiresAt time.Time
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &lastActivity, &expiresAt); err != nil {
		return nil, notFound(err)
	}
	return &SessionInfo{
		User:         &u,
		LastActivity: lastActivity,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		now, newExpiresAt.UTC(), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	return err
}
