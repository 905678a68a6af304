// Package repository provides persistence implementations for the
// authentication and game services.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/popcoin-idle/popcoin/internal/models"
)

// PostgresAuthRepository implements user and session persistence using
// a PostgreSQL database.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the
// given database connection. db must be a valid *sql.DB connected to a
// PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// UpsertUser inserts the user on first login or refreshes the profile
// fields and last-login timestamp on repeat logins.
func (r *PostgresAuthRepository) UpsertUser(ctx context.Context, user models.User) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (uid, email, name, picture)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (uid) DO UPDATE
		    SET email = EXCLUDED.email,
		        name = EXCLUDED.name,
		        picture = EXCLUDED.picture,
		        last_login_at = NOW()`,
		user.UID, user.Email, user.Name, user.Picture,
	)
	if err != nil {
		return fmt.Errorf("UpsertUser: %w", err)
	}
	return nil
}

// CreateSession stores a new session token for the user with the given
// lifetime.
func (r *PostgresAuthRepository) CreateSession(ctx context.Context, token, uid string, ttl time.Duration) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO sessions (token, user_uid, expires_at) VALUES ($1, $2, $3)`,
		token, uid, time.Now().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("CreateSession: %w", err)
	}
	return nil
}

// SessionUser resolves a session token to its user. Returns (nil, nil)
// if the token is unknown or expired.
func (r *PostgresAuthRepository) SessionUser(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT u.uid, u.email, u.name, u.picture
		   FROM sessions s
		   JOIN users u ON u.uid = s.user_uid
		  WHERE s.token = $1 AND s.expires_at > NOW()`,
		token,
	).Scan(&user.UID, &user.Email, &user.Name, &user.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("SessionUser: %w", err)
	}
	return &user, nil
}

// DeleteSession removes the session token. Deleting an unknown token is
// not an error.
func (r *PostgresAuthRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("DeleteSession: %w", err)
	}
	return nil
}
