package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/popcoin-idle/popcoin/internal/models"
)

// PostgresGameRepository persists game states as JSONB blobs keyed by
// user. The lifetime-earnings column is mirrored out of the blob so the
// leaderboard can order without unpacking every state.
type PostgresGameRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresGameRepository creates a new PostgresGameRepository using the
// provided *sql.DB. db must be a valid connection to a PostgreSQL instance.
func NewPostgresGameRepository(db *sql.DB) *PostgresGameRepository {
	return &PostgresGameRepository{DB: db}
}

// GetState loads the stored game state for the user. Returns (nil, nil)
// if the user has never saved.
func (r *PostgresGameRepository) GetState(ctx context.Context, uid string) (*models.GameState, error) {
	var raw []byte
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT state FROM game_states WHERE user_uid = $1`,
		uid,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetState: %w", err)
	}

	var state models.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("GetState decode: %w", err)
	}
	return &state, nil
}

// SaveState upserts the full game state for the user.
func (r *PostgresGameRepository) SaveState(ctx context.Context, uid string, state *models.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("SaveState encode: %w", err)
	}
	_, err = r.DB.ExecContext(
		ctx,
		`INSERT INTO game_states (user_uid, state, total_coins, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_uid) DO UPDATE
		    SET state = EXCLUDED.state,
		        total_coins = EXCLUDED.total_coins,
		        updated_at = NOW()`,
		uid, raw, state.TotalCoins,
	)
	if err != nil {
		return fmt.Errorf("SaveState: %w", err)
	}
	return nil
}

// Leaderboard returns the top lifetime earners, richest first.
func (r *PostgresGameRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.DB.QueryContext(
		ctx,
		`SELECT u.name, g.total_coins, COALESCE((g.state->>'prestige_level')::int, 0)
		   FROM game_states g
		   JOIN users u ON u.uid = g.user_uid
		  ORDER BY g.total_coins DESC
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("Leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.TotalCoins, &e.PrestigeLevel); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Leaderboard rows: %w", err)
	}
	return entries, nil
}
