package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/popcoin-idle/popcoin/internal/models"
)

func setupGameMock(t *testing.T) (*PostgresGameRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresGameRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestGetState_Found(t *testing.T) {
	repo, mock, cleanup := setupGameMock(t)
	defer cleanup()

	stored := models.GameState{Coins: 42.5, TotalCoins: 100, ClickCount: 7, Achievements: []string{"first_coins"}}
	raw, _ := json.Marshal(stored)
	mock.ExpectQuery("SELECT state FROM game_states").
		WithArgs("uid-1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(raw))

	state, err := repo.GetState(context.Background(), "uid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state == nil || state.Coins != 42.5 || state.ClickCount != 7 {
		t.Errorf("state = %+v; want coins 42.5 clicks 7", state)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetState_NoRow(t *testing.T) {
	repo, mock, cleanup := setupGameMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT state FROM game_states").
		WithArgs("uid-new").
		WillReturnRows(sqlmock.NewRows([]string{"state"}))

	state, err := repo.GetState(context.Background(), "uid-new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != nil {
		t.Errorf("state = %+v; want nil for unsaved user", state)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetState_CorruptBlob(t *testing.T) {
	repo, mock, cleanup := setupGameMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT state FROM game_states").
		WithArgs("uid-1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow([]byte("not-json")))

	if _, err := repo.GetState(context.Background(), "uid-1"); err == nil {
		t.Errorf("expected decode error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSaveState_Success(t *testing.T) {
	repo, mock, cleanup := setupGameMock(t)
	defer cleanup()

	state := &models.GameState{Coins: 10, TotalCoins: 500}
	mock.ExpectExec("INSERT INTO game_states").
		WithArgs("uid-1", sqlmock.AnyArg(), state.TotalCoins).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveState(context.Background(), "uid-1", state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSaveState_Error(t *testing.T) {
	repo, mock, cleanup := setupGameMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO game_states").
		WillReturnError(errors.New("write failed"))

	if err := repo.SaveState(context.Background(), "uid-1", &models.GameState{}); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLeaderboard_Success(t *testing.T) {
	repo, mock, cleanup := setupGameMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"name", "total_coins", "prestige_level"}).
		AddRow("Alice", 90_000.0, 2).
		AddRow("Bob", 12_000.0, 0)
	mock.ExpectQuery("SELECT u.name, g.total_coins").
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := repo.Leaderboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d; want 2", len(entries))
	}
	if entries[0].Name != "Alice" || entries[0].TotalCoins != 90_000 || entries[0].PrestigeLevel != 2 {
		t.Errorf("entries[0] = %+v; want Alice/90000/2", entries[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
