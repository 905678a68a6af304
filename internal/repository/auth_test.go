package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/popcoin-idle/popcoin/internal/models"
)

func setupAuthMock(t *testing.T) (*PostgresAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestUpsertUser_Success(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	user := models.User{UID: "uid-1", Email: "bob@example.com", Name: "Bob", Picture: "p.png"}
	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.UID, user.Email, user.Name, user.Picture).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.UpsertUser(context.Background(), user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpsertUser_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("insert failed"))

	if err := repo.UpsertUser(context.Background(), models.User{UID: "uid-1"}); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateSession_Success(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions (token, user_uid, expires_at) VALUES ($1, $2, $3)`)).
		WithArgs("tok-1", "uid-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.CreateSession(context.Background(), "tok-1", "uid-1", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSessionUser_Found(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"uid", "email", "name", "picture"}).
		AddRow("uid-1", "bob@example.com", "Bob", "p.png")
	mock.ExpectQuery("SELECT u.uid, u.email, u.name, u.picture").
		WithArgs("tok-1").
		WillReturnRows(rows)

	user, err := repo.SessionUser(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.UID != "uid-1" || user.Email != "bob@example.com" {
		t.Errorf("user = %+v; want uid-1/bob@example.com", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSessionUser_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT u.uid, u.email, u.name, u.picture").
		WithArgs("tok-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "email", "name", "picture"}))

	user, err := repo.SessionUser(context.Background(), "tok-unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v; want nil for unknown token", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeleteSession_Success(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE token = $1`)).
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteSession(context.Background(), "tok-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
