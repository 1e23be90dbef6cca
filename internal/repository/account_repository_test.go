package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/drone-investigations/internal/model"
)

func newAccountRepoWithMock(t *testing.T) (*AccountRepo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewAccountRepo(db), mock, db
}

func accountRow(a *model.Account) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "profile_pic_url",
		"first_name", "last_name", "bio", "role", "organization", "website_url", "created_at", "updated_at"}).
		AddRow(a.ID, a.Username, a.Email, a.PasswordHash, a.ProfilePic,
			a.FirstName, a.LastName, a.Bio, a.Role, a.Organization, a.WebsiteURL, a.CreatedAt, a.UpdatedAt)
}

func TestAccountCreate_NormalizesAndReturnsID(t *testing.T) {
	repo, mock, db := newAccountRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs("alice", "alice@example.com", "hash", model.DefaultProfilePic).
		WillReturnResult(sqlmock.NewResult(5, 1))

	id, err := repo.Create(context.Background(), "  alice ", "Alice@Example.com ", "hash")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)
}

func TestAccountCreate_DuplicateMapsToSentinel(t *testing.T) {
	repo, mock, db := newAccountRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO accounts`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'alice' for key 'accounts.username'"))
	_, err := repo.Create(context.Background(), "alice", "alice@example.com", "hash")
	assert.ErrorIs(t, err, ErrUsernameExists)

	mock.ExpectExec(`INSERT INTO accounts`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@b.c' for key 'accounts.email'"))
	_, err = repo.Create(context.Background(), "bob", "a@b.c", "hash")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUsernameTaken_ExcludesSelf(t *testing.T) {
	repo, mock, db := newAccountRepoWithMock(t)
	defer db.Close()

	// The caller keeping their own username must not collide with
	// themselves: their ID is excluded from the probe.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts WHERE username = \? AND id <> \?`).
		WithArgs("alice", uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

	taken, err := repo.UsernameTaken(context.Background(), "alice", 5)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newAccountRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \?`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGetByID_Success(t *testing.T) {
	repo, mock, db := newAccountRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	want := &model.Account{ID: 5, Username: "alice", Email: "alice@example.com",
		PasswordHash: "hash", ProfilePic: model.DefaultProfilePic, CreatedAt: now, UpdatedAt: now}
	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(accountRow(want))

	got, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, model.DefaultProfilePic, got.ProfilePic)
}

// Account deletion cascades to investigations and reports inside one
// transaction.
func TestDeleteCascade(t *testing.T) {
	repo, mock, db := newAccountRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM accounts WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint64(5)))
	mock.ExpectExec(`DELETE FROM investigations WHERE account_id = \?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM reports WHERE account_id = \?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM accounts WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascade_MissingAccount(t *testing.T) {
	repo, mock, db := newAccountRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM accounts WHERE id = \?`).
		WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), 9)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
