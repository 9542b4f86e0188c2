package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-match/internal/model"
)

func newMockDB(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return Wrap(sqlx.NewDb(raw, DriverPostgres), DriverPostgres, time.Second), mock
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed")))
	assert.False(t, isUniqueViolation(nil))
}

func TestMatchRepository_CreateMapsPostgresUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)

	mock.ExpectQuery(`INSERT INTO match_requests`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	_, err := repo.Create(context.Background(), model.MatchRequest{MentorID: 1, MenteeID: 2, Message: "hello there", Status: model.MatchStatusPending})
	assert.ErrorIs(t, err, model.ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_StorageFailurePropagates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)
	boom := errors.New("connection reset")

	mock.ExpectExec(`UPDATE match_requests`).
		WithArgs(model.MatchStatusAccepted, sqlmock.AnyArg(), int64(7), model.MatchStatusPending).
		WillReturnError(boom)

	_, err := repo.Transition(context.Background(), 7, model.MatchStatusAccepted, time.Now())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_TransitionUsesPostgresPlaceholders(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)

	mock.ExpectExec(`WHERE id = \$3 AND status = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Transition(context.Background(), 7, model.MatchStatusRejected, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateWithProfileRollsBackOnProfileFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(`INSERT INTO user_profiles`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, _, err := repo.CreateWithProfile(context.Background(),
		model.User{Email: "x@example.com", Role: model.UserRoleMentee},
		model.Profile{Name: "X"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
