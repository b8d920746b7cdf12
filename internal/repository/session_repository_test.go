package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/engir-api/internal/models"
)

var sessionRowColumns = []string{"id", "classroom_id", "title", "description", "starts_at", "ends_at", "duration_minutes", "status", "stream_provider", "stream_key", "host_url", "playback_url", "recording_url", "meeting_passcode", "created_at", "updated_at"}

func TestNextForClassrooms(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (s.classroom_id)")).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow(int64(3), int64(1), "Kickoff", "", now, nil, 45, "scheduled", "custom", "KEY", "h", "p", "", "", now, now).
			AddRow(int64(8), int64(2), "Review", "", now, nil, 45, "live", "zoom", "", "", "", "", "", now, now))

	next, err := repo.NextForClassrooms(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, next, 2)
	assert.Equal(t, int64(3), next[1].ID)
	assert.Equal(t, models.SessionLive, next[2].Status)
	assert.Nil(t, next[3])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextForClassroomsEmpty(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()

	next, err := NewSessionRepository(db).NextForClassrooms(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestMutateSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions s WHERE s.id = $1 FOR UPDATE")).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow(int64(3), int64(1), "Kickoff", "", now, nil, 45, "scheduled", "custom", "KEY", "h", "p", "", "", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sessions SET")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	session, err := repo.Mutate(context.Background(), 3, func(s *models.Session) error {
		return s.MarkLive(false)
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionLive, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateSessionAbortsOnCallbackError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow(int64(3), int64(1), "Kickoff", "", now, nil, 45, "cancelled", "custom", "KEY", "h", "p", "", "", now, now))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), 3, func(s *models.Session) error {
		return s.MarkLive(true)
	})
	assert.True(t, errors.Is(err, models.ErrTransitionNotAllowed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(14), now, now))

	session := &models.Session{ClassroomID: 1, Title: "Kickoff", StartsAt: now}
	session.ApplyDefaults()
	require.NoError(t, repo.Create(context.Background(), session))
	assert.Equal(t, int64(14), session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
