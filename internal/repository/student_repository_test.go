package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindStudentByUserIDScansInterests(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "full_name", "email", "bio", "interests", "timezone", "avatar_url", "created_at", "updated_at"}).
		AddRow(int64(3), "u-3", "Alex Learner", "alex@engir.demo", "", "{go,streaming}", "Europe/Berlin", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE user_id = $1")).WithArgs("u-3").WillReturnRows(rows)

	student, err := repo.FindByUserID(context.Background(), "u-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "streaming"}, []string(student.Interests))
	assert.Equal(t, "Europe/Berlin", student.Timezone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
