package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/engir-api/internal/models"
)

var teacherRowColumns = []string{"id", "user_id", "full_name", "email", "headline", "bio", "profile_url", "avatar_url", "created_at", "updated_at"}

func TestListTeachersSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (LOWER(t.full_name) LIKE $1 OR LOWER(COALESCE(u.email, t.email)) LIKE $1 OR LOWER(t.headline) LIKE $1) ORDER BY t.full_name ASC LIMIT 25 OFFSET 0")).
		WithArgs("%mentor%").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).AddRow(int64(1), "u-1", "Mentor Demo", "mentor@engir.demo", "Live coach", "", "", "", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers t LEFT JOIN users u ON u.id = t.user_id WHERE")).
		WithArgs("%mentor%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	teachers, total, err := repo.List(context.Background(), models.TeacherFilter{Search: " Mentor "})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "u-1", *teachers[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindTeacherByUserID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.user_id = $1")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).AddRow(int64(4), "u-1", "Mentor Demo", "mentor@engir.demo", "", "", "", "", now, now))

	teacher, err := repo.FindByUserID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), teacher.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
