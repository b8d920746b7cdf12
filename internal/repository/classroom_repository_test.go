package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/pkg/codegen"
)

var classroomRowColumns = []string{
	"id", "teacher_id", "title", "description", "code", "starts_at", "duration_minutes", "capacity", "meeting_url", "tags", "is_public", "created_at", "updated_at",
	"teacher.id", "teacher.full_name", "teacher.email", "teacher.headline", "teacher.avatar_url", "reserved_seats",
}

func classroomRow(rows *sqlmock.Rows, id int64, code string, capacity, reserved int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, int64(1), "Live Go", "", code, now, 60, capacity, "", "{demo,engir}", true, now, now,
		int64(1), "Mentor Demo", "mentor@engir.demo", "Coach", "", reserved)
}

func TestFindClassroomByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.code = $1")).
		WithArgs("ABC123").
		WillReturnRows(classroomRow(sqlmock.NewRows(classroomRowColumns), 5, "ABC123", 20, 20))

	classroom, err := repo.FindByCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, int64(5), classroom.ID)
	assert.Equal(t, pq.StringArray{"demo", "engir"}, classroom.Tags)
	require.NotNil(t, classroom.Teacher)
	assert.Equal(t, "Mentor Demo", classroom.Teacher.FullName)
	assert.True(t, classroom.IsFull())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListClassroomsPublicForAnonymous(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.is_public ORDER BY c.created_at DESC, c.id DESC LIMIT 25 OFFSET 0")).
		WillReturnRows(classroomRow(sqlmock.NewRows(classroomRowColumns), 1, "AAAAAA", 12, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classrooms c")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	classrooms, total, err := repo.List(context.Background(), models.ClassroomFilter{})
	require.NoError(t, err)
	assert.Len(t, classrooms, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListClassroomsForTeacherViewer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	viewer := int64(3)
	public := false
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.is_public = $1 AND (c.is_public OR c.teacher_id = $2) AND (LOWER(c.title) LIKE $3 OR LOWER(c.code) LIKE $3 OR LOWER(t.full_name) LIKE $3) ORDER BY c.starts_at ASC")).
		WithArgs(false, viewer, "%go%").
		WillReturnRows(sqlmock.NewRows(classroomRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(false, viewer, "%go%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.ClassroomFilter{
		IsPublic:        &public,
		ViewerTeacherID: &viewer,
		Search:          "Go",
		ListOptions:     models.ListOptions{SortBy: "starts_at"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClassroomRedrawsOnCollision(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	// first draw already exists
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM classrooms WHERE code = $1)")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	// second draw loses the race to a concurrent insert
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM classrooms WHERE code = $1)")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT ON CONSTRAINT classrooms_code_key DO NOTHING")).
		WillReturnError(sql.ErrNoRows)
	// third draw succeeds
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM classrooms WHERE code = $1)")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO classrooms")).
		WithArgs(int64(1), "Live Go", "", sqlmock.AnyArg(), nil, 45, 12, "", sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), now, now))
	mock.ExpectCommit()

	classroom := &models.Classroom{TeacherID: 1, Title: "Live Go", IsPublic: true}
	classroom.ApplyDefaults()
	redraws, err := repo.Create(context.Background(), classroom, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, redraws)
	assert.Equal(t, int64(9), classroom.ID)
	assert.True(t, codegen.IsClassCode(classroom.Code))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClassroomExhausted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectBegin()
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM classrooms WHERE code = $1)")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &models.Classroom{TeacherID: 1, Title: "x"}, 2)
	assert.ErrorIs(t, err, codegen.ErrExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteClassroomNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classrooms WHERE id = $1")).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
