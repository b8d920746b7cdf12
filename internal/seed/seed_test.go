package seed

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/engir-api/internal/models"
)

type memoryAccounts struct {
	byEmail map[string]*models.UserInfo
	nextID  int64
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byEmail: map[string]*models.UserInfo{}}
}

func (m *memoryAccounts) add(info *models.UserInfo) *models.UserInfo {
	m.nextID++
	info.ID = fmt.Sprintf("user-%d", m.nextID)
	m.byEmail[strings.ToLower(info.Email)] = info
	return info
}

func (m *memoryAccounts) RegisterTeacher(ctx context.Context, req models.RegisterTeacherRequest) (*models.UserInfo, error) {
	id := m.nextID + 1
	return m.add(&models.UserInfo{Email: req.Email, FullName: req.FullName, Role: models.RoleTeacher,
		TeacherProfile: &models.Teacher{ID: id, FullName: req.FullName, Email: req.Email}}), nil
}

func (m *memoryAccounts) RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.UserInfo, error) {
	id := m.nextID + 1
	return m.add(&models.UserInfo{Email: req.Email, FullName: req.FullName, Role: models.RoleStudent,
		StudentProfile: &models.Student{ID: id, FullName: req.FullName, Email: req.Email}}), nil
}

func (m *memoryAccounts) Me(ctx context.Context, principal *models.Principal) (*models.UserInfo, error) {
	for _, info := range m.byEmail {
		if info.ID == principal.UserID {
			return info, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryAccounts) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	info, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.User{ID: info.ID, Email: info.Email}, nil
}

type memoryClassrooms struct{ rows []models.ClassroomDetail }

func (m *memoryClassrooms) Owned(ctx context.Context, principal *models.Principal) ([]models.ClassroomDetail, error) {
	var out []models.ClassroomDetail
	for _, c := range m.rows {
		if principal.IsTeacherOf(c.TeacherID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryClassrooms) Create(ctx context.Context, principal *models.Principal, req models.CreateClassroomRequest) (*models.ClassroomDetail, error) {
	c := models.ClassroomDetail{Classroom: models.Classroom{
		ID:        int64(len(m.rows) + 1),
		TeacherID: *principal.TeacherID,
		Title:     req.Title,
		Capacity:  *req.Capacity,
		Tags:      req.Tags,
		IsPublic:  *req.IsPublic,
	}}
	m.rows = append(m.rows, c)
	return &c, nil
}

type memorySessions struct{ rows []models.SessionDetail }

func (m *memorySessions) List(ctx context.Context, principal *models.Principal, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error) {
	var out []models.SessionDetail
	for _, s := range m.rows {
		if filter.ClassroomID == nil || s.ClassroomID == *filter.ClassroomID {
			out = append(out, s)
		}
	}
	return out, filter.Pagination(len(out)), nil
}

func (m *memorySessions) Create(ctx context.Context, principal *models.Principal, req models.CreateSessionRequest) (*models.SessionDetail, error) {
	s := models.SessionDetail{Session: models.Session{
		ID:          int64(len(m.rows) + 1),
		ClassroomID: req.ClassroomID,
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
	}}
	m.rows = append(m.rows, s)
	return &s, nil
}

type memoryEnrollments struct{ rows []models.Enrollment }

func (m *memoryEnrollments) List(ctx context.Context, principal *models.Principal, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	var out []models.Enrollment
	for _, e := range m.rows {
		if e.ClassroomID == *filter.ClassroomID && principal.IsStudentOf(e.StudentID) {
			out = append(out, e)
		}
	}
	return out, filter.Pagination(len(out)), nil
}

func (m *memoryEnrollments) Create(ctx context.Context, principal *models.Principal, req models.CreateEnrollmentRequest) (*models.Enrollment, error) {
	e := models.Enrollment{
		ID:          int64(len(m.rows) + 1),
		ClassroomID: *req.ClassroomID,
		StudentID:   principal.StudentID,
		FullName:    req.FullName,
		Email:       req.Email,
		Status:      req.Status,
		Source:      req.Source,
	}
	m.rows = append(m.rows, e)
	return &e, nil
}

type harness struct {
	seeder      *Seeder
	accounts    *memoryAccounts
	classrooms  *memoryClassrooms
	sessions    *memorySessions
	enrollments *memoryEnrollments
}

func newHarness(now time.Time) *harness {
	h := &harness{
		accounts:    newMemoryAccounts(),
		classrooms:  &memoryClassrooms{},
		sessions:    &memorySessions{},
		enrollments: &memoryEnrollments{},
	}
	h.seeder = New(Params{
		Accounts:    h.accounts,
		Users:       h.accounts,
		Classrooms:  h.classrooms,
		Sessions:    h.sessions,
		Enrollments: h.enrollments,
	})
	h.seeder.now = func() time.Time { return now }
	return h
}

func TestDemoFixture(t *testing.T) {
	f, err := Demo()
	require.NoError(t, err)
	assert.Equal(t, "mentor@engir.demo", f.Teacher.Email)
	assert.Len(t, f.Students, 3)
	require.Len(t, f.Classrooms, 3)
	assert.Equal(t, 20, f.Classrooms[0].Capacity)
	assert.Equal(t, []string{"demo", "engir"}, f.Classrooms[0].Tags)
	assert.Equal(t, models.EnrollmentConfirmed, f.EnrollmentStatus)
}

func TestParseRejectsBadFixtures(t *testing.T) {
	_, err := Parse([]byte("password: short\nteacher:\n  email: a@b.c\n"))
	assert.ErrorContains(t, err, "at least 8")

	_, err = Parse([]byte("password: long-enough\n"))
	assert.ErrorContains(t, err, "teacher email")

	_, err = Parse([]byte("password: long-enough\nteacher:\n  email: a@b.c\nenrollment_status: cancelled\n"))
	assert.ErrorContains(t, err, "cancelled")

	_, err = Parse([]byte("password: [unterminated"))
	assert.ErrorContains(t, err, "parse fixture")
}

func TestRunSeedsDemoData(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 45, 0, time.UTC)
	h := newHarness(now)
	f, err := Demo()
	require.NoError(t, err)

	res, err := h.seeder.Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, &Result{Users: 4, Classrooms: 3, Sessions: 3, Enrollments: 9}, res)

	require.Len(t, h.sessions.rows, 3)
	first := h.sessions.rows[0]
	assert.Equal(t, "Streaming Basics Session 1", first.Title)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC), first.StartsAt)
	assert.Equal(t, "Community Q&A Session 3", h.sessions.rows[2].Title)

	for _, e := range h.enrollments.rows {
		assert.Equal(t, models.EnrollmentConfirmed, e.Status)
		assert.Equal(t, Source, e.Source)
		require.NotNil(t, e.StudentID)
	}
	for _, c := range h.classrooms.rows {
		assert.True(t, c.IsPublic)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(time.Now().UTC())
	f, err := Demo()
	require.NoError(t, err)

	_, err = h.seeder.Run(context.Background(), f)
	require.NoError(t, err)
	res, err := h.seeder.Run(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, &Result{}, res)
	assert.Len(t, h.classrooms.rows, 3)
	assert.Len(t, h.sessions.rows, 3)
	assert.Len(t, h.enrollments.rows, 9)
}

func TestRunRejectsTeacherEmailOwnedByStudent(t *testing.T) {
	h := newHarness(time.Now().UTC())
	_, err := h.accounts.RegisterStudent(context.Background(), models.RegisterStudentRequest{Email: "mentor@engir.demo"})
	require.NoError(t, err)
	f, err := Demo()
	require.NoError(t, err)

	_, err = h.seeder.Run(context.Background(), f)
	assert.ErrorContains(t, err, "without a teacher profile")
	assert.Empty(t, h.classrooms.rows)
}
