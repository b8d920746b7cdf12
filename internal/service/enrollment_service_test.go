package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/internal/repository"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
)

// memoryEnrollments enforces capacity and (classroom, email) uniqueness like the SQL repository does.
type memoryEnrollments struct {
	classrooms *mockClassroomRepo
	rows       map[int64]*models.Enrollment
	nextID     int64
	listFilter models.EnrollmentFilter
}

func newMemoryEnrollments(classrooms *mockClassroomRepo) *memoryEnrollments {
	return &memoryEnrollments{classrooms: classrooms, rows: map[int64]*models.Enrollment{}}
}

func (m *memoryEnrollments) reserved(classroomID, excludeID int64) int {
	n := 0
	for _, e := range m.rows {
		if e.ClassroomID == classroomID && e.ID != excludeID && e.Status.ReservesSeat() {
			n++
		}
	}
	return n
}

func (m *memoryEnrollments) available(classroomID int64) int {
	c := m.classrooms.items[classroomID]
	return models.AvailableSeats(c.Capacity, m.reserved(classroomID, 0))
}

func (m *memoryEnrollments) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	m.listFilter = filter
	out := []models.Enrollment{}
	for _, e := range m.rows {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *memoryEnrollments) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	c := m.classrooms.items[e.ClassroomID]
	cp.Classroom = &models.ClassroomSummary{ID: c.ID, TeacherID: c.TeacherID, Title: c.Title, Code: c.Code}
	return &cp, nil
}

func (m *memoryEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) error {
	c, ok := m.classrooms.items[enrollment.ClassroomID]
	if !ok {
		return sql.ErrNoRows
	}
	if enrollment.Status.ReservesSeat() && models.AvailableSeats(c.Capacity, m.reserved(c.ID, 0)) == 0 {
		return repository.ErrClassroomFull
	}
	for _, e := range m.rows {
		if e.ClassroomID == enrollment.ClassroomID && e.Email == enrollment.Email {
			return repository.ErrDuplicateEnrollment
		}
	}
	m.nextID++
	enrollment.ID = m.nextID
	cp := *enrollment
	m.rows[cp.ID] = &cp
	return nil
}

func (m *memoryEnrollments) Update(ctx context.Context, enrollment *models.Enrollment, claimSeat bool) error {
	if _, ok := m.rows[enrollment.ID]; !ok {
		return sql.ErrNoRows
	}
	if claimSeat {
		c := m.classrooms.items[enrollment.ClassroomID]
		if models.AvailableSeats(c.Capacity, m.reserved(c.ID, enrollment.ID)) == 0 {
			return repository.ErrClassroomFull
		}
	}
	cp := *enrollment
	cp.Classroom = nil
	m.rows[cp.ID] = &cp
	return nil
}

func newTestEnrollmentService(capacity int) (*EnrollmentService, *memoryEnrollments) {
	classrooms := newMockClassroomRepo(&models.Classroom{ID: 1, TeacherID: 5, Title: "Algebra", Code: "ABC123", Capacity: capacity})
	repo := newMemoryEnrollments(classrooms)
	return NewEnrollmentService(repo, classrooms, NewMetricsService(), nil, nil), repo
}

func join(email string) models.CreateEnrollmentRequest {
	id := int64(1)
	return models.CreateEnrollmentRequest{ClassroomID: &id, FullName: "Guest " + email, Email: email}
}

func TestEnrollmentServiceCapacityTwoScenario(t *testing.T) {
	svc, repo := newTestEnrollmentService(2)
	ctx := context.Background()

	first, err := svc.Create(ctx, nil, join("a@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, first.Status)
	assert.Equal(t, models.DefaultEnrollmentSource, first.Source)
	assert.Equal(t, 1, repo.available(1))

	_, err = svc.Create(ctx, nil, join("b@example.com"))
	require.NoError(t, err)
	assert.Equal(t, 0, repo.available(1))

	_, err = svc.Create(ctx, nil, join("c@example.com"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "This class is already full.", appErr.Fields["classroom"])

	cancelled := models.EnrollmentCancelled
	_, err = svc.Update(ctx, teacherPrincipal(5), first.ID, models.UpdateEnrollmentRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.available(1))

	_, err = svc.Update(ctx, teacherPrincipal(5), first.ID, models.UpdateEnrollmentRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.available(1), "cancelling twice frees one seat only")

	_, err = svc.Create(ctx, nil, join("c@example.com"))
	require.NoError(t, err)
	assert.Equal(t, 0, repo.available(1))

	confirmed := models.EnrollmentConfirmed
	_, err = svc.Update(ctx, teacherPrincipal(5), first.ID, models.UpdateEnrollmentRequest{Status: &confirmed})
	require.Error(t, err)
	assert.Equal(t, "This class is already full.", appErrors.FromError(err).Fields["classroom"])
}

func TestEnrollmentServiceDuplicateEmail(t *testing.T) {
	svc, _ := newTestEnrollmentService(10)

	_, err := svc.Create(context.Background(), nil, join("a@example.com"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), nil, join("a@example.com"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "You are already registered for this class with this email.", appErr.Message)

	_, err = svc.Create(context.Background(), nil, join("A@example.com"))
	assert.NoError(t, err, "emails are compared exactly, like the unique constraint")
}

func TestEnrollmentServiceJoinByCode(t *testing.T) {
	svc, _ := newTestEnrollmentService(10)

	enrollment, err := svc.Create(context.Background(), nil, models.CreateEnrollmentRequest{ClassCode: "  abc123 ", FullName: "Guest", Email: "g@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), enrollment.ClassroomID)
	require.NotNil(t, enrollment.Classroom)
	assert.Equal(t, "ABC123", enrollment.Classroom.Code)
}

func TestEnrollmentServiceClassroomResolutionErrors(t *testing.T) {
	svc, _ := newTestEnrollmentService(10)
	missing := int64(99)

	cases := []struct {
		name      string
		req       models.CreateEnrollmentRequest
		wantField string
		wantMsg   string
	}{
		{name: "unknown code", req: models.CreateEnrollmentRequest{ClassCode: "ZZZ999", FullName: "G", Email: "g@example.com"}, wantField: "class_code", wantMsg: "Invalid class code."},
		{name: "unknown id", req: models.CreateEnrollmentRequest{ClassroomID: &missing, FullName: "G", Email: "g@example.com"}, wantField: "classroom_id", wantMsg: "Class not found."},
		{name: "neither", req: models.CreateEnrollmentRequest{FullName: "G", Email: "g@example.com"}, wantMsg: "Provide classroom_id or class_code to join a class."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), nil, tc.req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			if tc.wantField != "" {
				assert.Equal(t, tc.wantMsg, appErr.Fields[tc.wantField])
			} else {
				assert.Equal(t, tc.wantMsg, appErr.Message)
			}
		})
	}
}

func TestEnrollmentServiceStudentPrincipalForcesIdentity(t *testing.T) {
	svc, repo := newTestEnrollmentService(10)

	req := join("someone-else@example.com")
	req.FullName = ""
	enrollment, err := svc.Create(context.Background(), studentPrincipal(8), req)
	require.NoError(t, err)
	require.NotNil(t, enrollment.StudentID)
	assert.Equal(t, int64(8), *enrollment.StudentID)
	assert.Equal(t, "Sam Student", enrollment.FullName)
	assert.Equal(t, "sam@example.com", enrollment.Email)
	assert.Equal(t, "sam@example.com", repo.rows[enrollment.ID].Email)
}

func TestEnrollmentServiceRejectsCancelledOnCreate(t *testing.T) {
	svc, _ := newTestEnrollmentService(10)

	req := join("a@example.com")
	req.Status = models.EnrollmentCancelled
	_, err := svc.Create(context.Background(), nil, req)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "status")
}

func TestEnrollmentServiceUpdatePermissions(t *testing.T) {
	svc, _ := newTestEnrollmentService(10)
	ctx := context.Background()

	mine, err := svc.Create(ctx, studentPrincipal(8), join("x@example.com"))
	require.NoError(t, err)

	confirmed := models.EnrollmentConfirmed
	_, err = svc.Update(ctx, studentPrincipal(8), mine.ID, models.UpdateEnrollmentRequest{Status: &confirmed})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(ctx, studentPrincipal(9), mine.ID, models.UpdateEnrollmentRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(ctx, teacherPrincipal(6), mine.ID, models.UpdateEnrollmentRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	phone := " 555-0100 "
	cancelled := models.EnrollmentCancelled
	updated, err := svc.Update(ctx, studentPrincipal(8), mine.ID, models.UpdateEnrollmentRequest{PhoneNumber: &phone, Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.PhoneNumber)
	assert.Equal(t, models.EnrollmentCancelled, updated.Status)

	updated, err = svc.Update(ctx, teacherPrincipal(5), mine.ID, models.UpdateEnrollmentRequest{Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentConfirmed, updated.Status)
}

func TestEnrollmentServiceListScopes(t *testing.T) {
	svc, repo := newTestEnrollmentService(10)
	ctx := context.Background()

	_, _, err := svc.List(ctx, teacherPrincipal(5), models.EnrollmentFilter{StudentID: int64Ptr(77)})
	require.NoError(t, err)
	require.NotNil(t, repo.listFilter.TeacherID)
	assert.Equal(t, int64(5), *repo.listFilter.TeacherID)
	assert.Nil(t, repo.listFilter.StudentID)

	_, _, err = svc.List(ctx, &models.Principal{UserID: "staff", Role: models.RoleStaff}, models.EnrollmentFilter{TeacherID: int64Ptr(3)})
	require.NoError(t, err)
	assert.Nil(t, repo.listFilter.TeacherID)
	assert.Nil(t, repo.listFilter.StudentID)

	items, pagination, err := svc.List(ctx, &models.Principal{UserID: "guest", Role: models.RoleGuest}, models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pagination.TotalCount)

	_, _, err = svc.List(ctx, nil, models.EnrollmentFilter{})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceGetHidesForeignRows(t *testing.T) {
	svc, _ := newTestEnrollmentService(10)
	ctx := context.Background()

	mine, err := svc.Create(ctx, studentPrincipal(8), join("x@example.com"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, studentPrincipal(8), mine.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, teacherPrincipal(5), mine.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, studentPrincipal(9), mine.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
