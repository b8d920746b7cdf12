package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/engir-api/internal/models"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
)

type mockClassroomRepo struct {
	items      map[int64]*models.Classroom
	nextID     int64
	redraws    int
	listFilter models.ClassroomFilter
	deleted    []int64
}

func newMockClassroomRepo(classrooms ...*models.Classroom) *mockClassroomRepo {
	repo := &mockClassroomRepo{items: map[int64]*models.Classroom{}, nextID: 100}
	for _, c := range classrooms {
		repo.items[c.ID] = c
	}
	return repo
}

func (m *mockClassroomRepo) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	m.listFilter = filter
	out := make([]models.Classroom, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockClassroomRepo) FindByID(ctx context.Context, id int64) (*models.Classroom, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassroomRepo) FindByCode(ctx context.Context, code string) (*models.Classroom, error) {
	for _, c := range m.items {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassroomRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Classroom, error) {
	out := []models.Classroom{}
	for _, c := range m.items {
		if c.TeacherID == teacherID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClassroomRepo) Create(ctx context.Context, classroom *models.Classroom, attempts int) (int, error) {
	m.nextID++
	classroom.ID = m.nextID
	classroom.Code = "NEWC0D"
	cp := *classroom
	m.items[classroom.ID] = &cp
	return m.redraws, nil
}

func (m *mockClassroomRepo) Update(ctx context.Context, classroom *models.Classroom) error {
	if _, ok := m.items[classroom.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *classroom
	m.items[classroom.ID] = &cp
	return nil
}

func (m *mockClassroomRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type stubNextSessions map[int64]*models.Session

func (s stubNextSessions) NextForClassrooms(ctx context.Context, ids []int64) (map[int64]*models.Session, error) {
	out := map[int64]*models.Session{}
	for _, id := range ids {
		if next, ok := s[id]; ok {
			out[id] = next
		}
	}
	return out, nil
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

func teacherPrincipal(id int64) *models.Principal {
	return &models.Principal{UserID: "teacher-user", Role: models.RoleTeacher, TeacherID: int64Ptr(id)}
}

func studentPrincipal(id int64) *models.Principal {
	return &models.Principal{UserID: "student-user", Role: models.RoleStudent, StudentID: int64Ptr(id), FullName: "Sam Student", Email: "sam@example.com"}
}

func newTestClassroomService(repo *mockClassroomRepo, next stubNextSessions) *ClassroomService {
	return NewClassroomService(repo, next, NewMetricsService(), nil, nil, ClassroomConfig{})
}

func TestClassroomServiceCreateRequiresTeacher(t *testing.T) {
	svc := newTestClassroomService(newMockClassroomRepo(), nil)

	_, err := svc.Create(context.Background(), studentPrincipal(1), models.CreateClassroomRequest{Title: "Algebra"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "Only teachers can create classrooms.", appErr.Message)

	_, err = svc.Create(context.Background(), nil, models.CreateClassroomRequest{Title: "Algebra"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestClassroomServiceCreateAppliesDefaultsAndOwner(t *testing.T) {
	repo := newMockClassroomRepo()
	repo.redraws = 2
	svc := newTestClassroomService(repo, nil)

	detail, err := svc.Create(context.Background(), teacherPrincipal(5), models.CreateClassroomRequest{
		Title: "  Algebra  ",
		Tags:  []string{" math ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), detail.TeacherID)
	assert.Equal(t, "Algebra", detail.Title)
	assert.Equal(t, "NEWC0D", detail.Code)
	assert.Equal(t, models.DefaultClassroomCapacity, detail.Capacity)
	assert.Equal(t, models.DefaultClassroomDuration, detail.DurationMinutes)
	assert.True(t, detail.IsPublic)
	assert.Equal(t, models.DefaultClassroomCapacity, detail.AvailableSeats)
	assert.False(t, detail.IsFull)
	assert.Nil(t, detail.NextSession)
	assert.Equal(t, []string{"math"}, []string(detail.Tags))
}

func TestClassroomServiceCreateValidation(t *testing.T) {
	svc := newTestClassroomService(newMockClassroomRepo(), nil)

	_, err := svc.Create(context.Background(), teacherPrincipal(5), models.CreateClassroomRequest{Title: "  ", Capacity: intPtr(0)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "title")
}

func TestClassroomServiceDerivedFields(t *testing.T) {
	startsAt := time.Now().Add(time.Hour)
	repo := newMockClassroomRepo(&models.Classroom{ID: 1, TeacherID: 5, Code: "ABC123", Capacity: 2, ReservedSeats: 2, IsPublic: true})
	next := stubNextSessions{1: {ID: 9, ClassroomID: 1, StartsAt: startsAt, Status: models.SessionScheduled, HostURL: "https://live/host/K", PlaybackURL: "https://live/watch/K"}}
	svc := newTestClassroomService(repo, next)

	detail, err := svc.Get(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, detail.AvailableSeats)
	assert.True(t, detail.IsFull)
	require.NotNil(t, detail.NextSession)
	assert.Equal(t, int64(9), detail.NextSession.ID)
	assert.True(t, detail.NextSession.IsJoinable)
	assert.Empty(t, detail.NextSession.HostURL)

	owned, err := svc.Get(context.Background(), teacherPrincipal(5), 1)
	require.NoError(t, err)
	assert.Equal(t, "https://live/host/K", owned.NextSession.HostURL)
}

func TestClassroomServiceGetByCodeNormalizes(t *testing.T) {
	repo := newMockClassroomRepo(&models.Classroom{ID: 1, TeacherID: 5, Code: "ABC123", Capacity: 10})
	svc := newTestClassroomService(repo, nil)

	detail, err := svc.GetByCode(context.Background(), nil, " abc123 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ID)

	_, err = svc.GetByCode(context.Background(), nil, "ZZZ999")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "Class not found.", appErr.Message)
}

func TestClassroomServiceListSetsViewer(t *testing.T) {
	repo := newMockClassroomRepo(&models.Classroom{ID: 1, TeacherID: 5, Capacity: 10})
	svc := newTestClassroomService(repo, nil)

	_, pagination, err := svc.List(context.Background(), teacherPrincipal(5), models.ClassroomFilter{Search: " alg "})
	require.NoError(t, err)
	require.NotNil(t, repo.listFilter.ViewerTeacherID)
	assert.Equal(t, int64(5), *repo.listFilter.ViewerTeacherID)
	assert.Equal(t, "alg", repo.listFilter.Search)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = svc.List(context.Background(), studentPrincipal(2), models.ClassroomFilter{})
	require.NoError(t, err)
	assert.Nil(t, repo.listFilter.ViewerTeacherID)
}

func TestClassroomServiceUpdateOwnership(t *testing.T) {
	repo := newMockClassroomRepo(&models.Classroom{ID: 1, TeacherID: 5, Title: "Old", Capacity: 10})
	svc := newTestClassroomService(repo, nil)
	title := "New"

	_, err := svc.Update(context.Background(), teacherPrincipal(6), 1, models.UpdateClassroomRequest{Title: &title})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "You can only update your own classrooms.", appErr.Message)

	detail, err := svc.Update(context.Background(), teacherPrincipal(5), 1, models.UpdateClassroomRequest{Title: &title, Capacity: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, "New", detail.Title)
	assert.Equal(t, 3, repo.items[1].Capacity)
}

func TestClassroomServiceDelete(t *testing.T) {
	repo := newMockClassroomRepo(&models.Classroom{ID: 1, TeacherID: 5})
	svc := newTestClassroomService(repo, nil)

	err := svc.Delete(context.Background(), studentPrincipal(1), 1)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), teacherPrincipal(5), 1))
	assert.Equal(t, []int64{1}, repo.deleted)

	err = svc.Delete(context.Background(), teacherPrincipal(5), 1)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassroomServiceOwned(t *testing.T) {
	repo := newMockClassroomRepo(
		&models.Classroom{ID: 1, TeacherID: 5, Capacity: 10},
		&models.Classroom{ID: 2, TeacherID: 6, Capacity: 10},
	)
	svc := newTestClassroomService(repo, nil)

	owned, err := svc.Owned(context.Background(), teacherPrincipal(5))
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, int64(1), owned[0].ID)
	assert.Equal(t, 10, owned[0].AvailableSeats)

	_, err = svc.Owned(context.Background(), studentPrincipal(1))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestClassroomServicePrivateClassroomVisibility(t *testing.T) {
	repo := newMockClassroomRepo(&models.Classroom{ID: 1, TeacherID: 5, Code: "PRIV01", Capacity: 10})
	svc := newTestClassroomService(repo, nil)
	ctx := context.Background()

	for name, viewer := range map[string]*models.Principal{
		"anonymous":     nil,
		"student":       studentPrincipal(8),
		"other teacher": teacherPrincipal(9),
	} {
		_, err := svc.Get(ctx, viewer, 1)
		require.Error(t, err, name)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code, name)
	}

	owned, err := svc.Get(ctx, teacherPrincipal(5), 1)
	require.NoError(t, err)
	assert.Equal(t, "PRIV01", owned.Code)

	invited, err := svc.GetByCode(ctx, studentPrincipal(8), "priv01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), invited.ID)
}
