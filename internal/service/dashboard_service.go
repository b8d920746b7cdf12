package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/engir-api/internal/dto"
	"github.com/noah-isme/engir-api/internal/models"
)

type ownedClassroomLister interface {
	Owned(ctx context.Context, principal *models.Principal) ([]models.ClassroomDetail, error)
}

type upcomingSessionLister interface {
	UpcomingForTeacher(ctx context.Context, teacherID int64, now time.Time, limit int) ([]models.Session, error)
	UpcomingForStudent(ctx context.Context, studentID int64, now time.Time) ([]models.Session, error)
}

type dashboardEnrollmentLister interface {
	RecentForTeacher(ctx context.Context, teacherID int64, limit int) ([]models.Enrollment, error)
	ListForStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error)
}

type teacherFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

// DashboardServiceConfig tunes dashboard composition.
type DashboardServiceConfig struct {
	UpcomingLimit   int
	RecentLimit     int
	LiveGracePeriod time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Teachers    teacherFinder
	Students    studentFinder
	Classrooms  ownedClassroomLister
	Sessions    upcomingSessionLister
	Enrollments dashboardEnrollmentLister
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// DashboardService composes the teacher and student home screens.
type DashboardService struct {
	teachers    teacherFinder
	students    studentFinder
	classrooms  ownedClassroomLister
	sessions    upcomingSessionLister
	enrollments dashboardEnrollmentLister
	logger      *zap.Logger
	cfg         DashboardServiceConfig
	now         func() time.Time
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = 10
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if cfg.LiveGracePeriod <= 0 {
		cfg.LiveGracePeriod = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		teachers:    params.Teachers,
		students:    params.Students,
		classrooms:  params.Classrooms,
		sessions:    params.Sessions,
		enrollments: params.Enrollments,
		logger:      logger,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Teacher returns the teacher dashboard of principal.
func (s *DashboardService) Teacher(ctx context.Context, principal *models.Principal) (*dto.TeacherDashboardResponse, error) {
	if err := requireTeacher(principal, "Teacher dashboard is only available to teachers."); err != nil {
		return nil, err
	}
	teacherID := *principal.TeacherID

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("teacher not found")
		}
		return nil, internalError(err, "failed to load teacher")
	}

	classes, err := s.classrooms.Owned(ctx, principal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sessions, err := s.sessions.UpcomingForTeacher(ctx, teacherID, now, s.cfg.UpcomingLimit)
	if err != nil {
		return nil, internalError(err, "failed to load upcoming sessions")
	}

	recent, err := s.enrollments.RecentForTeacher(ctx, teacherID, s.cfg.RecentLimit)
	if err != nil {
		return nil, internalError(err, "failed to load recent enrollments")
	}
	if recent == nil {
		recent = []models.Enrollment{}
	}

	return &dto.TeacherDashboardResponse{
		Teacher:           teacher,
		Classes:           classes,
		UpcomingSessions:  s.sessionDetails(sessions, now, false),
		RecentEnrollments: recent,
	}, nil
}

// Student returns the student dashboard of principal.
func (s *DashboardService) Student(ctx context.Context, principal *models.Principal) (*dto.StudentDashboardResponse, error) {
	if err := requireStudent(principal, "Student dashboard is only available to students."); err != nil {
		return nil, err
	}
	studentID := *principal.StudentID

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("student not found")
		}
		return nil, internalError(err, "failed to load student")
	}

	enrollments, err := s.enrollments.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load enrollments")
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}

	now := s.now()
	sessions, err := s.sessions.UpcomingForStudent(ctx, studentID, now)
	if err != nil {
		return nil, internalError(err, "failed to load upcoming sessions")
	}

	return &dto.StudentDashboardResponse{
		Student:          student,
		Enrollments:      enrollments,
		UpcomingSessions: s.sessionDetails(sessions, now, true),
	}, nil
}

func (s *DashboardService) sessionDetails(sessions []models.Session, now time.Time, redact bool) []models.SessionDetail {
	out := make([]models.SessionDetail, 0, len(sessions))
	seen := make(map[int64]struct{}, len(sessions))
	for _, session := range sessions {
		if _, dup := seen[session.ID]; dup {
			continue
		}
		seen[session.ID] = struct{}{}
		if redact {
			session.Redact()
		}
		out = append(out, models.NewSessionDetail(session, now, s.cfg.LiveGracePeriod))
	}
	return out
}
