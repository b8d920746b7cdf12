// Package seed loads demo fixtures through the regular services so seeded rows obey the same rules
// as API traffic. Running it twice leaves the database unchanged.
package seed

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/engir-api/internal/models"
)

//go:embed demo.yaml
var demoFixture []byte

// Source tags enrollments created by the seeder.
const Source = "seed"

// Fixture describes the demo data set.
type Fixture struct {
	Password         string                  `yaml:"password"`
	Teacher          TeacherFixture          `yaml:"teacher"`
	Students         []StudentFixture        `yaml:"students"`
	Classrooms       []ClassroomFixture      `yaml:"classrooms"`
	Session          SessionFixture          `yaml:"session"`
	EnrollmentStatus models.EnrollmentStatus `yaml:"enrollment_status"`
}

type TeacherFixture struct {
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
	Headline string `yaml:"headline"`
	Bio      string `yaml:"bio"`
}

type StudentFixture struct {
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
	Bio      string `yaml:"bio"`
	Timezone string `yaml:"timezone"`
}

type ClassroomFixture struct {
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	DurationMinutes int      `yaml:"duration_minutes"`
	Capacity        int      `yaml:"capacity"`
	Tags            []string `yaml:"tags"`
}

type SessionFixture struct {
	Description string `yaml:"description"`
}

// Demo returns the embedded demo fixture.
func Demo() (*Fixture, error) {
	return Parse(demoFixture)
}

// LoadFile reads a fixture from path.
func LoadFile(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML fixture and checks it is usable.
func Parse(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if f.EnrollmentStatus == "" {
		f.EnrollmentStatus = models.EnrollmentConfirmed
	}
	switch {
	case len(f.Password) < 8:
		return nil, errors.New("fixture password must be at least 8 characters")
	case strings.TrimSpace(f.Teacher.Email) == "":
		return nil, errors.New("fixture teacher email is required")
	case f.EnrollmentStatus != models.EnrollmentPending && f.EnrollmentStatus != models.EnrollmentConfirmed:
		return nil, fmt.Errorf("fixture enrollment status %q is not pending or confirmed", f.EnrollmentStatus)
	}
	return &f, nil
}

// Accounts registers users and resolves existing ones.
type Accounts interface {
	RegisterTeacher(ctx context.Context, req models.RegisterTeacherRequest) (*models.UserInfo, error)
	RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.UserInfo, error)
	Me(ctx context.Context, principal *models.Principal) (*models.UserInfo, error)
}

// UserFinder looks users up by email. A missing user is sql.ErrNoRows.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type Classrooms interface {
	Owned(ctx context.Context, principal *models.Principal) ([]models.ClassroomDetail, error)
	Create(ctx context.Context, principal *models.Principal, req models.CreateClassroomRequest) (*models.ClassroomDetail, error)
}

type Sessions interface {
	List(ctx context.Context, principal *models.Principal, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error)
	Create(ctx context.Context, principal *models.Principal, req models.CreateSessionRequest) (*models.SessionDetail, error)
}

type Enrollments interface {
	List(ctx context.Context, principal *models.Principal, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error)
	Create(ctx context.Context, principal *models.Principal, req models.CreateEnrollmentRequest) (*models.Enrollment, error)
}

// Params groups Seeder dependencies.
type Params struct {
	Accounts    Accounts
	Users       UserFinder
	Classrooms  Classrooms
	Sessions    Sessions
	Enrollments Enrollments
	Logger      *zap.Logger
}

// Result counts the rows a run created.
type Result struct {
	Users       int
	Classrooms  int
	Sessions    int
	Enrollments int
}

// Seeder writes a Fixture.
type Seeder struct {
	accounts    Accounts
	users       UserFinder
	classrooms  Classrooms
	sessions    Sessions
	enrollments Enrollments
	logger      *zap.Logger
	now         func() time.Time
}

// New constructs a Seeder.
func New(p Params) *Seeder {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		accounts:    p.Accounts,
		users:       p.Users,
		classrooms:  p.Classrooms,
		sessions:    p.Sessions,
		enrollments: p.Enrollments,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run creates whatever part of f is missing: the teacher, the students, one classroom per entry with a
// session starting N days from now, and an enrollment of every student in every classroom.
func (s *Seeder) Run(ctx context.Context, f *Fixture) (*Result, error) {
	res := &Result{}

	teacher, err := s.account(ctx, f.Teacher.Email, res, func() (*models.UserInfo, error) {
		return s.accounts.RegisterTeacher(ctx, models.RegisterTeacherRequest{
			FullName: f.Teacher.FullName,
			Email:    f.Teacher.Email,
			Password: f.Password,
			Headline: f.Teacher.Headline,
			Bio:      f.Teacher.Bio,
		})
	})
	if err != nil {
		return nil, err
	}
	owner := teacher.Principal()
	if !owner.IsTeacher() {
		return nil, fmt.Errorf("user %s exists without a teacher profile", f.Teacher.Email)
	}

	students := make([]*models.Principal, 0, len(f.Students))
	for _, st := range f.Students {
		st := st
		info, err := s.account(ctx, st.Email, res, func() (*models.UserInfo, error) {
			return s.accounts.RegisterStudent(ctx, models.RegisterStudentRequest{
				FullName: st.FullName,
				Email:    st.Email,
				Password: f.Password,
				Bio:      st.Bio,
				Timezone: st.Timezone,
			})
		})
		if err != nil {
			return nil, err
		}
		p := info.Principal()
		if !p.IsStudent() {
			return nil, fmt.Errorf("user %s exists without a student profile", st.Email)
		}
		students = append(students, p)
	}

	owned, err := s.classrooms.Owned(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list demo classrooms: %w", err)
	}
	byTitle := make(map[string]models.Classroom, len(owned))
	for _, c := range owned {
		byTitle[c.Title] = c.Classroom
	}

	now := s.now().Truncate(time.Minute)
	for idx, fc := range f.Classrooms {
		classroom, ok := byTitle[fc.Title]
		if !ok {
			created, err := s.createClassroom(ctx, owner, fc)
			if err != nil {
				return nil, err
			}
			classroom = created.Classroom
			res.Classrooms++
		}

		title := fmt.Sprintf("%s Session %d", classroom.Title, idx+1)
		created, err := s.ensureSession(ctx, owner, classroom.ID, title, f.Session.Description, fc.DurationMinutes, now.AddDate(0, 0, idx+1))
		if err != nil {
			return nil, err
		}
		if created {
			res.Sessions++
		}

		for _, student := range students {
			created, err := s.ensureEnrollment(ctx, student, classroom.ID, f.EnrollmentStatus)
			if err != nil {
				return nil, err
			}
			if created {
				res.Enrollments++
			}
		}
	}

	s.logger.Info("demo data ready",
		zap.String("login", f.Teacher.Email),
		zap.Int("users_created", res.Users),
		zap.Int("classrooms_created", res.Classrooms),
		zap.Int("sessions_created", res.Sessions),
		zap.Int("enrollments_created", res.Enrollments),
	)
	return res, nil
}

func (s *Seeder) account(ctx context.Context, email string, res *Result, register func() (*models.UserInfo, error)) (*models.UserInfo, error) {
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		info, err := s.accounts.Me(ctx, &models.Principal{UserID: user.ID})
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", email, err)
		}
		return info, nil
	case errors.Is(err, sql.ErrNoRows):
		info, err := register()
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", email, err)
		}
		res.Users++
		return info, nil
	default:
		return nil, fmt.Errorf("find %s: %w", email, err)
	}
}

func (s *Seeder) createClassroom(ctx context.Context, owner *models.Principal, fc ClassroomFixture) (*models.ClassroomDetail, error) {
	public := true
	req := models.CreateClassroomRequest{
		Title:       fc.Title,
		Description: fc.Description,
		Tags:        fc.Tags,
		IsPublic:    &public,
	}
	if fc.Capacity > 0 {
		capacity := fc.Capacity
		req.Capacity = &capacity
	}
	if fc.DurationMinutes > 0 {
		duration := fc.DurationMinutes
		req.DurationMinutes = &duration
	}
	created, err := s.classrooms.Create(ctx, owner, req)
	if err != nil {
		return nil, fmt.Errorf("create classroom %q: %w", fc.Title, err)
	}
	return created, nil
}

func (s *Seeder) ensureSession(ctx context.Context, owner *models.Principal, classroomID int64, title, description string, duration int, startsAt time.Time) (bool, error) {
	existing, _, err := s.sessions.List(ctx, owner, models.SessionFilter{
		ClassroomID: &classroomID,
		Search:      title,
		ListOptions: models.ListOptions{PageSize: models.MaxPageSize},
	})
	if err != nil {
		return false, fmt.Errorf("list sessions of classroom %d: %w", classroomID, err)
	}
	for _, session := range existing {
		if session.Title == title {
			return false, nil
		}
	}

	req := models.CreateSessionRequest{
		ClassroomID: classroomID,
		Title:       title,
		Description: description,
		StartsAt:    startsAt,
	}
	if duration > 0 {
		req.DurationMinutes = &duration
	}
	if _, err := s.sessions.Create(ctx, owner, req); err != nil {
		return false, fmt.Errorf("create session %q: %w", title, err)
	}
	return true, nil
}

func (s *Seeder) ensureEnrollment(ctx context.Context, student *models.Principal, classroomID int64, status models.EnrollmentStatus) (bool, error) {
	existing, _, err := s.enrollments.List(ctx, student, models.EnrollmentFilter{ClassroomID: &classroomID})
	if err != nil {
		return false, fmt.Errorf("list enrollments of %s: %w", student.Email, err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	if _, err := s.enrollments.Create(ctx, student, models.CreateEnrollmentRequest{
		ClassroomID: &classroomID,
		FullName:    student.FullName,
		Email:       student.Email,
		Status:      status,
		Source:      Source,
	}); err != nil {
		return false, fmt.Errorf("enroll %s in classroom %d: %w", student.Email, classroomID, err)
	}
	return true, nil
}
