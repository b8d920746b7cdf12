package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/internal/repository"
	"github.com/noah-isme/engir-api/pkg/codegen"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
)

// Intake messages shown to registrants.
const (
	msgClassFull         = "This class is already full."
	msgDuplicateEmail    = "You are already registered for this class with this email."
	msgInvalidClassCode  = "Invalid class code."
	msgMissingClassroom  = "Provide classroom_id or class_code to join a class."
	msgUnknownClassroom  = "Class not found."
	msgEnrollmentNotMine = "You can only update enrollments for your classrooms or your own registrations."
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	FindByID(ctx context.Context, id int64) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment, claimSeat bool) error
}

type classroomLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Classroom, error)
	FindByCode(ctx context.Context, code string) (*models.Classroom, error)
}

// EnrollmentService runs classroom intake and the enrollment lifecycle.
type EnrollmentService struct {
	repo       enrollmentRepository
	classrooms classroomLookup
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, classrooms classroomLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, classrooms: classrooms, metrics: metrics, validator: validate, logger: logger}
}

// List returns the enrollments visible to principal: staff see all of them, teachers those of their
// classrooms and students their own registrations.
func (s *EnrollmentService) List(ctx context.Context, principal *models.Principal, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	if principal == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter.TeacherID = nil
	filter.StudentID = nil
	if principal.Role != models.RoleStaff {
		if !principal.IsTeacher() && !principal.IsStudent() {
			return []models.Enrollment{}, filter.Pagination(0), nil
		}
		filter.TeacherID = principal.TeacherID
		filter.StudentID = principal.StudentID
	}

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list enrollments")
	}
	return enrollments, filter.Pagination(total), nil
}

// Get returns one enrollment if principal may see it. Hidden rows read as missing.
func (s *EnrollmentService) Get(ctx context.Context, principal *models.Principal, id int64) (*models.Enrollment, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	enrollment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeEnrollment(principal, enrollment) {
		return nil, notFound("enrollment not found")
	}
	return enrollment, nil
}

// Create registers for a classroom. The classroom comes from classroom_id or else from class_code.
// A principal with a student profile registers as that student whatever name and email were sent.
func (s *EnrollmentService) Create(ctx context.Context, principal *models.Principal, req models.CreateEnrollmentRequest) (*models.Enrollment, error) {
	classroom, err := s.resolveClassroom(ctx, req)
	if err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		ClassroomID: classroom.ID,
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.TrimSpace(req.Email),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Notes:       req.Notes,
		Status:      req.Status,
		Source:      strings.TrimSpace(req.Source),
	}
	if principal.IsStudent() {
		studentID := *principal.StudentID
		enrollment.StudentID = &studentID
		enrollment.FullName = principal.FullName
		enrollment.Email = principal.Email
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentPending
	}
	if enrollment.Source == "" {
		enrollment.Source = models.DefaultEnrollmentSource
	}

	req.FullName = enrollment.FullName
	req.Email = enrollment.Email
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, s.intakeError(err)
	}
	s.metrics.RecordEnrollment(string(enrollment.Status))
	s.logger.Info("enrollment created",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Int64("classroom_id", enrollment.ClassroomID),
		zap.String("status", string(enrollment.Status)),
	)

	enrollment.Classroom = classroomSummary(classroom)
	return enrollment, nil
}

// Update changes contact details or status. The owning teacher may set any status; the enrolled
// student may edit contact details and cancel. Moving back to a seat holding status needs a free seat.
func (s *EnrollmentService) Update(ctx context.Context, principal *models.Principal, id int64, req models.UpdateEnrollmentRequest) (*models.Enrollment, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	enrollment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := enrollment.Classroom != nil && principal.IsTeacherOf(enrollment.Classroom.TeacherID)
	self := principal.IsStudentOf(enrollment.StudentID)
	if !owner && !self {
		return nil, appErrors.Clone(appErrors.ErrForbidden, msgEnrollmentNotMine)
	}
	if req.Status != nil && !owner && *req.Status != models.EnrollmentCancelled && *req.Status != enrollment.Status {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only the class teacher can confirm an enrollment.")
	}

	if req.FullName != nil {
		enrollment.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.PhoneNumber != nil {
		enrollment.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Notes != nil {
		enrollment.Notes = *req.Notes
	}
	claimSeat := false
	if req.Status != nil {
		claimSeat = !enrollment.Status.ReservesSeat() && req.Status.ReservesSeat()
		enrollment.Status = *req.Status
	}

	if err := s.repo.Update(ctx, enrollment, claimSeat); err != nil {
		if errors.Is(err, repository.ErrClassroomFull) {
			s.metrics.RecordEnrollmentRejected("full")
			return nil, appErrors.Field("classroom", msgClassFull)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("enrollment not found")
		}
		return nil, internalError(err, "failed to update enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) resolveClassroom(ctx context.Context, req models.CreateEnrollmentRequest) (*models.Classroom, error) {
	if req.ClassroomID != nil {
		classroom, err := s.classrooms.FindByID(ctx, *req.ClassroomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Field("classroom_id", msgUnknownClassroom)
			}
			return nil, internalError(err, "failed to load class")
		}
		return classroom, nil
	}

	code := codegen.NormalizeClassCode(req.ClassCode)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgMissingClassroom)
	}
	classroom, err := s.classrooms.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordEnrollmentRejected("invalid_code")
			return nil, appErrors.Field("class_code", msgInvalidClassCode)
		}
		return nil, internalError(err, "failed to load class")
	}
	return classroom, nil
}

func (s *EnrollmentService) intakeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrClassroomFull):
		s.metrics.RecordEnrollmentRejected("full")
		return appErrors.Field("classroom", msgClassFull)
	case errors.Is(err, repository.ErrDuplicateEnrollment):
		s.metrics.RecordEnrollmentRejected("duplicate")
		return appErrors.Clone(appErrors.ErrValidation, msgDuplicateEmail)
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Field("classroom_id", msgUnknownClassroom)
	default:
		return internalError(err, "failed to create enrollment")
	}
}

func (s *EnrollmentService) load(ctx context.Context, id int64) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("enrollment not found")
		}
		return nil, internalError(err, "failed to load enrollment")
	}
	return enrollment, nil
}

func canSeeEnrollment(principal *models.Principal, enrollment *models.Enrollment) bool {
	if principal.Role == models.RoleStaff {
		return true
	}
	if enrollment.Classroom != nil && principal.IsTeacherOf(enrollment.Classroom.TeacherID) {
		return true
	}
	return principal.IsStudentOf(enrollment.StudentID)
}
