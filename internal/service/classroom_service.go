package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/pkg/codegen"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id int64) (*models.Classroom, error)
	FindByCode(ctx context.Context, code string) (*models.Classroom, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Classroom, error)
	Create(ctx context.Context, classroom *models.Classroom, attempts int) (int, error)
	Update(ctx context.Context, classroom *models.Classroom) error
	Delete(ctx context.Context, id int64) error
}

type nextSessionFinder interface {
	NextForClassrooms(ctx context.Context, classroomIDs []int64) (map[int64]*models.Session, error)
}

// ClassroomConfig tunes classroom creation and derived fields.
type ClassroomConfig struct {
	CodeAttempts    int
	LiveGracePeriod time.Duration
}

// ClassroomService manages teacher owned classrooms and computes their seat and schedule read model.
type ClassroomService struct {
	repo      classroomRepository
	sessions  nextSessionFinder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ClassroomConfig
	now       func() time.Time
}

// NewClassroomService constructs ClassroomService.
func NewClassroomService(repo classroomRepository, sessions nextSessionFinder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config ClassroomConfig) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CodeAttempts <= 0 {
		config.CodeAttempts = 10
	}
	if config.LiveGracePeriod <= 0 {
		config.LiveGracePeriod = 5 * time.Minute
	}
	return &ClassroomService{
		repo:      repo,
		sessions:  sessions,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns classrooms visible to principal. Private classrooms only show up for their owner.
func (s *ClassroomService) List(ctx context.Context, principal *models.Principal, filter models.ClassroomFilter) ([]models.ClassroomDetail, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.ViewerTeacherID = viewerTeacherID(principal)

	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list classes")
	}
	details, err := s.details(ctx, principal, classrooms)
	if err != nil {
		return nil, nil, err
	}
	return details, filter.Pagination(total), nil
}

// Get returns one classroom with its derived fields. Private classrooms are only found by their owner;
// everyone else reaches them through the join code.
func (s *ClassroomService) Get(ctx context.Context, principal *models.Principal, id int64) (*models.ClassroomDetail, error) {
	classroom, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !classroom.IsPublic && !principal.IsTeacherOf(classroom.TeacherID) {
		return nil, notFound("class not found")
	}
	return s.detail(ctx, principal, classroom)
}

// GetByCode looks a classroom up by its join code, ignoring case and surrounding blanks.
func (s *ClassroomService) GetByCode(ctx context.Context, principal *models.Principal, code string) (*models.ClassroomDetail, error) {
	normalized := codegen.NormalizeClassCode(code)
	if !codegen.IsClassCode(normalized) {
		return nil, notFound("Class not found.")
	}
	classroom, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Class not found.")
		}
		return nil, internalError(err, "failed to load class")
	}
	return s.detail(ctx, principal, classroom)
}

// Create adds a classroom owned by the calling teacher and assigns it a fresh join code.
func (s *ClassroomService) Create(ctx context.Context, principal *models.Principal, req models.CreateClassroomRequest) (*models.ClassroomDetail, error) {
	if err := requireTeacher(principal, "Only teachers can create classrooms."); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	classroom := &models.Classroom{
		TeacherID:   *principal.TeacherID,
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		MeetingURL:  req.MeetingURL,
		Tags:        cleanList(req.Tags),
		IsPublic:    true,
	}
	if req.DurationMinutes != nil {
		classroom.DurationMinutes = *req.DurationMinutes
	}
	if req.Capacity != nil {
		classroom.Capacity = *req.Capacity
	}
	if req.IsPublic != nil {
		classroom.IsPublic = *req.IsPublic
	}
	classroom.ApplyDefaults()

	redraws, err := s.repo.Create(ctx, classroom, s.config.CodeAttempts)
	if err != nil {
		if errors.Is(err, codegen.ErrExhausted) {
			s.logger.Error("class code space exhausted", zap.Int("attempts", s.config.CodeAttempts))
		}
		return nil, internalError(err, "failed to create class")
	}
	s.metrics.RecordClassroomCreated(redraws)
	s.logger.Info("classroom created",
		zap.Int64("classroom_id", classroom.ID),
		zap.String("code", classroom.Code),
		zap.Int("code_redraws", redraws),
	)

	return s.Get(ctx, principal, classroom.ID)
}

// Update patches a classroom owned by the calling teacher.
func (s *ClassroomService) Update(ctx context.Context, principal *models.Principal, id int64, req models.UpdateClassroomRequest) (*models.ClassroomDetail, error) {
	classroom, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(principal, classroom.TeacherID, "You can only update your own classrooms."); err != nil {
		return nil, err
	}
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	if req.Title != nil {
		classroom.Title = *req.Title
	}
	if req.Description != nil {
		classroom.Description = *req.Description
	}
	if req.StartsAt != nil {
		classroom.StartsAt = req.StartsAt
	}
	if req.DurationMinutes != nil {
		classroom.DurationMinutes = *req.DurationMinutes
	}
	if req.Capacity != nil {
		classroom.Capacity = *req.Capacity
	}
	if req.MeetingURL != nil {
		classroom.MeetingURL = strings.TrimSpace(*req.MeetingURL)
	}
	if req.Tags != nil {
		classroom.Tags = cleanList(req.Tags)
	}
	if req.IsPublic != nil {
		classroom.IsPublic = *req.IsPublic
	}

	if err := s.repo.Update(ctx, classroom); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("class not found")
		}
		return nil, internalError(err, "failed to update class")
	}
	return s.detail(ctx, principal, classroom)
}

// Delete removes a classroom owned by the calling teacher together with its enrollments and sessions.
func (s *ClassroomService) Delete(ctx context.Context, principal *models.Principal, id int64) error {
	classroom, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(principal, classroom.TeacherID, "You can only delete your own classrooms."); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("class not found")
		}
		return internalError(err, "failed to delete class")
	}
	s.logger.Info("classroom deleted", zap.Int64("classroom_id", id))
	return nil
}

// Owned returns every classroom of the teacher principal, private ones included.
func (s *ClassroomService) Owned(ctx context.Context, principal *models.Principal) ([]models.ClassroomDetail, error) {
	if err := requireTeacher(principal, "Only teachers own classrooms."); err != nil {
		return nil, err
	}
	classrooms, err := s.repo.ListByTeacher(ctx, *principal.TeacherID)
	if err != nil {
		return nil, internalError(err, "failed to list teacher classes")
	}
	return s.details(ctx, principal, classrooms)
}

func (s *ClassroomService) load(ctx context.Context, id int64) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("class not found")
		}
		return nil, internalError(err, "failed to load class")
	}
	return classroom, nil
}

func (s *ClassroomService) detail(ctx context.Context, principal *models.Principal, classroom *models.Classroom) (*models.ClassroomDetail, error) {
	details, err := s.details(ctx, principal, []models.Classroom{*classroom})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// details attaches seat counts and the next session. Host URLs stay visible to the owner only.
func (s *ClassroomService) details(ctx context.Context, principal *models.Principal, classrooms []models.Classroom) ([]models.ClassroomDetail, error) {
	out := make([]models.ClassroomDetail, 0, len(classrooms))
	if len(classrooms) == 0 {
		return out, nil
	}

	ids := make([]int64, len(classrooms))
	for i, c := range classrooms {
		ids[i] = c.ID
	}
	next := map[int64]*models.Session{}
	if s.sessions != nil {
		found, err := s.sessions.NextForClassrooms(ctx, ids)
		if err != nil {
			return nil, internalError(err, "failed to load next sessions")
		}
		next = found
	}

	now := s.now()
	for _, c := range classrooms {
		detail := models.NewClassroomDetail(c, next[c.ID], now, s.config.LiveGracePeriod)
		if detail.NextSession != nil && !principal.IsTeacherOf(c.TeacherID) {
			detail.NextSession.HostURL = ""
		}
		out = append(out, detail)
	}
	return out, nil
}
