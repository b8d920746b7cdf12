package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/pkg/codegen"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
)

const (
	msgScheduleNotOwner = "You can only schedule sessions for your classrooms."
	msgEditNotOwner     = "You can only edit sessions for your classrooms."
	msgEndsBeforeStart  = "End time must be after the start time."
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	FindByID(ctx context.Context, id int64) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Mutate(ctx context.Context, id int64, fn func(*models.Session) error) (*models.Session, error)
	Delete(ctx context.Context, id int64) error
}

// SessionConfig carries the session lifecycle settings.
type SessionConfig struct {
	Endpoints         models.StreamEndpoints
	StrictTransitions bool
	LiveGracePeriod   time.Duration
	DefaultDuration   int
}

// SessionService schedules livestream sessions and drives their lifecycle.
type SessionService struct {
	repo       sessionRepository
	classrooms classroomLookup
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     SessionConfig
	newKey     func() (string, error)
	now        func() time.Time
}

// NewSessionService constructs SessionService.
func NewSessionService(repo sessionRepository, classrooms classroomLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config SessionConfig) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.LiveGracePeriod <= 0 {
		config.LiveGracePeriod = 5 * time.Minute
	}
	if config.DefaultDuration <= 0 {
		config.DefaultDuration = models.DefaultSessionDuration
	}
	return &SessionService{
		repo:       repo,
		classrooms: classrooms,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
		newKey:     codegen.StreamKey,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// List returns sessions of classrooms visible to principal, earliest first by default.
func (s *SessionService) List(ctx context.Context, principal *models.Principal, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.ViewerTeacherID = viewerTeacherID(principal)
	if filter.Now.IsZero() {
		filter.Now = s.now()
	}

	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list sessions")
	}
	out := make([]models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, s.present(principal, session))
	}
	return out, filter.Pagination(total), nil
}

// Get returns one session. Broadcaster credentials are only shown to the classroom owner.
func (s *SessionService) Get(ctx context.Context, principal *models.Principal, id int64) (*models.SessionDetail, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Classroom != nil && !session.Classroom.IsPublic && !principal.IsTeacherOf(session.Classroom.TeacherID) {
		return nil, notFound("session not found")
	}
	detail := s.present(principal, *session)
	return &detail, nil
}

// Create schedules a session under a classroom owned by principal.
func (s *SessionService) Create(ctx context.Context, principal *models.Principal, req models.CreateSessionRequest) (*models.SessionDetail, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	classroom, err := s.classrooms.FindByID(ctx, req.ClassroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Field("classroom_id", msgUnknownClassroom)
		}
		return nil, internalError(err, "failed to load class")
	}
	if err := requireOwner(principal, classroom.TeacherID, msgScheduleNotOwner); err != nil {
		return nil, err
	}

	session := &models.Session{
		ClassroomID:     classroom.ID,
		Title:           req.Title,
		Description:     req.Description,
		StartsAt:        req.StartsAt.UTC(),
		EndsAt:          utcPtr(req.EndsAt),
		Status:          req.Status,
		StreamProvider:  req.StreamProvider,
		HostURL:         req.HostURL,
		PlaybackURL:     req.PlaybackURL,
		RecordingURL:    req.RecordingURL,
		MeetingPasscode: req.MeetingPasscode,
		DurationMinutes: s.config.DefaultDuration,
	}
	if req.DurationMinutes != nil {
		session.DurationMinutes = *req.DurationMinutes
	}
	if err := checkTimeOrder(session); err != nil {
		return nil, err
	}
	session.ApplyDefaults()
	session.DeriveEndsAt()
	if err := session.EnsureCredentials(s.config.Endpoints, s.newKey); err != nil {
		return nil, internalError(err, "failed to generate stream key")
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, internalError(err, "failed to create session")
	}
	session.Classroom = classroomSummary(classroom)
	s.logger.Info("session scheduled",
		zap.Int64("session_id", session.ID),
		zap.Int64("classroom_id", classroom.ID),
		zap.Time("starts_at", session.StartsAt),
	)

	detail := s.present(principal, *session)
	return &detail, nil
}

// Update patches a session of a classroom owned by principal. ends_at is kept unless sent explicitly.
func (s *SessionService) Update(ctx context.Context, principal *models.Principal, id int64, req models.UpdateSessionRequest) (*models.SessionDetail, error) {
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	return s.mutate(ctx, principal, id, "update", func(session *models.Session) error {
		if req.Title != nil {
			session.Title = *req.Title
		}
		if req.Description != nil {
			session.Description = *req.Description
		}
		if req.StartsAt != nil {
			session.StartsAt = req.StartsAt.UTC()
		}
		if req.EndsAt != nil {
			session.EndsAt = utcPtr(req.EndsAt)
		}
		if req.DurationMinutes != nil {
			session.DurationMinutes = *req.DurationMinutes
		}
		if req.Status != nil {
			if err := session.SetStatus(*req.Status, s.config.StrictTransitions); err != nil {
				return err
			}
		}
		if req.StreamProvider != nil {
			session.StreamProvider = *req.StreamProvider
		}
		if req.HostURL != nil {
			session.HostURL = *req.HostURL
		}
		if req.PlaybackURL != nil {
			session.PlaybackURL = *req.PlaybackURL
		}
		if req.RecordingURL != nil {
			session.RecordingURL = *req.RecordingURL
		}
		if req.MeetingPasscode != nil {
			session.MeetingPasscode = *req.MeetingPasscode
		}
		if err := checkTimeOrder(session); err != nil {
			return err
		}
		session.DeriveEndsAt()
		return session.EnsureCredentials(s.config.Endpoints, s.newKey)
	})
}

// Delete removes a session of a classroom owned by principal.
func (s *SessionService) Delete(ctx context.Context, principal *models.Principal, id int64) error {
	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(principal, sessionOwner(session), msgEditNotOwner); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("session not found")
		}
		return internalError(err, "failed to delete session")
	}
	return nil
}

// RegenerateStreamKey rotates the stream key and rebuilds both URLs from it.
func (s *SessionService) RegenerateStreamKey(ctx context.Context, principal *models.Principal, id int64) (*models.StreamCredentials, error) {
	detail, err := s.mutate(ctx, principal, id, "regenerate", func(session *models.Session) error {
		return session.RegenerateCredentials(s.config.Endpoints, s.newKey)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stream credentials rotated", zap.Int64("session_id", id))
	return &models.StreamCredentials{
		StreamKey:   detail.StreamKey,
		HostURL:     detail.HostURL,
		PlaybackURL: detail.PlaybackURL,
	}, nil
}

// StartStream marks the session live.
func (s *SessionService) StartStream(ctx context.Context, principal *models.Principal, id int64) (*models.SessionDetail, error) {
	detail, err := s.mutate(ctx, principal, id, "start", func(session *models.Session) error {
		return session.MarkLive(s.config.StrictTransitions)
	})
	if err == nil {
		s.logger.Info("stream started", zap.Int64("session_id", id))
	}
	return detail, err
}

// EndStream marks the session completed and stores the recording URL when one is given.
func (s *SessionService) EndStream(ctx context.Context, principal *models.Principal, id int64, req models.EndStreamRequest) (*models.SessionDetail, error) {
	req.RecordingURL = strings.TrimSpace(req.RecordingURL)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}
	detail, err := s.mutate(ctx, principal, id, "end", func(session *models.Session) error {
		return session.MarkCompleted(req.RecordingURL, s.config.StrictTransitions)
	})
	if err == nil {
		s.logger.Info("stream ended", zap.Int64("session_id", id), zap.Bool("has_recording", detail.HasRecording))
	}
	return detail, err
}

// mutate checks ownership, then applies fn to the locked row and returns the owner's view of the result.
func (s *SessionService) mutate(ctx context.Context, principal *models.Principal, id int64, action string, fn func(*models.Session) error) (*models.SessionDetail, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(principal, sessionOwner(current), msgEditNotOwner); err != nil {
		return nil, err
	}

	updated, err := s.repo.Mutate(ctx, id, fn)
	if err != nil {
		var appErr *appErrors.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, models.ErrTransitionNotAllowed):
			s.metrics.RecordSessionTransition(action, false)
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Cannot %s a %s session.", action, current.Status))
		case errors.Is(err, sql.ErrNoRows):
			return nil, notFound("session not found")
		default:
			return nil, internalError(err, "failed to update session")
		}
	}
	s.metrics.RecordSessionTransition(action, true)

	updated.Classroom = current.Classroom
	detail := s.present(principal, *updated)
	return &detail, nil
}

func (s *SessionService) load(ctx context.Context, id int64) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("session not found")
		}
		return nil, internalError(err, "failed to load session")
	}
	return session, nil
}

func (s *SessionService) present(principal *models.Principal, session models.Session) models.SessionDetail {
	if !principal.IsTeacherOf(sessionOwner(&session)) {
		session.Redact()
	}
	return models.NewSessionDetail(session, s.now(), s.config.LiveGracePeriod)
}

func checkTimeOrder(session *models.Session) error {
	if session.EndsAt != nil && !session.EndsAt.After(session.StartsAt) {
		return appErrors.Field("ends_at", msgEndsBeforeStart)
	}
	return nil
}

func sessionOwner(session *models.Session) int64 {
	if session.Classroom == nil {
		return 0
	}
	return session.Classroom.TeacherID
}

func classroomSummary(c *models.Classroom) *models.ClassroomSummary {
	summary := &models.ClassroomSummary{
		ID:        c.ID,
		TeacherID: c.TeacherID,
		Title:     c.Title,
		Code:      c.Code,
		IsPublic:  c.IsPublic,
		StartsAt:  c.StartsAt,
	}
	if c.Teacher != nil {
		summary.TeacherName = c.Teacher.FullName
	}
	return summary
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
