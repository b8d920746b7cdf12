package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/engir-api/internal/models"
)

const (
	sessionColumns   = `s.id, s.classroom_id, s.title, s.description, s.starts_at, s.ends_at, s.duration_minutes, s.status, s.stream_provider, s.stream_key, s.host_url, s.playback_url, s.recording_url, s.meeting_passcode, s.created_at, s.updated_at`
	sessionClassroom = `c.id AS "classroom.id", c.teacher_id AS "classroom.teacher_id", t.full_name AS "classroom.teacher_name", c.title AS "classroom.title", c.code AS "classroom.code", c.is_public AS "classroom.is_public", c.starts_at AS "classroom.starts_at"`
	sessionFrom      = ` FROM sessions s JOIN classrooms c ON c.id = s.classroom_id JOIN teachers t ON t.id = c.teacher_id`
	sessionSelect    = `SELECT ` + sessionColumns + `, ` + sessionClassroom + sessionFrom
)

// SessionRepository persists classroom sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions matching the filter, earliest first by default.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	var conds conditionSet
	if filter.ClassroomID != nil {
		conds.add("s.classroom_id = ?", *filter.ClassroomID)
	}
	if filter.Status != nil {
		conds.add("s.status = ?", *filter.Status)
	}
	if filter.Upcoming {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		conds.add("s.starts_at >= ?", now)
	}
	if filter.ViewerTeacherID != nil {
		conds.add("(c.is_public OR c.teacher_id = ?)", *filter.ViewerTeacherID)
	} else {
		conds.clauses = append(conds.clauses, "c.is_public")
	}
	if filter.Search != "" {
		conds.add("(LOWER(s.title) LIKE ? OR LOWER(c.title) LIKE ? OR LOWER(c.code) LIKE ?)", likePattern(filter.Search))
	}

	order := orderBy(filter.ListOptions, map[string]string{
		"starts_at":  "s.starts_at",
		"created_at": "s.created_at",
	}, "starts_at", "ASC")
	limit, offset := pageWindow(filter.ListOptions)

	listQuery := fmt.Sprintf("%s%s ORDER BY %s, s.id LIMIT %d OFFSET %d", sessionSelect, conds.where(), order, limit, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, listQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + sessionFrom + conds.where()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id int64) (*models.Session, error) {
	var session models.Session
	if err := r.db.GetContext(ctx, &session, sessionSelect+" WHERE s.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// NextForClassrooms returns, per classroom, the earliest session that is scheduled or live.
func (r *SessionRepository) NextForClassrooms(ctx context.Context, classroomIDs []int64) (map[int64]*models.Session, error) {
	result := make(map[int64]*models.Session, len(classroomIDs))
	if len(classroomIDs) == 0 {
		return result, nil
	}

	query := `SELECT DISTINCT ON (s.classroom_id) ` + sessionColumns + ` FROM sessions s WHERE s.classroom_id = ANY($1) AND s.status IN ('scheduled', 'live') ORDER BY s.classroom_id, s.starts_at, s.id`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, pq.Array(classroomIDs)); err != nil {
		return nil, fmt.Errorf("next sessions: %w", err)
	}
	for i := range sessions {
		session := sessions[i]
		result[session.ClassroomID] = &session
	}
	return result, nil
}

// UpcomingForTeacher lists sessions of the teacher's classrooms starting at or after now.
func (r *SessionRepository) UpcomingForTeacher(ctx context.Context, teacherID int64, now time.Time, limit int) ([]models.Session, error) {
	query := sessionSelect + ` WHERE c.teacher_id = $1 AND s.starts_at >= $2 ORDER BY s.starts_at, s.id LIMIT $3`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, teacherID, now, limit); err != nil {
		return nil, fmt.Errorf("upcoming teacher sessions: %w", err)
	}
	return sessions, nil
}

// UpcomingForStudent lists distinct sessions of classrooms the student is enrolled in, starting at or after now.
func (r *SessionRepository) UpcomingForStudent(ctx context.Context, studentID int64, now time.Time) ([]models.Session, error) {
	query := sessionSelect + ` WHERE s.starts_at >= $2 AND EXISTS (SELECT 1 FROM enrollments e WHERE e.classroom_id = s.classroom_id AND e.student_id = $1) ORDER BY s.starts_at, s.id`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, studentID, now); err != nil {
		return nil, fmt.Errorf("upcoming student sessions: %w", err)
	}
	return sessions, nil
}

// Create inserts a session whose derived fields are already populated.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `INSERT INTO sessions (classroom_id, title, description, starts_at, ends_at, duration_minutes, status, stream_provider, stream_key, host_url, playback_url, recording_url, meeting_passcode)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query,
		session.ClassroomID, session.Title, session.Description, session.StartsAt, session.EndsAt, session.DurationMinutes,
		session.Status, session.StreamProvider, session.StreamKey, session.HostURL, session.PlaybackURL, session.RecordingURL, session.MeetingPasscode,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Mutate loads the session under a row lock, applies fn and writes the result back in one transaction.
// An error from fn aborts without writing.
func (r *SessionRepository) Mutate(ctx context.Context, id int64, fn func(*models.Session) error) (session *models.Session, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Session
	if err = tx.GetContext(ctx, &current, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}

	if err = fn(&current); err != nil {
		return nil, err
	}

	const query = `UPDATE sessions SET title = $2, description = $3, starts_at = $4, ends_at = $5, duration_minutes = $6, status = $7, stream_provider = $8, stream_key = $9, host_url = $10, playback_url = $11, recording_url = $12, meeting_passcode = $13, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
	if err = tx.QueryRowxContext(ctx, query,
		current.ID, current.Title, current.Description, current.StartsAt, current.EndsAt, current.DurationMinutes,
		current.Status, current.StreamProvider, current.StreamKey, current.HostURL, current.PlaybackURL, current.RecordingURL, current.MeetingPasscode,
	).Scan(&current.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session update: %w", err)
	}
	return &current, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
