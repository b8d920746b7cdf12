package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/pkg/codegen"
)

const (
	classroomColumns = `c.id, c.teacher_id, c.title, c.description, c.code, c.starts_at, c.duration_minutes, c.capacity, c.meeting_url, c.tags, c.is_public, c.created_at, c.updated_at`
	classroomTeacher = `t.id AS "teacher.id", t.full_name AS "teacher.full_name", COALESCE(u.email, t.email) AS "teacher.email", t.headline AS "teacher.headline", t.avatar_url AS "teacher.avatar_url"`
	reservedSeats    = `(SELECT COUNT(*) FROM enrollments e WHERE e.classroom_id = c.id AND e.status IN ('pending', 'confirmed')) AS reserved_seats`
	classroomFrom    = ` FROM classrooms c JOIN teachers t ON t.id = c.teacher_id LEFT JOIN users u ON u.id = t.user_id`
	classroomSelect  = `SELECT ` + classroomColumns + `, ` + classroomTeacher + `, ` + reservedSeats + classroomFrom
)

// ClassroomRepository persists classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms matching the filter together with the total count.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	var conds conditionSet
	if filter.TeacherID != nil {
		conds.add("c.teacher_id = ?", *filter.TeacherID)
	}
	if filter.IsPublic != nil {
		conds.add("c.is_public = ?", *filter.IsPublic)
	}
	if filter.ViewerTeacherID != nil {
		conds.add("(c.is_public OR c.teacher_id = ?)", *filter.ViewerTeacherID)
	} else {
		conds.clauses = append(conds.clauses, "c.is_public")
	}
	if filter.Search != "" {
		conds.add("(LOWER(c.title) LIKE ? OR LOWER(c.code) LIKE ? OR LOWER(t.full_name) LIKE ?)", likePattern(filter.Search))
	}

	order := orderBy(filter.ListOptions, map[string]string{
		"starts_at":  "c.starts_at",
		"created_at": "c.created_at",
	}, "created_at", "DESC")
	limit, offset := pageWindow(filter.ListOptions)

	listQuery := fmt.Sprintf("%s%s ORDER BY %s, c.id DESC LIMIT %d OFFSET %d", classroomSelect, conds.where(), order, limit, offset)
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, listQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + classroomFrom + conds.where()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}
	return classrooms, total, nil
}

// ListByTeacher returns every classroom owned by teacherID, most recently touched first.
func (r *ClassroomRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, classroomSelect+" WHERE c.teacher_id = $1 ORDER BY c.updated_at DESC", teacherID); err != nil {
		return nil, fmt.Errorf("list teacher classrooms: %w", err)
	}
	return classrooms, nil
}

// FindByID returns a classroom by identifier.
func (r *ClassroomRepository) FindByID(ctx context.Context, id int64) (*models.Classroom, error) {
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, classroomSelect+" WHERE c.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find classroom: %w", err)
	}
	return &classroom, nil
}

// FindByCode returns the classroom holding an already normalised join code.
func (r *ClassroomRepository) FindByCode(ctx context.Context, code string) (*models.Classroom, error) {
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, classroomSelect+" WHERE c.code = $1", code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find classroom by code: %w", err)
	}
	return &classroom, nil
}

// Create draws a join code and inserts the classroom in one transaction. The unique constraint on
// code decides collisions: a conflicting insert returns no row and another code is drawn.
// The returned count is the number of discarded codes.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom, attempts int) (redraws int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create classroom: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const existsQuery = `SELECT EXISTS(SELECT 1 FROM classrooms WHERE code = $1)`
	const insertQuery = `INSERT INTO classrooms (teacher_id, title, description, code, starts_at, duration_minutes, capacity, meeting_url, tags, is_public)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT ON CONSTRAINT classrooms_code_key DO NOTHING
RETURNING id, created_at, updated_at`

	claim := func(ctx context.Context, code string) (bool, error) {
		var taken bool
		if err := tx.GetContext(ctx, &taken, existsQuery, code); err != nil {
			return false, fmt.Errorf("check classroom code: %w", err)
		}
		if taken {
			redraws++
			return true, nil
		}

		scanErr := tx.QueryRowxContext(ctx, insertQuery,
			classroom.TeacherID, classroom.Title, classroom.Description, code, classroom.StartsAt,
			classroom.DurationMinutes, classroom.Capacity, classroom.MeetingURL, classroom.Tags, classroom.IsPublic,
		).Scan(&classroom.ID, &classroom.CreatedAt, &classroom.UpdatedAt)
		if errors.Is(scanErr, sql.ErrNoRows) {
			redraws++
			return true, nil
		}
		if scanErr != nil {
			return false, fmt.Errorf("create classroom: %w", scanErr)
		}
		classroom.Code = code
		return false, nil
	}

	if _, err = codegen.UniqueClassCode(ctx, attempts, claim); err != nil {
		return redraws, err
	}

	if err = tx.Commit(); err != nil {
		return redraws, fmt.Errorf("commit create classroom: %w", err)
	}
	return redraws, nil
}

// Update persists the mutable classroom fields. Code and owner never change.
func (r *ClassroomRepository) Update(ctx context.Context, classroom *models.Classroom) error {
	const query = `UPDATE classrooms SET title = $2, description = $3, starts_at = $4, duration_minutes = $5, capacity = $6, meeting_url = $7, tags = $8, is_public = $9, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
	if err := r.db.QueryRowxContext(ctx, query,
		classroom.ID, classroom.Title, classroom.Description, classroom.StartsAt, classroom.DurationMinutes,
		classroom.Capacity, classroom.MeetingURL, classroom.Tags, classroom.IsPublic,
	).Scan(&classroom.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}

// Delete removes a classroom; enrollments and sessions cascade.
func (r *ClassroomRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete classroom: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
