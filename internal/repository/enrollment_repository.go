package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/pkg/database"
)

const (
	enrollmentColumns   = `en.id, en.classroom_id, en.student_id, en.full_name, en.email, en.phone_number, en.notes, en.status, en.source, en.created_at, en.updated_at`
	enrollmentClassroom = `c.id AS "classroom.id", c.teacher_id AS "classroom.teacher_id", t.full_name AS "classroom.teacher_name", c.title AS "classroom.title", c.code AS "classroom.code", c.is_public AS "classroom.is_public", c.starts_at AS "classroom.starts_at"`
	enrollmentFrom      = ` FROM enrollments en JOIN classrooms c ON c.id = en.classroom_id JOIN teachers t ON t.id = c.teacher_id`
	enrollmentSelect    = `SELECT ` + enrollmentColumns + `, ` + enrollmentClassroom + enrollmentFrom

	enrollmentEmailConstraint = "enrollments_classroom_email_key"
)

// EnrollmentRepository persists classroom enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments matching the filter, newest first. TeacherID and StudentID together widen the
// scope to rows visible to either profile.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var conds conditionSet
	switch {
	case filter.TeacherID != nil && filter.StudentID != nil:
		conds.addEach("(c.teacher_id = ? OR en.student_id = ?)", *filter.TeacherID, *filter.StudentID)
	case filter.TeacherID != nil:
		conds.add("c.teacher_id = ?", *filter.TeacherID)
	case filter.StudentID != nil:
		conds.add("en.student_id = ?", *filter.StudentID)
	}
	if filter.ClassroomID != nil {
		conds.add("en.classroom_id = ?", *filter.ClassroomID)
	}
	if filter.Status != nil {
		conds.add("en.status = ?", *filter.Status)
	}

	order := orderBy(filter.ListOptions, map[string]string{
		"created_at": "en.created_at",
	}, "created_at", "DESC")
	limit, offset := pageWindow(filter.ListOptions)

	listQuery := fmt.Sprintf("%s%s ORDER BY %s, en.id DESC LIMIT %d OFFSET %d", enrollmentSelect, conds.where(), order, limit, offset)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, listQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + enrollmentFrom + conds.where()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by identifier.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, enrollmentSelect+" WHERE en.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByClassroom returns the whole roster of a classroom ordered by name.
func (r *EnrollmentRepository) ListByClassroom(ctx context.Context, classroomID int64) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, enrollmentSelect+" WHERE en.classroom_id = $1 ORDER BY en.full_name, en.id", classroomID); err != nil {
		return nil, fmt.Errorf("list classroom roster: %w", err)
	}
	return enrollments, nil
}

// RecentForTeacher returns the latest enrollments across a teacher's classrooms.
func (r *EnrollmentRepository) RecentForTeacher(ctx context.Context, teacherID int64, limit int) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, enrollmentSelect+" WHERE c.teacher_id = $1 ORDER BY en.created_at DESC, en.id DESC LIMIT $2", teacherID, limit); err != nil {
		return nil, fmt.Errorf("recent teacher enrollments: %w", err)
	}
	return enrollments, nil
}

// ListForStudent returns every enrollment of a student, newest first.
func (r *EnrollmentRepository) ListForStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, enrollmentSelect+" WHERE en.student_id = $1 ORDER BY en.created_at DESC, en.id DESC", studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// Create registers an enrollment. The classroom row is locked while seats are counted so concurrent
// registrations cannot overfill it; the (classroom, email) unique constraint settles duplicate races.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if enrollment.Status.ReservesSeat() {
		if err = reserveSeat(ctx, tx, enrollment.ClassroomID, 0); err != nil {
			return err
		}
	}

	var duplicate bool
	if err = tx.GetContext(ctx, &duplicate, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE classroom_id = $1 AND email = $2)`, enrollment.ClassroomID, enrollment.Email); err != nil {
		return fmt.Errorf("check duplicate enrollment: %w", err)
	}
	if duplicate {
		err = ErrDuplicateEnrollment
		return err
	}

	const query = `INSERT INTO enrollments (classroom_id, student_id, full_name, email, phone_number, notes, status, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`
	if err = tx.QueryRowxContext(ctx, query,
		enrollment.ClassroomID, enrollment.StudentID, enrollment.FullName, enrollment.Email,
		enrollment.PhoneNumber, enrollment.Notes, enrollment.Status, enrollment.Source,
	).Scan(&enrollment.ID, &enrollment.CreatedAt, &enrollment.UpdatedAt); err != nil {
		if constraint, ok := database.UniqueViolation(err); ok && constraint == enrollmentEmailConstraint {
			err = ErrDuplicateEnrollment
			return err
		}
		return fmt.Errorf("create enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create enrollment: %w", err)
	}
	return nil
}

// Update persists contact fields and status. When claimSeat is set the classroom must still have a free
// seat not counting this enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment, claimSeat bool) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if claimSeat {
		if err = reserveSeat(ctx, tx, enrollment.ClassroomID, enrollment.ID); err != nil {
			return err
		}
	}

	const query = `UPDATE enrollments SET full_name = $2, phone_number = $3, notes = $4, status = $5, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
	if err = tx.QueryRowxContext(ctx, query,
		enrollment.ID, enrollment.FullName, enrollment.PhoneNumber, enrollment.Notes, enrollment.Status,
	).Scan(&enrollment.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update enrollment: %w", err)
	}
	return nil
}

// reserveSeat locks the classroom and fails with ErrClassroomFull when no seat is left.
// excludeID keeps an enrollment that is being re-activated out of the count.
func reserveSeat(ctx context.Context, tx *sqlx.Tx, classroomID, excludeID int64) error {
	var capacity int
	if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM classrooms WHERE id = $1 FOR UPDATE`, classroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock classroom: %w", err)
	}

	var reserved int
	if err := tx.GetContext(ctx, &reserved, `SELECT COUNT(*) FROM enrollments WHERE classroom_id = $1 AND status IN ('pending', 'confirmed') AND id <> $2`, classroomID, excludeID); err != nil {
		return fmt.Errorf("count reserved seats: %w", err)
	}

	if models.AvailableSeats(capacity, reserved) == 0 {
		return ErrClassroomFull
	}
	return nil
}
