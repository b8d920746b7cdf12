package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/engir-api/internal/models"
)

// The linked user's email wins over the profile copy so a changed login email shows up everywhere.
const teacherSelect = `SELECT t.id, t.user_id, t.full_name, COALESCE(u.email, t.email) AS email, t.headline, t.bio, t.profile_url, t.avatar_url, t.created_at, t.updated_at FROM teachers t LEFT JOIN users u ON u.id = t.user_id`

// TeacherRepository handles read access to teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers ordered by name with optional search across name, email and headline.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var conds conditionSet
	if filter.Search != "" {
		conds.add("(LOWER(t.full_name) LIKE ? OR LOWER(COALESCE(u.email, t.email)) LIKE ? OR LOWER(t.headline) LIKE ?)", likePattern(filter.Search))
	}

	order := orderBy(filter.ListOptions, map[string]string{
		"full_name":  "t.full_name",
		"created_at": "t.created_at",
	}, "full_name", "ASC")
	limit, offset := pageWindow(filter.ListOptions)

	listQuery := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", teacherSelect, conds.where(), order, limit, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, listQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM teachers t LEFT JOIN users u ON u.id = t.user_id" + conds.where()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID returns a teacher by identifier.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, teacherSelect+" WHERE t.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// FindByUserID returns the teacher profile linked to a user.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, teacherSelect+" WHERE t.user_id = $1", userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by user: %w", err)
	}
	return &teacher, nil
}

// FindByEmail returns the teacher holding email.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, teacherSelect+" WHERE LOWER(t.email) = LOWER($1)", email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by email: %w", err)
	}
	return &teacher, nil
}

// Create inserts a teacher profile without a linked user.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	const query = `INSERT INTO teachers (user_id, full_name, email, headline, bio, profile_url, avatar_url) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query,
		teacher.UserID, teacher.FullName, teacher.Email, teacher.Headline, teacher.Bio, teacher.ProfileURL, teacher.AvatarURL,
	).Scan(&teacher.ID, &teacher.CreatedAt, &teacher.UpdatedAt); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}
