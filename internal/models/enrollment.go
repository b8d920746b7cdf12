package models

import "time"

// EnrollmentStatus enumerates the enrollment lifecycle.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentConfirmed EnrollmentStatus = "confirmed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// DefaultEnrollmentSource tags enrollments created without an explicit source.
const DefaultEnrollmentSource = "web"

// ReservesSeat reports whether an enrollment in this status holds a classroom seat.
func (s EnrollmentStatus) ReservesSeat() bool {
	return s == EnrollmentPending || s == EnrollmentConfirmed
}

// Enrollment links a registrant to a classroom.
type Enrollment struct {
	ID          int64             `db:"id" json:"id"`
	ClassroomID int64             `db:"classroom_id" json:"classroom_id"`
	Classroom   *ClassroomSummary `db:"classroom" json:"classroom,omitempty"`
	StudentID   *int64            `db:"student_id" json:"student_id"`
	FullName    string            `db:"full_name" json:"full_name"`
	Email       string            `db:"email" json:"email"`
	PhoneNumber string            `db:"phone_number" json:"phone_number"`
	Notes       string            `db:"notes" json:"notes"`
	Status      EnrollmentStatus  `db:"status" json:"status"`
	Source      string            `db:"source" json:"source"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// EnrollmentFilter captures listing criteria. TeacherID and StudentID scope the rows to a principal.
type EnrollmentFilter struct {
	ClassroomID *int64
	Status      *EnrollmentStatus
	TeacherID   *int64
	StudentID   *int64
	ListOptions
}

// CreateEnrollmentRequest registers for a classroom by id or by join code.
type CreateEnrollmentRequest struct {
	ClassroomID *int64           `json:"classroom_id"`
	ClassCode   string           `json:"class_code"`
	FullName    string           `json:"full_name" validate:"required,max=120"`
	Email       string           `json:"email" validate:"required,email"`
	PhoneNumber string           `json:"phone_number" validate:"max=32"`
	Notes       string           `json:"notes"`
	Status      EnrollmentStatus `json:"status" validate:"omitempty,oneof=pending confirmed"`
	Source      string           `json:"source" validate:"max=64"`
}

// UpdateEnrollmentRequest patches an enrollment. Email is fixed because it keys the classroom roster.
type UpdateEnrollmentRequest struct {
	FullName    *string           `json:"full_name" validate:"omitempty,min=1,max=120"`
	PhoneNumber *string           `json:"phone_number" validate:"omitempty,max=32"`
	Notes       *string           `json:"notes"`
	Status      *EnrollmentStatus `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
}
