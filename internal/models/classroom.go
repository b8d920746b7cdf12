package models

import (
	"time"

	"github.com/lib/pq"
)

// Classroom defaults.
const (
	DefaultClassroomDuration = 45
	DefaultClassroomCapacity = 12
)

// TeacherSummary is the compact teacher shape nested in classrooms.
type TeacherSummary struct {
	ID        int64  `db:"id" json:"id"`
	FullName  string `db:"full_name" json:"full_name"`
	Email     string `db:"email" json:"email"`
	Headline  string `db:"headline" json:"headline"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
}

// Classroom is a teacher owned class with a shareable join code.
type Classroom struct {
	ID              int64           `db:"id" json:"id"`
	TeacherID       int64           `db:"teacher_id" json:"teacher_id"`
	Teacher         *TeacherSummary `db:"teacher" json:"teacher,omitempty"`
	Title           string          `db:"title" json:"title"`
	Description     string          `db:"description" json:"description"`
	Code            string          `db:"code" json:"code"`
	StartsAt        *time.Time      `db:"starts_at" json:"starts_at"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	Capacity        int             `db:"capacity" json:"capacity"`
	MeetingURL      string          `db:"meeting_url" json:"meeting_url"`
	Tags            pq.StringArray  `db:"tags" json:"tags"`
	IsPublic        bool            `db:"is_public" json:"is_public"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`

	// ReservedSeats counts pending and confirmed enrollments; populated by read queries only.
	ReservedSeats int `db:"reserved_seats" json:"-"`
}

// AvailableSeats is capacity minus reserved seats, floored at zero.
func AvailableSeats(capacity, reserved int) int {
	if reserved < 0 {
		reserved = 0
	}
	seats := capacity - reserved
	if seats < 0 {
		return 0
	}
	return seats
}

// AvailableSeats returns the seats left in the classroom.
func (c *Classroom) AvailableSeats() int {
	return AvailableSeats(c.Capacity, c.ReservedSeats)
}

// IsFull reports whether no seat is left.
func (c *Classroom) IsFull() bool {
	return c.AvailableSeats() == 0
}

// ApplyDefaults fills unset duration, capacity and tags.
func (c *Classroom) ApplyDefaults() {
	if c.DurationMinutes <= 0 {
		c.DurationMinutes = DefaultClassroomDuration
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultClassroomCapacity
	}
	if c.Tags == nil {
		c.Tags = pq.StringArray{}
	}
}

// ClassroomDetail is the classroom read model with derived fields.
type ClassroomDetail struct {
	Classroom
	AvailableSeats int             `json:"available_seats"`
	IsFull         bool            `json:"is_full"`
	NextSession    *SessionSummary `json:"next_session"`
}

// NewClassroomDetail computes the derived fields of c. next is the earliest joinable session, if any.
func NewClassroomDetail(c Classroom, next *Session, now time.Time, grace time.Duration) ClassroomDetail {
	detail := ClassroomDetail{
		Classroom:      c,
		AvailableSeats: c.AvailableSeats(),
		IsFull:         c.IsFull(),
	}
	if next != nil {
		summary := next.Summary(now, grace)
		detail.NextSession = &summary
	}
	return detail
}

// ClassroomSummary is the compact classroom shape nested in enrollments and sessions.
type ClassroomSummary struct {
	ID          int64      `db:"id" json:"id"`
	TeacherID   int64      `db:"teacher_id" json:"teacher_id"`
	TeacherName string     `db:"teacher_name" json:"teacher_name"`
	Title       string     `db:"title" json:"title"`
	Code        string     `db:"code" json:"code"`
	IsPublic    bool       `db:"is_public" json:"is_public"`
	StartsAt    *time.Time `db:"starts_at" json:"starts_at"`
}

// ClassroomFilter captures listing criteria for classrooms.
type ClassroomFilter struct {
	TeacherID *int64
	IsPublic  *bool
	Search    string
	// ViewerTeacherID lets a teacher see their own private classrooms next to public ones.
	ViewerTeacherID *int64
	ListOptions
}

// CreateClassroomRequest is the payload for creating a classroom. Ownership comes from the principal.
type CreateClassroomRequest struct {
	Title           string     `json:"title" validate:"required,max=160"`
	Description     string     `json:"description"`
	StartsAt        *time.Time `json:"starts_at"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,gt=0"`
	Capacity        *int       `json:"capacity" validate:"omitempty,gt=0"`
	MeetingURL      string     `json:"meeting_url" validate:"omitempty,url"`
	Tags            []string   `json:"tags" validate:"omitempty,dive,max=40"`
	IsPublic        *bool      `json:"is_public"`
}

// UpdateClassroomRequest patches a classroom. The join code is immutable.
type UpdateClassroomRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=160"`
	Description     *string    `json:"description"`
	StartsAt        *time.Time `json:"starts_at"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,gt=0"`
	Capacity        *int       `json:"capacity" validate:"omitempty,gt=0"`
	MeetingURL      *string    `json:"meeting_url" validate:"omitempty,url"`
	Tags            []string   `json:"tags" validate:"omitempty,dive,max=40"`
	IsPublic        *bool      `json:"is_public"`
}
