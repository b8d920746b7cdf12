package models

import (
	"time"

	"github.com/lib/pq"
)

// DefaultTimezone is assigned to students registering without one.
const DefaultTimezone = "UTC"

// Student is the learner profile referenced by enrollments.
type Student struct {
	ID        int64          `db:"id" json:"id"`
	UserID    *string        `db:"user_id" json:"user_id"`
	FullName  string         `db:"full_name" json:"full_name"`
	Email     string         `db:"email" json:"email"`
	Bio       string         `db:"bio" json:"bio"`
	Interests pq.StringArray `db:"interests" json:"interests"`
	Timezone  string         `db:"timezone" json:"timezone"`
	AvatarURL string         `db:"avatar_url" json:"avatar_url"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ApplyUserDefaults fills display name and email from the linked user when they are blank.
func (s *Student) ApplyUserDefaults(u *User) {
	if u == nil {
		return
	}
	if s.UserID == nil {
		id := u.ID
		s.UserID = &id
	}
	if s.FullName == "" {
		s.FullName = u.FullName
	}
	if s.Email == "" {
		s.Email = u.Email
	}
	if s.Timezone == "" {
		s.Timezone = DefaultTimezone
	}
	if s.Interests == nil {
		s.Interests = pq.StringArray{}
	}
}

// StudentSummary is the compact student shape nested in enrollments.
type StudentSummary struct {
	ID       int64  `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}
