package models

import "time"

// Teacher is the instructor profile owning classrooms.
type Teacher struct {
	ID         int64     `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	Headline   string    `db:"headline" json:"headline"`
	Bio        string    `db:"bio" json:"bio"`
	ProfileURL string    `db:"profile_url" json:"profile_url"`
	AvatarURL  string    `db:"avatar_url" json:"avatar_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ApplyUserDefaults fills display name and email from the linked user when they are blank.
func (t *Teacher) ApplyUserDefaults(u *User) {
	if u == nil {
		return
	}
	if t.UserID == nil {
		id := u.ID
		t.UserID = &id
	}
	if t.FullName == "" {
		t.FullName = u.FullName
	}
	if t.Email == "" {
		t.Email = u.Email
	}
}

// TeacherFilter captures filtering criteria for listing teachers.
type TeacherFilter struct {
	Search string
	ListOptions
}
