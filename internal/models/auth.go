package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// LogoutRequest revokes one refresh token. Without a token every session of the user is revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refresh"`
}

// RegisterTeacherRequest is the teacher self-registration payload.
type RegisterTeacherRequest struct {
	FullName   string `json:"full_name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Headline   string `json:"headline" validate:"max=160"`
	Bio        string `json:"bio"`
	ProfileURL string `json:"profile_url" validate:"omitempty,url"`
	AvatarURL  string `json:"avatar_url" validate:"omitempty,url"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// RegisterStudentRequest is the student self-registration payload.
type RegisterStudentRequest struct {
	FullName  string   `json:"full_name" validate:"required,max=120"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	Bio       string   `json:"bio"`
	Interests []string `json:"interests"`
	Timezone  string   `json:"timezone" validate:"max=64"`
	AvatarURL string   `json:"avatar_url" validate:"omitempty,url"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	FirstName      string   `json:"first_name"`
	Role           Role     `json:"role"`
	TeacherProfile *Teacher `json:"teacher_profile"`
	StudentProfile *Student `json:"student_profile"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	TeacherID *int64 `json:"teacher_id,omitempty"`
	StudentID *int64 `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the request principal.
func (c *JWTClaims) Principal() *Principal {
	if c == nil {
		return nil
	}
	return &Principal{
		UserID:    c.UserID,
		Email:     c.Email,
		FullName:  c.FullName,
		Role:      c.Role,
		TeacherID: c.TeacherID,
		StudentID: c.StudentID,
	}
}

// Principal builds the principal of an already resolved user, as the token flow would.
func (u *UserInfo) Principal() *Principal {
	if u == nil {
		return nil
	}
	p := &Principal{UserID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
	if u.TeacherProfile != nil {
		id := u.TeacherProfile.ID
		p.TeacherID = &id
	}
	if u.StudentProfile != nil {
		id := u.StudentProfile.ID
		p.StudentID = &id
	}
	return p
}
