package models

import (
	"errors"
	"strings"
	"time"
)

// SessionStatus enumerates the session lifecycle.
type SessionStatus string

const (
	SessionDraft     SessionStatus = "draft"
	SessionScheduled SessionStatus = "scheduled"
	SessionLive      SessionStatus = "live"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// StreamProvider identifies where a session is broadcast.
type StreamProvider string

const (
	ProviderCustom     StreamProvider = "custom"
	ProviderZoom       StreamProvider = "zoom"
	ProviderGoogleMeet StreamProvider = "google_meet"
	ProviderYouTube    StreamProvider = "youtube"
	ProviderOther      StreamProvider = "other"
)

// DefaultSessionDuration applies when a session is created without a duration.
const DefaultSessionDuration = 45

// ErrTransitionNotAllowed is returned by guarded transitions.
var ErrTransitionNotAllowed = errors.New("session status transition not allowed")

// StreamEndpoints builds host and playback URLs from a stream key.
type StreamEndpoints struct {
	BaseURL   string
	HostPath  string
	WatchPath string
}

// HostURL returns the broadcaster URL for key.
func (e StreamEndpoints) HostURL(key string) string {
	return e.join(e.HostPath, key)
}

// PlaybackURL returns the viewer URL for key.
func (e StreamEndpoints) PlaybackURL(key string) string {
	return e.join(e.WatchPath, key)
}

func (e StreamEndpoints) join(segment, key string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.Trim(segment, "/") + "/" + key
}

// Session is one scheduled livestream of a classroom.
type Session struct {
	ID              int64             `db:"id" json:"id"`
	ClassroomID     int64             `db:"classroom_id" json:"classroom_id"`
	Classroom       *ClassroomSummary `db:"classroom" json:"classroom,omitempty"`
	Title           string            `db:"title" json:"title"`
	Description     string            `db:"description" json:"description"`
	StartsAt        time.Time         `db:"starts_at" json:"starts_at"`
	EndsAt          *time.Time        `db:"ends_at" json:"ends_at"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Status          SessionStatus     `db:"status" json:"status"`
	StreamProvider  StreamProvider    `db:"stream_provider" json:"stream_provider"`
	StreamKey       string            `db:"stream_key" json:"stream_key"`
	HostURL         string            `db:"host_url" json:"host_url"`
	PlaybackURL     string            `db:"playback_url" json:"playback_url"`
	RecordingURL    string            `db:"recording_url" json:"recording_url"`
	MeetingPasscode string            `db:"meeting_passcode" json:"meeting_passcode"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplyDefaults fills unset status, provider and duration.
func (s *Session) ApplyDefaults() {
	if s.Status == "" {
		s.Status = SessionScheduled
	}
	if s.StreamProvider == "" {
		s.StreamProvider = ProviderCustom
	}
	if s.DurationMinutes <= 0 {
		s.DurationMinutes = DefaultSessionDuration
	}
}

// DeriveEndsAt sets EndsAt from StartsAt and the duration, only while EndsAt is unset.
func (s *Session) DeriveEndsAt() {
	if s.EndsAt != nil || s.StartsAt.IsZero() {
		return
	}
	ends := s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
	s.EndsAt = &ends
}

// EnsureCredentials draws a stream key for custom streams that lack one, then fills empty URLs from
// whatever key the session holds. Manual URLs are kept.
func (s *Session) EnsureCredentials(endpoints StreamEndpoints, newKey func() (string, error)) error {
	if s.StreamProvider == ProviderCustom && s.StreamKey == "" {
		key, err := newKey()
		if err != nil {
			return err
		}
		s.StreamKey = key
	}
	if s.StreamKey == "" {
		return nil
	}
	if s.HostURL == "" {
		s.HostURL = endpoints.HostURL(s.StreamKey)
	}
	if s.PlaybackURL == "" {
		s.PlaybackURL = endpoints.PlaybackURL(s.StreamKey)
	}
	return nil
}

// RegenerateCredentials replaces the stream key and rebuilds both URLs from it.
func (s *Session) RegenerateCredentials(endpoints StreamEndpoints, newKey func() (string, error)) error {
	key, err := newKey()
	if err != nil {
		return err
	}
	s.StreamKey = key
	s.HostURL = endpoints.HostURL(key)
	s.PlaybackURL = endpoints.PlaybackURL(key)
	return nil
}

// MarkLive moves the session to live. With strict set, finished sessions cannot go live again.
func (s *Session) MarkLive(strict bool) error {
	if strict && (s.Status == SessionCompleted || s.Status == SessionCancelled) {
		return ErrTransitionNotAllowed
	}
	s.Status = SessionLive
	return nil
}

// MarkCompleted moves the session to completed, storing recordingURL when given.
// With strict set, cancelled sessions cannot be completed.
func (s *Session) MarkCompleted(recordingURL string, strict bool) error {
	if strict && s.Status == SessionCancelled {
		return ErrTransitionNotAllowed
	}
	s.Status = SessionCompleted
	if recordingURL != "" {
		s.RecordingURL = recordingURL
	}
	return nil
}

// SetStatus applies a status sent with an edit through the same guards as MarkLive and MarkCompleted.
// With strict set, finished sessions cannot go back to draft or scheduled either.
func (s *Session) SetStatus(status SessionStatus, strict bool) error {
	if status == s.Status {
		return nil
	}
	switch status {
	case SessionLive:
		return s.MarkLive(strict)
	case SessionCompleted:
		return s.MarkCompleted("", strict)
	case SessionDraft, SessionScheduled:
		if strict && (s.Status == SessionCompleted || s.Status == SessionCancelled) {
			return ErrTransitionNotAllowed
		}
	}
	s.Status = status
	return nil
}

// IsJoinable reports whether attendees can still join.
func (s *Session) IsJoinable() bool {
	return s.Status == SessionScheduled || s.Status == SessionLive
}

// IsLive reports whether the session is live and not past its end plus grace.
func (s *Session) IsLive(now time.Time, grace time.Duration) bool {
	if s.Status != SessionLive {
		return false
	}
	if s.EndsAt == nil {
		return true
	}
	return !now.After(s.EndsAt.Add(grace))
}

// HasRecording reports whether a recording URL is stored.
func (s *Session) HasRecording() bool {
	return s.RecordingURL != ""
}

// Redact hides broadcaster credentials from viewers who do not own the classroom.
func (s *Session) Redact() {
	s.StreamKey = ""
	s.HostURL = ""
	s.MeetingPasscode = ""
}

// Summary returns the compact shape used for next_session and dashboards.
func (s *Session) Summary(now time.Time, grace time.Duration) SessionSummary {
	return SessionSummary{
		ID:             s.ID,
		ClassroomID:    s.ClassroomID,
		Title:          s.Title,
		StartsAt:       s.StartsAt,
		EndsAt:         s.EndsAt,
		Status:         s.Status,
		StreamProvider: s.StreamProvider,
		PlaybackURL:    s.PlaybackURL,
		HostURL:        s.HostURL,
		RecordingURL:   s.RecordingURL,
		IsJoinable:     s.IsJoinable(),
		IsLive:         s.IsLive(now, grace),
	}
}

// SessionSummary is the compact session read model.
type SessionSummary struct {
	ID             int64          `json:"id"`
	ClassroomID    int64          `json:"classroom_id"`
	Title          string         `json:"title"`
	StartsAt       time.Time      `json:"starts_at"`
	EndsAt         *time.Time     `json:"ends_at"`
	Status         SessionStatus  `json:"status"`
	StreamProvider StreamProvider `json:"stream_provider"`
	PlaybackURL    string         `json:"playback_url"`
	HostURL        string         `json:"host_url,omitempty"`
	RecordingURL   string         `json:"recording_url"`
	IsJoinable     bool           `json:"is_joinable"`
	IsLive         bool           `json:"is_live"`
}

// SessionDetail is the full session read model with derived predicates.
type SessionDetail struct {
	Session
	IsJoinable   bool `json:"is_joinable"`
	IsLive       bool `json:"is_live"`
	HasRecording bool `json:"has_recording"`
}

// NewSessionDetail computes the derived predicates of s.
func NewSessionDetail(s Session, now time.Time, grace time.Duration) SessionDetail {
	return SessionDetail{
		Session:      s,
		IsJoinable:   s.IsJoinable(),
		IsLive:       s.IsLive(now, grace),
		HasRecording: s.HasRecording(),
	}
}

// SessionFilter captures listing criteria for sessions.
type SessionFilter struct {
	ClassroomID *int64
	Status      *SessionStatus
	Upcoming    bool
	Search      string
	Now         time.Time
	// ViewerTeacherID lets a teacher see sessions of their own private classrooms.
	ViewerTeacherID *int64
	ListOptions
}

// CreateSessionRequest schedules a session under a classroom the principal owns.
type CreateSessionRequest struct {
	ClassroomID     int64          `json:"classroom_id" validate:"required,gt=0"`
	Title           string         `json:"title" validate:"required,max=160"`
	Description     string         `json:"description"`
	StartsAt        time.Time      `json:"starts_at" validate:"required"`
	EndsAt          *time.Time     `json:"ends_at"`
	DurationMinutes *int           `json:"duration_minutes" validate:"omitempty,gt=0"`
	Status          SessionStatus  `json:"status" validate:"omitempty,oneof=draft scheduled live completed cancelled"`
	StreamProvider  StreamProvider `json:"stream_provider" validate:"omitempty,oneof=custom zoom google_meet youtube other"`
	HostURL         string         `json:"host_url" validate:"omitempty,url"`
	PlaybackURL     string         `json:"playback_url" validate:"omitempty,url"`
	RecordingURL    string         `json:"recording_url" validate:"omitempty,url"`
	MeetingPasscode string         `json:"meeting_passcode" validate:"max=64"`
}

// UpdateSessionRequest patches a session. Credentials rotate through the regenerate action instead.
type UpdateSessionRequest struct {
	Title           *string         `json:"title" validate:"omitempty,min=1,max=160"`
	Description     *string         `json:"description"`
	StartsAt        *time.Time      `json:"starts_at"`
	EndsAt          *time.Time      `json:"ends_at"`
	DurationMinutes *int            `json:"duration_minutes" validate:"omitempty,gt=0"`
	Status          *SessionStatus  `json:"status" validate:"omitempty,oneof=draft scheduled live completed cancelled"`
	StreamProvider  *StreamProvider `json:"stream_provider" validate:"omitempty,oneof=custom zoom google_meet youtube other"`
	HostURL         *string         `json:"host_url" validate:"omitempty,url"`
	PlaybackURL     *string         `json:"playback_url" validate:"omitempty,url"`
	RecordingURL    *string         `json:"recording_url" validate:"omitempty,url"`
	MeetingPasscode *string         `json:"meeting_passcode" validate:"omitempty,max=64"`
}

// StreamCredentials is returned when a session's stream key is rotated.
type StreamCredentials struct {
	StreamKey   string `json:"stream_key"`
	HostURL     string `json:"host_url"`
	PlaybackURL string `json:"playback_url"`
}

// EndStreamRequest optionally carries the recording produced by the stream.
type EndStreamRequest struct {
	RecordingURL string `json:"recording_url" validate:"omitempty,url"`
}
