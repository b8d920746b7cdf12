package dto

import "github.com/noah-isme/engir-api/internal/models"

// TeacherDashboardResponse aggregates a teacher's classrooms, schedule and latest registrations.
type TeacherDashboardResponse struct {
	Teacher           *models.Teacher          `json:"teacher"`
	Classes           []models.ClassroomDetail `json:"classes"`
	UpcomingSessions  []models.SessionDetail   `json:"upcoming_sessions"`
	RecentEnrollments []models.Enrollment      `json:"recent_enrollments"`
}

// StudentDashboardResponse aggregates a student's registrations and the sessions ahead of them.
type StudentDashboardResponse struct {
	Student          *models.Student        `json:"student"`
	Enrollments      []models.Enrollment    `json:"enrollments"`
	UpcomingSessions []models.SessionDetail `json:"upcoming_sessions"`
}
