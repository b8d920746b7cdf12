package service

import (
	"github.com/noah-isme/engir-api/internal/models"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
)

// requireTeacher rejects principals without a teacher profile.
func requireTeacher(principal *models.Principal, message string) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if !principal.IsTeacher() {
		return appErrors.Clone(appErrors.ErrForbidden, message)
	}
	return nil
}

// requireStudent rejects principals without a student profile.
func requireStudent(principal *models.Principal, message string) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if !principal.IsStudent() {
		return appErrors.Clone(appErrors.ErrForbidden, message)
	}
	return nil
}

// requireOwner allows writes only to the teacher owning the classroom.
func requireOwner(principal *models.Principal, teacherID int64, message string) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if !principal.IsTeacherOf(teacherID) {
		return appErrors.Clone(appErrors.ErrForbidden, message)
	}
	return nil
}

// viewerTeacherID returns the teacher id used to reveal private classrooms to their owner.
func viewerTeacherID(principal *models.Principal) *int64 {
	if !principal.IsTeacher() {
		return nil
	}
	id := *principal.TeacherID
	return &id
}

func notFound(message string) error {
	return appErrors.Clone(appErrors.ErrNotFound, message)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
