package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/engir-api/internal/models"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
	"github.com/noah-isme/engir-api/pkg/response"
)

// RequireProfile enforces that the principal passes check. It must run after JWT.
func RequireProfile(check func(*models.Principal) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !check(principal) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, message))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireTeacher admits principals owning a teacher profile.
func RequireTeacher() gin.HandlerFunc {
	return RequireProfile((*models.Principal).IsTeacher, "Teacher profile required.")
}

// RequireStudent admits principals owning a student profile.
func RequireStudent() gin.HandlerFunc {
	return RequireProfile((*models.Principal).IsStudent, "Student profile required.")
}
