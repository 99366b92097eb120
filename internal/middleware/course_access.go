package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/academia-sur/academy-api/internal/models"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
	"github.com/academia-sur/academy-api/pkg/response"
)

type accessCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type accessEnrollmentChecker interface {
	Exists(ctx context.Context, userID, courseID string) (bool, error)
}

type accessEvaluationReader interface {
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
}

// CourseAccess admits admins, the owning teacher, and enrolled students
// to course-scoped routes. A missing course is reported as not found
// before any access decision.
func CourseAccess(courses accessCourseReader, enrollments accessEnrollmentChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityValue, exists := c.Get(ContextIdentityKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		identity, ok := identityValue.(*models.Identity)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		courseID := c.Param("id")
		if !courseAccessAllowed(c, identity, courses, enrollments, courseID) {
			return
		}
		c.Next()
	}
}

// EvaluationAccess resolves the evaluation's parent course and applies
// the same admission rule as CourseAccess.
func EvaluationAccess(evaluations accessEvaluationReader, courses accessCourseReader, enrollments accessEnrollmentChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityValue, exists := c.Get(ContextIdentityKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		identity, ok := identityValue.(*models.Identity)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		evaluation, err := evaluations.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found"))
			} else {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation"))
			}
			c.Abort()
			return
		}

		if !courseAccessAllowed(c, identity, courses, enrollments, evaluation.CourseID) {
			return
		}
		c.Next()
	}
}

func courseAccessAllowed(c *gin.Context, identity *models.Identity, courses accessCourseReader, enrollments accessEnrollmentChecker, courseID string) bool {
	course, err := courses.FindByID(c.Request.Context(), courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "course not found"))
		} else {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course"))
		}
		c.Abort()
		return false
	}

	if identity.Role == models.RoleAdmin || course.TeacherID == identity.UserID {
		return true
	}

	enrolled, err := enrollments.Exists(c.Request.Context(), identity.UserID, courseID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment"))
		c.Abort()
		return false
	}
	if !enrolled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no access to this course"))
		c.Abort()
		return false
	}
	return true
}
