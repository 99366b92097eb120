package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/academia-sur/academy-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCourseReader struct {
	courses map[string]models.Course
}

func (s *stubCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type stubEnrollmentChecker struct {
	enrolled map[string]bool
}

func (s *stubEnrollmentChecker) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	return s.enrolled[userID+":"+courseID], nil
}

type stubEvaluationReader struct {
	evaluations map[string]models.Evaluation
}

func (s *stubEvaluationReader) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	if e, ok := s.evaluations[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func runCourseAccess(t *testing.T, identity *models.Identity, courseID string, courses *stubCourseReader, enrollments *stubEnrollmentChecker) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/courses/"+courseID, nil)
	c.Params = gin.Params{{Key: "id", Value: courseID}}
	if identity != nil {
		c.Set(ContextIdentityKey, identity)
	}

	reached := false
	handler := CourseAccess(courses, enrollments)
	handler(c)
	if !c.IsAborted() {
		reached = true
	}
	return recorder, reached
}

func TestCourseAccessAdmitsOwner(t *testing.T) {
	courses := &stubCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1"},
	}}
	identity := &models.Identity{UserID: "teacher-1", Role: models.RoleTeacher}

	_, reached := runCourseAccess(t, identity, "course-1", courses, &stubEnrollmentChecker{})
	assert.True(t, reached)
}

func TestCourseAccessAdmitsAdmin(t *testing.T) {
	courses := &stubCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1"},
	}}
	identity := &models.Identity{UserID: "admin-1", Role: models.RoleAdmin}

	_, reached := runCourseAccess(t, identity, "course-1", courses, &stubEnrollmentChecker{})
	assert.True(t, reached)
}

func TestCourseAccessAdmitsEnrolledStudent(t *testing.T) {
	courses := &stubCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1"},
	}}
	enrollments := &stubEnrollmentChecker{enrolled: map[string]bool{"student-1:course-1": true}}
	identity := &models.Identity{UserID: "student-1", Role: models.RoleStudent}

	_, reached := runCourseAccess(t, identity, "course-1", courses, enrollments)
	assert.True(t, reached)
}

func TestCourseAccessRejectsStranger(t *testing.T) {
	courses := &stubCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1"},
	}}
	identity := &models.Identity{UserID: "student-2", Role: models.RoleStudent}

	recorder, reached := runCourseAccess(t, identity, "course-1", courses, &stubEnrollmentChecker{})
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestCourseAccessMissingCourseIsNotFound(t *testing.T) {
	identity := &models.Identity{UserID: "admin-1", Role: models.RoleAdmin}

	recorder, reached := runCourseAccess(t, identity, "missing", &stubCourseReader{}, &stubEnrollmentChecker{})
	assert.False(t, reached)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestEvaluationAccessResolvesParentCourse(t *testing.T) {
	courses := &stubCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1"},
	}}
	evaluations := &stubEvaluationReader{evaluations: map[string]models.Evaluation{
		"eval-1": {ID: "eval-1", CourseID: "course-1"},
	}}
	enrollments := &stubEnrollmentChecker{enrolled: map[string]bool{"student-1:course-1": true}}

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/evaluations/eval-1/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "eval-1"}}
	c.Set(ContextIdentityKey, &models.Identity{UserID: "student-1", Role: models.RoleStudent})

	EvaluationAccess(evaluations, courses, enrollments)(c)
	assert.False(t, c.IsAborted())
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/courses", nil)
	c.Set(ContextIdentityKey, &models.Identity{UserID: "student-1", Role: models.RoleStudent})

	RequireRoles(models.RoleTeacher, models.RoleAdmin)(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestCourseAccessRejectsMalformedIdentity(t *testing.T) {
	courses := &stubCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1"},
	}}

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/courses/course-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	c.Set(ContextIdentityKey, "not-an-identity")

	CourseAccess(courses, &stubEnrollmentChecker{})(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireRolesRejectsMalformedIdentity(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/courses", nil)
	c.Set(ContextIdentityKey, "not-an-identity")

	RequireRoles(models.RoleTeacher)(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireRolesAdmitsListedRole(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/courses", nil)
	c.Set(ContextIdentityKey, &models.Identity{UserID: "teacher-1", Role: models.RoleTeacher})

	RequireRoles(models.RoleTeacher)(c)
	assert.False(t, c.IsAborted())
}
