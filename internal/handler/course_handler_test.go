package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lib/pq"

	"github.com/academia-sur/academy-api/internal/middleware"
	"github.com/academia-sur/academy-api/internal/models"
	"github.com/academia-sur/academy-api/internal/service"
	"github.com/academia-sur/academy-api/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCourseRepo struct {
	courses map[string]models.Course
}

func (s *stubCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if c, ok := s.courses[id]; ok {
		return &models.CourseDetail{Course: c, TeacherName: "Ada", TeacherEmail: "ada@example.com"}, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubCourseRepo) ListAll(ctx context.Context) ([]models.CourseDetail, error) {
	var details []models.CourseDetail
	for _, c := range s.courses {
		details = append(details, models.CourseDetail{Course: c})
	}
	return details, nil
}

func (s *stubCourseRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseDetail, error) {
	var details []models.CourseDetail
	for _, c := range s.courses {
		if c.TeacherID == teacherID {
			details = append(details, models.CourseDetail{Course: c})
		}
	}
	return details, nil
}

func (s *stubCourseRepo) ListByIDs(ctx context.Context, ids []string) ([]models.CourseDetail, error) {
	var details []models.CourseDetail
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			details = append(details, models.CourseDetail{Course: c})
		}
	}
	return details, nil
}

func (s *stubCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if s.courses == nil {
		s.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	s.courses[course.ID] = *course
	return nil
}

func (s *stubCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := s.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	s.courses[course.ID] = *course
	return nil
}

func (s *stubCourseRepo) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := s.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.courses, id)
	return nil
}

type stubEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
}

func (s *stubEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := s.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubEnrollmentRepo) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	for _, e := range s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubEnrollmentRepo) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	_, err := s.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *stubEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if s.enrollments == nil {
		s.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	s.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (s *stubEnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range s.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubEnrollmentRepo) ListDetailByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range s.enrollments {
		if e.CourseID == courseID {
			out = append(out, models.EnrollmentDetail{Enrollment: e})
		}
	}
	return out, nil
}

func (s *stubEnrollmentRepo) UpdateProgress(ctx context.Context, id string, progress float64, completed pq.StringArray) error {
	if e, ok := s.enrollments[id]; ok {
		e.Progress = progress
		e.CompletedEvaluations = completed
		s.enrollments[id] = e
	}
	return nil
}

type stubEvaluationRepo struct{}

func (s *stubEvaluationRepo) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	return nil, sql.ErrNoRows
}

func (s *stubEvaluationRepo) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return 0, nil
}

func newTestCourseHandler(courses *stubCourseRepo, enrollments *stubEnrollmentRepo) *CourseHandler {
	courseService := service.NewCourseService(courses, enrollments, nil, nil, zap.NewNop())
	enrollmentService := service.NewEnrollmentService(enrollments, courses, &stubEvaluationRepo{}, zap.NewNop())
	exportService := service.NewExportService(courses, enrollments, zap.NewNop())
	return NewCourseHandler(courseService, enrollmentService, exportService)
}

func performRequest(t *testing.T, identity *models.Identity, method, path string, body interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	c.Request = httptest.NewRequest(method, path, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	if identity != nil {
		c.Set(middleware.ContextIdentityKey, identity)
	}
	return recorder, c
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

func TestCourseHandlerCreate(t *testing.T) {
	handler := newTestCourseHandler(&stubCourseRepo{}, &stubEnrollmentRepo{})
	identity := &models.Identity{UserID: "teacher-1", Role: models.RoleTeacher}

	days := 30
	recorder, c := performRequest(t, identity, http.MethodPost, "/api/v1/courses", models.CreateCourseRequest{
		Title:        "Go Basics",
		Category:     "programming",
		Modality:     models.ModalityAsynchronized,
		DurationDays: &days,
	})
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	assert.Nil(t, envelope.Error)
}

func TestCourseHandlerCreateInvalidModality(t *testing.T) {
	handler := newTestCourseHandler(&stubCourseRepo{}, &stubEnrollmentRepo{})
	identity := &models.Identity{UserID: "teacher-1", Role: models.RoleTeacher}

	recorder, c := performRequest(t, identity, http.MethodPost, "/api/v1/courses", map[string]string{
		"title":    "Go Basics",
		"category": "programming",
		"modality": "hybrid",
	})
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	require.NotNil(t, envelope.Error)
}

func TestCourseHandlerGetMissing(t *testing.T) {
	handler := newTestCourseHandler(&stubCourseRepo{}, &stubEnrollmentRepo{})

	recorder, c := performRequest(t, nil, http.MethodGet, "/api/v1/courses/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestCourseHandlerEnrollDuplicate(t *testing.T) {
	courses := &stubCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1"},
	}}
	enrollments := &stubEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "student-1", CourseID: "course-1"},
	}}
	handler := newTestCourseHandler(courses, enrollments)
	identity := &models.Identity{UserID: "student-1", Role: models.RoleStudent}

	recorder, c := performRequest(t, identity, http.MethodPost, "/api/v1/courses/enroll/course-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	handler.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "BAD_REQUEST", envelope.Error.Code)
}

func TestCourseHandlerEnrollSucceeds(t *testing.T) {
	courses := &stubCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1"},
	}}
	handler := newTestCourseHandler(courses, &stubEnrollmentRepo{})
	identity := &models.Identity{UserID: "student-1", Role: models.RoleStudent}

	recorder, c := performRequest(t, identity, http.MethodPost, "/api/v1/courses/enroll/course-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	handler.Enroll(c)

	assert.Equal(t, http.StatusCreated, recorder.Code)
}

func TestCourseHandlerListRequiresIdentity(t *testing.T) {
	handler := newTestCourseHandler(&stubCourseRepo{}, &stubEnrollmentRepo{})

	recorder, c := performRequest(t, nil, http.MethodGet, "/api/v1/courses", nil)
	handler.List(c)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestCourseHandlerCertificateRequiresCompletion(t *testing.T) {
	courses := &stubCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1", Title: "Go Basics"},
	}}
	enrollments := &stubEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "student-1", CourseID: "course-1", Progress: 60},
	}}
	handler := newTestCourseHandler(courses, enrollments)
	identity := &models.Identity{UserID: "student-1", Name: "Student", Role: models.RoleStudent}

	recorder, c := performRequest(t, identity, http.MethodGet, "/api/v1/courses/course-1/certificate", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	handler.Certificate(c)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCourseHandlerCertificateIssued(t *testing.T) {
	courses := &stubCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeacherID: "teacher-1", Title: "Go Basics"},
	}}
	enrollments := &stubEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "student-1", CourseID: "course-1", Progress: 100},
	}}
	handler := newTestCourseHandler(courses, enrollments)
	identity := &models.Identity{UserID: "student-1", Name: "Student", Role: models.RoleStudent}

	recorder, c := performRequest(t, identity, http.MethodGet, "/api/v1/courses/course-1/certificate", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	handler.Certificate(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/pdf", recorder.Header().Get("Content-Type"))
	assert.NotEmpty(t, recorder.Body.Bytes())
}
