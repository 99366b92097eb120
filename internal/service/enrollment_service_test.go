package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academia-sur/academy-api/internal/models"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	created     *models.Enrollment
	updated     map[string]float64
	createErr   error
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	for _, e := range m.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateProgress(ctx context.Context, id string, progress float64, completed pq.StringArray) error {
	if m.updated == nil {
		m.updated = make(map[string]float64)
	}
	m.updated[id] = progress
	if e, ok := m.enrollments[id]; ok {
		e.Progress = progress
		e.CompletedEvaluations = completed
		m.enrollments[id] = e
	}
	return nil
}

type mockCourseReader struct {
	courses map[string]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockEvaluationReader struct {
	evaluations map[string]models.Evaluation
}

func (m *mockEvaluationReader) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	if e, ok := m.evaluations[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEvaluationReader) CountByCourse(ctx context.Context, courseID string) (int, error) {
	count := 0
	for _, e := range m.evaluations {
		if e.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func studentIdentity() models.Identity {
	return models.Identity{UserID: "student-1", Email: "student@example.com", Name: "Student", Role: models.RoleStudent}
}

func TestEnrollCreatesZeroProgressRecord(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]models.Course{"course-1": {ID: "course-1"}}}
	svc := NewEnrollmentService(repo, courses, &mockEvaluationReader{}, zap.NewNop())

	enrollment, err := svc.Enroll(context.Background(), studentIdentity(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "student-1", enrollment.UserID)
	assert.Equal(t, float64(0), enrollment.Progress)
	assert.Empty(t, enrollment.CompletedEvaluations)
	require.NotNil(t, repo.created)
}

func TestEnrollDuplicateRejected(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "student-1", CourseID: "course-1"},
	}}
	courses := &mockCourseReader{courses: map[string]models.Course{"course-1": {ID: "course-1"}}}
	svc := NewEnrollmentService(repo, courses, &mockEvaluationReader{}, zap.NewNop())

	_, err := svc.Enroll(context.Background(), studentIdentity(), "course-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestEnrollUniqueViolationRejected(t *testing.T) {
	repo := &mockEnrollmentRepo{
		createErr: fmt.Errorf("create enrollment: %w", &pq.Error{Code: "23505"}),
	}
	courses := &mockCourseReader{courses: map[string]models.Course{"course-1": {ID: "course-1"}}}
	svc := NewEnrollmentService(repo, courses, &mockEvaluationReader{}, zap.NewNop())

	_, err := svc.Enroll(context.Background(), studentIdentity(), "course-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestEnrollMissingCourse(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, &mockCourseReader{}, &mockEvaluationReader{}, zap.NewNop())

	_, err := svc.Enroll(context.Background(), studentIdentity(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestCompleteEvaluationRecomputesProgress(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "student-1", CourseID: "course-1", CompletedEvaluations: pq.StringArray{}},
	}}
	evaluations := &mockEvaluationReader{evaluations: map[string]models.Evaluation{
		"eval-1": {ID: "eval-1", CourseID: "course-1"},
		"eval-2": {ID: "eval-2", CourseID: "course-1"},
	}}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, evaluations, zap.NewNop())

	enrollment, err := svc.CompleteEvaluation(context.Background(), studentIdentity(), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, enrollment.Progress)
	assert.Equal(t, []string{"eval-1"}, []string(enrollment.CompletedEvaluations))

	enrollment, err = svc.CompleteEvaluation(context.Background(), studentIdentity(), "eval-2")
	require.NoError(t, err)
	assert.Equal(t, 100.0, enrollment.Progress)
}

func TestCompleteEvaluationIdempotent(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "student-1", CourseID: "course-1", Progress: 50, CompletedEvaluations: pq.StringArray{"eval-1"}},
	}}
	evaluations := &mockEvaluationReader{evaluations: map[string]models.Evaluation{
		"eval-1": {ID: "eval-1", CourseID: "course-1"},
		"eval-2": {ID: "eval-2", CourseID: "course-1"},
	}}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, evaluations, zap.NewNop())

	enrollment, err := svc.CompleteEvaluation(context.Background(), studentIdentity(), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, enrollment.Progress)
	assert.Len(t, enrollment.CompletedEvaluations, 1)
	assert.Empty(t, repo.updated)
}

func TestCompleteEvaluationRequiresEnrollment(t *testing.T) {
	evaluations := &mockEvaluationReader{evaluations: map[string]models.Evaluation{
		"eval-1": {ID: "eval-1", CourseID: "course-1"},
	}}
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, &mockCourseReader{}, evaluations, zap.NewNop())

	_, err := svc.CompleteEvaluation(context.Background(), studentIdentity(), "eval-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestComputeProgressBounds(t *testing.T) {
	assert.Equal(t, 0.0, computeProgress(0, 0))
	assert.Equal(t, 0.0, computeProgress(3, 0))
	assert.Equal(t, 33.33, computeProgress(1, 3))
	assert.Equal(t, 100.0, computeProgress(5, 3))
}
