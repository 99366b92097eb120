package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/academia-sur/academy-api/internal/models"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateProgress(ctx context.Context, id string, progress float64, completed pq.StringArray) error
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentEvaluationReader interface {
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

// EnrollmentService implements enrollment and progress tracking.
type EnrollmentService struct {
	enrollments enrollmentRepository
	courses     enrollmentCourseReader
	evaluations enrollmentEvaluationReader
	logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepository, courses enrollmentCourseReader, evaluations enrollmentEvaluationReader, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{enrollments: enrollments, courses: courses, evaluations: evaluations, logger: logger}
}

// Enroll joins the caller to a course. Enrolling twice in the same
// course is rejected rather than silently ignored. The unique index on
// (user_id, course_id) backstops the existence check under concurrent
// enrolls for the same pair.
func (s *EnrollmentService) Enroll(ctx context.Context, identity models.Identity, courseID string) (*models.Enrollment, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.enrollments.Exists(ctx, identity.UserID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "already enrolled in this course")
	}

	enrollment := &models.Enrollment{
		UserID:               identity.UserID,
		CourseID:             courseID,
		Progress:             0,
		CompletedEvaluations: pq.StringArray{},
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, appErrors.Clone(appErrors.ErrBadRequest, "already enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("student enrolled", zap.String("user_id", identity.UserID), zap.String("course_id", courseID))
	return enrollment, nil
}

// CompleteEvaluation marks an evaluation as completed for the caller and
// recomputes progress as the completed share of the course's evaluations.
// Completing the same evaluation twice leaves the record unchanged.
func (s *EnrollmentService) CompleteEvaluation(ctx context.Context, identity models.Identity, evaluationID string) (*models.Enrollment, error) {
	evaluation, err := s.evaluations.FindByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}

	enrollment, err := s.enrollments.FindByUserAndCourse(ctx, identity.UserID, evaluation.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	for _, id := range enrollment.CompletedEvaluations {
		if id == evaluationID {
			return enrollment, nil
		}
	}

	total, err := s.evaluations.CountByCourse(ctx, evaluation.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count evaluations")
	}

	completed := append(enrollment.CompletedEvaluations, evaluationID)
	progress := computeProgress(len(completed), total)

	if err := s.enrollments.UpdateProgress(ctx, enrollment.ID, progress, completed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}

	enrollment.CompletedEvaluations = completed
	enrollment.Progress = progress

	s.logger.Info("evaluation completed",
		zap.String("user_id", identity.UserID),
		zap.String("evaluation_id", evaluationID),
		zap.Float64("progress", progress))
	return enrollment, nil
}

// computeProgress returns the completed percentage rounded to two
// decimals. A course with no evaluations stays at zero progress.
func computeProgress(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}
