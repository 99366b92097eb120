package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academia-sur/academy-api/internal/models"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
)

type evaluationRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Evaluation, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
}

type evaluationCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EvaluationService manages the evaluations of a course.
type EvaluationService struct {
	evaluations evaluationRepository
	courses     evaluationCourseReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEvaluationService constructs an EvaluationService.
func NewEvaluationService(evaluations evaluationRepository, courses evaluationCourseReader, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EvaluationService{evaluations: evaluations, courses: courses, validator: validate, logger: logger}
}

// ListByCourse returns a course's evaluations in position order.
func (s *EvaluationService) ListByCourse(ctx context.Context, courseID string) ([]models.Evaluation, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	evaluations, err := s.evaluations.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	if evaluations == nil {
		evaluations = []models.Evaluation{}
	}
	return evaluations, nil
}

// Create adds an evaluation to a course owned by the caller.
func (s *EvaluationService) Create(ctx context.Context, identity models.Identity, courseID string, req models.CreateEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if !canManageCourse(identity, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning teacher or an admin may add evaluations")
	}

	evaluation := &models.Evaluation{
		CourseID: courseID,
		Title:    req.Title,
		Position: req.Position,
	}
	if err := s.evaluations.Create(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}

	s.logger.Info("evaluation created", zap.String("course_id", courseID), zap.String("evaluation_id", evaluation.ID))
	return evaluation, nil
}
