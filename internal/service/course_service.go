package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academia-sur/academy-api/internal/models"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
)

const (
	catalogCacheKey     = "courses:catalog"
	catalogCachePattern = "courses:*"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	ListAll(ctx context.Context) ([]models.CourseDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseDetail, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	DeleteCascade(ctx context.Context, id string) error
}

type courseEnrollmentReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
}

// CourseService implements catalog management and role-aware listings.
type CourseService struct {
	courses     courseRepository
	enrollments courseEnrollmentReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(courses courseRepository, enrollments courseEnrollmentReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{courses: courses, enrollments: enrollments, cache: cache, validator: validate, logger: logger}
}

// List returns the course listing for the caller. Teachers get the
// courses they own, students the courses behind their enrollments, and
// any other role the full catalog.
func (s *CourseService) List(ctx context.Context, identity models.Identity) ([]models.CourseItem, error) {
	switch identity.Role {
	case models.RoleTeacher:
		details, err := s.courses.ListByTeacher(ctx, identity.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
		}
		return detailItems(details), nil
	case models.RoleStudent:
		enrollments, err := s.enrollments.ListByUser(ctx, identity.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
		}
		if len(enrollments) == 0 {
			return []models.CourseItem{}, nil
		}
		ids := make([]string, 0, len(enrollments))
		for _, enrollment := range enrollments {
			ids = append(ids, enrollment.CourseID)
		}
		details, err := s.courses.ListByIDs(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
		}
		return detailItems(details), nil
	}
	// Admin and any unrecognized role fall through to the full catalog.
	return s.catalog(ctx)
}

// ListAvailable returns catalog courses the caller is not enrolled in.
func (s *CourseService) ListAvailable(ctx context.Context, identity models.Identity) ([]models.CourseItem, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	enrolled := make(map[string]struct{}, len(enrollments))
	for _, enrollment := range enrollments {
		enrolled[enrollment.CourseID] = struct{}{}
	}

	available := make([]models.CourseItem, 0, len(catalog))
	for _, item := range catalog {
		if _, ok := enrolled[item.ID]; !ok {
			available = append(available, item)
		}
	}
	return available, nil
}

// ListEnrolled returns the caller's enrolled courses with progress.
func (s *CourseService) ListEnrolled(ctx context.Context, identity models.Identity) ([]models.EnrolledCourse, error) {
	enrollments, err := s.enrollments.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if len(enrollments) == 0 {
		return []models.EnrolledCourse{}, nil
	}

	ids := make([]string, 0, len(enrollments))
	byCourse := make(map[string]models.Enrollment, len(enrollments))
	for _, enrollment := range enrollments {
		ids = append(ids, enrollment.CourseID)
		byCourse[enrollment.CourseID] = enrollment
	}

	details, err := s.courses.ListByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled courses")
	}

	result := make([]models.EnrolledCourse, 0, len(details))
	for _, detail := range details {
		enrollment, ok := byCourse[detail.ID]
		if !ok {
			continue
		}
		result = append(result, models.EnrolledCourse{
			CourseItem:           detail.Item(),
			Progress:             enrollment.Progress,
			CompletedEvaluations: []string(enrollment.CompletedEvaluations),
			EnrolledAt:           enrollment.CreatedAt,
		})
	}
	return result, nil
}

// Get returns a single course with its teacher snapshot.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseItem, error) {
	detail, err := s.courses.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	item := detail.Item()
	return &item, nil
}

// Create persists a new course owned by the caller.
func (s *CourseService) Create(ctx context.Context, identity models.Identity, req models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	startDate, endDate, durationDays, err := normalizeModality(req.Modality, req.StartDate, req.EndDate, req.DurationDays)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Modality:     req.Modality,
		TeacherID:    identity.UserID,
		StartDate:    startDate,
		EndDate:      endDate,
		DurationDays: durationDays,
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("teacher_id", identity.UserID))
	return course, nil
}

// Update rewrites a course. Only the owning teacher or an admin may
// update; switching modality clears the fields of the previous one.
func (s *CourseService) Update(ctx context.Context, identity models.Identity, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if !canManageCourse(identity, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning teacher or an admin may modify this course")
	}

	startDate, endDate, durationDays, err := normalizeModality(req.Modality, req.StartDate, req.EndDate, req.DurationDays)
	if err != nil {
		return nil, err
	}

	course.Title = req.Title
	course.Description = req.Description
	course.Category = req.Category
	course.Modality = req.Modality
	course.StartDate = startDate
	course.EndDate = endDate
	course.DurationDays = durationDays

	if err := s.courses.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course updated", zap.String("course_id", course.ID))
	return course, nil
}

// Delete removes a course together with all of its enrollments.
func (s *CourseService) Delete(ctx context.Context, identity models.Identity, id string) error {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if !canManageCourse(identity, course) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owning teacher or an admin may delete this course")
	}

	if err := s.courses.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

func (s *CourseService) catalog(ctx context.Context) ([]models.CourseItem, error) {
	var cached []models.CourseItem
	if hit, err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	details, err := s.courses.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	items := detailItems(details)
	if err := s.cache.Set(ctx, catalogCacheKey, items, 0); err != nil {
		s.logger.Warn("failed to cache catalog", zap.Error(err))
	}
	return items, nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, catalogCachePattern); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}

func detailItems(details []models.CourseDetail) []models.CourseItem {
	items := make([]models.CourseItem, 0, len(details))
	for _, detail := range details {
		items = append(items, detail.Item())
	}
	return items
}

func canManageCourse(identity models.Identity, course *models.Course) bool {
	return identity.Role == models.RoleAdmin || course.TeacherID == identity.UserID
}

// normalizeModality enforces that a course carries exactly the schedule
// fields of its modality. The unused side comes back nil so the store
// writes NULL over any previous value.
func normalizeModality(modality models.CourseModality, startDate, endDate *time.Time, durationDays *int) (*time.Time, *time.Time, *int, error) {
	if !modality.Valid() {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "modality must be synchronized or asynchronized")
	}

	switch modality {
	case models.ModalitySynchronized:
		if startDate == nil || endDate == nil {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "synchronized courses require start_date and end_date")
		}
		if !endDate.After(*startDate) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
		}
		return startDate, endDate, nil, nil
	case models.ModalityAsynchronized:
		if durationDays == nil {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "asynchronized courses require duration_days")
		}
		if *durationDays <= 0 {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "duration_days must be positive")
		}
		return nil, nil, durationDays, nil
	}
	return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "modality must be synchronized or asynchronized")
}
