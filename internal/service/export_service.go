package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/academia-sur/academy-api/internal/models"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
	"github.com/academia-sur/academy-api/pkg/export"
)

type exportCourseReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

type exportEnrollmentReader interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	ListDetailByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

// ExportService renders course rosters and completion certificates.
type ExportService struct {
	courses     exportCourseReader
	enrollments exportEnrollmentReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(courses exportCourseReader, enrollments exportEnrollmentReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		courses:     courses,
		enrollments: enrollments,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// RosterCSV renders the course roster as CSV. Only the owning teacher or
// an admin may export it.
func (s *ExportService) RosterCSV(ctx context.Context, identity models.Identity, courseID string) ([]byte, string, error) {
	detail, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if !canManageCourse(identity, &detail.Course) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "only the owning teacher or an admin may export the roster")
	}

	roster, err := s.enrollments.ListDetailByCourse(ctx, courseID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Progress", "Enrolled At"},
		Rows:    make([]map[string]string, 0, len(roster)),
	}
	for _, entry := range roster {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":     entry.StudentName,
			"Email":       entry.StudentEmail,
			"Progress":    fmt.Sprintf("%.2f", entry.Progress),
			"Enrolled At": entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	filename := fmt.Sprintf("roster-%s.csv", courseID)
	return payload, filename, nil
}

// CompletionCertificate renders a PDF certificate for the caller's
// enrollment. The course must be fully completed.
func (s *ExportService) CompletionCertificate(ctx context.Context, identity models.Identity, courseID string) ([]byte, string, error) {
	detail, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	enrollment, err := s.enrollments.FindByUserAndCourse(ctx, identity.UserID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if enrollment.Progress < 100 {
		return nil, "", appErrors.Clone(appErrors.ErrBadRequest, "course is not completed yet")
	}

	payload, err := s.pdf.RenderCertificate(export.Certificate{
		StudentName: identity.Name,
		CourseTitle: detail.Title,
		TeacherName: detail.TeacherName,
		IssuedAt:    time.Now().UTC().Format("January 2, 2006"),
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	s.logger.Info("certificate issued", zap.String("user_id", identity.UserID), zap.String("course_id", courseID))
	filename := fmt.Sprintf("certificate-%s.pdf", courseID)
	return payload, filename, nil
}
