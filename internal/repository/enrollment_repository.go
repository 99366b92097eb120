package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/academia-sur/academy-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, progress, completed_evaluations, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByUserAndCourse returns the enrollment for a (user, course) pair.
func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, progress, completed_evaluations, created_at FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists checks whether an enrollment exists for the pair.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record with zero progress.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	if enrollment.CompletedEvaluations == nil {
		enrollment.CompletedEvaluations = pq.StringArray{}
	}
	const query = `INSERT INTO enrollments (id, user_id, course_id, progress, completed_evaluations, created_at)
        VALUES (:id, :user_id, :course_id, :progress, :completed_evaluations, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ListByUser returns every enrollment belonging to a user.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, progress, completed_evaluations, created_at FROM enrollments WHERE user_id = $1 ORDER BY created_at DESC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments by user: %w", err)
	}
	return enrollments, nil
}

// ListDetailByCourse returns a course roster with student info.
func (r *EnrollmentRepository) ListDetailByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.progress, e.completed_evaluations, e.created_at,
        u.full_name AS student_name, u.email AS student_email
        FROM enrollments e
        LEFT JOIN users u ON u.id = e.user_id
        WHERE e.course_id = $1 ORDER BY e.created_at ASC`
	var roster []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return roster, nil
}

// UpdateProgress stores the recomputed progress and completed evaluations.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id string, progress float64, completed pq.StringArray) error {
	const query = `UPDATE enrollments SET progress = $2, completed_evaluations = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, progress, completed); err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return nil
}
