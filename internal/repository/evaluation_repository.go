package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academia-sur/academy-api/internal/models"
)

// EvaluationRepository handles persistence of course evaluations.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs the repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// FindByID returns an evaluation by its ID.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	const query = `SELECT id, course_id, title, position, created_at FROM evaluations WHERE id = $1`
	var evaluation models.Evaluation
	if err := r.db.GetContext(ctx, &evaluation, query, id); err != nil {
		return nil, err
	}
	return &evaluation, nil
}

// ListByCourse returns the evaluations of a course in position order.
func (r *EvaluationRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Evaluation, error) {
	const query = `SELECT id, course_id, title, position, created_at FROM evaluations WHERE course_id = $1 ORDER BY position ASC`
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, courseID); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evaluations, nil
}

// CountByCourse returns how many evaluations a course has.
func (r *EvaluationRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM evaluations WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return count, nil
}

// Create persists a new evaluation.
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	if evaluation.CreatedAt.IsZero() {
		evaluation.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO evaluations (id, course_id, title, position, created_at)
        VALUES (:id, :course_id, :title, :position, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}
