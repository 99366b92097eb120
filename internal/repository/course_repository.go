package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academia-sur/academy-api/internal/models"
)

const courseDetailColumns = `c.id, c.title, c.description, c.category, c.modality, c.teacher_id,
        c.start_date, c.end_date, c.duration_days, c.created_at, c.updated_at,
        u.full_name AS teacher_name, u.email AS teacher_email`

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, description, category, modality, teacher_id, start_date, end_date, duration_days, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID returns a course joined with its teacher profile.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c LEFT JOIN users u ON u.id = c.teacher_id WHERE c.id = $1`, courseDetailColumns)
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListAll returns every course with teacher snapshots.
func (r *CourseRepository) ListAll(ctx context.Context) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c LEFT JOIN users u ON u.id = c.teacher_id ORDER BY c.created_at DESC`, courseDetailColumns)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByTeacher returns the courses owned by a teacher.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c LEFT JOIN users u ON u.id = c.teacher_id WHERE c.teacher_id = $1 ORDER BY c.created_at DESC`, courseDetailColumns)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list courses by teacher: %w", err)
	}
	return courses, nil
}

// ListByIDs returns the courses matching the given ids, chunking the IN
// clause since the store caps parameter lists.
func (r *CourseRepository) ListByIDs(ctx context.Context, ids []string) ([]models.CourseDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const chunkSize = 100
	courses := make([]models.CourseDetail, 0, len(ids))
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		placeholders := make([]string, len(chunk))
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		query := fmt.Sprintf(`SELECT %s FROM courses c LEFT JOIN users u ON u.id = c.teacher_id WHERE c.id IN (%s)`,
			courseDetailColumns, strings.Join(placeholders, ","))
		var batch []models.CourseDetail
		if err := r.db.SelectContext(ctx, &batch, query, args...); err != nil {
			return nil, fmt.Errorf("list courses by ids: %w", err)
		}
		courses = append(courses, batch...)
	}
	return courses, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, title, description, category, modality, teacher_id, start_date, end_date, duration_days, created_at, updated_at)
        VALUES (:id, :title, :description, :category, :modality, :teacher_id, :start_date, :end_date, :duration_days, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update rewrites the mutable course fields. The modality-dependent
// columns are always written, so a modality switch nulls out the fields
// of the previous modality in the same statement.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description, category = :category,
        modality = :modality, start_date = :start_date, end_date = :end_date, duration_days = :duration_days,
        updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade removes the course and every enrollment referencing it in
// a single transaction. Either everything is deleted or nothing is.
func (r *CourseRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin course delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = $1`, id); err != nil {
		return fmt.Errorf("delete course enrollments: %w", err)
	}

	var result sql.Result
	if result, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit course delete: %w", err)
	}
	return nil
}
