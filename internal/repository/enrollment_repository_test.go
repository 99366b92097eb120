package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs("user-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsMiss(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs("user-1", "course-2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.Exists(context.Background(), "user-1", "course-2")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "progress", "completed_evaluations", "created_at"}).
		AddRow("enr-1", "user-1", "course-1", 50.0, pq.StringArray{"eval-1"}, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, course_id, progress, completed_evaluations, created_at FROM enrollments WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs("user-1").
		WillReturnRows(rows)

	enrollments, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, []string{"eval-1"}, []string(enrollments[0].CompletedEvaluations))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateProgress(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET progress = $2, completed_evaluations = $3 WHERE id = $1")).
		WithArgs("enr-1", 50.0, pq.StringArray{"eval-1"}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProgress(context.Background(), "enr-1", 50.0, pq.StringArray{"eval-1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
