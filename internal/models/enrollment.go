package models

import (
	"time"

	"github.com/lib/pq"
)

// Enrollment joins a student to a course. At most one row exists per
// (user, course) pair; deleting a course removes its enrollments in the
// same transaction.
type Enrollment struct {
	ID                   string         `db:"id" json:"id"`
	UserID               string         `db:"user_id" json:"user_id"`
	CourseID             string         `db:"course_id" json:"course_id"`
	Progress             float64        `db:"progress" json:"progress"`
	CompletedEvaluations pq.StringArray `db:"completed_evaluations" json:"completed_evaluations"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches an enrollment with student info for rosters.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

// EnrolledCourse embeds enrollment progress alongside the course data.
type EnrolledCourse struct {
	CourseItem
	Progress             float64   `json:"progress"`
	CompletedEvaluations []string  `json:"completed_evaluations"`
	EnrolledAt           time.Time `json:"enrolled_at"`
}
