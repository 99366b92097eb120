package models

import "time"

// CourseModality is the course delivery mode.
type CourseModality string

const (
	// ModalitySynchronized courses run between fixed start and end dates.
	ModalitySynchronized CourseModality = "synchronized"
	// ModalityAsynchronized courses are self-paced over a duration in days.
	ModalityAsynchronized CourseModality = "asynchronized"
)

// Valid reports whether the modality belongs to the closed enumeration.
func (m CourseModality) Valid() bool {
	return m == ModalitySynchronized || m == ModalityAsynchronized
}

// Course is a catalog entry owned by its creating teacher. Exactly one of
// {StartDate, EndDate} or {DurationDays} is populated, selected by
// Modality; the other side is NULL in storage.
type Course struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	Category     string         `db:"category" json:"category"`
	Modality     CourseModality `db:"modality" json:"modality"`
	TeacherID    string         `db:"teacher_id" json:"teacher_id"`
	StartDate    *time.Time     `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time     `db:"end_date" json:"end_date,omitempty"`
	DurationDays *int           `db:"duration_days" json:"duration_days,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherSnapshot is the public teacher profile denormalized into course
// responses.
type TeacherSnapshot struct {
	ID    string `db:"teacher_id" json:"id"`
	Name  string `db:"teacher_name" json:"name"`
	Email string `db:"teacher_email" json:"email"`
}

// CourseDetail is the row shape of a course joined to its teacher.
type CourseDetail struct {
	Course
	TeacherName  string `db:"teacher_name" json:"-"`
	TeacherEmail string `db:"teacher_email" json:"-"`
}

// Item converts the joined row into the API response shape.
func (d CourseDetail) Item() CourseItem {
	return CourseItem{
		Course:  d.Course,
		Teacher: TeacherSnapshot{ID: d.TeacherID, Name: d.TeacherName, Email: d.TeacherEmail},
	}
}

// CourseItem is a course with its teacher snapshot embedded, as returned
// by every course listing endpoint.
type CourseItem struct {
	Course
	Teacher TeacherSnapshot `json:"teacher"`
}

// CreateCourseRequest is the payload for creating a course. The
// modality-dependent fields are cross-checked in the service layer.
type CreateCourseRequest struct {
	Title        string         `json:"title" validate:"required,min=3,max=200"`
	Description  string         `json:"description" validate:"max=2000"`
	Category     string         `json:"category" validate:"required,max=100"`
	Modality     CourseModality `json:"modality" validate:"required"`
	StartDate    *time.Time     `json:"start_date"`
	EndDate      *time.Time     `json:"end_date"`
	DurationDays *int           `json:"duration_days"`
}

// UpdateCourseRequest is the payload for rewriting a course.
type UpdateCourseRequest struct {
	Title        string         `json:"title" validate:"required,min=3,max=200"`
	Description  string         `json:"description" validate:"max=2000"`
	Category     string         `json:"category" validate:"required,max=100"`
	Modality     CourseModality `json:"modality" validate:"required"`
	StartDate    *time.Time     `json:"start_date"`
	EndDate      *time.Time     `json:"end_date"`
	DurationDays *int           `json:"duration_days"`
}
