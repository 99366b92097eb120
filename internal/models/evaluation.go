package models

import "time"

// Evaluation is a gradable unit inside a course. Completing evaluations
// drives enrollment progress.
type Evaluation struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateEvaluationRequest is the payload for adding an evaluation to a
// course.
type CreateEvaluationRequest struct {
	Title    string `json:"title" validate:"required,min=3,max=200"`
	Position int    `json:"position" validate:"gte=0"`
}
