package model

import "time"

// Submission records one learner answer to a task.
// IsCorrect is nil for writing tasks: those are judged qualitatively by the
// feedback service, not as a boolean.
type Submission struct {
	ID          int       `json:"id"`
	UserID      int64     `json:"user_id"`
	TaskID      int       `json:"task_id"`
	UserAnswer  string    `json:"user_answer"`
	IsCorrect   *bool     `json:"is_correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}
