package model

import "time"

// Reference section names. These are seeded at startup and double as the
// learner-facing keyboard labels, so the values are the exact button texts.
const (
	SectionListening = "Аудирование"
	SectionReading   = "Чтение"
	SectionWriting   = "Письмо"
)

// LevelNames returns the seeded exam level names in order.
func LevelNames() []string {
	return []string{"HSK 1", "HSK 2", "HSK 3", "HSK 4", "HSK 5"}
}

// SectionNames returns the seeded section names in order.
func SectionNames() []string {
	return []string{SectionListening, SectionReading, SectionWriting}
}

// ExamLevel represents one HSK exam level.
type ExamLevel struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Section represents one skill section (listening, reading, writing).
type Section struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Task is a single practice task within a level+section.
// AudioFileID is empty for everything but listening tasks; CorrectAnswer is
// empty for writing tasks, which are judged by prose feedback instead.
type Task struct {
	ID            int       `json:"id"`
	LevelID       int       `json:"level_id"`
	SectionID     int       `json:"section_id"`
	TaskNumber    int       `json:"task_number"`
	PhotoFileID   string    `json:"photo_file_id"`
	AudioFileID   string    `json:"audio_file_id,omitempty"`
	CommentText   string    `json:"comment_text"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// Joined reference names, populated on reads.
	LevelName   string `json:"level_name,omitempty"`
	SectionName string `json:"section_name,omitempty"`
}

// IsWriting reports whether the task belongs to the writing section.
func (t *Task) IsWriting() bool {
	return t.SectionName == SectionWriting
}

// TaskDraft is the payload assembled step by step in the admin authoring
// flow and validated before persistence.
type TaskDraft struct {
	LevelName     string `validate:"required"`
	SectionName   string `validate:"required"`
	TaskNumber    int    `validate:"required,min=1"`
	PhotoFileID   string `validate:"required"`
	AudioFileID   string
	Comment       string `validate:"required"`
	CorrectAnswer string
}
