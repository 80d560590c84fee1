// Package handler implements the conversational flows: the learner's
// browse-and-answer path and the admin's step-by-step task authoring.
// Handlers receive the sender's session record already loaded by the router
// and are responsible for arming the next step before returning.
package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/Poe1999/TgBot.China/internal/model"
)

// Reply keyboard labels. These exact strings double as state-machine
// triggers, so they live in one place.
const (
	BtnNextTask     = "Следующее задание"
	BtnTaskList     = "К списку заданий"
	BtnHome         = "🏠 В главное меню"
	BtnBackToLevels = "↩️ Назад к уровням"

	BtnAddTask = "➕ Добавить задание"
	BtnExit    = "↩️ Выход"
	BtnConfirm = "✅ Подтвердить"
	BtnCancel  = "❌ Отменить"
)

const taskButtonPrefix = "Задание"

// CatalogStore is the catalog surface the handlers need. Implemented by
// service.CatalogService.
type CatalogStore interface {
	LevelByName(ctx context.Context, name string) (*model.ExamLevel, error)
	LevelByID(ctx context.Context, id int) (*model.ExamLevel, error)
	SectionByName(ctx context.Context, name string) (*model.Section, error)
	SectionByID(ctx context.Context, id int) (*model.Section, error)
	TasksBySection(ctx context.Context, levelID, sectionID int) ([]model.Task, error)
	TaskByNumber(ctx context.Context, levelID, sectionID, taskNumber int) (*model.Task, error)
	TaskByID(ctx context.Context, id int) (*model.Task, error)
	NextTask(ctx context.Context, current *model.Task) (*model.Task, error)
	CreateTask(ctx context.Context, draft *model.TaskDraft) (*model.Task, error)
}

// SubmissionStore records learner answers. Implemented by
// repository.SubmissionRepository.
type SubmissionStore interface {
	Create(ctx context.Context, s *model.Submission) error
}

// FeedbackAnalyzer produces prose feedback for writing answers. Implemented
// by service.FeedbackService; never fails, substituting a fixed message on
// analysis errors.
type FeedbackAnalyzer interface {
	Analyze(ctx context.Context, levelName, prompt, answerText string) string
}

// TaskButtonLabel renders the task-list button text for a task number.
func TaskButtonLabel(n int) string {
	return taskButtonPrefix + " " + strconv.Itoa(n)
}

// ParseTaskButton extracts the task number from a "Задание N" button press.
func ParseTaskButton(text string) (int, bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 || fields[0] != taskButtonPrefix {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// IsTaskButton reports whether the text is a well-formed task pick.
func IsTaskButton(text string) bool {
	_, ok := ParseTaskButton(text)
	return ok
}

// mergeData copies base and overlays the given key/value pairs.
func mergeData(base map[string]string, pairs ...string) map[string]string {
	merged := make(map[string]string, len(base)+len(pairs)/2)
	for k, v := range base {
		merged[k] = v
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		merged[pairs[i]] = pairs[i+1]
	}
	return merged
}
