package service

import (
	"fmt"
	"strings"

	"github.com/Poe1999/TgBot.China/internal/model"
)

// GradeResult is the outcome of grading one non-writing answer.
type GradeResult struct {
	// Reply is the user-facing verdict text.
	Reply string
	// Correct is the boolean correctness stored on the submission.
	// Never true for a malformed multi-block answer.
	Correct *bool
	// FormatError marks a multi-block answer rejected before comparison.
	FormatError bool
	// PerPosition holds per-sub-question correctness for multi-block tasks.
	PerPosition []bool
}

// multiBlockMarkers are the prompt-text phrases signalling a task with
// sub-questions 1-5 answered as one A/B letter block. A hand-authored
// content convention carried over from the existing task bank.
var multiBlockMarkers = []string{"задания 1-5", "вопросы 1-5"}

// IsMultiBlock reports whether the task prompt marks a multi-sub-question
// A/B block.
func IsMultiBlock(prompt string) bool {
	lowered := strings.ToLower(prompt)
	for _, m := range multiBlockMarkers {
		if strings.Contains(lowered, m) {
			return true
		}
	}
	return false
}

// Grade scores a learner's answer against a non-writing task. Writing tasks
// are not graded here; they go through the feedback service and carry a nil
// correctness flag.
func Grade(task *model.Task, answer string) GradeResult {
	answer = strings.TrimSpace(answer)

	if IsMultiBlock(task.CommentText) {
		return gradeMultiBlock(task, answer)
	}

	if answer == task.CorrectAnswer {
		return GradeResult{Reply: "Правильно!", Correct: boolPtr(true)}
	}
	return GradeResult{
		Reply:   fmt.Sprintf("Неверно. Правильный ответ: %s", task.CorrectAnswer),
		Correct: boolPtr(false),
	}
}

func gradeMultiBlock(task *model.Task, answer string) GradeResult {
	expected := strings.ToUpper(strings.TrimSpace(task.CorrectAnswer))
	answer = strings.ToUpper(answer)

	if len(answer) != len(expected) || !isABAlphabet(answer) {
		return GradeResult{
			Reply: "Неверный формат ответа.\n" +
				fmt.Sprintf("Для заданий 1-5 введите %d букв (A/B) слитно, например: ABBBA", len(expected)),
			Correct:     boolPtr(false),
			FormatError: true,
		}
	}

	if answer == expected {
		perPosition := make([]bool, len(expected))
		for i := range perPosition {
			perPosition[i] = true
		}
		return GradeResult{
			Reply:       "Все ответы верны! Отлично!",
			Correct:     boolPtr(true),
			PerPosition: perPosition,
		}
	}

	perPosition := make([]bool, len(expected))
	lines := make([]string, 0, len(expected))
	for i := range expected {
		got, want := answer[i], expected[i]
		perPosition[i] = got == want
		if perPosition[i] {
			lines = append(lines, fmt.Sprintf("%d. ✅", i+1))
		} else {
			lines = append(lines, fmt.Sprintf("%d. ❌ (%c)", i+1, want))
		}
	}
	return GradeResult{
		Reply:       "Проверьте ответы:\n" + strings.Join(lines, "\n"),
		Correct:     boolPtr(false),
		PerPosition: perPosition,
	}
}

func isABAlphabet(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c != 'A' && c != 'B' {
			return false
		}
	}
	return true
}

func boolPtr(b bool) *bool {
	return &b
}
