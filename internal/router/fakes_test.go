package router

import (
	"context"
	"strings"

	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/Poe1999/TgBot.China/internal/service"
)

// fakeCatalog serves the seeded reference data plus a fixed task set from
// memory, standing in for service.CatalogService.
type fakeCatalog struct {
	levels    []model.ExamLevel
	sections  []model.Section
	tasks     []model.Task
	created   []*model.TaskDraft
	createErr error
}

func newFakeCatalog(tasks ...model.Task) *fakeCatalog {
	fc := &fakeCatalog{tasks: tasks}
	for i, name := range model.LevelNames() {
		fc.levels = append(fc.levels, model.ExamLevel{ID: i + 1, Name: name})
	}
	for i, name := range model.SectionNames() {
		fc.sections = append(fc.sections, model.Section{ID: i + 1, Name: name})
	}
	return fc
}

func (f *fakeCatalog) LevelByName(_ context.Context, name string) (*model.ExamLevel, error) {
	for _, l := range f.levels {
		if l.Name == name {
			return &l, nil
		}
	}
	return nil, service.ErrLevelNotFound
}

func (f *fakeCatalog) LevelByID(_ context.Context, id int) (*model.ExamLevel, error) {
	for _, l := range f.levels {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, service.ErrLevelNotFound
}

func (f *fakeCatalog) SectionByName(_ context.Context, name string) (*model.Section, error) {
	for _, s := range f.sections {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, service.ErrSectionNotFound
}

func (f *fakeCatalog) SectionByID(_ context.Context, id int) (*model.Section, error) {
	for _, s := range f.sections {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, service.ErrSectionNotFound
}

func (f *fakeCatalog) TasksBySection(_ context.Context, levelID, sectionID int) ([]model.Task, error) {
	var out []model.Task
	for _, t := range f.tasks {
		if t.LevelID == levelID && t.SectionID == sectionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeCatalog) TaskByNumber(_ context.Context, levelID, sectionID, taskNumber int) (*model.Task, error) {
	for _, t := range f.tasks {
		if t.LevelID == levelID && t.SectionID == sectionID && t.TaskNumber == taskNumber {
			return &t, nil
		}
	}
	return nil, service.ErrTaskNotFound
}

func (f *fakeCatalog) TaskByID(_ context.Context, id int) (*model.Task, error) {
	for _, t := range f.tasks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, service.ErrTaskNotFound
}

func (f *fakeCatalog) NextTask(_ context.Context, current *model.Task) (*model.Task, error) {
	var next *model.Task
	for i := range f.tasks {
		t := &f.tasks[i]
		if t.LevelID != current.LevelID || t.SectionID != current.SectionID || t.TaskNumber <= current.TaskNumber {
			continue
		}
		if next == nil || t.TaskNumber < next.TaskNumber {
			next = t
		}
	}
	return next, nil
}

func (f *fakeCatalog) CreateTask(_ context.Context, draft *model.TaskDraft) (*model.Task, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, draft)
	return &model.Task{
		ID:            1000 + len(f.created),
		TaskNumber:    draft.TaskNumber,
		PhotoFileID:   draft.PhotoFileID,
		AudioFileID:   draft.AudioFileID,
		CommentText:   draft.Comment,
		CorrectAnswer: draft.CorrectAnswer,
		LevelName:     draft.LevelName,
		SectionName:   draft.SectionName,
	}, nil
}

// fakeSender records every outbound message.
type fakeSender struct {
	texts  []string
	photos []string
	audios []string
}

func (f *fakeSender) SendMessage(_ int64, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendMessageWithKeyboard(_ int64, text string, _ ...[]string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendMessageRemoveKeyboard(_ int64, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendPhoto(_ int64, fileID, _ string) error {
	f.photos = append(f.photos, fileID)
	return nil
}

func (f *fakeSender) SendAudio(_ int64, fileID, _ string) error {
	f.audios = append(f.audios, fileID)
	return nil
}

func (f *fakeSender) lastText() string {
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func (f *fakeSender) sawText(substr string) bool {
	for _, m := range f.texts {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// fakeSubmissions records submissions in memory.
type fakeSubmissions struct {
	created []*model.Submission
	err     error
}

func (f *fakeSubmissions) Create(_ context.Context, s *model.Submission) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, s)
	return nil
}

// fakeFeedback returns a canned analysis.
type fakeFeedback struct {
	reply string
	calls int
}

func (f *fakeFeedback) Analyze(_ context.Context, _, _, _ string) string {
	f.calls++
	if f.reply == "" {
		return service.FallbackFeedback
	}
	return f.reply
}
