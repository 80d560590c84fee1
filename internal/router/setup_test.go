package router

import (
	"context"
	"errors"
	"testing"

	"github.com/Poe1999/TgBot.China/internal/handler"
	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/Poe1999/TgBot.China/internal/session"
	"github.com/Poe1999/TgBot.China/internal/telegram"
	"github.com/rs/zerolog"
)

const adminID int64 = 900

type flowEnv struct {
	router   *Router
	sessions *session.Store
	catalog  *fakeCatalog
	subs     *fakeSubmissions
	feedback *fakeFeedback
	sender   *fakeSender
}

func newFlowEnv(t *testing.T, tasks ...model.Task) *flowEnv {
	t.Helper()

	env := &flowEnv{
		sessions: session.NewStore(),
		catalog:  newFakeCatalog(tasks...),
		subs:     &fakeSubmissions{},
		feedback: &fakeFeedback{},
		sender:   &fakeSender{},
	}

	log := zerolog.Nop()
	user := handler.NewUserHandler(env.sessions, env.catalog, env.subs, env.feedback, env.sender, log)
	admin := handler.NewAdminHandler(env.sessions, env.catalog, env.sender, []int64{adminID}, user, log)
	env.router = Setup(env.sessions, []int64{adminID}, &Handlers{User: user, Admin: admin}, log)
	return env
}

// dispatch sends one update and asserts which transition handled it.
func (e *flowEnv) dispatch(t *testing.T, upd telegram.Update, want string) {
	t.Helper()
	if got := e.router.Dispatch(context.Background(), upd); got != want {
		t.Fatalf("dispatch %+v: transition = %q, want %q", upd, got, want)
	}
}

func text(userID int64, s string) telegram.Update {
	return telegram.Update{UserID: userID, ChatID: userID, Text: s}
}

func command(userID int64, name string) telegram.Update {
	return telegram.Update{UserID: userID, ChatID: userID, Command: name}
}

func photo(userID int64, fileID string) telegram.Update {
	return telegram.Update{UserID: userID, ChatID: userID, PhotoFileID: fileID}
}

func audio(userID int64, fileID string) telegram.Update {
	return telegram.Update{UserID: userID, ChatID: userID, AudioFileID: fileID}
}

func readingTask(id, number int, answer string) model.Task {
	return model.Task{
		ID:            id,
		LevelID:       1,
		SectionID:     2,
		TaskNumber:    number,
		PhotoFileID:   "photo-file",
		CommentText:   "Прочитайте текст и ответьте на вопрос.",
		CorrectAnswer: answer,
		LevelName:     "HSK 1",
		SectionName:   model.SectionReading,
	}
}

func TestLearnerAnswerFlow(t *testing.T) {
	env := newFlowEnv(t, readingTask(10, 1, "北京"), readingTask(11, 2, "上海"))
	const user int64 = 1

	env.dispatch(t, command(user, "start"), "start")
	env.dispatch(t, text(user, "HSK 1"), "user_choose_level")
	env.dispatch(t, text(user, model.SectionReading), "user_choose_section")
	env.dispatch(t, text(user, handler.TaskButtonLabel(1)), "user_pick_task")

	rec := env.sessions.Get(user)
	if rec.Step != session.StepAwaitingAnswer {
		t.Fatalf("step after pick = %q, want %q", rec.Step, session.StepAwaitingAnswer)
	}
	if rec.DataValue(session.KeyCurrentTaskID) != "10" {
		t.Fatalf("current_task_id = %q, want 10", rec.DataValue(session.KeyCurrentTaskID))
	}
	if len(env.sender.photos) != 1 || env.sender.photos[0] != "photo-file" {
		t.Fatalf("photos sent = %v, want the task photo", env.sender.photos)
	}

	env.dispatch(t, text(user, "北京"), "user_answer")
	if len(env.subs.created) != 1 {
		t.Fatalf("submissions = %d, want 1", len(env.subs.created))
	}
	sub := env.subs.created[0]
	if sub.TaskID != 10 || sub.UserAnswer != "北京" {
		t.Fatalf("submission = %+v", sub)
	}
	if sub.IsCorrect == nil || !*sub.IsCorrect {
		t.Fatal("correct answer not recorded as correct")
	}
	if got := env.sessions.Get(user).Step; got != session.StepNone {
		t.Fatalf("step after answer = %q, want none", got)
	}

	// Next task arms the second task, a wrong answer is recorded as such.
	env.dispatch(t, text(user, handler.BtnNextTask), "user_navigate")
	if got := env.sessions.Get(user).DataValue(session.KeyCurrentTaskID); got != "11" {
		t.Fatalf("current_task_id after next = %q, want 11", got)
	}
	env.dispatch(t, text(user, "广州"), "user_answer")
	sub = env.subs.created[1]
	if sub.IsCorrect == nil || *sub.IsCorrect {
		t.Fatal("wrong answer not recorded as incorrect")
	}

	// No task after the last one.
	env.dispatch(t, text(user, handler.BtnNextTask), "user_navigate")
	if !env.sender.sawText("последнее задание") {
		t.Fatalf("missing end-of-section message, got %q", env.sender.lastText())
	}
}

func TestWritingAnswerGetsFeedbackNotGrade(t *testing.T) {
	writing := model.Task{
		ID:          20,
		LevelID:     2,
		SectionID:   3,
		TaskNumber:  1,
		PhotoFileID: "photo-file",
		CommentText: "Напишите эссе о своей семье.",
		LevelName:   "HSK 2",
		SectionName: model.SectionWriting,
	}
	env := newFlowEnv(t, writing)
	env.feedback.reply = "Хороший текст, но есть ошибки в порядке слов."
	const user int64 = 2

	env.dispatch(t, command(user, "start"), "start")
	env.dispatch(t, text(user, "HSK 2"), "user_choose_level")
	env.dispatch(t, text(user, model.SectionWriting), "user_choose_section")
	env.dispatch(t, text(user, handler.TaskButtonLabel(1)), "user_pick_task")
	env.dispatch(t, text(user, "我家有四口人。"), "user_answer")

	if env.feedback.calls != 1 {
		t.Fatalf("feedback calls = %d, want 1", env.feedback.calls)
	}
	if !env.sender.sawText(env.feedback.reply) {
		t.Fatal("feedback text never sent to the learner")
	}
	if len(env.subs.created) != 1 {
		t.Fatalf("submissions = %d, want 1", len(env.subs.created))
	}
	sub := env.subs.created[0]
	if sub.IsCorrect != nil {
		t.Fatalf("writing submission has is_correct = %v, want nil", *sub.IsCorrect)
	}
	if sub.UserAnswer != "我家有四口人。" {
		t.Fatalf("answer stored as %q, want verbatim text", sub.UserAnswer)
	}
}

func TestAdminEnterDeniedWithoutStateChange(t *testing.T) {
	env := newFlowEnv(t)
	const stranger int64 = 5

	env.dispatch(t, command(stranger, "admin"), "admin_enter")

	if env.sender.lastText() != "🚫 Доступ запрещён." {
		t.Fatalf("denial reply = %q", env.sender.lastText())
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("denied /admin created a session record, store len = %d", env.sessions.Len())
	}
}

func TestAdminAuthoringReadingHappyPath(t *testing.T) {
	env := newFlowEnv(t)

	env.dispatch(t, command(adminID, "admin"), "admin_enter")
	env.dispatch(t, text(adminID, handler.BtnAddTask), "admin_add_task")
	env.dispatch(t, text(adminID, "HSK 1"), "admin_choose_level")
	env.dispatch(t, text(adminID, model.SectionReading), "admin_choose_section")
	env.dispatch(t, text(adminID, "3"), "admin_task_number")
	env.dispatch(t, photo(adminID, "new-photo"), "admin_photo")
	env.dispatch(t, text(adminID, "Прочитайте и выберите ответ."), "admin_comment")
	env.dispatch(t, text(adminID, "北京"), "admin_correct_answer")

	if got := env.sessions.Get(adminID).Step; got != session.StepConfirm {
		t.Fatalf("step before confirm = %q, want %q", got, session.StepConfirm)
	}
	if !env.sender.sawText("Предпросмотр") {
		t.Fatal("preview never shown")
	}

	env.dispatch(t, text(adminID, handler.BtnConfirm), "admin_confirm")

	if len(env.catalog.created) != 1 {
		t.Fatalf("tasks created = %d, want 1", len(env.catalog.created))
	}
	draft := env.catalog.created[0]
	if draft.LevelName != "HSK 1" || draft.SectionName != model.SectionReading {
		t.Fatalf("draft catalog refs = %q/%q", draft.LevelName, draft.SectionName)
	}
	if draft.TaskNumber != 3 || draft.PhotoFileID != "new-photo" || draft.CorrectAnswer != "北京" {
		t.Fatalf("draft = %+v", draft)
	}
	if draft.AudioFileID != "" {
		t.Fatalf("reading draft has audio %q", draft.AudioFileID)
	}
	if env.sessions.Len() != 0 {
		t.Fatal("session record not cleared after save")
	}
}

func TestAdminAuthoringListeningRequiresAudio(t *testing.T) {
	env := newFlowEnv(t)

	env.dispatch(t, command(adminID, "admin"), "admin_enter")
	env.dispatch(t, text(adminID, handler.BtnAddTask), "admin_add_task")
	env.dispatch(t, text(adminID, "HSK 1"), "admin_choose_level")
	env.dispatch(t, text(adminID, model.SectionListening), "admin_choose_section")
	env.dispatch(t, text(adminID, "1"), "admin_task_number")

	// Text where a photo is expected hits the mismatch fallback.
	env.dispatch(t, text(adminID, "вот фото"), "admin_unexpected_input")
	if env.sender.lastText() != "⚠️ Ожидалось фото." {
		t.Fatalf("hint = %q", env.sender.lastText())
	}
	if got := env.sessions.Get(adminID).Step; got != session.StepPhoto {
		t.Fatalf("mismatch advanced the step to %q", got)
	}

	env.dispatch(t, photo(adminID, "listen-photo"), "admin_photo")
	if got := env.sessions.Get(adminID).Step; got != session.StepAudio {
		t.Fatalf("listening flow skipped the audio step, step = %q", got)
	}

	env.dispatch(t, text(adminID, "аудио потом"), "admin_unexpected_input")
	if env.sender.lastText() != "⚠️ Ожидался аудиофайл." {
		t.Fatalf("hint = %q", env.sender.lastText())
	}

	env.dispatch(t, audio(adminID, "listen-audio"), "admin_audio")
	env.dispatch(t, text(adminID, "Прослушайте и ответьте."), "admin_comment")
	env.dispatch(t, text(adminID, "A"), "admin_correct_answer")
	env.dispatch(t, text(adminID, handler.BtnConfirm), "admin_confirm")

	if len(env.catalog.created) != 1 {
		t.Fatalf("tasks created = %d, want 1", len(env.catalog.created))
	}
	if got := env.catalog.created[0].AudioFileID; got != "listen-audio" {
		t.Fatalf("draft audio = %q", got)
	}
}

func TestAdminAuthoringCancelDiscardsDraft(t *testing.T) {
	env := newFlowEnv(t)

	env.dispatch(t, command(adminID, "admin"), "admin_enter")
	env.dispatch(t, text(adminID, handler.BtnAddTask), "admin_add_task")
	env.dispatch(t, text(adminID, "HSK 3"), "admin_choose_level")
	env.dispatch(t, text(adminID, model.SectionWriting), "admin_choose_section")
	env.dispatch(t, text(adminID, "2"), "admin_task_number")
	env.dispatch(t, photo(adminID, "essay-photo"), "admin_photo")
	// Writing skips the correct-answer step and lands on confirm.
	env.dispatch(t, text(adminID, "Напишите эссе."), "admin_comment")

	env.dispatch(t, text(adminID, handler.BtnCancel), "admin_confirm")

	if len(env.catalog.created) != 0 {
		t.Fatalf("cancel still created %d tasks", len(env.catalog.created))
	}
	if env.sessions.Len() != 0 {
		t.Fatal("session record survived cancel")
	}
}

func TestAdminSaveFailureKeepsDraftForRetry(t *testing.T) {
	env := newFlowEnv(t)

	env.dispatch(t, command(adminID, "admin"), "admin_enter")
	env.dispatch(t, text(adminID, handler.BtnAddTask), "admin_add_task")
	env.dispatch(t, text(adminID, "HSK 1"), "admin_choose_level")
	env.dispatch(t, text(adminID, model.SectionReading), "admin_choose_section")
	env.dispatch(t, text(adminID, "4"), "admin_task_number")
	env.dispatch(t, photo(adminID, "p"), "admin_photo")
	env.dispatch(t, text(adminID, "Комментарий."), "admin_comment")
	env.dispatch(t, text(adminID, "B"), "admin_correct_answer")

	env.catalog.createErr = errors.New("database unavailable")
	env.dispatch(t, text(adminID, handler.BtnConfirm), "admin_confirm")

	if !env.sender.sawText("Ошибка при сохранении") {
		t.Fatalf("missing save error reply, got %q", env.sender.lastText())
	}
	rec := env.sessions.Get(adminID)
	if rec.Step != session.StepConfirm {
		t.Fatalf("step after failed save = %q, want %q", rec.Step, session.StepConfirm)
	}
	if rec.DataValue(session.KeyPhotoFileID) != "p" {
		t.Fatal("draft data lost on failed save")
	}

	// Same confirm press succeeds once the store recovers.
	env.catalog.createErr = nil
	env.dispatch(t, text(adminID, handler.BtnConfirm), "admin_confirm")
	if len(env.catalog.created) != 1 {
		t.Fatalf("tasks created after retry = %d, want 1", len(env.catalog.created))
	}
	if env.sessions.Len() != 0 {
		t.Fatal("session record not cleared after successful retry")
	}
}

func TestStartResetsMidAuthoring(t *testing.T) {
	env := newFlowEnv(t)

	env.dispatch(t, command(adminID, "admin"), "admin_enter")
	env.dispatch(t, text(adminID, handler.BtnAddTask), "admin_add_task")
	env.dispatch(t, text(adminID, "HSK 1"), "admin_choose_level")

	env.dispatch(t, command(adminID, "start"), "start")

	rec := env.sessions.Get(adminID)
	if !rec.IsUser() || rec.Step != session.StepNone {
		t.Fatalf("record after /start = %+v, want default user record", rec)
	}
	if len(rec.Data) != 0 {
		t.Fatalf("draft data survived /start: %v", rec.Data)
	}
}

func TestAdminExitReturnsToLearnerMenu(t *testing.T) {
	env := newFlowEnv(t)

	env.dispatch(t, command(adminID, "admin"), "admin_enter")
	env.dispatch(t, text(adminID, handler.BtnExit), "admin_exit")

	if env.sessions.Len() != 0 {
		t.Fatal("admin record survived exit")
	}
	if !env.sender.sawText("Выберите уровень экзамена") {
		t.Fatal("learner menu not shown after exit")
	}
}
