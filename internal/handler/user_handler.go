package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/Poe1999/TgBot.China/internal/service"
	"github.com/Poe1999/TgBot.China/internal/session"
	"github.com/Poe1999/TgBot.China/internal/telegram"
	"github.com/rs/zerolog"
)

// UserHandler drives the learner flow: level → section → task → answer →
// navigation.
type UserHandler struct {
	sessions *session.Store
	catalog  CatalogStore
	subs     SubmissionStore
	feedback FeedbackAnalyzer
	sender   telegram.Sender
	log      zerolog.Logger
}

func NewUserHandler(
	sessions *session.Store,
	catalog CatalogStore,
	subs SubmissionStore,
	feedback FeedbackAnalyzer,
	sender telegram.Sender,
	log zerolog.Logger,
) *UserHandler {
	return &UserHandler{
		sessions: sessions,
		catalog:  catalog,
		subs:     subs,
		feedback: feedback,
		sender:   sender,
		log:      log.With().Str("component", "user_handler").Logger(),
	}
}

// Start resets the session and shows the level menu. Bound to /start from
// any state and to the back-to-levels button.
func (h *UserHandler) Start(ctx context.Context, upd telegram.Update, rec session.Record) {
	h.sessions.Clear(upd.UserID)

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageWithKeyboard(upd.ChatID,
			"👋 Привет! Я — бот для подготовки к HSK.\n\nВыберите уровень экзамена:",
			model.LevelNames())
	})
}

// ChooseLevel stores the picked level and shows the section menu. Picking a
// level resets any previously browsed section or task.
func (h *UserHandler) ChooseLevel(ctx context.Context, upd telegram.Update, rec session.Record) {
	level, err := h.catalog.LevelByName(ctx, upd.Text)
	if err != nil {
		if errors.Is(err, service.ErrLevelNotFound) {
			h.reply(upd.ChatID, func() error {
				return h.sender.SendMessage(upd.ChatID, "❌ Уровень не найден. Нажмите /start.")
			})
			return
		}
		h.internalError(upd.ChatID, err, "level lookup")
		return
	}

	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepNone),
		session.WithData(map[string]string{
			session.KeyLevelID:   strconv.Itoa(level.ID),
			session.KeyLevelName: level.Name,
		}))

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageWithKeyboard(upd.ChatID,
			"Вы выбрали "+level.Name+". Теперь выберите раздел:",
			model.SectionNames())
	})
}

// ChooseSection stores the picked section and lists its tasks.
func (h *UserHandler) ChooseSection(ctx context.Context, upd telegram.Update, rec session.Record) {
	levelID, ok := h.dataInt(rec, session.KeyLevelID)
	if !ok {
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "Сначала выберите уровень (/start)")
		})
		return
	}

	sec, err := h.catalog.SectionByName(ctx, upd.Text)
	if err != nil {
		if errors.Is(err, service.ErrSectionNotFound) {
			h.reply(upd.ChatID, func() error {
				return h.sender.SendMessage(upd.ChatID, "Раздел не найден.")
			})
			return
		}
		h.internalError(upd.ChatID, err, "section lookup")
		return
	}

	h.sessions.Set(upd.UserID, session.WithData(mergeData(rec.Data,
		session.KeySectionID, strconv.Itoa(sec.ID),
		session.KeySectionName, sec.Name,
	)))

	h.showTaskList(ctx, upd.ChatID, levelID, sec.ID, rec.DataValue(session.KeyLevelName), sec.Name)
}

// PickTask loads the chosen task, presents its media and prompt, and arms
// the awaiting-answer step.
func (h *UserHandler) PickTask(ctx context.Context, upd telegram.Update, rec session.Record) {
	taskNumber, ok := ParseTaskButton(upd.Text)
	if !ok {
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "Некорректный номер задания.")
		})
		return
	}

	levelID, okLevel := h.dataInt(rec, session.KeyLevelID)
	sectionID, okSection := h.dataInt(rec, session.KeySectionID)
	if !okLevel || !okSection {
		h.staleSession(upd)
		return
	}

	task, err := h.catalog.TaskByNumber(ctx, levelID, sectionID, taskNumber)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			h.reply(upd.ChatID, func() error {
				return h.sender.SendMessage(upd.ChatID,
					"Задание "+strconv.Itoa(taskNumber)+" не найдено.")
			})
			return
		}
		h.internalError(upd.ChatID, err, "task lookup")
		return
	}

	h.presentTask(upd, rec, task)
}

// Answer grades or analyzes the learner's answer, records the submission,
// and offers navigation. Bound to any text while awaiting an answer.
func (h *UserHandler) Answer(ctx context.Context, upd telegram.Update, rec session.Record) {
	taskID, ok := h.dataInt(rec, session.KeyCurrentTaskID)
	if !ok {
		h.staleSession(upd)
		return
	}

	task, err := h.catalog.TaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			h.staleSession(upd)
			return
		}
		h.internalError(upd.ChatID, err, "task load")
		return
	}

	answer := upd.Text
	sub := &model.Submission{
		UserID:     upd.UserID,
		TaskID:     task.ID,
		UserAnswer: answer,
	}

	var verdict string
	if task.IsWriting() {
		// Qualitative feedback, no boolean grade.
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "🧠 Анализирую ваш текст с помощью ИИ…")
		})
		verdict = h.feedback.Analyze(ctx, task.LevelName, task.CommentText, answer)
		sub.IsCorrect = nil
	} else {
		result := service.Grade(task, answer)
		verdict = result.Reply
		sub.IsCorrect = result.Correct
	}

	// The submission is recorded before the verdict goes out; a reply
	// failure must not lose the attempt.
	if err := h.subs.Create(ctx, sub); err != nil {
		h.log.Error().Err(err).Int("task_id", task.ID).Msg("Submission insert failed")
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "Произошла ошибка. Попробуйте снова.")
		})
		return
	}

	h.sessions.Set(upd.UserID, session.WithStep(session.StepNone))

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessage(upd.ChatID, verdict)
	})
	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageWithKeyboard(upd.ChatID, "Что делаем дальше?",
			[]string{BtnNextTask},
			[]string{BtnTaskList, BtnHome})
	})
}

// Navigate handles the post-answer navigation buttons.
func (h *UserHandler) Navigate(ctx context.Context, upd telegram.Update, rec session.Record) {
	if upd.Text == BtnHome {
		h.Start(ctx, upd, rec)
		return
	}

	levelID, okLevel := h.dataInt(rec, session.KeyLevelID)
	sectionID, okSection := h.dataInt(rec, session.KeySectionID)
	if !okLevel || !okSection {
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "Сначала выберите уровень (/start)")
		})
		return
	}

	switch upd.Text {
	case BtnTaskList:
		level, err := h.catalog.LevelByID(ctx, levelID)
		if err != nil {
			h.staleSession(upd)
			return
		}
		sec, err := h.catalog.SectionByID(ctx, sectionID)
		if err != nil {
			h.staleSession(upd)
			return
		}
		h.showTaskList(ctx, upd.ChatID, levelID, sectionID, level.Name, sec.Name)

	case BtnNextTask:
		taskID, ok := h.dataInt(rec, session.KeyCurrentTaskID)
		if !ok {
			h.reply(upd.ChatID, func() error {
				return h.sender.SendMessage(upd.ChatID, "Не удалось определить текущее задание.")
			})
			return
		}

		current, err := h.catalog.TaskByID(ctx, taskID)
		if err != nil {
			h.staleSession(upd)
			return
		}

		next, err := h.catalog.NextTask(ctx, current)
		if err != nil {
			h.internalError(upd.ChatID, err, "next task lookup")
			return
		}
		if next == nil {
			h.reply(upd.ChatID, func() error {
				return h.sender.SendMessageWithKeyboard(upd.ChatID,
					"🏁 Это было последнее задание в разделе.\nВозвращайтесь за новыми!",
					[]string{BtnTaskList, BtnHome})
			})
			return
		}

		h.presentTask(upd, rec, next)
	}
}

// presentTask sends the task media and prompt and arms awaiting_answer with
// the task id in the session data.
func (h *UserHandler) presentTask(upd telegram.Update, rec session.Record, task *model.Task) {
	h.reply(upd.ChatID, func() error {
		return h.sender.SendPhoto(upd.ChatID, task.PhotoFileID, "📎 Задание:")
	})
	if task.AudioFileID != "" {
		h.reply(upd.ChatID, func() error {
			return h.sender.SendAudio(upd.ChatID, task.AudioFileID, "🎧 Аудио:")
		})
	}
	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageRemoveKeyboard(upd.ChatID,
			task.CommentText+"\n\nВведите ответ:")
	})

	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepAwaitingAnswer),
		session.WithData(mergeData(rec.Data,
			session.KeyCurrentTaskID, strconv.Itoa(task.ID),
		)))
}

func (h *UserHandler) showTaskList(ctx context.Context, chatID int64, levelID, sectionID int, levelName, sectionName string) {
	tasks, err := h.catalog.TasksBySection(ctx, levelID, sectionID)
	if err != nil {
		h.internalError(chatID, err, "task list")
		return
	}

	if len(tasks) == 0 {
		h.reply(chatID, func() error {
			return h.sender.SendMessage(chatID,
				"📌 Пока нет заданий для «"+sectionName+"». Обратитесь к администратору.")
		})
		return
	}

	rows := make([][]string, 0, len(tasks)+1)
	for _, t := range tasks {
		rows = append(rows, []string{TaskButtonLabel(t.TaskNumber)})
	}
	rows = append(rows, []string{BtnBackToLevels})

	h.reply(chatID, func() error {
		return h.sender.SendMessageWithKeyboard(chatID,
			"📚 "+levelName+" → "+sectionName+"\nВсего заданий: "+strconv.Itoa(len(tasks))+"\nВыберите номер:",
			rows...)
	})
}

// staleSession handles records referencing data that no longer resolves:
// the stale fields are dropped and the user is sent back to the top.
func (h *UserHandler) staleSession(upd telegram.Update) {
	h.sessions.Clear(upd.UserID)
	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessage(upd.ChatID, "Сессия устарела. Начните с /start")
	})
}

func (h *UserHandler) internalError(chatID int64, err error, op string) {
	h.log.Error().Err(err).Str("op", op).Msg("Learner flow error")
	h.reply(chatID, func() error {
		return h.sender.SendMessage(chatID, "Произошла ошибка. Попробуйте снова.")
	})
}

func (h *UserHandler) dataInt(rec session.Record, key string) (int, bool) {
	n, err := strconv.Atoi(rec.DataValue(key))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// reply sends and logs a failed delivery; an undeliverable reply must not
// abort the handler.
func (h *UserHandler) reply(chatID int64, send func() error) {
	if err := send(); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("Reply delivery failed")
	}
}
