package handler

import (
	"context"
	"strconv"

	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/Poe1999/TgBot.China/internal/session"
	"github.com/Poe1999/TgBot.China/internal/telegram"
	"github.com/rs/zerolog"
)

const saveErrorLimit = 200

// AdminHandler drives the task-authoring flow. Every step stores its field
// in the session data and arms the next step; confirm assembles a TaskDraft
// and persists it.
type AdminHandler struct {
	sessions *session.Store
	catalog  CatalogStore
	sender   telegram.Sender
	admins   map[int64]struct{}
	user     *UserHandler
	log      zerolog.Logger
}

func NewAdminHandler(
	sessions *session.Store,
	catalog CatalogStore,
	sender telegram.Sender,
	adminIDs []int64,
	user *UserHandler,
	log zerolog.Logger,
) *AdminHandler {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &AdminHandler{
		sessions: sessions,
		catalog:  catalog,
		sender:   sender,
		admins:   admins,
		user:     user,
		log:      log.With().Str("component", "admin_handler").Logger(),
	}
}

// IsAdmin reports allow-list membership.
func (h *AdminHandler) IsAdmin(userID int64) bool {
	_, ok := h.admins[userID]
	return ok
}

// Enter handles /admin: switches an authorized user into admin mode, rejects
// everyone else with a fixed denial and no state change.
func (h *AdminHandler) Enter(ctx context.Context, upd telegram.Update, rec session.Record) {
	if !h.IsAdmin(upd.UserID) {
		h.log.Warn().Int64("user_id", upd.UserID).Msg("Unauthorized /admin attempt")
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "🚫 Доступ запрещён.")
		})
		return
	}

	h.sessions.Set(upd.UserID,
		session.WithMode(session.ModeAdmin),
		session.WithStep(session.StepMainMenu),
		session.WithData(map[string]string{}))

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageWithKeyboard(upd.ChatID,
			"🔐 Админ-панель\nВыберите действие:",
			[]string{BtnAddTask},
			[]string{BtnExit})
	})
}

// Exit leaves admin mode and returns to the learner's top-level menu.
func (h *AdminHandler) Exit(ctx context.Context, upd telegram.Update, rec session.Record) {
	h.sessions.Clear(upd.UserID)
	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageRemoveKeyboard(upd.ChatID, "✅ Вы вышли из админ-панели.")
	})
	h.user.Start(ctx, upd, h.sessions.Get(upd.UserID))
}

// BeginAuthoring starts the add-task flow with the level picker.
func (h *AdminHandler) BeginAuthoring(ctx context.Context, upd telegram.Update, rec session.Record) {
	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepChooseLevel),
		session.WithData(map[string]string{}))

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageWithKeyboard(upd.ChatID,
			"1️⃣ Выберите уровень:",
			model.LevelNames())
	})
}

// ChooseLevel validates the picked level against the catalog.
func (h *AdminHandler) ChooseLevel(ctx context.Context, upd telegram.Update, rec session.Record) {
	if _, err := h.catalog.LevelByName(ctx, upd.Text); err != nil {
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "❌ Неверный уровень. Выберите из списка.")
		})
		return
	}

	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepChooseSection),
		session.WithData(mergeData(rec.Data, session.KeyLevelName, upd.Text)))

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageWithKeyboard(upd.ChatID,
			"2️⃣ Выберите раздел:",
			model.SectionNames())
	})
}

// ChooseSection validates the picked section.
func (h *AdminHandler) ChooseSection(ctx context.Context, upd telegram.Update, rec session.Record) {
	if _, err := h.catalog.SectionByName(ctx, upd.Text); err != nil {
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "❌ Неверный раздел. Выберите из списка.")
		})
		return
	}

	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepTaskNumber),
		session.WithData(mergeData(rec.Data, session.KeySectionName, upd.Text)))

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageRemoveKeyboard(upd.ChatID,
			"3️⃣ Введите номер задания (целое число ≥ 1):")
	})
}

// TaskNumber parses and stores the task number.
func (h *AdminHandler) TaskNumber(ctx context.Context, upd telegram.Update, rec session.Record) {
	n, err := strconv.Atoi(upd.Text)
	if err != nil || n < 1 {
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID, "❌ Некорректный номер. Введите целое число ≥ 1.")
		})
		return
	}

	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepPhoto),
		session.WithData(mergeData(rec.Data, session.KeyTaskNumber, strconv.Itoa(n))))

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessage(upd.ChatID,
			"4️⃣ Отправьте фото задания (в сжатом виде, НЕ документом):")
	})
}

// Photo stores the photo reference; listening tasks branch to the audio
// step, everything else goes straight to the comment.
func (h *AdminHandler) Photo(ctx context.Context, upd telegram.Update, rec session.Record) {
	data := mergeData(rec.Data, session.KeyPhotoFileID, upd.PhotoFileID)

	if data[session.KeySectionName] == model.SectionListening {
		h.sessions.Set(upd.UserID,
			session.WithStep(session.StepAudio),
			session.WithData(data))
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID,
				"5️⃣ Отправьте аудиофайл (голосовое сообщение или MP3):")
		})
		return
	}

	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepComment),
		session.WithData(data))
	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessage(upd.ChatID, "5️⃣ Введите текст комментария к заданию:")
	})
}

// Audio stores the audio reference for listening tasks.
func (h *AdminHandler) Audio(ctx context.Context, upd telegram.Update, rec session.Record) {
	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepComment),
		session.WithData(mergeData(rec.Data, session.KeyAudioFileID, upd.AudioFileID)))

	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessage(upd.ChatID, "6️⃣ Введите текст комментария к заданию:")
	})
}

// Comment stores the prompt text; writing tasks have no expected answer and
// jump straight to the preview.
func (h *AdminHandler) Comment(ctx context.Context, upd telegram.Update, rec session.Record) {
	data := mergeData(rec.Data, session.KeyComment, upd.Text)

	if data[session.KeySectionName] == model.SectionWriting {
		h.sessions.Set(upd.UserID,
			session.WithStep(session.StepConfirm),
			session.WithData(data))
		h.showPreview(upd.ChatID, data)
		return
	}

	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepCorrectAnswer),
		session.WithData(data))
	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessage(upd.ChatID,
			"7️⃣ Введите правильный ответ (точно так, как должен ввести пользователь):\n"+
				"Например: «3» или «北京» или «他去了学校»")
	})
}

// CorrectAnswer stores the expected answer and shows the preview.
func (h *AdminHandler) CorrectAnswer(ctx context.Context, upd telegram.Update, rec session.Record) {
	data := mergeData(rec.Data, session.KeyCorrectAnswer, upd.Text)

	h.sessions.Set(upd.UserID,
		session.WithStep(session.StepConfirm),
		session.WithData(data))
	h.showPreview(upd.ChatID, data)
}

// ConfirmOrCancel finishes the flow. On cancel the record is cleared and no
// task row is written. On a save failure the draft stays in place so the
// admin can retry confirm instead of redoing every step.
func (h *AdminHandler) ConfirmOrCancel(ctx context.Context, upd telegram.Update, rec session.Record) {
	if upd.Text == BtnCancel {
		h.sessions.Clear(upd.UserID)
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessageWithKeyboard(upd.ChatID,
				"↩️ Добавление отменено.",
				[]string{"/admin"})
		})
		return
	}

	draft := draftFromData(rec.Data)
	task, err := h.catalog.CreateTask(ctx, draft)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", upd.UserID).Msg("Task save failed")
		h.reply(upd.ChatID, func() error {
			return h.sender.SendMessage(upd.ChatID,
				"❌ Ошибка при сохранении: "+truncate(err.Error(), saveErrorLimit))
		})
		return
	}

	h.sessions.Clear(upd.UserID)
	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessageWithKeyboard(upd.ChatID,
			"✅ Задание добавлено!\n\n"+
				"Уровень: "+task.LevelName+"\n"+
				"Раздел: "+task.SectionName+"\n"+
				"Номер: "+strconv.Itoa(task.TaskNumber),
			[]string{"/admin"})
	})
}

// UnexpectedInput is the typed-mismatch fallback: it fires only when no
// correctly-typed transition matched the current media step.
func (h *AdminHandler) UnexpectedInput(ctx context.Context, upd telegram.Update, rec session.Record) {
	var hint string
	switch rec.Step {
	case session.StepPhoto:
		hint = "⚠️ Ожидалось фото."
	case session.StepAudio:
		hint = "⚠️ Ожидался аудиофайл."
	case session.StepComment, session.StepCorrectAnswer:
		hint = "⚠️ Ожидался текст."
	default:
		return
	}
	h.reply(upd.ChatID, func() error {
		return h.sender.SendMessage(upd.ChatID, hint)
	})
}

func (h *AdminHandler) showPreview(chatID int64, data map[string]string) {
	preview := "🔍 Предпросмотр задания\n\n" +
		"📌 Уровень: " + data[session.KeyLevelName] + "\n" +
		"📚 Раздел: " + data[session.KeySectionName] + "\n" +
		"🔢 Номер: " + data[session.KeyTaskNumber] + "\n" +
		"💬 Комментарий: " + data[session.KeyComment] + "\n"
	if data[session.KeySectionName] != model.SectionWriting {
		preview += "✅ Правильный ответ: " + data[session.KeyCorrectAnswer] + "\n"
	}

	h.reply(chatID, func() error {
		return h.sender.SendMessageWithKeyboard(chatID, preview,
			[]string{BtnConfirm, BtnCancel})
	})
}

func draftFromData(data map[string]string) *model.TaskDraft {
	n, _ := strconv.Atoi(data[session.KeyTaskNumber])
	return &model.TaskDraft{
		LevelName:     data[session.KeyLevelName],
		SectionName:   data[session.KeySectionName],
		TaskNumber:    n,
		PhotoFileID:   data[session.KeyPhotoFileID],
		AudioFileID:   data[session.KeyAudioFileID],
		Comment:       data[session.KeyComment],
		CorrectAnswer: data[session.KeyCorrectAnswer],
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func (h *AdminHandler) reply(chatID int64, send func() error) {
	if err := send(); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("Reply delivery failed")
	}
}
