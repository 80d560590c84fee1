package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const updateTimeoutSeconds = 30

// Bot wraps the Telegram Bot API as a Sender plus an update source.
type Bot struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewBot authorizes against the Telegram Bot API.
func NewBot(token string, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")
	return &Bot{
		api: api,
		log: log.With().Str("component", "telegram_bot").Logger(),
	}, nil
}

// Updates starts long polling and returns a channel of converted updates.
// The channel closes when ctx is cancelled. Non-message updates and
// messages without a usable content type are dropped.
func (b *Bot) Updates(ctx context.Context) <-chan Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeoutSeconds

	raw := b.api.GetUpdatesChan(cfg)
	out := make(chan Update)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				return
			case u, ok := <-raw:
				if !ok {
					return
				}
				upd, ok := convertUpdate(u)
				if !ok {
					continue
				}
				select {
				case out <- upd:
				case <-ctx.Done():
					b.api.StopReceivingUpdates()
					return
				}
			}
		}
	}()

	return out
}

func convertUpdate(u tgbotapi.Update) (Update, bool) {
	m := u.Message
	if m == nil || m.From == nil {
		return Update{}, false
	}

	upd := Update{
		UserID: m.From.ID,
		ChatID: m.Chat.ID,
	}

	switch {
	case m.IsCommand():
		upd.Command = m.Command()
	case len(m.Photo) > 0:
		upd.PhotoFileID = m.Photo[len(m.Photo)-1].FileID
	case m.Voice != nil:
		upd.AudioFileID = m.Voice.FileID
	case m.Audio != nil:
		upd.AudioFileID = m.Audio.FileID
	case m.Text != "":
		upd.Text = m.Text
	default:
		return Update{}, false
	}

	return upd, true
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	return b.send(msg)
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, rows ...[]string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = buildKeyboard(rows)
	return b.send(msg)
}

func (b *Bot) SendMessageRemoveKeyboard(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	return b.send(msg)
}

func (b *Bot) SendPhoto(chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	_, err := b.api.Send(photo)
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func (b *Bot) SendAudio(chatID int64, fileID, caption string) error {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileID(fileID))
	audio.Caption = caption
	_, err := b.api.Send(audio)
	if err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

func (b *Bot) send(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// buildKeyboard turns label rows into a resizable one-time reply keyboard.
func buildKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	kbRows := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		kbRows = append(kbRows, buttons)
	}
	kb := tgbotapi.NewReplyKeyboard(kbRows...)
	kb.OneTimeKeyboard = true
	return kb
}
