package telegram

// Sender is the outbound message surface handlers talk to. The production
// implementation is Bot; tests use a recorder fake.
type Sender interface {
	// SendMessage sends plain text, leaving any existing reply keyboard
	// in place.
	SendMessage(chatID int64, text string) error
	// SendMessageWithKeyboard sends text with a one-time reply keyboard,
	// one row per rows entry.
	SendMessageWithKeyboard(chatID int64, text string, rows ...[]string) error
	// SendMessageRemoveKeyboard sends text and removes the reply keyboard.
	SendMessageRemoveKeyboard(chatID int64, text string) error
	// SendPhoto sends a photo by Telegram file id.
	SendPhoto(chatID int64, fileID, caption string) error
	// SendAudio sends an audio track or voice note by Telegram file id.
	SendAudio(chatID int64, fileID, caption string) error
}
