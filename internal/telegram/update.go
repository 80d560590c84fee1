package telegram

// Update is the transport-independent view of one incoming message that the
// router and handlers consume. Exactly one content field is meaningful:
// Text (possibly a command), PhotoFileID, or AudioFileID.
type Update struct {
	UserID int64
	ChatID int64
	// Command is the slash command name without the slash ("start",
	// "admin"), or empty for a plain message.
	Command string
	// Text is the message text, empty for media messages.
	Text string
	// PhotoFileID is the file id of the largest photo size, if any.
	PhotoFileID string
	// AudioFileID is the file id of an audio track or voice note, if any.
	AudioFileID string
}

// HasText reports whether the update carries plain (non-command) text.
func (u Update) HasText() bool {
	return u.Command == "" && u.Text != ""
}

// HasPhoto reports whether the update carries a photo.
func (u Update) HasPhoto() bool {
	return u.PhotoFileID != ""
}

// HasAudio reports whether the update carries audio or a voice note.
func (u Update) HasAudio() bool {
	return u.AudioFileID != ""
}
