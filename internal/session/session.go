// Package session holds the per-user conversational state driving the bot's
// state machine. It is the only shared mutable state in the process: every
// incoming update consults it to decide which handler applies, and the
// chosen handler mutates it to arm the next step. Records are process-local
// and deliberately do not survive a restart.
package session

import "sync"

// Mode is the top-level behavior partition of a user.
type Mode string

const (
	ModeUser  Mode = "user"
	ModeAdmin Mode = "admin"
)

// Step names a position within the active multi-message flow. An empty step
// means the user is at the top-level menu of their mode.
type Step string

const (
	StepNone Step = ""

	// Learner flow.
	StepAwaitingAnswer Step = "awaiting_answer"

	// Admin authoring flow.
	StepMainMenu      Step = "main_menu"
	StepChooseLevel   Step = "choose_level"
	StepChooseSection Step = "choose_section"
	StepTaskNumber    Step = "task_number"
	StepPhoto         Step = "photo"
	StepAudio         Step = "audio"
	StepComment       Step = "comment"
	StepCorrectAnswer Step = "correct_answer"
	StepConfirm       Step = "confirm"
)

// Data keys used by the flows.
const (
	KeyLevelID       = "level_id"
	KeyLevelName     = "level_name"
	KeySectionID     = "section_id"
	KeySectionName   = "section_name"
	KeyCurrentTaskID = "current_task_id"
	KeyTaskNumber    = "task_number"
	KeyPhotoFileID   = "photo_file_id"
	KeyAudioFileID   = "audio_file_id"
	KeyComment       = "comment"
	KeyCorrectAnswer = "correct_answer"
)

// Record is the mutable state bag of one user. The zero value is the default
// record: user mode, no step, no data.
type Record struct {
	UserID int64
	Mode   Mode
	Step   Step
	Data   map[string]string
}

// IsUser reports whether the record is in user mode. An absent mode counts
// as user mode.
func (r Record) IsUser() bool {
	return r.Mode == "" || r.Mode == ModeUser
}

// IsAdmin reports whether the record is in admin mode.
func (r Record) IsAdmin() bool {
	return r.Mode == ModeAdmin
}

// DataValue returns the named data field, or "" if absent.
func (r Record) DataValue(key string) string {
	return r.Data[key]
}

// Field is a single named field mutation applied by Store.Set.
type Field func(*Record)

// WithMode sets the record's mode.
func WithMode(m Mode) Field {
	return func(r *Record) { r.Mode = m }
}

// WithStep sets the record's step.
func WithStep(s Step) Field {
	return func(r *Record) { r.Step = s }
}

// WithData replaces the record's data map wholesale. The data field is
// atomic: setting it never merges with previously stored data.
func WithData(data map[string]string) Field {
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}
	return func(r *Record) { r.Data = copied }
}

// Store is a concurrency-safe table of per-user session records.
// A single mutex covers reads and writes so that a Set call's
// read-modify-write is atomic: two concurrent Sets for the same user
// serialize instead of losing fields.
type Store struct {
	mu      sync.Mutex
	records map[int64]*Record
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{records: make(map[int64]*Record)}
}

// Get returns a copy of the user's current record, or the default record if
// none exists. It never creates a record as a side effect of reading.
func (s *Store) Get(userID int64) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return Record{UserID: userID}
	}

	out := Record{UserID: userID, Mode: rec.Mode, Step: rec.Step}
	if rec.Data != nil {
		out.Data = make(map[string]string, len(rec.Data))
		for k, v := range rec.Data {
			out.Data[k] = v
		}
	}
	return out
}

// Set merges the given fields into the user's record, creating the record if
// absent. Each named field is replaced by its new value; fields not named
// are untouched. The entire call runs under the store lock.
func (s *Store) Set(userID int64, fields ...Field) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		rec = &Record{UserID: userID}
		s.records[userID] = rec
	}
	for _, f := range fields {
		f(rec)
	}
}

// Clear deletes the user's record entirely, returning them to the implicit
// default state.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
}

// IsUserMode reports whether the user's mode is absent or "user".
func (s *Store) IsUserMode(userID int64) bool {
	return s.Get(userID).IsUser()
}

// IsAdminMode reports whether the user's mode is "admin".
func (s *Store) IsAdminMode(userID int64) bool {
	return s.Get(userID).IsAdmin()
}

// Len returns the number of live session records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
