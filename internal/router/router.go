// Package router is the conversational state machine made explicit: a
// closed, ordered table of transitions keyed by (mode, step, trigger).
// Each incoming update is matched against the table exactly once; the first
// transition whose guards all hold handles it. Updates matching nothing are
// dropped silently, except the admin typed-mismatch fallback which is
// declared last so it only fires on a true mismatch.
package router

import (
	"context"

	"github.com/Poe1999/TgBot.China/internal/session"
	"github.com/Poe1999/TgBot.China/internal/telegram"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ModeGuard restricts a transition to records in a given mode.
type ModeGuard int

const (
	// AnyMode matches regardless of the record's mode.
	AnyMode ModeGuard = iota
	// UserMode matches records whose mode is absent or "user".
	UserMode
	// AdminMode matches records whose mode is "admin". Transitions
	// guarded by AdminMode additionally require allow-list membership.
	AdminMode
)

// Trigger matches the content of an update. Fields combine as alternatives
// for text (Command / Texts / Pattern / AnyText) and content types; a zero
// Trigger matches nothing, Anything matches everything.
type Trigger struct {
	// Command matches a slash command by name ("start", "admin").
	Command string
	// Texts matches exact message text against any listed label.
	Texts []string
	// Pattern matches message text by predicate.
	Pattern func(text string) bool
	// AnyText matches any non-command, non-empty text.
	AnyText bool
	// Photo matches photo content.
	Photo bool
	// Audio matches audio or voice content.
	Audio bool
	// Anything matches every update. Used only by the mismatch fallback.
	Anything bool
}

// Matches reports whether the trigger accepts the update's content.
func (t Trigger) Matches(upd telegram.Update) bool {
	if t.Anything {
		return true
	}
	if t.Command != "" && upd.Command == t.Command {
		return true
	}
	if upd.HasText() {
		for _, label := range t.Texts {
			if upd.Text == label {
				return true
			}
		}
		if t.Pattern != nil && t.Pattern(upd.Text) {
			return true
		}
		if t.AnyText {
			return true
		}
	}
	if t.Photo && upd.HasPhoto() {
		return true
	}
	if t.Audio && upd.HasAudio() {
		return true
	}
	return false
}

// HandlerFunc executes one transition. rec is the sender's session record as
// loaded at dispatch time.
type HandlerFunc func(ctx context.Context, upd telegram.Update, rec session.Record)

// Transition is one row of the state machine's transition table.
type Transition struct {
	// Name identifies the transition in logs and tests.
	Name string
	// Mode guards on the record's mode.
	Mode ModeGuard
	// Steps guards on the record's step; nil means any step.
	Steps []session.Step
	// Trigger guards on the update's content.
	Trigger Trigger
	// Handle runs the transition.
	Handle HandlerFunc
}

func (t Transition) stepMatches(step session.Step) bool {
	if t.Steps == nil {
		return true
	}
	for _, s := range t.Steps {
		if s == step {
			return true
		}
	}
	return false
}

// Router dispatches updates against the transition table.
type Router struct {
	table    []Transition
	sessions *session.Store
	admins   map[int64]struct{}
	log      zerolog.Logger
}

// New creates a Router over the given table. adminIDs is the allow-list
// gating AdminMode transitions.
func New(table []Transition, sessions *session.Store, adminIDs []int64, log zerolog.Logger) *Router {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Router{
		table:    table,
		sessions: sessions,
		admins:   admins,
		log:      log.With().Str("component", "router").Logger(),
	}
}

// Table exposes the transition table for enumeration in tests.
func (r *Router) Table() []Transition {
	return r.table
}

// Dispatch routes one update to the first matching transition and runs it.
// It returns the name of the transition that ran, or "" if none matched.
// Safe for concurrent calls: the session record is read once under the
// store's lock and handler mutations go back through the store.
func (r *Router) Dispatch(ctx context.Context, upd telegram.Update) (name string) {
	traceID := uuid.New().String()
	rec := r.sessions.Get(upd.UserID)

	t := r.match(rec, upd)
	if t == nil {
		r.log.Debug().
			Str("trace_id", traceID).
			Int64("user_id", upd.UserID).
			Str("mode", string(rec.Mode)).
			Str("step", string(rec.Step)).
			Msg("Update matched no transition")
		return ""
	}

	log := r.log.With().
		Str("trace_id", traceID).
		Int64("user_id", upd.UserID).
		Str("transition", t.Name).
		Logger()
	log.Debug().
		Str("mode", string(rec.Mode)).
		Str("step", string(rec.Step)).
		Msg("Dispatching update")

	// name is set before the handler runs so a recovered panic still
	// reports which transition it was.
	name = t.Name
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Handler panicked")
		}
	}()
	t.Handle(ctx, upd, rec)
	return name
}

func (r *Router) match(rec session.Record, upd telegram.Update) *Transition {
	for i := range r.table {
		t := &r.table[i]
		switch t.Mode {
		case UserMode:
			if !rec.IsUser() {
				continue
			}
		case AdminMode:
			if !rec.IsAdmin() {
				continue
			}
			if _, ok := r.admins[upd.UserID]; !ok {
				continue
			}
		}
		if !t.stepMatches(rec.Step) {
			continue
		}
		if !t.Trigger.Matches(upd) {
			continue
		}
		return t
	}
	return nil
}
