package router

import (
	"github.com/Poe1999/TgBot.China/internal/handler"
	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/Poe1999/TgBot.China/internal/session"
	"github.com/rs/zerolog"
)

// Handlers groups the flow handlers the table binds to.
type Handlers struct {
	User  *handler.UserHandler
	Admin *handler.AdminHandler
}

// Setup builds the full transition table and wraps it in a Router.
//
// Ordering rules encoded here:
//   - commands first, so /start resets from any state;
//   - the admin mismatch fallback comes after every correctly-typed admin
//     transition, so it only fires on a true content-type mismatch;
//   - the learner's awaiting_answer transition precedes the navigation and
//     menu transitions, so while an answer is pending every text counts as
//     the answer.
func Setup(sessions *session.Store, adminIDs []int64, h *Handlers, log zerolog.Logger) *Router {
	table := []Transition{
		// ─── Commands (any mode, any step) ─────────────────────────
		{
			Name:    "start",
			Mode:    AnyMode,
			Trigger: Trigger{Command: "start"},
			Handle:  h.User.Start,
		},
		{
			// Authorization is checked inside Enter so that denied
			// users get the fixed rejection message.
			Name:    "admin_enter",
			Mode:    AnyMode,
			Trigger: Trigger{Command: "admin"},
			Handle:  h.Admin.Enter,
		},

		// ─── Admin authoring flow ──────────────────────────────────
		{
			Name:    "admin_exit",
			Mode:    AdminMode,
			Trigger: Trigger{Texts: []string{handler.BtnExit}},
			Handle:  h.Admin.Exit,
		},
		{
			Name:    "admin_add_task",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepMainMenu},
			Trigger: Trigger{Texts: []string{handler.BtnAddTask}},
			Handle:  h.Admin.BeginAuthoring,
		},
		{
			Name:    "admin_choose_level",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepChooseLevel},
			Trigger: Trigger{AnyText: true},
			Handle:  h.Admin.ChooseLevel,
		},
		{
			Name:    "admin_choose_section",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepChooseSection},
			Trigger: Trigger{AnyText: true},
			Handle:  h.Admin.ChooseSection,
		},
		{
			Name:    "admin_task_number",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepTaskNumber},
			Trigger: Trigger{AnyText: true},
			Handle:  h.Admin.TaskNumber,
		},
		{
			Name:    "admin_photo",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepPhoto},
			Trigger: Trigger{Photo: true},
			Handle:  h.Admin.Photo,
		},
		{
			Name:    "admin_audio",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepAudio},
			Trigger: Trigger{Audio: true},
			Handle:  h.Admin.Audio,
		},
		{
			Name:    "admin_comment",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepComment},
			Trigger: Trigger{AnyText: true},
			Handle:  h.Admin.Comment,
		},
		{
			Name:    "admin_correct_answer",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepCorrectAnswer},
			Trigger: Trigger{AnyText: true},
			Handle:  h.Admin.CorrectAnswer,
		},
		{
			Name:    "admin_confirm",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepConfirm},
			Trigger: Trigger{Texts: []string{handler.BtnConfirm, handler.BtnCancel}},
			Handle:  h.Admin.ConfirmOrCancel,
		},
		{
			// Declared last among admin transitions: fires only when
			// a media/text step got the wrong content type.
			Name:    "admin_unexpected_input",
			Mode:    AdminMode,
			Steps:   []session.Step{session.StepPhoto, session.StepAudio, session.StepComment, session.StepCorrectAnswer},
			Trigger: Trigger{Anything: true},
			Handle:  h.Admin.UnexpectedInput,
		},

		// ─── Learner flow ──────────────────────────────────────────
		{
			Name:    "user_answer",
			Mode:    UserMode,
			Steps:   []session.Step{session.StepAwaitingAnswer},
			Trigger: Trigger{AnyText: true},
			Handle:  h.User.Answer,
		},
		{
			Name:    "user_navigate",
			Mode:    UserMode,
			Trigger: Trigger{Texts: []string{handler.BtnNextTask, handler.BtnTaskList, handler.BtnHome}},
			Handle:  h.User.Navigate,
		},
		{
			Name:    "user_back_to_levels",
			Mode:    UserMode,
			Trigger: Trigger{Texts: []string{handler.BtnBackToLevels}},
			Handle:  h.User.Start,
		},
		{
			Name:    "user_choose_level",
			Mode:    UserMode,
			Trigger: Trigger{Texts: model.LevelNames()},
			Handle:  h.User.ChooseLevel,
		},
		{
			Name:    "user_choose_section",
			Mode:    UserMode,
			Trigger: Trigger{Texts: model.SectionNames()},
			Handle:  h.User.ChooseSection,
		},
		{
			Name:    "user_pick_task",
			Mode:    UserMode,
			Trigger: Trigger{Pattern: handler.IsTaskButton},
			Handle:  h.User.PickTask,
		},
	}

	return New(table, sessions, adminIDs, log)
}
