// Package dialogue is the per-user state machine behind every conversation.
// One turn comes in (text, transcribed voice, or a button press), the
// checkpointed state is loaded, exactly one node advances it, and the new
// state plus a rendered reply go back out. State is only saved when the turn
// fully succeeds; a failed external call leaves the checkpoint untouched so
// nothing the user already provided is lost.
package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yadbot/yadbot/internal/config"
	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/internal/nlu"
	"github.com/yadbot/yadbot/types"
)

// Extractor is the single NLU dependency of the engine.
type Extractor interface {
	Extract(ctx context.Context, utterance string, history []types.Turn, known nlu.Params) (nlu.Extraction, error)
}

type Engine struct {
	states    types.StateStore
	reminders types.ReminderStore
	users     types.UserStore
	extractor Extractor
	cfg       *config.Config
	log       *slog.Logger

	now    func() time.Time
	newKey func() string
}

func New(states types.StateStore, reminders types.ReminderStore, users types.UserStore, extractor Extractor, cfg *config.Config, log *slog.Logger) *Engine {
	return &Engine{
		states:    states,
		reminders: reminders,
		users:     users,
		extractor: extractor,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		newKey:    uuid.NewString,
	}
}

// Process advances the dialogue by one user text turn and returns the reply.
// A panic anywhere inside a node resets the user to idle instead of wedging
// them in a broken flow.
func (e *Engine) Process(ctx context.Context, user *types.User, text string) (msg format.Message) {
	p := format.PrefsFor(user)
	st := e.loadState(ctx, user)

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("dialogue turn panicked", slog.Int64("user_id", user.ID), slog.Any("panic", r))
			st.Reset()
			e.saveState(ctx, st)
			msg = format.Text(messages.ErrorDefault(p.Lang))
		}
	}()

	msg, keep := e.step(ctx, user, st, p, text)
	if keep {
		st.AppendTurn("user", text)
		st.AppendTurn("bot", msg.Text)
		e.saveState(ctx, st)
	}
	return msg
}

// HandleButton advances the dialogue by one inline-button press. Buttons go
// through the same nodes as text so the two input paths cannot diverge.
func (e *Engine) HandleButton(ctx context.Context, user *types.User, data string) (msg format.Message) {
	p := format.PrefsFor(user)
	st := e.loadState(ctx, user)

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("dialogue button press panicked", slog.Int64("user_id", user.ID), slog.Any("panic", r))
			st.Reset()
			e.saveState(ctx, st)
			msg = format.Text(messages.ErrorDefault(p.Lang))
		}
	}()

	msg, keep := e.stepButton(ctx, user, st, p, data)
	if keep {
		e.saveState(ctx, st)
	}
	return msg
}

// Cancel aborts the in-progress sub-flow (the /cancel command).
func (e *Engine) Cancel(ctx context.Context, user *types.User) format.Message {
	p := format.PrefsFor(user)
	st := e.loadState(ctx, user)
	if !st.InFlow() {
		return format.Text(messages.NothingToCancel(p.Lang))
	}
	st.Reset()
	e.saveState(ctx, st)
	return format.Text(messages.Cancelled(p.Lang))
}

// List shows the first page of active reminders (the /list command). Viewing
// never blocks other flows, so any in-progress gathering is dropped first.
func (e *Engine) List(ctx context.Context, user *types.User) format.Message {
	p := format.PrefsFor(user)
	st := e.loadState(ctx, user)
	st.Reset()
	msg, keep := e.listPage(ctx, user, st, p, 0, "")
	if keep {
		e.saveState(ctx, st)
	}
	return msg
}

func (e *Engine) loadState(ctx context.Context, user *types.User) *types.DialogueState {
	st, err := e.states.GetState(ctx, user.ID)
	if err != nil {
		e.log.Warn("loading dialogue state failed, starting fresh", slog.Int64("user_id", user.ID), sl.Err(err))
	}
	if st == nil {
		st = &types.DialogueState{UserID: user.ID, ChatID: user.ChatID}
	}
	return st
}

func (e *Engine) saveState(ctx context.Context, st *types.DialogueState) {
	st.UpdatedAt = e.now()
	if err := e.states.SaveState(ctx, st); err != nil {
		e.log.Error("saving dialogue state failed", slog.Int64("user_id", st.UserID), sl.Err(err))
	}
}

// extract runs the NLU call with one automatic retry on transient failure.
func (e *Engine) extract(ctx context.Context, st *types.DialogueState, text string) (nlu.Extraction, error) {
	known := knownParams(st)
	ext, err := e.extractor.Extract(ctx, text, st.History, known)
	if err == nil {
		return ext, nil
	}
	if _, transient := transientErr(err); transient {
		ext, err = e.extractor.Extract(ctx, text, st.History, known)
	}
	return ext, err
}

func transientErr(err error) (*nlu.TransientExtractionError, bool) {
	var te *nlu.TransientExtractionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func malformedErr(err error) bool {
	var me *nlu.MalformedResponseError
	return errors.As(err, &me)
}

func knownParams(st *types.DialogueState) nlu.Params {
	return nlu.Params{
		Task:            st.Params.Task,
		DatePhrase:      st.Params.DatePhrase,
		TimePhrase:      st.Params.TimePhrase,
		TargetReference: st.Params.TargetReference,
	}
}

func mergeContribution(st *types.DialogueState, contributed nlu.Params) {
	if contributed.Task != "" {
		st.Params.Task = contributed.Task
	}
	if contributed.DatePhrase != "" {
		st.Params.DatePhrase = contributed.DatePhrase
	}
	if contributed.TimePhrase != "" {
		st.Params.TimePhrase = contributed.TimePhrase
	}
	if contributed.RecurrencePhrase != "" {
		st.Params.Recurrence = nlu.ParseRecurrence(contributed.RecurrencePhrase)
	}
	if contributed.TargetReference != "" {
		st.Params.TargetReference = contributed.TargetReference
	}
}

func contributedNothing(p nlu.Params) bool {
	return p.Task == "" && p.DatePhrase == "" && p.TimePhrase == "" &&
		p.RecurrencePhrase == "" && p.TargetReference == ""
}

var yesWords = []string{"yes", "y", "yeah", "yep", "ok", "okay", "sure", "confirm", "بله", "اره", "آره", "باشه", "تایید", "تأیید", "حتما", "حتماً"}

var noWords = []string{"no", "n", "nope", "نه", "خیر", "نخیر"}

var cancelWords = []string{"cancel", "لغو", "لغو کن", "بیخیال", "بی خیال", "بی‌خیال", "ولش کن"}

func matchWord(text string, words []string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, ".!؟?")
	for _, w := range words {
		if t == w {
			return true
		}
	}
	return false
}

// amPmFromText recognizes a direct answer to the AM/PM question.
func amPmFromText(text string) (pm bool, ok bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	switch t {
	case "am", "a.m.", "morning", "صبح":
		return false, true
	case "pm", "p.m.", "evening", "night", "afternoon", "شب", "عصر", "بعد از ظهر", "غروب":
		return true, true
	}
	return false, false
}

func flowIntent(f types.FlowKind) nlu.Intent {
	switch f {
	case types.FlowCreating:
		return nlu.IntentCreate
	case types.FlowEditing:
		return nlu.IntentEdit
	case types.FlowDeleting:
		return nlu.IntentDelete
	case types.FlowViewing:
		return nlu.IntentView
	default:
		return nlu.IntentOther
	}
}
