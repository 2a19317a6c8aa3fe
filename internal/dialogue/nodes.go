package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/yadbot/yadbot/internal/calendar"
	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/internal/nlu"
	"github.com/yadbot/yadbot/types"
)

const (
	maxClarifyAttempts = 2
	disambiguateLimit  = 6
)

// step dispatches one text turn to the node matching the current status. The
// second return value reports whether the advanced state should be saved; it
// is false exactly when an external call failed and the turn must leave the
// checkpoint untouched.
func (e *Engine) step(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, text string) (format.Message, bool) {
	if matchWord(text, cancelWords) {
		return e.cancelFlow(st, p), true
	}
	if st.PendingSwitch != "" {
		return e.stepAbandonGate(ctx, user, st, p, text)
	}

	switch st.Status {
	case types.StatusAwaitingClarify:
		return e.stepClarify(ctx, user, st, p, text)
	case types.StatusAwaitingConfirmation:
		return e.stepConfirm(ctx, user, st, p, text)
	default:
		return e.stepRoute(ctx, user, st, p, text)
	}
}

func (e *Engine) cancelFlow(st *types.DialogueState, p format.Prefs) format.Message {
	if !st.InFlow() {
		return format.Text(messages.NothingToCancel(p.Lang))
	}
	st.Reset()
	return format.Text(messages.Cancelled(p.Lang))
}

// stepAbandonGate resolves the yes/no question guarding an unconfirmed
// destructive flow. Yes drops the old flow and replays the held utterance;
// anything else keeps the pending confirmation on screen.
func (e *Engine) stepAbandonGate(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, text string) (format.Message, bool) {
	if matchWord(text, yesWords) {
		held := st.PendingSwitch
		st.Reset()
		return e.stepRoute(ctx, user, st, p, held)
	}
	st.PendingSwitch = ""
	return format.Confirmation(st, p), true
}

// stepRoute classifies the utterance and either continues the current flow or
// starts a new one. This is the entry node for idle and gathering states.
func (e *Engine) stepRoute(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, text string) (format.Message, bool) {
	ext, err := e.extract(ctx, st, text)
	if _, ok := transientErr(err); ok {
		e.log.Warn("extraction unavailable", slog.Int64("user_id", user.ID), sl.Err(err))
		return format.Text(messages.RetryPrompt(p.Lang)), false
	}
	if malformedErr(err) {
		return format.Text(messages.AskRephrase(p.Lang)), true
	}
	if err != nil {
		e.log.Error("extraction failed", slog.Int64("user_id", user.ID), sl.Err(err))
		return format.Text(messages.ErrorDefault(p.Lang)), true
	}

	// A viewing "flow" is just a paging cursor; any new request replaces it.
	if st.Flow == types.FlowViewing {
		st.Reset()
	}

	if st.InFlow() {
		current := flowIntent(st.Flow)
		switch {
		case ext.Intent == current || ext.Intent == nlu.IntentOther:
			mergeContribution(st, ext.Params)
			return e.advanceFlow(ctx, user, st, p, ext.Params)
		default:
			if st.HasDestructivePending() {
				st.PendingSwitch = text
				return format.AbandonConfirm(p), true
			}
			st.Reset()
		}
	}

	switch ext.Intent {
	case nlu.IntentCreate:
		st.Flow = types.FlowCreating
		st.Status = types.StatusGathering
		mergeContribution(st, ext.Params)
		return e.advanceFlow(ctx, user, st, p, ext.Params)
	case nlu.IntentEdit:
		st.Flow = types.FlowEditing
		st.Status = types.StatusGathering
		mergeContribution(st, ext.Params)
		return e.advanceFlow(ctx, user, st, p, ext.Params)
	case nlu.IntentDelete:
		st.Flow = types.FlowDeleting
		st.Status = types.StatusGathering
		mergeContribution(st, ext.Params)
		return e.advanceFlow(ctx, user, st, p, ext.Params)
	case nlu.IntentView:
		st.Reset()
		return e.listPage(ctx, user, st, p, 0, ext.Params.TargetReference)
	default:
		if ext.NeedsClarification {
			return format.Text(messages.AskRephrase(p.Lang)), true
		}
		return format.Text(messages.Help(p.Lang)), true
	}
}

// stepClarify handles the answer to a pending clarification question.
func (e *Engine) stepClarify(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, text string) (format.Message, bool) {
	switch st.PendingClarify {
	case types.ClarifyAmPm:
		if pm, ok := amPmFromText(text); ok {
			return e.finishAmPm(st, p, pm), true
		}
		return e.clarifyMiss(st, p), true
	case types.ClarifyTarget:
		// A bare number picks from the candidate list.
		if idx, err := strconv.Atoi(strings.TrimSpace(persianDigits(text))); err == nil {
			if idx >= 1 && idx <= len(st.Candidates) {
				return e.selectTargetByID(ctx, user, st, p, st.Candidates[idx-1])
			}
			return e.clarifyMiss(st, p), true
		}
		return e.stepRoute(ctx, user, st, p, text)
	default:
		return e.stepRoute(ctx, user, st, p, text)
	}
}

var persianDigitReplacer = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

func persianDigits(s string) string {
	return persianDigitReplacer.Replace(s)
}

// clarifyMiss counts a failed clarification attempt and either re-asks or
// offers to give up.
func (e *Engine) clarifyMiss(st *types.DialogueState, p format.Prefs) format.Message {
	st.ClarifyAttempts++
	if st.ClarifyAttempts >= maxClarifyAttempts {
		return format.ClarifyGiveUp(p)
	}
	return e.askPending(st, p)
}

// askPending re-renders the question for the currently pending field.
func (e *Engine) askPending(st *types.DialogueState, p format.Prefs) format.Message {
	switch st.PendingClarify {
	case types.ClarifyTask:
		return format.Text(messages.AskTask(p.Lang))
	case types.ClarifyDate:
		return format.Text(messages.AskDate(p.Lang))
	case types.ClarifyTime:
		return format.Text(messages.AskTime(p.Lang))
	case types.ClarifyAmPm:
		return format.AmPmQuestion(e.ambiguousHour(st, p), p)
	case types.ClarifyTarget:
		return format.Text(messages.AskTarget(p.Lang))
	case types.ClarifyChange:
		return format.Text(messages.AskChange(p.Lang))
	default:
		return format.Text(messages.AskRephrase(p.Lang))
	}
}

func (e *Engine) ambiguousHour(st *types.DialogueState, p format.Prefs) int {
	if st.Params.AmbAM == nil {
		return 0
	}
	h := st.Params.AmbAM.In(p.Location).Hour() % 12
	if h == 0 {
		h = 12
	}
	return h
}

// askField moves the flow into a clarification on one field, tracking
// consecutive attempts per field.
func (e *Engine) askField(st *types.DialogueState, p format.Prefs, field types.ClarifyField) format.Message {
	if st.PendingClarify == field {
		return e.clarifyMiss(st, p)
	}
	st.PendingClarify = field
	st.ClarifyAttempts = 0
	st.Status = types.StatusGathering
	if field == types.ClarifyAmPm {
		st.Status = types.StatusAwaitingClarify
	}
	return e.askPending(st, p)
}

// finishAmPm commits the chosen reading of an ambiguous hour.
func (e *Engine) finishAmPm(st *types.DialogueState, p format.Prefs, pm bool) format.Message {
	chosen := st.Params.AmbAM
	if pm {
		chosen = st.Params.AmbPM
	}
	if chosen == nil {
		st.Reset()
		return format.Text(messages.ErrorDefault(p.Lang))
	}
	picked := *chosen
	// The chosen reading may already be behind the clock ("12 AM" said in
	// the morning); take the next occurrence.
	if !picked.After(e.now()) {
		picked = picked.AddDate(0, 0, 1)
	}
	utc := picked.UTC()
	st.Params.ResolvedUTC = &utc
	st.Params.AssumedTime = false
	// Rewrite the raw phrase in unambiguous 24h form so a later correction
	// does not re-trigger the same question.
	st.Params.TimePhrase = picked.In(p.Location).Format("15:04")
	st.Params.AmbAM = nil
	st.Params.AmbPM = nil
	e.toConfirm(st)
	return format.Confirmation(st, p)
}

// advanceFlow runs the gathering logic of the current flow after this turn's
// contribution has been merged in.
func (e *Engine) advanceFlow(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, contributed nlu.Params) (format.Message, bool) {
	switch st.Flow {
	case types.FlowCreating:
		return e.gatherCreate(user, st, p), true
	case types.FlowEditing:
		return e.gatherEdit(ctx, user, st, p, contributed)
	case types.FlowDeleting:
		return e.gatherDelete(ctx, user, st, p)
	default:
		return format.Text(messages.AskRephrase(p.Lang)), true
	}
}

// gatherCreate asks for whatever is still missing, then resolves the date and
// time and moves to confirmation.
func (e *Engine) gatherCreate(user *types.User, st *types.DialogueState, p format.Prefs) format.Message {
	if st.Params.Task == "" {
		return e.askField(st, p, types.ClarifyTask)
	}
	if st.Params.DatePhrase == "" && st.Params.TimePhrase == "" {
		return e.askField(st, p, types.ClarifyDate)
	}
	return e.resolveAndConfirm(user, st, p, st.Params.DatePhrase, st.Params.TimePhrase, false)
}

// gatherEdit resolves the target first, then gathers the change. Unmentioned
// fields keep the original reminder's values.
func (e *Engine) gatherEdit(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, contributed nlu.Params) (format.Message, bool) {
	if st.Params.TargetID == 0 {
		if st.Params.TargetReference == "" {
			return e.askField(st, p, types.ClarifyTarget), true
		}
		return e.resolveTarget(ctx, user, st, p)
	}

	if st.PendingClarify == types.ClarifyChange && contributedNothing(contributed) {
		return e.clarifyMiss(st, p), true
	}
	if st.Params.Task == "" && st.Params.DatePhrase == "" && st.Params.TimePhrase == "" {
		return e.askField(st, p, types.ClarifyChange), true
	}

	// Fill unchanged halves of the schedule from the original due instant so
	// "make it 6pm" keeps the date and "move it to Friday" keeps the time.
	datePhrase := st.Params.DatePhrase
	timePhrase := st.Params.TimePhrase
	if st.Params.ResolvedUTC != nil {
		origDate, origTime := calendar.FormatDateTime(*st.Params.ResolvedUTC, p.Calendar, p.Location)
		if datePhrase == "" {
			datePhrase = origDate
		}
		if timePhrase == "" {
			timePhrase = origTime
		}
	}
	return e.resolveAndConfirm(user, st, p, datePhrase, timePhrase, false), true
}

func (e *Engine) gatherDelete(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs) (format.Message, bool) {
	if st.Params.TargetID != 0 {
		e.toConfirm(st)
		return format.Confirmation(st, p), true
	}
	if st.Params.TargetReference == "" {
		return e.askField(st, p, types.ClarifyTarget), true
	}
	return e.resolveTarget(ctx, user, st, p)
}

// resolveTarget searches active reminders by the user's reference and either
// selects the single match, offers a pick list, or reports no match.
func (e *Engine) resolveTarget(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs) (format.Message, bool) {
	cands, err := e.reminders.FindActiveByKeyword(ctx, user.ID, st.Params.TargetReference, disambiguateLimit)
	if err != nil {
		e.log.Error("target search failed", slog.Int64("user_id", user.ID), sl.Err(err))
		return format.Text(messages.RetryPrompt(p.Lang)), false
	}
	switch len(cands) {
	case 0:
		st.Reset()
		return format.Text(messages.TargetNotFound(p.Lang)), true
	case 1:
		return e.selectTarget(user, st, p, cands[0]), true
	default:
		st.Candidates = st.Candidates[:0]
		for _, r := range cands {
			st.Candidates = append(st.Candidates, r.ID)
		}
		st.Status = types.StatusAwaitingClarify
		st.PendingClarify = types.ClarifyTarget
		st.ClarifyAttempts = 0
		return format.Disambiguation(cands, p), true
	}
}

func (e *Engine) selectTargetByID(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, id int64) (format.Message, bool) {
	r, err := e.reminders.GetReminder(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		st.Reset()
		return format.Text(messages.TargetNotFound(p.Lang)), true
	}
	if err != nil {
		e.log.Error("loading picked reminder failed", slog.Int64("reminder_id", id), sl.Err(err))
		return format.Text(messages.RetryPrompt(p.Lang)), false
	}
	if r.UserID != user.ID {
		st.Reset()
		return format.Text(messages.TargetNotFound(p.Lang)), true
	}
	return e.selectTarget(user, st, p, r), true
}

// selectTarget binds the flow to one concrete reminder. Deletes go straight
// to confirmation; edits continue gathering the change.
func (e *Engine) selectTarget(user *types.User, st *types.DialogueState, p format.Prefs, r *types.Reminder) format.Message {
	st.Params.TargetID = r.ID
	st.Candidates = nil
	st.PendingClarify = ""
	st.ClarifyAttempts = 0

	due := r.DueAt
	if st.Params.Task == "" {
		st.Params.Task = r.Task
	}
	if st.Params.ResolvedUTC == nil {
		st.Params.ResolvedUTC = &due
	}
	if st.Params.Recurrence == "" || st.Params.Recurrence == types.RecurrenceNone {
		st.Params.Recurrence = r.Recurrence
	}

	if st.Flow == types.FlowDeleting {
		e.toConfirm(st)
		return format.Confirmation(st, p)
	}

	if st.Params.DatePhrase == "" && st.Params.TimePhrase == "" && st.Params.Task == r.Task {
		return e.askField(st, p, types.ClarifyChange)
	}
	if st.Params.DatePhrase != "" || st.Params.TimePhrase != "" {
		datePhrase := st.Params.DatePhrase
		timePhrase := st.Params.TimePhrase
		origDate, origTime := calendar.FormatDateTime(r.DueAt, p.Calendar, p.Location)
		if datePhrase == "" {
			datePhrase = origDate
		}
		if timePhrase == "" {
			timePhrase = origTime
		}
		return e.resolveAndConfirm(user, st, p, datePhrase, timePhrase, false)
	}
	// Only the task text changed.
	e.toConfirm(st)
	return format.Confirmation(st, p)
}

// resolveAndConfirm runs the temporal resolver and, on success, moves the
// flow into confirmation with a full readback.
func (e *Engine) resolveAndConfirm(user *types.User, st *types.DialogueState, p format.Prefs, datePhrase, timePhrase string, allowPast bool) format.Message {
	res, err := calendar.Resolve(calendar.Request{
		DatePhrase:    datePhrase,
		TimePhrase:    timePhrase,
		Now:           e.now(),
		Calendar:      p.Calendar,
		Location:      p.Location,
		DefaultHour:   e.cfg.DefaultHour,
		DefaultMinute: e.cfg.DefaultMinute,
		AllowPast:     allowPast,
	})

	var amb *calendar.AmbiguityError
	if errors.As(err, &amb) {
		am, pm := amb.AM, amb.PM
		st.Params.AmbAM = &am
		st.Params.AmbPM = &pm
		st.Status = types.StatusAwaitingClarify
		st.PendingClarify = types.ClarifyAmPm
		st.ClarifyAttempts = 0
		return format.AmPmQuestion(e.ambiguousHour(st, p), p)
	}

	var pe *calendar.ParseError
	if errors.As(err, &pe) {
		field := types.ClarifyDate
		if pe.Field == calendar.FieldTime {
			field = types.ClarifyTime
			st.Params.TimePhrase = ""
		} else {
			st.Params.DatePhrase = ""
		}
		return e.askField(st, p, field)
	}
	if err != nil {
		e.log.Error("temporal resolution failed", sl.Err(err))
		return format.Text(messages.ErrorDefault(p.Lang))
	}

	st.Params.ResolvedUTC = &res.UTC
	st.Params.AssumedTime = res.AssumedDefaultTime
	e.toConfirm(st)
	return format.Confirmation(st, p)
}

// toConfirm enters confirmation and mints the idempotency key that every
// commit attempt of this flow will reuse.
func (e *Engine) toConfirm(st *types.DialogueState) {
	st.Status = types.StatusAwaitingConfirmation
	st.PendingClarify = ""
	st.ClarifyAttempts = 0
	if st.IdempotencyKey == "" {
		st.IdempotencyKey = e.newKey()
	}
}

// stepConfirm handles the turn after a confirmation readback: yes commits,
// no cancels, and anything else is treated as an inline correction or an
// intent switch.
func (e *Engine) stepConfirm(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, text string) (format.Message, bool) {
	if matchWord(text, yesWords) {
		return e.commit(ctx, user, st, p)
	}
	if matchWord(text, noWords) {
		st.Reset()
		return format.Text(messages.Cancelled(p.Lang)), true
	}

	ext, err := e.extract(ctx, st, text)
	if _, ok := transientErr(err); ok {
		e.log.Warn("extraction unavailable during confirmation", slog.Int64("user_id", user.ID), sl.Err(err))
		return format.Text(messages.RetryPrompt(p.Lang)), false
	}
	if malformedErr(err) {
		return format.Text(messages.AskRephrase(p.Lang)), true
	}
	if err != nil {
		e.log.Error("extraction failed during confirmation", slog.Int64("user_id", user.ID), sl.Err(err))
		return format.Text(messages.ErrorDefault(p.Lang)), true
	}

	// A correction mentions fields of the pending action without pointing at
	// a different reminder. Everything else is a new request.
	correction := !contributedNothing(ext.Params) && ext.Params.TargetReference == "" &&
		(ext.Intent == nlu.IntentOther || ext.Intent == nlu.IntentCreate || ext.Intent == nlu.IntentEdit)
	if correction && st.Flow != types.FlowDeleting {
		return e.applyCorrection(user, st, p, ext.Params), true
	}

	if ext.Intent == nlu.IntentOther {
		// Not a recognizable answer; re-ask rather than guess.
		return format.Confirmation(st, p), true
	}

	if st.HasDestructivePending() {
		st.PendingSwitch = text
		return format.AbandonConfirm(p), true
	}
	st.Reset()
	return e.stepRoute(ctx, user, st, p, text)
}

// applyCorrection overwrites only the fields the correction mentioned and
// re-resolves the schedule if any temporal field changed.
func (e *Engine) applyCorrection(user *types.User, st *types.DialogueState, p format.Prefs, contributed nlu.Params) format.Message {
	mergeContribution(st, contributed)

	if contributed.DatePhrase == "" && contributed.TimePhrase == "" {
		return format.Confirmation(st, p)
	}

	datePhrase := st.Params.DatePhrase
	timePhrase := st.Params.TimePhrase
	if st.Params.ResolvedUTC != nil {
		origDate, origTime := calendar.FormatDateTime(*st.Params.ResolvedUTC, p.Calendar, p.Location)
		if datePhrase == "" {
			datePhrase = origDate
		}
		if contributed.TimePhrase == "" && st.Params.AssumedTime {
			// The original time was a filled-in default; let the resolver
			// re-apply it against the corrected date.
			timePhrase = ""
		} else if timePhrase == "" {
			timePhrase = origTime
		}
	}
	return e.resolveAndConfirm(user, st, p, datePhrase, timePhrase, false)
}

// commit executes the confirmed action against the store. The turn is not
// persisted on a transient store failure, so the user can simply confirm
// again and the idempotency key makes the retry safe.
func (e *Engine) commit(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs) (format.Message, bool) {
	if st.Params.ResolvedUTC == nil && st.Flow != types.FlowDeleting {
		st.Reset()
		return format.Text(messages.ErrorDefault(p.Lang)), true
	}

	switch st.Flow {
	case types.FlowCreating:
		limit := e.cfg.TierLimit(string(user.EffectiveTier(e.now())))
		fields := types.ReminderFields{
			Task:       st.Params.Task,
			DueAt:      *st.Params.ResolvedUTC,
			Recurrence: recurrenceOrNone(st.Params.Recurrence),
		}
		_, err := e.reminders.CreateReminder(ctx, user.ID, fields, limit, st.IdempotencyKey)
		if errors.Is(err, types.ErrTierLimitReached) {
			st.Reset()
			return format.TierLimit(limit, p), true
		}
		if err != nil {
			e.log.Error("creating reminder failed", slog.Int64("user_id", user.ID), sl.Err(err))
			return format.Text(messages.RetryPrompt(p.Lang)), false
		}
		st.Reset()
		return format.Text(messages.Saved(p.Lang)), true

	case types.FlowEditing:
		fields := types.ReminderFields{
			Task:       st.Params.Task,
			DueAt:      *st.Params.ResolvedUTC,
			Recurrence: recurrenceOrNone(st.Params.Recurrence),
		}
		_, err := e.reminders.UpdateReminder(ctx, st.Params.TargetID, fields)
		if errors.Is(err, types.ErrNotFound) {
			st.Reset()
			return format.Text(messages.TargetNotFound(p.Lang)), true
		}
		if err != nil {
			e.log.Error("updating reminder failed", slog.Int64("reminder_id", st.Params.TargetID), sl.Err(err))
			return format.Text(messages.RetryPrompt(p.Lang)), false
		}
		st.Reset()
		return format.Text(messages.Updated(p.Lang)), true

	case types.FlowDeleting:
		err := e.reminders.SoftDeleteReminder(ctx, st.Params.TargetID)
		if errors.Is(err, types.ErrNotFound) {
			st.Reset()
			return format.Text(messages.TargetNotFound(p.Lang)), true
		}
		if err != nil {
			e.log.Error("deleting reminder failed", slog.Int64("reminder_id", st.Params.TargetID), sl.Err(err))
			return format.Text(messages.RetryPrompt(p.Lang)), false
		}
		st.Reset()
		return format.Text(messages.Deleted(p.Lang)), true

	default:
		st.Reset()
		return format.Text(messages.ErrorDefault(p.Lang)), true
	}
}

func recurrenceOrNone(r types.Recurrence) types.Recurrence {
	if r == "" {
		return types.RecurrenceNone
	}
	return r
}

// listPage renders one page of active reminders and records the paging
// cursor so the navigation buttons keep any keyword filter.
func (e *Engine) listPage(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, page int, keyword string) (format.Message, bool) {
	if page < 0 {
		page = 0
	}
	items, hasMore, err := e.reminders.ListActive(ctx, user.ID, types.ReminderFilters{Keyword: keyword}, page)
	if err != nil {
		e.log.Error("listing reminders failed", slog.Int64("user_id", user.ID), sl.Err(err))
		return format.Text(messages.ErrorDefault(p.Lang)), false
	}
	st.Flow = types.FlowViewing
	st.Status = ""
	st.Page = page
	st.Params.TargetReference = keyword
	return format.ListPage(items, page, hasMore, p), true
}

// stepButton maps an inline-button press onto the same nodes text goes
// through. Stale buttons from an already-finished flow degrade to a gentle
// error instead of repeating the action.
func (e *Engine) stepButton(ctx context.Context, user *types.User, st *types.DialogueState, p format.Prefs, data string) (format.Message, bool) {
	switch data {
	case format.CBConfirmYes:
		if st.PendingSwitch != "" {
			held := st.PendingSwitch
			st.Reset()
			return e.stepRoute(ctx, user, st, p, held)
		}
		if st.Status == types.StatusAwaitingConfirmation {
			st.AppendTurn("user", "yes")
			return e.commit(ctx, user, st, p)
		}
		return format.Text(messages.ErrorDefault(p.Lang)), true

	case format.CBConfirmNo:
		if st.PendingSwitch != "" {
			st.PendingSwitch = ""
			return format.Confirmation(st, p), true
		}
		if st.Status == types.StatusAwaitingConfirmation {
			st.Reset()
			return format.Text(messages.Cancelled(p.Lang)), true
		}
		return format.Text(messages.NothingToCancel(p.Lang)), true

	case format.CBAmPmAM, format.CBAmPmPM:
		if st.PendingClarify != types.ClarifyAmPm {
			return format.Text(messages.ErrorDefault(p.Lang)), true
		}
		return e.finishAmPm(st, p, data == format.CBAmPmPM), true

	case format.CBCancel:
		return e.cancelFlow(st, p), true

	case format.CBRetry:
		st.ClarifyAttempts = 0
		return e.askPending(st, p), true

	case format.CBPageNext:
		return e.listPage(ctx, user, st, p, st.Page+1, st.Params.TargetReference)

	case format.CBPagePrev:
		return e.listPage(ctx, user, st, p, st.Page-1, st.Params.TargetReference)
	}

	if id, ok := format.ParsePickID(data); ok {
		if st.PendingClarify != types.ClarifyTarget {
			return format.Text(messages.ErrorDefault(p.Lang)), true
		}
		return e.selectTargetByID(ctx, user, st, p, id)
	}

	return format.Text(messages.ErrorDefault(p.Lang)), true
}
