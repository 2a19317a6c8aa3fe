// Package format renders dialogue output into message text plus inline
// keyboards. Rendering is deterministic given the state and the user's
// display preferences; nothing here talks to Telegram directly.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/yadbot/yadbot/internal/calendar"
	"github.com/yadbot/yadbot/internal/i18n"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/types"
)

type Button struct {
	Label string
	Data  string
}

type Message struct {
	Text    string
	Buttons [][]Button
}

// Callback tokens carried in inline-keyboard buttons. They are opaque to
// Telegram and parsed back by the handlers layer.
const (
	CBConfirmYes = "confirm:yes"
	CBConfirmNo  = "confirm:no"
	CBAmPmAM     = "ampm:am"
	CBAmPmPM     = "ampm:pm"
	CBPageNext   = "page:next"
	CBPagePrev   = "page:prev"
	CBCancel     = "cancel"
	CBRetry      = "retry"
	CBUpgrade    = "upgrade"

	CBPickPrefix   = "pick:"
	CBSnoozePrefix = "snooze:"

	CBSetCalJalali    = "set:cal:jalali"
	CBSetCalGregorian = "set:cal:gregorian"
	CBSetLangFA       = "set:lang:fa"
	CBSetLangEN       = "set:lang:en"
	CBSetTZPrefix     = "set:tz:"
)

// Timezones offered in the settings menu. Free-text city lookup is out of
// scope; these cover where the bot's users actually are.
var SettingsTimezones = []struct {
	Zone  string
	Label string
}{
	{"Asia/Tehran", "🇮🇷 Tehran"},
	{"Asia/Dubai", "🇦🇪 Dubai"},
	{"Europe/Istanbul", "🇹🇷 Istanbul"},
	{"Europe/Berlin", "🇩🇪 Berlin"},
}

// Prefs are the per-user display preferences every render needs.
type Prefs struct {
	Lang     i18n.Lang
	Calendar types.Calendar
	Location *time.Location
}

// PrefsFor derives display preferences from a stored user, falling back to
// UTC when the timezone name does not load.
func PrefsFor(u *types.User) Prefs {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil || u.Timezone == "" {
		loc = time.UTC
	}
	return Prefs{
		Lang:     i18n.Parse(u.Locale),
		Calendar: u.Calendar,
		Location: loc,
	}
}

func Text(text string) Message {
	return Message{Text: text}
}

func whenLine(due time.Time, p Prefs) string {
	dateStr, timeStr := calendar.FormatDateTime(due, p.Calendar, p.Location)
	weekday := calendar.WeekdayName(due, p.Calendar, p.Location)
	return messages.WhenLine(p.Lang, weekday, dateStr, timeStr)
}

// Confirmation renders the confirm card for the in-progress flow: a full
// readback of what will be committed, with explicit disclosure of any
// default the system filled in itself.
func Confirmation(state *types.DialogueState, p Prefs) Message {
	var lines []string
	switch state.Flow {
	case types.FlowDeleting:
		lines = append(lines, messages.ConfirmDeleteHeader(p.Lang))
	case types.FlowEditing:
		lines = append(lines, messages.ConfirmEditHeader(p.Lang))
	default:
		lines = append(lines, messages.ConfirmCreateHeader(p.Lang))
	}

	if state.Params.Task != "" {
		lines = append(lines, messages.TaskLine(p.Lang, state.Params.Task))
	}
	if state.Params.ResolvedUTC != nil {
		lines = append(lines, whenLine(*state.Params.ResolvedUTC, p))
	}
	if rec := messages.RecurrenceLine(p.Lang, string(state.Params.Recurrence)); rec != "" {
		lines = append(lines, rec)
	}
	if state.Params.AssumedTime && state.Params.ResolvedUTC != nil {
		_, timeStr := calendar.FormatDateTime(*state.Params.ResolvedUTC, p.Calendar, p.Location)
		lines = append(lines, "", messages.AssumedTimeLine(p.Lang, timeStr))
	}
	lines = append(lines, "", messages.ConfirmQuestion(p.Lang))

	return Message{
		Text: strings.Join(lines, "\n"),
		Buttons: [][]Button{{
			{Label: messages.BtnYes(p.Lang), Data: CBConfirmYes},
			{Label: messages.BtnNo(p.Lang), Data: CBConfirmNo},
		}},
	}
}

// AmPmQuestion offers the two concrete readings of an ambiguous hour.
func AmPmQuestion(hour int, p Prefs) Message {
	return Message{
		Text: messages.AskAmPm(p.Lang, hour),
		Buttons: [][]Button{{
			{Label: messages.BtnAM(p.Lang), Data: CBAmPmAM},
			{Label: messages.BtnPM(p.Lang), Data: CBAmPmPM},
		}},
	}
}

// Disambiguation enumerates candidate reminders, one pick button each.
func Disambiguation(items []*types.Reminder, p Prefs) Message {
	lines := []string{messages.DisambiguationHeader(p.Lang)}
	var rows [][]Button
	for i, r := range items {
		dateStr, timeStr := calendar.FormatDateTime(r.DueAt, p.Calendar, p.Location)
		weekday := calendar.WeekdayName(r.DueAt, p.Calendar, p.Location)
		lines = append(lines, messages.ListItem(i+1, r.Task, weekday, dateStr, timeStr))
		rows = append(rows, []Button{{
			Label: strconv.Itoa(i + 1),
			Data:  CBPickPrefix + strconv.FormatInt(r.ID, 10),
		}})
	}
	rows = append(rows, []Button{{Label: messages.BtnCancel(p.Lang), Data: CBCancel}})
	return Message{Text: strings.Join(lines, "\n"), Buttons: rows}
}

// ListPage renders one page of active reminders with pagination controls.
func ListPage(items []*types.Reminder, page int, hasMore bool, p Prefs) Message {
	if len(items) == 0 && page == 0 {
		return Text(messages.ListEmpty(p.Lang))
	}

	lines := []string{messages.ListHeader(p.Lang, page), ""}
	for i, r := range items {
		dateStr, timeStr := calendar.FormatDateTime(r.DueAt, p.Calendar, p.Location)
		weekday := calendar.WeekdayName(r.DueAt, p.Calendar, p.Location)
		lines = append(lines, messages.ListItem(page*types.ListPageSize+i+1, r.Task, weekday, dateStr, timeStr))
	}

	var nav []Button
	if page > 0 {
		nav = append(nav, Button{Label: messages.BtnPrev(p.Lang), Data: CBPagePrev})
	}
	if hasMore {
		nav = append(nav, Button{Label: messages.BtnNext(p.Lang), Data: CBPageNext})
	}
	msg := Message{Text: strings.Join(lines, "\n")}
	if len(nav) > 0 {
		msg.Buttons = [][]Button{nav}
	}
	return msg
}

// TierLimit explains the cap and offers the upgrade path.
func TierLimit(limit int, p Prefs) Message {
	return Message{
		Text: messages.TierLimitReached(p.Lang, limit),
		Buttons: [][]Button{{
			{Label: messages.UpgradeButton(p.Lang), Data: CBUpgrade},
		}},
	}
}

// ClarifyGiveUp is shown after repeated failed clarification attempts.
func ClarifyGiveUp(p Prefs) Message {
	return Message{
		Text: messages.ClarifyGiveUp(p.Lang),
		Buttons: [][]Button{{
			{Label: messages.BtnRetry(p.Lang), Data: CBRetry},
			{Label: messages.BtnCancel(p.Lang), Data: CBCancel},
		}},
	}
}

// AbandonConfirm gates switching away from an unconfirmed destructive flow.
func AbandonConfirm(p Prefs) Message {
	return Message{
		Text: messages.AbandonConfirm(p.Lang),
		Buttons: [][]Button{{
			{Label: messages.BtnYes(p.Lang), Data: CBConfirmYes},
			{Label: messages.BtnNo(p.Lang), Data: CBConfirmNo},
		}},
	}
}

// Notification renders the delivery message for a due reminder.
func Notification(r *types.Reminder, p Prefs) Message {
	return Message{
		Text: messages.NotificationText(p.Lang, r.Task),
		Buttons: [][]Button{{
			{Label: messages.BtnSnooze(p.Lang), Data: CBSnoozePrefix + strconv.FormatInt(r.ID, 10)},
		}},
	}
}

// SettingsMenu offers calendar and language toggles.
func SettingsMenu(p Prefs) Message {
	buttons := [][]Button{
		{
			{Label: "📅 " + calName(types.CalendarJalali, p.Lang), Data: CBSetCalJalali},
			{Label: "📅 " + calName(types.CalendarGregorian, p.Lang), Data: CBSetCalGregorian},
		},
		{
			{Label: "🇮🇷 فارسی", Data: CBSetLangFA},
			{Label: "🇬🇧 English", Data: CBSetLangEN},
		},
	}
	var tzRow []Button
	for _, tz := range SettingsTimezones {
		tzRow = append(tzRow, Button{Label: tz.Label, Data: CBSetTZPrefix + tz.Zone})
		if len(tzRow) == 2 {
			buttons = append(buttons, tzRow)
			tzRow = nil
		}
	}
	if len(tzRow) > 0 {
		buttons = append(buttons, tzRow)
	}
	return Message{Text: messages.SettingsPrompt(p.Lang), Buttons: buttons}
}

func calName(cal types.Calendar, lang i18n.Lang) string {
	if cal == types.CalendarJalali {
		if lang == i18n.FA {
			return "شمسی"
		}
		return "Jalali"
	}
	if lang == i18n.FA {
		return "میلادی"
	}
	return "Gregorian"
}

// Status renders subscription and usage in the user's calendar.
func Status(u *types.User, used, limit int, now time.Time, p Prefs) Message {
	expires := ""
	if u.EffectiveTier(now) != types.TierFree && u.TierExpiresAt != nil {
		d, _ := calendar.FormatDateTime(*u.TierExpiresAt, p.Calendar, p.Location)
		expires = d
	}
	msg := Message{Text: messages.StatusInfo(p.Lang, string(u.EffectiveTier(now)), expires, used, limit)}
	if u.EffectiveTier(now) == types.TierFree {
		msg.Buttons = [][]Button{{{Label: messages.UpgradeButton(p.Lang), Data: CBUpgrade}}}
	}
	return msg
}

// ParsePickID extracts the reminder id from a pick callback token.
func ParsePickID(data string) (int64, bool) {
	if !strings.HasPrefix(data, CBPickPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, CBPickPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseSnoozeID extracts the reminder id from a snooze callback token.
func ParseSnoozeID(data string) (int64, bool) {
	if !strings.HasPrefix(data, CBSnoozePrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, CBSnoozePrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
