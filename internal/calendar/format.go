package calendar

import (
	"fmt"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"

	"github.com/yadbot/yadbot/types"
)

// FormatDateTime renders a UTC instant as separate date and time strings in
// the user's calendar and timezone. The output re-parses through Resolve to
// the same instant (round-trip law), so stored timestamps can be surfaced and
// corrected without drift.
func FormatDateTime(t time.Time, cal types.Calendar, loc *time.Location) (dateStr, timeStr string) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	timeStr = local.Format("15:04")
	if cal == types.CalendarJalali {
		pt := ptime.New(local)
		dateStr = fmt.Sprintf("%04d/%02d/%02d", pt.Year(), int(pt.Month()), pt.Day())
		return dateStr, timeStr
	}
	dateStr = local.Format("2006-01-02")
	return dateStr, timeStr
}

// WeekdayName returns the localized weekday for display alongside a date.
func WeekdayName(t time.Time, cal types.Calendar, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if cal == types.CalendarJalali {
		return ptime.New(local).Weekday().String()
	}
	return local.Weekday().String()
}
