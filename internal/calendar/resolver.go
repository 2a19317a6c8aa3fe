// Package calendar resolves natural-language date and time phrases into UTC
// instants, honouring the user's calendar system (Jalali or Gregorian) and
// timezone. Resolution is a pure function of the request: no clocks, no I/O.
package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"

	"github.com/yadbot/yadbot/types"
)

// Request carries one resolution attempt. Now is the caller's reference
// instant; Location is the user's timezone.
type Request struct {
	DatePhrase string
	TimePhrase string
	Now        time.Time
	Calendar   types.Calendar
	Location   *time.Location

	DefaultHour   int
	DefaultMinute int

	// AllowPast permits instants at or before Now (edit flows only).
	AllowPast bool
}

// Resolution is a successful resolve. AssumedDefaultTime is set when no time
// phrase was given and the configured default time of day was applied, so the
// formatter can disclose the assumption.
type Resolution struct {
	UTC                time.Time
	AssumedDefaultTime bool
}

// AmbiguityError reports an hour that could be AM or PM. Both candidate
// instants are carried so a clarification turn can present them.
type AmbiguityError struct {
	Hour   int
	Minute int
	AM     time.Time
	PM     time.Time
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous hour %d:%02d: could be AM or PM", e.Hour, e.Minute)
}

// ParseError reports a phrase that could not be resolved, or a resolution
// that landed in the past for a new reminder. Field names the failing input
// so the caller can clear and re-ask exactly that one.
const (
	FieldDate = "date"
	FieldTime = "time"
)

type ParseError struct {
	Phrase string
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Phrase, e.Reason)
}

var persianToLatin = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

var jalaliMonths = map[string]int{
	"فروردین": 1, "اردیبهشت": 2, "خرداد": 3,
	"تیر": 4, "مرداد": 5, "شهریور": 6,
	"مهر": 7, "آبان": 8, "آذر": 9,
	"دی": 10, "بهمن": 11, "اسفند": 12,
}

var gregorianMonths = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Weekday names map to Go's time.Weekday; arithmetic happens in Gregorian
// regardless of display calendar.
var weekdays = map[string]time.Weekday{
	"saturday": time.Saturday, "شنبه": time.Saturday,
	"sunday": time.Sunday, "یکشنبه": time.Sunday,
	"monday": time.Monday, "دوشنبه": time.Monday,
	"tuesday": time.Tuesday, "سه شنبه": time.Tuesday, "سه‌شنبه": time.Tuesday,
	"wednesday": time.Wednesday, "چهارشنبه": time.Wednesday,
	"thursday": time.Thursday, "پنجشنبه": time.Thursday, "پنج‌شنبه": time.Thursday,
	"friday": time.Friday, "جمعه": time.Friday,
}

// Day-part words imply a concrete time of day (values from the original
// Persian phrase table, extended with English equivalents).
var dayParts = map[string][2]int{
	"صبح": {9, 0}, "morning": {9, 0},
	"ظهر": {12, 30}, "noon": {12, 0},
	"بعد از ظهر": {15, 0}, "afternoon": {15, 0},
	"عصر": {17, 0}, "evening": {18, 0},
	"غروب": {18, 30},
	"شب":  {21, 0}, "night": {21, 0}, "tonight": {21, 0},
	"نصف شب": {0, 0}, "midnight": {0, 0},
}

var (
	reAbsoluteDate  = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
	reRelativeDays  = regexp.MustCompile(`^(?:in\s+)?(\d+)\s+(روز|هفته|days?|weeks?)\s*(دیگه|دیگر|بعد|آینده)?$`)
	reDayMonthFa    = regexp.MustCompile(`^(\d{1,2})\s+(?:ماه\s+)?(\S+)$`)
	reDayMonthEn    = regexp.MustCompile(`^(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)$`)
	reMonthDayEn    = regexp.MustCompile(`^([a-z]+)\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?$`)
	reClockWithTail = regexp.MustCompile(`^(\d{1,2})(?:[:و](\d{1,2}))?\s*(.*)$`)
	reRelativeTime  = regexp.MustCompile(`^(?:in\s+)?(نیم|یه ربع|\d+)\s+(ساعت|دقیقه|hours?|minutes?|mins?)\s*(دیگه|دیگر|بعد|آینده)?$`)
)

func normalize(s string) string {
	s = persianToLatin.Replace(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return s
}

type civilDate struct {
	year, month, day int // always Gregorian
}

func toCivil(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, int(m), d}
}

func (c civilDate) at(hour, min int, loc *time.Location) time.Time {
	return time.Date(c.year, time.Month(c.month), c.day, hour, min, 0, 0, loc)
}

// Resolve turns the request's raw phrases into a single UTC instant.
func Resolve(req Request) (Resolution, error) {
	if req.Location == nil {
		req.Location = time.UTC
	}
	now := req.Now.In(req.Location)

	datePhrase := normalize(req.DatePhrase)
	timePhrase := normalize(req.TimePhrase)

	if datePhrase == "" && timePhrase == "" {
		return Resolution{}, &ParseError{Phrase: "", Reason: "no date or time given"}
	}

	// Relative time phrases ("in 30 minutes") fix the full instant on their
	// own; a date phrase alongside them is ignored as redundant.
	if timePhrase != "" {
		if dt, ok := parseRelativeTime(timePhrase, now); ok {
			return finish(dt, false, now, req)
		}
	}

	var (
		date      civilDate
		dateGiven bool
	)
	if datePhrase != "" {
		d, err := parseDate(datePhrase, now, req.Calendar)
		if err != nil {
			return Resolution{}, err
		}
		date = d
		dateGiven = true
	} else {
		date = toCivil(now)
	}

	if timePhrase == "" {
		dt := date.at(req.DefaultHour, req.DefaultMinute, req.Location)
		return finish(dt, true, now, req)
	}

	hour, min, marked, err := parseTime(timePhrase, datePhrase)
	if err != nil {
		return Resolution{}, err
	}

	if !marked && hour >= 1 && hour <= 12 {
		return Resolution{}, &AmbiguityError{
			Hour:   hour,
			Minute: min,
			AM:     date.at(hour%12, min, req.Location).UTC(),
			PM:     date.at(hour%12+12, min, req.Location).UTC(),
		}
	}

	dt := date.at(hour, min, req.Location)

	// A bare time with no date means "the next occurrence of that time".
	if !dateGiven && !dt.After(now) {
		dt = dt.AddDate(0, 0, 1)
	}

	return finish(dt, false, now, req)
}

func finish(dt time.Time, assumed bool, now time.Time, req Request) (Resolution, error) {
	if !req.AllowPast && !dt.After(now) {
		return Resolution{}, &ParseError{
			Phrase: strings.TrimSpace(req.DatePhrase + " " + req.TimePhrase),
			Reason: "resolved instant is in the past",
		}
	}
	return Resolution{UTC: dt.UTC(), AssumedDefaultTime: assumed}, nil
}

func parseDate(phrase string, now time.Time, cal types.Calendar) (civilDate, error) {
	switch phrase {
	case "امروز", "today", "امشب", "tonight":
		return toCivil(now), nil
	case "فردا", "tomorrow":
		return toCivil(now.AddDate(0, 0, 1)), nil
	case "پس فردا", "پسفردا", "day after tomorrow", "the day after tomorrow":
		return toCivil(now.AddDate(0, 0, 2)), nil
	}

	if m := reRelativeDays.FindStringSubmatch(phrase); m != nil {
		n, _ := strconv.Atoi(m[1])
		days := n
		if strings.HasPrefix(m[2], "week") || m[2] == "هفته" {
			days = n * 7
		}
		return toCivil(now.AddDate(0, 0, days)), nil
	}

	if m := reAbsoluteDate.FindStringSubmatch(phrase); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		// Jalali years are below the Gregorian range, so the year value
		// disambiguates regardless of the user's display calendar.
		if year < 1700 {
			return jalaliCivil(year, month, day)
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return civilDate{}, &ParseError{Phrase: phrase, Field: FieldDate, Reason: "invalid date components"}
		}
		return civilDate{year, month, day}, nil
	}

	if d, ok := parseWeekday(phrase, now); ok {
		return d, nil
	}

	if d, ok, err := parseMonthDay(phrase, now, cal); ok || err != nil {
		return d, err
	}

	return civilDate{}, &ParseError{Phrase: phrase, Field: FieldDate, Reason: "unrecognised date phrase"}
}

func jalaliCivil(year, month, day int) (civilDate, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return civilDate{}, &ParseError{
			Phrase: fmt.Sprintf("%d/%d/%d", year, month, day),
			Field:  FieldDate,
			Reason: "invalid jalali date components",
		}
	}
	pt := ptime.Date(year, ptime.Month(month), day, 0, 0, 0, 0, ptime.Iran())
	return toCivil(pt.Time()), nil
}

func parseWeekday(phrase string, now time.Time) (civilDate, bool) {
	rest := strings.TrimPrefix(phrase, "next ")
	for _, suffix := range []string{" آینده", " بعد", " دیگه"} {
		rest = strings.TrimSuffix(rest, suffix)
	}
	wd, ok := weekdays[strings.TrimSpace(rest)]
	if !ok {
		return civilDate{}, false
	}
	ahead := (int(wd) - int(now.Weekday()) + 7) % 7
	if ahead == 0 {
		// A weekday naming today means next week's occurrence.
		ahead = 7
	}
	return toCivil(now.AddDate(0, 0, ahead)), true
}

func parseMonthDay(phrase string, now time.Time, cal types.Calendar) (civilDate, bool, error) {
	if m := reDayMonthFa.FindStringSubmatch(phrase); m != nil {
		if month, ok := jalaliMonths[strings.TrimSuffix(m[2], "ماه")]; ok {
			day, _ := strconv.Atoi(m[1])
			return jalaliMonthDay(month, day, now)
		}
	}
	var day int
	var monthName string
	if m := reDayMonthEn.FindStringSubmatch(phrase); m != nil {
		day, _ = strconv.Atoi(m[1])
		monthName = m[2]
	} else if m := reMonthDayEn.FindStringSubmatch(phrase); m != nil {
		day, _ = strconv.Atoi(m[2])
		monthName = m[1]
	} else {
		return civilDate{}, false, nil
	}
	month, ok := gregorianMonths[monthName]
	if !ok {
		return civilDate{}, false, nil
	}
	if day < 1 || day > 31 {
		return civilDate{}, true, &ParseError{Phrase: phrase, Field: FieldDate, Reason: "invalid day of month"}
	}
	d := civilDate{now.Year(), int(month), day}
	if d.at(23, 59, now.Location()).Before(now) {
		d.year++
	}
	return d, true, nil
}

func jalaliMonthDay(month, day int, now time.Time) (civilDate, bool, error) {
	if day < 1 || day > 31 {
		return civilDate{}, true, &ParseError{
			Phrase: fmt.Sprintf("%d/%d", month, day),
			Field:  FieldDate,
			Reason: "invalid day of month",
		}
	}
	pnow := ptime.New(now)
	pt := ptime.Date(pnow.Year(), ptime.Month(month), day, 23, 59, 0, 0, ptime.Iran())
	if pt.Time().Before(now) {
		pt = ptime.Date(pnow.Year()+1, ptime.Month(month), day, 0, 0, 0, 0, ptime.Iran())
	} else {
		pt = ptime.Date(pnow.Year(), ptime.Month(month), day, 0, 0, 0, 0, ptime.Iran())
	}
	return toCivil(pt.Time()), true, nil
}

func parseRelativeTime(phrase string, now time.Time) (time.Time, bool) {
	m := reRelativeTime.FindStringSubmatch(phrase)
	if m == nil {
		return time.Time{}, false
	}
	// "نیم ساعت" and "یه ربع ساعت" name a fixed span of minutes; the unit
	// word after them is part of the idiom, not a multiplier.
	switch m[1] {
	case "نیم":
		return now.Add(30 * time.Minute), true
	case "یه ربع":
		return now.Add(15 * time.Minute), true
	}
	n, _ := strconv.Atoi(m[1])
	if m[2] == "ساعت" || strings.HasPrefix(m[2], "hour") {
		return now.Add(time.Duration(n) * time.Hour), true
	}
	return now.Add(time.Duration(n) * time.Minute), true
}

// parseTime returns the hour/minute and whether the phrase carried an
// unambiguous AM/PM (or 24h) marker. datePhrase provides evening context:
// "tonight at 9" reads as 21:00.
func parseTime(phrase, datePhrase string) (hour, min int, marked bool, err error) {
	phrase = strings.TrimSpace(strings.TrimPrefix(phrase, "ساعت"))
	phrase = strings.TrimSpace(strings.TrimPrefix(phrase, "at "))

	if hm, ok := dayParts[phrase]; ok {
		return hm[0], hm[1], true, nil
	}

	m := reClockWithTail.FindStringSubmatch(phrase)
	if m == nil {
		return 0, 0, false, &ParseError{Phrase: phrase, Field: FieldTime, Reason: "unrecognised time phrase"}
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	tail := strings.TrimSpace(m[3])
	tail = strings.Trim(tail, ".")
	tail = strings.ReplaceAll(tail, ".", "")
	tail = strings.TrimSpace(tail)

	if hour > 23 || min > 59 {
		return 0, 0, false, &ParseError{Phrase: phrase, Field: FieldTime, Reason: "invalid time components"}
	}

	switch tail {
	case "", "o'clock", "oclock":
		// An explicit minute component reads as a 24-hour clock; hour 0 and
		// hours 13-23 are unambiguous on their own. Bare 1-12 stays unmarked.
		if m[2] != "" || hour == 0 || hour >= 13 {
			return hour, min, true, nil
		}
		if eveningContext(datePhrase) {
			return hour + 12, min, true, nil
		}
		return hour, min, false, nil
	case "am", "a m", "صبح":
		if hour == 12 {
			hour = 0
		}
		return hour, min, true, nil
	case "pm", "p m", "بعد از ظهر", "عصر", "غروب", "شب":
		if hour < 12 {
			hour += 12
		}
		return hour, min, true, nil
	case "ظهر":
		return hour, min, true, nil
	default:
		return 0, 0, false, &ParseError{Phrase: phrase, Field: FieldTime, Reason: "unrecognised time suffix"}
	}
}

func eveningContext(datePhrase string) bool {
	return strings.Contains(datePhrase, "امشب") || strings.Contains(datePhrase, "شب") ||
		strings.Contains(datePhrase, "tonight")
}
