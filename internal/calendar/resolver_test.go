package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yadbot/yadbot/types"
)

var tehran = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		panic(err)
	}
	return loc
}()

// Wednesday 2026-09-16 10:00 Tehran time.
var refNow = time.Date(2026, 9, 16, 10, 0, 0, 0, tehran)

func resolve(t *testing.T, datePhrase, timePhrase string) (Resolution, error) {
	t.Helper()
	return Resolve(Request{
		DatePhrase:    datePhrase,
		TimePhrase:    timePhrase,
		Now:           refNow,
		Calendar:      types.CalendarGregorian,
		Location:      tehran,
		DefaultHour:   9,
		DefaultMinute: 0,
	})
}

func TestResolveRelativeDates(t *testing.T) {
	tests := []struct {
		name       string
		datePhrase string
		timePhrase string
		wantLocal  time.Time
	}{
		{"tomorrow with time", "tomorrow", "3pm", time.Date(2026, 9, 17, 15, 0, 0, 0, tehran)},
		{"persian tomorrow", "فردا", "10 صبح", time.Date(2026, 9, 17, 10, 0, 0, 0, tehran)},
		{"day after tomorrow", "day after tomorrow", "08:30", time.Date(2026, 9, 18, 8, 30, 0, 0, tehran)},
		{"in 3 days", "in 3 days", "14:00", time.Date(2026, 9, 19, 14, 0, 0, 0, tehran)},
		{"in 2 weeks", "2 weeks", "14:00", time.Date(2026, 9, 30, 14, 0, 0, 0, tehran)},
		{"today evening word", "today", "شب", time.Date(2026, 9, 16, 21, 0, 0, 0, tehran)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolve(t, tt.datePhrase, tt.timePhrase)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLocal.UTC(), res.UTC)
			assert.False(t, res.AssumedDefaultTime)
		})
	}
}

func TestResolveWeekdays(t *testing.T) {
	// Reference day is a Wednesday.
	res, err := resolve(t, "next monday", "12:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 21, 12, 0, 0, 0, tehran).UTC(), res.UTC)

	// Naming today's weekday means next week.
	res, err = resolve(t, "wednesday", "12:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 23, 12, 0, 0, 0, tehran).UTC(), res.UTC)

	res, err = resolve(t, "جمعه", "20:15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 18, 20, 15, 0, 0, tehran).UTC(), res.UTC)
}

func TestResolveAbsoluteDates(t *testing.T) {
	res, err := resolve(t, "2026-10-05", "07:45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 5, 7, 45, 0, 0, tehran).UTC(), res.UTC)

	// Jalali 1405/07/01 is Gregorian 2026-09-23.
	res, err = resolve(t, "1405/07/01", "09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 23, 9, 0, 0, 0, tehran).UTC(), res.UTC)

	// Persian month-day: ۵ آبان 1405 is Gregorian 2026-10-27.
	res, err = resolve(t, "۵ آبان", "18:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 27, 18, 0, 0, 0, tehran).UTC(), res.UTC)
}

func TestResolveEnglishMonthDay(t *testing.T) {
	for _, phrase := range []string{"december 12", "12 december", "12 of december", "the 12th of december", "December 12th"} {
		res, err := resolve(t, phrase, "10 pm")
		require.NoError(t, err, phrase)
		assert.Equal(t, time.Date(2026, 12, 12, 22, 0, 0, 0, tehran).UTC(), res.UTC, phrase)
	}

	// A month-day already behind the reference date rolls to next year.
	res, err := resolve(t, "january 5", "10:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 5, 10, 0, 0, 0, tehran).UTC(), res.UTC)
}

func TestResolveDefaultTime(t *testing.T) {
	res, err := resolve(t, "tomorrow", "")
	require.NoError(t, err)
	assert.True(t, res.AssumedDefaultTime)
	assert.Equal(t, time.Date(2026, 9, 17, 9, 0, 0, 0, tehran).UTC(), res.UTC)
}

func TestResolveBareTimeNextOccurrence(t *testing.T) {
	// 08:00 already passed at the 10:00 reference; expect tomorrow.
	res, err := resolve(t, "", "8 am")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 17, 8, 0, 0, 0, tehran).UTC(), res.UTC)

	res, err = resolve(t, "", "23:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 16, 23, 0, 0, 0, tehran).UTC(), res.UTC)
}

func TestResolveAmbiguousHour(t *testing.T) {
	_, err := resolve(t, "tomorrow", "7")
	var ambErr *AmbiguityError
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, 7, ambErr.Hour)
	assert.Equal(t, time.Date(2026, 9, 17, 7, 0, 0, 0, tehran).UTC(), ambErr.AM)
	assert.Equal(t, time.Date(2026, 9, 17, 19, 0, 0, 0, tehran).UTC(), ambErr.PM)

	// "12 o'clock" could be midnight or noon.
	_, err = resolve(t, "tomorrow", "12 o'clock")
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, time.Date(2026, 9, 17, 0, 0, 0, 0, tehran).UTC(), ambErr.AM)
	assert.Equal(t, time.Date(2026, 9, 17, 12, 0, 0, 0, tehran).UTC(), ambErr.PM)
}

func TestResolveMarkedHours(t *testing.T) {
	res, err := resolve(t, "tomorrow", "12 pm")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 17, 12, 0, 0, 0, tehran).UTC(), res.UTC)

	res, err = resolve(t, "tomorrow", "12 am")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 17, 0, 0, 0, 0, tehran).UTC(), res.UTC)
}

func TestResolveRejectsPast(t *testing.T) {
	_, err := resolve(t, "2026-09-15", "10:00")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)

	// Edits may move past the reference instant.
	res, err := Resolve(Request{
		DatePhrase: "2026-09-15", TimePhrase: "10:00",
		Now: refNow, Calendar: types.CalendarGregorian, Location: tehran,
		DefaultHour: 9, AllowPast: true,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 15, 10, 0, 0, 0, tehran).UTC(), res.UTC)
}

func TestResolveRelativeTime(t *testing.T) {
	res, err := resolve(t, "", "in 30 minutes")
	require.NoError(t, err)
	assert.Equal(t, refNow.Add(30*time.Minute).UTC(), res.UTC)

	res, err = resolve(t, "", "نیم ساعت دیگه")
	require.NoError(t, err)
	assert.Equal(t, refNow.Add(30*time.Minute).UTC(), res.UTC)

	res, err = resolve(t, "", "یه ربع ساعت دیگه")
	require.NoError(t, err)
	assert.Equal(t, refNow.Add(15*time.Minute).UTC(), res.UTC)

	res, err = resolve(t, "", "in 2 hours")
	require.NoError(t, err)
	assert.Equal(t, refNow.Add(2*time.Hour).UTC(), res.UTC)
}

func TestResolveEmpty(t *testing.T) {
	_, err := resolve(t, "", "")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

// An unparseable phrase must name which input failed, even after the "at"/
// "ساعت" prefix is stripped during normalization.
func TestParseErrorNamesFailingField(t *testing.T) {
	_, err := resolve(t, "tomorrow", "at sometime later")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, FieldTime, parseErr.Field)

	_, err = resolve(t, "someday soon", "14:00")
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, FieldDate, parseErr.Field)
}

func TestResolveEveningContext(t *testing.T) {
	res, err := resolve(t, "tonight", "9")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 16, 21, 0, 0, 0, tehran).UTC(), res.UTC)
}

// Rendering a resolved instant and re-parsing the rendered strings must land
// on the same UTC instant, in both calendars.
func TestFormatResolveRoundTrip(t *testing.T) {
	cases := []struct {
		datePhrase, timePhrase string
		cal                    types.Calendar
	}{
		{"tomorrow", "3pm", types.CalendarGregorian},
		{"فردا", "18:45", types.CalendarJalali},
		{"next friday", "07:05", types.CalendarJalali},
		{"2026-12-01", "23:59", types.CalendarGregorian},
		{"۵ آبان", "12:00", types.CalendarJalali},
	}
	for _, tc := range cases {
		res, err := Resolve(Request{
			DatePhrase: tc.datePhrase, TimePhrase: tc.timePhrase,
			Now: refNow, Calendar: tc.cal, Location: tehran, DefaultHour: 9,
		})
		require.NoError(t, err, tc.datePhrase)

		dateStr, timeStr := FormatDateTime(res.UTC, tc.cal, tehran)
		back, err := Resolve(Request{
			DatePhrase: dateStr, TimePhrase: timeStr,
			Now: refNow, Calendar: tc.cal, Location: tehran, DefaultHour: 9,
		})
		require.NoError(t, err, dateStr)
		assert.Equal(t, res.UTC, back.UTC, "%s %s -> %s %s", tc.datePhrase, tc.timePhrase, dateStr, timeStr)
	}
}

func TestAmbiguityErrorMessage(t *testing.T) {
	err := &AmbiguityError{Hour: 7, Minute: 30}
	assert.Contains(t, err.Error(), "7:30")
	assert.True(t, errors.As(error(err), new(*AmbiguityError)))
}
