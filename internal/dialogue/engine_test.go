package dialogue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yadbot/yadbot/internal/config"
	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/nlu"
	"github.com/yadbot/yadbot/types"
)

type memStates struct {
	m     map[int64]*types.DialogueState
	saves int
}

func newMemStates() *memStates { return &memStates{m: map[int64]*types.DialogueState{}} }

func (s *memStates) GetState(ctx context.Context, userID int64) (*types.DialogueState, error) {
	st, ok := s.m[userID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *memStates) SaveState(ctx context.Context, st *types.DialogueState) error {
	cp := *st
	s.m[st.UserID] = &cp
	s.saves++
	return nil
}

func (s *memStates) DeleteState(ctx context.Context, userID int64) error {
	delete(s.m, userID)
	return nil
}

type fakeReminders struct {
	createFn     func(ctx context.Context, userID int64, fields types.ReminderFields, limit int, idemKey string) (*types.Reminder, error)
	updateFn     func(ctx context.Context, id int64, fields types.ReminderFields) (*types.Reminder, error)
	softDeleteFn func(ctx context.Context, id int64) error
	getFn        func(ctx context.Context, id int64) (*types.Reminder, error)
	listFn       func(ctx context.Context, userID int64, filters types.ReminderFilters, page int) ([]*types.Reminder, bool, error)
	findFn       func(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error)
}

func (f *fakeReminders) CreateReminder(ctx context.Context, userID int64, fields types.ReminderFields, limit int, idemKey string) (*types.Reminder, error) {
	return f.createFn(ctx, userID, fields, limit, idemKey)
}

func (f *fakeReminders) UpdateReminder(ctx context.Context, id int64, fields types.ReminderFields) (*types.Reminder, error) {
	return f.updateFn(ctx, id, fields)
}

func (f *fakeReminders) SoftDeleteReminder(ctx context.Context, id int64) error {
	return f.softDeleteFn(ctx, id)
}

func (f *fakeReminders) GetReminder(ctx context.Context, id int64) (*types.Reminder, error) {
	return f.getFn(ctx, id)
}

func (f *fakeReminders) ListActive(ctx context.Context, userID int64, filters types.ReminderFilters, page int) ([]*types.Reminder, bool, error) {
	return f.listFn(ctx, userID, filters, page)
}

func (f *fakeReminders) FindActiveByKeyword(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
	return f.findFn(ctx, userID, keyword, limit)
}

func (f *fakeReminders) DueReminders(ctx context.Context, now time.Time, limit int) ([]*types.Reminder, error) {
	return nil, nil
}

func (f *fakeReminders) MarkNotified(ctx context.Context, id int64, at time.Time) error { return nil }

func (f *fakeReminders) RescheduleRecurring(ctx context.Context, id int64, nextDue time.Time) error {
	return nil
}

func (f *fakeReminders) Snooze(ctx context.Context, id int64, until time.Time) error { return nil }

func (f *fakeReminders) CountActive(ctx context.Context, userID int64) (int, error) { return 0, nil }

type extractStep struct {
	ext nlu.Extraction
	err error
}

type scriptedExtractor struct {
	steps []extractStep
	calls int
}

func (s *scriptedExtractor) Extract(ctx context.Context, utterance string, history []types.Turn, known nlu.Params) (nlu.Extraction, error) {
	if s.calls >= len(s.steps) {
		return nlu.Extraction{Intent: nlu.IntentOther, Confidence: nlu.ConfidenceLow}, nil
	}
	step := s.steps[s.calls]
	s.calls++
	return step.ext, step.err
}

func testConfig() *config.Config {
	return &config.Config{
		FreeLimit:     2,
		StandardLimit: 10,
		PremiumLimit:  100,
		DefaultHour:   9,
		DefaultMinute: 0,
	}
}

func testUser() *types.User {
	return &types.User{
		ID:       1,
		ChatID:   5,
		Locale:   "en",
		Calendar: types.CalendarGregorian,
		Timezone: "Asia/Tehran",
		Tier:     types.TierFree,
	}
}

// refNow is Wednesday 2026-09-16 10:00 in Tehran.
func refNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tehran")
	require.NoError(t, err)
	return time.Date(2026, 9, 16, 10, 0, 0, 0, loc)
}

func newTestEngine(t *testing.T, states *memStates, rems *fakeReminders, ex Extractor) *Engine {
	t.Helper()
	e := New(states, rems, nil, ex, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := refNow(t)
	e.now = func() time.Time { return now }
	key := 0
	e.newKey = func() string {
		key++
		return "key-" + string(rune('a'+key-1))
	}
	return e
}

func create(task, datePhrase, timePhrase string) extractStep {
	return extractStep{ext: nlu.Extraction{
		Intent:     nlu.IntentCreate,
		Confidence: nlu.ConfidenceHigh,
		Params:     nlu.Params{Task: task, DatePhrase: datePhrase, TimePhrase: timePhrase},
	}}
}

func TestCreateHappyPathWithAssumedTime(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()

	var gotFields types.ReminderFields
	var gotKey string
	var gotLimit int
	rems := &fakeReminders{
		createFn: func(ctx context.Context, userID int64, fields types.ReminderFields, limit int, idemKey string) (*types.Reminder, error) {
			gotFields, gotKey, gotLimit = fields, idemKey, limit
			return &types.Reminder{ID: 1, UserID: userID, Task: fields.Task, DueAt: fields.DueAt}, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{create("call mom", "tomorrow", "")}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "remind me to call mom tomorrow")
	assert.Contains(t, msg.Text, "call mom")
	assert.Contains(t, msg.Text, "2026-09-17")
	assert.Contains(t, msg.Text, "09:00")
	assert.Contains(t, msg.Text, "assumed")
	require.Len(t, msg.Buttons, 1)

	saved := states.m[user.ID]
	require.NotNil(t, saved)
	assert.Equal(t, types.StatusAwaitingConfirmation, saved.Status)
	assert.NotEmpty(t, saved.IdempotencyKey)

	msg = e.Process(ctx, user, "yes")
	assert.Contains(t, msg.Text, "saved")

	assert.Equal(t, "call mom", gotFields.Task)
	assert.Equal(t, 2, gotLimit)
	assert.Equal(t, saved.IdempotencyKey, gotKey)

	loc, _ := time.LoadLocation("Asia/Tehran")
	assert.Equal(t, time.Date(2026, 9, 17, 9, 0, 0, 0, loc).UTC(), gotFields.DueAt)
	assert.False(t, states.m[user.ID].InFlow())
}

func TestAmbiguousHourAsksAmPm(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()

	var gotFields types.ReminderFields
	rems := &fakeReminders{
		createFn: func(ctx context.Context, userID int64, fields types.ReminderFields, limit int, idemKey string) (*types.Reminder, error) {
			gotFields = fields
			return &types.Reminder{ID: 1}, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{create("take my pill", "", "12 o'clock")}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "remind me to take my pill at 12 o'clock")
	assert.Contains(t, msg.Text, "12 AM or 12 PM")
	assert.Equal(t, format.CBAmPmAM, msg.Buttons[0][0].Data)

	msg = e.HandleButton(ctx, user, format.CBAmPmPM)
	assert.Contains(t, msg.Text, "take my pill")
	assert.Contains(t, msg.Text, "12:00")
	assert.NotContains(t, msg.Text, "assumed")

	msg = e.Process(ctx, user, "yes")
	assert.Contains(t, msg.Text, "saved")

	loc, _ := time.LoadLocation("Asia/Tehran")
	assert.Equal(t, time.Date(2026, 9, 16, 12, 0, 0, 0, loc).UTC(), gotFields.DueAt)
}

func TestCorrectionAtConfirmationKeepsOtherFieldsAndKey(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()

	var gotFields types.ReminderFields
	var gotKey string
	rems := &fakeReminders{
		createFn: func(ctx context.Context, userID int64, fields types.ReminderFields, limit int, idemKey string) (*types.Reminder, error) {
			gotFields, gotKey = fields, idemKey
			return &types.Reminder{ID: 1}, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		create("team meeting", "tomorrow", "3pm"),
		{ext: nlu.Extraction{Intent: nlu.IntentOther, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{TimePhrase: "6pm"}}},
	}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "remind me about the team meeting tomorrow at 3pm")
	assert.Contains(t, msg.Text, "15:00")
	key1 := states.m[user.ID].IdempotencyKey

	msg = e.Process(ctx, user, "no wait, 6pm instead")
	assert.Contains(t, msg.Text, "team meeting")
	assert.Contains(t, msg.Text, "18:00")
	assert.Contains(t, msg.Text, "2026-09-17")
	assert.Equal(t, key1, states.m[user.ID].IdempotencyKey)

	msg = e.Process(ctx, user, "yes")
	assert.Contains(t, msg.Text, "saved")
	assert.Equal(t, "team meeting", gotFields.Task)
	assert.Equal(t, key1, gotKey)

	loc, _ := time.LoadLocation("Asia/Tehran")
	assert.Equal(t, time.Date(2026, 9, 17, 18, 0, 0, 0, loc).UTC(), gotFields.DueAt)
}

func TestUnparseableTimeKeepsDateAndAsksTime(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	rems := &fakeReminders{}
	ex := &scriptedExtractor{steps: []extractStep{
		create("buy bread", "tomorrow", "at sometime later"),
	}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "remind me to buy bread tomorrow at sometime later")
	assert.Contains(t, msg.Text, "What time")
	assert.NotContains(t, msg.Text, "Which day")

	st := states.m[user.ID]
	assert.Equal(t, "tomorrow", st.Params.DatePhrase)
	assert.Empty(t, st.Params.TimePhrase)
}

func TestDeleteWithDisambiguation(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	loc, _ := time.LoadLocation("Asia/Tehran")

	dentists := []*types.Reminder{
		{ID: 11, UserID: 1, Task: "dentist checkup", DueAt: time.Date(2026, 9, 18, 10, 0, 0, 0, loc).UTC()},
		{ID: 12, UserID: 1, Task: "pay dentist bill", DueAt: time.Date(2026, 9, 25, 10, 0, 0, 0, loc).UTC()},
	}
	var deleted int64
	rems := &fakeReminders{
		findFn: func(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
			assert.Equal(t, "dentist", keyword)
			return dentists, nil
		},
		getFn: func(ctx context.Context, id int64) (*types.Reminder, error) {
			return dentists[1], nil
		},
		softDeleteFn: func(ctx context.Context, id int64) error {
			deleted = id
			return nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentDelete, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{TargetReference: "dentist"}}},
	}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "delete my dentist reminder")
	assert.Contains(t, msg.Text, "1. dentist checkup")
	assert.Contains(t, msg.Text, "2. pay dentist bill")

	msg = e.HandleButton(ctx, user, "pick:12")
	assert.Contains(t, msg.Text, "Delete reminder")
	assert.Contains(t, msg.Text, "pay dentist bill")

	msg = e.HandleButton(ctx, user, format.CBConfirmYes)
	assert.Contains(t, msg.Text, "deleted")
	assert.Equal(t, int64(12), deleted)
	assert.False(t, states.m[user.ID].InFlow())
}

func TestDeleteTargetNotFound(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	rems := &fakeReminders{
		findFn: func(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
			return nil, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentDelete, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{TargetReference: "yoga"}}},
	}}
	e := newTestEngine(t, states, rems, ex)

	msg := e.Process(ctx, testUser(), "delete the yoga reminder")
	assert.Contains(t, msg.Text, "No reminder matched")
	assert.False(t, states.m[1].InFlow())
}

func TestTierLimitAtCommitOffersUpgrade(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	rems := &fakeReminders{
		createFn: func(ctx context.Context, userID int64, fields types.ReminderFields, limit int, idemKey string) (*types.Reminder, error) {
			return nil, types.ErrTierLimitReached
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{create("buy milk", "tomorrow", "10")}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "remind me to buy milk tomorrow at 10")
	msg = e.HandleButton(ctx, user, format.CBAmPmAM)
	assert.Contains(t, msg.Text, "10:00")

	msg = e.Process(ctx, user, "yes")
	assert.Contains(t, msg.Text, "limit of 2")
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, format.CBUpgrade, msg.Buttons[0][0].Data)
	assert.False(t, states.m[user.ID].InFlow())
}

func TestTransientExtractionLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	ex := &scriptedExtractor{steps: []extractStep{
		{err: &nlu.TransientExtractionError{Err: errors.New("timeout")}},
		{err: &nlu.TransientExtractionError{Err: errors.New("timeout")}},
	}}
	e := newTestEngine(t, states, &fakeReminders{}, ex)

	msg := e.Process(ctx, testUser(), "remind me about something")
	assert.Contains(t, msg.Text, "nothing was lost")
	assert.Equal(t, 2, ex.calls)
	assert.Equal(t, 0, states.saves)
}

func TestTransientExtractionRetriesOnce(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	ex := &scriptedExtractor{steps: []extractStep{
		{err: &nlu.TransientExtractionError{Err: errors.New("timeout")}},
		create("call mom", "tomorrow", "5pm"),
	}}
	e := newTestEngine(t, states, &fakeReminders{}, ex)

	msg := e.Process(ctx, testUser(), "remind me to call mom tomorrow at 5pm")
	assert.Contains(t, msg.Text, "call mom")
	assert.Contains(t, msg.Text, "17:00")
	assert.Equal(t, 2, ex.calls)
}

func TestFailedCommitKeepsConfirmationAndKey(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()

	var keys []string
	fail := true
	rems := &fakeReminders{
		createFn: func(ctx context.Context, userID int64, fields types.ReminderFields, limit int, idemKey string) (*types.Reminder, error) {
			keys = append(keys, idemKey)
			if fail {
				fail = false
				return nil, errors.New("connection refused")
			}
			return &types.Reminder{ID: 1}, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{create("call mom", "tomorrow", "5pm")}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	e.Process(ctx, user, "remind me to call mom tomorrow at 5pm")

	msg := e.Process(ctx, user, "yes")
	assert.Contains(t, msg.Text, "nothing was lost")
	assert.Equal(t, types.StatusAwaitingConfirmation, states.m[user.ID].Status)

	msg = e.Process(ctx, user, "yes")
	assert.Contains(t, msg.Text, "saved")
	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
}

func TestDestructiveSwitchRequiresAbandonConfirm(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	loc, _ := time.LoadLocation("Asia/Tehran")

	rems := &fakeReminders{
		findFn: func(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
			return []*types.Reminder{{ID: 7, UserID: 1, Task: "dentist", DueAt: time.Date(2026, 9, 18, 10, 0, 0, 0, loc).UTC()}}, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentDelete, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{TargetReference: "dentist"}}},
		create("buy milk", "tomorrow", "8pm"),
		create("buy milk", "tomorrow", "8pm"),
	}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "delete the dentist reminder")
	assert.Contains(t, msg.Text, "Delete reminder")

	msg = e.Process(ctx, user, "remind me to buy milk tomorrow at 8pm")
	assert.Contains(t, msg.Text, "unconfirmed delete")

	msg = e.Process(ctx, user, "yes")
	assert.Contains(t, msg.Text, "buy milk")
	assert.Contains(t, msg.Text, "20:00")
	assert.Equal(t, types.FlowCreating, states.m[user.ID].Flow)
}

func TestAbandonGateNoKeepsPendingDelete(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	loc, _ := time.LoadLocation("Asia/Tehran")

	rems := &fakeReminders{
		findFn: func(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
			return []*types.Reminder{{ID: 7, UserID: 1, Task: "dentist", DueAt: time.Date(2026, 9, 18, 10, 0, 0, 0, loc).UTC()}}, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentDelete, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{TargetReference: "dentist"}}},
		create("buy milk", "tomorrow", "8pm"),
	}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	e.Process(ctx, user, "delete the dentist reminder")
	e.Process(ctx, user, "remind me to buy milk tomorrow at 8pm")

	msg := e.Process(ctx, user, "no")
	assert.Contains(t, msg.Text, "Delete reminder")
	assert.Equal(t, types.FlowDeleting, states.m[user.ID].Flow)
	assert.Equal(t, types.StatusAwaitingConfirmation, states.m[user.ID].Status)
}

func TestClarifyGiveUpAfterRepeatedMisses(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentCreate, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{Task: "water plants"}}},
		{ext: nlu.Extraction{Intent: nlu.IntentOther, Confidence: nlu.ConfidenceLow, NeedsClarification: true}},
		{ext: nlu.Extraction{Intent: nlu.IntentOther, Confidence: nlu.ConfidenceLow, NeedsClarification: true}},
	}}
	e := newTestEngine(t, states, &fakeReminders{}, ex)
	user := testUser()

	msg := e.Process(ctx, user, "remind me to water the plants")
	assert.Contains(t, msg.Text, "Which day")

	msg = e.Process(ctx, user, "hmm")
	assert.Contains(t, msg.Text, "Which day")

	msg = e.Process(ctx, user, "dunno")
	assert.Contains(t, msg.Text, "cancel")
	require.Len(t, msg.Buttons, 1)

	msg = e.HandleButton(ctx, user, format.CBCancel)
	assert.Contains(t, msg.Text, "Cancelled")
	assert.False(t, states.m[user.ID].InFlow())
}

func TestViewBypassesConfirmation(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	loc, _ := time.LoadLocation("Asia/Tehran")

	var pages []int
	rems := &fakeReminders{
		listFn: func(ctx context.Context, userID int64, filters types.ReminderFilters, page int) ([]*types.Reminder, bool, error) {
			pages = append(pages, page)
			var items []*types.Reminder
			for i := 0; i < types.ListPageSize; i++ {
				items = append(items, &types.Reminder{ID: int64(i), Task: "task", DueAt: time.Date(2026, 9, 18, 10, 0, 0, 0, loc).UTC()})
			}
			return items, true, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentView, Confidence: nlu.ConfidenceHigh}},
	}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "show my reminders")
	assert.Contains(t, msg.Text, "page 1")

	msg = e.HandleButton(ctx, user, format.CBPageNext)
	assert.Contains(t, msg.Text, "page 2")
	assert.Equal(t, []int{0, 1}, pages)
}

func TestCancelWordAbortsFlow(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	ex := &scriptedExtractor{steps: []extractStep{create("call mom", "tomorrow", "5pm")}}
	e := newTestEngine(t, states, &fakeReminders{}, ex)
	user := testUser()

	e.Process(ctx, user, "remind me to call mom tomorrow at 5pm")

	msg := e.Process(ctx, user, "cancel")
	assert.Contains(t, msg.Text, "Cancelled")
	assert.False(t, states.m[user.ID].InFlow())
}

func TestEditSingleMatchChangesOnlyTime(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	loc, _ := time.LoadLocation("Asia/Tehran")
	orig := &types.Reminder{
		ID: 9, UserID: 1, Task: "team meeting",
		DueAt: time.Date(2026, 9, 18, 15, 0, 0, 0, loc).UTC(),
	}

	var gotID int64
	var gotFields types.ReminderFields
	rems := &fakeReminders{
		findFn: func(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
			return []*types.Reminder{orig}, nil
		},
		updateFn: func(ctx context.Context, id int64, fields types.ReminderFields) (*types.Reminder, error) {
			gotID, gotFields = id, fields
			return orig, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentEdit, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{TargetReference: "meeting", TimePhrase: "18:30"}}},
	}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "move my meeting to 18:30")
	assert.Contains(t, msg.Text, "team meeting")
	assert.Contains(t, msg.Text, "2026-09-18")
	assert.Contains(t, msg.Text, "18:30")

	msg = e.Process(ctx, user, "yes")
	assert.Contains(t, msg.Text, "updated")
	assert.Equal(t, int64(9), gotID)
	assert.Equal(t, "team meeting", gotFields.Task)
	assert.Equal(t, time.Date(2026, 9, 18, 18, 30, 0, 0, loc).UTC(), gotFields.DueAt)
}

func TestEditAsksWhatToChange(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	loc, _ := time.LoadLocation("Asia/Tehran")
	orig := &types.Reminder{
		ID: 9, UserID: 1, Task: "team meeting",
		DueAt: time.Date(2026, 9, 18, 15, 0, 0, 0, loc).UTC(),
	}
	rems := &fakeReminders{
		findFn: func(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
			return []*types.Reminder{orig}, nil
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentEdit, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{TargetReference: "meeting"}}},
	}}
	e := newTestEngine(t, states, rems, ex)

	msg := e.Process(ctx, testUser(), "change my meeting reminder")
	assert.Contains(t, msg.Text, "What should change")
}

func TestPanicInNodeResetsToIdle(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	rems := &fakeReminders{
		findFn: func(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
			panic("boom")
		},
	}
	ex := &scriptedExtractor{steps: []extractStep{
		{ext: nlu.Extraction{Intent: nlu.IntentDelete, Confidence: nlu.ConfidenceHigh, Params: nlu.Params{TargetReference: "x"}}},
	}}
	e := newTestEngine(t, states, rems, ex)
	user := testUser()

	msg := e.Process(ctx, user, "delete x")
	assert.Contains(t, msg.Text, "Something went wrong")
	assert.False(t, states.m[user.ID].InFlow())
}

func TestCancelCommand(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	ex := &scriptedExtractor{steps: []extractStep{create("call mom", "tomorrow", "5pm")}}
	e := newTestEngine(t, states, &fakeReminders{}, ex)
	user := testUser()

	msg := e.Cancel(ctx, user)
	assert.Contains(t, msg.Text, "Nothing to cancel")

	e.Process(ctx, user, "remind me to call mom tomorrow at 5pm")
	msg = e.Cancel(ctx, user)
	assert.Contains(t, msg.Text, "Cancelled")
}
