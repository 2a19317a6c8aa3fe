package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/types"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []format.Message
	chats []int64
	err   error
}

func (f *fakeSender) Send(ctx context.Context, chatID int64, msg format.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	f.chats = append(f.chats, chatID)
	return nil
}

type fakeUsers struct {
	user *types.User
}

func (f *fakeUsers) UpsertUser(ctx context.Context, u types.User) (*types.User, error) {
	return f.user, nil
}

func (f *fakeUsers) GetUserByTelegramID(ctx context.Context, telegramID int64) (*types.User, error) {
	return f.user, nil
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	return f.user, nil
}

func (f *fakeUsers) UpdateUserSettings(ctx context.Context, userID int64, locale string, cal types.Calendar, timezone string) error {
	return nil
}

func (f *fakeUsers) UpgradeTier(ctx context.Context, userID int64, tier types.SubscriptionTier, duration time.Duration) (*types.User, error) {
	return f.user, nil
}

type notifyStore struct {
	types.ReminderStore

	mu           sync.Mutex
	due          []*types.Reminder
	marked       []int64
	rescheduled  map[int64]time.Time
	markErr      error
}

func (s *notifyStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]*types.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.due, nil
}

func (s *notifyStore) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, id)
	return nil
}

func (s *notifyStore) RescheduleRecurring(ctx context.Context, id int64, nextDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rescheduled == nil {
		s.rescheduled = map[int64]time.Time{}
	}
	s.rescheduled[id] = nextDue
	return nil
}

func testNotifyUser() *types.User {
	return &types.User{
		ID:       1,
		ChatID:   77,
		Locale:   "en",
		Calendar: types.CalendarGregorian,
		Timezone: "Asia/Tehran",
	}
}

func TestDeliverMarksNotifiedAfterSend(t *testing.T) {
	sender := &fakeSender{}
	store := &notifyStore{}
	n := New(store, &fakeUsers{user: testNotifyUser()}, sender, time.Minute, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := &types.Reminder{ID: 5, UserID: 1, Task: "call mom", DueAt: time.Now().Add(-time.Minute), Recurrence: types.RecurrenceNone}
	n.deliver(context.Background(), r)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "call mom")
	assert.Equal(t, []int64{77}, sender.chats)
	assert.Equal(t, []int64{5}, store.marked)
}

func TestDeliverFailedSendDoesNotMark(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram unavailable")}
	store := &notifyStore{}
	n := New(store, &fakeUsers{user: testNotifyUser()}, sender, time.Minute, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := &types.Reminder{ID: 5, UserID: 1, Task: "call mom", DueAt: time.Now().Add(-time.Minute)}
	n.deliver(context.Background(), r)

	assert.Empty(t, store.marked)
	assert.Empty(t, store.rescheduled)
}

func TestDeliverRecurringReschedulesInsteadOfMarking(t *testing.T) {
	sender := &fakeSender{}
	store := &notifyStore{}
	n := New(store, &fakeUsers{user: testNotifyUser()}, sender, time.Minute, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	due := time.Now().Add(-time.Hour)
	r := &types.Reminder{ID: 9, UserID: 1, Task: "take pill", DueAt: due, Recurrence: types.RecurrenceDaily}
	n.deliver(context.Background(), r)

	require.Len(t, sender.sent, 1)
	assert.Empty(t, store.marked)
	next, ok := store.rescheduled[9]
	require.True(t, ok)
	assert.True(t, next.After(time.Now()))
}

func TestClaimPreventsDoubleEnqueue(t *testing.T) {
	n := New(&notifyStore{}, &fakeUsers{user: testNotifyUser()}, &fakeSender{}, time.Minute, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.True(t, n.claim(3))
	assert.False(t, n.claim(3))
	n.release(3)
	assert.True(t, n.claim(3))
}

func TestNextOccurrenceSkipsMissed(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tehran")
	require.NoError(t, err)

	due := time.Date(2026, 9, 1, 9, 0, 0, 0, loc)
	now := time.Date(2026, 9, 16, 10, 0, 0, 0, loc)

	next := NextOccurrence(due.UTC(), now.UTC(), types.RecurrenceDaily, loc)
	assert.Equal(t, time.Date(2026, 9, 17, 9, 0, 0, 0, loc).UTC(), next)

	next = NextOccurrence(due.UTC(), now.UTC(), types.RecurrenceWeekly, loc)
	assert.Equal(t, time.Date(2026, 9, 22, 9, 0, 0, 0, loc).UTC(), next)

	next = NextOccurrence(due.UTC(), now.UTC(), types.RecurrenceMonthly, loc)
	assert.Equal(t, time.Date(2026, 10, 1, 9, 0, 0, 0, loc).UTC(), next)
}

func TestNextOccurrenceAlreadyFuture(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Tehran")
	due := time.Date(2026, 9, 20, 9, 0, 0, 0, loc)
	now := time.Date(2026, 9, 16, 10, 0, 0, 0, loc)

	next := NextOccurrence(due.UTC(), now.UTC(), types.RecurrenceDaily, loc)
	assert.Equal(t, due.UTC(), next)
}
