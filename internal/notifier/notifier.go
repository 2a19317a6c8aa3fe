// Package notifier delivers due reminders. A ticker sweeps the store for due
// rows and hands them to a small worker pool; a reminder is only marked
// notified after Telegram acknowledges the send, so a crash between the two
// re-delivers rather than silently drops.
package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/metrics"
	"github.com/yadbot/yadbot/types"
)

const sweepBatchSize = 100

// Sender is the outbound messaging dependency, implemented by the Telegram
// glue layer.
type Sender interface {
	Send(ctx context.Context, chatID int64, msg format.Message) error
}

type Notifier struct {
	reminders types.ReminderStore
	users     types.UserStore
	sender    Sender
	interval  time.Duration
	workers   int
	log       *slog.Logger

	now    func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
	queue  chan *types.Reminder

	// inFlight keeps a slow send from being re-enqueued by the next sweep.
	inFlightMu sync.Mutex
	inFlight   map[int64]struct{}
}

func New(reminders types.ReminderStore, users types.UserStore, sender Sender, interval time.Duration, workers int, log *slog.Logger) *Notifier {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if workers <= 0 {
		workers = 3
	}
	return &Notifier{
		reminders: reminders,
		users:     users,
		sender:    sender,
		interval:  interval,
		workers:   workers,
		log:       log,
		now:       time.Now,
		queue:     make(chan *types.Reminder, sweepBatchSize),
		inFlight:  make(map[int64]struct{}),
	}
}

func (n *Notifier) Start(ctx context.Context) {
	ctx, n.cancel = context.WithCancel(ctx)

	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(ctx)
	}

	n.wg.Add(1)
	go n.sweepLoop(ctx)

	n.log.Info("notifier started", slog.Int("workers", n.workers), slog.Duration("interval", n.interval))
}

func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
	n.log.Info("notifier stopped")
}

func (n *Notifier) sweepLoop(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	// An immediate sweep on startup delivers anything that came due while
	// the process was down.
	n.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.sweep(ctx)
		}
	}
}

func (n *Notifier) sweep(ctx context.Context) {
	due, err := n.reminders.DueReminders(ctx, n.now(), sweepBatchSize)
	if err != nil {
		n.log.Error("sweeping due reminders failed", sl.Err(err))
		return
	}

	for _, r := range due {
		if !n.claim(r.ID) {
			continue
		}
		select {
		case n.queue <- r:
		case <-ctx.Done():
			n.release(r.ID)
			return
		}
	}
}

func (n *Notifier) claim(id int64) bool {
	n.inFlightMu.Lock()
	defer n.inFlightMu.Unlock()
	if _, ok := n.inFlight[id]; ok {
		return false
	}
	n.inFlight[id] = struct{}{}
	return true
}

func (n *Notifier) release(id int64) {
	n.inFlightMu.Lock()
	delete(n.inFlight, id)
	n.inFlightMu.Unlock()
}

func (n *Notifier) worker(ctx context.Context) {
	defer n.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case r := <-n.queue:
			n.deliver(ctx, r)
			n.release(r.ID)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, r *types.Reminder) {
	user, err := n.users.GetUserByID(ctx, r.UserID)
	if err != nil {
		n.log.Error("loading reminder owner failed",
			slog.Int64("reminder_id", r.ID), slog.Int64("user_id", r.UserID), sl.Err(err))
		return
	}
	p := format.PrefsFor(user)

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = n.sender.Send(sendCtx, user.ChatID, format.Notification(r, p))
	cancel()
	if err != nil {
		metrics.NotificationFailures.Inc()
		n.log.Error("sending notification failed", slog.Int64("reminder_id", r.ID), sl.Err(err))
		return
	}
	metrics.NotificationsSent.Inc()

	now := n.now()
	if r.Recurrence == types.RecurrenceNone || r.Recurrence == "" {
		if err := n.reminders.MarkNotified(ctx, r.ID, now); err != nil {
			n.log.Error("marking reminder notified failed", slog.Int64("reminder_id", r.ID), sl.Err(err))
		}
		return
	}

	next := NextOccurrence(r.DueAt, now, r.Recurrence, p.Location)
	if err := n.reminders.RescheduleRecurring(ctx, r.ID, next); err != nil {
		n.log.Error("rescheduling recurring reminder failed", slog.Int64("reminder_id", r.ID), sl.Err(err))
	}
}

// NextOccurrence advances a recurring due instant past now, skipping any
// occurrences missed while the process was down. Stepping happens in the
// user's timezone so a daily 9:00 reminder stays at 9:00 across DST shifts.
func NextOccurrence(due, now time.Time, rec types.Recurrence, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	next := due.In(loc)
	local := now.In(loc)
	for !next.After(local) {
		switch rec {
		case types.RecurrenceDaily:
			next = next.AddDate(0, 0, 1)
		case types.RecurrenceWeekly:
			next = next.AddDate(0, 0, 7)
		case types.RecurrenceMonthly:
			next = next.AddDate(0, 1, 0)
		default:
			return next.UTC()
		}
	}
	return next.UTC()
}
