package types

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTierLimitReached is returned by CreateReminder when the user is at
	// their active-reminder cap. Nothing is inserted.
	ErrTierLimitReached = errors.New("active reminder limit reached")

	// ErrNotFound is returned when a row does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")
)

// ReminderFilters narrows a listing. Zero values mean "no filter".
type ReminderFilters struct {
	Keyword string
	From    *time.Time
	To      *time.Time
}

const ListPageSize = 10

type ReminderFields struct {
	Task       string
	DueAt      time.Time
	Recurrence Recurrence
}

type UserStore interface {
	UpsertUser(ctx context.Context, u User) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	UpdateUserSettings(ctx context.Context, userID int64, locale string, cal Calendar, timezone string) error
	UpgradeTier(ctx context.Context, userID int64, tier SubscriptionTier, duration time.Duration) (*User, error)
}

type ReminderStore interface {
	// CreateReminder performs the tier-limit check and the insert as one
	// atomic unit per user. A repeat call with the same idempotency key
	// returns the already-committed reminder.
	CreateReminder(ctx context.Context, userID int64, fields ReminderFields, limit int, idemKey string) (*Reminder, error)
	UpdateReminder(ctx context.Context, id int64, fields ReminderFields) (*Reminder, error)
	SoftDeleteReminder(ctx context.Context, id int64) error
	GetReminder(ctx context.Context, id int64) (*Reminder, error)
	ListActive(ctx context.Context, userID int64, filters ReminderFilters, page int) (items []*Reminder, hasMore bool, err error)
	CountActive(ctx context.Context, userID int64) (int, error)
	FindActiveByKeyword(ctx context.Context, userID int64, keyword string, limit int) ([]*Reminder, error)

	DueReminders(ctx context.Context, now time.Time, limit int) ([]*Reminder, error)
	MarkNotified(ctx context.Context, id int64, at time.Time) error
	RescheduleRecurring(ctx context.Context, id int64, nextDue time.Time) error
	// Snooze pushes an already-notified reminder back into the due queue.
	Snooze(ctx context.Context, id int64, until time.Time) error
}

type PaymentStore interface {
	CreatePaymentAttempt(ctx context.Context, p PaymentAttempt) (*PaymentAttempt, error)
	GetPaymentByTrackID(ctx context.Context, trackID string) (*PaymentAttempt, error)
	// SettlePayment records the verification outcome exactly once; a second
	// settle of the same attempt reports settled=false.
	SettlePayment(ctx context.Context, trackID string, status PaymentStatus, at time.Time) (settled bool, err error)
}

// StateStore checkpoints DialogueState between turns, keyed by user.
type StateStore interface {
	GetState(ctx context.Context, userID int64) (*DialogueState, error)
	SaveState(ctx context.Context, state *DialogueState) error
	DeleteState(ctx context.Context, userID int64) error
}
