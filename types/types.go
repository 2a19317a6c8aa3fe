package types

import "time"

type SubscriptionTier string

const (
	TierFree     SubscriptionTier = "FREE"
	TierStandard SubscriptionTier = "STANDARD"
	TierPremium  SubscriptionTier = "PREMIUM"
)

type Calendar string

const (
	CalendarJalali    Calendar = "jalali"
	CalendarGregorian Calendar = "gregorian"
)

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

type User struct {
	ID            int64
	TelegramID    int64
	ChatID        int64
	FirstName     string
	LastName      string
	Username      string
	Locale        string
	Calendar      Calendar
	Timezone      string
	Tier          SubscriptionTier
	TierExpiresAt *time.Time
	ReminderCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectiveTier treats an expired paid tier as FREE without mutating the row.
func (u *User) EffectiveTier(now time.Time) SubscriptionTier {
	if u.Tier == TierFree {
		return TierFree
	}
	if u.TierExpiresAt != nil && !u.TierExpiresAt.After(now) {
		return TierFree
	}
	return u.Tier
}

type Reminder struct {
	ID             int64
	UserID         int64
	Task           string
	DueAt          time.Time
	Recurrence     Recurrence
	IsActive       bool
	IsNotified     bool
	NotifiedAt     *time.Time
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentAttempt struct {
	ID         int64
	UserID     int64
	TrackID    string
	Amount     int64
	Status     PaymentStatus
	VerifiedAt *time.Time
	CreatedAt  time.Time
}
