package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/yadbot/yadbot/types"
)

// PostgresStore is the durable backend for users, reminders, and payment
// attempts. Migrations run at construction so the schema is always current
// before the bot starts taking traffic.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

const userColumns = `id, telegram_id, chat_id, first_name, last_name, username, locale, calendar, timezone, tier, tier_expires_at, reminder_count, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.ChatID, &u.FirstName, &u.LastName, &u.Username,
		&u.Locale, &u.Calendar, &u.Timezone, &u.Tier, &u.TierExpiresAt, &u.ReminderCount, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser creates or refreshes the profile row. Preference columns are
// only seeded on first insert; later updates touch identity fields alone.
func (s *PostgresStore) UpsertUser(ctx context.Context, u types.User) (*types.User, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	row := s.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, chat_id, first_name, last_name, username, locale, calendar, timezone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (telegram_id) DO UPDATE SET
  chat_id = EXCLUDED.chat_id,
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  username = EXCLUDED.username,
  updated_at = NOW()
RETURNING `+userColumns,
		u.TelegramID, u.ChatID, strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName),
		strings.TrimSpace(u.Username), u.Locale, u.Calendar, u.Timezone)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (*types.User, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresStore) UpdateUserSettings(ctx context.Context, userID int64, locale string, cal types.Calendar, timezone string) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE users
SET locale = $2, calendar = $3, timezone = $4, updated_at = NOW()
WHERE id = $1
`, userID, locale, cal, timezone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// UpgradeTier extends from the current expiry when the subscription is still
// running, so paying early never costs the user days.
func (s *PostgresStore) UpgradeTier(ctx context.Context, userID int64, tier types.SubscriptionTier, duration time.Duration) (*types.User, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	var currentExpires *time.Time
	err = tx.QueryRow(ctx, `
SELECT tier_expires_at FROM users WHERE id = $1 FOR UPDATE
`, userID).Scan(&currentExpires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	base := now
	if currentExpires != nil && currentExpires.After(base) {
		base = *currentExpires
	}
	newExpires := base.Add(duration)

	row := tx.QueryRow(ctx, `
UPDATE users
SET tier = $2, tier_expires_at = $3, updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns, userID, tier, newExpires)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

const reminderColumns = `id, user_id, task, due_at, recurrence, is_active, is_notified, notified_at, idempotency_key, created_at, updated_at`

func scanReminder(row pgx.Row) (*types.Reminder, error) {
	var r types.Reminder
	err := row.Scan(&r.ID, &r.UserID, &r.Task, &r.DueAt, &r.Recurrence, &r.IsActive,
		&r.IsNotified, &r.NotifiedAt, &r.IdempotencyKey, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReminder checks the tier limit against the user's reminder_count and
// inserts in one transaction, bumping the counter with the insert. The user
// row is locked so two concurrent creates cannot both pass the limit check,
// and the idempotency key makes a re-confirmed commit return the row that
// already exists instead of inserting twice.
func (s *PostgresStore) CreateReminder(ctx context.Context, userID int64, fields types.ReminderFields, limit int, idemKey string) (*types.Reminder, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Replay of an already-committed confirmation.
	existing, err := scanReminder(tx.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE idempotency_key = $1`, idemKey))
	if err == nil {
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return nil, commitErr
		}
		return existing, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	var active int
	err = tx.QueryRow(ctx, `SELECT reminder_count FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if active >= limit {
		return nil, types.ErrTierLimitReached
	}

	row := tx.QueryRow(ctx, `
INSERT INTO reminders (user_id, task, due_at, recurrence, idempotency_key)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+reminderColumns,
		userID, strings.TrimSpace(fields.Task), fields.DueAt.UTC(), fields.Recurrence, idemKey)
	r, err := scanReminder(row)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET reminder_count = reminder_count + 1, updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) UpdateReminder(ctx context.Context, id int64, fields types.ReminderFields) (*types.Reminder, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	row := s.pool.QueryRow(ctx, `
UPDATE reminders
SET task = $2, due_at = $3, recurrence = $4, is_notified = FALSE, notified_at = NULL, updated_at = NOW()
WHERE id = $1 AND is_active
RETURNING `+reminderColumns,
		id, strings.TrimSpace(fields.Task), fields.DueAt.UTC(), fields.Recurrence)
	return scanReminder(row)
}

// SoftDeleteReminder deactivates the row and releases its slot in the user's
// reminder_count, in one transaction so the counter never drifts.
func (s *PostgresStore) SoftDeleteReminder(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID int64
	err = tx.QueryRow(ctx, `
UPDATE reminders SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active
RETURNING user_id
`, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
UPDATE users SET reminder_count = GREATEST(reminder_count - 1, 0), updated_at = NOW() WHERE id = $1
`, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetReminder(ctx context.Context, id int64) (*types.Reminder, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	row := s.pool.QueryRow(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = $1 AND is_active`, id)
	return scanReminder(row)
}

// ListActive fetches one page plus a lookahead row so the caller knows
// whether a next page exists without a second count query.
func (s *PostgresStore) ListActive(ctx context.Context, userID int64, filters types.ReminderFilters, page int) ([]*types.Reminder, bool, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE user_id = $1 AND is_active`
	args := []any{userID}
	if kw := strings.TrimSpace(filters.Keyword); kw != "" {
		args = append(args, "%"+kw+"%")
		query += fmt.Sprintf(" AND task ILIKE $%d", len(args))
	}
	if filters.From != nil {
		args = append(args, filters.From.UTC())
		query += fmt.Sprintf(" AND due_at >= $%d", len(args))
	}
	if filters.To != nil {
		args = append(args, filters.To.UTC())
		query += fmt.Sprintf(" AND due_at <= $%d", len(args))
	}
	args = append(args, types.ListPageSize+1, page*types.ListPageSize)
	query += fmt.Sprintf(" ORDER BY due_at ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var items []*types.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, false, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(items) > types.ListPageSize
	if hasMore {
		items = items[:types.ListPageSize]
	}
	return items, hasMore, nil
}

func (s *PostgresStore) CountActive(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT reminder_count FROM users WHERE id = $1`, userID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, types.ErrNotFound
	}
	return n, err
}

func (s *PostgresStore) FindActiveByKeyword(ctx context.Context, userID int64, keyword string, limit int) ([]*types.Reminder, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT `+reminderColumns+`
FROM reminders
WHERE user_id = $1 AND is_active AND task ILIKE $2
ORDER BY due_at ASC
LIMIT $3
`, userID, "%"+strings.TrimSpace(keyword)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*types.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (s *PostgresStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]*types.Reminder, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT `+reminderColumns+`
FROM reminders
WHERE is_active AND NOT is_notified AND due_at <= $1
ORDER BY due_at ASC
LIMIT $2
`, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*types.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (s *PostgresStore) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE reminders SET is_notified = TRUE, notified_at = $2, updated_at = NOW() WHERE id = $1
`, id, at.UTC())
	return err
}

func (s *PostgresStore) RescheduleRecurring(ctx context.Context, id int64, nextDue time.Time) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE reminders
SET due_at = $2, is_notified = FALSE, notified_at = NULL, updated_at = NOW()
WHERE id = $1 AND is_active
`, id, nextDue.UTC())
	return err
}

func (s *PostgresStore) Snooze(ctx context.Context, id int64, until time.Time) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE reminders
SET due_at = $2, is_notified = FALSE, notified_at = NULL, updated_at = NOW()
WHERE id = $1 AND is_active
`, id, until.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

const paymentColumns = `id, user_id, track_id, amount, status, verified_at, created_at`

func scanPayment(row pgx.Row) (*types.PaymentAttempt, error) {
	var p types.PaymentAttempt
	err := row.Scan(&p.ID, &p.UserID, &p.TrackID, &p.Amount, &p.Status, &p.VerifiedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreatePaymentAttempt(ctx context.Context, p types.PaymentAttempt) (*types.PaymentAttempt, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	row := s.pool.QueryRow(ctx, `
INSERT INTO payment_attempts (user_id, track_id, amount, status)
VALUES ($1, $2, $3, 'pending')
RETURNING `+paymentColumns, p.UserID, strings.TrimSpace(p.TrackID), p.Amount)
	return scanPayment(row)
}

func (s *PostgresStore) GetPaymentByTrackID(ctx context.Context, trackID string) (*types.PaymentAttempt, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	row := s.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_attempts WHERE track_id = $1`, trackID)
	return scanPayment(row)
}

// SettlePayment flips a pending attempt exactly once. A callback replay hits
// the status guard and reports settled=false, so the tier is never extended
// twice for one payment.
func (s *PostgresStore) SettlePayment(ctx context.Context, trackID string, status types.PaymentStatus, at time.Time) (bool, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE payment_attempts
SET status = $2, verified_at = $3
WHERE track_id = $1 AND status = 'pending'
`, trackID, status, at.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
