package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yadbot/yadbot/internal/calendar"
	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/internal/metrics"
	"github.com/yadbot/yadbot/internal/notifier"
	"github.com/yadbot/yadbot/types"
)

// subscriptionDuration is what one settled payment buys.
const subscriptionDuration = 30 * 24 * time.Hour

// Gateway is the external payment provider surface.
type Gateway interface {
	Request(ctx context.Context, amount int64, callbackURL, description, orderID string) (string, error)
	PaymentURL(trackID string) string
	Verify(ctx context.Context, trackID string) (*VerifyResult, error)
}

type Service struct {
	gateway     Gateway
	payments    types.PaymentStore
	users       types.UserStore
	sender      notifier.Sender
	amount      int64
	callbackURL string
	log         *slog.Logger

	now func() time.Time
}

func NewService(gateway Gateway, payments types.PaymentStore, users types.UserStore, sender notifier.Sender, amount int64, callbackURL string, log *slog.Logger) *Service {
	return &Service{
		gateway:     gateway,
		payments:    payments,
		users:       users,
		sender:      sender,
		amount:      amount,
		callbackURL: callbackURL,
		log:         log,
		now:         time.Now,
	}
}

// CreateLink registers a new payment attempt with the gateway and returns
// the URL the user should open.
func (s *Service) CreateLink(ctx context.Context, user *types.User) (string, error) {
	orderID := fmt.Sprintf("yadbot-%d-%d", user.ID, s.now().Unix())
	description := fmt.Sprintf("Reminder bot subscription for user %d", user.ID)

	trackID, err := s.gateway.Request(ctx, s.amount, s.callbackURL, description, orderID)
	if err != nil {
		return "", fmt.Errorf("request payment: %w", err)
	}

	_, err = s.payments.CreatePaymentAttempt(ctx, types.PaymentAttempt{
		UserID:  user.ID,
		TrackID: trackID,
		Amount:  s.amount,
	})
	if err != nil {
		return "", fmt.Errorf("record payment attempt: %w", err)
	}

	s.log.Info("payment link created", slog.Int64("user_id", user.ID), slog.String("track_id", trackID))
	return s.gateway.PaymentURL(trackID), nil
}

// HandleCallback processes a gateway callback for one track id. The outcome
// is taken from a server-side verify call, never from the callback itself,
// and the tier upgrade happens only for the first settle of an attempt.
func (s *Service) HandleCallback(ctx context.Context, trackID string) (succeeded bool, err error) {
	attempt, err := s.payments.GetPaymentByTrackID(ctx, trackID)
	if errors.Is(err, types.ErrNotFound) {
		return false, fmt.Errorf("unknown payment attempt %q", trackID)
	}
	if err != nil {
		return false, err
	}

	verdict, err := s.gateway.Verify(ctx, trackID)
	if err != nil {
		// Verification unreachable is not a failed payment; the attempt stays
		// pending and a later callback or retry can still settle it.
		s.notify(ctx, attempt.UserID, func(p format.Prefs) string {
			return messages.PaymentPending(p.Lang)
		})
		return false, fmt.Errorf("verify payment %q: %w", trackID, err)
	}

	if !verdict.Paid() {
		settled, err := s.payments.SettlePayment(ctx, trackID, types.PaymentFailed, s.now())
		if err != nil {
			return false, err
		}
		if settled {
			metrics.PaymentsSettled.WithLabelValues("failed").Inc()
			s.notify(ctx, attempt.UserID, func(p format.Prefs) string {
				return messages.PaymentFailed(p.Lang)
			})
		}
		return false, nil
	}

	settled, err := s.payments.SettlePayment(ctx, trackID, types.PaymentSucceeded, s.now())
	if err != nil {
		return false, err
	}
	if !settled {
		// Callback replay of an already-settled attempt.
		return true, nil
	}
	metrics.PaymentsSettled.WithLabelValues("succeeded").Inc()

	user, err := s.users.UpgradeTier(ctx, attempt.UserID, types.TierPremium, subscriptionDuration)
	if err != nil {
		s.log.Error("tier upgrade after settled payment failed",
			slog.Int64("user_id", attempt.UserID), slog.String("track_id", trackID), sl.Err(err))
		return true, err
	}

	s.notify(ctx, user.ID, func(p format.Prefs) string {
		until := ""
		if user.TierExpiresAt != nil {
			until, _ = calendar.FormatDateTime(*user.TierExpiresAt, p.Calendar, p.Location)
		}
		return messages.PaymentVerified(p.Lang, until)
	})

	s.log.Info("payment settled and tier upgraded",
		slog.Int64("user_id", user.ID), slog.String("track_id", trackID))
	return true, nil
}

func (s *Service) notify(ctx context.Context, userID int64, text func(format.Prefs) string) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.log.Warn("loading user for payment notice failed", slog.Int64("user_id", userID), sl.Err(err))
		return
	}
	p := format.PrefsFor(user)
	if err := s.sender.Send(ctx, user.ChatID, format.Text(text(p))); err != nil {
		s.log.Warn("sending payment notice failed", slog.Int64("user_id", userID), sl.Err(err))
	}
}
