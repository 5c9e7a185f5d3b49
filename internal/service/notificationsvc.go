package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"skillswap/internal/domain"
	"skillswap/internal/email"
	"skillswap/internal/metrics"
	"skillswap/internal/notifications"
)

const defaultDeliveryTimeout = 10 * time.Second

type NotificationTokensStore interface {
	UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error)
	DeleteToken(ctx context.Context, userID, token string) error
	DeleteTokenValue(ctx context.Context, token string) error
	ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error)
}

type PushSender interface {
	Send(ctx context.Context, token string, msg notifications.Message) error
}

type MailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

// NotificationService fans domain events out to push and email. Notify
// returns at once; delivery happens on a detached context and failures are
// only logged.
type NotificationService struct {
	Tokens  NotificationTokensStore
	Users   UserReader
	Push    PushSender
	Mail    MailSender
	Logger  *slog.Logger
	Now     func() time.Time
	Timeout time.Duration

	wg sync.WaitGroup
}

func (s *NotificationService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *NotificationService) RegisterToken(ctx context.Context, userID, token, platform string) (domain.NotificationToken, error) {
	token = strings.TrimSpace(token)
	platform = strings.TrimSpace(strings.ToLower(platform))

	fields := map[string]string{}
	if token == "" {
		fields["token"] = "required"
	}
	switch platform {
	case "android", "ios":
	case "":
		fields["platform"] = "required"
	default:
		fields["platform"] = "must be ios or android"
	}
	if len(fields) > 0 {
		return domain.NotificationToken{}, domain.NewValidationError(fields)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.Tokens.UpsertToken(ctx, userID, token, platform, now().UTC().Truncate(time.Millisecond))
}

func (s *NotificationService) DeleteToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError(map[string]string{"token": "required"})
	}
	return s.Tokens.DeleteToken(ctx, userID, token)
}

func (s *NotificationService) Notify(ctx context.Context, ev domain.Event) {
	if s == nil {
		return
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	detached := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()
		if err := s.Deliver(ctx, ev); err != nil {
			s.logger().Warn("notification delivery failed", "kind", ev.Kind, "user_id", ev.UserID, "err", err)
		}
	}()
}

// Wait blocks until every delivery started by Notify has finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// Deliver sends ev to its recipient synchronously. Push failures for
// individual devices do not stop the email.
func (s *NotificationService) Deliver(ctx context.Context, ev domain.Event) error {
	recipient, err := s.Users.GetUserByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	actorName := "Someone"
	if ev.ActorID != "" && ev.Kind != domain.EventUserBanned {
		if actor, err := s.Users.GetUserByID(ctx, ev.ActorID); err == nil && actor.Name != "" {
			actorName = actor.Name
		}
	}
	title, body := compose(ev, actorName)

	if s.Push != nil && s.Tokens != nil {
		s.push(ctx, ev, title, body)
	}
	if s.Mail != nil && recipient.Email != "" {
		err := s.Mail.Send(ctx, email.Message{
			To:      recipient.Email,
			Subject: title,
			Body:    "Hi " + recipient.Name + ",\n\n" + body + "\n",
		})
		metrics.RecordNotification("email", err)
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	}
	return nil
}

func (s *NotificationService) push(ctx context.Context, ev domain.Event, title, body string) {
	log := s.logger().With("user_id", ev.UserID, "kind", ev.Kind)

	tokens, err := s.Tokens.ListTokens(ctx, ev.UserID)
	if err != nil {
		log.Error("notifications: list tokens failed", "err", err)
		return
	}

	data := map[string]string{"type": string(ev.Kind)}
	if ev.SwapID != "" {
		data["swap_id"] = ev.SwapID
	}
	dataOnly := notifications.Message{Data: data}
	alert := notifications.Message{Data: data, Notification: &notifications.Notification{Title: title, Body: body}}

	for _, t := range tokens {
		msg := dataOnly
		if strings.EqualFold(t.Platform, "ios") {
			msg = alert
		}
		err := s.Push.Send(ctx, t.Token, msg)
		metrics.RecordNotification("push", err)
		if err == nil {
			continue
		}
		if errors.Is(err, notifications.ErrUnregistered) {
			if delErr := s.Tokens.DeleteTokenValue(ctx, t.Token); delErr != nil {
				log.Error("notifications: delete unregistered token failed", "err", delErr)
			}
			continue
		}
		log.Error("notifications: push failed", "err", err)
	}
}

func compose(ev domain.Event, actor string) (string, string) {
	skill := ev.SkillWanted
	switch ev.Kind {
	case domain.EventSwapRequested:
		return "New swap request", fmt.Sprintf("%s would like to learn %s from you.", actor, skill)
	case domain.EventSwapAccepted:
		return "Swap request accepted", fmt.Sprintf("%s accepted your request to learn %s.", actor, skill)
	case domain.EventSwapRejected:
		return "Swap request declined", fmt.Sprintf("%s declined your request to learn %s.", actor, skill)
	case domain.EventSwapCompleted:
		return "Swap completed", fmt.Sprintf("%s marked your %s swap as completed and left you a rating.", actor, skill)
	case domain.EventSwapCancelled:
		body := fmt.Sprintf("The swap for %s with %s was cancelled.", skill, actor)
		if ev.Reason != "" {
			body += " Reason: " + ev.Reason + "."
		}
		return "Swap cancelled", body
	case domain.EventUserBanned:
		body := "Your account has been suspended by an administrator."
		if ev.Reason != "" {
			body += " Reason: " + ev.Reason
		}
		return "Account suspended", body
	}
	return "Skill Swap", "You have a new notification."
}
