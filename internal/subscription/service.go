// Package subscription implements the double-opt-in subscriber lifecycle:
// the subscription service (component E) and the confirmation service
// (component F). Both share a Repository and deal exclusively in already-
// validated data once past Subscribe's entry point.
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/go-newsletter/svc/internal/errors"
	"github.com/go-newsletter/svc/internal/email"
	"github.com/go-newsletter/svc/internal/models"
)

// Service composes the persistence and email capabilities Subscribe and
// Confirm need.
type Service struct {
	repo    Repository
	sender  email.Transport
	from    string
	baseURL string
}

// NewService builds a Service. baseURL is used to construct the
// confirmation link embedded in the confirmation email; from is the
// envelope sender address passed to sender.
func NewService(repo Repository, sender email.Transport, from, baseURL string) *Service {
	return &Service{repo: repo, sender: sender, from: from, baseURL: baseURL}
}

// Subscribe validates name and email, persists a new pending_confirmation
// subscriber with a fresh token in one transaction, and sends a confirmation
// email whose link embeds that token (spec §4.1). It returns only after all
// four steps succeed; the caller maps the specific failed step to a 500,
// except ValidationError which maps to 422.
func (s *Service) Subscribe(ctx context.Context, name, rawEmail string) error {
	if err := validateName(name); err != nil {
		return err
	}
	normalizedEmail, err := validateEmail(rawEmail)
	if err != nil {
		return err
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInternal, err)
	}

	sub := models.Subscriber{
		ID:           uuid.NewString(),
		Email:        normalizedEmail,
		Name:         name,
		SubscribedAt: time.Now().UTC(),
		Status:       models.SubscriberStatusPendingConfirmation,
	}

	if err := s.repo.CreateSubscriber(ctx, sub, token); err != nil {
		return err
	}

	if err := s.sendConfirmationEmail(ctx, sub, token); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSendEmail, err)
	}
	return nil
}

func (s *Service) sendConfirmationEmail(ctx context.Context, sub models.Subscriber, token string) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, token)

	msg := email.Message{
		From:    s.from,
		To:      sub.Email,
		Subject: "Welcome!",
		HTMLBody: fmt.Sprintf(
			`Welcome to our newsletter!<br/>Click <a href="%s">here</a> to confirm.`, link),
		TextBody: fmt.Sprintf(
			"Welcome to our newsletter!\nVisit %s to confirm your subscription.", link),
	}

	return s.sender.Send(ctx, msg)
}

// Confirm resolves token to a subscriber and promotes its status to
// confirmed (spec §4.2). It is idempotent: confirming an already-confirmed
// subscriber, or re-confirming via the same token twice, both succeed — the
// token is never invalidated after first use (spec §4.2 token reuse policy).
func (s *Service) Confirm(ctx context.Context, token string) error {
	subscriberID, err := s.repo.SubscriberIDForToken(ctx, token)
	if err != nil {
		return err
	}
	return s.repo.ConfirmSubscriber(ctx, subscriberID)
}
