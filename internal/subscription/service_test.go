package subscription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/go-newsletter/svc/internal/errors"
	"github.com/go-newsletter/svc/internal/email"
	"github.com/go-newsletter/svc/internal/models"
)

type fakeRepo struct {
	subscribers map[string]models.Subscriber // keyed by id
	tokens      map[string]string            // token -> subscriber id
	createErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		subscribers: map[string]models.Subscriber{},
		tokens:      map[string]string{},
	}
}

func (r *fakeRepo) CreateSubscriber(_ context.Context, sub models.Subscriber, token string) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.subscribers[sub.ID] = sub
	r.tokens[token] = sub.ID
	return nil
}

func (r *fakeRepo) SubscriberIDForToken(_ context.Context, token string) (string, error) {
	id, ok := r.tokens[token]
	if !ok {
		return "", apperrors.ErrSubscriberNotFoundForToken
	}
	return id, nil
}

func (r *fakeRepo) ConfirmSubscriber(_ context.Context, subscriberID string) error {
	sub, ok := r.subscribers[subscriberID]
	if !ok {
		return apperrors.ErrSubscriberNotFound
	}
	sub.Status = models.SubscriberStatusConfirmed
	r.subscribers[subscriberID] = sub
	return nil
}

type recordingSender struct {
	sent []email.Message
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

func TestSubscribe_ValidInput(t *testing.T) {
	repo := newFakeRepo()
	sender := &recordingSender{}
	svc := NewService(repo, sender, "noreply@example.com", "https://example.com")

	err := svc.Subscribe(context.Background(), "le guin", "ursula_le_guin@gmail.com")
	require.NoError(t, err)

	require.Len(t, repo.subscribers, 1)
	require.Len(t, sender.sent, 1)

	var sub models.Subscriber
	for _, s := range repo.subscribers {
		sub = s
	}
	assert.Equal(t, models.SubscriberStatusPendingConfirmation, sub.Status)
	assert.Equal(t, "ursula_le_guin@gmail.com", sub.Email)

	msg := sender.sent[0]
	assert.Contains(t, msg.HTMLBody, "/subscriptions/confirm?subscription_token=")
	assert.Contains(t, msg.TextBody, "/subscriptions/confirm?subscription_token=")

	// Both variants embed the same token.
	var token string
	for tok := range repo.tokens {
		token = tok
	}
	assert.Contains(t, msg.HTMLBody, token)
	assert.Contains(t, msg.TextBody, token)
	assert.Len(t, token, tokenLength)
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	repo := newFakeRepo()
	sender := &recordingSender{}
	svc := NewService(repo, sender, "noreply@example.com", "https://example.com")

	err := svc.Subscribe(context.Background(), "Ursula", "definitely-not-a-valid-email")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmail)
	assert.Empty(t, repo.subscribers)
	assert.Empty(t, sender.sent)
}

func TestSubscribe_InvalidName(t *testing.T) {
	repo := newFakeRepo()
	sender := &recordingSender{}
	svc := NewService(repo, sender, "noreply@example.com", "https://example.com")

	tests := []string{"", "   ", "Bad/Name", `Bad"Name`}
	for _, name := range tests {
		err := svc.Subscribe(context.Background(), name, "valid@example.com")
		assert.Error(t, err, "name %q should be rejected", name)
	}
	assert.Empty(t, repo.subscribers)
}

func TestConfirm_HappyPathThenIdempotent(t *testing.T) {
	repo := newFakeRepo()
	sender := &recordingSender{}
	svc := NewService(repo, sender, "noreply@example.com", "https://example.com")

	require.NoError(t, svc.Subscribe(context.Background(), "le guin", "ursula@example.com"))

	var token string
	for tok := range repo.tokens {
		token = tok
	}

	require.NoError(t, svc.Confirm(context.Background(), token))

	var sub models.Subscriber
	for _, s := range repo.subscribers {
		sub = s
	}
	assert.Equal(t, models.SubscriberStatusConfirmed, sub.Status)

	// Confirming again (token reuse) is a no-op success, not an error.
	assert.NoError(t, svc.Confirm(context.Background(), token))
}

func TestConfirm_UnknownToken(t *testing.T) {
	repo := newFakeRepo()
	sender := &recordingSender{}
	svc := NewService(repo, sender, "noreply@example.com", "https://example.com")

	err := svc.Confirm(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, apperrors.ErrSubscriberNotFoundForToken)
}
