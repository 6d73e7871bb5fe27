// Package web is the HTTP surface (spec §6): chi router, handlers, and the
// middleware chain (request logging, panic recovery, request timeout,
// RequireLogin). It is deliberately thin — every handler's job is to
// extract/validate a request, call into the component that owns the
// behavior (internal/subscription, internal/auth, internal/publish,
// internal/session), and map the result to a status code and body.
package web

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/go-newsletter/svc/internal/idempotency"
)

// SubscriptionService is the capability handleSubscribe/handleConfirm need.
// Satisfied by *subscription.Service; narrowed to an interface here so
// handlers can be unit-tested against a fake, matching the teacher's
// mock-the-service-interface handler test pattern.
type SubscriptionService interface {
	Subscribe(ctx context.Context, name, email string) error
	Confirm(ctx context.Context, token string) error
}

// CredentialVerifier is the capability handleLogin/handleChangePassword
// need. Satisfied by *auth.Verifier.
type CredentialVerifier interface {
	ValidateCredentials(ctx context.Context, username, password string) (string, error)
	Username(ctx context.Context, userID string) (string, error)
	ChangePassword(ctx context.Context, userID, newPassword string) error
}

// SessionStore is the capability login/logout/RequireLogin need. Satisfied
// by *session.Store.
type SessionStore interface {
	NewSession(ctx context.Context) (string, error)
	GetUserID(ctx context.Context, sessionID string) (userID string, ok bool, err error)
	InsertUserID(ctx context.Context, sessionID, userID string) error
	Regenerate(ctx context.Context, sessionID string) (newSessionID string, err error)
	LogOut(ctx context.Context, sessionID string) error
}

// Publisher is the capability handlePublish needs. Satisfied by
// *publish.Pipeline.
type Publisher interface {
	Publish(ctx context.Context, userID, title, textContent, idempotencyKey string) (idempotency.SavedResponse, error)
}

// App carries every capability a handler might need. Handlers are methods
// on App (or closures built from one) rather than free functions reading
// package-level globals, per SPEC_FULL's "no ambient access" design note.
type App struct {
	Subscriptions SubscriptionService
	Verifier      CredentialVerifier
	Sessions      SessionStore
	Publisher     Publisher
	Cookies       *CookieCodec
	Logger        *zap.Logger
	BaseURL       string

	RequestTimeout time.Duration
}

// NewRouter builds the complete chi mux for spec §6's HTTP surface.
func (a *App) NewRouter() http.Handler {
	return newRouter(a)
}
