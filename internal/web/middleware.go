package web

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	userIDContextKey    contextKey = "userID"
	requestIDContextKey contextKey = "requestID"
)

// UserIDFromContext returns the authenticated operator's user id, set by
// RequireLogin.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok
}

// RequestIDFromContext returns the per-request id set by LoggingMiddleware,
// or "" if none is present (e.g. in a unit test that calls a handler
// directly).
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// statusInterceptor wraps http.ResponseWriter to capture the status code a
// handler wrote, defaulting to 200 since a handler that never calls
// WriteHeader gets an implicit 200 from net/http.
type statusInterceptor struct {
	http.ResponseWriter
	statusCode int
}

func newStatusInterceptor(w http.ResponseWriter) *statusInterceptor {
	return &statusInterceptor{ResponseWriter: w, statusCode: http.StatusOK}
}

func (si *statusInterceptor) WriteHeader(statusCode int) {
	si.statusCode = statusCode
	si.ResponseWriter.WriteHeader(statusCode)
}

// LoggingMiddleware assigns each request a request id, logs its outcome at
// a level keyed to the response status, and makes the request id available
// to downstream handlers and to RecoveryMiddleware via the context.
func (a *App) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		r = r.WithContext(ctx)

		start := time.Now()
		si := newStatusInterceptor(w)
		next.ServeHTTP(si, r)
		duration := time.Since(start)

		fields := []zap.Field{
			zap.String("requestID", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", si.statusCode),
			zap.Duration("duration", duration),
			zap.String("remoteAddr", r.RemoteAddr),
		}

		switch {
		case si.statusCode >= http.StatusInternalServerError:
			a.Logger.Error("request completed with server error", fields...)
		case si.statusCode >= http.StatusBadRequest:
			a.Logger.Warn("request completed with client error", fields...)
		default:
			a.Logger.Info("request completed", fields...)
		}
	})
}

// RecoveryMiddleware turns a panic anywhere downstream into a logged 500
// instead of a crashed server. Placed outermost in the chain (see
// newRouter) so it also catches panics raised while LoggingMiddleware's
// deferred log line runs.
func (a *App) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stackBuf := make([]byte, 2048)
				stackSize := runtime.Stack(stackBuf, false)

				a.Logger.Error("panic recovered",
					zap.String("requestID", RequestIDFromContext(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.String("stackTrace", string(stackBuf[:stackSize])),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RequireLogin is the AuthorizedUser extractor from spec §6's "Unauthenticated
// access to /admin/* → 303 to /login" rule, grounded on
// original_source/src/require_login.rs: resolve the session cookie to a
// user id, or redirect.
func (a *App) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := a.Cookies.Session(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		userID, ok, err := a.Sessions.GetUserID(r.Context(), sessionID)
		if err != nil {
			a.Logger.Error("web: session lookup failed", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Timeout bounds every request at d (spec §5's "Cancellation": a
// request-timeout middleware at a fixed boundary). Cancelling mid-
// transaction rolls the transaction back, since every handler propagates
// the request context into its database calls.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}
