package web

import (
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/go-newsletter/svc/internal/errors"
)

// writeError maps err to an HTTP status via apperrors.ErrorToHTTPStatus and
// writes a terse body; full detail stays in the log (spec §7).
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.ErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error("web: request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		a.Logger.Info("web: request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	http.Error(w, http.StatusText(status), status)
}

// redirectWithFlash issues a 303 See Other to location, attaching message as
// a one-shot flash cookie. The flash overlay is intentionally applied
// outside of the idempotency-cached response body (spec §4.6): it never
// becomes part of what gets replayed on a duplicate submission.
func (a *App) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, message string) {
	if message != "" {
		if err := a.Cookies.SetFlash(w, message); err != nil {
			a.Logger.Error("web: failed to set flash cookie", zap.Error(err))
		}
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
