package web

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/go-newsletter/svc/internal/errors"
)

// policyViolations is satisfied by auth.PasswordPolicyError without this
// package needing to import internal/auth by name.
type policyViolations interface {
	error
	Violations() []string
}

// handleDashboard is GET /admin/dashboard: a trivial authenticated shell
// (spec.md scopes out HTML rendering; SPEC_FULL §6 adds this endpoint so the
// login → dashboard → logout chain is reachable end-to-end).
func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(a.Cookies.Flash(r)))
}

// handlePasswordShell is GET /admin/password, same rationale as the
// dashboard shell.
func (a *App) handlePasswordShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(a.Cookies.Flash(r)))
}

// handleChangePassword is POST /admin/password (spec §4.3, §6).
func (a *App) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		a.redirectWithFlash(w, r, "/login", "Authentication failed")
		return
	}

	if err := r.ParseForm(); err != nil {
		a.redirectWithFlash(w, r, "/admin/password", "Invalid form submission")
		return
	}

	current := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")
	newPasswordCheck := r.FormValue("new_password_check")

	if newPassword != newPasswordCheck {
		a.redirectWithFlash(w, r, "/admin/password",
			"You entered two different new passwords - the field values must match")
		return
	}

	username, err := a.Verifier.Username(r.Context(), userID)
	if err != nil {
		a.Logger.Error("web: failed to resolve username for password change", zap.Error(err))
		a.redirectWithFlash(w, r, "/admin/password", "Something went wrong, please try again")
		return
	}

	if _, err := a.Verifier.ValidateCredentials(r.Context(), username, current); err != nil {
		if errors.Is(err, apperrors.ErrCredentials) {
			a.redirectWithFlash(w, r, "/admin/password", "The current password is incorrect")
			return
		}
		a.Logger.Error("web: current password check failed", zap.Error(err))
		a.redirectWithFlash(w, r, "/admin/password", "Something went wrong, please try again")
		return
	}

	if err := a.Verifier.ChangePassword(r.Context(), userID, newPassword); err != nil {
		var policyErr policyViolations
		if errors.As(err, &policyErr) {
			a.redirectWithFlash(w, r, "/admin/password",
				"The new password is invalid: "+strings.Join(policyErr.Violations(), "; "))
			return
		}
		if apperrors.IsValidation(err) {
			a.redirectWithFlash(w, r, "/admin/password",
				"The new password is invalid - it must be between 12 and 128 characters")
			return
		}
		a.Logger.Error("web: change password failed", zap.Error(err))
		a.redirectWithFlash(w, r, "/admin/password", "Something went wrong, please try again")
		return
	}

	a.redirectWithFlash(w, r, "/admin/password", "Your password has been changed")
}

// handlePublish is POST /admin/newsletters (spec §4.6, §6). The pipeline's
// saved response is replayed byte-for-byte, including on a cache hit from a
// retried idempotency key; the flash is layered on top, never inside it.
func (a *App) handlePublish(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		a.redirectWithFlash(w, r, "/login", "Authentication failed")
		return
	}

	if err := r.ParseForm(); err != nil {
		a.redirectWithFlash(w, r, "/admin/dashboard", "Invalid form submission")
		return
	}

	title := r.FormValue("title")
	textContent := r.FormValue("content")
	idempotencyKey := r.FormValue("idempotency_key")

	resp, err := a.Publisher.Publish(r.Context(), userID, title, textContent, idempotencyKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrIdempotencyConflict) {
			http.Error(w, "a request with this idempotency key is already being processed", http.StatusConflict)
			return
		}
		a.writeError(w, r, err)
		return
	}

	for _, h := range resp.Headers {
		w.Header().Add(h.Name, string(h.Value))
	}
	if err := a.Cookies.SetFlash(w, "The newsletter issue has been published"); err != nil {
		a.Logger.Error("web: failed to set flash cookie", zap.Error(err))
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
