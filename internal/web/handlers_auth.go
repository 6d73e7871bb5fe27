package web

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/go-newsletter/svc/internal/errors"
)

// handleLoginShell is GET /login: a trivial informational shell (spec.md
// has no HTML templating in scope; SPEC_FULL §6 adds this endpoint purely
// so the login → dashboard redirect chain is reachable end-to-end).
func (a *App) handleLoginShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(a.Cookies.Flash(r)))
}

// handleLogin is POST /login (spec §6). It collapses UnknownUsername and
// InvalidPassword into a single "Authentication failed" message — callers
// must never be able to tell the two apart (spec §4.3, §7).
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.redirectWithFlash(w, r, "/login", "Authentication failed")
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	userID, err := a.Verifier.ValidateCredentials(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrCredentials) {
			a.redirectWithFlash(w, r, "/login", "Authentication failed")
			return
		}
		a.Logger.Error("web: login failed", zap.Error(err))
		a.redirectWithFlash(w, r, "/login", "Something went wrong, please try again")
		return
	}

	sessionID, ok := a.Cookies.Session(r)
	if !ok {
		sessionID, err = a.Sessions.NewSession(r.Context())
		if err != nil {
			a.Logger.Error("web: failed to create session", zap.Error(err))
			a.redirectWithFlash(w, r, "/login", "Something went wrong, please try again")
			return
		}
	}

	// Session-fixation defense: regenerate the session id before attaching
	// the now-authenticated user id, so a session id an attacker planted
	// pre-login is useless post-login.
	newSessionID, err := a.Sessions.Regenerate(r.Context(), sessionID)
	if err != nil {
		a.Logger.Error("web: failed to regenerate session", zap.Error(err))
		a.redirectWithFlash(w, r, "/login", "Something went wrong, please try again")
		return
	}

	if err := a.Sessions.InsertUserID(r.Context(), newSessionID, userID); err != nil {
		a.Logger.Error("web: failed to attach user id to session", zap.Error(err))
		a.redirectWithFlash(w, r, "/login", "Something went wrong, please try again")
		return
	}

	if err := a.Cookies.SetSession(w, newSessionID); err != nil {
		a.Logger.Error("web: failed to set session cookie", zap.Error(err))
		a.redirectWithFlash(w, r, "/login", "Something went wrong, please try again")
		return
	}

	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// handleLogout is POST /admin/logout (spec §6).
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := a.Cookies.Session(r)
	if ok {
		if err := a.Sessions.LogOut(r.Context(), sessionID); err != nil {
			a.Logger.Error("web: logout failed", zap.Error(err))
		}
	}
	a.Cookies.ClearSession(w)
	a.redirectWithFlash(w, r, "/login", "You have successfully logged out")
}
