package web

import (
	"net/http"

	apperrors "github.com/go-newsletter/svc/internal/errors"
)

// handleSubscribe is POST /subscriptions (spec §6).
func (a *App) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.writeError(w, r, apperrors.WrapValidation(err, "malformed form body"))
		return
	}

	name := r.FormValue("name")
	email := r.FormValue("email")

	if err := a.Subscriptions.Subscribe(r.Context(), name, email); err != nil {
		a.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleConfirm is GET /subscriptions/confirm (spec §6).
func (a *App) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		a.writeError(w, r, apperrors.ErrConfirmTokenMissing)
		return
	}

	if err := a.Subscriptions.Confirm(r.Context(), token); err != nil {
		a.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
