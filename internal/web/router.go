package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

const defaultRequestTimeout = 10 * time.Second

func newRouter(a *App) http.Handler {
	r := chi.NewRouter()

	r.Use(a.RecoveryMiddleware)
	r.Use(a.LoggingMiddleware)

	timeout := a.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	r.Use(Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Post("/subscriptions", a.handleSubscribe)
		r.Get("/subscriptions/confirm", a.handleConfirm)
	})

	r.Get("/login", a.handleLoginShell)
	r.Post("/login", a.handleLogin)

	r.Route("/admin", func(r chi.Router) {
		r.Use(a.RequireLogin)

		r.Get("/dashboard", a.handleDashboard)
		r.Post("/logout", a.handleLogout)
		r.Get("/password", a.handlePasswordShell)
		r.Post("/password", a.handleChangePassword)
		r.Post("/newsletters", a.handlePublish)
	})

	return r
}
