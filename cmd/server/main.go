// Command server runs the newsletter core: the HTTP surface (internal/web)
// and, unless disabled, the delivery queue worker (internal/delivery)
// draining newsletter issues into sent emails in the background.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-newsletter/svc/internal/auth"
	"github.com/go-newsletter/svc/internal/config"
	"github.com/go-newsletter/svc/internal/delivery"
	"github.com/go-newsletter/svc/internal/email"
	"github.com/go-newsletter/svc/internal/publish"
	"github.com/go-newsletter/svc/internal/session"
	"github.com/go-newsletter/svc/internal/setup"
	"github.com/go-newsletter/svc/internal/subscription"
	"github.com/go-newsletter/svc/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := setup.ConnectPool(ctx, cfg.Database.ConnString())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	cpuPool := auth.NewPool(logger, 0)
	defer cpuPool.Close()

	userRepo := auth.NewPostgresUserRepo(pool)
	verifier := auth.NewVerifier(userRepo, cpuPool)

	sessions := session.NewStore(pool)

	transport := buildEmailTransport(cfg, logger)

	subscriptionRepo := subscription.NewPostgresRepository(pool)
	subscriptions := subscription.NewService(subscriptionRepo, transport, cfg.EmailClient.Sender, cfg.Application.BaseURL)

	publisher := publish.NewPipeline(pool)

	cookies := web.NewCookieCodec(cfg.Application.HMACSecret)

	app := &web.App{
		Subscriptions:  subscriptions,
		Verifier:       verifier,
		Sessions:       sessions,
		Publisher:      publisher,
		Cookies:        cookies,
		Logger:         logger,
		BaseURL:        cfg.Application.BaseURL,
		RequestTimeout: 10 * time.Second,
	}

	var worker *delivery.Worker
	if cfg.Application.EnableBackgroundWorker {
		worker = delivery.NewWorker(pool, transport, cfg.EmailClient.Sender, logger)
		worker.Start(ctx)
		logger.Info("delivery worker started")
	} else {
		logger.Info("delivery worker disabled", zap.String("reason", "APP_APPLICATION__ENABLE_BACKGROUND_WORKER=false"))
	}

	srv := &http.Server{
		Addr:              cfg.Application.Address(),
		Handler:           app.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Two tasks run concurrently: serving HTTP, and waiting for the signal
	// context to shut it down. errgroup cancels gCtx (unused here, since
	// shutdown is driven by ctx itself) the moment either goroutine returns,
	// so a server crash and an operator Ctrl-C both converge on g.Wait().
	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped with error", zap.Error(err))
	}

	if worker != nil {
		worker.Stop()
		logger.Info("delivery worker stopped")
	}
}

func newLogger(env config.Environment) (*zap.Logger, error) {
	if env == config.EnvironmentProduction {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// buildEmailTransport picks Postmark in production and the non-delivering
// log transport otherwise (spec §5's local vs. production split), grounded
// on househunt's environment-gated sender selection.
func buildEmailTransport(cfg *config.Config, logger *zap.Logger) email.Transport {
	if cfg.Environment == config.EnvironmentProduction {
		timeout := time.Duration(cfg.EmailClient.TimeoutMilliseconds) * time.Millisecond
		return email.NewPostmarkTransport(cfg.EmailClient.BaseURL, cfg.EmailClient.AuthorizationToken, timeout)
	}
	return email.NewLogTransport(logger)
}
