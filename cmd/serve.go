package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"starlord/internal/config"
	"starlord/internal/handlers"
	"starlord/internal/integrations/slack"
	"starlord/internal/logging"
	"starlord/internal/middleware"
	"starlord/internal/queue"
	"starlord/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the slash command webhook server and the star worker",
	RunE:  runServe,
}

type ServiceBundle struct {
	Config       *config.Config
	Queue        *queue.Queue[slack.StarRequest]
	StarWorker   *slack.StarWorker
	SlashHandler *slack.SlashCommandHandler
	RateLimiter  *middleware.IPRateLimiter
}

func initializeServices(cfg *config.Config) *ServiceBundle {
	q := queue.New[slack.StarRequest]()
	client := slack.NewClient(cfg)
	replier := slack.NewReplySender(&http.Client{}, cfg.SlackAPITimeout)

	return &ServiceBundle{
		Config:       cfg,
		Queue:        q,
		StarWorker:   slack.NewStarWorker(client, q, replier, cfg.SlackAPITimeout),
		SlashHandler: slack.NewSlashCommandHandler(cfg.VerificationToken, q),
		RateLimiter:  middleware.NewIPRateLimiter(cfg.WebhookRatePerSecond, cfg.WebhookRateBurst),
	}
}

func newRouter(services *ServiceBundle) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.MetricsMiddleware)

	// Slack slash command
	router.Handle("/starlord", services.RateLimiter.Middleware(
		slack.SignatureMiddleware(services.Config.SigningSecret)(
			http.HandlerFunc(services.SlashHandler.HandleStarCommand),
		),
	)).Methods(http.MethodPost)

	// System routes
	router.HandleFunc("/health", handlers.HealthHandler).Methods(http.MethodGet)
	router.Handle("/ready", handlers.NewReadyHandler(services.StarWorker)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting starlord", slog.String("version", Version), slog.String("environment", cfg.Environment))
	if cfg.IsProduction() && cfg.SigningSecret == "" {
		slog.Warn("SLACK_SIGNING_SECRET is not set, requests are authenticated by verification token only")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	return serve(ctx, initializeServices(cfg))
}

// serve runs the HTTP server and the star worker until ctx is cancelled or
// either of them fails. The server is drained before the worker is stopped
// so that no handler enqueues into a queue without a consumer.
func serve(ctx context.Context, services *ServiceBundle) error {
	server := &http.Server{
		Addr:         ":" + services.Config.Port,
		Handler:      newRouter(services),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := services.StarWorker.Run(workerCtx); err != nil {
			slog.Error("Star worker failed", "error", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("Server starting", slog.String("port", services.Config.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	go services.RateLimiter.RunCleanup(time.Minute, gctx.Done())

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server shutting down...")
		services.SlashHandler.BeginShutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}

		stopWorker()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Server exited gracefully")
	return nil
}
