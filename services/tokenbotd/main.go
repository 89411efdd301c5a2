// Package tokenbotd is the long-running interaction daemon. It serves the
// signed slash-command webhook, the health probe and the metrics endpoint.
package tokenbotd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CommonsHub/token-bot/commands"
	"github.com/CommonsHub/token-bot/config"
	"github.com/CommonsHub/token-bot/observability"
	"github.com/CommonsHub/token-bot/observability/logging"
	"github.com/CommonsHub/token-bot/platform"
	"github.com/CommonsHub/token-bot/services/internal/bootstrap"
)

// Main initialises and runs the interaction daemon.
func Main() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger := logging.Setup("tokenbotd", cfg.Env, logging.Options{FilePath: cfg.LogFile})
	logger.Info("configuration loaded",
		slog.String("community", cfg.CommunityPath),
		slog.String("listen", cfg.ListenAddress),
		logging.MaskSecret("discord_token", cfg.DiscordToken),
	)

	shutdownTelemetry, err := bootstrap.Telemetry(context.Background(), "tokenbotd", cfg.Env)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	if cfg.InteractionsKey == "" {
		return fmt.Errorf("%s is required", config.EnvInteractionsKey)
	}
	publicKey, err := commands.ParsePublicKey(cfg.InteractionsKey)
	if err != nil {
		return err
	}
	if err := cfg.RequireSigningKey(); err != nil {
		return err
	}
	key, err := bootstrap.SigningKey(cfg)
	if err != nil {
		return err
	}

	community, err := config.LoadCommunity(cfg.CommunityPath)
	if err != nil {
		return err
	}

	executor, resolver, err := bootstrap.Ledger(cfg, community, key, logger)
	if err != nil {
		return err
	}
	if executor.DryRun() {
		logger.Warn("dry-run mode, ledger mutations are simulated")
	}

	chat, err := platform.NewDiscord(cfg.DiscordToken, cfg.GuildID)
	if err != nil {
		return err
	}
	identifyCtx, cancelIdentify := context.WithTimeout(context.Background(), 15*time.Second)
	err = chat.Identify(identifyCtx)
	cancelIdentify()
	if err != nil {
		return err
	}
	metrics := observability.Reconciler()
	publisher, err := bootstrap.Publisher(cfg, community, logger)
	if err != nil {
		return err
	}
	fanout := bootstrap.Fanout(chat, cfg, community, publisher, logger, metrics)

	handler, err := commands.NewHandler(executor, resolver, fanout, community.Explorer, logger)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Post("/interactions", handler.HTTPHandler(publicKey))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("interaction daemon listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("operator", executor.Operator().Hex()),
			slog.Bool("dry_run", executor.DryRun()),
		)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
