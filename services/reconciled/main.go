// Package reconciled is the one-shot reconciliation job. It is scheduled
// externally (cron or a systemd timer) once per day; firing windows are
// evaluated inside the run so the schedule stays in the policy file.
package reconciled

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/CommonsHub/token-bot/config"
	"github.com/CommonsHub/token-bot/observability/logging"
	"github.com/CommonsHub/token-bot/platform"
	"github.com/CommonsHub/token-bot/reconcile"
	"github.com/CommonsHub/token-bot/services/internal/bootstrap"
)

const runTimeout = 30 * time.Minute

// Main executes a single reconciliation pass and exits.
func Main() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger := logging.Setup("reconciled", cfg.Env, logging.Options{FilePath: cfg.LogFile})
	logger.Info("configuration loaded",
		slog.String("community", cfg.CommunityPath),
		slog.String("policies", cfg.PoliciesPath),
		logging.MaskSecret("discord_token", cfg.DiscordToken),
	)

	shutdownTelemetry, err := bootstrap.Telemetry(context.Background(), "reconciled", cfg.Env)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

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
	policies, err := config.LoadPolicies(cfg.PoliciesPath)
	if err != nil {
		return err
	}

	executor, resolver, err := bootstrap.Ledger(cfg, community, key, logger)
	if err != nil {
		return err
	}
	if executor.DryRun() {
		logger.Warn("dry-run mode, ledger and role mutations are simulated")
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
	metrics := reconcile.NewMetrics()
	publisher, err := bootstrap.Publisher(cfg, community, logger)
	if err != nil {
		return err
	}
	fanout := bootstrap.Fanout(chat, cfg, community, publisher, logger, metrics)

	guard := reconcile.NewRevocationGuard(chat, logger, metrics, reconcile.WithGuardDryRun(cfg.DryRun))
	burner := reconcile.NewBalanceReconciler(executor, guard, fanout, logger, metrics)
	minter := reconcile.NewIssuanceDispatcher(executor, fanout, logger, metrics)
	runner := reconcile.NewRunner(policies, chat, resolver, burner, minter, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	summary := runner.Run(runCtx)
	logger.Info("reconciliation finished",
		slog.String("run", summary.RunID),
		slog.Int("roles_due", summary.RolesDue),
		slog.Int("members", summary.MembersSeen),
		slog.Int("burned", summary.Burned),
		slog.Int("minted", summary.Minted),
		slog.Int("revoked", summary.Revoked),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
	if summary.Failed > 0 {
		logger.Warn("run completed with member-level failures",
			slog.String("run", summary.RunID),
			slog.Int("failed", summary.Failed),
		)
	}
	return nil
}
