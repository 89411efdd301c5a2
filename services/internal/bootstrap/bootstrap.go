// Package bootstrap assembles the shared runtime pieces of the bot
// processes: telemetry, the signing key, the ledger executor and the
// notification fanout. Both daemons wire the same graph; only the surface
// they expose differs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/CommonsHub/token-bot/internal/passphrase"
	"github.com/CommonsHub/token-bot/config"
	botcrypto "github.com/CommonsHub/token-bot/crypto"
	"github.com/CommonsHub/token-bot/ledger"
	"github.com/CommonsHub/token-bot/notify"
	"github.com/CommonsHub/token-bot/observability"
	telemetry "github.com/CommonsHub/token-bot/observability/otel"
	"github.com/CommonsHub/token-bot/platform"
)

// Telemetry initialises the OTLP exporters from the conventional
// OTEL_EXPORTER_* environment and returns a shutdown hook. A missing
// endpoint disables export without error.
func Telemetry(ctx context.Context, service, env string) (func(context.Context) error, error) {
	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	return telemetry.Init(ctx, telemetry.Config{
		ServiceName: service,
		Environment: env,
		Endpoint:    endpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
	})
}

// SigningKey resolves the bot's operating key, preferring the raw hex value
// and falling back to the encrypted keystore.
func SigningKey(cfg config.Process) (*botcrypto.PrivateKey, error) {
	if cfg.SigningKeyHex != "" {
		key, err := botcrypto.PrivateKeyFromHex(cfg.SigningKeyHex)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: parse signing key: %w", err)
		}
		return key, nil
	}
	if cfg.KeystorePath == "" {
		return nil, fmt.Errorf("bootstrap: no signing key configured")
	}
	pass, err := passphrase.NewSource(cfg.KeystorePassEnv).Get()
	if err != nil {
		return nil, err
	}
	key, err := botcrypto.LoadFromKeystore(cfg.KeystorePath, pass)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open keystore: %w", err)
	}
	return key, nil
}

// Ledger dials the RPC endpoint and builds the executor and the card
// registry resolver over the shared client.
func Ledger(cfg config.Process, community config.Community, key *botcrypto.PrivateKey, logger *slog.Logger) (*ledger.Executor, *ledger.Resolver, error) {
	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("bootstrap: %s is required", config.EnvRPCURL)
	}
	client, err := ledger.Dial(cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: dial rpc: %w", err)
	}
	executor, err := ledger.NewExecutor(client, community.Token, key,
		ledger.WithDryRun(cfg.DryRun),
		ledger.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return executor, ledger.NewResolver(client, community.CardRegistry), nil
}

// Publisher builds the attestation relay publisher when a key is configured.
// A nil return disables the third sink.
func Publisher(cfg config.Process, community config.Community, logger *slog.Logger) (*notify.Publisher, error) {
	if cfg.PublisherKeyHex == "" {
		return nil, nil
	}
	key, err := botcrypto.PrivateKeyFromHex(cfg.PublisherKeyHex)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: parse publisher key: %w", err)
	}
	publisher, err := notify.NewPublisher(key, community.Relays, logger)
	if err != nil {
		return nil, err
	}
	identity, err := publisher.PublicKey()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Relay operators whitelist publishers by this identity.
	logger.Info("attestation publisher enabled",
		"identity", identity,
		"relays", len(community.Relays),
	)
	return publisher, nil
}

// Fanout assembles the three delivery sinks. Sinks without configuration
// are dropped rather than failing the process.
func Fanout(client platform.Client, cfg config.Process, community config.Community, publisher *notify.Publisher, logger *slog.Logger, metrics *observability.ReconcilerMetrics) *notify.Fanout {
	sinks := []notify.Sink{
		&notify.DirectMessageSink{Client: client, Explorer: community.Explorer},
	}
	if cfg.LogChannelID != "" {
		sinks = append(sinks, &notify.AuditSink{
			Client:    client,
			ChannelID: cfg.LogChannelID,
			Explorer:  community.Explorer,
		})
	} else {
		logger.Warn("audit channel not configured, audit sink disabled")
	}
	if publisher != nil {
		sinks = append(sinks, &notify.PublisherSink{Publisher: publisher})
	}
	return notify.NewFanout(logger, metrics, sinks...)
}
