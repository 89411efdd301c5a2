package bootstrap

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CommonsHub/token-bot/config"
	botcrypto "github.com/CommonsHub/token-bot/crypto"
)

func TestSigningKeyFromHex(t *testing.T) {
	key, err := botcrypto.GeneratePrivateKey()
	require.NoError(t, err)

	cfg := config.Process{SigningKeyHex: hex.EncodeToString(key.Bytes())}
	loaded, err := SigningKey(cfg)
	require.NoError(t, err)
	require.Equal(t, key.Address(), loaded.Address())
}

func TestSigningKeyRejectsGarbageHex(t *testing.T) {
	_, err := SigningKey(config.Process{SigningKeyHex: "not-hex"})
	require.Error(t, err)
}

func TestSigningKeyRequiresASource(t *testing.T) {
	_, err := SigningKey(config.Process{})
	require.Error(t, err)
}

func TestPublisherDisabledWithoutKey(t *testing.T) {
	publisher, err := Publisher(config.Process{}, config.Community{}, nil)
	require.NoError(t, err)
	require.Nil(t, publisher)
}

func TestPublisherFromKey(t *testing.T) {
	key, err := botcrypto.GeneratePrivateKey()
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cfg := config.Process{PublisherKeyHex: hex.EncodeToString(key.Bytes())}
	publisher, err := Publisher(cfg, config.Community{Relays: []string{"wss://relay.example"}}, logger)
	require.NoError(t, err)
	require.NotNil(t, publisher)

	encoded, err := publisher.PublicKey()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "apub1"))

	// Operators read the publishing identity from the startup log.
	require.Contains(t, logs.String(), encoded)
}

func TestTelemetryNoopWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := Telemetry(context.Background(), "tokenbotd", "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}
