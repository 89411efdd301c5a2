// Package config resolves everything the bot processes read at startup: the
// environment (secrets, ids, mode), the community TOML file, and the role
// policy YAML file. Required values missing at startup are fatal; nothing in
// here is re-read while a process runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names shared by every bot process.
const (
	EnvName                 = "TOKENBOT_ENV"
	EnvDiscordToken         = "DISCORD_TOKEN"
	EnvGuildID              = "DISCORD_GUILD_ID"
	EnvLogChannelID         = "DISCORD_LOG_CHANNEL_ID"
	EnvApplicationID        = "DISCORD_APPLICATION_ID"
	EnvInteractionsKey      = "DISCORD_PUBLIC_KEY"
	EnvBotPrivateKey        = "BOT_PRIVATE_KEY"
	EnvBotKeystore          = "BOT_KEYSTORE"
	EnvBotKeystorePass      = "BOT_KEYSTORE_PASSPHRASE"
	EnvPublisherKey         = "PUBLISHER_KEY"
	EnvRPCURL               = "RPC_URL"
	EnvCommunityFile        = "COMMUNITY_CONFIG"
	EnvPoliciesFile         = "ROLE_POLICIES"
	EnvListenAddress        = "TOKENBOT_LISTEN"
	EnvLogFile              = "TOKENBOT_LOG_FILE"
	EnvDryRun               = "DRY_RUN"
)

// Process carries the environment-level configuration, read once at start.
type Process struct {
	Env           string
	DryRun        bool
	DiscordToken  string
	GuildID       string
	LogChannelID  string
	ApplicationID string
	// InteractionsKey is the hex ed25519 key the platform signs interaction
	// webhooks with.
	InteractionsKey string
	// SigningKeyHex is the raw operating key; KeystorePath is the encrypted
	// alternative. Exactly one of the two is consulted.
	SigningKeyHex     string
	KeystorePath      string
	KeystorePassEnv   string
	PublisherKeyHex   string
	RPCURL            string
	CommunityPath     string
	PoliciesPath      string
	ListenAddress     string
	LogFile           string
}

// FromEnv reads the process configuration. It validates only the values every
// process needs; each entrypoint checks its own extras.
func FromEnv() (Process, error) {
	p := Process{
		Env:             strings.TrimSpace(os.Getenv(EnvName)),
		DiscordToken:    strings.TrimSpace(os.Getenv(EnvDiscordToken)),
		GuildID:         strings.TrimSpace(os.Getenv(EnvGuildID)),
		LogChannelID:    strings.TrimSpace(os.Getenv(EnvLogChannelID)),
		ApplicationID:   strings.TrimSpace(os.Getenv(EnvApplicationID)),
		InteractionsKey: strings.TrimSpace(os.Getenv(EnvInteractionsKey)),
		SigningKeyHex:   strings.TrimSpace(os.Getenv(EnvBotPrivateKey)),
		KeystorePath:    strings.TrimSpace(os.Getenv(EnvBotKeystore)),
		KeystorePassEnv: EnvBotKeystorePass,
		PublisherKeyHex: strings.TrimSpace(os.Getenv(EnvPublisherKey)),
		RPCURL:          strings.TrimSpace(os.Getenv(EnvRPCURL)),
		CommunityPath:   strings.TrimSpace(os.Getenv(EnvCommunityFile)),
		PoliciesPath:    strings.TrimSpace(os.Getenv(EnvPoliciesFile)),
		ListenAddress:   strings.TrimSpace(os.Getenv(EnvListenAddress)),
		LogFile:         strings.TrimSpace(os.Getenv(EnvLogFile)),
	}
	if p.CommunityPath == "" {
		p.CommunityPath = "ops/community.toml"
	}
	if p.PoliciesPath == "" {
		p.PoliciesPath = "ops/policies.yaml"
	}
	if p.ListenAddress == "" {
		p.ListenAddress = ":7380"
	}

	p.DryRun = dryRunFromEnv(p.Env)

	if p.DiscordToken == "" {
		return p, fmt.Errorf("config: %s is required", EnvDiscordToken)
	}
	if p.GuildID == "" {
		return p, fmt.Errorf("config: %s is required", EnvGuildID)
	}
	return p, nil
}

// RequireSigningKey enforces that one key source is configured. Processes
// that mutate the ledger call this at startup.
func (p Process) RequireSigningKey() error {
	if p.SigningKeyHex == "" && p.KeystorePath == "" {
		return fmt.Errorf("config: %s or %s is required", EnvBotPrivateKey, EnvBotKeystore)
	}
	return nil
}

func dryRunFromEnv(env string) bool {
	switch strings.ToLower(env) {
	case "test", "dev", "dryrun":
		return true
	}
	if raw := strings.TrimSpace(os.Getenv(EnvDryRun)); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			return parsed
		}
	}
	return false
}
