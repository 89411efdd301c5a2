package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDiscordToken, "token")
	t.Setenv(EnvGuildID, "guild-1")
	t.Setenv(EnvName, "")
	t.Setenv(EnvDryRun, "")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.CommunityPath != "ops/community.toml" || cfg.PoliciesPath != "ops/policies.yaml" {
		t.Fatalf("paths = %q, %q", cfg.CommunityPath, cfg.PoliciesPath)
	}
	if cfg.ListenAddress != ":7380" {
		t.Fatalf("listen = %q", cfg.ListenAddress)
	}
	if cfg.DryRun {
		t.Fatal("dry run must be off by default")
	}
}

func TestFromEnvRequiresToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvDiscordToken, "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("missing token must fail")
	}
}

func TestDryRunFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	for _, env := range []string{"test", "dev", "dryrun"} {
		t.Setenv(EnvName, env)
		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("from env (%s): %v", env, err)
		}
		if !cfg.DryRun {
			t.Fatalf("env %q must enable dry run", env)
		}
	}

	t.Setenv(EnvName, "production")
	t.Setenv(EnvDryRun, "true")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if !cfg.DryRun {
		t.Fatalf("%s=true must enable dry run", EnvDryRun)
	}
}

func TestRequireSigningKey(t *testing.T) {
	var p Process
	if err := p.RequireSigningKey(); err == nil {
		t.Fatal("no key source must fail")
	}
	p.SigningKeyHex = "ab"
	if err := p.RequireSigningKey(); err != nil {
		t.Fatalf("hex key source rejected: %v", err)
	}
	p = Process{KeystorePath: "bot.keystore"}
	if err := p.RequireSigningKey(); err != nil {
		t.Fatalf("keystore source rejected: %v", err)
	}
}
