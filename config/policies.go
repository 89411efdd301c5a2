package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CommonsHub/token-bot/ledger"
	"github.com/CommonsHub/token-bot/reconcile"
)

type policyFile struct {
	Roles []policyEntry `yaml:"roles"`
}

type policyEntry struct {
	RoleID          string         `yaml:"role_id"`
	Name            string         `yaml:"name"`
	BurnAmount      *ledger.Amount `yaml:"burn_amount"`
	MintAmount      *ledger.Amount `yaml:"mint_amount"`
	Frequency       string         `yaml:"frequency"`
	GracePeriodDays *int           `yaml:"grace_period_days"`
	Ignore          []string       `yaml:"ignore"`
}

// LoadPolicies reads the role policy YAML file and converts each entry into
// the engine's tagged policy form. Every validation failure here is fatal to
// startup: a malformed policy must never reach a run.
func LoadPolicies(path string) ([]reconcile.RolePolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read policies: %w", err)
	}
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("config: decode policies: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("config: at least one role policy required")
	}

	seen := make(map[string]struct{}, len(file.Roles))
	policies := make([]reconcile.RolePolicy, 0, len(file.Roles))
	for _, entry := range file.Roles {
		policy, err := entry.toPolicy()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[policy.RoleID]; dup {
			return nil, fmt.Errorf("config: duplicate policy for role %s", policy.RoleID)
		}
		seen[policy.RoleID] = struct{}{}
		policies = append(policies, policy)
	}
	return policies, nil
}

func (e policyEntry) toPolicy() (reconcile.RolePolicy, error) {
	if e.BurnAmount != nil && e.MintAmount != nil {
		return reconcile.RolePolicy{}, fmt.Errorf("config: role %s: burn_amount and mint_amount are mutually exclusive", e.Name)
	}

	var action reconcile.Action
	switch {
	case e.BurnAmount != nil:
		grace := reconcile.DefaultGracePeriod
		if e.GracePeriodDays != nil {
			if *e.GracePeriodDays < 0 {
				return reconcile.RolePolicy{}, fmt.Errorf("config: role %s: grace_period_days must not be negative", e.Name)
			}
			grace = time.Duration(*e.GracePeriodDays) * 24 * time.Hour
		}
		action = reconcile.BurnAction{Amount: *e.BurnAmount, GracePeriod: grace}
	case e.MintAmount != nil:
		action = reconcile.MintAction{Amount: *e.MintAmount}
	}

	ignore := make(map[string]struct{}, len(e.Ignore))
	for _, id := range e.Ignore {
		ignore[id] = struct{}{}
	}

	policy := reconcile.RolePolicy{
		RoleID:    e.RoleID,
		Name:      e.Name,
		Frequency: reconcile.Frequency(e.Frequency),
		Action:    action,
		Ignore:    ignore,
	}
	if err := policy.Validate(); err != nil {
		return reconcile.RolePolicy{}, err
	}
	return policy, nil
}
