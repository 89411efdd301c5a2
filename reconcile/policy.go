// Package reconcile implements the role-balance reconciliation engine: the
// periodic walk over every governed role that mints to, burns from, or
// revokes the role of each member according to the community's policies.
package reconcile

import (
	"fmt"
	"time"

	"github.com/CommonsHub/token-bot/ledger"
)

// Frequency is a policy cadence.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether the frequency is a known cadence.
func (f Frequency) Valid() bool {
	return f == FrequencyWeekly || f == FrequencyMonthly
}

// DefaultGracePeriod applies to burn policies that do not configure one.
const DefaultGracePeriod = 30 * 24 * time.Hour

// Action is the policy variant: a role either burns or mints, never both and
// never neither. The two concrete types make the invalid states
// unrepresentable.
type Action interface {
	isAction()
}

// BurnAction charges members the given amount each cycle and revokes the role
// from members who stay under-funded past the grace period.
type BurnAction struct {
	Amount      ledger.Amount
	GracePeriod time.Duration
}

func (BurnAction) isAction() {}

// MintAction credits members the given amount each cycle.
type MintAction struct {
	Amount ledger.Amount
}

func (MintAction) isAction() {}

// RolePolicy governs one platform role.
type RolePolicy struct {
	RoleID    string
	Name      string
	Frequency Frequency
	Action    Action
	Ignore    map[string]struct{}
}

// Ignores reports whether the member is exempt from this policy.
func (p RolePolicy) Ignores(memberID string) bool {
	_, ok := p.Ignore[memberID]
	return ok
}

// Validate checks the policy invariants.
func (p RolePolicy) Validate() error {
	if p.RoleID == "" {
		return fmt.Errorf("reconcile: policy role id required")
	}
	if p.Name == "" {
		return fmt.Errorf("reconcile: policy %s: name required", p.RoleID)
	}
	if !p.Frequency.Valid() {
		return fmt.Errorf("reconcile: policy %s: unknown frequency %q", p.Name, p.Frequency)
	}
	switch action := p.Action.(type) {
	case BurnAction:
		if action.Amount.Sign() <= 0 {
			return fmt.Errorf("reconcile: policy %s: burn amount must be positive", p.Name)
		}
		if action.GracePeriod < 0 {
			return fmt.Errorf("reconcile: policy %s: grace period must not be negative", p.Name)
		}
	case MintAction:
		if action.Amount.Sign() <= 0 {
			return fmt.Errorf("reconcile: policy %s: mint amount must be positive", p.Name)
		}
	default:
		return fmt.Errorf("reconcile: policy %s: exactly one of burn or mint amount required", p.Name)
	}
	return nil
}
