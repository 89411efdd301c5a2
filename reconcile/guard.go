package reconcile

import (
	"context"
	"log/slog"

	"github.com/CommonsHub/token-bot/platform"
)

// Revocation guard skip reasons. Every precondition failure is a skip, never
// a run failure.
const (
	RevokeRemoved        = "removed"
	RevokeBotNotMember   = "bot_not_member"
	RevokeRoleSetUnknown = "role_set_unavailable"
	RevokeNoManageRoles  = "missing_manage_roles"
	RevokeRoleNotFound   = "role_not_found"
	RevokeRoleAboveBot   = "role_above_bot"
	RevokeMemberAboveBot = "member_above_bot"
	RevokeRoleNotHeld    = "role_not_held"
	RevokeRemovalFailed  = "removal_failed"
	RevokeDryRun         = "dry_run"
)

// GuardResult reports what the guard did and why.
type GuardResult struct {
	Removed bool
	Reason  string
}

// RevocationGuard validates the platform's role hierarchy rules before
// mutating role membership. A failed precondition is logged and skipped; the
// guard never aborts the surrounding run.
type RevocationGuard struct {
	client  platform.Client
	logger  *slog.Logger
	metrics *Metrics
	dryRun  bool
}

// GuardOption customises the guard.
type GuardOption func(*RevocationGuard)

// WithGuardDryRun toggles simulation mode: every precondition still runs,
// the removal call itself does not.
func WithGuardDryRun(enabled bool) GuardOption {
	return func(g *RevocationGuard) { g.dryRun = enabled }
}

// NewRevocationGuard constructs a guard over the platform client.
func NewRevocationGuard(client platform.Client, logger *slog.Logger, metrics *Metrics, opts ...GuardOption) *RevocationGuard {
	if logger == nil {
		logger = slog.Default()
	}
	guard := &RevocationGuard{client: client, logger: logger, metrics: metrics}
	for _, opt := range opts {
		opt(guard)
	}
	return guard
}

// Revoke strips roleID from the member once every hierarchy precondition
// holds. A member who no longer holds the role is a no-op, not an error.
func (g *RevocationGuard) Revoke(ctx context.Context, member platform.Member, roleID string) GuardResult {
	botID := g.client.BotUserID()
	bot, err := g.client.Member(ctx, botID)
	if err != nil {
		return g.skip(member, roleID, RevokeBotNotMember, err)
	}

	roles, err := g.client.GuildRoles(ctx)
	if err != nil {
		return g.skip(member, roleID, RevokeRoleSetUnknown, err)
	}
	byID := make(map[string]platform.Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}

	if !botCanManageRoles(bot, byID) {
		return g.skip(member, roleID, RevokeNoManageRoles, nil)
	}

	target, ok := byID[roleID]
	if !ok {
		return g.skip(member, roleID, RevokeRoleNotFound, nil)
	}

	botTop := highestPosition(bot, byID)
	if target.Position >= botTop {
		return g.skip(member, roleID, RevokeRoleAboveBot, nil)
	}

	if member.ID != botID && highestPosition(member, byID) >= botTop {
		return g.skip(member, roleID, RevokeMemberAboveBot, nil)
	}

	if !member.HasRole(roleID) {
		// Nothing to remove: the guard is idempotent.
		g.logger.Debug("role already absent", "member", member.ID, "role", roleID)
		g.metrics.RecordRevocation(RevokeRoleNotHeld)
		return GuardResult{Reason: RevokeRoleNotHeld}
	}

	if g.dryRun {
		g.logger.Info("dry run: skipping role removal",
			"member", member.ID, "role", roleID)
		g.metrics.RecordRevocation(RevokeDryRun)
		return GuardResult{Removed: true, Reason: RevokeDryRun}
	}

	if err := g.client.RemoveRole(ctx, member.ID, roleID); err != nil {
		return g.skip(member, roleID, RevokeRemovalFailed, err)
	}
	g.logger.Info("role revoked", "member", member.ID, "role", roleID)
	g.metrics.RecordRevocation(RevokeRemoved)
	return GuardResult{Removed: true, Reason: RevokeRemoved}
}

func (g *RevocationGuard) skip(member platform.Member, roleID, reason string, err error) GuardResult {
	attrs := []any{"member", member.ID, "role", roleID, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	g.logger.Warn("role revocation skipped", attrs...)
	g.metrics.RecordRevocation(reason)
	return GuardResult{Reason: reason}
}

func botCanManageRoles(bot platform.Member, roles map[string]platform.Role) bool {
	for _, id := range bot.RoleIDs {
		if role, ok := roles[id]; ok && platform.AllowsRoleManagement(role.Permissions) {
			return true
		}
	}
	return false
}

func highestPosition(member platform.Member, roles map[string]platform.Role) int {
	top := 0
	for _, id := range member.RoleIDs {
		if role, ok := roles[id]; ok && role.Position > top {
			top = role.Position
		}
	}
	return top
}
