// Package platform abstracts the chat platform the bot operates on. The
// engine only ever talks to the Client interface; the Discord REST adapter is
// the single concrete implementation.
package platform

import (
	"context"
	"time"
)

// Member is a platform user, fetched fresh per role per run and never cached
// across runs.
type Member struct {
	ID          string
	DisplayName string
	JoinedAt    time.Time
	RoleIDs     []string
}

// HasRole reports whether the member currently holds the given role.
func (m Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role describes a guild role including the hierarchy position and permission
// bits needed by the revocation guard.
type Role struct {
	ID          string
	Name        string
	Position    int
	Permissions uint64
	Managed     bool
}

// Permission bits as defined by the platform.
const (
	PermissionAdministrator uint64 = 1 << 3
	PermissionManageRoles   uint64 = 1 << 28
)

// AllowsRoleManagement reports whether the permission set grants role
// mutation rights.
func AllowsRoleManagement(permissions uint64) bool {
	return permissions&(PermissionAdministrator|PermissionManageRoles) != 0
}

// Client is the collaborator surface the bot consumes from the chat platform.
type Client interface {
	// BotUserID returns the platform identity of the operating account.
	BotUserID() string
	// Member fetches a single guild member by user id.
	Member(ctx context.Context, userID string) (Member, error)
	// MembersWithRole fetches every guild member currently holding the role.
	MembersWithRole(ctx context.Context, roleID string) ([]Member, error)
	// GuildRoles fetches the guild's full role set.
	GuildRoles(ctx context.Context) ([]Role, error)
	// RemoveRole strips the role from the member.
	RemoveRole(ctx context.Context, userID, roleID string) error
	// SendDirectMessage delivers a private message to the user.
	SendDirectMessage(ctx context.Context, userID, content string) error
	// PostMessage posts to a guild channel.
	PostMessage(ctx context.Context, channelID, content string) error
}
