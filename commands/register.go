package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Platform option types used by the command definitions.
const (
	optionString = 3
	optionUser   = 6
	optionNumber = 10
)

// CommandDefinition describes one guild slash command.
type CommandDefinition struct {
	Name                     string             `json:"name"`
	Description              string             `json:"description"`
	Options                  []DefinitionOption `json:"options,omitempty"`
	DefaultMemberPermissions string             `json:"default_member_permissions,omitempty"`
}

// DefinitionOption is one declared argument of a command.
type DefinitionOption struct {
	Type        int    `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// manageRolesPermission gates the privileged mint and burn commands to
// members who can already manage roles.
const manageRolesPermission = "268435456"

// Definitions returns the full command set the bot registers against a
// guild.
func Definitions() []CommandDefinition {
	userOption := DefinitionOption{
		Type:        optionUser,
		Name:        "user",
		Description: "The member to act on",
		Required:    true,
	}
	return []CommandDefinition{
		{
			Name:        "balance",
			Description: "Show a member's token balance",
			Options:     []DefinitionOption{userOption},
		},
		{
			Name:        "address",
			Description: "Show a member's token account address",
			Options:     []DefinitionOption{userOption},
		},
		{
			Name:        "transactions",
			Description: "Link a member's transaction history",
			Options:     []DefinitionOption{userOption},
		},
		{
			Name:                     "mint",
			Description:              "Mint tokens to a member",
			DefaultMemberPermissions: manageRolesPermission,
			Options: []DefinitionOption{
				userOption,
				{Type: optionNumber, Name: "amount", Description: "Amount in tokens", Required: true},
				{Type: optionString, Name: "message", Description: "Optional note shown with the notification"},
			},
		},
		{
			Name:                     "burn",
			Description:              "Burn tokens from a member",
			DefaultMemberPermissions: manageRolesPermission,
			Options: []DefinitionOption{
				userOption,
				{Type: optionNumber, Name: "amount", Description: "Amount in tokens", Required: true},
				{Type: optionString, Name: "message", Description: "Optional note shown with the notification"},
			},
		},
	}
}

// Register overwrites the guild's command set with Definitions. A bulk PUT
// removes commands that are no longer declared.
func Register(ctx context.Context, client *http.Client, apiBase, token, applicationID, guildID string) error {
	if client == nil {
		client = http.DefaultClient
	}
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if token == "" || applicationID == "" || guildID == "" {
		return fmt.Errorf("commands: token, application id and guild id are required")
	}
	payload, err := json.Marshal(Definitions())
	if err != nil {
		return fmt.Errorf("commands: encode definitions: %w", err)
	}
	url := fmt.Sprintf("%s/applications/%s/guilds/%s/commands", apiBase, applicationID, guildID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("commands: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("commands: register commands: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("commands: register commands: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
