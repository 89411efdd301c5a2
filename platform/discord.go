package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultDiscordAPI = "https://discord.com/api/v10"

// memberPageSize is the maximum page size the guild member listing endpoint
// accepts.
const memberPageSize = 1000

// Discord implements Client over the Discord REST API. Gateway sessions are
// deliberately not used: every interaction the bot needs is available over
// plain HTTP.
type Discord struct {
	httpClient *http.Client
	baseURL    string
	token      string
	guildID    string
	botUserID  string
}

// DiscordOption customises the REST adapter.
type DiscordOption func(*Discord)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(base string) DiscordOption {
	return func(d *Discord) { d.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) DiscordOption {
	return func(d *Discord) { d.httpClient = client }
}

// NewDiscord constructs a REST adapter for one guild. Identify must be called
// before the revocation guard is used so the bot's own identity is known.
func NewDiscord(token, guildID string, opts ...DiscordOption) (*Discord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("platform: bot token required")
	}
	if strings.TrimSpace(guildID) == "" {
		return nil, fmt.Errorf("platform: guild id required")
	}
	d := &Discord{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultDiscordAPI,
		token:      strings.TrimSpace(token),
		guildID:    strings.TrimSpace(guildID),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

type discordMember struct {
	User     discordUser `json:"user"`
	Nick     string      `json:"nick"`
	Roles    []string    `json:"roles"`
	JoinedAt time.Time   `json:"joined_at"`
}

func (m discordMember) toMember() Member {
	name := m.Nick
	if name == "" {
		name = m.User.GlobalName
	}
	if name == "" {
		name = m.User.Username
	}
	return Member{
		ID:          m.User.ID,
		DisplayName: name,
		JoinedAt:    m.JoinedAt,
		RoleIDs:     append([]string(nil), m.Roles...),
	}
}

type discordRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Permissions string `json:"permissions"`
	Managed     bool   `json:"managed"`
}

// Identify resolves and caches the operating account's platform identity.
func (d *Discord) Identify(ctx context.Context) error {
	var me discordUser
	if err := d.do(ctx, http.MethodGet, "/users/@me", nil, &me); err != nil {
		return fmt.Errorf("platform: identify: %w", err)
	}
	if me.ID == "" {
		return fmt.Errorf("platform: identify returned empty user id")
	}
	d.botUserID = me.ID
	return nil
}

// BotUserID returns the cached operating account identity.
func (d *Discord) BotUserID() string {
	return d.botUserID
}

// Member fetches one guild member.
func (d *Discord) Member(ctx context.Context, userID string) (Member, error) {
	var raw discordMember
	path := fmt.Sprintf("/guilds/%s/members/%s", d.guildID, url.PathEscape(userID))
	if err := d.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return Member{}, err
	}
	return raw.toMember(), nil
}

// MembersWithRole pages through the guild member list and returns the members
// holding the role. The platform offers no server-side role filter, so the
// filtering happens here.
func (d *Discord) MembersWithRole(ctx context.Context, roleID string) ([]Member, error) {
	var matched []Member
	after := ""
	for {
		path := fmt.Sprintf("/guilds/%s/members?limit=%d", d.guildID, memberPageSize)
		if after != "" {
			path += "&after=" + url.QueryEscape(after)
		}
		var page []discordMember
		if err := d.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		for _, raw := range page {
			member := raw.toMember()
			if member.HasRole(roleID) {
				matched = append(matched, member)
			}
			after = member.ID
		}
		if len(page) < memberPageSize {
			return matched, nil
		}
	}
}

// GuildRoles fetches the guild role set.
func (d *Discord) GuildRoles(ctx context.Context) ([]Role, error) {
	var raw []discordRole
	if err := d.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/roles", d.guildID), nil, &raw); err != nil {
		return nil, err
	}
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		permissions, err := strconv.ParseUint(r.Permissions, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("platform: parse role %s permissions: %w", r.ID, err)
		}
		roles = append(roles, Role{
			ID:          r.ID,
			Name:        r.Name,
			Position:    r.Position,
			Permissions: permissions,
			Managed:     r.Managed,
		})
	}
	return roles, nil
}

// RemoveRole strips the role from the member.
func (d *Discord) RemoveRole(ctx context.Context, userID, roleID string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s/roles/%s", d.guildID, url.PathEscape(userID), url.PathEscape(roleID))
	return d.do(ctx, http.MethodDelete, path, nil, nil)
}

// SendDirectMessage opens (or reuses) the DM channel with the user and posts
// the message there.
func (d *Discord) SendDirectMessage(ctx context.Context, userID, content string) error {
	var channel struct {
		ID string `json:"id"`
	}
	payload := map[string]string{"recipient_id": userID}
	if err := d.do(ctx, http.MethodPost, "/users/@me/channels", payload, &channel); err != nil {
		return fmt.Errorf("platform: open dm channel: %w", err)
	}
	return d.PostMessage(ctx, channel.ID, content)
}

// PostMessage posts to a channel.
func (d *Discord) PostMessage(ctx context.Context, channelID, content string) error {
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
	payload := map[string]string{"content": content}
	return d.do(ctx, http.MethodPost, path, payload, nil)
}

func (d *Discord) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("platform: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("platform: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("platform: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("platform: decode response: %w", err)
	}
	return nil
}
