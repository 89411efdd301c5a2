package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestDiscord(t *testing.T, handler http.Handler) (*Discord, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewDiscord("test-token", "guild-1", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new discord: %v", err)
	}
	return client, server
}

func pageMember(id string, roles ...string) map[string]any {
	return map[string]any{
		"user":      map[string]any{"id": id, "username": "u" + id},
		"roles":     roles,
		"joined_at": time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
}

func TestMembersWithRolePaginates(t *testing.T) {
	var requests []string
	mux := http.NewServeMux()
	mux.HandleFunc("/guilds/guild-1/members", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bot test-token" {
			t.Fatalf("authorization = %q", got)
		}
		after := r.URL.Query().Get("after")
		requests = append(requests, after)

		var page []map[string]any
		if after == "" {
			// A full first page forces a second request.
			for i := 0; i < memberPageSize; i++ {
				id := fmt.Sprintf("m%04d", i)
				if i%2 == 0 {
					page = append(page, pageMember(id, "role-1"))
				} else {
					page = append(page, pageMember(id, "other"))
				}
			}
		} else {
			page = []map[string]any{pageMember("tail-1", "role-1"), pageMember("tail-2")}
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	client, _ := newTestDiscord(t, mux)
	members, err := client.MembersWithRole(context.Background(), "role-1")
	if err != nil {
		t.Fatalf("members with role: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("requests = %v, want 2 pages", requests)
	}
	if requests[1] != fmt.Sprintf("m%04d", memberPageSize-1) {
		t.Fatalf("second page after = %q", requests[1])
	}
	if len(members) != memberPageSize/2+1 {
		t.Fatalf("matched %d members, want %d", len(members), memberPageSize/2+1)
	}
	for _, member := range members {
		if !member.HasRole("role-1") {
			t.Fatalf("member %s lacks the filtered role", member.ID)
		}
	}
}

func TestMemberDisplayNamePreference(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guilds/guild-1/members/user-1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":      map[string]any{"id": "user-1", "username": "ada", "global_name": "Ada L."},
			"nick":      "Countess",
			"roles":     []string{"role-1"},
			"joined_at": "2025-06-01T00:00:00Z",
		})
	})
	client, _ := newTestDiscord(t, mux)
	member, err := client.Member(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if member.DisplayName != "Countess" {
		t.Fatalf("display name = %q, want the nick", member.DisplayName)
	}
	if member.JoinedAt.IsZero() {
		t.Fatal("joined_at must be parsed")
	}
}

func TestGuildRolesParsesPermissions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guilds/guild-1/roles", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": "r1", "name": "admin", "position": 9, "permissions": "268435456"},
			{"id": "r2", "name": "member", "position": 1, "permissions": "0", "managed": true},
		})
	})
	client, _ := newTestDiscord(t, mux)
	roles, err := client.GuildRoles(context.Background())
	if err != nil {
		t.Fatalf("guild roles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("roles = %d, want 2", len(roles))
	}
	if !AllowsRoleManagement(roles[0].Permissions) {
		t.Fatal("manage-roles bit must be detected")
	}
	if AllowsRoleManagement(roles[1].Permissions) {
		t.Fatal("empty permission set must not allow management")
	}
	if !roles[1].Managed {
		t.Fatal("managed flag must survive decoding")
	}
}

func TestRemoveRoleUsesDelete(t *testing.T) {
	var method, path string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	client, _ := newTestDiscord(t, mux)
	if err := client.RemoveRole(context.Background(), "user-1", "role-1"); err != nil {
		t.Fatalf("remove role: %v", err)
	}
	if method != http.MethodDelete || path != "/guilds/guild-1/members/user-1/roles/role-1" {
		t.Fatalf("request = %s %s", method, path)
	}
}

func TestSendDirectMessageOpensChannel(t *testing.T) {
	var posted string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/@me/channels", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["recipient_id"] != "user-1" {
			t.Fatalf("recipient = %q", payload["recipient_id"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "dm-chan"})
	})
	mux.HandleFunc("/channels/dm-chan/messages", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		posted = payload["content"]
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})
	client, _ := newTestDiscord(t, mux)
	if err := client.SendDirectMessage(context.Background(), "user-1", "hello"); err != nil {
		t.Fatalf("send dm: %v", err)
	}
	if posted != "hello" {
		t.Fatalf("posted = %q", posted)
	}
}

func TestErrorsCarryStatusAndDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Missing Permissions"}`))
	})
	client, _ := newTestDiscord(t, mux)
	err := client.RemoveRole(context.Background(), "user-1", "role-1")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, fragment := range []string{"403", "Missing Permissions"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing %q", err, fragment)
		}
	}
}
