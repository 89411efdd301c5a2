package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validCommunity = `
[token]
address = "0x32E3bdE82C1030c2f9DBd65F41dDE0D4e1c67A00"
decimals = 6
symbol = "CHT"
chain_id = 100

[registry]
card_address = "0x6a4E1a1Df1E4E8Cf0fBcB7032d4a7A0c814e2e8d"

[explorer]
url = "https://gnosisscan.io"

[relay]
urls = ["wss://relay.example"]
`

func writeCommunity(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "community.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write community: %v", err)
	}
	return path
}

func TestLoadCommunity(t *testing.T) {
	community, err := LoadCommunity(writeCommunity(t, validCommunity))
	if err != nil {
		t.Fatalf("load community: %v", err)
	}
	if community.Token.Symbol != "CHT" || community.Token.Decimals != 6 || community.Token.ChainID != 100 {
		t.Fatalf("token = %+v", community.Token)
	}
	if community.Explorer.BaseURL != "https://gnosisscan.io" {
		t.Fatalf("explorer = %q", community.Explorer.BaseURL)
	}
	if len(community.Relays) != 1 || community.Relays[0] != "wss://relay.example" {
		t.Fatalf("relays = %v", community.Relays)
	}
}

func TestLoadCommunityRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad token address", `
[token]
address = "not-an-address"
symbol = "CHT"
chain_id = 100
[registry]
card_address = "0x6a4E1a1Df1E4E8Cf0fBcB7032d4a7A0c814e2e8d"
[explorer]
url = "https://scan"
`},
		{"missing symbol", `
[token]
address = "0x32E3bdE82C1030c2f9DBd65F41dDE0D4e1c67A00"
chain_id = 100
[registry]
card_address = "0x6a4E1a1Df1E4E8Cf0fBcB7032d4a7A0c814e2e8d"
[explorer]
url = "https://scan"
`},
		{"missing chain id", `
[token]
address = "0x32E3bdE82C1030c2f9DBd65F41dDE0D4e1c67A00"
symbol = "CHT"
[registry]
card_address = "0x6a4E1a1Df1E4E8Cf0fBcB7032d4a7A0c814e2e8d"
[explorer]
url = "https://scan"
`},
		{"missing explorer", `
[token]
address = "0x32E3bdE82C1030c2f9DBd65F41dDE0D4e1c67A00"
symbol = "CHT"
chain_id = 100
[registry]
card_address = "0x6a4E1a1Df1E4E8Cf0fBcB7032d4a7A0c814e2e8d"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadCommunity(writeCommunity(t, tc.content)); err == nil {
				t.Fatal("expected load failure")
			}
		})
	}
}
