package logging

import "testing"

func TestMaskSecretRedactsValue(t *testing.T) {
	attr := MaskSecret("discord_token", "Bot abc123")
	if attr.Key != "discord_token" {
		t.Fatalf("key = %q", attr.Key)
	}
	if got := attr.Value.String(); got != RedactedValue {
		t.Fatalf("value = %q, want %q", got, RedactedValue)
	}
}

func TestMaskSecretKeepsEmptyVisible(t *testing.T) {
	attr := MaskSecret("discord_token", "")
	if got := attr.Value.String(); got != "" {
		t.Fatalf("value = %q, want empty", got)
	}
}
