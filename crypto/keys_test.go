package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestGenerateAndRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	raw := key.Bytes()
	if len(raw) != 32 {
		t.Fatalf("key length = %d, want 32", len(raw))
	}
	restored, err := PrivateKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	if restored.Address() != key.Address() {
		t.Fatal("restored key derives a different address")
	}
	fromHex, err := PrivateKeyFromHex(hex.EncodeToString(raw))
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	if fromHex.Address() != key.Address() {
		t.Fatal("hex round trip derives a different address")
	}
}

func TestPrivateKeyFromHexRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "zz", "abcd"} {
		if _, err := PrivateKeyFromHex(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestCompressedBytes(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	compressed := key.PubKey().CompressedBytes()
	if len(compressed) != 33 {
		t.Fatalf("compressed length = %d, want 33", len(compressed))
	}
	if compressed[0] != 0x02 && compressed[0] != 0x03 {
		t.Fatalf("compressed prefix = %#x", compressed[0])
	}
	again := key.PubKey().CompressedBytes()
	if !bytes.Equal(compressed, again) {
		t.Fatal("compression must be deterministic")
	}
}
