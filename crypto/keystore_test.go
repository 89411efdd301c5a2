package crypto

import (
	"path/filepath"
	"testing"
)

func TestKeystoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("scrypt keystore encryption is slow")
	}
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bot.keystore")
	if err := SaveToKeystore(path, key, "correct horse"); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFromKeystore(path, "correct horse")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Address() != key.Address() {
		t.Fatal("loaded key derives a different address")
	}

	if _, err := LoadFromKeystore(path, "wrong passphrase"); err == nil {
		t.Fatal("wrong passphrase must fail")
	}
}

func TestLoadFromKeystoreMissingFile(t *testing.T) {
	if _, err := LoadFromKeystore(filepath.Join(t.TempDir(), "absent"), "pw"); err == nil {
		t.Fatal("missing file must fail")
	}
}
