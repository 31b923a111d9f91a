package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_FlatYAMLMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	content := "SECRET_OE_LICENSE: |-\n  license-body\nTOKEN: abc123\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing secrets file: %v", err)
	}

	store, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if store["SECRET_OE_LICENSE"] != "license-body" {
		t.Errorf("SECRET_OE_LICENSE = %q", store["SECRET_OE_LICENSE"])
	}
	if store["TOKEN"] != "abc123" {
		t.Errorf("TOKEN = %q", store["TOKEN"])
	}
}

func TestLoadFile_EmptyPathYieldsEmptyStore(t *testing.T) {
	store, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile(\"\") returned error: %v", err)
	}
	if len(store) != 0 {
		t.Errorf("expected empty store, got %v", store)
	}
}

func TestLoadFile_MissingFileIsAnError(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing secrets file")
	}
}
