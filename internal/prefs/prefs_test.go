package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p := Load("")
	if p != Defaults() {
		t.Fatalf("Load = %+v, want %+v", p, Defaults())
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "rollcall")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	body := "theme = \"Slate\"\nstart_view = \"Periods\"\n"
	if err := os.WriteFile(filepath.Join(dir, "prefs.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p := Load("")
	if p.Theme != "Slate" || p.StartView != "periods" {
		t.Fatalf("Load = %+v, want Slate/periods", p)
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(prefsFile, Prefs{Theme: "Kanagawa", StartView: "welcome"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded := Load(prefsFile)
	if loaded.Theme != "Kanagawa" || loaded.StartView != "welcome" {
		t.Fatalf("Load = %+v", loaded)
	}
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty theme", body: "theme = \"\"\nstart_view = \"nowhere\"\n"},
		{name: "invalid toml", body: "not valid toml {{{\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
			if err := os.WriteFile(prefsFile, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if p := Load(prefsFile); p != Defaults() {
				t.Fatalf("Load = %+v, want defaults", p)
			}
		})
	}
}
