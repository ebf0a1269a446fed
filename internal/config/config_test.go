package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks the override keys so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvUsername, EnvPassword, EnvToken, EnvAPIURL} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.RefreshInterval() != time.Minute || cfg.DisplayDuration() != 3*time.Second || cfg.HealthInterval() != 30*time.Second {
		t.Fatalf("intervals = %v %v %v", cfg.RefreshInterval(), cfg.DisplayDuration(), cfg.HealthInterval())
	}
	wantLog, err := expandPath(defaultLogPath)
	if err != nil {
		t.Fatalf("expandPath(defaultLogPath) returned error: %v", err)
	}
	if cfg.LogPath != wantLog {
		t.Fatalf("LogPath = %q, want %q", cfg.LogPath, wantLog)
	}
	if cfg.HasCredentials() {
		t.Fatal("defaults should carry no credentials")
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
api_url = "  10.0.0.5:9999  "
face_api_url = "http://10.0.0.5:5000"
username = " john "
password = "secret"
refresh_seconds = 15
display_seconds = 5
capture_file = "~/cam/still.jpg"
capture_width = 480
log_path = "~/logs/rollcall.log"
log_level = "DEBUG"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:9999" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Username != "john" || !cfg.HasCredentials() {
		t.Fatalf("credentials = %q/%q", cfg.Username, cfg.Password)
	}
	if cfg.RefreshSeconds != 15 || cfg.DisplaySeconds != 5 || cfg.HealthSeconds != defaultHealthSeconds {
		t.Fatalf("seconds = %d %d %d", cfg.RefreshSeconds, cfg.DisplaySeconds, cfg.HealthSeconds)
	}
	if !strings.HasPrefix(cfg.CaptureFile, home) || !strings.HasPrefix(cfg.LogPath, home) {
		t.Fatalf("paths not expanded under HOME: %q %q", cfg.CaptureFile, cfg.LogPath)
	}
	if cfg.LogLevel != "debug" || cfg.CaptureWidth != 480 {
		t.Fatalf("level = %q width = %d", cfg.LogLevel, cfg.CaptureWidth)
	}
}

func TestLoad_EnvFileAndEnvironmentOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
username = "file-user"
password = "file-pass"
`)
	writeFile(t, filepath.Join(dir, ".env"), "ROLLCALL_USERNAME=dotenv-user\nROLLCALL_TOKEN=dotenv-token\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Username != "dotenv-user" || cfg.Password != "file-pass" || cfg.Token != "dotenv-token" {
		t.Fatalf("after .env: %q %q %q", cfg.Username, cfg.Password, cfg.Token)
	}

	t.Setenv(EnvUsername, "env-user")
	t.Setenv(EnvAPIURL, "https://attendance.example")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Username != "env-user" || cfg.APIURL != "https://attendance.example" {
		t.Fatalf("after env: %q %q", cfg.Username, cfg.APIURL)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "refresh too fast", body: "refresh_seconds = 1\n", want: "RefreshSeconds"},
		{name: "bad log level", body: `log_level = "loud"` + "\n", want: "LogLevel"},
		{name: "password without username", body: `password = "x"` + "\n", want: "Username"},
		{name: "tiny capture width", body: "capture_width = 10\n", want: "CaptureWidth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "config.toml")
			writeFile(t, path, tt.body)

			_, err := Load(path)
			if err == nil {
				t.Fatal("Load returned nil error")
			}
			if !strings.Contains(err.Error(), "invalid config") || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %q, want it to mention %s", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `api_url = [`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
