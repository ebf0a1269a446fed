package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything the dashboard reads at startup.
type Config struct {
	APIURL         string `validate:"required,url"`
	FaceAPIURL     string `validate:"omitempty,url"`
	Username       string `validate:"required_with=Password"`
	Password       string `validate:"required_with=Username"`
	Token          string
	RefreshSeconds int    `validate:"gte=5,lte=3600"`
	DisplaySeconds int    `validate:"gte=1,lte=60"`
	HealthSeconds  int    `validate:"gte=5,lte=3600"`
	MinImageBytes  int    `validate:"gte=1"`
	CaptureFile    string
	CaptureCommand string
	CaptureWidth   int    `validate:"gte=64,lte=4096"`
	LogPath        string `validate:"required"`
	LogLevel       string `validate:"oneof=debug info warn error"`
	// Demo runs without a camera, submitting a synthetic frame.
	Demo bool
}

const (
	defaultConfigPath     = "~/.config/rollcall/config.toml"
	defaultLogPath        = "~/.local/share/rollcall/rollcall.log"
	defaultAPIURL         = "http://127.0.0.1:8080"
	defaultRefreshSeconds = 60
	defaultDisplaySeconds = 3
	defaultHealthSeconds  = 30
	defaultMinImageBytes  = 100
	defaultCaptureWidth   = 640
	defaultLogLevel       = "info"
	envFileName           = ".env"
)

// Environment keys that override the file.
const (
	EnvUsername = "ROLLCALL_USERNAME"
	EnvPassword = "ROLLCALL_PASSWORD"
	EnvToken    = "ROLLCALL_TOKEN"
	EnvAPIURL   = "ROLLCALL_API_URL"
)

var validate = validator.New()

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		RefreshSeconds: defaultRefreshSeconds,
		DisplaySeconds: defaultDisplaySeconds,
		HealthSeconds:  defaultHealthSeconds,
		MinImageBytes:  defaultMinImageBytes,
		CaptureWidth:   defaultCaptureWidth,
		LogPath:        mustExpand(defaultLogPath),
		LogLevel:       defaultLogLevel,
	}
}

// Load reads the TOML config at path (default ~/.config/rollcall/config.toml),
// overlays a .env file from the same directory and then the process
// environment, and validates the result. A missing file yields defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := readFile(resolved, &cfg); err != nil {
		return Config{}, err
	}

	env, err := readEnvFile(filepath.Join(filepath.Dir(resolved), envFileName))
	if err != nil {
		return Config{}, err
	}
	applyEnv(&cfg, env)

	cfg.APIURL = withScheme(cfg.APIURL)
	cfg.FaceAPIURL = withScheme(cfg.FaceAPIURL)
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", describe(err))
	}
	return cfg, nil
}

// RefreshInterval is the catalog and ledger poll cadence.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// DisplayDuration is how long a capture outcome stays on screen.
func (c Config) DisplayDuration() time.Duration {
	return time.Duration(c.DisplaySeconds) * time.Second
}

// HealthInterval is the face service probe cadence.
func (c Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthSeconds) * time.Second
}

// HasCredentials reports whether a sign-in can be attempted.
func (c Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

func readFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL         string `toml:"api_url"`
		FaceAPIURL     string `toml:"face_api_url"`
		Username       string `toml:"username"`
		Password       string `toml:"password"`
		Token          string `toml:"token"`
		RefreshSeconds int    `toml:"refresh_seconds"`
		DisplaySeconds int    `toml:"display_seconds"`
		HealthSeconds  int    `toml:"health_seconds"`
		MinImageBytes  int    `toml:"min_image_bytes"`
		CaptureFile    string `toml:"capture_file"`
		CaptureCommand string `toml:"capture_command"`
		CaptureWidth   int    `toml:"capture_width"`
		LogPath        string `toml:"log_path"`
		LogLevel       string `toml:"log_level"`
		Demo           bool   `toml:"demo"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.APIURL, raw.APIURL)
	setString(&cfg.FaceAPIURL, raw.FaceAPIURL)
	setString(&cfg.Username, raw.Username)
	setString(&cfg.Password, raw.Password)
	setString(&cfg.Token, raw.Token)
	setInt(&cfg.RefreshSeconds, raw.RefreshSeconds)
	setInt(&cfg.DisplaySeconds, raw.DisplaySeconds)
	setInt(&cfg.HealthSeconds, raw.HealthSeconds)
	setInt(&cfg.MinImageBytes, raw.MinImageBytes)
	setInt(&cfg.CaptureWidth, raw.CaptureWidth)
	setString(&cfg.CaptureCommand, raw.CaptureCommand)
	setString(&cfg.LogLevel, strings.ToLower(raw.LogLevel))
	if file := strings.TrimSpace(raw.CaptureFile); file != "" {
		cfg.CaptureFile = mustExpand(file)
	}
	if logPath := strings.TrimSpace(raw.LogPath); logPath != "" {
		cfg.LogPath = mustExpand(logPath)
	}
	cfg.Demo = raw.Demo
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

// applyEnv overlays the .env values, then the process environment.
func applyEnv(cfg *Config, file map[string]string) {
	lookup := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return file[key]
	}
	setString(&cfg.Username, lookup(EnvUsername))
	setString(&cfg.Password, lookup(EnvPassword))
	setString(&cfg.Token, lookup(EnvToken))
	setString(&cfg.APIURL, lookup(EnvAPIURL))
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

func withScheme(raw string) string {
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

// describe flattens validator errors into one readable line.
func describe(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
