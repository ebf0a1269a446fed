package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/rollcall/internal/api"
	"github.com/five82/rollcall/internal/capture"
	"github.com/five82/rollcall/internal/config"
	"github.com/five82/rollcall/internal/prefs"
	"github.com/five82/rollcall/internal/session"
	"github.com/five82/rollcall/internal/ui"
)

// Options configure the dashboard.
type Options struct {
	ConfigPath   string
	PrefsPath    string // empty uses default ~/.config/rollcall/prefs.toml
	Demo         bool   // force the synthetic frame source
	RefreshEvery int    // seconds; zero uses the config value
}

const (
	startupTimeout = 5 * time.Second
	uiTick         = time.Second
)

var errNoCredentials = errors.New("no usable token and no credentials; set " +
	config.EnvUsername + " and " + config.EnvPassword)

// Run boots the dashboard until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Demo {
		cfg.Demo = true
	}
	if opts.RefreshEvery > 0 {
		cfg.RefreshSeconds = opts.RefreshEvery
	}

	logger, err := newLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting", zap.String("api_url", cfg.APIURL), zap.Bool("demo", cfg.Demo))

	userPrefs := prefs.Load(opts.PrefsPath)

	client, err := api.NewClient(cfg.APIURL, cfg.FaceAPIURL)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := authenticate(startCtx, client, cfg, time.Now()); err != nil {
		return err
	}

	source, err := capture.New(cfg.CaptureCommand, cfg.CaptureFile, cfg.CaptureWidth, cfg.Demo)
	switch {
	case errors.Is(err, capture.ErrNoSource):
		logger.Warn("no capture source configured; captures will report no image")
	case err != nil:
		return fmt.Errorf("init capture: %w", err)
	}

	sess, err := session.New(session.Options{
		Service:       client,
		Source:        source,
		Logger:        logger.Named("session"),
		MinImageBytes: cfg.MinImageBytes,
		DisplayFor:    cfg.DisplayDuration(),
		Reauth:        reauthFunc(client, cfg),
	})
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer sess.Close()
	sess.Start(ctx)
	go sess.Watch(ctx, time.Second)

	// Populate the snapshot before the UI starts; a failure shows as offline.
	if err := sess.Refresh(startCtx); err != nil {
		logger.Warn("initial refresh failed", zap.Error(err))
	}
	StartPoller(ctx, "refresh", cfg.RefreshInterval(), logger, sess.Refresh)

	if cfg.FaceAPIURL != "" {
		probe := faceProbe(client, sess)
		_ = probe(startCtx)
		StartPoller(ctx, "face-health", cfg.HealthInterval(), logger, probe)
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   sess,
		Logger:    logger.Named("ui"),
		Theme:     userPrefs.Theme,
		StartView: userPrefs.StartView,
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogPath,
		Tick:      uiTick,
		Identity:  identity(cfg),
	})
}

// authenticate installs the configured token, signing in when it is missing
// or already expired.
func authenticate(ctx context.Context, client *api.Client, cfg config.Config, now time.Time) error {
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	if client.Token() != "" && !client.TokenExpired(now) {
		return nil
	}
	if !cfg.HasCredentials() {
		return errNoCredentials
	}
	if _, err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("sign in as %s: %w", cfg.Username, err)
	}
	return nil
}

func reauthFunc(client *api.Client, cfg config.Config) func(context.Context) error {
	if !cfg.HasCredentials() {
		return nil
	}
	return func(ctx context.Context) error {
		_, err := client.Login(ctx, cfg.Username, cfg.Password)
		return err
	}
}

func faceProbe(client *api.Client, sess *session.Session) pollFunc {
	return func(ctx context.Context) error {
		health, err := client.FaceHealth(ctx)
		sess.SetFaceHealth(health, err)
		return err
	}
}

func identity(cfg config.Config) string {
	if cfg.Username != "" {
		return cfg.Username
	}
	return "token user"
}
