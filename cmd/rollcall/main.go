package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/rollcall/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default ~/.config/rollcall/config.toml)")
	prefsPath := flag.String("prefs", "", "prefs file path (default ~/.config/rollcall/prefs.toml)")
	refreshSeconds := flag.Int("refresh", 0, "refresh interval in seconds (optional, overrides config)")
	demo := flag.Bool("demo", false, "submit a synthetic frame when no camera is configured")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:   *configPath,
		PrefsPath:    *prefsPath,
		Demo:         *demo,
		RefreshEvery: *refreshSeconds,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "rollcall: %v\n", err)
		return 1
	}
	return 0
}
