// Command rollcall-mock serves an in-memory attendance backend for demos and
// local development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/five82/rollcall/internal/mockapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	secret := flag.String("secret", "", "token signing secret (default: built-in demo secret)")
	mismatch := flag.Float64("mismatch", 0, "probability in [0,1] that a capture is reported as someone else's face")
	debug := flag.Bool("debug", false, "debug logging and gin debug mode")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rollcall-mock: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := mockapi.Options{Logger: logger}
	if *secret != "" {
		opts.Secret = []byte(*secret)
	}
	if *mismatch > 0 {
		rate := *mismatch
		opts.Recognizer = func(string, string) bool { return rand.Float64() >= rate }
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mockapi.New(opts).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
			return 1
		}
	}
	return 0
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
