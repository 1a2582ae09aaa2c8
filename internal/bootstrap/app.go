package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/faqbot/internal/infra/config"
)

const shutdownTimeout = 10 * time.Second

// Model is the part of the model gateway the process lifecycle drives.
type Model interface {
	Warm(ctx context.Context) error
	Close() error
}

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	model  Model
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, model Model) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, model: model}
}

// Run starts the HTTP server and blocks until shutdown. With model.preload set
// the model is warmed in the background so the server answers FAQ traffic
// while it loads.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	warmCtx, cancelWarm := context.WithCancel(ctx)
	defer cancelWarm()
	if a.cfg.Model.Preload && a.model != nil {
		go a.warm(warmCtx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutdown signal received")
		runErr = a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	cancelWarm()
	if a.model != nil {
		if err := a.model.Close(); err != nil {
			a.logger.Error("model close failed", "error", err)
		}
	}
	return runErr
}

func (a *App) warm(ctx context.Context) {
	start := time.Now()
	a.logger.Info("preloading model")
	if err := a.model.Warm(ctx); err != nil {
		a.logger.Error("model preload failed, will retry on first request", "error", err)
		return
	}
	a.logger.Info("model preloaded", "elapsed", time.Since(start).String())
}
