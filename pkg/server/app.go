package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BitLearn/internal/handler/api"
	"BitLearn/internal/usecase"
	"BitLearn/pkg/config"
	xhttp "BitLearn/pkg/http"
	applogger "BitLearn/pkg/logger"
)

// Resource is an infrastructure client closed on shutdown.
type Resource struct {
	Name string
	io.Closer
}

// Resources are closed in reverse order, so list dependencies first.
type Resources []Resource

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	engine    *usecase.LearningEngine
	forwarder *usecase.EventForwarder
	events    *api.EventsHandler
	http      *xhttp.Server
	resources Resources
	l         *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	engine *usecase.LearningEngine,
	forwarder *usecase.EventForwarder,
	events *api.EventsHandler,
	httpServer *xhttp.Server,
	resources Resources,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:       cfg,
		engine:    engine,
		forwarder: forwarder,
		events:    events,
		http:      httpServer,
		resources: resources,
		l:         l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		return err
	}

	sig := <-sigCh
	a.l.Info("shutdown signal received", applogger.String("signal", sig.String()))
	return a.shutdown()
}

func (a *App) start(ctx context.Context) error {
	// The forwarder subscribes first so learning-started reaches the sink.
	a.forwarder.Start(ctx)

	if err := a.http.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	// The immediate cloud-sync job pulls persisted state before the first
	// training tick.
	a.engine.Start(ctx)
	a.l.Info("bitlearn started",
		applogger.String("environment", a.cfg.Environment),
		applogger.String("cloud_backend", a.cfg.Cloud.Backend),
		applogger.Bool("cloud_sync", a.cfg.Engine.UseCloudStorage),
	)
	return nil
}

// shutdown stops the engine first so its final cloud push runs while every
// client is still open.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.engine.Stop(ctx); err != nil {
		a.l.Warn("engine stop error", applogger.Error(err))
		errs = append(errs, err)
	}

	_ = a.events.Close()
	if err := a.http.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	a.forwarder.Stop()

	// Flush aggregated logs before the Kafka producer goes away.
	a.l.RemoveCollector()

	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if err := r.Close(); err != nil {
			a.l.Warn("resource close error", applogger.String("resource", r.Name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 20 * time.Second
}
