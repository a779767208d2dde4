// Package api provides HTTP handlers and the host-surface server for the
// usage-limiting and restriction engine.
//
// It exposes RESTful endpoints for restriction management, blocking checks,
// progressive limits, focus sessions and the usage ledger. The hosting
// application (UI, notification delivery) consumes these endpoints and
// renders whatever the engine returns.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/clock"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/focus"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/limits"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/notify"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/restriction"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/scheduler"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/store"
)

// Default server configuration constants
const (
	// DefaultAddr is the default listen address for the host surface.
	DefaultAddr = ":8080"
	// ReductionCronSpec runs the daily pass over due progressive limits
	// shortly after local midnight.
	ReductionCronSpec = "5 0 * * *"
	// WatcherCronSpec drives the restriction watcher once a minute.
	WatcherCronSpec = "* * * * *"
	// shutdownTimeout bounds graceful HTTP shutdown.
	shutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires the three managers behind HTTP handlers.
type Server struct {
	st           store.Store
	clk          clock.Clock
	restrictions *restriction.Manager
	limits       *limits.Engine
	focus        *focus.Manager
}

// NewServer creates a Server over already-constructed collaborators.
func NewServer(st store.Store, clk clock.Clock, rm *restriction.Manager, le *limits.Engine, fm *focus.Manager) *Server {
	return &Server{st: st, clk: clk, restrictions: rm, limits: le, focus: fm}
}

// Handler returns the route table for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/restrictions", s.restrictionsHandler)
	mux.HandleFunc("/restrictions/active", s.activeRestrictionsHandler)
	mux.HandleFunc("/restrictions/", s.restrictionItemHandler)
	mux.HandleFunc("/blocked", s.blockedHandler)
	mux.HandleFunc("/limits", s.limitsHandler)
	mux.HandleFunc("/limits/process", s.processReductionsHandler)
	mux.HandleFunc("/limits/", s.limitItemHandler)
	mux.HandleFunc("/milestones/uncelebrated", s.uncelebratedMilestonesHandler)
	mux.HandleFunc("/milestones/", s.milestoneItemHandler)
	mux.HandleFunc("/focus/start", s.startFocusHandler)
	mux.HandleFunc("/focus/complete", s.completeFocusHandler)
	mux.HandleFunc("/focus/cancel", s.cancelFocusHandler)
	mux.HandleFunc("/focus/status", s.focusStatusHandler)
	mux.HandleFunc("/focus/stats", s.focusStatsHandler)
	mux.HandleFunc("/usage", s.recordUsageHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run assembles the engine and serves the host surface until SIGINT/SIGTERM.
// driver selects the storage backend: "sqlite", "postgres" or "memory".
func Run(driver string, storeOpts []store.Option, apiOpts ...Option) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	st, err := openStore(driver, storeOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	clk := clock.NewSystem()
	notifier := notify.NewSlogNotifier()
	restrictionManager := restriction.NewManager(st, clk)
	limitEngine := limits.NewEngine(st, clk)
	focusManager := focus.NewManager(st, clk, notifier)
	watcher := restriction.NewWatcher(restrictionManager, notifier)

	if err := restrictionManager.SeedPresets(); err != nil {
		slog.Warn("Preset seeding failed, continuing without presets", "error", err)
	}

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob(ReductionCronSpec, func() {
		if err := limitEngine.ProcessWeeklyReductions(clk.Now()); err != nil {
			slog.Error("Scheduled reduction pass failed", "error", err)
		}
	}); err != nil {
		return err
	}
	if err := sched.AddJob(WatcherCronSpec, watcher.Tick); err != nil {
		return err
	}

	server := NewServer(st, clk, restrictionManager, limitEngine, focusManager)
	httpServer := &http.Server{Addr: cfg.Addr, Handler: server.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Host surface listening", "addr", cfg.Addr, "driver", driver)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// openStore builds the configured storage backend.
func openStore(driver string, storeOpts []store.Option) (store.Store, error) {
	switch driver {
	case "postgres":
		return store.NewPostgresStore(storeOpts...)
	case "memory":
		return store.NewInMemoryStore(), nil
	default:
		return store.NewSQLiteStore(storeOpts...)
	}
}
