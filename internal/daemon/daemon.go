package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"easel/internal/backend"
	"easel/internal/config"
	"easel/internal/job"
	"easel/internal/logging"
)

// Daemon hosts the synchronous job endpoint and enforces single-instance
// execution.
type Daemon struct {
	cfg          *config.Config
	client       backend.Client
	orchestrator *job.Orchestrator
	settings     job.Settings
	logger       *slog.Logger
	lock         *flock.Flock

	running  atomic.Bool
	listener net.Listener
	server   *http.Server
}

// New constructs the daemon around an orchestrator.
func New(cfg *config.Config, client backend.Client, orchestrator *job.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.Paths.LockFile
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	d := &Daemon{
		cfg:          cfg,
		client:       client,
		orchestrator: orchestrator,
		settings:     job.SettingsFromConfig(cfg),
		logger:       logging.NewComponentLogger(logger, "daemon"),
		lock:         flock.New(lockPath),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/run", d.handleRun)
	mux.HandleFunc("/healthz", d.handleHealth)
	d.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		// Write timeout must outlast the longest job deadline plus the
		// artifact fetch; the run handler blocks for the whole job.
		WriteTimeout: d.settings.MaxWait + 3*time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return d, nil
}

// Start acquires the instance lock and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance holds %s", d.lock.Path())
	}

	listener, err := net.Listen("tcp", d.cfg.Paths.Bind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("listen on %s: %w", d.cfg.Paths.Bind, err)
	}
	d.listener = listener
	d.running.Store(true)

	go func() {
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		d.Stop()
	}()

	d.logger.Info("listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Stop shuts the server down and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Swap(false) {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = d.server.Shutdown(shutdownCtx)
	if d.listener != nil {
		_ = d.listener.Close()
		d.listener = nil
	}
	_ = d.lock.Unlock()
}
