package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"easel/internal/backend"
	"easel/internal/config"
	"easel/internal/daemon"
	"easel/internal/imageproc"
	"easel/internal/job"
	"easel/internal/logging"
	"easel/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// SkipReadyWait starts serving without probing the backend first.
	SkipReadyWait bool
}

// Run starts the easel daemon runtime loop: logger, backend readiness,
// preflight, then the HTTP surface. It blocks until the context is canceled
// or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("easel-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update easel.log link: %v\n", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "easeld.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	client, err := backend.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	logger.Info("easel daemon starting",
		logging.String("backend_url", cfg.Backend.URL),
		logging.String("pipeline", cfg.Job.Pipeline),
		logging.String("output_format", cfg.Output.Format),
	)

	if !opts.SkipReadyWait {
		delay := time.Duration(cfg.Backend.ReadyDelaySeconds) * time.Second
		if !preflight.WaitForBackend(signalCtx, client, cfg.Backend.ReadyAttempts, delay, logger) {
			preflight.LogDiagnostics(logger, cfg)
			return fmt.Errorf("backend at %s never became ready", cfg.Backend.URL)
		}
	}

	results := preflight.RunAll(signalCtx, cfg, client)
	for _, result := range results {
		if result.Passed {
			logger.Info("preflight check passed", logging.String("check", result.Name))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
	if !preflight.Passed(results) {
		// Missing models fail individual jobs, not the daemon; keep serving
		// so operators can inspect /healthz and logs.
		preflight.LogDiagnostics(logger, cfg)
	}

	proc := imageproc.NewProcessor(cfg.Output.Format, cfg.Output.Quality)
	orchestrator := job.New(client, proc, job.SettingsFromConfig(cfg), logger)

	d, err := daemon.New(cfg, client, orchestrator, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("easel daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "easel.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
