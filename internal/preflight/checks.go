package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"easel/internal/backend"
	"easel/internal/config"
	"easel/internal/logging"
)

// CheckBackend verifies the generation backend answers its stats endpoint.
func CheckBackend(ctx context.Context, client backend.Client) Result {
	const name = "Backend"
	if err := client.Ping(ctx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// WaitForBackend polls the backend's readiness probe until it answers or the
// attempts run out. The worker still starts when the backend never becomes
// ready; jobs will then fail with submission errors instead.
func WaitForBackend(ctx context.Context, client backend.Client, attempts int, delay time.Duration, logger *slog.Logger) bool {
	if logger == nil {
		logger = logging.NewNop()
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := client.Ping(ctx); err == nil {
			logger.Info("backend ready", logging.Int("attempt", attempt))
			return true
		}
		logger.Info("waiting for backend",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
		)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}
	return false
}

// CheckModels locates each expected model file across the configured base
// paths. A model missing from every base path fails its check.
func CheckModels(cfg *config.Config) []Result {
	if len(cfg.Models.Expected) == 0 {
		return nil
	}

	modelTypes := make([]string, 0, len(cfg.Models.Expected))
	for modelType := range cfg.Models.Expected {
		modelTypes = append(modelTypes, modelType)
	}
	sort.Strings(modelTypes)

	results := make([]Result, 0, len(modelTypes))
	for _, modelType := range modelTypes {
		filename := cfg.Models.Expected[modelType]
		name := fmt.Sprintf("Model %s/%s", modelType, filename)
		if located, ok := LocateModel(cfg.Models.BasePaths, modelType, filename); ok {
			results = append(results, Result{Name: name, Passed: true, Detail: located})
		} else {
			results = append(results, Result{Name: name, Detail: "not found in any base path"})
		}
	}
	return results
}

// LocateModel returns the first base path containing the model file.
func LocateModel(basePaths []string, modelType, filename string) (string, bool) {
	for _, base := range basePaths {
		candidate := filepath.Join(base, modelType, filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
