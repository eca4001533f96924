package preflight

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"easel/internal/config"
	"easel/internal/logging"
)

// LogDiagnostics dumps the model directory contents and the backend's
// extra-paths file to the log. One-shot startup aid for debugging missing
// model mounts; it never fails.
func LogDiagnostics(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}

	modelTypes := make([]string, 0, len(cfg.Models.Expected))
	for modelType := range cfg.Models.Expected {
		modelTypes = append(modelTypes, modelType)
	}
	sort.Strings(modelTypes)

	for _, base := range cfg.Models.BasePaths {
		logger.Info("model base path", logging.String("path", base), logging.String("entries", listDir(base)))
		for _, modelType := range modelTypes {
			dir := filepath.Join(base, modelType)
			logger.Info("model directory", logging.String("path", dir), logging.String("entries", listDir(dir)))
		}
	}

	if cfg.Models.ExtraPathsFile != "" {
		if contents, err := os.ReadFile(cfg.Models.ExtraPathsFile); err == nil {
			logger.Info("backend extra paths file",
				logging.String("path", cfg.Models.ExtraPathsFile),
				logging.String("contents", strings.TrimSpace(string(contents))),
			)
		} else {
			logger.Info("backend extra paths file missing", logging.String("path", cfg.Models.ExtraPathsFile))
		}
	}
}

func listDir(path string) string {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Sprintf("(%v)", err)
	}
	if len(entries) == 0 {
		return "(empty)"
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
