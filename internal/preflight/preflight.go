package preflight

import (
	"context"

	"easel/internal/backend"
	"easel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, client backend.Client) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if client != nil {
		results = append(results, CheckBackend(ctx, client))
	}

	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	results = append(results, CheckModels(cfg)...)

	return results
}

// Passed reports whether every result succeeded.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
