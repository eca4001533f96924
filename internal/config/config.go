package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Backend contains connection settings for the generation backend.
type Backend struct {
	URL                    string `toml:"url"`
	SubmitTimeoutSeconds   int    `toml:"submit_timeout_seconds"`
	StatusTimeoutSeconds   int    `toml:"status_timeout_seconds"`
	ArtifactTimeoutSeconds int    `toml:"artifact_timeout_seconds"`
	ReadyTimeoutSeconds    int    `toml:"ready_timeout_seconds"`
	ReadyAttempts          int    `toml:"ready_attempts"`
	ReadyDelaySeconds      int    `toml:"ready_delay_seconds"`
}

// Output contains image post-processing settings.
type Output struct {
	Format  string `toml:"format"`
	Quality int    `toml:"quality"`
}

// Job contains per-request orchestration defaults.
type Job struct {
	Pipeline           string   `toml:"pipeline"`
	MaxWaitSeconds     int      `toml:"max_wait_seconds"`
	PollIntervalMillis int      `toml:"poll_interval_millis"`
	OutputNodes        []string `toml:"output_nodes"`
}

// Models describes the asset files the backend workflow expects on disk.
type Models struct {
	BasePaths      []string          `toml:"base_paths"`
	Expected       map[string]string `toml:"expected"`
	ExtraPathsFile string            `toml:"extra_paths_file"`
}

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	Bind     string `toml:"bind"`
	LockFile string `toml:"lock_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for easel.
//
// Configuration sections by subsystem:
//   - Backend: generation backend URL and per-call timeouts
//   - Output: target image format and quality for transcoding
//   - Job: pipeline kind, default deadline, poll interval, output nodes
//   - Models: expected model files and candidate base directories
//   - Paths: log directory, bind address, daemon lock file
//   - Logging: log format and level
type Config struct {
	Backend Backend `toml:"backend"`
	Output  Output  `toml:"output"`
	Job     Job     `toml:"job"`
	Models  Models  `toml:"models"`
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/easel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded, environment overrides applied, and
// defaults filled in.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("easel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// SubmitTimeout returns the submit call timeout as a duration.
func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.Backend.SubmitTimeoutSeconds) * time.Second
}

// StatusTimeout returns the status poll timeout as a duration.
func (c *Config) StatusTimeout() time.Duration {
	return time.Duration(c.Backend.StatusTimeoutSeconds) * time.Second
}

// ArtifactTimeout returns the artifact fetch timeout as a duration.
func (c *Config) ArtifactTimeout() time.Duration {
	return time.Duration(c.Backend.ArtifactTimeoutSeconds) * time.Second
}

// PollInterval returns the interval between history polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Job.PollIntervalMillis) * time.Millisecond
}

// MaxWait returns the default overall job deadline.
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.Job.MaxWaitSeconds) * time.Second
}

// ExpandPath resolves ~ prefixes and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
