package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variable names honored as overrides. These match the surface
// the worker exposes on its hosting platform.
const (
	EnvBackendURL    = "COMFYUI_URL"
	EnvOutputFormat  = "OUTPUT_IMAGE_FORMAT"
	EnvOutputQuality = "OUTPUT_IMAGE_QUALITY"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeOutput()
	c.normalizeJob()
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv(EnvBackendURL)); value != "" {
		c.Backend.URL = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvOutputFormat)); value != "" {
		c.Output.Format = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvOutputQuality)); value != "" {
		if quality, err := strconv.Atoi(value); err == nil {
			c.Output.Quality = quality
		} else {
			c.Output.Quality = defaultOutputQuality
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockFile) == "" {
		c.Paths.LockFile = filepath.Join(c.Paths.LogDir, "easeld.lock")
	}
	if c.Paths.LockFile, err = expandPath(c.Paths.LockFile); err != nil {
		return fmt.Errorf("paths.lock_file: %w", err)
	}
	if c.Models.ExtraPathsFile != "" {
		if c.Models.ExtraPathsFile, err = expandPath(c.Models.ExtraPathsFile); err != nil {
			return fmt.Errorf("models.extra_paths_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.SubmitTimeoutSeconds <= 0 {
		c.Backend.SubmitTimeoutSeconds = defaultSubmitTimeoutSeconds
	}
	if c.Backend.StatusTimeoutSeconds <= 0 {
		c.Backend.StatusTimeoutSeconds = defaultStatusTimeoutSeconds
	}
	if c.Backend.ArtifactTimeoutSeconds <= 0 {
		c.Backend.ArtifactTimeoutSeconds = defaultArtifactTimeoutSeconds
	}
	if c.Backend.ReadyTimeoutSeconds <= 0 {
		c.Backend.ReadyTimeoutSeconds = defaultReadyTimeoutSeconds
	}
	if c.Backend.ReadyAttempts <= 0 {
		c.Backend.ReadyAttempts = defaultReadyAttempts
	}
	if c.Backend.ReadyDelaySeconds <= 0 {
		c.Backend.ReadyDelaySeconds = defaultReadyDelaySeconds
	}
}

// normalizeOutput applies the fallback rules for the transcoding target:
// unknown formats become JPEG and the quality is clamped into [1, 100].
func (c *Config) normalizeOutput() {
	format := strings.ToUpper(strings.TrimSpace(c.Output.Format))
	switch format {
	case "JPEG", "JPG":
		format = "JPEG"
	case "WEBP":
	default:
		format = defaultOutputFormat
	}
	c.Output.Format = format

	if c.Output.Quality == 0 {
		c.Output.Quality = defaultOutputQuality
	}
	if c.Output.Quality < 1 {
		c.Output.Quality = 1
	}
	if c.Output.Quality > 100 {
		c.Output.Quality = 100
	}
}

func (c *Config) normalizeJob() {
	pipeline := strings.ToLower(strings.TrimSpace(c.Job.Pipeline))
	if pipeline == "" {
		pipeline = defaultPipeline
	}
	c.Job.Pipeline = pipeline

	if c.Job.MaxWaitSeconds <= 0 {
		if pipeline == "audio" {
			c.Job.MaxWaitSeconds = defaultAudioMaxWaitSeconds
		} else {
			c.Job.MaxWaitSeconds = defaultImageMaxWaitSeconds
		}
	}
	if c.Job.PollIntervalMillis <= 0 {
		if pipeline == "audio" {
			c.Job.PollIntervalMillis = defaultAudioPollMillis
		} else {
			c.Job.PollIntervalMillis = defaultImagePollMillis
		}
	}
	if len(c.Job.OutputNodes) == 0 {
		if pipeline == "audio" {
			c.Job.OutputNodes = []string{defaultAudioOutputNode}
		} else {
			c.Job.OutputNodes = []string{defaultImageOutputNode}
		}
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}
