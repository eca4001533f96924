package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateJob(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.URL == "" {
		return errors.New("backend.url must be set (or export COMFYUI_URL)")
	}
	parsed, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.url must be http or https, got %q", c.Backend.URL)
	}
	return nil
}

func (c *Config) validateJob() error {
	switch c.Job.Pipeline {
	case "image", "audio":
	default:
		return fmt.Errorf("job.pipeline must be \"image\" or \"audio\", got %q", c.Job.Pipeline)
	}
	for _, node := range c.Job.OutputNodes {
		if strings.TrimSpace(node) == "" {
			return errors.New("job.output_nodes must not contain empty node ids")
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.Bind) == "" {
		return errors.New("paths.bind must be set")
	}
	return nil
}
