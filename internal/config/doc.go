// Package config loads, normalizes, and validates the easel configuration.
//
// Configuration comes from a TOML file with environment overrides layered on
// top for the fields the hosting platform controls (backend URL, output image
// format and quality). Defaults depend on the configured pipeline: image jobs
// poll faster with a shorter deadline than audio jobs.
package config
