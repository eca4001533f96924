package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultNormalizes(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Job.MaxWaitSeconds != 300 {
		t.Errorf("image pipeline max wait = %d, want 300", cfg.Job.MaxWaitSeconds)
	}
	if cfg.Job.PollIntervalMillis != 1500 {
		t.Errorf("image pipeline poll interval = %d, want 1500", cfg.Job.PollIntervalMillis)
	}
	if got := cfg.Job.OutputNodes; len(got) != 1 || got[0] != "9" {
		t.Errorf("image pipeline output nodes = %v, want [9]", got)
	}
}

func TestAudioPipelineDefaults(t *testing.T) {
	cfg := Default()
	cfg.Job.Pipeline = "audio"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Job.MaxWaitSeconds != 600 {
		t.Errorf("audio pipeline max wait = %d, want 600", cfg.Job.MaxWaitSeconds)
	}
	if cfg.Job.PollIntervalMillis != 2000 {
		t.Errorf("audio pipeline poll interval = %d, want 2000", cfg.Job.PollIntervalMillis)
	}
	if got := cfg.Job.OutputNodes; len(got) != 1 || got[0] != "8" {
		t.Errorf("audio pipeline output nodes = %v, want [8]", got)
	}
}

func TestNormalizeOutputFallbacks(t *testing.T) {
	cases := []struct {
		format      string
		quality     int
		wantFormat  string
		wantQuality int
	}{
		{"jpeg", 82, "JPEG", 82},
		{"jpg", 50, "JPEG", 50},
		{"webp", 90, "WEBP", 90},
		{"WebP", 90, "WEBP", 90},
		{"png", 82, "JPEG", 82},
		{"", 0, "JPEG", 82},
		{"JPEG", -5, "JPEG", 1},
		{"JPEG", 400, "JPEG", 100},
	}
	for _, tc := range cases {
		cfg := Default()
		cfg.Output.Format = tc.format
		cfg.Output.Quality = tc.quality
		cfg.normalizeOutput()
		if cfg.Output.Format != tc.wantFormat {
			t.Errorf("format %q -> %q, want %q", tc.format, cfg.Output.Format, tc.wantFormat)
		}
		if cfg.Output.Quality != tc.wantQuality {
			t.Errorf("quality %d -> %d, want %d", tc.quality, cfg.Output.Quality, tc.wantQuality)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvBackendURL, "http://10.0.0.5:8188/")
	t.Setenv(EnvOutputFormat, "webp")
	t.Setenv(EnvOutputQuality, "not-a-number")

	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Backend.URL != "http://10.0.0.5:8188" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Output.Format != "WEBP" {
		t.Errorf("output format = %q, want WEBP", cfg.Output.Format)
	}
	if cfg.Output.Quality != 82 {
		t.Errorf("invalid quality should fall back to 82, got %d", cfg.Output.Quality)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[backend]
url = "http://localhost:9999"

[job]
pipeline = "audio"

[paths]
log_dir = "` + dir + `"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Backend.URL != "http://localhost:9999" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Job.MaxWaitSeconds != 600 {
		t.Errorf("audio max wait = %d, want 600", cfg.Job.MaxWaitSeconds)
	}
	if cfg.Paths.LockFile == "" {
		t.Error("lock file default not filled in")
	}
}

func TestValidateRejectsBadPipeline(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Job.Pipeline = "video"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown pipeline")
	}
}

func TestValidateRejectsBadBackendURL(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Backend.URL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http backend url")
	}
}
