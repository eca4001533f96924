package testsupport

import (
	"path/filepath"
	"testing"

	"easel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LockFile = filepath.Join(base, "easeld.lock")
	cfgVal.Paths.Bind = "127.0.0.1:0"
	cfgVal.Job.MaxWaitSeconds = 5
	cfgVal.Job.PollIntervalMillis = 1
	cfgVal.Job.OutputNodes = []string{"9"}
	cfgVal.Models.BasePaths = []string{filepath.Join(base, "models")}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackendURL points the test config at a backend, usually an
// httptest server.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.URL = url
	}
}

// WithPipeline sets the pipeline kind on the test config.
func WithPipeline(pipeline string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Job.Pipeline = pipeline
	}
}

// WithOutput sets the transcode target on the test config.
func WithOutput(format string, quality int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Format = format
		b.cfg.Output.Quality = quality
	}
}

// WithExpectedModels sets the model files preflight should look for.
func WithExpectedModels(expected map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Models.Expected = expected
	}
}
