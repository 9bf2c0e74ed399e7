package testsupport

import (
	"path/filepath"
	"testing"

	"fleetdeck/internal/config"
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
	cfgVal.Dashboard.StateDir = filepath.Join(base, "state")
	cfgVal.Dashboard.Bind = "127.0.0.1:0"
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Backend.RequestTimeout = 2
	cfgVal.Reconcile.PollInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithBackendURL points the config at a fake backend.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.URL = url
	}
}

// WithDashboardToken sets the dashboard bearer token.
func WithDashboardToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dashboard.Token = token
	}
}

// WithPollInterval overrides the reconciliation cadence in seconds.
func WithPollInterval(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reconcile.PollInterval = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Dashboard.StateDir)
}
