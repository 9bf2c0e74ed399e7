package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"fleetdeck/internal/config"
	"fleetdeck/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *testsupport.FakeBackend
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, workers ...testsupport.FakeWorker) *cliTestEnv {
	t.Helper()
	t.Setenv("FLEETDECK_BACKEND_URL", "")
	t.Setenv("FLEETDECK_DASHBOARD_TOKEN", "")

	fb := testsupport.NewFakeBackend(t, workers...)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fb.URL()))
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		backend:    fb,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, context.Background(), args, configPath, "")
}

func runCLIWithInput(t *testing.T, ctx context.Context, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func twoWorkers() []testsupport.FakeWorker {
	return []testsupport.FakeWorker{
		{
			Container: testsupport.Running("aaaa1111bbbb2222", "downloader"),
			Status:    testsupport.Downloading("ubuntu.iso", 67, 5452595),
			Logs:      "piece 12 verified\npiece 13 verified",
		},
		{
			Container: testsupport.Running("cccc3333dddd4444", "seeder"),
			Status:    testsupport.Seeding("debian.iso", 2048),
		},
	}
}
