package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/config"
	"fleetdeck/internal/logging"
)

type commandContext struct {
	configFlag  *string
	backendFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, backendFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		backendFlag: backendFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.backendFlag != nil {
			if override := strings.TrimSpace(*c.backendFlag); override != "" {
				cfg.Backend.URL = override
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// logger builds the command logger. Commands that own the terminal pass
// fileOnly so log lines never interleave with the rendered dashboard.
func (c *commandContext) logger(fileOnly bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if fileOnly {
		return logging.NewForFile(cfg)
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) client() (*backend.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := backend.NewClient(cfg.Backend.URL, backend.WithTimeout(cfg.RequestTimeout()))
	if err != nil {
		return nil, fmt.Errorf("configure backend client: %w", err)
	}
	return client, nil
}

func wrapBackendError(err error, baseURL string) error {
	if err == nil {
		return nil
	}
	if backend.IsUnavailable(err) {
		return fmt.Errorf("backend %s is unreachable; check [backend] url or pass --backend: %w", baseURL, err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
