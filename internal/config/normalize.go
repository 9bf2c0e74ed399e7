package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeBackend(); err != nil {
		return err
	}
	if err := c.normalizeDashboard(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeBackend() error {
	if value, ok := os.LookupEnv("FLEETDECK_BACKEND_URL"); ok && strings.TrimSpace(value) != "" {
		c.Backend.URL = value
	}
	raw := strings.TrimSpace(c.Backend.URL)
	if raw == "" {
		raw = defaultBackendURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawQuery = ""
	parsed.Fragment = ""
	c.Backend.URL = parsed.String()
	return nil
}

func (c *Config) normalizeDashboard() error {
	c.Dashboard.Bind = strings.TrimSpace(c.Dashboard.Bind)
	if c.Dashboard.Bind == "" {
		c.Dashboard.Bind = defaultDashboardBind
	}
	if c.Dashboard.Token == "" {
		if value, ok := os.LookupEnv("FLEETDECK_DASHBOARD_TOKEN"); ok {
			c.Dashboard.Token = value
		}
	}
	c.Dashboard.Token = strings.TrimSpace(c.Dashboard.Token)
	if strings.TrimSpace(c.Dashboard.StateDir) == "" {
		c.Dashboard.StateDir = defaultStateDir
	}
	var err error
	if c.Dashboard.StateDir, err = expandPath(c.Dashboard.StateDir); err != nil {
		return fmt.Errorf("dashboard.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
