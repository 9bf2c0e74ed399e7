package config

const (
	defaultBackendURL            = "http://localhost:7000"
	defaultRequestTimeoutSeconds = 5
	defaultPollIntervalSeconds   = 3
	defaultDashboardBind         = "127.0.0.1:7600"
	defaultStateDir              = "~/.local/share/fleetdeck"
	defaultLogDir                = "~/.local/share/fleetdeck/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogTail               = 100
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			URL:            defaultBackendURL,
			RequestTimeout: defaultRequestTimeoutSeconds,
			LogTail:        defaultLogTail,
		},
		Reconcile: Reconcile{
			PollInterval: defaultPollIntervalSeconds,
		},
		Dashboard: Dashboard{
			Bind:     defaultDashboardBind,
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}
