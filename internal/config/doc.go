// Package config loads, normalizes, and validates fleetdeck configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FLEETDECK_BACKEND_URL. The Config type centralizes every knob the CLI,
// reconciliation loop, and dashboard server need so the backend address and
// polling cadence are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized URLs, canonical log formats, and clear validation errors.
package config
