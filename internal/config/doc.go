// Package config loads, normalizes, and validates clipmark configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OBS_WEBSOCKET_PASSWORD. The Config type centralizes every knob the daemon
// and CLI need: detection regions, match thresholds, pairing tolerances, and
// directory layout.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical values, and clear validation errors.
package config
