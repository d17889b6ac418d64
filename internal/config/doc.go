// Package config loads, normalizes, and validates the TOML configuration for
// the outloud daemon and CLI.
package config
