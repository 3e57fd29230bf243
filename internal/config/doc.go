// Package config loads, defaults, and validates hearth's TOML configuration.
//
// Resolution order: an explicit --config path, then
// ~/.config/hearth/config.toml, then ./hearth.toml, then built-in defaults.
// The HEARTH_API_KEY environment variable always overrides the configured
// API key. Paths support ~ expansion and are normalized to absolute form.
package config
