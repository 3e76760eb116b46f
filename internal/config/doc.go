// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from the platform config directory (modsmith/config.cue
// under $XDG_CONFIG_HOME, ~/Library/Application Support or %APPDATA%), from
// ./config.cue, or from an explicit --config path. Every key can be overridden
// with a MODSMITH_ environment variable, e.g. MODSMITH_GAME_DIR or
// MODSMITH_UI_VERBOSE.
//
// Files are validated against the embedded CUE schema (config_schema.cue)
// before they are merged, so typos in keys and out-of-range values are
// reported with their CUE path.
package config
