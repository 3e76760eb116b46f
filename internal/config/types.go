// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// MaxWorkers bounds the workers setting.
	MaxWorkers = 256
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidWorkers is returned when the worker count is out of range.
	ErrInvalidWorkers = errors.New("invalid worker count")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum level written to stderr.
	LogLevel string

	// InvalidLogLevelError wraps ErrInvalidLogLevel.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidWorkersError wraps ErrInvalidWorkers.
	InvalidWorkersError struct {
		Value int
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// GameDir is the game installation directory.
		GameDir string `json:"game_dir" mapstructure:"game_dir"`
		// WorkshopSyncDir holds workshop items the game syncs itself.
		WorkshopSyncDir string `json:"workshop_sync_dir" mapstructure:"workshop_sync_dir"`
		// SteamModDir is the Steam workshop content directory for the game.
		SteamModDir string `json:"steam_mod_dir" mapstructure:"steam_mod_dir"`
		// LibraryDir is searched for <id>.xml metadata fallbacks.
		LibraryDir string `json:"library_dir" mapstructure:"library_dir"`
		// CacheFile overrides the package cache location.
		CacheFile string `json:"cache_file" mapstructure:"cache_file"`
		// Workers bounds scan and toggle parallelism; 0 means automatic.
		Workers  int      `json:"workers" mapstructure:"workers"`
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// Language selects the diagnostic message language.
		Language string `json:"language" mapstructure:"language"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (l LogLevel) String() string { return string(l) }

// IsValid reports whether l is one of the four supported levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Level maps l to a charmbracelet/log level. Invalid values map to info.
func (l LogLevel) Level() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func (e *InvalidWorkersError) Error() string {
	return fmt.Sprintf("invalid worker count %d (valid: 0-%d)", e.Value, MaxWorkers)
}

func (e *InvalidWorkersError) Unwrap() error { return ErrInvalidWorkers }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap exposes ErrInvalidConfig and every field error to errors.Is and errors.As.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// IsValid returns whether the Config has valid fields. Paths are not checked
// here; a missing game directory is reported when it is used.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Workers < 0 || c.Workers > MaxWorkers {
		errs = append(errs, &InvalidWorkersError{Value: c.Workers})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel: LogLevelInfo,
		Language: "en",
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
