// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/modsmith/modsmith/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "modsmith"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. MODSMITH_GAME_DIR.
	EnvPrefix = "MODSMITH"
)

//go:embed config_schema.cue
var configSchema string

// configDirOverride lets tests bypass the user config directory.
var configDirOverride string

// SetConfigDirOverride sets a custom config directory path for tests.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// Reset clears test overrides.
func Reset() { configDirOverride = "" }

// ConfigDir returns the modsmith configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS
// and $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// loadWithOptions loads defaults, the config file and environment overrides,
// in increasing precedence, and validates the result.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("game_dir", defaults.GameDir)
	v.SetDefault("workshop_sync_dir", defaults.WorkshopSyncDir)
	v.SetDefault("steam_mod_dir", defaults.SteamModDir)
	v.SetDefault("library_dir", defaults.LibraryDir)
	v.SetDefault("cache_file", defaults.CacheFile)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("language", defaults.Language)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'modsmith config show' to see the effective configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides bypass the CUE schema, so validate again.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check MODSMITH_* environment variables").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigPath picks the config file: an explicit path must exist;
// otherwise the config directory and then the working directory are tried.
// An empty result means defaults only.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'modsmith config init' to create a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	name := ConfigFileName + "." + ConfigFileExt
	if p := filepath.Join(cfgDir, name); fileExists(p) {
		return p, nil
	}
	if opts.ConfigDirPath == "" && fileExists(name) {
		return name, nil
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := CheckFileSize(data, DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return FormatError(userValue.Err(), path)
	}

	// Fields are optional, so concreteness is not required.
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config into dir (ConfigDir() when
// empty) unless a file is already there. It returns the file path and whether
// it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	if dir == "" {
		d, err := ConfigDir()
		if err != nil {
			return "", false, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modsmith configuration file\n\n")

	fmt.Fprintf(&sb, "game_dir: %q\n", cfg.GameDir)
	fmt.Fprintf(&sb, "workshop_sync_dir: %q\n", cfg.WorkshopSyncDir)
	fmt.Fprintf(&sb, "steam_mod_dir: %q\n", cfg.SteamModDir)
	if cfg.LibraryDir != "" {
		fmt.Fprintf(&sb, "library_dir: %q\n", cfg.LibraryDir)
	}
	if cfg.CacheFile != "" {
		fmt.Fprintf(&sb, "cache_file: %q\n", cfg.CacheFile)
	}
	fmt.Fprintf(&sb, "workers: %d\n", cfg.Workers)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)
	fmt.Fprintf(&sb, "language: %q\n", cfg.Language)

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
