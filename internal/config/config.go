// Package config loads the ppass configuration: defaults, then the TOML
// config file, then PPASS_* environment variables, then command flags,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultStoreFile     = ".ppass-store"
	defaultLogLevel      = "info"
	defaultLogMaxSizeMB  = 5
	defaultLogMaxFiles   = 3
	defaultClipboardWait = 45 * time.Second

	identitiesFileName = "identities.txt"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Store      StoreConfig      `toml:"store"`
	Identities IdentitiesConfig `toml:"identities"`
	Logging    LoggingConfig    `toml:"logging"`
	Clipboard  ClipboardConfig  `toml:"clipboard"`
}

type StoreConfig struct {
	// Path of the SQLite store file. Relative paths resolve against the
	// current working directory.
	Path string `toml:"path"`
}

type IdentitiesConfig struct {
	// File holding the age identities, either plain or passphrase
	// sealed. Empty means <ppass home>/identities.txt.
	File string `toml:"file"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type ClipboardConfig struct {
	ClearAfter time.Duration `toml:"clear_after"`
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
	Flags      FlagOverrides
}

type FlagOverrides struct {
	StorePath      *string
	IdentitiesPath *string
}

func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Path: defaultStoreFile,
		},
		Identities: IdentitiesConfig{
			File: "",
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			File:      "",
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
		Clipboard: ClipboardConfig{
			ClearAfter: defaultClipboardWait,
		},
	}
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	configPath, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	if err := loadAndApplyFile(configPath, &cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if cfg.Identities.File == "" {
		home, err := ppassHome(opts)
		if err != nil {
			return Config{}, err
		}
		cfg.Identities.File = filepath.Join(home, identitiesFileName)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Store      *rawStore      `toml:"store"`
	Identities *rawIdentities `toml:"identities"`
	Logging    *rawLogging    `toml:"logging"`
	Clipboard  *rawClipboard  `toml:"clipboard"`
}

type rawStore struct {
	Path *string `toml:"path"`
}

type rawIdentities struct {
	File *string `toml:"file"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

type rawClipboard struct {
	ClearAfter *string `toml:"clear_after"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return applyRawConfig(cfg, raw)
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Store != nil {
		setString(raw.Store.Path, &cfg.Store.Path)
	}
	if raw.Identities != nil {
		setString(raw.Identities.File, &cfg.Identities.File)
	}
	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}
	if raw.Clipboard != nil {
		if err := setDuration("clipboard.clear_after", raw.Clipboard.ClearAfter, &cfg.Clipboard.ClearAfter); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	if value, ok := lookupEnv(opts, "PPASS_STORE"); ok {
		cfg.Store.Path = value
	}
	if value, ok := lookupEnv(opts, "PPASS_IDENTITIES"); ok {
		cfg.Identities.File = value
	}

	if value, ok := lookupEnv(opts, "PPASS_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := lookupEnv(opts, "PPASS_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
	if value, ok := lookupEnv(opts, "PPASS_LOG_MAX_SIZE_MB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse PPASS_LOG_MAX_SIZE_MB: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxSizeMB = parsed
	}
	if value, ok := lookupEnv(opts, "PPASS_LOG_MAX_FILES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse PPASS_LOG_MAX_FILES: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxFiles = parsed
	}

	if value, ok := lookupEnv(opts, "PPASS_CLIPBOARD_CLEAR_AFTER"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: parse PPASS_CLIPBOARD_CLEAR_AFTER: %v", ErrInvalidConfig, err)
		}
		cfg.Clipboard.ClearAfter = d
	}

	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	if flags.StorePath != nil && *flags.StorePath != "" {
		cfg.Store.Path = *flags.StorePath
	}
	if flags.IdentitiesPath != nil && *flags.IdentitiesPath != "" {
		cfg.Identities.File = *flags.IdentitiesPath
	}
}

func validate(cfg Config) error {
	if cfg.Store.Path == "" {
		return fmt.Errorf("%w: store.path must not be empty", ErrInvalidConfig)
	}
	if cfg.Clipboard.ClearAfter <= 0 || cfg.Clipboard.ClearAfter > time.Hour {
		return fmt.Errorf("%w: clipboard.clear_after must be > 0 and <= 1h", ErrInvalidConfig)
	}
	return nil
}

func setString(raw *string, target *string) {
	if raw == nil {
		return
	}
	*target = *raw
}

func setInt(raw *int, target *int) {
	if raw == nil {
		return
	}
	*target = *raw
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := lookupEnv(opts, "PPASS_CONFIG"); ok {
		return value, nil
	}
	return defaultConfigPath(opts)
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		if value, ok := opts.Env[key]; ok {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

func ppassHome(opts LoadOptions) (string, error) {
	if value, ok := lookupEnv(opts, "PPASS_HOME"); ok {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "ppass"), nil
	}

	dataHome := filepath.Join(home, ".local", "share")
	if xdgDataHome, ok := lookupEnv(opts, "XDG_DATA_HOME"); ok && xdgDataHome != "" {
		dataHome = xdgDataHome
	}
	return filepath.Join(dataHome, "ppass"), nil
}

func defaultConfigPath(opts LoadOptions) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "ppass", "config.toml"), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdgConfigHome, ok := lookupEnv(opts, "XDG_CONFIG_HOME"); ok && xdgConfigHome != "" {
		configHome = xdgConfigHome
	}
	return filepath.Join(configHome, "ppass", "config.toml"), nil
}
