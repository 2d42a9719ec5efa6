// Package config loads agent-device's daemon/CLI configuration, grounded
// on the teacher's internal/config's viper-based Default()/Load()/
// file-search-order pattern, generalized from log-tailing defaults to
// daemon timeouts, retry tuning, and device defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds daemon and CLI configuration shared by every command.
type Config struct {
	Format  string `mapstructure:"format"`
	Level   string `mapstructure:"level"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	Daemon  DaemonConfig  `mapstructure:"daemon"`
	Timeout TimeoutConfig `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Device  DeviceConfig  `mapstructure:"device"`
}

// DaemonConfig controls the long-lived automation daemon process.
type DaemonConfig struct {
	// Port, when non-zero, pins the loopback listener to a fixed port
	// instead of letting the OS assign one. Mainly useful for tests.
	Port int `mapstructure:"port"`
	// HomeDir overrides ~/.agent-device for daemon.json/sessions/logs.
	HomeDir string `mapstructure:"home_dir"`
}

// TimeoutConfig holds the env-overridable timeouts from spec.md §6.
type TimeoutConfig struct {
	IOSBootMs        int `mapstructure:"ios_boot_ms"`
	IOSDeviceReadyMs int `mapstructure:"ios_device_ready_ms"`
	AppLogMaxBytes   int `mapstructure:"app_log_max_bytes"`
	AppLogMaxFiles   int `mapstructure:"app_log_max_files"`
}

// RetryConfig centralizes backoff tuning: it is a single policy, and
// every retry.Policy the daemon uses is built from it
// (handlers.Deps.retryPolicy) rather than tuned per call site. There is
// no separate tuning per operation kind.
type RetryConfig struct {
	MaxAttempts  int  `mapstructure:"max_attempts"`
	BaseDelayMs  int  `mapstructure:"base_delay_ms"`
	MaxDelayMs   int  `mapstructure:"max_delay_ms"`
	Jitter       bool `mapstructure:"jitter"`
	LogTelemetry bool `mapstructure:"log_telemetry"`
}

// DeviceConfig holds default device selectors, overridable by
// ANDROID_DEVICE/ANDROID_SERIAL/IOS_DEVICE/IOS_UDID per spec.md §6.
type DeviceConfig struct {
	AndroidDevice string `mapstructure:"android_device"`
	AndroidSerial string `mapstructure:"android_serial"`
	IOSDevice     string `mapstructure:"ios_device"`
	IOSUDID       string `mapstructure:"ios_udid"`
}

// Default returns a Config with the spec's documented defaults.
func Default() *Config {
	return &Config{
		Format: "ndjson",
		Level:  "info",
		Daemon: DaemonConfig{},
		Timeout: TimeoutConfig{
			IOSBootMs:        120000,
			IOSDeviceReadyMs: 15000,
			AppLogMaxBytes:   5 * 1024 * 1024,
			AppLogMaxFiles:   1,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelayMs: 200,
			MaxDelayMs:  10000,
			Jitter:      true,
		},
	}
}

// Meta records where a loaded Config's values came from, for `doctor`'s
// provenance report (ComputeSources).
type Meta struct {
	ConfigFile string
	FileValues map[string]bool
}

// LoadWithMeta loads configuration the same way Load does, but also
// returns Meta so callers (the CLI's root command) can report whether
// each setting came from a config file, the environment, or a default.
func LoadWithMeta() (*Config, *Meta, error) {
	cfg := Default()
	v := newViper(cfg)

	configFile := findConfigFile()
	fileValues := map[string]bool{}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		for _, key := range v.AllKeys() {
			if v.InConfig(key) {
				fileValues[key] = true
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, &Meta{ConfigFile: configFile, FileValues: fileValues}, nil
}

// Load is LoadWithMeta without provenance, for callers that don't need it.
func Load() (*Config, error) {
	cfg, _, err := LoadWithMeta()
	return cfg, err
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("level", cfg.Level)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("daemon.port", cfg.Daemon.Port)
	v.SetDefault("daemon.home_dir", cfg.Daemon.HomeDir)
	v.SetDefault("timeout.ios_boot_ms", cfg.Timeout.IOSBootMs)
	v.SetDefault("timeout.ios_device_ready_ms", cfg.Timeout.IOSDeviceReadyMs)
	v.SetDefault("timeout.app_log_max_bytes", cfg.Timeout.AppLogMaxBytes)
	v.SetDefault("timeout.app_log_max_files", cfg.Timeout.AppLogMaxFiles)
	v.SetDefault("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay_ms", cfg.Retry.BaseDelayMs)
	v.SetDefault("retry.max_delay_ms", cfg.Retry.MaxDelayMs)
	v.SetDefault("retry.jitter", cfg.Retry.Jitter)

	v.SetEnvPrefix("AGENT_DEVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("timeout.ios_boot_ms", "AGENT_DEVICE_IOS_BOOT_TIMEOUT_MS")
	_ = v.BindEnv("timeout.ios_device_ready_ms", "AGENT_DEVICE_IOS_DEVICE_READY_TIMEOUT_MS")
	_ = v.BindEnv("timeout.app_log_max_bytes", "AGENT_DEVICE_APP_LOG_MAX_BYTES")
	_ = v.BindEnv("timeout.app_log_max_files", "AGENT_DEVICE_APP_LOG_MAX_FILES")
	return v
}

// applyEnvOverrides wires the spec's literal env var names (which don't
// follow the AGENT_DEVICE_<section>_<key> shape viper's replacer expects)
// plus the bare device-selector env vars (ANDROID_DEVICE, IOS_UDID, ...).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENT_DEVICE_IOS_BOOT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 5000 {
			cfg.Timeout.IOSBootMs = n
		}
	}
	if v := os.Getenv("AGENT_DEVICE_IOS_DEVICE_READY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1000 {
			cfg.Timeout.IOSDeviceReadyMs = n
		}
	}
	if v := os.Getenv("AGENT_DEVICE_APP_LOG_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Timeout.AppLogMaxBytes = n
		}
	}
	if v := os.Getenv("AGENT_DEVICE_APP_LOG_MAX_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Timeout.AppLogMaxFiles = n
		}
	}
	cfg.Device.AndroidDevice = firstNonEmpty(os.Getenv("ANDROID_DEVICE"), cfg.Device.AndroidDevice)
	cfg.Device.AndroidSerial = firstNonEmpty(os.Getenv("ANDROID_SERIAL"), cfg.Device.AndroidSerial)
	cfg.Device.IOSDevice = firstNonEmpty(os.Getenv("IOS_DEVICE"), cfg.Device.IOSDevice)
	cfg.Device.IOSUDID = firstNonEmpty(os.Getenv("IOS_UDID"), cfg.Device.IOSUDID)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// HomeDir returns the directory holding daemon.json, sessions/, and
// logs/ — cfg.Daemon.HomeDir if set, otherwise ~/.agent-device.
func (c *Config) HomeDir() string {
	if c != nil && c.Daemon.HomeDir != "" {
		return c.Daemon.HomeDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".agent-device")
}

// findConfigFile searches, in precedence order: ./.agent-device.yaml,
// ~/.agent-device.yaml, $XDG_CONFIG_HOME/agent-device/config.yaml.
func findConfigFile() string {
	names := []string{".agent-device.yaml", ".agent-device.yml"}

	home, homeErr := os.UserHomeDir()
	configDir, configDirErr := os.UserConfigDir()

	var searchPaths []string
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}
	if homeErr == nil {
		searchPaths = append(searchPaths, home)
	}

	for _, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	if configDirErr == nil {
		path := filepath.Join(configDir, "agent-device", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// LoadFromFile loads configuration from a specific file, bypassing the
// search order.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	v := newViper(cfg)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks config values for basic correctness.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	switch strings.ToLower(c.Format) {
	case "", "ndjson", "text":
	default:
		return fmt.Errorf("invalid format: %q (expected ndjson or text)", c.Format)
	}
	if c.Timeout.IOSBootMs < 5000 {
		return fmt.Errorf("timeout.ios_boot_ms must be >= 5000, got %d", c.Timeout.IOSBootMs)
	}
	if c.Timeout.IOSDeviceReadyMs < 1000 {
		return fmt.Errorf("timeout.ios_device_ready_ms must be >= 1000, got %d", c.Timeout.IOSDeviceReadyMs)
	}
	if c.Timeout.AppLogMaxBytes <= 0 {
		return fmt.Errorf("timeout.app_log_max_bytes must be > 0")
	}
	if c.Timeout.AppLogMaxFiles <= 0 {
		return fmt.Errorf("timeout.app_log_max_files must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	return nil
}

// IOSBootTimeout returns the configured iOS simulator boot timeout as a
// time.Duration.
func (c *Config) IOSBootTimeout() time.Duration {
	return time.Duration(c.Timeout.IOSBootMs) * time.Millisecond
}

// IOSDeviceReadyTimeout returns the configured iOS physical-device
// readiness timeout as a time.Duration.
func (c *Config) IOSDeviceReadyTimeout() time.Duration {
	return time.Duration(c.Timeout.IOSDeviceReadyMs) * time.Millisecond
}

// ConfigFile returns the path to the config file that would be loaded.
func ConfigFile() string {
	return findConfigFile()
}

// Source classifies where one setting's value came from, for `doctor`.
type Source struct {
	Key    string
	Origin string // "flag", "env", "file", "default"
}

// ComputeSources reports, for a fixed set of well-known keys, whether
// each came from an explicit CLI flag (flagsSet), the environment, the
// config file (meta.FileValues), or a built-in default — in that
// precedence order, matching viper's own override precedence.
func ComputeSources(meta *Meta, flagsSet map[string]bool) []Source {
	keys := []string{"format", "level", "daemon.port", "timeout.ios_boot_ms", "timeout.ios_device_ready_ms"}
	envKeys := map[string]string{
		"timeout.ios_boot_ms":         "AGENT_DEVICE_IOS_BOOT_TIMEOUT_MS",
		"timeout.ios_device_ready_ms": "AGENT_DEVICE_IOS_DEVICE_READY_TIMEOUT_MS",
	}

	out := make([]Source, 0, len(keys))
	for _, k := range keys {
		origin := "default"
		if meta != nil && meta.FileValues[k] {
			origin = "file"
		}
		if envVar, ok := envKeys[k]; ok && os.Getenv(envVar) != "" {
			origin = "env"
		}
		if flagsSet[k] {
			origin = "flag"
		}
		out = append(out, Source{Key: k, Origin: origin})
	}
	return out
}
