// Package config loads client settings from defaults, an optional YAML
// file, AREACALC_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fpang/area-calc/internal/filehandler"
	"github.com/fpang/area-calc/internal/measure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every key when read from the environment.
	EnvPrefix = "AREACALC"
	fileName  = "areacalc"
)

// Keys
const (
	KeyServerURL      = "server_url"
	KeyProbeURL       = "probe_url"
	KeyProbeInterval  = "probe_interval"
	KeyRequestTimeout = "request_timeout"
	KeyLogLevel       = "log_level"
	KeyLogFile        = "log_file"
	KeyMaxUploadBytes = "max_upload_bytes"
)

// Config is the resolved client configuration.
type Config struct {
	ServerURL      string        `mapstructure:"server_url"`
	ProbeURL       string        `mapstructure:"probe_url"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFile        string        `mapstructure:"log_file"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyServerURL, measure.DefaultServerURL)
	v.SetDefault(KeyProbeURL, "")
	v.SetDefault(KeyProbeInterval, 5*time.Second)
	v.SetDefault(KeyRequestTimeout, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyMaxUploadBytes, filehandler.DefaultMaxUploadBytes)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "configuration file (default ./areacalc.yaml or ~/.config/areacalc/areacalc.yaml)")
	fs.String("server", measure.DefaultServerURL, "measurement server URL")
	fs.String("probe-url", "", "URL polled to detect connectivity (default <server>/)")
	fs.Duration("probe-interval", 5*time.Second, "interval between connectivity probes")
	fs.Duration("timeout", 0, "measurement request timeout (0 uses the transport default)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-file", "", "also write logs to this file")
}

// BindFlags makes the flags registered by AddFlags override file and
// environment values when set on the command line.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		KeyServerURL:      "server",
		KeyProbeURL:       "probe-url",
		KeyProbeInterval:  "probe-interval",
		KeyRequestTimeout: "timeout",
		KeyLogLevel:       "log-level",
		KeyLogFile:        "log-file",
	}
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the configuration. An explicit file must exist; otherwise the
// default locations are searched and a missing file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", fileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.ServerURL = strings.TrimSpace(c.ServerURL)
	if c.ServerURL == "" {
		c.ServerURL = measure.DefaultServerURL
	}
	if c.ProbeURL == "" {
		c.ProbeURL = strings.TrimRight(c.ServerURL, "/") + "/"
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyProbeInterval, c.ProbeInterval)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%s must not be negative, got %s", KeyRequestTimeout, c.RequestTimeout)
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = filehandler.DefaultMaxUploadBytes
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	return nil
}
