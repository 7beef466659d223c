// Package config loads the monoprice CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pior/monoprice"
)

const (
	// CfgEnv overrides the config file path.
	CfgEnv = "MONOPRICE_CFG"

	// CfgFile is the config file name inside the user config directory.
	CfgFile = "monoprice.toml"
)

// Duration is a time.Duration written as a string in TOML ("2s", "500ms").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Breaker configures the circuit breaker of the client.
type Breaker struct {
	Enabled     bool     `toml:"enabled"`
	MaxRequests uint32   `toml:"max_requests" validate:"gte=1"`
	Interval    Duration `toml:"interval" validate:"gte=0"`
	Timeout     Duration `toml:"timeout" validate:"gte=0"`
}

// Watch configures the watch command.
type Watch struct {
	Units    []int    `toml:"units" validate:"dive,min=1,max=3"`
	Interval Duration `toml:"interval" validate:"gte=0"`
}

// Values is the content of the config file.
type Values struct {
	Port     string   `toml:"port" validate:"required"`
	Timeout  Duration `toml:"timeout" validate:"gte=0"`
	Async    bool     `toml:"async"`
	LogLevel string   `toml:"log_level" validate:"oneof=trace debug info warn error disabled"`
	LogFile  string   `toml:"log_file"`
	Breaker  Breaker  `toml:"breaker"`
	Watch    Watch    `toml:"watch"`
}

// Defaults returns the values used when no config file exists.
func Defaults() Values {
	return Values{
		Port:     "/dev/ttyUSB0",
		Timeout:  Duration(monoprice.DefaultTimeout),
		LogLevel: "info",
		Breaker: Breaker{
			MaxRequests: 1,
			Interval:    Duration(time.Minute),
			Timeout:     Duration(30 * time.Second),
		},
		Watch: Watch{
			Units:    []int{1},
			Interval: Duration(monoprice.DefaultWatchInterval),
		},
	}
}

// DefaultPath returns the config file path: $MONOPRICE_CFG if set, otherwise
// monoprice.toml in the user config directory.
func DefaultPath() string {
	if p := os.Getenv(CfgEnv); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return CfgFile
	}
	return filepath.Join(dir, "monoprice", CfgFile)
}

// Load reads the config file at path on top of the defaults.
//
// With an empty path, DefaultPath is used and a missing file yields the defaults.
// An explicit path must exist.
func Load(fsys afero.Fs, path string) (Values, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	vals := Defaults()

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return vals, nil
		}
		return Values{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their default value.
	if err := toml.Unmarshal(data, &vals); err != nil {
		return Values{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := vals.Validate(); err != nil {
		return Values{}, err
	}
	return vals, nil
}

// Save writes vals to path, creating the parent directory.
func Save(fsys afero.Fs, path string, vals Values) error {
	data, err := toml.Marshal(&vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the values against their constraints.
func (v Values) Validate() error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ClientConfig converts the values to a client configuration.
func (v Values) ClientConfig(logger *zerolog.Logger) monoprice.Config {
	cfg := monoprice.Config{
		Timeout: time.Duration(v.Timeout),
		Logger:  logger,
	}
	if v.Breaker.Enabled {
		cfg.NewCircuitBreaker = monoprice.NewCircuitBreakerConfig(
			v.Breaker.MaxRequests,
			time.Duration(v.Breaker.Interval),
			time.Duration(v.Breaker.Timeout),
		)
	}
	return cfg
}

// WatcherConfig converts the watch section to a watcher configuration.
func (v Values) WatcherConfig(logger *zerolog.Logger) monoprice.WatcherConfig {
	return monoprice.WatcherConfig{
		Units:    v.Watch.Units,
		Interval: time.Duration(v.Watch.Interval),
		Logger:   logger,
	}
}
