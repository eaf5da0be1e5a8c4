// Package config loads run-wide settings. The command line is reserved for
// the job grammar, so settings come from a YAML file, an optional .env file
// and DOWNLOADER_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tanq16/downloader/internal/utils"
)

const (
	EnvPrefix     = "DOWNLOADER_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

type Config struct {
	Timeout          time.Duration `yaml:"timeout"`
	KeepAliveTimeout time.Duration `yaml:"keep_alive_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
	UserAgent        string        `yaml:"user_agent"`
	Workers          int           `yaml:"workers"`
	LogFile          string        `yaml:"log_file"`
	Debug            bool          `yaml:"debug"`
	S3               S3Config      `yaml:"s3"`
}

type S3Config struct {
	Profile      string `yaml:"profile"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

func Default() Config {
	return Config{
		Timeout:          utils.DefaultTimeout,
		KeepAliveTimeout: 90 * time.Second,
		BufferSize:       utils.DefaultBufferSize,
		UserAgent:        utils.ToolUserAgent,
	}
}

// Load builds the effective configuration. A missing default config file or
// .env file is not an error; a missing file named by DOWNLOADER_CONFIG is.
func Load() (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("error reading .env file: %w", err)
	}
	path, explicit := os.LookupEnv(EnvConfigFile)
	if !explicit {
		path = defaultConfigPath()
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "downloader", "config.yaml")
}

func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with
// lookup, which is os.LookupEnv outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	durationVar := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	intVar := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolVar := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	stringVar := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	durationVar("TIMEOUT", &c.Timeout)
	durationVar("KEEP_ALIVE_TIMEOUT", &c.KeepAliveTimeout)
	intVar("BUFFER_SIZE", &c.BufferSize)
	intVar("WORKERS", &c.Workers)
	boolVar("DEBUG", &c.Debug)
	stringVar("USER_AGENT", &c.UserAgent)
	stringVar("LOG_FILE", &c.LogFile)
	stringVar("S3_PROFILE", &c.S3.Profile)
	stringVar("S3_REGION", &c.S3.Region)
	stringVar("S3_ENDPOINT", &c.S3.Endpoint)
	boolVar("S3_USE_PATH_STYLE", &c.S3.UsePathStyle)
	return errors.Join(errs...)
}

// Validate rejects negative values and clamps the buffer size into the
// supported range.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = utils.DefaultTimeout
	}
	if c.KeepAliveTimeout < 0 {
		return fmt.Errorf("keep_alive_timeout must not be negative: %s", c.KeepAliveTimeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	c.BufferSize = utils.ClampBufferSize(c.BufferSize)
	return nil
}

func (c Config) TransferConfig() utils.TransferConfig {
	return utils.TransferConfig{
		HTTPClientConfig: utils.HTTPClientConfig{
			Timeout:   c.Timeout,
			KATimeout: c.KeepAliveTimeout,
			UserAgent: c.UserAgent,
		},
		BufferSize: c.BufferSize,
		S3: utils.S3Config{
			Profile:      c.S3.Profile,
			Region:       c.S3.Region,
			Endpoint:     c.S3.Endpoint,
			UsePathStyle: c.S3.UsePathStyle,
		},
	}
}
