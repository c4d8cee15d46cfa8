// Package config loads the bucketfs service configuration.
//
// Values come from, in increasing priority: built-in defaults, a YAML file,
// an optional .env file, and BUCKETFS_* environment variables.
//
//	log:
//	  level: info
//	storage:
//	  provider: minio
//	  endpoint: localhost:9000
//	  bucket: assets
//	adapter:
//	  root: tenant-a
//	  link_expiry: 1h
//	http:
//	  addr: :8080
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/bucketfs/internal/filestore"
	"github.com/koustreak/bucketfs/internal/logger"
	"github.com/koustreak/bucketfs/internal/server"
	"github.com/koustreak/bucketfs/internal/vfs"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BUCKETFS_"

// Config is the complete service configuration.
type Config struct {
	Log     logger.Config    `yaml:"log"`
	Storage filestore.Config `yaml:"storage"`
	Adapter vfs.Config       `yaml:"adapter"`
	HTTP    server.Config    `yaml:"http"`
}

// Load reads path (skipped when empty), loads envFile into the process
// environment when it exists, applies environment overrides and defaults,
// and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(bytes.NewReader(raw), cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("config: load env file %s: %w", envFile, err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses YAML from r into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from BUCKETFS_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var problems []error
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				problems = append(problems, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	var provider string
	str("STORAGE_PROVIDER", &provider)
	if provider != "" {
		c.Storage.Provider = filestore.Provider(provider)
	}
	str("STORAGE_ENDPOINT", &c.Storage.Endpoint)
	str("STORAGE_ACCESS_KEY", &c.Storage.AccessKey)
	str("STORAGE_SECRET_KEY", &c.Storage.SecretKey)
	str("STORAGE_REGION", &c.Storage.Region)
	str("STORAGE_BUCKET", &c.Storage.Bucket)
	boolean("STORAGE_USE_SSL", &c.Storage.UseSSL)
	boolean("STORAGE_FORCE_PATH_STYLE", &c.Storage.ForcePathStyle)

	str("ADAPTER_ROOT", &c.Adapter.Root)
	var vis string
	str("ADAPTER_DEFAULT_VISIBILITY", &vis)
	if vis != "" {
		c.Adapter.DefaultVisibility = vfs.Visibility(vis)
	}
	duration("ADAPTER_LINK_EXPIRY", &c.Adapter.LinkExpiry)

	str("HTTP_ADDR", &c.HTTP.Addr)

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid environment: %w", errors.Join(problems...))
	}
	return nil
}

// ApplyDefaults fills every section's zero values.
func (c *Config) ApplyDefaults() {
	def := logger.DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = def.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Format
	}
	if c.Log.TimeFormat == "" {
		c.Log.TimeFormat = def.TimeFormat
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = filestore.ProviderMinIO
	}
	c.Adapter.ApplyDefaults()
	c.HTTP.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	var problems []error
	if err := c.Log.Validate(); err != nil {
		problems = append(problems, err)
	}
	if err := c.Storage.Validate(); err != nil {
		problems = append(problems, err)
	}
	if err := c.Adapter.Validate(); err != nil {
		problems = append(problems, err)
	}
	if err := c.HTTP.Validate(); err != nil {
		problems = append(problems, err)
	}
	return errors.Join(problems...)
}
