package filestore

import (
	"errors"
	"fmt"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO  Provider = "minio"
	ProviderS3     Provider = "s3"
	ProviderMemory Provider = "memory"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO. Empty means the provider's
	// public endpoint (AWS S3 only).
	Endpoint string `yaml:"endpoint"`

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string `yaml:"access_key"`

	// SecretKey is the secret access key.
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string `yaml:"region"`

	// ForcePathStyle addresses buckets as endpoint/bucket instead of
	// bucket.endpoint. Always on for custom S3 endpoints.
	ForcePathStyle bool `yaml:"force_path_style"`

	// Bucket is the bucket every adapter operation runs against.
	Bucket string `yaml:"bucket"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
	}
}

// Validate checks that the configuration is usable for the selected provider.
func (c *Config) Validate() error {
	var problems []error
	if c.Bucket == "" {
		problems = append(problems, errors.New("bucket is required"))
	}
	switch c.Provider {
	case ProviderMemory:
	case ProviderMinIO:
		if c.Endpoint == "" {
			problems = append(problems, errors.New("endpoint is required for minio"))
		}
	case ProviderS3:
		if c.Region == "" {
			problems = append(problems, errors.New("region is required for s3"))
		}
	default:
		problems = append(problems, fmt.Errorf("unsupported provider %q", c.Provider))
	}
	if len(problems) > 0 {
		return fmt.Errorf("filestore: invalid config: %w", errors.Join(problems...))
	}
	return nil
}
