package vfs

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultLinkExpiry   = time.Hour
	DefaultPageSize     = 1000
	DefaultMaxListDepth = 64
)

// Config is the read-only adapter configuration fixed at construction.
type Config struct {
	// Root is prepended to every object key. Empty means the bucket root.
	Root string `yaml:"root"`

	// DefaultVisibility applies to writes that do not set a visibility.
	// Empty means no ACL is sent and objects inherit the bucket ACL.
	DefaultVisibility Visibility `yaml:"default_visibility"`

	// LinkExpiry is the window used for signed URLs without an explicit
	// expiration.
	LinkExpiry time.Duration `yaml:"link_expiry"`

	// PageSize is the max-keys value of every listing request.
	PageSize int `yaml:"page_size"`

	// MaxListDepth bounds recursive listings.
	MaxListDepth int `yaml:"max_list_depth"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.LinkExpiry == 0 {
		c.LinkExpiry = DefaultLinkExpiry
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxListDepth == 0 {
		c.MaxListDepth = DefaultMaxListDepth
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []error
	if c.DefaultVisibility != "" && !c.DefaultVisibility.valid() {
		problems = append(problems, fmt.Errorf("default_visibility must be %q or %q, got %q",
			VisibilityPublic, VisibilityPrivate, c.DefaultVisibility))
	}
	if c.LinkExpiry <= 0 {
		problems = append(problems, errors.New("link_expiry must be positive"))
	}
	if c.PageSize <= 0 || c.PageSize > DefaultPageSize {
		problems = append(problems, fmt.Errorf("page_size must be between 1 and %d", DefaultPageSize))
	}
	if c.MaxListDepth <= 0 {
		problems = append(problems, errors.New("max_list_depth must be positive"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("vfs: invalid config: %w", errors.Join(problems...))
	}
	return nil
}
