// Package logger is the structured logger shared by every bucketfs package.
// It wraps zerolog so the rest of the tree never imports it directly.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var levels = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
	"fatal": zerolog.FatalLevel,
}

var timeFormats = map[string]string{
	"rfc3339":   time.RFC3339,
	"unix":      zerolog.TimeFormatUnix,
	"unixms":    zerolog.TimeFormatUnixMs,
	"unixmicro": zerolog.TimeFormatUnixMicro,
}

// Config selects level, encoding and destination.
type Config struct {
	Level      string    `yaml:"level"`       // debug, info, warn, error, fatal
	Format     string    `yaml:"format"`      // json, console
	TimeFormat string    `yaml:"time_format"` // rfc3339, unix, unixms, unixmicro
	Output     io.Writer `yaml:"-"`           // stdout when nil
}

// DefaultConfig returns production defaults: JSON at info level on stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: "rfc3339",
		Output:     os.Stdout,
	}
}

// Validate rejects unknown levels, formats and time formats. Empty fields
// are accepted and fall back to the defaults in New.
func (c *Config) Validate() error {
	if _, ok := levels[c.Level]; c.Level != "" && !ok {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error, fatal", c.Level)
	}
	if c.Format != "" && c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("log.format %q is not one of json, console", c.Format)
	}
	if _, ok := timeFormats[c.TimeFormat]; c.TimeFormat != "" && !ok {
		return fmt.Errorf("log.time_format %q is not one of rfc3339, unix, unixms, unixmicro", c.TimeFormat)
	}
	return nil
}

// Logger is a leveled, structured logger.
type Logger struct {
	zlog zerolog.Logger
}

// New creates a logger from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if tf, ok := timeFormats[cfg.TimeFormat]; ok {
		zerolog.TimeFieldFormat = tf
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, ok := levels[cfg.Level]
	if !ok {
		level = zerolog.InfoLevel
	}
	return &Logger{zlog: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Component returns a child logger tagged with component=name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// WithContext stores l in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.zlog.WithContext(ctx)
}

// FromContext retrieves the logger stored by WithContext, or the global
// logger when ctx carries none.
func FromContext(ctx context.Context) *Logger {
	zlog := zerolog.Ctx(ctx)
	if zlog.GetLevel() == zerolog.Disabled {
		return global
	}
	return &Logger{zlog: *zlog}
}

// With starts a child logger with extra fields.
func (l *Logger) With() *Context {
	return &Context{ctx: l.zlog.With()}
}

// Context chains fields onto a child logger.
type Context struct {
	ctx zerolog.Context
}

func (c *Context) Str(key, val string) *Context {
	c.ctx = c.ctx.Str(key, val)
	return c
}

func (c *Context) Int(key string, val int) *Context {
	c.ctx = c.ctx.Int(key, val)
	return c
}

func (c *Context) Logger() *Logger {
	return &Logger{zlog: c.ctx.Logger()}
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// DebugWith logs msg with fields at debug level.
func (l *Logger) DebugWith(msg string, fields map[string]any) {
	l.zlog.Debug().Fields(fields).Msg(msg)
}

// InfoWith logs msg with fields at info level.
func (l *Logger) InfoWith(msg string, fields map[string]any) {
	l.zlog.Info().Fields(fields).Msg(msg)
}

// WarnWith logs msg, err and fields at warn level. err may be nil.
func (l *Logger) WarnWith(msg string, err error, fields map[string]any) {
	l.zlog.Warn().Err(err).Fields(fields).Msg(msg)
}

// ErrorWith logs msg, err and fields at error level. err may be nil.
func (l *Logger) ErrorWith(msg string, err error, fields map[string]any) {
	l.zlog.Error().Err(err).Fields(fields).Msg(msg)
}

var global = New(nil)

// SetGlobal replaces the logger FromContext falls back to.
func SetGlobal(l *Logger) {
	global = l
}
