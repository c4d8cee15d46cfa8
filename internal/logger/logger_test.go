package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffered(level string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(&Config{Level: level, Format: "json", Output: buf}), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty", cfg: Config{}},
		{name: "defaults", cfg: *DefaultConfig()},
		{name: "console debug", cfg: Config{Level: "debug", Format: "console", TimeFormat: "unixms"}},
		{name: "bad level", cfg: Config{Level: "verbose"}, wantErr: true},
		{name: "bad format", cfg: Config{Format: "xml"}, wantErr: true},
		{name: "bad time format", cfg: Config{TimeFormat: "iso"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_NilAndConsole(t *testing.T) {
	assert.NotNil(t, New(nil))

	buf := &bytes.Buffer{}
	New(&Config{Format: "console", Output: buf}).Info("bucket opened")
	assert.Contains(t, buf.String(), "bucket opened")
}

func TestLogger_JSONOutput(t *testing.T) {
	log, buf := newBuffered("info")
	log.Info("gateway listening")

	entry := lastEntry(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "gateway listening", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_ChildFields(t *testing.T) {
	log, buf := newBuffered("info")

	log.With().Str("bucket", "assets").Int("page_size", 1000).Logger().Info("adapter ready")

	entry := lastEntry(t, buf)
	assert.Equal(t, "assets", entry["bucket"])
	assert.Equal(t, float64(1000), entry["page_size"])
}

func TestLogger_ComponentAndWarnWith(t *testing.T) {
	log, buf := newBuffered("warn")

	log.Component("vfs").WarnWith("listing failed; returning no entries", errors.New("page 2 failed"), map[string]any{
		"directory": "docs",
		"recursive": true,
	})

	entry := lastEntry(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "vfs", entry["component"])
	assert.Equal(t, "docs", entry["directory"])
	assert.Equal(t, true, entry["recursive"])
	assert.Equal(t, "page 2 failed", entry["error"])
}

func TestLogger_ErrorWithNilError(t *testing.T) {
	log, buf := newBuffered("info")

	log.ErrorWith("request", nil, map[string]any{"status": 502})

	entry := lastEntry(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.NotContains(t, entry, "error")
	assert.Equal(t, float64(502), entry["status"])
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		log     func(*Logger)
		written bool
	}{
		{level: "debug", log: func(l *Logger) { l.DebugWith("object written", nil) }, written: true},
		{level: "info", log: func(l *Logger) { l.Debug("object written") }, written: false},
		{level: "warn", log: func(l *Logger) { l.Info("request") }, written: false},
		{level: "warn", log: func(l *Logger) { l.Warn("rename left a duplicate") }, written: true},
		{level: "error", log: func(l *Logger) { l.WarnWith("request", nil, nil) }, written: false},
		{level: "error", log: func(l *Logger) { l.Error("storage unreachable") }, written: true},
		{level: "bogus", log: func(l *Logger) { l.InfoWith("request", nil) }, written: true},
	}

	for _, tt := range tests {
		log, buf := newBuffered(tt.level)
		tt.log(log)
		assert.Equal(t, tt.written, buf.Len() > 0, "level %s", tt.level)
	}
}

func TestFromContext(t *testing.T) {
	log, buf := newBuffered("info")

	FromContext(log.WithContext(context.Background())).Info("from context")
	assert.Equal(t, "from context", lastEntry(t, buf)["message"])

	prev := global
	t.Cleanup(func() { SetGlobal(prev) })
	fallback, fbuf := newBuffered("info")
	SetGlobal(fallback)

	FromContext(context.Background()).Info("from global")
	assert.Equal(t, "from global", lastEntry(t, fbuf)["message"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Component("x").ErrorWith("ignored", errors.New("e"), nil)
	})
}

func BenchmarkLogger_InfoWith(b *testing.B) {
	log := New(&Config{Level: "info", Format: "json", Output: io.Discard})
	fields := map[string]any{"method": "GET", "path": "/files/a.txt", "status": 200}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.InfoWith("request", fields)
	}
}
