package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amoylab/rowgate/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLogLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"dpanic":  zapcore.DPanicLevel,
		"panic":   zapcore.PanicLevel,
		"fatal":   zapcore.FatalLevel,
		"unknown": zapcore.InfoLevel,
	}
	for in, exp := range cases {
		assert.Equal(t, exp, getLogLevel(in), in)
	}
}

func TestSetLoggerDefaults(t *testing.T) {
	cfg := &config.LoggerConfig{}
	setLoggerDefaults(cfg)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, OutputStdout, cfg.Output)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.Equal(t, "Local", cfg.TimeZone)
	assert.NotEmpty(t, cfg.TimeFormat)

	lg, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, lg)
}

func TestResolveTimeZone(t *testing.T) {
	assert.Equal(t, "UTC", resolveTimeZone("UTC").String())
	assert.Equal(t, "Local", resolveTimeZone("").String())
	assert.Equal(t, "Local", resolveTimeZone("Not/AZone").String())
}

func TestNewLogger_FileWithStacktrace(t *testing.T) {
	tmp := t.TempDir()
	cfg := &config.LoggerConfig{
		Output:     OutputFile,
		FilePath:   filepath.Join(tmp, "logs", "app.log"),
		Format:     "console",
		Color:      true,
		Stacktrace: true,
		Level:      "debug",
		TimeZone:   "UTC",
	}

	lg, err := NewLogger(cfg)
	require.NoError(t, err)
	lg.Debug("debug message")
	lg.Error("error message")
	require.NoError(t, lg.Sync())

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug message")
	assert.Contains(t, string(data), "error message")
}

func TestNewLogger_Both(t *testing.T) {
	tmp := t.TempDir()
	cfg := &config.LoggerConfig{Output: OutputBoth, FilePath: filepath.Join(tmp, "both.log")}

	lg, err := NewLogger(cfg)
	require.NoError(t, err)
	lg.Info("to both")
	_ = lg.Sync()

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
}
