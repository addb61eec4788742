package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/kotoba/config"
	"github.com/teilomillet/kotoba/errors"
	"go.uber.org/zap/zapcore"
)

const validConfig = `
line:
  channel_secret: secret
  channel_access_token: token
profiles:
  rewrite:
    api_key: key
    model: openai/gpt-4o-mini
  question:
    api_key: key
    model: qwen/qwen-2.5-72b-instruct
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "kotoba dev\n", out)
}

func TestValidateCommand(t *testing.T) {
	path := writeFile(t, "kotoba.yaml", validConfig)

	out, err := run(t, "validate", "--config", path, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "question rewrite")
}

func TestValidateCommandInvalid(t *testing.T) {
	path := writeFile(t, "kotoba.yaml", "line:\n  channel_secret: secret\n")

	_, err := run(t, "validate", "--config", path, "--env-file", "")
	require.Error(t, err)
	assert.Equal(t, errors.ConfigError, errors.TypeOf(err))
}

func TestValidateCommandFromEnvFile(t *testing.T) {
	for _, key := range []string{"LINE_CHANNEL_SECRET", "LINE_CHANNEL_ACCESS_TOKEN", "OPENROUTER_API_KEY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	envFile := writeFile(t, ".env", "LINE_CHANNEL_SECRET=secret\nLINE_CHANNEL_ACCESS_TOKEN=token\nOPENROUTER_API_KEY=key\n")

	out, err := run(t, "validate", "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestLoadConfigMissingEnvFile(t *testing.T) {
	path := writeFile(t, "kotoba.yaml", validConfig)

	cfg, err := loadConfig(&options{
		configFile: path,
		envFile:    filepath.Join(t.TempDir(), "missing.env"),
	})
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Line.ChannelSecret)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		level   zapcore.Level
		wantErr bool
	}{
		{name: "json info", cfg: config.LoggingConfig{Level: "info", Format: "json"}, level: zapcore.InfoLevel},
		{name: "text debug", cfg: config.LoggingConfig{Level: "debug", Format: "text"}, level: zapcore.DebugLevel},
		{name: "warn", cfg: config.LoggingConfig{Level: "warn", Format: "json"}, level: zapcore.WarnLevel},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud", Format: "json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := newLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.level))
			assert.False(t, logger.Core().Enabled(tt.level-1))
		})
	}
}
