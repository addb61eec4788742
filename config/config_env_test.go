package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalProfiles = `
line:
  channel_secret: s
  channel_access_token: t
profiles:
  rewrite: {api_key: k, model: m}
  question: {api_key: k, model: m}
`

// TestEnvironmentVariableExpansion tests various scenarios of environment variable expansion
func TestEnvironmentVariableExpansion(t *testing.T) {
	testCases := []struct {
		name       string
		envVars    map[string]string
		yamlConfig string
		validate   func(*testing.T, *Config)
		wantErr    bool
		errMsg     string
	}{
		{
			name: "basic env var expansion",
			envVars: map[string]string{
				"KOTOBA_TEST_SECRET": "channel-secret-123",
			},
			yamlConfig: `
line:
  channel_secret: ${KOTOBA_TEST_SECRET}
  channel_access_token: t
profiles:
  rewrite: {api_key: k, model: m}
  question: {api_key: k, model: m}
`,
			validate: func(t *testing.T, c *Config) {
				if c.Line.ChannelSecret != "channel-secret-123" {
					t.Errorf("channel secret not expanded correctly, got %s", c.Line.ChannelSecret)
				}
			},
		},
		{
			name:    "missing env var fails required check",
			envVars: map[string]string{},
			yamlConfig: `
line:
  channel_secret: ${KOTOBA_TEST_MISSING_SECRET}
  channel_access_token: t
profiles:
  rewrite: {api_key: k, model: m}
  question: {api_key: k, model: m}
`,
			wantErr: true,
			errMsg:  "Line.ChannelSecret",
		},
		{
			name: "default used when variable is unset",
			envVars: map[string]string{
				"KOTOBA_TEST_PORT": "",
			},
			yamlConfig: `
server:
  port: ${KOTOBA_TEST_PORT:-4321}
` + minimalProfiles,
			validate: func(t *testing.T, c *Config) {
				if c.Server.Port != 4321 {
					t.Errorf("default not applied, got %d, want 4321", c.Server.Port)
				}
			},
		},
		{
			name: "variable wins over default",
			envVars: map[string]string{
				"KOTOBA_TEST_PORT": "8081",
			},
			yamlConfig: `
server:
  port: ${KOTOBA_TEST_PORT:-4321}
` + minimalProfiles,
			validate: func(t *testing.T, c *Config) {
				if c.Server.Port != 8081 {
					t.Errorf("variable not applied, got %d, want 8081", c.Server.Port)
				}
			},
		},
		{
			name: "multiple env vars in single value",
			envVars: map[string]string{
				"KOTOBA_TEST_HOST":    "llm.example.test",
				"KOTOBA_TEST_VERSION": "v1",
			},
			yamlConfig: `
completion:
  endpoint: https://${KOTOBA_TEST_HOST}/api/${KOTOBA_TEST_VERSION}
` + minimalProfiles,
			validate: func(t *testing.T, c *Config) {
				expected := "https://llm.example.test/api/v1"
				if c.Completion.Endpoint != expected {
					t.Errorf("multiple env vars not expanded correctly, got %s, want %s",
						c.Completion.Endpoint, expected)
				}
			},
		},
		{
			name: "dollar sign inside a value is kept",
			envVars: map[string]string{
				"KOTOBA_TEST_TOKEN": "abc${NOT_EXPANDED}",
			},
			yamlConfig: `
line:
  channel_secret: s
  channel_access_token: "${KOTOBA_TEST_TOKEN}"
profiles:
  rewrite: {api_key: k, model: m}
  question: {api_key: k, model: m}
`,
			validate: func(t *testing.T, c *Config) {
				if c.Line.ChannelAccessToken != "abc${NOT_EXPANDED}" {
					t.Errorf("expansion should be single pass, got %s", c.Line.ChannelAccessToken)
				}
			},
		},
		{
			name:    "unterminated reference",
			envVars: map[string]string{},
			yamlConfig: `
line:
  channel_secret: ${KOTOBA_TEST_SECRET
`,
			wantErr: true,
			errMsg:  "invalid syntax",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(strings.NewReader(tc.yamlConfig))

			if tc.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				} else if tc.errMsg != "" && !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tc.validate != nil {
				tc.validate(t, cfg)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "env-secret")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "env-token")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("REWRITE_MODEL", "openai/gpt-4o")
	t.Setenv("QUESTION_MODEL", "")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("unexpected port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Line.ChannelSecret != "env-secret" || cfg.Line.ChannelAccessToken != "env-token" {
		t.Errorf("LINE credentials not read from the environment: %+v", cfg.Line)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}

	binding, err := cfg.Binding()
	if err != nil {
		t.Fatalf("unexpected binding error: %v", err)
	}
	if binding.AutoRewrite.Model != "openai/gpt-4o" {
		t.Errorf("unexpected rewrite model: got %s", binding.AutoRewrite.Model)
	}
	if binding.Question.Model != "openai/gpt-4o-mini" {
		t.Errorf("question model should fall back to default, got %s", binding.Question.Model)
	}
	if binding.Question.APIKey != "sk-or-test" {
		t.Errorf("unexpected question api key: got %s", binding.Question.APIKey)
	}
}

func TestLoadEnvMissingCredentials(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("OPENROUTER_API_KEY", "key")

	_, err := LoadEnv()
	if err == nil {
		t.Fatal("expected error without channel secret")
	}
	if !strings.Contains(err.Error(), "ChannelSecret") {
		t.Errorf("error should name the missing field, got %v", err)
	}
}

func TestConfigFileWithEnvVars(t *testing.T) {
	t.Setenv("KOTOBA_TEST_API_KEY", "file-key")

	content := `
line:
  channel_secret: s
  channel_access_token: t
profiles:
  rewrite:
    api_key: ${KOTOBA_TEST_API_KEY}
    model: m
  question:
    api_key: ${KOTOBA_TEST_API_KEY}
    model: m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load config file: %v", err)
	}

	for _, p := range cfg.ProfileList() {
		if p.APIKey != "file-key" {
			t.Errorf("profile %s: api key not expanded, got %s", p.Name, p.APIKey)
		}
	}
}

func TestLoadEnvKeepsValuesVerbatim(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "12345")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "tok: en")
	t.Setenv("OPENROUTER_API_KEY", "abc #def")
	t.Setenv("COMPLETION_TITLE", "Kotoba: LINE bot")
	t.Setenv("REWRITE_MODEL", "null")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	if got := cfg.Profiles["question"].APIKey; got != "abc #def" {
		t.Errorf("api key truncated: got %q", got)
	}
	if cfg.Completion.Title != "Kotoba: LINE bot" {
		t.Errorf("unexpected title: got %q", cfg.Completion.Title)
	}
	if cfg.Line.ChannelSecret != "12345" {
		t.Errorf("numeric secret not kept as text: got %q", cfg.Line.ChannelSecret)
	}
	if cfg.Line.ChannelAccessToken != "tok: en" {
		t.Errorf("unexpected access token: got %q", cfg.Line.ChannelAccessToken)
	}
	if got := cfg.Profiles["rewrite"].Model; got != "null" {
		t.Errorf("model should stay a string, got %q", got)
	}
}

func TestLoadKeepsBareDollarSigns(t *testing.T) {
	t.Setenv("KOTOBA_TEST_PRICE", "should not appear")

	cfg, err := Load(strings.NewReader(`
processing:
  request_templates:
    question: 'answer "{{.Text}}" for $KOTOBA_TEST_PRICE or $5'
` + minimalProfiles))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := `answer "{{.Text}}" for $KOTOBA_TEST_PRICE or $5`
	if got := cfg.Processing.RequestTemplates["question"]; got != want {
		t.Errorf("template changed by expansion: got %q, want %q", got, want)
	}
}
