// Package config provides configuration management for the kotoba relay.
// It covers the HTTP server, the LINE channel credentials, the completion
// endpoint and its per-use-case API profiles, and logging preferences.
//
// Configuration is resolved once at start and never mutated afterwards.
package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config represents the complete relay configuration.
type Config struct {
	Server     ServerConfig          `yaml:"server"`
	Line       LineConfig            `yaml:"line"`
	Completion CompletionConfig      `yaml:"completion"`
	Profiles   map[string]APIProfile `yaml:"profiles" validate:"required,min=1,dive"`
	UseCases   UseCaseConfig         `yaml:"use_cases"`
	Processing ProcessingConfig      `yaml:"processing"`
	Dispatch   DispatchConfig        `yaml:"dispatch"`
	Logging    LoggingConfig         `yaml:"logging"`
	Metrics    MetricsConfig         `yaml:"metrics"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 3000)
	Port int `yaml:"port" validate:"gte=0,lte=65535"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// It must leave room for a full batch of completions (default: 90s)
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" validate:"gte=0"`

	// ShutdownTimeout specifies how long to wait for in-flight webhooks
	// before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// LineConfig holds the LINE Messaging API channel credentials.
type LineConfig struct {
	// ChannelSecret verifies the X-Line-Signature header of incoming webhooks
	ChannelSecret string `yaml:"channel_secret" validate:"required"`

	// ChannelAccessToken authenticates reply-send calls
	ChannelAccessToken string `yaml:"channel_access_token" validate:"required"`

	// Endpoint overrides the Messaging API base URL (optional)
	Endpoint string `yaml:"endpoint,omitempty" validate:"omitempty,url"`

	// Timeout bounds a single reply-send call (default: 10s)
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// CompletionConfig describes the chat-completions endpoint shared by all profiles.
type CompletionConfig struct {
	// Endpoint is the OpenAI-compatible base URL (default: https://openrouter.ai/api/v1)
	Endpoint string `yaml:"endpoint" validate:"required,url"`

	// MaxTokens caps the reply length requested from the model (default: 300)
	MaxTokens int `yaml:"max_tokens" validate:"gt=0"`

	// Timeout bounds a single completion call (default: 30s)
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// Referer and Title are informational headers identifying the caller
	Referer string `yaml:"referer,omitempty"`
	Title   string `yaml:"title,omitempty"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
}

// APIProfile is a credential and model pair used for one kind of request.
type APIProfile struct {
	// Name is the key of the profile in the profiles map
	Name string `yaml:"-"`

	// APIKey is sent as a bearer token
	APIKey string `yaml:"api_key" validate:"required"`

	// Model is the model identifier, e.g. "openai/gpt-4o-mini"
	Model string `yaml:"model" validate:"required"`

	// Temperature is only sent when set. Low-creativity model families are
	// usually pinned to 0.
	Temperature *float64 `yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
}

// UseCaseConfig binds each use case to a profile name.
type UseCaseConfig struct {
	AutoRewrite string `yaml:"auto_rewrite"`
	Question    string `yaml:"question"`
}

// Binding is the resolved use case to profile mapping.
type Binding struct {
	AutoRewrite APIProfile
	Question    APIProfile
}

type CircuitBreakerConfig struct {
	// MaxRequests is maximum number of requests allowed to pass through when in half-open state
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the cyclic period of the closed state for the circuit breaker
	Interval time.Duration `yaml:"interval" validate:"gte=0"`

	// Timeout is the period of the open state until it becomes half-open
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// FailureThreshold is the number of consecutive failures needed to trip
	// the circuit. 0 disables the breaker.
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// RateLimitConfig throttles outbound completion calls across all profiles.
type RateLimitConfig struct {
	// RequestsPerSecond of 0 means unlimited
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

// DispatchConfig controls how webhook batches are processed.
type DispatchConfig struct {
	// MaxConcurrency limits concurrently handled events per batch, 0 means unlimited
	MaxConcurrency int `yaml:"max_concurrency" validate:"gte=0"`

	// FailureReply is sent to the user in place of a failed completion
	FailureReply string `yaml:"failure_reply" validate:"required"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format specifies log output format: json or text
	Format string `yaml:"format" validate:"oneof=json text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
}

// DefaultConfig returns the configuration used as a base before a file is decoded.
// It has no credentials and no profiles, so it does not validate on its own.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Line: LineConfig{
			Timeout: 10 * time.Second,
		},
		Completion: CompletionConfig{
			Endpoint:  "https://openrouter.ai/api/v1",
			MaxTokens: 300,
			Timeout:   30 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		UseCases: UseCaseConfig{
			AutoRewrite: "rewrite",
			Question:    "question",
		},
		Processing: ProcessingConfig{
			ResponseFormatting: ResponseFormattingConfig{
				MaxLength: 5000,
			},
		},
		Dispatch: DispatchConfig{
			FailureReply: "Erreur de traitement",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// EnvTemplate is loaded when no configuration file is given. Every value
// comes from the environment.
const EnvTemplate = `
server:
  port: ${PORT:-3000}
line:
  channel_secret: ${LINE_CHANNEL_SECRET}
  channel_access_token: ${LINE_CHANNEL_ACCESS_TOKEN}
completion:
  endpoint: ${COMPLETION_ENDPOINT:-https://openrouter.ai/api/v1}
  referer: ${COMPLETION_REFERER:-}
  title: ${COMPLETION_TITLE:-kotoba}
profiles:
  rewrite:
    api_key: ${OPENROUTER_API_KEY}
    model: ${REWRITE_MODEL:-openai/gpt-4o-mini}
  question:
    api_key: ${OPENROUTER_API_KEY}
    model: ${QUESTION_MODEL:-openai/gpt-4o-mini}
use_cases:
  auto_rewrite: rewrite
  question: question
logging:
  level: ${LOG_LEVEL:-info}
  format: ${LOG_FORMAT:-json}
`

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// LoadEnv loads configuration from EnvTemplate.
func LoadEnv() (*Config, error) {
	return Load(strings.NewReader(EnvTemplate))
}

// envRef matches ${VAR} and ${VAR:-default}. A bare $VAR is not a
// reference, so '$' in prompt templates and secrets is kept.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnvVars resolves ${VAR} and ${VAR:-default} references. A variable
// that is unset or empty falls back to its default. Expansion is a single
// pass, so values containing '$' are kept as is.
func expandEnvVars(s string) (string, error) {
	if strings.Contains(envRef.ReplaceAllString(s, ""), "${") {
		return "", fmt.Errorf("invalid syntax: unterminated variable reference")
	}

	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if val := os.Getenv(m[1]); val != "" {
			return val
		}
		return m[2]
	}), nil
}

// expandNode expands the scalar values of a parsed document in place.
// Values are substituted after parsing, so an environment value is never
// read as YAML syntax. A plain scalar gets its type resolved again from the
// expanded text, which lets "${PORT:-3000}" decode into an int.
func expandNode(n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if err := expandNode(c); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			if err := expandNode(n.Content[i]); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if !strings.Contains(n.Value, "${") {
			return nil
		}
		v, err := expandEnvVars(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		n.Value = v
		if n.Style == 0 {
			n.Tag = ""
			switch v {
			case "~", "null", "Null", "NULL":
				n.Tag = "!!str"
			}
		}
	}
	return nil
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Start with defaults
	config := DefaultConfig()

	// Decode YAML on top of defaults
	if root.Kind != 0 {
		if err := expandNode(&root); err != nil {
			return nil, fmt.Errorf("expand environment variables: %w", err)
		}
		if err := root.Decode(config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	for name, p := range config.Profiles {
		p.Name = name
		config.Profiles[name] = p
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag())
		}
		return err
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics enabled without a path")
	}

	if c.Completion.RateLimit.RequestsPerSecond > 0 && c.Completion.RateLimit.Burst == 0 {
		return fmt.Errorf("rate limit burst must be positive when requests_per_second is set")
	}

	if _, err := c.Binding(); err != nil {
		return err
	}

	return nil
}

// Binding resolves the use case bindings against the declared profiles.
func (c *Config) Binding() (Binding, error) {
	rewrite, err := c.profile("auto_rewrite", c.UseCases.AutoRewrite)
	if err != nil {
		return Binding{}, err
	}
	question, err := c.profile("question", c.UseCases.Question)
	if err != nil {
		return Binding{}, err
	}
	return Binding{AutoRewrite: rewrite, Question: question}, nil
}

func (c *Config) profile(useCase, name string) (APIProfile, error) {
	if name == "" {
		return APIProfile{}, fmt.Errorf("use case %s is not bound to a profile", useCase)
	}
	p, ok := c.Profiles[name]
	if !ok {
		return APIProfile{}, fmt.Errorf("use case %s is bound to undefined profile %q (defined: %s)",
			useCase, name, strings.Join(c.ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames returns the sorted profile names.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileList returns the profiles sorted by name.
func (c *Config) ProfileList() []APIProfile {
	list := make([]APIProfile, 0, len(c.Profiles))
	for _, name := range c.ProfileNames() {
		list = append(list, c.Profiles[name])
	}
	return list
}
