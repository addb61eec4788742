package config

// ProcessingConfig defines the configuration for prompt construction and reply formatting
type ProcessingConfig struct {
	// RequestTemplates overrides the built-in prompt templates by name
	// ("to_english", "to_japanese", "question"). Each template receives
	// a value with a single Text field.
	RequestTemplates map[string]string `yaml:"request_templates"`

	// ResponseFormatting configures how replies are shaped before sending
	ResponseFormatting ResponseFormattingConfig `yaml:"response_formatting"`
}

// ResponseFormattingConfig defines reply formatting options
type ResponseFormattingConfig struct {
	// MaxLength limits the reply length in characters. LINE rejects text
	// messages longer than 5000 characters.
	MaxLength int `yaml:"max_length" validate:"gte=0,lte=5000"`
}
