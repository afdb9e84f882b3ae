package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	EnvVars EnvVars  `json:"env"`
	Prompts *Prompts `json:"-"`
}

// EnvVars holds environment variables required by the application.
// Fields tagged `optional:"true"` are skipped by CheckConfigEnvFields.
// Provider credentials are all optional: a missing credential degrades
// the matching feature to demo mode instead of failing startup.
type EnvVars struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DatabaseUrl  string `env:"DATABASE_URL"`
	JwtSecretKey string `env:"JWT_SECRET_KEY"`

	AWSRegion          string `env:"AWS_REGION" optional:"true"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" optional:"true"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" optional:"true"`
	S3Bucket           string `env:"S3_BUCKET" optional:"true"`

	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY" optional:"true"`
	OpenRouterModel  string `env:"OPENROUTER_MODEL" envDefault:"openai/gpt-4o-mini"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY" optional:"true"`
	GroqAPIKey       string `env:"GROQ_API_KEY" optional:"true"`
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY" optional:"true"`
	OpenCageAPIKey   string `env:"OPENCAGE_API_KEY" optional:"true"`
	AgmarknetAPIKey  string `env:"AGMARKNET_API_KEY" optional:"true"`

	KnowledgePath string `env:"KNOWLEDGE_PATH" envDefault:"configs/knowledge.yaml"`
	PromptsPath   string `env:"PROMPTS_PATH" envDefault:"configs/prompts.yaml"`
}

// placeholderPrefix marks credentials that were copied from a sample .env
// without being filled in. They are treated the same as missing.
const placeholderPrefix = "<PUT_"

// LoadConfig parses environment variables into the Config struct.
func LoadConfig() (*Config, error) {
	var config Config
	if err := env.Parse(&config.EnvVars); err != nil {
		return nil, err
	}
	config.EnvVars.scrubPlaceholders()
	return &config, nil
}

// scrubPlaceholders blanks out credentials that still hold sample values so
// downstream code only has to check for empty strings.
func (e *EnvVars) scrubPlaceholders() {
	v := reflect.ValueOf(e).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && strings.HasPrefix(f.String(), placeholderPrefix) {
			f.SetString("")
		}
	}
}

// CheckConfigEnvFields validates that all required EnvVars fields are set.
func (c *Config) CheckConfigEnvFields() error {
	return checkFieldsRecursive(reflect.ValueOf(c.EnvVars))
}

// HasCompletionProvider reports whether any chat-completion credential is
// configured. When false, the conversation features run in demo mode.
func (c *Config) HasCompletionProvider() bool {
	return c.EnvVars.OpenRouterAPIKey != "" || c.EnvVars.AnthropicAPIKey != ""
}

func checkFieldsRecursive(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := v.Type().Field(i)
		if fieldType.Tag.Get("optional") == "true" {
			continue
		}
		if isZeroValue(field) {
			return fmt.Errorf("$%s must be set", fieldType.Name)
		}
		if field.Kind() == reflect.Struct {
			if err := checkFieldsRecursive(field); err != nil {
				return err
			}
		}
	}
	return nil
}

func isZeroValue(v reflect.Value) bool {
	return v.Interface() == reflect.Zero(v.Type()).Interface()
}
