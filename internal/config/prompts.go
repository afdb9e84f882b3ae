package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptPair holds a system and user prompt template.
type PromptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// SinglePrompt holds a single system prompt (no user template).
type SinglePrompt struct {
	System string `yaml:"system"`
}

// SchemePrompts holds government-scheme prompt templates.
type SchemePrompts struct {
	Explain   PromptPair `yaml:"explain"`
	Recommend PromptPair `yaml:"recommend"`
}

// DemoPrompts holds the canned replies used when no completion credential
// is configured, keyed by detected language.
type DemoPrompts struct {
	English string `yaml:"english"`
	Hindi   string `yaml:"hindi"`
	Marathi string `yaml:"marathi"`
}

// Prompts is the top-level prompt configuration loaded from YAML.
type Prompts struct {
	Advisory  SinglePrompt  `yaml:"advisory"`
	Diagnosis SinglePrompt  `yaml:"diagnosis"`
	Scheme    SchemePrompts `yaml:"scheme"`
	Demo      DemoPrompts   `yaml:"demo"`
}

// LoadPrompts reads and parses a YAML prompt configuration file.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts Prompts
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	return &prompts, nil
}

// RenderPrompt executes Go template interpolation on a prompt string.
// The data map provides values for placeholders like {{.SchemeName}},
// {{.FarmerType}}, and {{.Context}}.
func RenderPrompt(tmpl string, data map[string]interface{}) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// DemoReply returns the canned demo-mode reply for a detected language.
func (p *Prompts) DemoReply(language string) string {
	switch language {
	case "hindi":
		return p.Demo.Hindi
	case "marathi":
		return p.Demo.Marathi
	default:
		return p.Demo.English
	}
}
