// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/llmerge/core"
)

// MatchMode selects how a chat model is asked for structured output.
type MatchMode string

const (
	// MatchModeTools asks the model to call a function whose parameters
	// describe the match records.
	MatchModeTools MatchMode = "tools"

	// MatchModeJSON asks for a JSON object in the message content.
	MatchModeJSON MatchMode = "json"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ChatHost is the base URL for the chat service used for matching.
	ChatHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// ChatModel is the model identifier to use for row matching.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	ChatModel string

	// APIKey is sent as the bearer token. Local OpenAI-compatible servers
	// usually ignore it; "none" is used when empty.
	APIKey string

	// Temperature for chat completions.
	// Default: 0
	Temperature float64

	// MatchMode selects tool calling or JSON mode.
	// Default: MatchModeTools
	MatchMode MatchMode

	// MaxParseAttempts is how many times the model is asked again when its
	// response cannot be parsed.
	// Default: 3
	MaxParseAttempts int

	// EmbeddingBatchSize is the number of texts sent per embedding request.
	// Default: 512
	EmbeddingBatchSize int

	// SystemPrompt overrides the default matching instructions. It is a Go
	// text/template and may reference {{.left_rows}} and {{.right_rows}}.
	SystemPrompt string

	// Schema describes the fields of each returned match record.
	Schema core.MatchSchema
}

// ConfigOption adjusts a Config built by NewConfig.
type ConfigOption func(*Config)

func WithEmbeddingHost(host string) ConfigOption { return func(c *Config) { c.EmbeddingHost = host } }
func WithChatHost(host string) ConfigOption      { return func(c *Config) { c.ChatHost = host } }

// WithHost points chat and embedding requests at the same server.
func WithHost(host string) ConfigOption {
	return func(c *Config) { c.ChatHost, c.EmbeddingHost = host, host }
}

func WithEmbeddingModel(model string) ConfigOption { return func(c *Config) { c.EmbeddingModel = model } }
func WithChatModel(model string) ConfigOption      { return func(c *Config) { c.ChatModel = model } }
func WithAPIKey(key string) ConfigOption           { return func(c *Config) { c.APIKey = key } }
func WithTemperature(t float64) ConfigOption       { return func(c *Config) { c.Temperature = t } }
func WithMatchMode(mode MatchMode) ConfigOption    { return func(c *Config) { c.MatchMode = mode } }
func WithMaxParseAttempts(n int) ConfigOption      { return func(c *Config) { c.MaxParseAttempts = n } }
func WithEmbeddingBatchSize(n int) ConfigOption    { return func(c *Config) { c.EmbeddingBatchSize = n } }
func WithSystemPrompt(tmpl string) ConfigOption    { return func(c *Config) { c.SystemPrompt = tmpl } }

func WithMatchSchema(schema core.MatchSchema) ConfigOption {
	return func(c *Config) { c.Schema = schema }
}

const localHost = "http://localhost:11434/v1"

// DefaultConfig targets a local Ollama server for both chat and embeddings.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:      localHost,
		ChatHost:           localHost,
		EmbeddingModel:     "embeddinggemma",
		ChatModel:          "qwen2.5:7b",
		MatchMode:          MatchModeTools,
		MaxParseAttempts:   3,
		EmbeddingBatchSize: 512,
		Schema:             core.DefaultMatchSchema(),
	}
}

// NewConfig applies opts on top of DefaultConfig.
//
//	cfg := NewConfig(
//	    WithHost("https://api.openai.com/v1"),
//	    WithChatModel("gpt-4o-mini"),
//	    WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize appends /v1 to hosts that lack it and fills in the default
// match mode. OpenAI-compatible servers serve their API under /v1.
func (c *Config) Normalize() {
	for _, host := range []*string{&c.ChatHost, &c.EmbeddingHost} {
		if *host != "" && !strings.HasSuffix(*host, "/v1") {
			*host = strings.TrimRight(*host, "/") + "/v1"
		}
	}
	if c.MatchMode == "" {
		c.MatchMode = MatchModeTools
	}
}

// Validate normalizes c and reports the first problem found, wrapped in
// ErrInvalidConfig.
func (c *Config) Validate() error {
	c.Normalize()

	checks := []struct {
		bad bool
		msg string
	}{
		{c.EmbeddingHost == "", "EmbeddingHost is required"},
		{c.ChatHost == "", "ChatHost is required"},
		{c.EmbeddingModel == "", "EmbeddingModel is required"},
		{c.ChatModel == "", "ChatModel is required"},
		{c.Temperature < 0 || c.Temperature > 2, "Temperature must be between 0 and 2"},
		{c.MatchMode != MatchModeTools && c.MatchMode != MatchModeJSON, fmt.Sprintf("unknown MatchMode %q", c.MatchMode)},
		{c.MaxParseAttempts < 1, "MaxParseAttempts must be at least 1"},
		{c.EmbeddingBatchSize < 1, "EmbeddingBatchSize must be at least 1"},
	}
	for _, check := range checks {
		if check.bad {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, check.msg)
		}
	}
	if err := core.ValidateMatchSchema(c.Schema); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Token is the bearer token to send; servers without auth get "none".
func (c *Config) Token() string {
	if c.APIKey == "" {
		return "none"
	}
	return c.APIKey
}
