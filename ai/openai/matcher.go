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

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/llmerge/ai"
	"github.com/poiesic/llmerge/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
)

// errMissingItems is returned when a response parses but has no items array.
var errMissingItems = errors.New(`response has no "items" array`)

// Matcher implements ai.Matcher using OpenAI-compatible chat APIs.
type Matcher struct {
	client           llms.Model
	prompt           prompts.ChatPromptTemplate
	schema           core.MatchSchema
	mode             ai.MatchMode
	temperature      float64
	maxParseAttempts int
	logger           *slog.Logger
}

// newMatcher is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newMatcher(config *ai.Config) (*Matcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return newMatcherWithModel(client, config)
}

// newMatcherWithModel builds a matcher around an existing model client.
func newMatcherWithModel(client llms.Model, config *ai.Config) (*Matcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Matcher{
		client:           client,
		prompt:           buildPrompt(config.SystemPrompt),
		schema:           config.Schema,
		mode:             config.MatchMode,
		temperature:      config.Temperature,
		maxParseAttempts: config.MaxParseAttempts,
		logger:           slog.Default().With("component", "openai-matcher"),
	}, nil
}

// NewMatcher creates a new matcher using the provided configuration.
//
// Returns ai.Matcher interface to enforce abstraction.
func NewMatcher(config *ai.Config) (ai.Matcher, error) {
	return newMatcher(config)
}

// Match asks the model to pair the rows of leftBlock with rows of rightBlock.
// Unparsable responses are requested again up to the configured number of
// attempts; transport errors are returned immediately.
func (m *Matcher) Match(ctx context.Context, leftBlock, rightBlock string) ([]core.Match, error) {
	content, err := m.messages(leftBlock, rightBlock)
	if err != nil {
		return nil, err
	}
	options := m.callOptions()

	var items []map[string]any
	var lastErr error
	for attempt := 0; attempt < m.maxParseAttempts; attempt++ {
		response, err := m.client.GenerateContent(ctx, content, options...)
		if err != nil {
			m.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			m.logger.Debug("no choices returned from model")
			return nil, ai.ErrEmptyResponse
		}

		payload := m.payload(response.Choices[0])
		items, lastErr = decodeItems(payload)
		if lastErr != nil {
			m.logger.Warn("error parsing matcher response",
				"attempt", attempt+1,
				"response", payload,
				"err", lastErr)
			continue
		}
		break
	}

	if lastErr != nil {
		m.logger.Error("failed to parse matcher response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: %w", ai.ErrUnparsableResponse, lastErr)
	}

	matches, err := core.DecodeMatches(items, m.schema)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("matched rows", "items", len(matches))
	return matches, nil
}

func (m *Matcher) messages(leftBlock, rightBlock string) ([]llms.MessageContent, error) {
	formatted, err := m.prompt.FormatMessages(map[string]any{
		varLeftRows:           leftBlock,
		varRightRows:          rightBlock,
		varFormatInstructions: formatInstructions(m.mode, m.schema),
	})
	if err != nil {
		return nil, fmt.Errorf("formatting prompt: %w", err)
	}

	content := make([]llms.MessageContent, 0, len(formatted))
	for _, msg := range formatted {
		content = append(content, llms.TextParts(msg.GetType(), msg.GetContent()))
	}
	return content, nil
}

func (m *Matcher) callOptions() []llms.CallOption {
	options := []llms.CallOption{llms.WithTemperature(m.temperature)}
	if m.mode == ai.MatchModeJSON {
		return append(options, llms.WithJSONMode())
	}
	return append(options,
		llms.WithTools([]llms.Tool{matchTool(m.schema)}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: matchToolName},
		}),
	)
}

// payload extracts the JSON text from a choice. In tools mode the arguments
// of the match function call are preferred; models that answer in plain
// content instead are tolerated.
func (m *Matcher) payload(choice *llms.ContentChoice) string {
	if m.mode == ai.MatchModeTools {
		for _, call := range choice.ToolCalls {
			if call.FunctionCall != nil && call.FunctionCall.Name == matchToolName {
				return call.FunctionCall.Arguments
			}
		}
		if choice.FuncCall != nil && choice.FuncCall.Name == matchToolName {
			return choice.FuncCall.Arguments
		}
	}
	return choice.Content
}

// decodeItems parses {"items": [...]} or a bare array of objects.
func decodeItems(raw string) ([]map[string]any, error) {
	text := repairJSON(stripCodeFences(raw))

	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	decoder.UseNumber()

	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		return nil, err
	}

	var list []any
	switch v := parsed.(type) {
	case map[string]any:
		items, ok := v["items"].([]any)
		if !ok {
			return nil, errMissingItems
		}
		list = items
	case []any:
		list = v
	default:
		return nil, errMissingItems
	}

	items := make([]map[string]any, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		items = append(items, obj)
	}
	return items, nil
}
