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
	"log/slog"

	"github.com/poiesic/llmerge/ai"
)

// Provider bundles the matcher and embedder built from one ai.Config.
type Provider struct {
	matcher  *Matcher
	embedder *Embedder
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates config and builds both services against it.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	matcher, err := newMatcher(config)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	slog.Default().Debug("openai provider ready",
		"component", "openai-provider",
		"chatHost", config.ChatHost,
		"chatModel", config.ChatModel,
		"embeddingHost", config.EmbeddingHost,
		"embeddingModel", config.EmbeddingModel,
		"mode", config.MatchMode)
	return &Provider{matcher: matcher, embedder: embedder}, nil
}

func (p *Provider) Matcher() ai.Matcher   { return p.matcher }
func (p *Provider) Embedder() ai.Embedder { return p.embedder }

// Close is a no-op; the HTTP clients hold no resources that need release.
func (p *Provider) Close() error { return nil }
