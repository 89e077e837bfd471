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

package mock

import (
	"sync/atomic"

	"github.com/poiesic/llmerge/ai"
)

// MockProvider hands out a MockMatcher and a MockEmbedder and records
// whether it was closed.
type MockProvider struct {
	matcher  *MockMatcher
	embedder *MockEmbedder
	closed   atomic.Bool
}

// NewMockProvider returns a provider with an identity matcher and a
// hash-based embedder. Type-assert to *MockProvider to reach them.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockMatcher())
}

func NewMockProviderWithServices(embedder *MockEmbedder, matcher *MockMatcher) *MockProvider {
	return &MockProvider{matcher: matcher, embedder: embedder}
}

func (p *MockProvider) Matcher() ai.Matcher   { return p.matcher }
func (p *MockProvider) Embedder() ai.Embedder { return p.embedder }

func (p *MockProvider) GetMockMatcher() *MockMatcher   { return p.matcher }
func (p *MockProvider) GetMockEmbedder() *MockEmbedder { return p.embedder }

func (p *MockProvider) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *MockProvider) Closed() bool { return p.closed.Load() }
