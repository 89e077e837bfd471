// Package ai declares the model-facing services llmerge depends on.
//
// A Matcher receives two blocks of "<index>: <key text>" lines and answers
// with core.Match values that reference rows by index. An Embedder turns
// text into vectors for the document index. An AIProvider hands out both
// and owns their lifetime.
//
// Config carries the endpoint, model and structured-output settings shared
// by every implementation. ai/openai talks to any OpenAI-compatible server
// (OpenAI, Ollama, vLLM); ai/mock scripts responses for tests.
//
// Transport failures are not retried by the matchers themselves. Wrap one
// in NewRetryingMatcher when retries are wanted:
//
//	matcher, err := ai.NewRetryingMatcher(provider.Matcher(), 3, time.Second)
package ai
