package ai

import "errors"

var (
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("ai config")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrUnparsableResponse is returned when a model's response could not be
	// decoded after all parse attempts.
	ErrUnparsableResponse = errors.New("unparsable model response")

	// ErrEmptyResponse is returned when a model returns no choices.
	ErrEmptyResponse = errors.New("model returned no choices")
)
