package llm

import "errors"

// Errors returned by GenerateBreakdown. Callers see them wrapped.
var (
	// ErrMissingCredential means the provider API key is not configured.
	ErrMissingCredential = errors.New("LLM API key is not configured")

	// ErrProvider is returned when the model call itself fails.
	ErrProvider = errors.New("LLM provider call failed")

	// ErrParse is returned when the model output is not the expected JSON.
	ErrParse = errors.New("parse LLM response")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown LLM provider")
)
