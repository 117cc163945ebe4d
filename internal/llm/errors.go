package llm

import "errors"

var (
	// ErrUnavailable indicates the generator backend is unreachable.
	ErrUnavailable = errors.New("llm backend unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrEmptyResponse indicates the backend answered with no text.
	ErrEmptyResponse = errors.New("llm returned empty response")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")

	// ErrMisconfigured indicates the generator settings cannot produce a client.
	ErrMisconfigured = errors.New("llm misconfigured")

	// ErrDisabled is returned by the disabled generator for every call.
	ErrDisabled = errors.New("llm disabled")
)
