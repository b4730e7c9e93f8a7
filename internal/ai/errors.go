package ai

import "errors"

var (
	// ErrInvalidModelFormat means a model identifier is not "provider:model".
	ErrInvalidModelFormat = errors.New("invalid model format")

	// ErrUnsupportedProvider means no adapter exists for the provider tag.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrUnknownModel means the adapter does not offer the requested model.
	ErrUnknownModel = errors.New("unknown model")

	// ErrProviderRequestFailed covers transport errors and non-2xx replies.
	ErrProviderRequestFailed = errors.New("provider request failed")

	// ErrEmptyResponse means the provider returned no text where text is
	// required.
	ErrEmptyResponse = errors.New("empty response")

	// ErrUnsupportedProviderForFollowUp means the provider cannot replay a
	// stored conversation.
	ErrUnsupportedProviderForFollowUp = errors.New("provider does not support follow-ups")
)
