package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrTransientFailure is returned for network or provider errors that
	// might resolve on retry.
	ErrTransientFailure = errors.New("transient error during text generation")

	// ErrValidationFailed is returned when generated text drops a required
	// structural marker. It is retried like a transient failure but recorded
	// separately for diagnostics.
	ErrValidationFailed = errors.New("generated text failed structural validation")

	// ErrNoVariantProduced is returned when every attempt has been exhausted
	// without a usable result. Callers downgrade it to a user-visible notice
	// and leave the cache untouched.
	ErrNoVariantProduced = errors.New("no usable variant produced")

	// ErrInvalidConfig is returned when the provider configuration is
	// invalid, including an unknown provider selection. It is never retried.
	ErrInvalidConfig = errors.New("invalid generation configuration")

	// ErrEmptySourceText is returned when there is no text to reword.
	ErrEmptySourceText = errors.New("source text cannot be empty")
)
