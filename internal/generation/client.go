package generation

import "context"

// Client defines the interface for a remote text-rewording provider.
// This interface is the boundary between the library core and external
// LLM services; implementations vary per provider but are all one
// request, one response, with no retry logic of their own.
type Client interface {
	// Reword sends the source text to the provider under the given system
	// prompt and returns the reworded text. Any non-2xx response or
	// transport failure is mapped to an error wrapping ErrTransientFailure
	// that carries the provider's human-readable reason when present.
	Reword(ctx context.Context, systemPrompt, text string) (string, error)
}
