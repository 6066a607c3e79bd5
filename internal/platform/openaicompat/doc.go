// Package openaicompat implements the generation.Client interface against
// any OpenAI-compatible chat-completions API using the official openai-go
// SDK. Mistral's API is OpenAI-compatible, so both the "openai" and
// "mistral" provider selections are served by this package, differing only
// in base URL.
package openaicompat
