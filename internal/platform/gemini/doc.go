// Package gemini implements the generation.Client interface using
// Google's Gemini API via the google.golang.org/genai SDK.
package gemini
