// Package providers maps the configured provider selection to a concrete
// generation.Client implementation.
package providers
