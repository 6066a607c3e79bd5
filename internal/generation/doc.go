// Package generation holds the text-rewording pipeline: the provider-neutral
// client contract, the structural validator, and the retrying service that
// combines them. Concrete provider clients live under internal/platform.
package generation
