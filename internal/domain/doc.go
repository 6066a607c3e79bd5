// Package domain contains the core entities of the variant cache:
// the per-item VariantSet and the transient generation job description.
// It has no dependencies on storage, transport, or provider packages.
package domain
