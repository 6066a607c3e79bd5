package domain

// RewordJob describes one request for a new variant of an item's text.
// Jobs are created on the interactive path and consumed by the background
// runner; they are transient and never persisted.
type RewordJob struct {
	CardID     CardID
	Ordinal    Ordinal
	SourceText string

	// StructuralTokens are markers (e.g. a cloze occlusion marker) that must
	// survive rewording for the generated text to be usable.
	StructuralTokens []string
}
