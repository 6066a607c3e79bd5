package generation

import "strings"

// ValidateStructure reports whether every structural token survived
// rewording. Tokens are matched case-insensitively anywhere in the generated
// text; an empty token set passes trivially, so non-structured items skip
// validation. A token that does not occur in the source text is not required
// of the generated text either: only markers that were actually there to
// begin with must survive. Pure function, no side effects.
func ValidateStructure(sourceText, generatedText string, structuralTokens []string) bool {
	if len(structuralTokens) == 0 {
		return true
	}

	loweredSource := strings.ToLower(sourceText)
	loweredGenerated := strings.ToLower(generatedText)

	for _, token := range structuralTokens {
		if token == "" {
			continue
		}
		lowered := strings.ToLower(token)
		if !strings.Contains(loweredSource, lowered) {
			continue
		}
		if !strings.Contains(loweredGenerated, lowered) {
			return false
		}
	}

	return true
}
