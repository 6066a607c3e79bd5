package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStructure(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		generated string
		tokens    []string
		want      bool
	}{
		{
			name:      "no tokens passes trivially",
			source:    "the capital of {{X}} is large",
			generated: "anything at all",
			tokens:    nil,
			want:      true,
		},
		{
			name:      "token retained verbatim",
			source:    "the capital of {{X}} is big",
			generated: "the capital of {{X}} is large",
			tokens:    []string{"{{X}}"},
			want:      true,
		},
		{
			name:      "token retained with different case",
			source:    "the capital of {{X}} is big",
			generated: "the capital of {{x}} is large",
			tokens:    []string{"{{X}}"},
			want:      true,
		},
		{
			name:      "token dropped",
			source:    "the capital of {{X}} is big",
			generated: "the capital of France is large",
			tokens:    []string{"{{X}}"},
			want:      false,
		},
		{
			name:      "one of several tokens dropped",
			source:    "both {{c1::here}} and {{c2::there}}",
			generated: "kept {{c1::here}} but not the other",
			tokens:    []string{"{{c1::", "{{c2::"},
			want:      false,
		},
		{
			name:      "all tokens retained anywhere",
			source:    "both {{c1::here}} and {{c2::there}}",
			generated: "{{C2::moved}} to the front, {{c1::kept}}",
			tokens:    []string{"{{c1::", "{{c2::"},
			want:      true,
		},
		{
			name:      "token absent from source is not required",
			source:    "plain text without markers",
			generated: "reworded plain text",
			tokens:    []string{"{{X}}"},
			want:      true,
		},
		{
			name:      "empty token ignored",
			source:    "whatever source",
			generated: "whatever",
			tokens:    []string{""},
			want:      true,
		},
		{
			name:      "empty generated text with required token",
			source:    "holds {{X}} marker",
			generated: "",
			tokens:    []string{"{{X}}"},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateStructure(tt.source, tt.generated, tt.tokens))
		})
	}
}
