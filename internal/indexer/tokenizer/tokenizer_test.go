package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardTerms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"stopwords dropped", "Treatment of the fever", []string{"fev"}},
		{"punctuation split", "pain,headache;fever", []string{"pain", "headache", "fev"}},
		{"stemmed", "infections allergies", []string{"infection", "allergy"}},
		{"single chars dropped", "a b vitamin c", []string{"vitamin"}},
		{"empty", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Standard{}.Terms(tt.in))
		})
	}
}

func TestStandardPositionsAreDense(t *testing.T) {
	tokens := Standard{}.Tokenize("the fever and the pain")
	require.Len(t, tokens, 2)
	assert.Equal(t, 0, tokens[0].Position)
	assert.Equal(t, 1, tokens[1].Position)
}

func TestWhitespaceTerms(t *testing.T) {
	assert.Equal(t, []string{"fever", "pain", "of"}, Whitespace{}.Terms("Fever  PAIN of"))
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"running":    "runn",
		"relational": "relate",
		"tablets":    "tablet",
		"pills":      "pill",
		"is":         "is",
	}
	for in, want := range cases {
		assert.Equal(t, want, Stem(in), in)
	}
}

func TestNew(t *testing.T) {
	tok, err := New("whitespace")
	require.NoError(t, err)
	assert.Equal(t, "whitespace", tok.Name())

	tok, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "standard", tok.Name())

	_, err = New("bpe")
	assert.Error(t, err)
}

func BenchmarkStandardTermsRepeatedText(b *testing.B) {
	text := strings.Repeat("Paracetamol is used for the treatment of fever and mild to moderate pain. ", 20)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Standard{}.Terms(text)
	}
}
