package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/tokenizer"
)

func TestParse(t *testing.T) {
	q := Parse("  Fever  PAIN fever ", tokenizer.Whitespace{})
	assert.False(t, q.IsBlank())
	assert.Equal(t, []string{"fever", "pain", "fever"}, q.Words)
	assert.Equal(t, []string{"fever", "pain", "fever"}, q.Terms)
	assert.Equal(t, []string{"fever", "pain"}, q.DistinctTerms())
	assert.Equal(t, "fever pain fever", q.Normalized())
}

func TestParseBlank(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		q := Parse(raw, tokenizer.Standard{})
		assert.True(t, q.IsBlank())
		assert.Empty(t, q.Words)
		assert.NotNil(t, q.Terms)
		assert.Empty(t, q.Terms)
	}
}

func TestParseStopwordsOnly(t *testing.T) {
	q := Parse("the of and", tokenizer.Standard{})
	assert.False(t, q.IsBlank())
	assert.Len(t, q.Words, 3)
	assert.Empty(t, q.Terms)
}
