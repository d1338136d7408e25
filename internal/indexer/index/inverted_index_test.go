package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
)

func sampleIndex(t *testing.T) *InvertedIndex {
	t.Helper()
	idx, err := Build([][]string{
		{"fever", "pain", "fever"},
		{"pain", "relief"},
		{"allergy"},
	})
	require.NoError(t, err)
	return idx
}

func TestBuildStatistics(t *testing.T) {
	idx := sampleIndex(t)

	assert.Equal(t, 3, idx.DocCount())
	assert.Equal(t, 3, idx.DocLength(0))
	assert.Equal(t, 0, idx.DocLength(7))
	assert.InDelta(t, 2.0, idx.AvgDocLength(), 1e-9)

	assert.Equal(t, 1, idx.DocFreq("fever"), "repeats count once per document")
	assert.Equal(t, 2, idx.DocFreq("pain"))
	assert.Equal(t, 0, idx.DocFreq("cough"))

	assert.Equal(t, 2, idx.TermFreq("fever", 0))
	assert.Equal(t, 0, idx.TermFreq("fever", 1))
}

func TestPostingsSortedAndInRange(t *testing.T) {
	idx := sampleIndex(t)
	for _, entry := range idx.Snapshot() {
		assert.LessOrEqual(t, len(entry.Postings), idx.DocCount(), entry.Term)
		for i, p := range entry.Postings {
			assert.Less(t, p.DocID, idx.DocCount())
			if i > 0 {
				assert.Greater(t, p.DocID, entry.Postings[i-1].DocID)
			}
		}
	}
}

func TestVocabulary(t *testing.T) {
	idx := sampleIndex(t)
	assert.True(t, idx.Contains("relief"))
	assert.False(t, idx.Contains("cough"))
	assert.Equal(t, []string{"allergy", "fever", "pain", "relief"}, idx.Terms())

	v := NewVocabulary([][]string{{"b", "a"}, {"a", "c"}})
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []string{"a", "b", "c"}, v.Terms())
}

func TestBuildEmptyCorpus(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCorpus)
}

func TestBuildEmptyDocuments(t *testing.T) {
	idx, err := Build([][]string{{}, {}})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.DocCount())
	assert.Zero(t, idx.AvgDocLength())
	assert.Empty(t, idx.Terms())
}
