package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/index"
)

func vocab(words ...string) *index.Vocabulary {
	return index.NewVocabulary([][]string{words})
}

func TestClosest(t *testing.T) {
	c := New(DefaultCutoff)
	v := vocab("paracetamol", "fever", "headache", "pain")

	got, ratio, ok := c.Closest("paracetamo", v)
	require.True(t, ok)
	assert.Equal(t, "paracetamol", got)
	assert.InDelta(t, 20.0/21.0, ratio, 1e-9)

	_, _, ok = c.Closest("xyz", v)
	assert.False(t, ok)
}

func TestClosestTiePrefersLargestTerm(t *testing.T) {
	c := New(0.5)
	// "cat" vs "bat" and "cut": both ratio 2*2/6.
	for _, v := range []Vocabulary{vocab("cut", "bat"), vocab("bat", "cut")} {
		got, ratio, ok := c.Closest("cat", v)
		require.True(t, ok)
		assert.Equal(t, "cut", got)
		assert.InDelta(t, 4.0/6.0, ratio, 1e-12)
	}
}

func TestCorrectOnlyOutOfVocabulary(t *testing.T) {
	c := New(DefaultCutoff)
	v := vocab("fever", "pain", "feverish")

	out, changed := c.Correct([]string{"fever", "pian", "fevr"}, v)
	assert.True(t, changed)
	assert.Equal(t, []string{"fever", "pian", "fever"}, out, "pian scores 0.75 against pain")

	out, changed = c.Correct([]string{"fever", "pain"}, v)
	assert.False(t, changed)
	assert.Equal(t, []string{"fever", "pain"}, out)
}

func TestCorrectIsOrderIndependent(t *testing.T) {
	c := New(DefaultCutoff)
	v := vocab("fever", "headache", "cough")
	a, _ := c.Correct([]string{"fevr", "headach", "coughh"}, v)
	b, _ := c.Correct([]string{"coughh", "fevr", "headach"}, v)
	assert.Equal(t, []string{a[2], a[0], a[1]}, b)
}

func TestCorrectText(t *testing.T) {
	c := New(DefaultCutoff)
	v := vocab("fever", "pain")

	got, ok := c.CorrectText("Fevr PAIN", v)
	assert.True(t, ok)
	assert.Equal(t, "fever pain", got)

	got, ok = c.CorrectText("Fever  Pain", v)
	assert.False(t, ok, "case and spacing differences are not corrections")
	assert.Empty(t, got)

	_, ok = c.CorrectText("", v)
	assert.False(t, ok)
}

func TestInvalidCutoffFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCutoff, New(0).Cutoff())
	assert.Equal(t, DefaultCutoff, New(1.5).Cutoff())
	assert.Equal(t, 0.6, New(0.6).Cutoff())
}
