package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
)

const sampleCSV = `Medicine Name,Composition,Uses,Side_effects,processed_document
Paracetamol 500,Paracetamol (500mg),Fever Pain,Nausea,paracetamol fever pain
Ibuprofen 200,Ibuprofen (200mg),Pain relief,Stomach upset,ibuprofen pain relief
"Cetirizine, 10",Cetirizine (10mg),Allergy,Drowsiness,cetirizine allergy
`

func TestReadCSV(t *testing.T) {
	c, err := ReadCSV(strings.NewReader(sampleCSV), config.Default().Corpus)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	d, ok := c.Get(2)
	require.True(t, ok)
	assert.Equal(t, 2, d.ID)
	assert.Equal(t, "Cetirizine, 10", d.Name)
	assert.Equal(t, "cetirizine allergy", d.Text)
	assert.Empty(t, d.Description, "absent display column loads empty")

	_, ok = c.Get(3)
	assert.False(t, ok)
}

func TestUsesTermsLowerCased(t *testing.T) {
	d := Document{Uses: "Fever  PAIN\tHeadache"}
	assert.Equal(t, []string{"fever", "pain", "headache"}, d.UsesTerms())

	c := New([]Document{d})
	assert.Contains(t, c.UsesSet(0), "pain")
	assert.Nil(t, c.UsesSet(1))
}

func TestReadCSVErrors(t *testing.T) {
	cfg := config.Default().Corpus

	_, err := ReadCSV(strings.NewReader(""), cfg)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCorpus)

	_, err = ReadCSV(strings.NewReader("Uses,processed_document\n"), cfg)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCorpus)

	_, err = ReadCSV(strings.NewReader("Uses,text\nfever,fever\n"), cfg)
	assert.ErrorContains(t, err, "text column")
}
