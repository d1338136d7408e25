package semantic

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/tokenizer"
)

// DefaultMaxFeatures bounds the TF-IDF vocabulary, keeping the most
// document-frequent terms.
const DefaultMaxFeatures = 2048

// TFIDFEmbedder is an in-process embedder fitted on the corpus. Its vectors
// are L2-normalised sublinear TF times smoothed IDF.
type TFIDFEmbedder struct {
	tok        tokenizer.Tokenizer
	vocabulary map[string]int
	idf        []float64
}

// NewTFIDFEmbedder fits the vocabulary and IDF table over corpus.
func NewTFIDFEmbedder(corpus []string, tok tokenizer.Tokenizer, maxFeatures int) (*TFIDFEmbedder, error) {
	if len(corpus) == 0 {
		return nil, errors.New("empty corpus for TF-IDF fit")
	}
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, term := range tok.Terms(text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, errors.New("no terms found in corpus")
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	e := &TFIDFEmbedder{
		tok:        tok,
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return e, nil
}

func (e *TFIDFEmbedder) Dimensions() int { return len(e.idf) }

func (e *TFIDFEmbedder) ModelName() string { return "tfidf" }

// Embed returns the unit TF-IDF vector of text, or the zero vector when no
// term is in the vocabulary.
func (e *TFIDFEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(e.idf))
	counts := make(map[int]int)
	for _, term := range e.tok.Terms(text) {
		if i, ok := e.vocabulary[term]; ok {
			counts[i]++
		}
	}
	for i, c := range counts {
		vec[i] = float32((1 + math.Log(float64(c))) * e.idf[i])
	}
	normalize(vec)
	return vec, nil
}

func (e *TFIDFEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}
