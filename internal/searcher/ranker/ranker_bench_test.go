package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/tokenizer"
)

var benchTerms = []string{"fever", "pain", "allergy", "infection", "acidity", "cough", "rash", "diabetes"}

func benchCorpus(n int) []corpus.Document {
	docs := make([]corpus.Document, n)
	for i := range docs {
		docs[i] = corpus.Document{
			ID: i,
			Text: fmt.Sprintf("tablet for %s and %s with %s relief",
				benchTerms[i%len(benchTerms)], benchTerms[(i+2)%len(benchTerms)], benchTerms[(i+3)%len(benchTerms)]),
		}
	}
	return docs
}

func BenchmarkFit(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		docs := benchCorpus(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			r := New(tokenizer.Whitespace{}, DefaultParams())
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := r.Fit(docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearch(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		r := New(tokenizer.Whitespace{}, DefaultParams())
		if err := r.Fit(benchCorpus(n)); err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = r.Search([]string{benchTerms[i%len(benchTerms)]}, 10)
			}
		})
	}
}

func BenchmarkSearchMultiTerm(b *testing.B) {
	r := New(tokenizer.Whitespace{}, DefaultParams())
	if err := r.Fit(benchCorpus(10000)); err != nil {
		b.Fatal(err)
	}
	for _, n := range []int{1, 3, 5, 8} {
		b.Run(fmt.Sprintf("terms_%d", n), func(b *testing.B) {
			terms := benchTerms[:n]
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = r.Search(terms, 10)
			}
		})
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	r := New(tokenizer.Whitespace{}, DefaultParams())
	if err := r.Fit(benchCorpus(10000)); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = r.Search([]string{benchTerms[i%len(benchTerms)]}, 10)
			i++
		}
	})
}
