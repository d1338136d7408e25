package fuzzy

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/index"
)

func BenchmarkCorrectText(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		words := make([][]string, 0, n)
		for i := 0; i < n; i++ {
			words = append(words, []string{fmt.Sprintf("medicine%d", i)})
		}
		words = append(words, []string{"paracetamol", "fever"})
		vocab := index.NewVocabulary(words)
		c := New(DefaultCutoff)

		b.Run(fmt.Sprintf("vocab_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = c.CorrectText("paracetamo fevr", vocab)
			}
		})
	}
}
