package tokenizer

import (
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "Paracetamol 500mg tablet for fever and mild pain",
	"medium": `Dolo 650 Tablet helps relieve pain and fever by blocking the release of
        certain chemical messengers responsible for fever and pain. It is used to
        treat headaches, migraine, nerve pain, toothache, sore throat, period
        pains, arthritis, muscle aches, and the common cold.`,
	"long": strings.Repeat(`Amoxycillin is a penicillin antibiotic used to treat bacterial
        infections of the chest, ear, nose, throat, urinary tract and skin. It
        stops the growth of bacteria by interfering with cell wall synthesis.
        Common side effects include vomiting, nausea and diarrhea. `, 20),
}

func BenchmarkStandardTerms(b *testing.B) {
	tok := Standard{}
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Terms(text)
			}
		})
	}
}

func BenchmarkWhitespaceTerms(b *testing.B) {
	tok := Whitespace{}
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = tok.Terms(text)
	}
}

func BenchmarkStandardTermsParallel(b *testing.B) {
	tok := Standard{}
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tok.Terms(text)
		}
	})
}

func BenchmarkStem(b *testing.B) {
	words := []string{
		"infections", "headaches", "relieving", "tablets",
		"treatment", "inflammation", "allergies",
		"sneezing", "bacterial", "medications",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Stem(words[i%len(words)])
	}
}
