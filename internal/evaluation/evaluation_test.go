package evaluation

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
)

func usesCorpus(uses ...string) *corpus.Corpus {
	docs := make([]corpus.Document, len(uses))
	for i, u := range uses {
		docs[i] = corpus.Document{Text: u, Uses: u}
	}
	return corpus.New(docs)
}

func TestFeverPainExample(t *testing.T) {
	e := New(usesCorpus("fever", "pain", "fever pain"), 10)
	m := e.EvaluateQuery("fever pain", []int{0, 1, 2})
	assert.Equal(t, 1.0, m.Precision)
	assert.Equal(t, 1.0, m.Recall)
	assert.Equal(t, 1.0, m.MRR)
	assert.InDelta(t, 1.0, m.NDCG, 1e-12)
}

func TestQueryIsLowerCased(t *testing.T) {
	e := New(usesCorpus("fever", "allergy"), 10)
	m := e.EvaluateQuery("FEVER", []int{1, 0})
	assert.Equal(t, 0.5, m.Precision)
	assert.Equal(t, 1.0, m.Recall)
	assert.Equal(t, 0.5, m.MRR)
}

func TestEmptyResultsScoreZero(t *testing.T) {
	e := New(usesCorpus("fever"), 10)
	m := e.EvaluateQuery("fever", nil)
	assert.Zero(t, m.Precision)
	assert.Zero(t, m.Recall)
	assert.Zero(t, m.MRR)
	assert.Zero(t, m.NDCG)
}

func TestNoRelevantInCorpus(t *testing.T) {
	e := New(usesCorpus("fever", "pain"), 10)
	m := e.EvaluateQuery("rash", []int{0, 1})
	assert.Zero(t, m.Recall)
	assert.Zero(t, m.Precision)
}

func TestOnlyTopKCounts(t *testing.T) {
	e := New(usesCorpus("a", "b", "fever"), 2)
	m := e.EvaluateQuery("fever", []int{0, 1, 2})
	assert.Zero(t, m.Precision)
	assert.Zero(t, m.Recall)
	assert.Zero(t, m.MRR)
}

func TestMetricFunctions(t *testing.T) {
	assert.Zero(t, PrecisionAtK(nil, 10))
	assert.Zero(t, PrecisionAtK([]int{1}, 0))
	assert.InDelta(t, 2.0/3.0, PrecisionAtK([]int{1, 0, 1}, 10), 1e-12)
	assert.InDelta(t, 0.5, PrecisionAtK([]int{1, 0, 1}, 2), 1e-12)

	assert.Zero(t, RecallAtK([]int{1}, 10, 0))
	assert.InDelta(t, 0.25, RecallAtK([]int{1, 0}, 10, 4), 1e-12)

	assert.InDelta(t, 1.0/3.0, ReciprocalRank([]int{0, 0, 1}, 10), 1e-12)
	assert.Zero(t, ReciprocalRank([]int{0, 0, 1}, 2))
	assert.Zero(t, ReciprocalRank(nil, 10))

	assert.InDelta(t, 1+1/math.Log2(3), DCG([]int{1, 1}), 1e-12)
}

func TestNDCGMeasuresOrder(t *testing.T) {
	assert.InDelta(t, 1.0, NDCGAtK([]int{1, 0, 0}, 10), 1e-12)
	assert.InDelta(t, 1/math.Log2(3), NDCGAtK([]int{0, 1}, 10), 1e-12)
	assert.InDelta(t, 0.5, NDCGAtK([]int{0, 0, 1}, 10), 1e-12)
	assert.Less(t, NDCGAtK([]int{0, 1, 1}, 10), NDCGAtK([]int{1, 0, 1}, 10))
	assert.Zero(t, NDCGAtK([]int{0, 0}, 10))
	assert.Zero(t, NDCGAtK(nil, 10))
}

func TestMetricsBounded(t *testing.T) {
	e := New(usesCorpus("fever", "pain", "fever cough", "rash", "pain rash"), 3)
	for _, results := range [][]int{{}, {0}, {3, 4, 0, 1}, {4, 4, 4}, {1, 2, 3, 4, 0}} {
		for _, q := range []string{"fever", "pain rash", "none"} {
			m := e.EvaluateQuery(q, results)
			for _, v := range []float64{m.Precision, m.Recall, m.MRR, m.NDCG} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		}
	}
}

func TestReadQueryLogSkipsMalformed(t *testing.T) {
	input := strings.Join([]string{
		`{"query":"fever","results":[0,1]}`,
		`not json`,
		``,
		`{"results":[0]}`,
		`{"query":"pain","results":[7]}`,
		`{"query":"rash","results":[],"provenance":"lexical","timestamp":"2024-05-01T10:00:00Z"}`,
		`{"query":"cough","results":[-1]}`,
	}, "\n")
	records, skipped, err := ReadQueryLog(strings.NewReader(input), 3)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "fever", records[0].Query)
	assert.Equal(t, []int{0, 1}, records[0].Results)
	assert.Equal(t, "rash", records[1].Query)
	assert.Empty(t, records[1].Results)
}

func TestReadQueryLogRejectsRepeatedDocuments(t *testing.T) {
	input := `{"query":"fever","results":[0,0,0]}` + "\n" + `{"query":"fever","results":[0,2]}`
	records, skipped, err := ReadQueryLog(strings.NewReader(input), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, []int{0, 2}, records[0].Results)
}

func TestRepeatedDocumentCountsOnce(t *testing.T) {
	e := New(usesCorpus("fever", "pain", "rash"), 10)
	m := e.EvaluateQuery("fever", []int{0, 0, 0})
	assert.Equal(t, 1.0, m.Recall)
	assert.InDelta(t, 1.0/3.0, m.Precision, 1e-12)
	assert.Equal(t, 1.0, m.MRR)
}

func TestReadQueryLogSkipsOversizedLine(t *testing.T) {
	huge := `{"query":"` + strings.Repeat("x", 2*maxLogLine) + `","results":[]}`
	input := strings.Join([]string{
		`{"query":"fever","results":[0]}`,
		huge,
		`{"query":"pain","results":[1]}`,
	}, "\n")
	records, skipped, err := ReadQueryLog(strings.NewReader(input), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "fever", records[0].Query)
	assert.Equal(t, "pain", records[1].Query)
}

func TestReadQueryLogHandlesCRLFAndMissingFinalNewline(t *testing.T) {
	input := "{\"query\":\"fever\",\"results\":[0]}\r\n\r\n{\"query\":\"pain\",\"results\":[1]}"
	records, skipped, err := ReadQueryLog(strings.NewReader(input), 3)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "pain", records[1].Query)
}

func TestReadsCollectorOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_logs.jsonl")
	sink, err := analytics.NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), []analytics.QueryLogRecord{
		{Query: "fever", Results: []int{2, 0}, Provenance: "lexical"},
		{Query: "paracetamo", Results: []int{1}, Provenance: "semantic", CorrectedQuery: "paracetamol"},
	}))
	require.NoError(t, sink.Close())

	records, skipped, err := ReadQueryLogFile(path, 3)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, []int{1}, records[1].Results)
}

func TestEvaluateKeepsInputOrder(t *testing.T) {
	c := usesCorpus("fever", "pain", "rash", "cough")
	m := metrics.New(prometheus.NewRegistry())
	e := New(c, 10, WithWorkers(3), WithMetrics(m))

	var records []analytics.QueryLogRecord
	for i := 0; i < 50; i++ {
		records = append(records, analytics.QueryLogRecord{Query: fmt.Sprintf("q%d fever", i), Results: []int{i % 4}})
	}
	report, err := e.Evaluate(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, report.Queries, 50)
	for i, q := range report.Queries {
		assert.Equal(t, records[i].Query, q.Query)
		want := 0.0
		if i%4 == 0 {
			want = 1
		}
		assert.Equal(t, want, q.Precision, "row %d", i)
	}
	mean := report.Mean()
	assert.InDelta(t, 13.0/50.0, mean.Precision, 1e-12)
	assert.InDelta(t, mean.NDCG, testutil.ToFloat64(m.EvaluationMetric.WithLabelValues("ndcg")), 1e-12)
}

func TestEvaluateCancelled(t *testing.T) {
	e := New(usesCorpus("fever"), 10, WithWorkers(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Evaluate(ctx, []analytics.QueryLogRecord{{Query: "fever", Results: []int{0}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyReportMean(t *testing.T) {
	r := &Report{K: 10}
	assert.Equal(t, Summary{}, r.Mean())
}

func TestWriteCSV(t *testing.T) {
	report := &Report{K: 10, Queries: []QueryMetrics{
		{Query: "fever, high", Precision: 1, Recall: 0.5, MRR: 1, NDCG: 1},
		{Query: "pain", Precision: 0, Recall: 0, MRR: 0, NDCG: 0},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Query,Precision@10,Recall@10,MRR,nDCG@10", lines[0])
	assert.Equal(t, `"fever, high",1.0000,0.5000,1.0000,1.0000`, lines[1])
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "evaluation_results.csv")
	require.NoError(t, WriteCSVFile(path, &Report{K: 5}))
	assert.FileExists(t, path)
}

func TestRenderTable(t *testing.T) {
	report := &Report{K: 10, Queries: []QueryMetrics{{Query: "fever", Precision: 1, Recall: 1, MRR: 1, NDCG: 1}}}
	out := RenderTable(report)
	assert.Contains(t, out, "Precision@10")
	assert.Contains(t, out, "fever")
	assert.Contains(t, out, "mean of 1")
	assert.Contains(t, out, "1.0000")
}
