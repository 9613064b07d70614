package ranker

import (
	"context"
	"errors"
	"testing"

	"researchd/app/client/arxiv"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	papers []arxiv.Paper
	err    error
	calls  int
}

func (f *fakeSource) Search(ctx context.Context, expression string) ([]arxiv.Paper, error) {
	f.calls++
	return f.papers, f.err
}

type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++

	result := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		result = append(result, vec)
	}

	return result, nil
}

func TestSearchRanksByThreshold(t *testing.T) {
	source := &fakeSource{papers: []arxiv.Paper{
		{Title: "close", Summary: "match"},
		{Title: "far", Summary: "off"},
		{Title: "closer", Summary: "match"},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"transformers": {1, 0, 0},
		"close match":  {1, 1, 0},
		"far off":      {0, 1, 0},
		"closer match": {1, 0.2, 0},
	}}

	svc := &Service{
		papers:    source,
		embedder:  embedder,
		threshold: 0.5,
		maxHits:   5,
	}

	papers, err := svc.Search(context.Background(), arxiv.Query{AllFields: "transformers"}, 5)
	require.NoError(t, err)

	require.Len(t, papers, 2)
	require.Equal(t, "closer", papers[0].Title)
	require.Equal(t, "close", papers[1].Title)
	require.Greater(t, papers[0].Score, papers[1].Score)
	require.GreaterOrEqual(t, papers[1].Score, 0.5)

	require.Equal(t, 1, source.calls)
	require.Equal(t, 1, embedder.calls)
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	source := &fakeSource{papers: []arxiv.Paper{
		{Title: "a", Summary: "x"},
		{Title: "b", Summary: "x"},
		{Title: "c", Summary: "x"},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query": {0, 0, 1},
	}}

	svc := &Service{
		papers:    source,
		embedder:  embedder,
		threshold: 0.5,
		maxHits:   5,
	}

	papers, err := svc.Search(context.Background(), arxiv.Query{AllFields: "query"}, 2)
	require.NoError(t, err)
	require.Len(t, papers, 2)
}

func TestSearchNoCandidates(t *testing.T) {
	svc := &Service{
		papers:    &fakeSource{},
		embedder:  &fakeEmbedder{},
		threshold: 0.5,
		maxHits:   5,
	}

	_, err := svc.Search(context.Background(), arxiv.Query{AllFields: "nothing"}, 5)
	require.ErrorIs(t, err, ErrNoPapersFound)
}

func TestSearchAllBelowThreshold(t *testing.T) {
	source := &fakeSource{papers: []arxiv.Paper{
		{Title: "far", Summary: "off"},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query":   {1, 0, 0},
		"far off": {0, 1, 0},
	}}

	svc := &Service{
		papers:    source,
		embedder:  embedder,
		threshold: 0.5,
		maxHits:   5,
	}

	_, err := svc.Search(context.Background(), arxiv.Query{AllFields: "query"}, 5)
	require.ErrorIs(t, err, ErrNoPapersFound)
}

func TestSearchUpstreamError(t *testing.T) {
	svc := &Service{
		papers:    &fakeSource{err: errors.New("boom")},
		embedder:  &fakeEmbedder{},
		threshold: 0.5,
		maxHits:   5,
	}

	_, err := svc.Search(context.Background(), arxiv.Query{AllFields: "query"}, 5)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoPapersFound)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
