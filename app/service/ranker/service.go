package ranker

import (
	"context"
	"errors"
	"fmt"
	"math"

	"researchd/app/client/arxiv"
	"researchd/app/client/llm"
	"researchd/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// ErrNoPapersFound distinguishes a legitimately empty result from an upstream
// failure; the caller must not swallow it as a silent empty success.
var ErrNoPapersFound = errors.New("no papers found")

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type PaperSource interface {
	Search(ctx context.Context, expression string) ([]arxiv.Paper, error)
}

type Service struct {
	papers    PaperSource
	embedder  Embedder
	threshold float64
	maxHits   int
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		papers:    do.MustInvoke[*arxiv.Client](di),
		embedder:  do.MustInvoke[*llm.Client](di),
		threshold: cfg.Arxiv.SimilarityThreshold,
		maxHits:   cfg.Arxiv.MaxResults,
	}, nil
}

// Search fetches candidates once, embeds the query together with every
// title+summary in a single embedding call, keeps candidates at or above the
// similarity threshold and returns at most maxResults of them, highest first.
func (s *Service) Search(ctx context.Context, query arxiv.Query, maxResults int) ([]arxiv.Paper, error) {
	if maxResults <= 0 || maxResults > s.maxHits {
		maxResults = s.maxHits
	}

	candidates, err := s.papers.Search(ctx, query.Expression())
	if err != nil {
		return nil, fmt.Errorf("arxiv search failed: %w", err)
	}

	if len(candidates) == 0 {
		return nil, ErrNoPapersFound
	}

	queryText := query.FreeText()
	if queryText == "" {
		queryText = query.Expression()
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, queryText)
	for _, paper := range candidates {
		texts = append(texts, paper.Title+" "+paper.Summary)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	queryVector := vectors[0]

	var relevant []arxiv.Paper
	for i, paper := range candidates {
		paper.Score = CosineSimilarity(queryVector, vectors[i+1])
		if paper.Score >= s.threshold {
			relevant = append(relevant, paper)
		}
	}

	if len(relevant) == 0 {
		return nil, ErrNoPapersFound
	}

	relevant = pie.SortUsing(relevant, func(a, b arxiv.Paper) bool {
		return a.Score > b.Score
	})

	if len(relevant) > maxResults {
		relevant = relevant[:maxResults]
	}

	return relevant, nil
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
