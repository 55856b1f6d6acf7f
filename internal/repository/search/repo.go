package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/campus-assistant/internal/db"
	"github.com/kailas-cloud/campus-assistant/internal/domain"
)

const (
	fieldQuestion = "question_text"
	fieldGroup    = "group_id"
	fieldVector   = "vector"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo is the Vector Search Service adapter over the question index.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
}

// New creates a search repository for the question index under prefix.
func New(s store, prefix string) *Repo {
	return &Repo{
		store:     s,
		indexName: prefix + "questions:idx",
		keyPrefix: prefix + "question:",
	}
}

// IndexName returns the FT index queried by Search.
func (r *Repo) IndexName() string {
	return r.indexName
}

// Search returns up to limit candidates with similarity >= threshold,
// in the descending order produced by the index.
func (r *Repo) Search(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.Candidate, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		VectorField:  fieldVector,
		Vector:       vector,
		K:            limit,
		ReturnFields: []string{fieldQuestion, fieldGroup},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailure, err)
	}
	if sr == nil {
		return nil, nil
	}

	out := make([]domain.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if e.Score < threshold {
			continue
		}
		out = append(out, domain.Candidate{
			ID:           strings.TrimPrefix(e.Key, r.keyPrefix),
			QuestionText: e.Fields[fieldQuestion],
			GroupID:      e.Fields[fieldGroup],
			Similarity:   e.Score,
		})
	}
	return out, nil
}

// EnsureIndex creates the question index when it is missing. Returns true if created.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", r.indexName, err)
	}
	if exists {
		return false, nil
	}

	def, err := db.NewIndex(r.indexName).
		Prefix(r.keyPrefix).
		Tag(fieldGroup).
		Text(fieldQuestion).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		return false, fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return true, nil
}
