package corpus

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
)

const batchSize = 500

// store is the consumer interface for corpus reads (ISP).
type store interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo reads the question corpus and intent (group) names that feed the vocabulary.
type Repo struct {
	store  store
	prefix string
}

// New creates a corpus repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// QuestionTexts returns the question_text of every stored question.
func (r *Repo) QuestionTexts(ctx context.Context) ([]string, error) {
	return r.fieldValues(ctx, r.prefix+"question:*", "question_text")
}

// GroupNames returns the name of every intent group.
func (r *Repo) GroupNames(ctx context.Context) ([]string, error) {
	return r.fieldValues(ctx, r.prefix+"group:*", "name")
}

func (r *Repo) fieldValues(ctx context.Context, pattern, field string) ([]string, error) {
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", domain.ErrCorpusUnavailable, pattern, err)
	}

	out := make([]string, 0, len(keys))
	for start := 0; start < len(keys); start += batchSize {
		end := min(start+batchSize, len(keys))
		rows, err := r.store.HGetAllMulti(ctx, keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrCorpusUnavailable, pattern, err)
		}
		for _, row := range rows {
			if v := row[field]; v != "" {
				out = append(out, v)
			}
		}
	}
	return out, nil
}
