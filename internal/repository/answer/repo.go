package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
)

// store is the consumer interface for answer lookups (ISP).
type store interface {
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo is the Answer Store adapter: one hash per group under <prefix>answer:<group_id>.
type Repo struct {
	store  store
	prefix string
}

// New creates an answer repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix + "answer:"}
}

// AnswersForGroups fetches the answer rows for the given groups in one round-trip.
// Missing groups are omitted; duplicate ids are fetched once.
func (r *Repo) AnswersForGroups(ctx context.Context, groupIDs []string) ([]domain.Answer, error) {
	ids := make([]string, 0, len(groupIDs))
	seen := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefix + id
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAnswerStoreFailure, err)
	}

	out := make([]domain.Answer, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		out = append(out, domain.Answer{
			GroupID:  ids[i],
			Text:     row["answer_text"],
			IsActive: parseActive(row["is_active"]),
		})
	}
	return out, nil
}

func parseActive(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
