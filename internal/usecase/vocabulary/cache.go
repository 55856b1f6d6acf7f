package vocabulary

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/campus-assistant/internal/metrics"
)

// MinTokenLen is the shortest token kept in the vocabulary.
const MinTokenLen = 3

// corpus is the consumer interface for vocabulary sources (ISP).
type corpus interface {
	QuestionTexts(ctx context.Context) ([]string, error)
	GroupNames(ctx context.Context) ([]string, error)
}

// Vocabulary is an immutable set of known lowercase tokens.
type Vocabulary struct {
	set      map[string]struct{}
	words    []string
	loadedAt time.Time
}

// NewVocabulary builds a vocabulary from raw corpus texts.
func NewVocabulary(texts []string, loadedAt time.Time) *Vocabulary {
	set := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range tokenize(text) {
			set[tok] = struct{}{}
		}
	}

	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	slices.Sort(words)

	return &Vocabulary{set: set, words: words, loadedAt: loadedAt}
}

// Has reports whether the lowercase word is known.
func (v *Vocabulary) Has(word string) bool {
	if v == nil {
		return false
	}
	_, ok := v.set[word]
	return ok
}

// Words returns the known tokens in sorted order. Callers must not modify the slice.
func (v *Vocabulary) Words() []string {
	if v == nil {
		return nil
	}
	return v.words
}

// Len returns the number of known tokens.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.words)
}

// LoadedAt returns when the vocabulary was built. Zero means never.
func (v *Vocabulary) LoadedAt() time.Time {
	if v == nil {
		return time.Time{}
	}
	return v.loadedAt
}

// tokenize lowercases text, treats anything outside [a-z0-9] as a separator
// and keeps tokens of at least MinTokenLen bytes.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= MinTokenLen {
			out = append(out, f)
		}
	}
	return out
}

func isSeparator(r rune) bool {
	return (r < 'a' || r > 'z') && (r < '0' || r > '9')
}

// RefreshResult reports a completed rebuild.
type RefreshResult struct {
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Cache is the process-wide vocabulary. Loaded lazily on first use and rebuilt
// only on explicit Refresh; it can therefore be stale relative to the corpus,
// which LoadedAt exposes. Rebuilds happen off to the side and are swapped in
// atomically, so readers never see a partial set.
type Cache struct {
	corpus  corpus
	current atomic.Pointer[Vocabulary]
	flight  singleflight.Group
	now     func() time.Time
	logger  *zap.Logger
}

// NewCache creates an empty, not yet loaded cache.
func NewCache(c corpus, logger *zap.Logger) *Cache {
	return &Cache{
		corpus: c,
		now:    time.Now,
		logger: logger,
	}
}

// Get returns the current vocabulary, loading it on first use.
// On load failure the returned vocabulary is empty and the next call retries.
func (c *Cache) Get(ctx context.Context) (*Vocabulary, error) {
	if v := c.current.Load(); v != nil {
		return v, nil
	}
	v, err := c.rebuild(ctx)
	if err != nil {
		return &Vocabulary{}, err
	}
	return v, nil
}

// Current returns the loaded vocabulary without triggering a load. Nil when never loaded.
func (c *Cache) Current() *Vocabulary {
	return c.current.Load()
}

// Refresh rebuilds the vocabulary from the corpus and swaps it in.
// On failure the previous vocabulary stays in place.
func (c *Cache) Refresh(ctx context.Context) (RefreshResult, error) {
	v, err := c.rebuild(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{Count: v.Len(), LoadedAt: v.LoadedAt()}, nil
}

// rebuild collapses concurrent loads into one corpus read.
func (c *Cache) rebuild(ctx context.Context) (*Vocabulary, error) {
	res, err, _ := c.flight.Do("rebuild", func() (any, error) {
		return c.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Vocabulary), nil //nolint:forcetypeassert // single producer
}

func (c *Cache) load(ctx context.Context) (*Vocabulary, error) {
	var questions, groups []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = c.corpus.QuestionTexts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = c.corpus.GroupNames(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("Vocabulary refresh failed", zap.Error(err))
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	v := NewVocabulary(append(questions, groups...), c.now())
	c.current.Store(v)

	metrics.VocabularySize.Set(float64(v.Len()))
	metrics.VocabularyAge.Set(float64(v.LoadedAt().Unix()))

	c.logger.Info("Vocabulary loaded",
		zap.Int("tokens", v.Len()),
		zap.Int("questions", len(questions)),
		zap.Int("groups", len(groups)),
	)
	return v, nil
}
