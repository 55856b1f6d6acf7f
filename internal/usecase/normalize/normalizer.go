package normalize

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain/textdist"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/vocabulary"
)

const (
	// minSplitPart is the shortest half accepted when splitting a merged word.
	minSplitPart = 3
	// minSpellFixLen skips short tokens, where a near neighbour is usually a different word.
	minSpellFixLen = 5
	// maxShrinkWords is how many words a slow correction may drop before it is rejected.
	maxShrinkWords = 3
)

var (
	zeroWidth   = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
	markup      = regexp.MustCompile(`<[^>]*>`)
	emoji       = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}]`)
	quotes      = strings.NewReplacer("\u201C", `"`, "\u201D", `"`, "\u201E", `"`, "\u2018", "'", "\u2019", "'", "\u201A", "'")
	lowerAlpha  = regexp.MustCompile(`^[a-z]+$`)
)

// vocabSource is the consumer interface for the vocabulary cache.
type vocabSource interface {
	Get(ctx context.Context) (*vocabulary.Vocabulary, error)
}

// completer is the consumer interface for the Text Service.
type completer interface {
	Complete(ctx context.Context, prompt, instruction string) (string, error)
}

// Normalizer corrects user text in two stages: a local pass against the
// vocabulary and an optional Text Service pass.
type Normalizer struct {
	vocab  vocabSource
	text   completer
	logger *zap.Logger
}

// New creates a Normalizer.
func New(vocab vocabSource, text completer, logger *zap.Logger) *Normalizer {
	return &Normalizer{vocab: vocab, text: text, logger: logger}
}

// Quick cleans text, splits merged words and fixes spelling against the
// vocabulary. No network call beyond the first vocabulary load.
func (n *Normalizer) Quick(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}

	vocab, err := n.vocab.Get(ctx)
	if err != nil {
		n.logger.Warn("Vocabulary unavailable, skipping local correction", zap.Error(err))
	}
	return QuickWith(vocab, text)
}

// QuickWith runs the local correction against a given vocabulary.
func QuickWith(vocab *vocabulary.Vocabulary, text string) string {
	out := PreClean(text)
	if vocab.Len() == 0 {
		return out
	}
	out = splitMergedWords(vocab, out)
	return spellFix(vocab, out)
}

// PreClean strips zero-width characters, markup and emoji, normalizes quotes and collapses whitespace.
func PreClean(text string) string {
	s := zeroWidth.ReplaceAllString(text, "")
	s = markup.ReplaceAllString(s, " ")
	s = quotes.Replace(s)
	s = emoji.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// splitMergedWords turns "hostelstudents" into "hostel students" when both halves are known.
func splitMergedWords(vocab *vocabulary.Vocabulary, text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		lower := strings.ToLower(w)
		if vocab.Has(lower) {
			continue
		}
		for cut := minSplitPart; cut <= len(lower)-minSplitPart; cut++ {
			left, right := lower[:cut], lower[cut:]
			if vocab.Has(left) && vocab.Has(right) {
				words[i] = left + " " + right
				break
			}
		}
	}
	return strings.Join(words, " ")
}

// spellFix replaces unknown alphabetic tokens with the nearest vocabulary word
// when it lies within ceil(0.4 * len) edits. First-letter capitalization is kept.
func spellFix(vocab *vocabulary.Vocabulary, text string) string {
	words := strings.Fields(text)
	known := vocab.Words()

	for i, tok := range words {
		lower := strings.ToLower(tok)
		if len(lower) < minSpellFixLen || !lowerAlpha.MatchString(lower) || vocab.Has(lower) {
			continue
		}

		maxDist := (len(lower)*4 + 9) / 10
		best, bestDist := "", maxDist+1
		for _, w := range known {
			if abs(len(w)-len(lower)) >= bestDist {
				continue
			}
			if d := textdist.Levenshtein(lower, w); d < bestDist {
				best, bestDist = w, d
			}
		}
		if best == "" {
			continue
		}

		if unicode.IsUpper(rune(tok[0])) {
			best = strings.ToUpper(best[:1]) + best[1:]
		}
		words[i] = best
	}
	return strings.Join(words, " ")
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Slow asks the Text Service to fix spelling and grammar without changing meaning.
// It returns the input unchanged and false when the call fails, returns nothing,
// or drops more than maxShrinkWords words.
func (n *Normalizer) Slow(ctx context.Context, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return text, false
	}

	out, err := n.text.Complete(ctx, text, slowInstruction(text))
	if err != nil {
		n.logger.Warn("Slow correction failed", zap.Error(err))
		return text, false
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return text, false
	}
	if textdist.TokenCount(out) < textdist.TokenCount(text)-maxShrinkWords {
		n.logger.Debug("Slow correction rejected: too many words dropped",
			zap.String("input", text),
			zap.String("output", out),
		)
		return text, false
	}
	return out, true
}

func slowInstruction(text string) string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, t := range strings.Fields(strings.ToLower(text)) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}

	return fmt.Sprintf(`You are a STRICT spelling corrector for school-related questions.

GOAL:
- Fix ONLY spelling mistakes.
- Optionally fix very small grammar issues (like "is they" -> "are they").
- Preserve the original meaning exactly.

DO NOT:
- Replace one noun with a DIFFERENT noun.
- Invent words the user did not type.
- Add new concepts, places or items.
- Remove important words.
- Change the meaning of negations such as "not", "don't", "didn't".

You MAY combine obvious pairs with the same meaning ("text books" -> "textbooks").

These original user words must stay the SAME CONCEPT
(you may only fix their spelling or spacing):
%s

Return ONLY the corrected sentence, nothing else.`, strings.Join(tokens, ", "))
}
