package domain

import (
	"context"
	"fmt"
	"strings"
)

// Embedder turns a query into a vector comparable with the indexed questions.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one query vector plus the tokens spent producing it.
// Cached vectors report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prefixes every query with a retrieval instruction, for
// models that embed queries and documents asymmetrically.
type InstructionEmbedder struct {
	inner  Embedder
	prefix string
}

// NewInstructionEmbedder wraps inner. A single space separates instruction
// and query unless the instruction already ends in whitespace.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	prefix := instruction
	if prefix != "" && strings.TrimRight(prefix, " \t\n") == prefix {
		prefix += " "
	}
	return &InstructionEmbedder{inner: inner, prefix: prefix}
}

// Embed embeds the prefixed query.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.prefix+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
