package domain

import "errors"

var (
	// ErrInputEmpty signals a blank utterance; rejected before the pipeline runs.
	ErrInputEmpty = errors.New("question is empty")
	// ErrInputTooLong signals an utterance over the configured length limit.
	ErrInputTooLong = errors.New("question is too long")

	// ErrRateLimited signals that the Text Service refused the active credential.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoCredentials signals an empty credential pool.
	ErrNoCredentials = errors.New("no text service credentials configured")
	// ErrBudgetExceeded signals an exhausted token budget with action=reject.
	ErrBudgetExceeded = errors.New("text service budget exceeded")
	// ErrTextServiceFailure signals any other Text Service failure.
	ErrTextServiceFailure = errors.New("text service error")
	// ErrEmptyCompletion signals a successful call that produced no text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrEmptyEmbedding signals an embedding call that returned no vector.
	ErrEmptyEmbedding = errors.New("empty embedding")

	// ErrSearchFailure signals a Vector Search Service failure.
	ErrSearchFailure = errors.New("vector search error")
	// ErrAnswerStoreFailure signals an Answer Store failure.
	ErrAnswerStoreFailure = errors.New("answer store error")
	// ErrCorpusUnavailable signals that the vocabulary corpus could not be read.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
)

// IsInputError reports whether err should surface as a request-level error.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInputEmpty) || errors.Is(err, ErrInputTooLong)
}
