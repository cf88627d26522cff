package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrEmbedderUnavailable  = errors.New("embedder unavailable")
	ErrMalformedCandidate   = errors.New("malformed candidate")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
