package tagger

import (
	"context"

	"github.com/crimson-sun/mailsift/internal/model"
)

// Tagger finds named entities (PII) in free text. Implementations must be
// safe for concurrent use; a failure affects only the text being tagged.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]model.Entity, error)
	Close() error
}

// Func adapts a plain function to Tagger. Close is a no-op.
type Func func(ctx context.Context, text string) ([]model.Entity, error)

func (f Func) Tag(ctx context.Context, text string) ([]model.Entity, error) {
	return f(ctx, text)
}

func (f Func) Close() error { return nil }
