package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means the corpus could not be loaded. Nothing is
	// processed or written.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSinkUnavailable means at least one record could not be written.
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrAllClassificationsFailed is returned after writing when the tagger
	// failed on every record.
	ErrAllClassificationsFailed = errors.New("all classifications failed")
)

// ClassificationError records a tagger failure for one record.
type ClassificationError struct {
	Index int    // position in the loaded corpus
	File  string // record identifier
	Err   error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify record %d (%s): %v", e.Index, e.File, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}
