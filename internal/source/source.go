package source

import (
	"context"

	"github.com/crimson-sun/mailsift/internal/model"
)

// Source loads a corpus of raw email records.
type Source interface {
	// Load reads every record the source holds, in a stable order. An error
	// means the corpus is unavailable and nothing should be processed.
	Load(ctx context.Context, cfg Config) ([]model.RawRecord, error)
}

// Config holds provider-specific settings.
type Config struct {
	Provider string
	Path     string

	// FileColumn and MessageColumn name the CSV columns holding the record
	// identifier and the raw message. Defaults: "file" and "message".
	FileColumn    string
	MessageColumn string

	// Limit caps the number of records loaded. Zero loads everything.
	Limit int
}

// Columns returns the identifier and message column names with defaults
// applied.
func (c Config) Columns() (string, string) {
	file, msg := c.FileColumn, c.MessageColumn
	if file == "" {
		file = "file"
	}
	if msg == "" {
		msg = "message"
	}
	return file, msg
}
