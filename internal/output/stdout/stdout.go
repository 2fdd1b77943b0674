package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/mailsift/internal/model"
	"github.com/crimson-sun/mailsift/internal/output"
)

// Output writes one JSON object per record to stdout (NDJSON).
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	layout output.Layout
	pretty bool
}

// New creates a new stdout Output laid out by layout, with optional
// pretty-printed JSON.
func New(layout output.Layout, pretty bool) *Output {
	return &Output{w: os.Stdout, layout: layout, pretty: pretty}
}

func (o *Output) Write(_ context.Context, rec model.NormalizedRecord) error {
	data, err := o.layout.JSON(rec)
	if err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	if o.pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
		data = buf.Bytes()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
