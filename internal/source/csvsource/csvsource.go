// Package csvsource loads records from a CSV export with one row per
// message, such as the Enron emails.csv (columns "file" and "message").
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crimson-sun/mailsift/internal/model"
	"github.com/crimson-sun/mailsift/internal/source"
)

func init() {
	source.Register("csv", func() source.Source {
		return New()
	})
}

// Source implements source.Source for CSV files.
type Source struct{}

// New creates a CSV source.
func New() *Source {
	return &Source{}
}

// Load reads cfg.Path. The first row is the header; identifier and message
// columns are located by name, case-insensitively. Cells missing from
// short rows become "".
func (s *Source) Load(ctx context.Context, cfg source.Config) ([]model.RawRecord, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	defer f.Close()
	return Read(ctx, f, cfg)
}

// Read parses CSV from r using the column and limit settings of cfg.
func Read(ctx context.Context, r io.Reader, cfg source.Config) ([]model.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: empty input")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	fileCol, msgCol := cfg.Columns()
	fileIdx, msgIdx := index(head, fileCol), index(head, msgCol)
	if msgIdx < 0 {
		return nil, fmt.Errorf("csv: missing column %q", msgCol)
	}

	var out []model.RawRecord
	for cfg.Limit <= 0 || len(out) < cfg.Limit {
		if len(out)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: row %d: %w", len(out)+1, err)
		}
		out = append(out, model.RawRecord{
			File:    cell(row, fileIdx),
			Message: cell(row, msgIdx),
		})
	}
	return out, nil
}

func index(head []string, name string) int {
	for i, h := range head {
		// Excel exports prefix the first header with a BOM.
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(h), "\ufeff"), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
