// Package maildir loads records from a directory tree with one raw
// message per file, like the Enron maildir distribution. The identifier
// of each record is its slash-separated path relative to the root.
package maildir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/crimson-sun/mailsift/internal/model"
	"github.com/crimson-sun/mailsift/internal/source"
)

func init() {
	source.Register("maildir", func() source.Source {
		return New()
	})
}

// Source implements source.Source for directory trees.
type Source struct{}

// New creates a maildir source.
func New() *Source {
	return &Source{}
}

// Load walks cfg.Path in lexical order. Hidden files and directories are
// skipped.
func (s *Source) Load(ctx context.Context, cfg source.Config) ([]model.RawRecord, error) {
	return Read(ctx, os.DirFS(cfg.Path), cfg.Limit)
}

// errLimit stops the walk once enough records are loaded.
var errLimit = errors.New("limit reached")

// Read loads messages from fsys.
func Read(ctx context.Context, fsys fs.FS, limit int) ([]model.RawRecord, error) {
	var out []model.RawRecord
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		out = append(out, model.RawRecord{File: filepath.ToSlash(path), Message: string(data)})
		if limit > 0 && len(out) >= limit {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, fmt.Errorf("maildir: %w", err)
	}
	return out, nil
}
