package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/mailsift/internal/engine/filter"
	"github.com/crimson-sun/mailsift/internal/engine/tagger"
	"github.com/crimson-sun/mailsift/internal/model"
	"github.com/crimson-sun/mailsift/internal/output"
	"github.com/crimson-sun/mailsift/internal/source"
)

// DefaultProgressEvery is the progress interval, in records.
const DefaultProgressEvery = 100

// Processor turns one raw record into a normalized record. *engine.Engine
// implements it.
type Processor interface {
	Process(raw model.RawRecord) model.NormalizedRecord
}

// ProgressFunc is called with the number of completed records and the
// total. Calls are serialized.
type ProgressFunc func(done, total int)

// Report summarizes a run.
type Report struct {
	Loaded                 int // records read from the source
	Written                int // records delivered to the output after filtering
	Filtered               int // records removed by filters
	Tagged                 int // records passed to the tagger
	ClassificationFailures int
	Failures               []*ClassificationError // ordered by index
	Duration               time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTagger runs t over each record's tag field (Body by default) and
// stores the result in NormalizedRecord.Entities.
func WithTagger(t tagger.Tagger) Option {
	return func(p *Pipeline) { p.tagger = t }
}

// WithTagField selects the record value passed to the tagger.
func WithTagField(name string) Option {
	return func(p *Pipeline) { p.tagField = name }
}

// WithFilters applies f to the normalized records before writing.
func WithFilters(f filter.Filter) Option {
	return func(p *Pipeline) { p.filter = f }
}

// WithWorkers sets the number of goroutines processing records.
// Default: 1.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProgress calls fn every `every` completed records. The default logs
// "processed N of M records" every 100 records.
func WithProgress(every int, fn ProgressFunc) Option {
	return func(p *Pipeline) {
		p.progressEvery = every
		if fn != nil {
			p.progress = fn
		}
	}
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Pipeline) { p.log = l }
}

// Pipeline connects a source, a processor and an output.
type Pipeline struct {
	source    source.Source
	processor Processor
	output    output.Output

	tagger        tagger.Tagger
	tagField      string
	filter        filter.Filter
	workers       int
	progressEvery int
	progress      ProgressFunc
	log           *zap.SugaredLogger
}

// New creates a Pipeline from the given components.
func New(src source.Source, proc Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:        src,
		processor:     proc,
		output:        out,
		tagField:      "Body",
		workers:       1,
		progressEvery: DefaultProgressEvery,
		log:           zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.progress == nil {
		p.progress = func(done, total int) {
			p.log.Infof("processed %d of %d records", done, total)
		}
	}
	return p
}

// Run loads the corpus, processes it and writes every surviving record.
// Source failures abort before anything is written. Write failures do not
// stop the run; they are joined and returned wrapped in ErrSinkUnavailable.
func (p *Pipeline) Run(ctx context.Context, cfg source.Config) (Report, error) {
	start := time.Now()

	raws, err := p.source.Load(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, describe(cfg), err)
	}
	p.log.Infow("loaded records", "count", len(raws), "provider", cfg.Provider, "path", cfg.Path)

	recs, report := p.Process(ctx, raws)
	if err := ctx.Err(); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	var errs []error
	for _, rec := range recs {
		if err := p.output.Write(ctx, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		report.Written++
	}
	report.Duration = time.Since(start)

	if len(errs) > 0 {
		return report, fmt.Errorf("%w: %d of %d writes failed: %w", ErrSinkUnavailable, len(errs), len(recs), errors.Join(errs...))
	}
	if p.tagger != nil && report.Tagged > 0 && report.ClassificationFailures == report.Tagged {
		return report, fmt.Errorf("%w: %w", ErrAllClassificationsFailed, report.Failures[0])
	}
	return report, nil
}

// Process normalizes raws, tags them when a tagger is set, and applies
// the filters. Per-record filter stages run before tagging, so dropped
// records are never sent to the tagger; grouping stages run on the full
// set afterwards. Output order follows input order. If ctx is cancelled,
// records not yet started are left zero-valued.
func (p *Pipeline) Process(ctx context.Context, raws []model.RawRecord) ([]model.NormalizedRecord, Report) {
	report := Report{Loaded: len(raws)}
	recs := make([]model.NormalizedRecord, len(raws))
	dropped := make([]bool, len(raws))
	pre, rest := filter.Split(p.filter)

	var (
		mu       sync.Mutex
		done     int
		tagged   int
		failures []*ClassificationError
	)
	complete := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if p.progressEvery > 0 && done%p.progressEvery == 0 {
			p.progress(done, len(raws))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < p.workers; w++ {
		g.Go(func() error {
			for i := w; i < len(raws); i += p.workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec := p.processor.Process(raws[i])
				if pre != nil && !pre(rec) {
					dropped[i] = true
					complete()
					continue
				}
				if p.tagger != nil {
					cerr := p.tag(gctx, i, &rec)
					mu.Lock()
					tagged++
					if cerr != nil {
						failures = append(failures, cerr)
					}
					mu.Unlock()
				}
				recs[i] = rec
				complete()
			}
			return nil
		})
	}
	_ = g.Wait() // only cancellation; callers check ctx

	sort.Slice(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })
	report.Failures = failures
	report.ClassificationFailures = len(failures)
	report.Tagged = tagged

	if p.filter == nil {
		return recs, report
	}
	kept := make([]model.NormalizedRecord, 0, len(recs))
	for i, rec := range recs {
		if !dropped[i] {
			kept = append(kept, rec)
		}
	}
	if rest != nil {
		kept = rest.Apply(kept)
	}
	report.Filtered = len(recs) - len(kept)
	return kept, report
}

// tag classifies one record in place. A failure leaves an empty entity
// list and is logged with the record index.
func (p *Pipeline) tag(ctx context.Context, i int, rec *model.NormalizedRecord) *ClassificationError {
	entities, err := p.tagger.Tag(ctx, rec.Value(p.tagField))
	if err != nil {
		p.log.Errorw("classification failed", "index", i, "file", rec.File, "error", err)
		rec.Entities = []model.Entity{}
		return &ClassificationError{Index: i, File: rec.File, Err: err}
	}
	if entities == nil {
		entities = []model.Entity{}
	}
	rec.Entities = entities
	return nil
}

// Close shuts down the output and the tagger.
func (p *Pipeline) Close() error {
	var errs []error
	if err := p.output.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrSinkUnavailable, err))
	}
	if p.tagger != nil {
		if err := p.tagger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func describe(cfg source.Config) string {
	if cfg.Path == "" {
		return cfg.Provider
	}
	return cfg.Provider + " " + cfg.Path
}
