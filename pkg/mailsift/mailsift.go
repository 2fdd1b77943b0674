package mailsift

import (
	"context"
	"fmt"

	"github.com/crimson-sun/mailsift/internal/engine"
	"github.com/crimson-sun/mailsift/internal/engine/header"
	"github.com/crimson-sun/mailsift/internal/engine/subject"
	"github.com/crimson-sun/mailsift/internal/engine/tagger/onnx"
	"github.com/crimson-sun/mailsift/internal/engine/textnorm"
	"github.com/crimson-sun/mailsift/internal/model"
)

// Parser parses raw email messages. Safe for concurrent use.
type Parser struct {
	engine *engine.Engine
	tagger *onnx.Tagger // nil unless WithModelDir was given
}

// New creates a Parser. Loading a model (WithModelDir) is expensive;
// create once and reuse.
func New(opts ...Option) (*Parser, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg := engine.Config{Fields: o.fields}
	if o.sentinel != "" {
		cfg.Header = header.Config{Strategy: header.Sentinel, Sentinel: o.sentinel}
		if o.headerFallback {
			cfg.Header.Fallback = header.FallbackHeader
		}
	}
	if o.projection {
		cfg.HeaderMode = engine.Projection
	}
	if o.singleBlankLines {
		cfg.BlankLines = textnorm.SingleNewline
	}
	cfg.NormalizeHeaders = o.normalizeHeaders
	cfg.DecodeWords = o.decodeWords

	p := &Parser{engine: engine.New(cfg)}
	if o.modelDir != "" {
		tg, err := onnx.New(o.modelDir, onnx.WithMinScore(o.minScore))
		if err != nil {
			return nil, fmt.Errorf("mailsift: %w", err)
		}
		p.tagger = tg
	}
	return p, nil
}

// Parse parses one raw message. It never fails.
func (p *Parser) Parse(file, message string) Record {
	return recordFromModel(p.engine.Process(model.RawRecord{File: file, Message: message}))
}

// ParseBatch parses several messages, one Record per input, in order.
func (p *Parser) ParseBatch(files, messages []string) []Record {
	raws := make([]model.RawRecord, len(messages))
	for i, m := range messages {
		raws[i].Message = m
		if i < len(files) {
			raws[i].File = files[i]
		}
	}
	recs := p.engine.ProcessBatch(raws)
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = recordFromModel(r)
	}
	return out
}

// ParseAndTag parses message and tags entities in its body. Without a
// model it behaves like Parse. A tagging failure is returned along with
// the parsed record.
func (p *Parser) ParseAndTag(ctx context.Context, file, message string) (Record, error) {
	rec := p.Parse(file, message)
	if p.tagger == nil {
		return rec, nil
	}
	entities, err := p.tagger.Tag(ctx, rec.Body)
	if err != nil {
		rec.Entities = []Entity{}
		return rec, fmt.Errorf("mailsift: %w", err)
	}
	rec.Entities = entitiesFromModel(entities)
	return rec, nil
}

// Close releases model resources, if any.
func (p *Parser) Close() error {
	if p.tagger != nil {
		return p.tagger.Close()
	}
	return nil
}

// NormalizeSubject strips leading Re:/Fw:/Fwd: prefixes, repeatedly.
func NormalizeSubject(s string) string {
	return subject.Normalize(s)
}

var defaultNormalizer = textnorm.New(textnorm.DoubleNewline)

// NormalizeText collapses space runs, dot runs and long blank-line runs,
// and trims. Applying it twice changes nothing.
func NormalizeText(s string) string {
	return defaultNormalizer.Normalize(s)
}

func recordFromModel(r model.NormalizedRecord) Record {
	fs := make([]Field, len(r.Fields))
	for i, f := range r.Fields {
		fs[i] = Field{Key: f.Key, Value: f.Value}
	}
	return Record{
		File:     r.File,
		Headers:  r.Headers,
		Fields:   fs,
		Subject:  r.Subject,
		Body:     r.Body,
		Entities: entitiesFromModel(r.Entities),
	}
}

func entitiesFromModel(es []model.Entity) []Entity {
	if es == nil {
		return nil
	}
	out := make([]Entity, len(es))
	for i, e := range es {
		out[i] = Entity(e)
	}
	return out
}
