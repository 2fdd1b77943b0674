package engine

import (
	"strings"

	"github.com/crimson-sun/mailsift/internal/engine/fields"
	"github.com/crimson-sun/mailsift/internal/engine/header"
	"github.com/crimson-sun/mailsift/internal/engine/subject"
	"github.com/crimson-sun/mailsift/internal/engine/textnorm"
	"github.com/crimson-sun/mailsift/internal/model"
)

// HeaderMode controls what ends up in NormalizedRecord.Headers.
type HeaderMode int

const (
	Verbatim   HeaderMode = iota // the raw header block
	Projection                   // "Key: value | Key: value" over the selected keys
)

// ParseHeaderMode maps "verbatim" / "projection" to a HeaderMode.
func ParseHeaderMode(s string) HeaderMode {
	if s == "projection" {
		return Projection
	}
	return Verbatim
}

// Config bundles the per-record parsing settings.
type Config struct {
	Header           header.Config
	Fields           []string // keys to select; "Subject" also yields the thread key
	HeaderMode       HeaderMode
	BlankLines       textnorm.BlankLines
	NormalizeHeaders bool // also run headers and field values through the text normalizer
	DecodeWords      bool // decode RFC 2047 encoded words in field values
}

// Engine orchestrates the extract → select → subject → normalize pipeline
// for a single record. It holds no mutable state.
type Engine struct {
	extractor  *header.Extractor
	selector   *fields.Selector
	normalizer *textnorm.Normalizer
	mode       HeaderMode
	normHeader bool
	hasSubject bool
}

// New creates an Engine from cfg.
func New(cfg Config) *Engine {
	var opts []fields.Option
	if cfg.DecodeWords {
		opts = append(opts, fields.WithDecodeWords())
	}
	sel := fields.New(cfg.Fields, opts...)
	return &Engine{
		extractor:  header.New(cfg.Header),
		selector:   sel,
		normalizer: textnorm.New(cfg.BlankLines),
		mode:       cfg.HeaderMode,
		normHeader: cfg.NormalizeHeaders,
		hasSubject: hasKey(cfg.Fields, "Subject"),
	}
}

// Keys returns the selected header keys in order.
func (e *Engine) Keys() []string {
	return e.selector.Keys()
}

// Process parses and normalizes one raw record. It never fails; malformed
// messages produce empty strings rather than errors.
func (e *Engine) Process(raw model.RawRecord) model.NormalizedRecord {
	hdr, body := e.extractor.Split(raw.Message)
	selected := e.selector.Select(hdr)

	if e.normHeader {
		for i := range selected {
			selected[i].Value = e.normalizer.Normalize(selected[i].Value)
		}
	}

	headers := hdr
	if e.mode == Projection {
		headers = selected.Project()
	}
	if e.normHeader {
		headers = e.normalizer.Normalize(headers)
	}

	rec := model.NormalizedRecord{
		File:    raw.File,
		Headers: headers,
		Fields:  selected,
		Body:    e.normalizer.Normalize(body),
	}
	if e.hasSubject {
		rec.Subject = subject.Normalize(selected.Get("Subject"))
	}
	return rec
}

// ProcessBatch maps Process over raws, one output per input, in order.
func (e *Engine) ProcessBatch(raws []model.RawRecord) []model.NormalizedRecord {
	out := make([]model.NormalizedRecord, len(raws))
	for i, raw := range raws {
		out[i] = e.Process(raw)
	}
	return out
}

func hasKey(keys []string, key string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
