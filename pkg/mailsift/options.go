package mailsift

import (
	"github.com/crimson-sun/mailsift/internal/engine/fields"
)

type options struct {
	sentinel         string // "" = split at the first blank line
	headerFallback   bool
	fields           []string
	projection       bool
	singleBlankLines bool
	normalizeHeaders bool
	decodeWords      bool
	modelDir         string
	minScore         float64
}

// Option configures a Parser.
type Option func(*options)

// WithSentinel splits header from body after the first line starting with
// key (e.g. "X-FileName"). Without it, the first blank line splits.
func WithSentinel(key string) Option {
	return func(o *options) {
		o.sentinel = key
	}
}

// WithHeaderFallback treats a message without the sentinel line as all
// header. By default such a message is all body.
func WithHeaderFallback() Option {
	return func(o *options) {
		o.headerFallback = true
	}
}

// WithFields sets the header keys to extract. Default: Subject, X-Folder.
func WithFields(keys ...string) Option {
	return func(o *options) {
		o.fields = keys
	}
}

// WithEnronProjection extracts the 15 standard Enron headers and renders
// Record.Headers as "Key: value | Key: value".
func WithEnronProjection() Option {
	return func(o *options) {
		o.fields = fields.EnronHeaders
		o.projection = true
	}
}

// WithProjection renders Record.Headers as a projection of the selected
// fields instead of the verbatim block.
func WithProjection() Option {
	return func(o *options) {
		o.projection = true
	}
}

// WithSingleBlankLines collapses long blank-line runs to one newline
// instead of a single empty line.
func WithSingleBlankLines() Option {
	return func(o *options) {
		o.singleBlankLines = true
	}
}

// WithNormalizedHeaders also runs headers and field values through the
// text normalizer.
func WithNormalizedHeaders() Option {
	return func(o *options) {
		o.normalizeHeaders = true
	}
}

// WithDecodedWords decodes RFC 2047 encoded words in field values.
func WithDecodedWords() Option {
	return func(o *options) {
		o.decodeWords = true
	}
}

// WithModelDir enables entity tagging with the ONNX model in dir.
// Expects: model.onnx, vocab.txt, labels.txt, libonnxruntime.so.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithMinScore drops tagged entities scoring below s. Default: 0.
func WithMinScore(s float64) Option {
	return func(o *options) {
		o.minScore = s
	}
}

func defaultOptions() options {
	return options{
		fields: []string{"Subject", "X-Folder"},
	}
}
