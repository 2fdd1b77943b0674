// Package onnx runs a local BERT-style token classification model (for
// example a PII NER model exported to ONNX) through ONNX Runtime.
//
// The model directory must contain model.onnx, vocab.txt, labels.txt (the
// model's id2label, one label per line) and the ONNX Runtime shared
// library libonnxruntime.so.
package onnx

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/mailsift/internal/model"
)

const (
	defaultMaxSeqLen = 512
	defaultThreads   = 4
)

// Option configures a Tagger.
type Option func(*options)

type options struct {
	minScore  float64
	maxSeqLen int
	cased     bool
	threads   int
	libPath   string
}

// WithMinScore drops entities whose mean token score is below s.
func WithMinScore(s float64) Option {
	return func(o *options) { o.minScore = s }
}

// WithMaxSeqLen sets the model's sequence length including [CLS]/[SEP].
// Longer texts are split into consecutive windows. Default: 512.
func WithMaxSeqLen(n int) Option {
	return func(o *options) { o.maxSeqLen = n }
}

// WithCased disables lowercasing and accent stripping, for cased vocabularies.
func WithCased() Option {
	return func(o *options) { o.cased = true }
}

// WithThreads sets ONNX Runtime intra-op threads. Default: 4.
func WithThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// WithLibraryPath overrides the ONNX Runtime shared library location.
func WithLibraryPath(p string) Option {
	return func(o *options) { o.libPath = p }
}

// Tagger implements tagger.Tagger with a local ONNX model.
type Tagger struct {
	mu        sync.Mutex // serializes session runs
	session   *session
	tok       *tokenizer
	labels    []string
	minScore  float64
	maxSeqLen int
}

// New loads labels, vocabulary and model from modelDir.
func New(modelDir string, opts ...Option) (*Tagger, error) {
	o, err := resolveOptions(modelDir, opts)
	if err != nil {
		return nil, err
	}

	labels, err := loadLabels(filepath.Join(modelDir, "labels.txt"))
	if err != nil {
		return nil, fmt.Errorf("tagger: %w", err)
	}
	v, err := loadVocab(filepath.Join(modelDir, "vocab.txt"))
	if err != nil {
		return nil, fmt.Errorf("tagger: %w", err)
	}

	sess, err := newSession(filepath.Join(modelDir, "model.onnx"), o.libPath, o.threads)
	if err != nil {
		return nil, fmt.Errorf("tagger: %w", err)
	}
	if sess.numLabels <= 0 {
		sess.numLabels = int64(len(labels))
	}
	if int(sess.numLabels) != len(labels) {
		sess.close()
		return nil, fmt.Errorf("tagger: model has %d labels, labels.txt has %d", sess.numLabels, len(labels))
	}

	return &Tagger{
		session:   sess,
		tok:       &tokenizer{vocab: v, lowercase: !o.cased},
		labels:    labels,
		minScore:  o.minScore,
		maxSeqLen: o.maxSeqLen,
	}, nil
}

func resolveOptions(modelDir string, opts []Option) (options, error) {
	o := options{maxSeqLen: defaultMaxSeqLen, threads: defaultThreads}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxSeqLen < 3 {
		return o, fmt.Errorf("tagger: max sequence length %d too small", o.maxSeqLen)
	}
	if o.threads < 1 {
		o.threads = defaultThreads
	}
	if o.libPath == "" {
		o.libPath = filepath.Join(modelDir, "libonnxruntime.so")
	}
	return o, nil
}

// Tag returns the entities found in text, with byte offsets into text.
func (t *Tagger) Tag(ctx context.Context, text string) ([]model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := t.tok.encode(text, t.maxSeqLen)
	if w.batchSize == 0 {
		return []model.Entity{}, nil
	}

	t.mu.Lock()
	logits, err := t.session.infer(w)
	t.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("tagger: %w", err)
	}

	entities := group(text, predict(w, logits, t.labels), t.minScore)
	if entities == nil {
		entities = []model.Entity{}
	}
	return entities, nil
}

// Close releases ONNX Runtime resources.
func (t *Tagger) Close() error {
	if t.session != nil {
		return t.session.close()
	}
	return nil
}
