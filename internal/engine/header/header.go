package header

import (
	"regexp"
	"strings"
)

// Strategy selects how the header block is separated from the body.
type Strategy int

const (
	BlankLine Strategy = iota // split at the first empty line
	Sentinel                  // split after the first line starting with the sentinel key
)

// Fallback decides where the text goes when the sentinel line is missing.
type Fallback int

const (
	FallbackBody   Fallback = iota // whole text is the body, header empty
	FallbackHeader                 // whole text is the header, body empty
)

// DefaultSentinel is the last header line of every message in the Enron corpus.
const DefaultSentinel = "X-FileName"

// Config controls an Extractor.
type Config struct {
	Strategy Strategy
	Sentinel string // defaults to DefaultSentinel
	Fallback Fallback
}

// Extractor splits raw messages into a header block and a body.
// It is immutable after construction and safe for concurrent use.
type Extractor struct {
	strategy Strategy
	fallback Fallback
	sentinel *regexp.Regexp
}

// New creates an Extractor from cfg.
func New(cfg Config) *Extractor {
	key := cfg.Sentinel
	if key == "" {
		key = DefaultSentinel
	}
	return &Extractor{
		strategy: cfg.Strategy,
		fallback: cfg.Fallback,
		sentinel: regexp.MustCompile(`(?im)^` + regexp.QuoteMeta(key) + `:.*(?:\n|$)`),
	}
}

// Split returns the header block and the body of raw. It never fails:
// malformed input yields best-effort strings according to the fallback.
func (e *Extractor) Split(raw string) (header, body string) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	if e.strategy == BlankLine {
		header, body, _ = strings.Cut(text, "\n\n")
		return header, body
	}

	loc := e.sentinel.FindStringIndex(text)
	if loc == nil {
		if e.fallback == FallbackHeader {
			return text, ""
		}
		return "", strings.TrimSpace(text)
	}
	return strings.TrimRight(text[:loc[1]], "\n"), strings.TrimSpace(text[loc[1]:])
}

// ParseStrategy maps "blankline" / "sentinel" to a Strategy. Unknown values
// default to BlankLine.
func ParseStrategy(s string) Strategy {
	if strings.EqualFold(s, "sentinel") {
		return Sentinel
	}
	return BlankLine
}

// ParseFallback maps "body" / "header" to a Fallback. Unknown values default
// to FallbackBody.
func ParseFallback(s string) Fallback {
	if strings.EqualFold(s, "header") {
		return FallbackHeader
	}
	return FallbackBody
}
