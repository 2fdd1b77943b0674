package textnorm

import (
	"regexp"
	"strings"
)

// BlankLines selects the cap applied to runs of blank lines.
type BlankLines int

const (
	DoubleNewline BlankLines = iota // 3+ line breaks become one paragraph break ("\n\n")
	SingleNewline                   // 3+ line breaks become a single "\n"
)

var (
	lineEnds = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	spaceRun = regexp.MustCompile(`[ \t]+`)
	dotRun   = regexp.MustCompile(`\.{2,}`)
	// A line break followed by two or more (possibly whitespace-only) lines.
	blankRun = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// Normalizer collapses whitespace, ellipses and blank lines in free text.
// Output is a fixed point: Normalize(Normalize(s)) == Normalize(s).
type Normalizer struct {
	blank string
}

// New creates a Normalizer with the given blank-line cap.
func New(policy BlankLines) *Normalizer {
	blank := "\n\n"
	if policy == SingleNewline {
		blank = "\n"
	}
	return &Normalizer{blank: blank}
}

// Normalize applies, in order: CRLF and lone CR to LF, collapse space/tab
// runs to one space, trim, collapse dot runs to one dot, cap blank-line
// runs.
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = lineEnds.Replace(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = dotRun.ReplaceAllString(s, ".")
	return blankRun.ReplaceAllString(s, n.blank)
}

// ParseBlankLines maps "single" / "double" to a BlankLines policy.
// Unknown values default to DoubleNewline.
func ParseBlankLines(s string) BlankLines {
	if strings.EqualFold(s, "single") {
		return SingleNewline
	}
	return DoubleNewline
}
