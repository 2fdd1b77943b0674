package header

import "strings"

// Block is the ordered line view of a header block. Keys may repeat in
// raw data; lookups return the first occurrence.
type Block struct {
	lines []string
}

// Parse splits a header block into lines. Folded continuation lines are
// kept as separate raw lines.
func Parse(text string) Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return Block{}
	}
	return Block{lines: strings.Split(text, "\n")}
}

// Lines returns the raw header lines in order.
func (b Block) Lines() []string {
	return b.lines
}

// Get returns the trimmed value of the first line whose key matches key
// case-insensitively, and whether such a line exists.
func (b Block) Get(key string) (string, bool) {
	for _, line := range b.lines {
		if v, ok := matchKey(line, key); ok {
			return v, true
		}
	}
	return "", false
}

// String reassembles the block.
func (b Block) String() string {
	return strings.Join(b.lines, "\n")
}

// matchKey reports whether line is "<key>:<value>" with key compared
// case-insensitively, returning the trimmed value.
func matchKey(line, key string) (string, bool) {
	if key == "" || len(line) <= len(key) || line[len(key)] != ':' {
		return "", false
	}
	if !strings.EqualFold(line[:len(key)], key) {
		return "", false
	}
	return strings.TrimSpace(line[len(key)+1:]), true
}
