package onnx

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// readLines returns the lines of a text file; line number is the ID.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}
	return lines, nil
}

// vocab holds a WordPiece vocabulary loaded from a vocab.txt file.
type vocab struct {
	tokenToID map[string]int64
	size      int

	unkID int64
	clsID int64
	sepID int64
}

func loadVocab(path string) (*vocab, error) {
	tokens, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	return newVocab(tokens)
}

func newVocab(tokens []string) (*vocab, error) {
	v := &vocab{tokenToID: make(map[string]int64, len(tokens)), size: len(tokens)}
	for i, tok := range tokens {
		if _, dup := v.tokenToID[tok]; !dup {
			v.tokenToID[tok] = int64(i)
		}
	}

	specials := []struct {
		name string
		dest *int64
	}{
		{"[UNK]", &v.unkID},
		{"[CLS]", &v.clsID},
		{"[SEP]", &v.sepID},
	}
	for _, s := range specials {
		id, ok := v.tokenToID[s.name]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", s.name)
		}
		*s.dest = id
	}
	return v, nil
}

func (v *vocab) lookup(token string) int64 {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return v.unkID
}

func (v *vocab) contains(token string) bool {
	_, ok := v.tokenToID[token]
	return ok
}

// loadLabels reads labels.txt (one id2label entry per line, e.g. "B-EMAIL").
func loadLabels(path string) ([]string, error) {
	labels, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	for i, l := range labels {
		labels[i] = strings.TrimSpace(l)
	}
	return labels, nil
}
