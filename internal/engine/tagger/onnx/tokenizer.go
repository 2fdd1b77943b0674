package onnx

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxWordRunes = 100

// piece is one WordPiece token with its byte span in the original text.
type piece struct {
	id    int64
	start int
	end   int
}

// windows holds tokenized text split into model-sized rows, ready for
// ONNX inference. ID slices are flat: [batchSize * seqLen].
type windows struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	batchSize     int64
	seqLen        int64
	pieces        [][]piece // per row, excluding [CLS]/[SEP]
}

// tokenizer performs BERT-style WordPiece tokenization and keeps the
// source offsets of every piece.
type tokenizer struct {
	vocab     *vocab
	lowercase bool
}

// basicSpans applies BERT's BasicTokenizer splitting rules and returns the
// byte spans of the resulting words: whitespace separates, punctuation and
// CJK ideographs stand alone, control characters are dropped.
func basicSpans(text string) [][2]int {
	var spans [][2]int
	start := -1
	flush := func(end int) {
		if start >= 0 {
			spans = append(spans, [2]int{start, end})
			start = -1
		}
	}
	for i, r := range text {
		switch {
		case r == 0 || r == utf8.RuneError || isControl(r) || isWhitespace(r):
			flush(i)
		case isPunctuation(r) || isChineseChar(r):
			flush(i)
			spans = append(spans, [2]int{i, i + utf8.RuneLen(r)})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))
	return spans
}

// tokenize converts text into WordPiece pieces without special tokens.
func (t *tokenizer) tokenize(text string) []piece {
	var out []piece
	for _, sp := range basicSpans(text) {
		word := text[sp[0]:sp[1]]
		normalized := word
		if t.lowercase {
			normalized = stripAccents(strings.ToLower(word))
		}
		out = append(out, t.wordpiece(word, normalized, sp[0])...)
	}
	return out
}

// wordpiece decomposes one basic word greedily, longest match first.
// When normalization kept the rune count, sub-pieces get exact spans;
// otherwise every sub-piece spans the whole word.
func (t *tokenizer) wordpiece(word, normalized string, offset int) []piece {
	whole := piece{id: t.vocab.unkID, start: offset, end: offset + len(word)}
	runes := []rune(normalized)
	if len(runes) > maxWordRunes {
		return []piece{whole}
	}

	// Byte offsets of each rune boundary in the original word.
	var bounds []int
	if utf8.RuneCountInString(word) == len(runes) {
		for i := range word {
			bounds = append(bounds, offset+i)
		}
		bounds = append(bounds, offset+len(word))
	}

	var pieces []piece
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if t.vocab.contains(sub) {
				p := piece{id: t.vocab.lookup(sub), start: whole.start, end: whole.end}
				if bounds != nil {
					p.start, p.end = bounds[start], bounds[end]
				}
				pieces = append(pieces, p)
				found = true
				break
			}
			end--
		}
		if !found {
			return []piece{whole}
		}
		start = end
	}
	return pieces
}

// encode tokenizes text and splits the pieces into rows of at most
// maxSeqLen tokens including [CLS] and [SEP], padded to the longest row.
func (t *tokenizer) encode(text string, maxSeqLen int) windows {
	all := t.tokenize(text)
	if len(all) == 0 {
		return windows{}
	}

	per := maxSeqLen - 2
	var rows [][]piece
	for len(all) > per {
		rows = append(rows, all[:per])
		all = all[per:]
	}
	rows = append(rows, all)

	seqLen := int64(len(rows[0]) + 2)
	batchSize := int64(len(rows))
	total := batchSize * seqLen

	w := windows{
		inputIDs:      make([]int64, total),
		attentionMask: make([]int64, total),
		tokenTypeIDs:  make([]int64, total), // all zeros
		batchSize:     batchSize,
		seqLen:        seqLen,
		pieces:        rows,
	}
	for r, row := range rows {
		off := int64(r) * seqLen
		w.inputIDs[off] = t.vocab.clsID
		w.attentionMask[off] = 1
		for i, p := range row {
			w.inputIDs[off+int64(i)+1] = p.id
			w.attentionMask[off+int64(i)+1] = 1
		}
		w.inputIDs[off+int64(len(row))+1] = t.vocab.sepID
		w.attentionMask[off+int64(len(row))+1] = 1
		// Remaining positions stay 0 (padID=0, mask=0).
	}
	return w
}

// stripAccents removes combining diacritical marks after NFD normalization.
func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Character classification helpers — these match BERT's Python implementation.

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunctuation(r rune) bool {
	// ASCII 33-47, 58-64, 91-96, 123-126 count as punctuation, plus the
	// Unicode punctuation categories.
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isChineseChar(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
