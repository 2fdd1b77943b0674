package onnx

import (
	"math"
	"strings"

	"github.com/crimson-sun/mailsift/internal/model"
)

// tokenLabel is the argmax prediction for one piece.
type tokenLabel struct {
	label string
	score float64
	start int
	end   int
}

// predict applies softmax over each real token's logits and keeps the
// best label. logits is [batch * seqLen * numLabels] for the rows in w.
func predict(w windows, logits []float32, labels []string) []tokenLabel {
	n := int64(len(labels))
	var out []tokenLabel
	for r, row := range w.pieces {
		for i, p := range row {
			// +1 skips [CLS].
			off := (int64(r)*w.seqLen + int64(i) + 1) * n
			best, score := softmaxArgmax(logits[off : off+n])
			out = append(out, tokenLabel{label: labels[best], score: score, start: p.start, end: p.end})
		}
	}
	return out
}

func softmaxArgmax(logits []float32) (int, float64) {
	best := 0
	maxLogit := float64(logits[0])
	for i, l := range logits {
		if float64(l) > maxLogit {
			best, maxLogit = i, float64(l)
		}
	}
	var sum float64
	for _, l := range logits {
		sum += math.Exp(float64(l) - maxLogit)
	}
	return best, 1 / sum
}

// splitTag separates "B-EMAIL" into ("B", "EMAIL"). Labels without a
// B-/I- prefix are treated as inside tags.
func splitTag(label string) (string, string) {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[:1], label[2:]
	}
	return "I", label
}

// group merges adjacent tokens into entities: a token continues the
// current entity when it has the same tag and is not a B- token. Groups
// labelled "O" and groups scoring below minScore are dropped.
func group(text string, tokens []tokenLabel, minScore float64) []model.Entity {
	var (
		out []model.Entity
		cur []tokenLabel
		tag string
	)
	emit := func() {
		if len(cur) == 0 || tag == "O" {
			cur = nil
			return
		}
		var sum float64
		for _, t := range cur {
			sum += t.score
		}
		e := model.Entity{
			Group: tag,
			Score: sum / float64(len(cur)),
			Start: cur[0].start,
			End:   cur[len(cur)-1].end,
		}
		e.Word = text[e.Start:e.End]
		if e.Score >= minScore {
			out = append(out, e)
		}
		cur = nil
	}

	for _, t := range tokens {
		bi, tt := splitTag(t.label)
		if len(cur) > 0 && tt == tag && bi != "B" {
			cur = append(cur, t)
			continue
		}
		emit()
		cur = []tokenLabel{t}
		tag = tt
	}
	emit()
	return out
}
