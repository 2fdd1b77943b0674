package filter

import (
	"strings"

	"github.com/crimson-sun/mailsift/internal/model"
)

// DefaultMinGroupSize keeps subject groups of four or more records.
const DefaultMinGroupSize = 3

// Filter is a pure stage over an emitted row set. Implementations never
// modify the input slice or its records.
type Filter interface {
	Apply(records []model.NormalizedRecord) []model.NormalizedRecord
}

// Func adapts a plain function to Filter.
type Func func([]model.NormalizedRecord) []model.NormalizedRecord

func (f Func) Apply(records []model.NormalizedRecord) []model.NormalizedRecord {
	return f(records)
}

// Predicate is a stage that decides on each record alone. Predicates can
// run before the expensive per-record work (tagging) without changing the
// result.
type Predicate func(model.NormalizedRecord) bool

func (p Predicate) Apply(records []model.NormalizedRecord) []model.NormalizedRecord {
	return keep(records, p)
}

// PathContains keeps records whose File contains substr, ignoring case.
func PathContains(substr string) Predicate {
	needle := strings.ToLower(substr)
	return func(r model.NormalizedRecord) bool {
		return strings.Contains(strings.ToLower(r.File), needle)
	}
}

// NonEmpty keeps records whose field value is not empty.
func NonEmpty(field string) Predicate {
	return func(r model.NormalizedRecord) bool {
		return r.Value(field) != ""
	}
}

// MinGroupSize groups records by field value and keeps the records of
// groups with more than threshold members. Record order is preserved.
func MinGroupSize(field string, threshold int) Filter {
	return Func(func(records []model.NormalizedRecord) []model.NormalizedRecord {
		counts := make(map[string]int)
		for _, r := range records {
			counts[r.Value(field)]++
		}
		return keep(records, func(r model.NormalizedRecord) bool {
			return counts[r.Value(field)] > threshold
		})
	})
}

// Chain applies filters in order.
type Chain []Filter

func (c Chain) Apply(records []model.NormalizedRecord) []model.NormalizedRecord {
	for _, f := range c {
		records = f.Apply(records)
	}
	return records
}

// Split separates f into its leading per-record stages, combined into
// one Predicate, and the remaining stages. Applying pre and then rest is
// equivalent to applying f. Either result may be nil.
func Split(f Filter) (pre Predicate, rest Filter) {
	switch f := f.(type) {
	case Predicate:
		return f, nil
	case Chain:
		var preds []Predicate
		i := 0
		for ; i < len(f); i++ {
			p, ok := f[i].(Predicate)
			if !ok {
				break
			}
			preds = append(preds, p)
		}
		if len(preds) > 0 {
			pre = func(r model.NormalizedRecord) bool {
				for _, p := range preds {
					if !p(r) {
						return false
					}
				}
				return true
			}
		}
		if i < len(f) {
			rest = f[i:]
		}
		return pre, rest
	default:
		return nil, f
	}
}

// Config selects the optional stages. Zero values disable a stage.
type Config struct {
	PathContains string
	NonEmpty     string // field that must be non-empty
	GroupBy      string // field to group on
	MinGroupSize int    // groups must be larger than this; 0 means DefaultMinGroupSize
}

// Build composes the configured stages in their fixed order: path,
// non-empty, minimum group size.
func Build(cfg Config) Chain {
	var c Chain
	if cfg.PathContains != "" {
		c = append(c, PathContains(cfg.PathContains))
	}
	if cfg.NonEmpty != "" {
		c = append(c, NonEmpty(cfg.NonEmpty))
	}
	if cfg.GroupBy != "" {
		threshold := cfg.MinGroupSize
		if threshold <= 0 {
			threshold = DefaultMinGroupSize
		}
		c = append(c, MinGroupSize(cfg.GroupBy, threshold))
	}
	return c
}

func keep(records []model.NormalizedRecord, pred func(model.NormalizedRecord) bool) []model.NormalizedRecord {
	out := make([]model.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
