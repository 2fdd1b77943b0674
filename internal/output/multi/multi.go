package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/mailsift/internal/model"
	"github.com/crimson-sun/mailsift/internal/output"
)

// Sink is a named output. The name prefixes its errors.
type Sink struct {
	Name   string
	Output output.Output
}

// Multi writes every record to each sink in turn. A failing sink does
// not stop delivery to the others; per-sink failure counts are kept so a
// run can report which destination was unavailable.
type Multi struct {
	sinks    []Sink
	failures []int
}

// New creates a Multi over sinks, in order.
func New(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, failures: make([]int, len(sinks))}
}

// Write delivers rec to every sink and joins the errors.
func (m *Multi) Write(ctx context.Context, rec model.NormalizedRecord) error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.Output.Write(ctx, rec); err != nil {
			m.failures[i]++
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Failures returns the number of failed writes per sink name.
func (m *Multi) Failures() map[string]int {
	out := make(map[string]int, len(m.sinks))
	for i, s := range m.sinks {
		out[s.Name] += m.failures[i]
	}
	return out
}

// Close closes every sink, even after a failure.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: close: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
