package workflow

import (
	"context"
	"fmt"
	"time"
)

// SequenceSource hands out per-day monotonically increasing sequence numbers.
// The repository backs this with an atomic upsert so concurrent creations on
// the same day never observe the same value.
type SequenceSource interface {
	NextCodeSequence(ctx context.Context, dayKey string) (int, error)
}

// CodeGenerator produces human-readable sequential ticket codes of the form
// PREFIX-DDMMYYSSS, where YY is the Buddhist calendar year and SSS a
// zero-padded per-day counter.
type CodeGenerator struct {
	prefix string
	seq    SequenceSource
	now    func() time.Time
}

// NewCodeGenerator builds a generator with the configured code prefix.
func NewCodeGenerator(prefix string, seq SequenceSource) *CodeGenerator {
	return &CodeGenerator{prefix: prefix, seq: seq, now: time.Now}
}

// Next returns a fresh unique ticket code for today. A day that overruns
// three sequence digits widens the code instead of wrapping, so uniqueness
// survives at the cost of the fixed width.
func (g *CodeGenerator) Next(ctx context.Context) (string, error) {
	day := DayKey(g.now())
	seq, err := g.seq.NextCodeSequence(ctx, day)
	if err != nil {
		return "", fmt.Errorf("next code sequence: %w", err)
	}
	return fmt.Sprintf("%s-%s%03d", g.prefix, day, seq), nil
}

// DayKey encodes a timestamp as DDMMYY with the two-digit Buddhist year
// (Gregorian + 543).
func DayKey(t time.Time) string {
	buddhistYear := (t.Year() + 543) % 100
	return fmt.Sprintf("%02d%02d%02d", t.Day(), int(t.Month()), buddhistYear)
}
