package extract

import (
	"context"
	"fmt"

	"github.com/hanpama/hwptext/internal/hwpv5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Result is the outcome of one strategy.
type Result struct {
	Strategy Strategy
	Text     string
	Err      error
}

// Longest returns the result with the most characters. Ties go to the
// earliest result. When every text is empty it returns ErrNoText wrapping the
// errors the results carried.
func Longest(results []Result) (Result, error) {
	best := -1
	var errs error
	for i, r := range results {
		if r.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.Strategy, r.Err))
		}
		if r.Text == "" {
			continue
		}
		if best < 0 || CharCount(r.Text) > CharCount(results[best].Text) {
			best = i
		}
	}
	if best < 0 {
		if errs == nil {
			return Result{}, ErrNoText
		}
		return Result{}, fmt.Errorf("%w: %w", ErrNoText, errs)
	}
	return results[best], nil
}

// Compare runs every in-process HWP strategy against path. Failures are
// recorded on the corresponding Result rather than returned.
func (p *Pipeline) Compare(ctx context.Context, path string) []Result {
	candidates := InProcess()
	results := make([]Result, 0, len(candidates))
	for _, s := range candidates {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Strategy: s, Err: err})
			continue
		}
		results = append(results, p.runGuarded(path, s, decoderFor(s)))
	}
	return results
}

// multi runs each candidate strategy independently and keeps the longest
// output. Record-scoped output is space-separated here, unlike the standalone
// Record and Resync strategies.
func (p *Pipeline) multi(ctx context.Context, path string, log *zap.Logger) (string, error) {
	candidates := InProcess()
	results := make([]Result, 0, len(candidates))
	for _, s := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		decode := decoderFor(s)
		switch s {
		case Record:
			decode = func(buf []byte) string { return DecodeRecords(buf, " ") }
		case Resync:
			decode = func(buf []byte) string { return DecodeRecords(buf, " ", hwpv5.WithResync()) }
		}
		r := p.runGuarded(path, s, decode)
		log.Debug("candidate",
			zap.String("candidate", s.String()),
			zap.Int("chars", CharCount(r.Text)),
			zap.Error(r.Err))
		results = append(results, r)
	}

	best, err := Longest(dedupe(results))
	if err != nil {
		return "", err
	}
	log.Debug("selected", zap.String("candidate", best.Strategy.String()))
	return best.Text, nil
}

// runGuarded runs one strategy and converts a panic into an error so that a
// broken strategy cannot take the others down with it.
func (p *Pipeline) runGuarded(path string, s Strategy, decode sectionDecoder) (r Result) {
	r.Strategy = s
	defer func() {
		if v := recover(); v != nil {
			r.Text = ""
			r.Err = fmt.Errorf("strategy %s panicked: %v", s, v)
		}
	}()
	r.Text, r.Err = p.decodeHWPWith(path, decode, keepSection(s), p.log.With(zap.String("candidate", s.String())))
	return r
}

// dedupe clears errors whose message already appeared on an earlier result,
// so that a container failure shared by every strategy is reported once.
func dedupe(results []Result) []Result {
	seen := make(map[string]bool)
	out := make([]Result, len(results))
	for i, r := range results {
		if r.Err != nil {
			msg := r.Err.Error()
			if seen[msg] {
				r.Err = nil
			}
			seen[msg] = true
		}
		out[i] = r
	}
	return out
}
