// Package rollup aggregates the word-level alignment stream into sentence
// and paragraph records with quality metrics and a reliability status.
//
// Malformed range data is rejected before any aggregation: the rollup fails
// fast on gaps, overlaps, or inverted ranges rather than silently repairing
// external input. Degraded alignment quality, by contrast, is an expected
// outcome and is encoded in the output status, never raised as an error.
package rollup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/narralign/internal/textnorm"
	"github.com/MrWong99/narralign/pkg/types"
)

// ErrBadRanges wraps every input-shape failure detected by Validate.
var ErrBadRanges = errors.New("rollup: malformed range data")

// Thresholds holds the reliability classification tunables. These are
// empirically tuned product values; they live in configuration and must
// never be hard-coded at call sites.
type Thresholds struct {
	// MaxCER is the character error rate above which a sentence is
	// unreliable. Default 0.30.
	MaxCER float64

	// MinCoverage is the minimum fraction of book tokens that must align to
	// a script token (matched or substituted) for the range to be reliable.
	// Default 0.50.
	MinCoverage float64
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxCER: 0.30, MinCoverage: 0.50}
}

// Validate checks that sentences tile [0, tokenCount) contiguously and that
// every paragraph covers exactly its member sentences. All failures are
// reported, joined, and wrapped in ErrBadRanges.
func Validate(sentences []types.SentenceRange, paragraphs []types.ParagraphRange, tokenCount int) error {
	var errs []error

	if len(sentences) == 0 && tokenCount > 0 {
		errs = append(errs, fmt.Errorf("no sentence ranges for %d tokens", tokenCount))
	}
	next := 0
	for _, s := range sentences {
		if s.BookEnd < s.BookStart {
			errs = append(errs, fmt.Errorf("sentence %d: inverted range [%d, %d]", s.ID, s.BookStart, s.BookEnd))
			continue
		}
		if s.BookStart != next {
			errs = append(errs, fmt.Errorf("sentence %d: starts at %d, want %d (ranges must tile contiguously)", s.ID, s.BookStart, next))
		}
		next = s.BookEnd + 1
	}
	if len(sentences) > 0 && next != tokenCount {
		errs = append(errs, fmt.Errorf("sentences cover [0, %d), want [0, %d)", next, tokenCount))
	}

	byID := make(map[int]types.SentenceRange, len(sentences))
	for _, s := range sentences {
		byID[s.ID] = s
	}
	for _, p := range paragraphs {
		if p.BookEnd < p.BookStart {
			errs = append(errs, fmt.Errorf("paragraph %d: inverted range [%d, %d]", p.ID, p.BookStart, p.BookEnd))
			continue
		}
		for _, id := range p.SentenceIDs {
			s, ok := byID[id]
			if !ok {
				errs = append(errs, fmt.Errorf("paragraph %d: member sentence %d does not exist", p.ID, id))
				continue
			}
			if s.BookStart < p.BookStart || s.BookEnd > p.BookEnd {
				errs = append(errs, fmt.Errorf("paragraph %d: member sentence %d exceeds paragraph range", p.ID, id))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrBadRanges, errors.Join(errs...))
	}
	return nil
}

// Roll aggregates ops (the concatenated, window-ordered stream) into
// sentence and paragraph records. book and script supply the raw texts for
// character-level metrics; thresholds drive the reliability classification.
func Roll(
	ops []types.WordOp,
	book []types.BookToken,
	script []types.ScriptToken,
	sentences []types.SentenceRange,
	paragraphs []types.ParagraphRange,
	th Thresholds,
) ([]types.SentenceAlign, []types.ParagraphAlign, error) {
	if err := Validate(sentences, paragraphs, len(book)); err != nil {
		return nil, nil, err
	}

	agg := newAggregator(ops, book, script)

	sentAligns := make([]types.SentenceAlign, 0, len(sentences))
	statusByID := make(map[int]types.Status, len(sentences))
	for _, s := range sentences {
		m, scriptLo, scriptHi := agg.measure(s.BookStart, s.BookEnd)
		status := classify(m, th)
		statusByID[s.ID] = status
		sentAligns = append(sentAligns, types.SentenceAlign{
			ID:          s.ID,
			BookStart:   s.BookStart,
			BookEnd:     s.BookEnd,
			ScriptStart: scriptLo,
			ScriptEnd:   scriptHi,
			Metrics:     m.SentenceMetrics,
			Status:      status,
		})
	}

	paraAligns := make([]types.ParagraphAlign, 0, len(paragraphs))
	for _, p := range paragraphs {
		m, _, _ := agg.measure(p.BookStart, p.BookEnd)
		var flagged []int
		for _, id := range p.SentenceIDs {
			if statusByID[id] == types.StatusUnreliable {
				flagged = append(flagged, id)
			}
		}
		status := types.StatusOK
		if len(flagged) > 0 || m.coverage < th.MinCoverage {
			status = types.StatusUnreliable
		}
		paraAligns = append(paraAligns, types.ParagraphAlign{
			ID:                 p.ID,
			BookStart:          p.BookStart,
			BookEnd:            p.BookEnd,
			Metrics:            m.SentenceMetrics,
			Coverage:           m.coverage,
			Status:             status,
			FlaggedSentenceIDs: flagged,
		})
	}

	return sentAligns, paraAligns, nil
}

func classify(m measured, th Thresholds) types.Status {
	if m.coverage < th.MinCoverage || m.SentenceMetrics.CER > th.MaxCER {
		return types.StatusUnreliable
	}
	return types.StatusOK
}

// measured carries the metrics plus the coverage ratio used only for
// classification.
type measured struct {
	types.SentenceMetrics
	coverage float64
}

// aggregator indexes the op stream once so that each range measurement is a
// slice scan rather than a full pass.
type aggregator struct {
	ops    []types.WordOp
	book   []types.BookToken
	script []types.ScriptToken

	// prevBook[k] / nextBook[k] are the nearest book indices at or before /
	// after op k (scanning ops with a book index), or -1. They attribute
	// inserts, which carry no book index of their own, to a book position
	// neighbourhood.
	prevBook []int
	nextBook []int
}

func newAggregator(ops []types.WordOp, book []types.BookToken, script []types.ScriptToken) *aggregator {
	a := &aggregator{
		ops:      ops,
		book:     book,
		script:   script,
		prevBook: make([]int, len(ops)),
		nextBook: make([]int, len(ops)),
	}
	last := -1
	for k, op := range ops {
		if op.BookIndex >= 0 {
			last = op.BookIndex
		}
		a.prevBook[k] = last
	}
	last = -1
	for k := len(ops) - 1; k >= 0; k-- {
		if a.ops[k].BookIndex >= 0 {
			last = a.ops[k].BookIndex
		}
		a.nextBook[k] = last
	}
	return a
}

// inRange reports whether op k belongs to the book range [s, e]. Ops with a
// book index belong by that index; inserts, which carry none, follow their
// nearest preceding book op, so an insertion at a sentence boundary is
// attributed to the preceding sentence. Inserts before any book op follow
// the first one.
func (a *aggregator) inRange(k, s, e int) bool {
	op := a.ops[k]
	if op.BookIndex >= 0 {
		return op.BookIndex >= s && op.BookIndex <= e
	}
	prev, next := a.prevBook[k], a.nextBook[k]
	if prev >= 0 {
		return prev >= s && prev <= e
	}
	return next >= s && next <= e
}

// measure computes the metrics for book range [s, e].
func (a *aggregator) measure(s, e int) (measured, int, int) {
	bookCount := e - s + 1

	// Guard span: the script positions of the first and last match ops
	// inside the range. Insertions whose script position falls outside this
	// span are cross-sentence bleed and are excluded from the metrics.
	guardLo, guardHi := -1, -1
	for k := range a.ops {
		op := a.ops[k]
		if op.Kind != types.OpMatch || op.BookIndex < s || op.BookIndex > e {
			continue
		}
		if guardLo < 0 || op.ScriptIndex < guardLo {
			guardLo = op.ScriptIndex
		}
		if op.ScriptIndex > guardHi {
			guardHi = op.ScriptIndex
		}
	}
	inGuard := func(scriptIdx int) bool {
		return guardLo >= 0 && scriptIdx >= guardLo && scriptIdx <= guardHi
	}

	var (
		costSum      float64
		erroredOps   int
		alignedBooks int
		scriptLo     = -1
		scriptHi     = -1
		extraRuns    int
		missingRuns  int
		inExtraRun   bool
		inMissingRun bool
		scriptIdxs   []int
	)

	for k := range a.ops {
		if !a.inRange(k, s, e) {
			continue
		}
		op := a.ops[k]

		switch op.Kind {
		case types.OpMatch, types.OpSubstitute:
			alignedBooks++
			if op.ScriptIndex >= 0 {
				if scriptLo < 0 || op.ScriptIndex < scriptLo {
					scriptLo = op.ScriptIndex
				}
				if op.ScriptIndex > scriptHi {
					scriptHi = op.ScriptIndex
				}
				scriptIdxs = append(scriptIdxs, op.ScriptIndex)
			}
			if op.Cost > 0 {
				costSum += op.Cost
				erroredOps++
			}
			inExtraRun, inMissingRun = false, false

		case types.OpDelete:
			inExtraRun = false
			if op.Cost > 0 {
				costSum += op.Cost
				erroredOps++
				if !inMissingRun {
					missingRuns++
					inMissingRun = true
				}
			} else {
				inMissingRun = false
			}

		case types.OpInsert:
			inMissingRun = false
			if op.Cost > 0 && inGuard(op.ScriptIndex) {
				costSum += op.Cost
				erroredOps++
				scriptIdxs = append(scriptIdxs, op.ScriptIndex)
				if !inExtraRun {
					extraRuns++
					inExtraRun = true
				}
			} else {
				inExtraRun = false
			}
		}
	}

	m := measured{
		SentenceMetrics: types.SentenceMetrics{
			WER:         costSum / float64(bookCount),
			SpanWER:     float64(erroredOps) / float64(bookCount),
			CER:         a.cer(s, e, scriptIdxs),
			ExtraRuns:   extraRuns,
			MissingRuns: missingRuns,
		},
		coverage: float64(alignedBooks) / float64(bookCount),
	}
	return m, scriptLo, scriptHi
}

// cer computes the punctuation-normalized character error rate: Levenshtein
// distance between the canonical book text of [s, e] and the canonical text
// of the attributed script tokens, over the book character count.
func (a *aggregator) cer(s, e int, scriptIdxs []int) float64 {
	bookText := canonicalJoin(func(yield func(string)) {
		for i := s; i <= e && i < len(a.book); i++ {
			yield(a.book[i].Text)
		}
	})
	scriptText := canonicalJoin(func(yield func(string)) {
		for _, idx := range scriptIdxs {
			if idx >= 0 && idx < len(a.script) {
				yield(a.script[idx].Word)
			}
		}
	})

	if len(bookText) == 0 {
		if len(scriptText) == 0 {
			return 0
		}
		return 1
	}
	d := float64(matchr.Levenshtein(bookText, scriptText)) / float64(len(bookText))
	if d > 1 {
		d = 1
	}
	return d
}

// canonicalJoin joins the canonical keys of the walked words with single
// spaces, dropping punctuation-only tokens. Capitalization, punctuation, and
// whitespace differences therefore never inflate the character metric.
func canonicalJoin(walk func(yield func(string))) string {
	var parts []string
	walk(func(w string) {
		if key := textnorm.Canonicalize(w); key != "" {
			parts = append(parts, key)
		}
	})
	return strings.Join(parts, " ")
}
