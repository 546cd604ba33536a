// Package timing reconciles the recognized-speech timeline with an
// independently produced forced-alignment interval stream to refine each
// sentence's audio time span.
//
// The reconciler never fails: missing or partial forced-alignment coverage
// degrades through a fallback ladder (per-token recognized timing, then a
// monotonic sequence search over the interval stream) and sentences that
// resist every strategy are simply left unresolved so the caller keeps its
// coarse recognized-range timing.
package timing

import (
	"log/slog"

	"github.com/MrWong99/narralign/internal/textnorm"
	"github.com/MrWong99/narralign/pkg/types"
)

// Config holds the reconciler tunables.
type Config struct {
	// TimeTolerance is the overlap tolerance in seconds used by the
	// token-to-interval scan and the monotonic search cursor. Default 0.25.
	TimeTolerance float64

	// WidenTolerance is the minimum extension in seconds before a fallback
	// span is allowed to widen the primary span. Default 0.001.
	WidenTolerance float64

	// Placeholders lists interval texts that mark unrecognized spans and are
	// skipped by the scan (compared canonically).
	Placeholders []string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TimeTolerance:  0.25,
		WidenTolerance: 0.001,
		Placeholders:   []string{"<unk>", "<skip>", "[unk]"},
	}
}

// Reconcile returns refined time spans keyed by sentence id. Sentences that
// could not be resolved are absent from the map; the caller must retain
// their coarse recognized-range timing. book carries the manuscript text
// used for the unreliable-sentence search fallback. An empty interval stream
// is a no-op: every sentence stays unresolved.
func Reconcile(
	sents []types.SentenceAlign,
	book []types.BookToken,
	script []types.ScriptToken,
	intervals []types.Interval,
	cfg Config,
	log *slog.Logger,
) map[int]types.SentenceTiming {
	if log == nil {
		log = slog.Default()
	}
	out := make(map[int]types.SentenceTiming, len(sents))
	if len(intervals) == 0 {
		log.Warn("timing: no forced-alignment intervals; keeping coarse sentence timing")
		return out
	}

	r := &reconciler{
		cfg:       cfg,
		book:      book,
		script:    script,
		intervals: intervals,
		log:       log,
	}
	r.buildTokenMap()
	r.buildSearchStream()

	prevEnd := 0.0
	for _, s := range sents {
		t, ok := r.resolve(s, prevEnd)
		if !ok {
			log.Warn("timing: fallback failed, sentence left unresolved", "sentence", s.ID)
			continue
		}
		// Resolved spans must stay ordered and non-overlapping.
		if t.Start < prevEnd {
			t.Start = prevEnd
		}
		if t.End <= t.Start {
			log.Warn("timing: resolved span collapsed, sentence left unresolved", "sentence", s.ID)
			continue
		}
		out[s.ID] = t
		prevEnd = t.End
	}
	return out
}

type span struct {
	start, end float64
	known      bool
}

type reconciler struct {
	cfg       Config
	book      []types.BookToken
	script    []types.ScriptToken
	intervals []types.Interval
	log       *slog.Logger

	// tokenSpans[i] is the forced-alignment span mapped to script token i.
	tokenSpans []span

	// searchKeys / searchIdx form the flat searchable token stream over the
	// intervals, placeholders and punctuation dropped.
	searchKeys []string
	searchIdx  []int
}

func (r *reconciler) placeholder(key string) bool {
	for _, p := range r.cfg.Placeholders {
		if key == textnorm.Canonicalize(p) {
			return true
		}
	}
	return false
}

// buildTokenMap runs the two-pointer scan pairing script tokens with
// forced-alignment intervals. Both cursors are plain indices with one-token
// lookahead; every branch advances at least one cursor.
func (r *reconciler) buildTokenMap() {
	r.tokenSpans = make([]span, len(r.script))

	ti, ii := 0, 0
	for ti < len(r.script) && ii < len(r.intervals) {
		ikey := textnorm.Canonicalize(r.intervals[ii].Text)
		if ikey == "" || r.placeholder(ikey) {
			ii++
			continue
		}
		tkey := textnorm.Canonicalize(r.script[ti].Word)

		if tkey == ikey {
			r.tokenSpans[ti] = span{start: r.intervals[ii].Start, end: r.intervals[ii].End, known: true}
			ti, ii = ti+1, ii+1
			continue
		}

		// One-token lookahead handles a single dropped or extra token on
		// either side.
		if ti+1 < len(r.script) && textnorm.Canonicalize(r.script[ti+1].Word) == ikey {
			ti++
			continue
		}
		if ii+1 < len(r.intervals) {
			nextKey := textnorm.Canonicalize(r.intervals[ii+1].Text)
			if nextKey == tkey && nextKey != "" {
				ii++
				continue
			}
		}

		// Compare time ranges within the tolerance window; advance whichever
		// side ends first, or both when the spans overlap (the recognized
		// token may be pure punctuation with no spoken counterpart).
		tok := r.script[ti]
		iv := r.intervals[ii]
		if tok.End() < iv.Start-r.cfg.TimeTolerance {
			ti++
			continue
		}
		if iv.End < tok.Start-r.cfg.TimeTolerance {
			ii++
			continue
		}
		ti, ii = ti+1, ii+1
	}
}

// buildSearchStream flattens the intervals into a searchable token sequence.
func (r *reconciler) buildSearchStream() {
	for i, iv := range r.intervals {
		key := textnorm.Canonicalize(iv.Text)
		if key == "" || r.placeholder(key) {
			continue
		}
		r.searchKeys = append(r.searchKeys, key)
		r.searchIdx = append(r.searchIdx, i)
	}
}

// resolve produces the refined timing for one sentence, or ok=false when
// every strategy failed.
func (r *reconciler) resolve(s types.SentenceAlign, prevEnd float64) (types.SentenceTiming, bool) {
	primary, fullCoverage := r.primarySpan(s)

	reliable := s.Status == types.StatusOK
	if reliable && fullCoverage && primary.known {
		return types.SentenceTiming{Start: primary.start, End: primary.end}, primary.end > primary.start
	}

	// Sequence-search fallback. Unreliable sentences search with the book
	// text first (their script text is not trustworthy); reliable ones with
	// partial coverage try the script text first.
	first, second := r.scriptKeys(s), r.bookKeys(s)
	if !reliable || !fullCoverage {
		if !reliable {
			first, second = second, first
		}
	}
	fallback := r.search(first, prevEnd)
	if !fallback.known {
		fallback = r.search(second, prevEnd)
	}

	final := primary
	if fallback.known {
		if !final.known {
			final = fallback
		} else {
			// Widen toward the fallback when it extends beyond the primary
			// mapping on either edge; never replace the primary outright.
			if fallback.start < final.start-r.cfg.WidenTolerance {
				final.start = fallback.start
			}
			if fallback.end > final.end+r.cfg.WidenTolerance {
				final.end = fallback.end
			}
		}
	}

	if !final.known || final.end <= final.start {
		return types.SentenceTiming{}, false
	}
	return types.SentenceTiming{Start: final.start, End: final.end}, true
}

// primarySpan aggregates the token-to-interval map over the sentence's
// script range. Unmapped tokens are filled from the recognized token's own
// coarse timing; fullCoverage reports whether every token had a mapped
// interval.
func (r *reconciler) primarySpan(s types.SentenceAlign) (span, bool) {
	if !s.HasScript() {
		return span{}, false
	}
	out := span{}
	fullCoverage := true
	for i := s.ScriptStart; i <= s.ScriptEnd && i < len(r.script); i++ {
		sp := r.tokenSpans[i]
		if !sp.known {
			fullCoverage = false
			tok := r.script[i]
			sp = span{start: tok.Start, end: tok.End(), known: true}
		}
		if !out.known {
			out = sp
			continue
		}
		if sp.start < out.start {
			out.start = sp.start
		}
		if sp.end > out.end {
			out.end = sp.end
		}
	}
	return out, fullCoverage
}

func (r *reconciler) bookKeys(s types.SentenceAlign) []string {
	var keys []string
	for i := s.BookStart; i <= s.BookEnd && i < len(r.book); i++ {
		if key := textnorm.Canonicalize(r.book[i].Text); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func (r *reconciler) scriptKeys(s types.SentenceAlign) []string {
	if !s.HasScript() {
		return nil
	}
	var keys []string
	for i := s.ScriptStart; i <= s.ScriptEnd && i < len(r.script); i++ {
		if key := textnorm.Canonicalize(r.script[i].Word); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// search scans the flattened interval stream for the token sequence seq,
// constrained to intervals starting no earlier than prevEnd minus the
// tolerance. The cursor only moves forward, which bounds the scan and keeps
// resolved sentences in audio order.
func (r *reconciler) search(seq []string, prevEnd float64) span {
	if len(seq) == 0 {
		return span{}
	}

	from := 0
	for from < len(r.searchIdx) && r.intervals[r.searchIdx[from]].Start < prevEnd-r.cfg.TimeTolerance {
		from++
	}

	for at := from; at+len(seq) <= len(r.searchKeys); at++ {
		matched := true
		for k := range seq {
			if r.searchKeys[at+k] != seq[k] {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		first := r.intervals[r.searchIdx[at]]
		last := r.intervals[r.searchIdx[at+len(seq)-1]]
		return span{start: first.Start, end: last.End, known: true}
	}
	return span{}
}
