// Package wordalign aligns one window's manuscript tokens against its
// recognized-speech tokens, producing an ordered word-level operation stream.
//
// The primary algorithm is a weighted Needleman-Wunsch dynamic program with
// a tiered cost policy: exact canonical matches, homophones (by phoneme
// transcription), and known confusable spellings cost 0; substitutions cost
// their normalized Levenshtein distance; unmatched tokens cost 1 unless they
// are pure punctuation. Compound words spoken as two or three tokens (or the
// reverse) are recognized as single matches instead of insert/delete pairs.
//
// Windows whose DP table would exceed a configured cell budget fall back to
// a greedy two-pointer scan with one-token lookahead. The scan's advance
// rules guarantee forward progress on every iteration, so alignment always
// terminates even on pathological input.
package wordalign

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/narralign/internal/textnorm"
	"github.com/MrWong99/narralign/pkg/types"
)

// maxMerge is the largest number of adjacent tokens a compound merge may
// consume on one side.
const maxMerge = 3

// Options configures an alignment pass. The zero value disables all optional
// collaborators; use DefaultOptions for the production defaults.
type Options struct {
	// Phonemes resolves words to phoneme transcriptions for homophone
	// detection. Nil disables the tier (fewer zero-cost equivalences, never
	// an error).
	Phonemes textnorm.PhonemeLookup

	// Spellings is the known confusable-spelling table. Nil disables the
	// tier.
	Spellings textnorm.SpellingTable

	// MetaphoneFallback enables Double Metaphone equivalence when Phonemes
	// has no entry for a word pair. Metaphone codes are coarse, so a pair is
	// only accepted when its Jaro-Winkler similarity also reaches
	// PhoneticThreshold.
	MetaphoneFallback bool

	// PhoneticThreshold is the minimum Jaro-Winkler similarity for a
	// metaphone-equivalent pair. Default 0.70.
	PhoneticThreshold float64

	// MaxDPCells bounds the DP table size (rows × columns). Larger windows
	// use the greedy scan. Default 250000.
	MaxDPCells int

	// TimeTolerance is the overlap tolerance in seconds used by the greedy
	// scan's stall-avoidance rule. The rule requires time ranges on both
	// streams; book tokens carry none today, so disagreements degrade to
	// forced substitutions until book timing is populated. Default 0.25.
	TimeTolerance float64
}

// DefaultOptions returns the production defaults with the built-in spelling
// table and metaphone fallback enabled.
func DefaultOptions() Options {
	return Options{
		Spellings:         textnorm.DefaultSpellingTable(),
		MetaphoneFallback: true,
		PhoneticThreshold: 0.70,
		MaxDPCells:        250000,
		TimeTolerance:     0.25,
	}
}

// Align aligns the tokens of w and returns the op stream with global token
// indices. Window end coordinates may extend one past the token arrays (the
// closing synthetic anchor); they are clamped here.
func Align(book []types.BookToken, script []types.ScriptToken, w types.Window, opts Options) []types.WordOp {
	if opts.PhoneticThreshold == 0 {
		opts.PhoneticThreshold = 0.70
	}
	if opts.MaxDPCells == 0 {
		opts.MaxDPCells = 250000
	}
	if opts.TimeTolerance == 0 {
		opts.TimeTolerance = 0.25
	}

	bEnd := min(w.BookEnd, len(book)-1)
	sEnd := min(w.ScriptEnd, len(script)-1)
	bStart := max(w.BookStart, 0)
	sStart := max(w.ScriptStart, 0)

	var bookWords []string
	if bEnd >= bStart {
		bookWords = make([]string, 0, bEnd-bStart+1)
		for _, t := range book[bStart : bEnd+1] {
			bookWords = append(bookWords, t.Text)
		}
	}
	var scriptWords []string
	var scriptTimes []timeSpan
	if sEnd >= sStart {
		scriptWords = make([]string, 0, sEnd-sStart+1)
		scriptTimes = make([]timeSpan, 0, sEnd-sStart+1)
		for _, t := range script[sStart : sEnd+1] {
			scriptWords = append(scriptWords, t.Word)
			scriptTimes = append(scriptTimes, timeSpan{start: t.Start, end: t.End(), known: true})
		}
	}

	a := &aligner{
		opts:        opts,
		book:        bookWords,
		script:      scriptWords,
		bookKeys:    textnorm.CanonicalizeAll(bookWords),
		scriptKeys:  textnorm.CanonicalizeAll(scriptWords),
		scriptTimes: scriptTimes,
		bookBase:    bStart,
		scriptBase:  sStart,
	}

	if (len(bookWords)+1)*(len(scriptWords)+1) <= opts.MaxDPCells {
		return a.alignDP()
	}
	return a.alignGreedy()
}

// timeSpan is an optional token time range. known is false for book tokens,
// which carry no audio timing.
type timeSpan struct {
	start, end float64
	known      bool
}

type aligner struct {
	opts        Options
	book        []string
	script      []string
	bookKeys    []string
	scriptKeys  []string
	scriptTimes []timeSpan
	bookBase    int
	scriptBase  int
}

// equivCost returns the substitution cost for book token i vs script token j
// and whether the pair is a zero-cost equivalence.
func (a *aligner) equivCost(i, j int) (cost float64, equal bool) {
	bk, sk := a.bookKeys[i], a.scriptKeys[j]
	if bk == sk {
		return 0, true
	}
	if bk == "" || sk == "" {
		// One side is pure punctuation: a full-weight substitution.
		return 1, false
	}
	if a.opts.Spellings.Equivalent(bk, sk) {
		return 0, true
	}
	if textnorm.SamePhonemes(a.opts.Phonemes, a.book[i], a.script[j]) {
		return 0, true
	}
	if a.opts.MetaphoneFallback && textnorm.SamePhonemes(textnorm.MetaphoneLookup{}, bk, sk) {
		if matchr.JaroWinkler(bk, sk, false) >= a.opts.PhoneticThreshold {
			return 0, true
		}
	}
	longest := max(len(bk), len(sk))
	d := float64(matchr.Levenshtein(bk, sk)) / float64(longest)
	if d <= 0 {
		d = 1 / float64(longest)
	}
	if d > 1 {
		d = 1
	}
	return d, false
}

// gapCost is the cost of leaving a token unmatched: 1, or 0 for pure
// punctuation.
func gapCost(key string) float64 {
	if key == "" {
		return 0
	}
	return 1
}

// mergeScript reports whether script tokens [j, j+k) concatenate to book
// token i.
func (a *aligner) mergeScript(i, j, k int) bool {
	if j+k > len(a.scriptKeys) || a.bookKeys[i] == "" {
		return false
	}
	var b strings.Builder
	for m := j; m < j+k; m++ {
		if a.scriptKeys[m] == "" {
			return false
		}
		b.WriteString(a.scriptKeys[m])
	}
	return b.String() == a.bookKeys[i]
}

// mergeBook reports whether book tokens [i, i+k) concatenate to script
// token j.
func (a *aligner) mergeBook(i, j, k int) bool {
	if i+k > len(a.bookKeys) || a.scriptKeys[j] == "" {
		return false
	}
	var b strings.Builder
	for m := i; m < i+k; m++ {
		if a.bookKeys[m] == "" {
			return false
		}
		b.WriteString(a.bookKeys[m])
	}
	return b.String() == a.scriptKeys[j]
}

// move encodes a traceback step: how many book and script tokens the step
// consumed and the op it emits.
type move struct {
	db, ds int
	kind   types.OpKind
	class  types.OpClass
	cost   float64
}

// alignDP runs the weighted edit-distance DP and emits ops via traceback.
// Transition preference at equal cost is fixed (diagonal, then merges, then
// delete, then insert) so repeated runs are byte-identical.
func (a *aligner) alignDP() []types.WordOp {
	m, n := len(a.book), len(a.script)
	cols := n + 1

	cost := make([]float64, (m+1)*cols)
	moves := make([]move, (m+1)*cols)
	at := func(i, j int) int { return i*cols + j }

	for j := 1; j <= n; j++ {
		c := gapCost(a.scriptKeys[j-1])
		cost[at(0, j)] = cost[at(0, j-1)] + c
		moves[at(0, j)] = move{db: 0, ds: 1, kind: types.OpInsert, class: types.ClassExtra, cost: c}
	}
	for i := 1; i <= m; i++ {
		c := gapCost(a.bookKeys[i-1])
		cost[at(i, 0)] = cost[at(i-1, 0)] + c
		moves[at(i, 0)] = move{db: 1, ds: 0, kind: types.OpDelete, class: types.ClassMissing, cost: c}

		for j := 1; j <= n; j++ {
			subCost, equal := a.equivCost(i-1, j-1)
			kind, class := types.OpSubstitute, types.ClassNear
			if equal {
				kind, class = types.OpMatch, types.ClassEqual
			}
			best := cost[at(i-1, j-1)] + subCost
			bestMove := move{db: 1, ds: 1, kind: kind, class: class, cost: subCost}

			// Compound merges: one book token spoken as 2-3 script tokens,
			// or the reverse, counts as a single zero-cost match.
			for k := 2; k <= maxMerge; k++ {
				if j >= k && a.mergeScript(i-1, j-k, k) {
					if c := cost[at(i-1, j-k)]; c < best {
						best = c
						bestMove = move{db: 1, ds: k, kind: types.OpMatch, class: types.ClassEqual, cost: 0}
					}
				}
				if i >= k && a.mergeBook(i-k, j-1, k) {
					if c := cost[at(i-k, j-1)]; c < best {
						best = c
						bestMove = move{db: k, ds: 1, kind: types.OpMatch, class: types.ClassEqual, cost: 0}
					}
				}
			}

			if dc := gapCost(a.bookKeys[i-1]); cost[at(i-1, j)]+dc < best {
				best = cost[at(i-1, j)] + dc
				bestMove = move{db: 1, ds: 0, kind: types.OpDelete, class: types.ClassMissing, cost: dc}
			}
			if ic := gapCost(a.scriptKeys[j-1]); cost[at(i, j-1)]+ic < best {
				best = cost[at(i, j-1)] + ic
				bestMove = move{db: 0, ds: 1, kind: types.OpInsert, class: types.ClassExtra, cost: ic}
			}

			cost[at(i, j)] = best
			moves[at(i, j)] = bestMove
		}
	}

	// Traceback.
	var rev []types.WordOp
	i, j := m, n
	for i > 0 || j > 0 {
		mv := moves[at(i, j)]
		i, j = i-mv.db, j-mv.ds
		rev = append(rev, a.opFor(mv, i, j))
	}

	ops := make([]types.WordOp, len(rev))
	for k := range rev {
		ops[k] = rev[len(rev)-1-k]
	}
	return ops
}

// opFor builds the emitted op for a move whose consumed tokens start at
// local indices (i, j). Merged matches report the book token and the first
// consumed script token.
func (a *aligner) opFor(mv move, i, j int) types.WordOp {
	op := types.WordOp{Kind: mv.kind, Class: mv.class, Cost: mv.cost, BookIndex: -1, ScriptIndex: -1}
	if mv.db > 0 {
		op.BookIndex = a.bookBase + i
	}
	if mv.ds > 0 {
		op.ScriptIndex = a.scriptBase + j
	}
	return op
}

// alignGreedy is the large-window fallback: a two-pointer scan with bounded
// lookahead. Every branch advances at least one cursor, which is the
// termination guarantee for arbitrarily bad input.
//
// The time-advance rule on disagreements needs time ranges on both streams.
// bookTime is always unknown for now, so the rule is dormant and every
// disagreement falls through to the forced substitution; it activates as
// soon as book tokens are given timing.
func (a *aligner) alignGreedy() []types.WordOp {
	var ops []types.WordOp
	m, n := len(a.book), len(a.script)
	i, j := 0, 0

	emit := func(mv move, bi, sj int) {
		ops = append(ops, a.opFor(mv, bi, sj))
	}

	for i < m && j < n {
		if c, equal := a.equivCost(i, j); equal {
			emit(move{db: 1, ds: 1, kind: types.OpMatch, class: types.ClassEqual, cost: c}, i, j)
			i, j = i+1, j+1
			continue
		}

		if merged := a.greedyMerge(&ops, &i, &j); merged {
			continue
		}

		// One-token lookahead on either side.
		if i+1 < m {
			if _, equal := a.equivCost(i+1, j); equal {
				emit(move{db: 1, ds: 0, kind: types.OpDelete, class: types.ClassMissing, cost: gapCost(a.bookKeys[i])}, i, j)
				i++
				continue
			}
		}
		if j+1 < n {
			if _, equal := a.equivCost(i, j+1); equal {
				emit(move{db: 0, ds: 1, kind: types.OpInsert, class: types.ClassExtra, cost: gapCost(a.scriptKeys[j])}, i, j)
				j++
				continue
			}
		}

		// Disagreement. When both tokens carry time ranges that do not
		// overlap within the tolerance, advance the side that ends first;
		// otherwise advance both as a forced substitution.
		bt, st := a.bookTime(i), a.scriptTime(j)
		if bt.known && st.known && !overlaps(bt, st, a.opts.TimeTolerance) {
			if bt.end < st.end {
				emit(move{db: 1, ds: 0, kind: types.OpDelete, class: types.ClassMissing, cost: gapCost(a.bookKeys[i])}, i, j)
				i++
			} else {
				emit(move{db: 0, ds: 1, kind: types.OpInsert, class: types.ClassExtra, cost: gapCost(a.scriptKeys[j])}, i, j)
				j++
			}
			continue
		}

		c, _ := a.equivCost(i, j)
		emit(move{db: 1, ds: 1, kind: types.OpSubstitute, class: types.ClassNear, cost: c}, i, j)
		i, j = i+1, j+1
	}

	for ; i < m; i++ {
		emit(move{db: 1, ds: 0, kind: types.OpDelete, class: types.ClassMissing, cost: gapCost(a.bookKeys[i])}, i, j)
	}
	for ; j < n; j++ {
		emit(move{db: 0, ds: 1, kind: types.OpInsert, class: types.ClassExtra, cost: gapCost(a.scriptKeys[j])}, i, j)
	}
	return ops
}

// greedyMerge tries compound merges at the cursors and advances them when
// one applies.
func (a *aligner) greedyMerge(ops *[]types.WordOp, i, j *int) bool {
	for k := 2; k <= maxMerge; k++ {
		if a.mergeScript(*i, *j, k) {
			*ops = append(*ops, a.opFor(move{db: 1, ds: k, kind: types.OpMatch, class: types.ClassEqual}, *i, *j))
			*i, *j = *i+1, *j+k
			return true
		}
		if a.mergeBook(*i, *j, k) {
			*ops = append(*ops, a.opFor(move{db: k, ds: 1, kind: types.OpMatch, class: types.ClassEqual}, *i, *j))
			*i, *j = *i+k, *j+1
			return true
		}
	}
	return false
}

// bookTime returns the (always unknown) time range of a book token. Book
// tokens carry no audio timing, so the greedy time rule only fires for
// streams that both have timing; the structure is kept so the rule reads the
// same as the reconciler's.
func (a *aligner) bookTime(int) timeSpan { return timeSpan{} }

func (a *aligner) scriptTime(j int) timeSpan {
	if j < len(a.scriptTimes) {
		return a.scriptTimes[j]
	}
	return timeSpan{}
}

// overlaps reports whether two known spans overlap within tol seconds.
func overlaps(a, b timeSpan, tol float64) bool {
	return a.start <= b.end+tol && b.start <= a.end+tol
}

// MarkAnchors sets ClassAnchor on zero-cost match ops whose book position is
// covered by a selected anchor. anchorPos holds every book index covered by
// an anchor's n-gram.
func MarkAnchors(ops []types.WordOp, anchorPos map[int]struct{}) {
	for i := range ops {
		if ops[i].Kind != types.OpMatch || ops[i].Cost != 0 {
			continue
		}
		if _, ok := anchorPos[ops[i].BookIndex]; ok {
			ops[i].Class = types.ClassAnchor
		}
	}
}
