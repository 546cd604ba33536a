// Package anchor discovers high-confidence correspondences between the
// manuscript word stream and the recognized-speech word stream.
//
// Discovery indexes n-grams over the canonicalized streams, keeps grams that
// are unique (or nearly unique) on both sides, and then selects the largest
// mutually monotonic subset via a longest-increasing-subsequence pass. The
// result is a set of anchors no two of which cross, suitable for tiling the
// streams into independently alignable windows.
package anchor

import (
	"sort"
	"strings"

	"github.com/MrWong99/narralign/internal/textnorm"
	"github.com/MrWong99/narralign/pkg/types"
)

// Config holds the discovery tunables. Zero values for NGram, MinNGram, and
// TargetPerTokens fall back to the DefaultConfig values.
type Config struct {
	// NGram is the n-gram size discovery starts at.
	NGram int

	// MinNGram is the smallest n-gram size the fallback ladder may reach.
	MinNGram int

	// TargetPerTokens is the desired anchor density: roughly one anchor per
	// this many book tokens. Discovery relaxes its filters until the
	// candidate count reaches the implied target or the ladder is exhausted.
	TargetPerTokens int

	// MinSeparation is the minimum token distance between two occurrences of
	// the same gram for relaxed (two-occurrence) candidates to be trusted.
	MinSeparation int

	// MinContentWords is the minimum number of non-stop-word tokens an
	// n-gram of size >= 3 must contain.
	MinContentWords int
}

// DefaultConfig returns the discovery defaults: trigrams, one anchor per 50
// tokens, 200-token separation for relaxed candidates.
func DefaultConfig() Config {
	return Config{
		NGram:           3,
		MinNGram:        2,
		TargetPerTokens: 50,
		MinSeparation:   200,
		MinContentWords: 2,
	}
}

// Scope restricts discovery to a manuscript sub-range, as produced by an
// external section locator when one chapter is processed inside a larger
// book index. Bounds are inclusive.
type Scope struct {
	BookStart int
	BookEnd   int
}

// candidate is a possible anchor before monotonic selection.
type candidate struct {
	bookPos   int
	scriptPos int
	length    int
}

// Discover returns the monotonic anchor set for the given raw word streams.
// stop may be nil (no stop-word filtering, lower anchor quality). scope may
// be nil to cover the whole book stream. The returned anchors are ordered by
// book position and strictly increasing in both coordinates.
//
// When no candidate survives at the smallest n-gram size, Discover returns
// an empty (non-nil) slice: the window builder's synthetic bounds then
// produce a single window spanning the whole scope, which tells the aligner
// that no internal guidance is available.
func Discover(book, script []string, stop textnorm.Stopwords, cfg Config, scope *Scope) []types.Anchor {
	if cfg.NGram < 1 {
		cfg.NGram = 3
	}
	if cfg.MinNGram < 1 {
		cfg.MinNGram = min(2, cfg.NGram)
	}
	if cfg.TargetPerTokens < 1 {
		cfg.TargetPerTokens = 50
	}

	bookKeys := textnorm.CanonicalizeAll(book)
	scriptKeys := textnorm.CanonicalizeAll(script)

	lo, hi := 0, len(bookKeys)-1
	if scope != nil {
		lo, hi = scope.BookStart, scope.BookEnd
		if lo < 0 {
			lo = 0
		}
		if hi > len(bookKeys)-1 {
			hi = len(bookKeys) - 1
		}
	}
	if hi < lo || len(scriptKeys) == 0 {
		return []types.Anchor{}
	}

	span := hi - lo + 1
	target := span / cfg.TargetPerTokens
	if target < 1 {
		target = 1
	}

	var best []candidate
	for n := cfg.NGram; n >= cfg.MinNGram; n-- {
		bookIdx := indexGrams(bookKeys, lo, hi, n, stop, cfg)
		scriptIdx := indexGrams(scriptKeys, 0, len(scriptKeys)-1, n, stop, cfg)

		cands := uniqueCandidates(bookIdx, scriptIdx, n)
		if len(cands) >= target {
			return selectMonotonic(cands)
		}
		if len(cands) > len(best) {
			best = cands
		}

		cands = relaxedCandidates(bookIdx, scriptIdx, n, cfg.MinSeparation, len(bookKeys), len(scriptKeys))
		if len(cands) >= target {
			return selectMonotonic(cands)
		}
		if len(cands) > len(best) {
			best = cands
		}
	}

	// Sparse data: keep whatever the ladder found rather than failing.
	return selectMonotonic(best)
}

// indexGrams maps each admissible n-gram key to the start positions where it
// occurs within [lo, hi]. Grams containing a punctuation-only token, or
// starting/ending on a stop word, are excluded; grams of size >= 3 must also
// carry at least cfg.MinContentWords non-stop-word tokens.
func indexGrams(keys []string, lo, hi, n int, stop textnorm.Stopwords, cfg Config) map[string][]int {
	idx := make(map[string][]int)
	for start := lo; start+n-1 <= hi; start++ {
		gram, ok := gramKey(keys, start, n, stop, cfg)
		if !ok {
			continue
		}
		idx[gram] = append(idx[gram], start)
	}
	return idx
}

func gramKey(keys []string, start, n int, stop textnorm.Stopwords, cfg Config) (string, bool) {
	content := 0
	for i := start; i < start+n; i++ {
		if keys[i] == "" {
			return "", false
		}
		if !stopContains(stop, keys[i]) {
			content++
		}
	}
	if stopContains(stop, keys[start]) || stopContains(stop, keys[start+n-1]) {
		return "", false
	}
	if n >= 3 && content < cfg.MinContentWords {
		return "", false
	}
	return strings.Join(keys[start:start+n], "\x1f"), true
}

// stopContains avoids re-canonicalizing: keys are already canonical.
func stopContains(stop textnorm.Stopwords, key string) bool {
	if stop == nil {
		return false
	}
	_, ok := stop[key]
	return ok
}

// uniqueCandidates keeps grams occurring exactly once on each side.
func uniqueCandidates(bookIdx, scriptIdx map[string][]int, n int) []candidate {
	var cands []candidate
	for gram, bpos := range bookIdx {
		if len(bpos) != 1 {
			continue
		}
		spos, ok := scriptIdx[gram]
		if !ok || len(spos) != 1 {
			continue
		}
		cands = append(cands, candidate{bookPos: bpos[0], scriptPos: spos[0], length: n})
	}
	return cands
}

// relaxedCandidates additionally admits grams with up to two occurrences per
// side, provided the two occurrences are at least minSep tokens apart.
// Ambiguity is resolved by relative-position proximity: each book occurrence
// is paired with the script occurrence closest to its scaled position.
func relaxedCandidates(bookIdx, scriptIdx map[string][]int, n, minSep, bookLen, scriptLen int) []candidate {
	scale := 1.0
	if bookLen > 0 {
		scale = float64(scriptLen) / float64(bookLen)
	}

	var cands []candidate
	for gram, bpos := range bookIdx {
		spos, ok := scriptIdx[gram]
		if !ok {
			continue
		}
		if len(bpos) > 2 || len(spos) > 2 {
			continue
		}
		if !separated(bpos, minSep) || !separated(spos, minSep) {
			continue
		}
		if len(bpos) == len(spos) {
			// Occurrences are well separated, so in-order pairing is the
			// proximity-optimal one.
			for i := range bpos {
				cands = append(cands, candidate{bookPos: bpos[i], scriptPos: spos[i], length: n})
			}
			continue
		}
		// Asymmetric counts: pair each book occurrence with the nearest
		// script occurrence by expected position.
		for _, bp := range bpos {
			expected := float64(bp) * scale
			bestPos, bestDist := -1, 0.0
			for _, sp := range spos {
				d := expected - float64(sp)
				if d < 0 {
					d = -d
				}
				if bestPos < 0 || d < bestDist {
					bestPos, bestDist = sp, d
				}
			}
			cands = append(cands, candidate{bookPos: bp, scriptPos: bestPos, length: n})
		}
	}
	return cands
}

func separated(pos []int, minSep int) bool {
	for i := 1; i < len(pos); i++ {
		if pos[i]-pos[i-1] < minSep {
			return false
		}
	}
	return true
}

// selectMonotonic returns the longest subset of cands that is strictly
// increasing in both coordinates, as anchors ordered by book position.
// Candidates are sorted by book position (ties by script position, so the
// earliest pairing wins deterministically) and the longest strictly
// increasing subsequence of script positions is extracted with the patience
// algorithm, O(k log k).
func selectMonotonic(cands []candidate) []types.Anchor {
	if len(cands) == 0 {
		return []types.Anchor{}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].bookPos != cands[j].bookPos {
			return cands[i].bookPos < cands[j].bookPos
		}
		return cands[i].scriptPos < cands[j].scriptPos
	})

	// Drop duplicate book positions after the sort: a position can only host
	// one anchor, and the earlier script pairing is preferred.
	dedup := cands[:0]
	for i, c := range cands {
		if i > 0 && c.bookPos == dedup[len(dedup)-1].bookPos {
			continue
		}
		dedup = append(dedup, c)
	}
	cands = dedup

	// tails[k] is the index in cands of the smallest tail script position of
	// any increasing subsequence of length k+1.
	tails := make([]int, 0, len(cands))
	parent := make([]int, len(cands))
	for i, c := range cands {
		pos := sort.Search(len(tails), func(k int) bool {
			return cands[tails[k]].scriptPos >= c.scriptPos
		})
		if pos > 0 {
			parent[i] = tails[pos-1]
		} else {
			parent[i] = -1
		}
		if pos == len(tails) {
			tails = append(tails, i)
		} else {
			tails[pos] = i
		}
	}

	anchors := make([]types.Anchor, len(tails))
	at := tails[len(tails)-1]
	for k := len(tails) - 1; k >= 0; k-- {
		c := cands[at]
		anchors[k] = types.Anchor{BookPos: c.bookPos, ScriptPos: c.scriptPos, Length: c.length}
		at = parent[at]
	}
	return anchors
}
