// Package textnorm provides the canonical word keys and optional lookup
// collaborators shared by anchor discovery and window alignment.
//
// Canonicalization must be applied identically to manuscript and recognized
// tokens for any downstream comparison to be meaningful: lowercase, strip
// punctuation, and fold typographic quotes and dashes to their ASCII forms.
// A word whose canonical key is empty is pure punctuation and is ignorable
// for cost purposes.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// typographic folds smart quotes, dashes, and the ellipsis to ASCII before
// canonicalization so that "don’t" and "don't" produce the same key.
var typographic = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...",
	" ", " ",
)

// Canonicalize returns the comparable key for word: typography folded,
// lowercased, with every non-letter, non-digit rune removed. The empty
// string means word is pure punctuation.
func Canonicalize(word string) string {
	folded := typographic.Replace(word)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// CanonicalizeAll maps Canonicalize over words.
func CanonicalizeAll(words []string) []string {
	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = Canonicalize(w)
	}
	return keys
}

// IsPunct reports whether word carries no letters or digits.
func IsPunct(word string) bool {
	return Canonicalize(word) == ""
}

// Distance returns the Levenshtein distance between the canonical keys of a
// and b, normalized by the longer key length. The result is in [0, 1]; 0
// means the keys are identical (including both empty).
func Distance(a, b string) float64 {
	ca, cb := Canonicalize(a), Canonicalize(b)
	longest := max(len(ca), len(cb))
	if longest == 0 {
		return 0
	}
	return float64(matchr.Levenshtein(ca, cb)) / float64(longest)
}

// Stopwords is a set of canonical words too generic to anchor on.
type Stopwords map[string]struct{}

// Contains reports whether the canonical form of word is in the set. A nil
// set contains nothing, so an absent stop-word list degrades quality without
// failing.
func (s Stopwords) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s[Canonicalize(word)]
	return ok
}

// DefaultStopwords returns the built-in English stop-word set used to filter
// n-gram anchor candidates.
func DefaultStopwords() Stopwords {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "than",
		"of", "in", "on", "at", "to", "for", "with", "from", "by",
		"as", "is", "was", "are", "were", "be", "been", "being",
		"he", "she", "it", "they", "we", "you", "i", "his", "her",
		"its", "their", "our", "your", "my", "him", "them", "us", "me",
		"that", "this", "these", "those", "there", "here",
		"not", "no", "so", "do", "did", "had", "has", "have",
		"what", "when", "where", "who", "which", "how", "all", "said",
	}
	s := make(Stopwords, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// SpellingTable maps known confusable spelling variants (typically US/UK
// pairs) onto a shared canonical form. Both directions of a pair resolve to
// the same value.
type SpellingTable map[string]string

// Equivalent reports whether the canonical keys of a and b are known
// spelling variants of the same word. A nil table reports false for
// everything.
func (t SpellingTable) Equivalent(a, b string) bool {
	if t == nil {
		return false
	}
	ca, cb := Canonicalize(a), Canonicalize(b)
	if ca == "" || cb == "" {
		return false
	}
	ra, ok := t[ca]
	if !ok {
		ra = ca
	}
	rb, ok := t[cb]
	if !ok {
		rb = cb
	}
	return ra == rb
}

// DefaultSpellingTable returns the built-in US/UK spelling variant table.
func DefaultSpellingTable() SpellingTable {
	pairs := [][2]string{
		{"colour", "color"},
		{"favour", "favor"},
		{"flavour", "flavor"},
		{"honour", "honor"},
		{"armour", "armor"},
		{"labour", "labor"},
		{"neighbour", "neighbor"},
		{"rumour", "rumor"},
		{"grey", "gray"},
		{"theatre", "theater"},
		{"centre", "center"},
		{"metre", "meter"},
		{"litre", "liter"},
		{"fibre", "fiber"},
		{"defence", "defense"},
		{"offence", "offense"},
		{"licence", "license"},
		{"practise", "practice"},
		{"travelling", "traveling"},
		{"travelled", "traveled"},
		{"cancelled", "canceled"},
		{"jewellery", "jewelry"},
		{"realise", "realize"},
		{"realised", "realized"},
		{"recognise", "recognize"},
		{"recognised", "recognized"},
		{"apologise", "apologize"},
		{"organise", "organize"},
		{"analyse", "analyze"},
		{"plough", "plow"},
		{"mould", "mold"},
		{"smoulder", "smolder"},
		{"ageing", "aging"},
		{"judgement", "judgment"},
		{"towards", "toward"},
	}
	t := make(SpellingTable, len(pairs)*2)
	for _, p := range pairs {
		t[p[0]] = p[1]
		t[p[1]] = p[1]
	}
	return t
}

// PhonemeLookup resolves a word to its phoneme transcription. It is an
// optional collaborator: a nil lookup simply yields fewer zero-cost
// equivalences, never a failure.
type PhonemeLookup interface {
	// Phonemes returns the transcription for word and whether one is known.
	Phonemes(word string) (string, bool)
}

// MapLookup is a PhonemeLookup backed by a pre-built dictionary (for example
// CMUdict entries keyed by canonical word).
type MapLookup map[string]string

// Phonemes implements PhonemeLookup.
func (m MapLookup) Phonemes(word string) (string, bool) {
	p, ok := m[Canonicalize(word)]
	return p, ok
}

// MetaphoneLookup is a PhonemeLookup that derives a coarse phonetic code
// from the word itself using Double Metaphone. It is the built-in fallback
// when no phoneme dictionary is supplied; codes are coarser than real
// transcriptions, so callers should combine it with a similarity check
// rather than trust code equality alone.
type MetaphoneLookup struct{}

// Phonemes implements PhonemeLookup using the primary Double Metaphone code.
func (MetaphoneLookup) Phonemes(word string) (string, bool) {
	key := Canonicalize(word)
	if key == "" {
		return "", false
	}
	primary, _ := matchr.DoubleMetaphone(key)
	if primary == "" {
		return "", false
	}
	return primary, true
}

// SamePhonemes reports whether lookup knows both words and their
// transcriptions are identical. A nil lookup reports false.
func SamePhonemes(lookup PhonemeLookup, a, b string) bool {
	if lookup == nil {
		return false
	}
	pa, ok := lookup.Phonemes(a)
	if !ok {
		return false
	}
	pb, ok := lookup.Phonemes(b)
	if !ok {
		return false
	}
	return pa != "" && pa == pb
}
