package textnorm_test

import (
	"testing"

	"github.com/MrWong99/narralign/internal/textnorm"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Hello,", "hello"},
		{"WORLD!", "world"},
		{"don’t", "dont"},
		{"don't", "dont"},
		{"“quoted”", "quoted"},
		{"well—known", "wellknown"},
		{"...", ""},
		{"—", ""},
		{"42nd", "42nd"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := textnorm.Canonicalize(tc.in); got != tc.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsPunct(t *testing.T) {
	t.Parallel()

	if !textnorm.IsPunct("—") {
		t.Error("IsPunct(em dash) = false, want true")
	}
	if textnorm.IsPunct("a—") {
		t.Error("IsPunct(\"a—\") = true, want false")
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	if got := textnorm.Distance("Hello,", "hello"); got != 0 {
		t.Errorf("Distance(punctuation-only difference) = %f, want 0", got)
	}
	if got := textnorm.Distance("cat", "dog"); got != 1 {
		t.Errorf("Distance(cat, dog) = %f, want 1", got)
	}
	got := textnorm.Distance("forest", "forrest")
	if got <= 0 || got >= 0.5 {
		t.Errorf("Distance(forest, forrest) = %f, want small but non-zero", got)
	}
}

func TestStopwords(t *testing.T) {
	t.Parallel()

	sw := textnorm.DefaultStopwords()
	if !sw.Contains("The") {
		t.Error(`Contains("The") = false, want true`)
	}
	if sw.Contains("forest") {
		t.Error(`Contains("forest") = true, want false`)
	}

	var nilSet textnorm.Stopwords
	if nilSet.Contains("the") {
		t.Error("nil Stopwords must contain nothing")
	}
}

func TestSpellingTable(t *testing.T) {
	t.Parallel()

	tab := textnorm.DefaultSpellingTable()
	if !tab.Equivalent("Colour", "color") {
		t.Error(`Equivalent("Colour", "color") = false, want true`)
	}
	if !tab.Equivalent("theatre", "Theater!") {
		t.Error(`Equivalent("theatre", "Theater!") = false, want true`)
	}
	if tab.Equivalent("colour", "flavor") {
		t.Error(`Equivalent("colour", "flavor") = true, want false`)
	}

	var nilTab textnorm.SpellingTable
	if nilTab.Equivalent("colour", "color") {
		t.Error("nil SpellingTable must report no equivalences")
	}
}

func TestSamePhonemes_MapLookup(t *testing.T) {
	t.Parallel()

	lookup := textnorm.MapLookup{
		"colour": "K AH1 L ER0",
		"color":  "K AH1 L ER0",
		"eight":  "EY1 T",
	}
	if !textnorm.SamePhonemes(lookup, "Colour", "color") {
		t.Error("SamePhonemes(colour, color) = false, want true")
	}
	if textnorm.SamePhonemes(lookup, "colour", "eight") {
		t.Error("SamePhonemes(colour, eight) = true, want false")
	}
	// Unknown words never match, and a nil lookup never matches.
	if textnorm.SamePhonemes(lookup, "colour", "unknown") {
		t.Error("SamePhonemes with unknown word = true, want false")
	}
	if textnorm.SamePhonemes(nil, "colour", "color") {
		t.Error("SamePhonemes(nil, ...) = true, want false")
	}
}

func TestMetaphoneLookup(t *testing.T) {
	t.Parallel()

	if !textnorm.SamePhonemes(textnorm.MetaphoneLookup{}, "night", "knight") {
		t.Error("SamePhonemes(night, knight) = false, want true")
	}
	if textnorm.SamePhonemes(textnorm.MetaphoneLookup{}, "forest", "window") {
		t.Error("SamePhonemes(forest, window) = true, want false")
	}
	if _, ok := (textnorm.MetaphoneLookup{}).Phonemes("..."); ok {
		t.Error("Phonemes(punctuation) reported a code, want none")
	}
}
