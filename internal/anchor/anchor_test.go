package anchor_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/narralign/internal/anchor"
	"github.com/MrWong99/narralign/internal/textnorm"
	"github.com/MrWong99/narralign/pkg/types"
)

var bookWords = strings.Fields(
	"captain lowered brass telescope while silver river curved beneath ancient stone bridge",
)

func assertMonotonic(t *testing.T, anchors []types.Anchor) {
	t.Helper()
	for i := 1; i < len(anchors); i++ {
		prev, cur := anchors[i-1], anchors[i]
		if cur.BookPos <= prev.BookPos || cur.ScriptPos <= prev.ScriptPos {
			t.Fatalf("anchors[%d] = %+v does not strictly follow anchors[%d] = %+v", i, cur, i-1, prev)
		}
	}
}

func TestDiscover_OffsetStreams(t *testing.T) {
	t.Parallel()

	script := append([]string{"today", "we", "begin"}, bookWords...)
	anchors := anchor.Discover(bookWords, script, textnorm.DefaultStopwords(), anchor.DefaultConfig(), nil)

	if len(anchors) == 0 {
		t.Fatal("Discover found no anchors in an exact offset copy")
	}
	assertMonotonic(t, anchors)
	for _, a := range anchors {
		if a.ScriptPos != a.BookPos+3 {
			t.Errorf("anchor %+v: ScriptPos = %d, want BookPos+3 = %d", a, a.ScriptPos, a.BookPos+3)
		}
		if a.Length != 3 {
			t.Errorf("anchor %+v: Length = %d, want 3", a, a.Length)
		}
	}
}

func TestDiscover_Scope(t *testing.T) {
	t.Parallel()

	scope := &anchor.Scope{BookStart: 4, BookEnd: 11}
	anchors := anchor.Discover(bookWords, bookWords, textnorm.DefaultStopwords(), anchor.DefaultConfig(), scope)

	if len(anchors) == 0 {
		t.Fatal("Discover found no anchors inside the scope")
	}
	for _, a := range anchors {
		if a.BookPos < 4 || a.BookPos+a.Length-1 > 11 {
			t.Errorf("anchor %+v escapes scope [4, 11]", a)
		}
	}
}

func TestDiscover_CrossingCandidates(t *testing.T) {
	t.Parallel()

	// Swap the stream halves: every candidate from one half crosses every
	// candidate from the other, so only one half can survive selection.
	script := append(append([]string{}, bookWords[6:]...), bookWords[:6]...)
	anchors := anchor.Discover(bookWords, script, textnorm.DefaultStopwords(), anchor.DefaultConfig(), nil)

	if len(anchors) == 0 {
		t.Fatal("Discover found no anchors in half-swapped streams")
	}
	assertMonotonic(t, anchors)
}

func TestDiscover_NoAnchorableContent(t *testing.T) {
	t.Parallel()

	words := []string{"the", "and", "of", "to", "in", "a", "the", "and"}
	anchors := anchor.Discover(words, words, textnorm.DefaultStopwords(), anchor.DefaultConfig(), nil)

	if anchors == nil {
		t.Fatal("Discover returned nil, want empty slice")
	}
	if len(anchors) != 0 {
		t.Fatalf("Discover anchored on pure stop words: %+v", anchors)
	}
}

func TestDiscover_ZeroConfig(t *testing.T) {
	t.Parallel()

	script := append([]string{"today", "we", "begin"}, bookWords...)
	anchors := anchor.Discover(bookWords, script, textnorm.DefaultStopwords(), anchor.Config{}, nil)

	if len(anchors) == 0 {
		t.Fatal("Discover with a zero config found no anchors, want defaulted tunables")
	}
	assertMonotonic(t, anchors)
}

func TestDiscover_EmptyStreams(t *testing.T) {
	t.Parallel()

	if got := anchor.Discover(nil, nil, nil, anchor.DefaultConfig(), nil); got == nil || len(got) != 0 {
		t.Fatalf("Discover(nil, nil) = %v, want empty slice", got)
	}
	if got := anchor.Discover(bookWords, nil, nil, anchor.DefaultConfig(), nil); len(got) != 0 {
		t.Fatalf("Discover with empty script = %v, want empty slice", got)
	}
}
