package wordalign_test

import (
	"reflect"
	"testing"

	"github.com/MrWong99/narralign/internal/textnorm"
	"github.com/MrWong99/narralign/internal/wordalign"
	"github.com/MrWong99/narralign/pkg/types"
)

func bookTokens(words ...string) []types.BookToken {
	toks := make([]types.BookToken, len(words))
	for i, w := range words {
		toks[i] = types.BookToken{Text: w, WordIndex: i}
	}
	return toks
}

func scriptTokens(words ...string) []types.ScriptToken {
	toks := make([]types.ScriptToken, len(words))
	for i, w := range words {
		toks[i] = types.ScriptToken{Word: w, Start: float64(i) * 0.5, Duration: 0.4}
	}
	return toks
}

func fullWindow(book []types.BookToken, script []types.ScriptToken) types.Window {
	return types.Window{BookStart: 0, BookEnd: len(book) - 1, ScriptStart: 0, ScriptEnd: len(script) - 1}
}

func kinds(ops []types.WordOp) []types.OpKind {
	ks := make([]types.OpKind, len(ops))
	for i, op := range ops {
		ks[i] = op.Kind
	}
	return ks
}

func TestAlign_SingleSubstitution(t *testing.T) {
	t.Parallel()

	book := bookTokens("the", "black", "forest", "was", "dark")
	script := scriptTokens("the", "black", "forest", "felt", "dark")

	ops := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())

	want := []types.OpKind{types.OpMatch, types.OpMatch, types.OpMatch, types.OpSubstitute, types.OpMatch}
	if got := kinds(ops); !reflect.DeepEqual(got, want) {
		t.Fatalf("op kinds = %v, want %v", got, want)
	}
	sub := ops[3]
	if sub.BookIndex != 3 || sub.ScriptIndex != 3 {
		t.Errorf("substitution at (%d, %d), want (3, 3)", sub.BookIndex, sub.ScriptIndex)
	}
	if sub.Class != types.ClassNear {
		t.Errorf("substitution class = %v, want %v", sub.Class, types.ClassNear)
	}
	if sub.Cost != 1.0 {
		t.Errorf("substitution cost = %f, want 1.0", sub.Cost)
	}
	for _, op := range ops[:3] {
		if op.Cost != 0 || op.Class != types.ClassEqual {
			t.Errorf("match op %+v should be a zero-cost equal", op)
		}
	}
}

func TestAlign_HomophoneLookup(t *testing.T) {
	t.Parallel()

	book := bookTokens("ate")
	script := scriptTokens("eight")
	opts := wordalign.Options{
		Phonemes: textnorm.MapLookup{"ate": "EY1 T", "eight": "EY1 T"},
	}

	ops := wordalign.Align(book, script, fullWindow(book, script), opts)
	if len(ops) != 1 || ops[0].Kind != types.OpMatch || ops[0].Cost != 0 {
		t.Fatalf("ops = %+v, want one zero-cost match", ops)
	}

	// Without the lookup the pair is an ordinary substitution.
	ops = wordalign.Align(book, script, fullWindow(book, script), wordalign.Options{})
	if len(ops) != 1 || ops[0].Kind != types.OpSubstitute {
		t.Fatalf("ops without lookup = %+v, want one substitution", ops)
	}
}

func TestAlign_SpellingVariant(t *testing.T) {
	t.Parallel()

	book := bookTokens("colour")
	script := scriptTokens("color")

	ops := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())
	if len(ops) != 1 || ops[0].Kind != types.OpMatch || ops[0].Cost != 0 {
		t.Fatalf("ops = %+v, want one zero-cost match", ops)
	}
}

func TestAlign_CompoundMerge(t *testing.T) {
	t.Parallel()

	t.Run("split in speech", func(t *testing.T) {
		t.Parallel()
		book := bookTokens("the", "dropship", "landed")
		script := scriptTokens("the", "drop", "ship", "landed")

		ops := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())
		want := []types.OpKind{types.OpMatch, types.OpMatch, types.OpMatch}
		if got := kinds(ops); !reflect.DeepEqual(got, want) {
			t.Fatalf("op kinds = %v, want %v", got, want)
		}
		merged := ops[1]
		if merged.BookIndex != 1 || merged.ScriptIndex != 1 || merged.Cost != 0 {
			t.Errorf("merged op = %+v, want zero-cost match at book 1, script 1", merged)
		}
	})

	t.Run("joined in speech", func(t *testing.T) {
		t.Parallel()
		book := bookTokens("the", "drop", "ship", "landed")
		script := scriptTokens("the", "dropship", "landed")

		ops := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())
		want := []types.OpKind{types.OpMatch, types.OpMatch, types.OpMatch}
		if got := kinds(ops); !reflect.DeepEqual(got, want) {
			t.Fatalf("op kinds = %v, want %v", got, want)
		}
		if ops[1].BookIndex != 1 || ops[1].ScriptIndex != 1 {
			t.Errorf("merged op = %+v, want book 1, script 1", ops[1])
		}
	})
}

func TestAlign_PunctuationGapIsFree(t *testing.T) {
	t.Parallel()

	book := bookTokens("night", "—", "fell")
	script := scriptTokens("night", "fell")

	ops := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())
	want := []types.OpKind{types.OpMatch, types.OpDelete, types.OpMatch}
	if got := kinds(ops); !reflect.DeepEqual(got, want) {
		t.Fatalf("op kinds = %v, want %v", got, want)
	}
	if ops[1].Cost != 0 {
		t.Errorf("punctuation delete cost = %f, want 0", ops[1].Cost)
	}
	if ops[1].Class != types.ClassMissing {
		t.Errorf("delete class = %v, want %v", ops[1].Class, types.ClassMissing)
	}
}

func TestAlign_WindowIndicesAreGlobal(t *testing.T) {
	t.Parallel()

	book := bookTokens("a", "b", "c", "same", "words", "here")
	script := scriptTokens("x", "y", "z", "same", "words", "here")
	// End coordinates one past the arrays, as the closing tile produces.
	w := types.Window{BookStart: 3, BookEnd: 6, ScriptStart: 3, ScriptEnd: 6}

	ops := wordalign.Align(book, script, w, wordalign.DefaultOptions())
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3", len(ops))
	}
	for i, op := range ops {
		if op.Kind != types.OpMatch {
			t.Errorf("op %d kind = %v, want match", i, op.Kind)
		}
		if op.BookIndex != 3+i || op.ScriptIndex != 3+i {
			t.Errorf("op %d at (%d, %d), want (%d, %d)", i, op.BookIndex, op.ScriptIndex, 3+i, 3+i)
		}
	}
}

func TestAlign_GreedyMatchesDP(t *testing.T) {
	t.Parallel()

	book := bookTokens("the", "black", "forest", "was", "dark", "and", "silent")
	script := scriptTokens("the", "black", "uh", "forest", "was", "dark", "and", "silent")

	dpOps := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())

	greedy := wordalign.DefaultOptions()
	greedy.MaxDPCells = 1
	greedyOps := wordalign.Align(book, script, fullWindow(book, script), greedy)

	if !reflect.DeepEqual(dpOps, greedyOps) {
		t.Errorf("greedy ops diverge from DP ops:\n greedy: %+v\n dp:     %+v", greedyOps, dpOps)
	}
	want := []types.OpKind{
		types.OpMatch, types.OpMatch, types.OpInsert, types.OpMatch,
		types.OpMatch, types.OpMatch, types.OpMatch, types.OpMatch,
	}
	if got := kinds(dpOps); !reflect.DeepEqual(got, want) {
		t.Errorf("op kinds = %v, want %v", got, want)
	}
}

func TestAlign_GreedyTerminatesOnDisjointStreams(t *testing.T) {
	t.Parallel()

	book := bookTokens("alpha", "bravo", "charlie", "delta")
	script := scriptTokens("one", "two", "three", "four", "five", "six")

	opts := wordalign.DefaultOptions()
	opts.MaxDPCells = 1
	opts.MetaphoneFallback = false
	ops := wordalign.Align(book, script, fullWindow(book, script), opts)

	// Forced substitutions consume both streams, then trailing inserts.
	var books, scripts int
	for _, op := range ops {
		if op.BookIndex >= 0 {
			books++
		}
		if op.ScriptIndex >= 0 {
			scripts++
		}
	}
	if books != len(book) || scripts != len(script) {
		t.Errorf("ops consumed %d book and %d script tokens, want %d and %d", books, scripts, len(book), len(script))
	}
}

func TestAlign_Idempotent(t *testing.T) {
	t.Parallel()

	book := bookTokens("the", "silver", "river", "curved", "beneath", "the", "bridge")
	script := scriptTokens("the", "silver", "river", "curled", "beneath", "bridge")

	first := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())
	second := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated alignment diverged:\n first:  %+v\n second: %+v", first, second)
	}
}

func TestMarkAnchors(t *testing.T) {
	t.Parallel()

	book := bookTokens("the", "black", "forest", "was", "dark")
	script := scriptTokens("the", "black", "forest", "felt", "dark")
	ops := wordalign.Align(book, script, fullWindow(book, script), wordalign.DefaultOptions())

	wordalign.MarkAnchors(ops, map[int]struct{}{1: {}, 2: {}, 3: {}})

	for _, op := range ops {
		switch op.BookIndex {
		case 1, 2:
			if op.Class != types.ClassAnchor {
				t.Errorf("op %+v class = %v, want %v", op, op.Class, types.ClassAnchor)
			}
		case 3:
			// Substitution: never promoted even inside an anchor span.
			if op.Class != types.ClassNear {
				t.Errorf("op %+v class = %v, want %v", op, op.Class, types.ClassNear)
			}
		default:
			if op.Class != types.ClassEqual {
				t.Errorf("op %+v class = %v, want %v", op, op.Class, types.ClassEqual)
			}
		}
	}
}
