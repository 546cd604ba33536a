package window_test

import (
	"reflect"
	"testing"

	"github.com/MrWong99/narralign/internal/window"
	"github.com/MrWong99/narralign/pkg/types"
)

func TestBuild_Tiling(t *testing.T) {
	t.Parallel()

	anchors := []types.Anchor{
		{BookPos: 105, ScriptPos: 5, Length: 3},
		{BookPos: 112, ScriptPos: 14, Length: 3},
	}
	b := window.Bounds{BookStart: 100, BookEnd: 119, ScriptStart: 0, ScriptEnd: 24}

	got := window.Build(anchors, b)
	want := []types.Window{
		{BookStart: 100, BookEnd: 105, ScriptStart: 0, ScriptEnd: 5},
		{BookStart: 106, BookEnd: 112, ScriptStart: 6, ScriptEnd: 14},
		{BookStart: 113, BookEnd: 120, ScriptStart: 15, ScriptEnd: 25},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build() = %+v, want %+v", got, want)
	}
}

func TestBuild_NoAnchors(t *testing.T) {
	t.Parallel()

	b := window.Bounds{BookStart: 0, BookEnd: 9, ScriptStart: 0, ScriptEnd: 12}
	got := window.Build(nil, b)
	want := []types.Window{{BookStart: 0, BookEnd: 10, ScriptStart: 0, ScriptEnd: 13}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build(nil) = %+v, want %+v", got, want)
	}
}

func TestBuild_Contiguity(t *testing.T) {
	t.Parallel()

	anchors := []types.Anchor{
		{BookPos: 3, ScriptPos: 2, Length: 2},
		{BookPos: 8, ScriptPos: 9, Length: 2},
		{BookPos: 15, ScriptPos: 18, Length: 3},
	}
	b := window.Bounds{BookStart: 0, BookEnd: 20, ScriptStart: 0, ScriptEnd: 22}

	windows := window.Build(anchors, b)
	if len(windows) != len(anchors)+1 {
		t.Fatalf("got %d windows, want %d", len(windows), len(anchors)+1)
	}
	if windows[0].BookStart != b.BookStart || windows[0].ScriptStart != b.ScriptStart {
		t.Errorf("first window %+v does not start at the bounds", windows[0])
	}
	for i := 1; i < len(windows); i++ {
		prev, cur := windows[i-1], windows[i]
		if cur.BookStart != prev.BookEnd+1 || cur.ScriptStart != prev.ScriptEnd+1 {
			t.Errorf("window %d (%+v) is not contiguous with %+v", i, cur, prev)
		}
	}
	last := windows[len(windows)-1]
	if last.BookEnd != b.BookEnd+1 || last.ScriptEnd != b.ScriptEnd+1 {
		t.Errorf("last window %+v does not close the bounds", last)
	}
}

func TestBuild_DropsOutOfBoundsAnchors(t *testing.T) {
	t.Parallel()

	anchors := []types.Anchor{
		{BookPos: 1, ScriptPos: 1, Length: 2}, // before the book bound
		{BookPos: 6, ScriptPos: 4, Length: 2},
		{BookPos: 30, ScriptPos: 28, Length: 2}, // past both bounds
	}
	b := window.Bounds{BookStart: 5, BookEnd: 14, ScriptStart: 0, ScriptEnd: 11}

	got := window.Build(anchors, b)
	want := []types.Window{
		{BookStart: 5, BookEnd: 6, ScriptStart: 0, ScriptEnd: 4},
		{BookStart: 7, BookEnd: 15, ScriptStart: 5, ScriptEnd: 12},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build() = %+v, want %+v", got, want)
	}
}
