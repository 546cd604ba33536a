// Package window partitions the manuscript/recognized ranges into
// contiguous, anchor-bounded windows.
//
// This is a pure, order-preserving partition: no alignment decision is made
// here. Each window runs from one token past the previous anchor up to and
// including the next anchor position; synthetic boundary anchors at
// (start-1, start-1) and (end+1, end+1) bound the first and last windows, so
// the final window's end coordinates are one past the outer bounds and the
// aligner clamps when slicing tokens.
package window

import "github.com/MrWong99/narralign/pkg/types"

// Bounds are the inclusive outer ranges a tiling must cover.
type Bounds struct {
	BookStart   int
	BookEnd     int
	ScriptStart int
	ScriptEnd   int
}

// Build returns the contiguous window tiling for anchors within b. Anchors
// must be ordered and strictly increasing in both coordinates (the anchor
// package guarantees this); anchors outside the bounds are dropped. An empty
// anchor list yields exactly one window spanning the whole range.
//
// The tiling invariant: window k+1 starts one token after window k ends on
// both coordinates, no position is omitted or duplicated, and the union of
// all windows covers the full bounds.
func Build(anchors []types.Anchor, b Bounds) []types.Window {
	prevBook, prevScript := b.BookStart-1, b.ScriptStart-1

	windows := make([]types.Window, 0, len(anchors)+1)
	for _, a := range anchors {
		if a.BookPos < b.BookStart || a.BookPos > b.BookEnd ||
			a.ScriptPos < b.ScriptStart || a.ScriptPos > b.ScriptEnd {
			continue
		}
		// A degenerate anchor (no progress on one coordinate) would break
		// the tiling; skip it rather than emit an inverted window.
		if a.BookPos <= prevBook || a.ScriptPos <= prevScript {
			continue
		}
		windows = append(windows, types.Window{
			BookStart:   prevBook + 1,
			BookEnd:     a.BookPos,
			ScriptStart: prevScript + 1,
			ScriptEnd:   a.ScriptPos,
		})
		prevBook, prevScript = a.BookPos, a.ScriptPos
	}

	// Closing synthetic anchor at (end+1, end+1).
	windows = append(windows, types.Window{
		BookStart:   prevBook + 1,
		BookEnd:     b.BookEnd + 1,
		ScriptStart: prevScript + 1,
		ScriptEnd:   b.ScriptEnd + 1,
	})
	return windows
}
