package board

import (
	"testing"

	"github.com/hailam/gostone/internal/coord"
)

// placeStone drops a single-stone group of color c at v with exactly libs
// as its liberty set, mirroring board_test.go's low-level construction
// style for hand-built positions.
func placeStone(b *Board, v coord.Vertex, c coord.Color, libs []coord.Vertex) {
	b.color[v] = c
	b.removeEmpty(v)
	b.numStonesBy[colorIdx(c)]++
	b.groups[v].numStones = 1
	b.groups[v].liberties.Clear()
	for _, lv := range libs {
		b.groups[v].AddLiberty(lv)
	}
	b.groups[v].RecomputeAtariVertex()
}

func TestTryLadderRejectsOffBoardOrExhaustedDepth(t *testing.T) {
	b := newTestBoard(t, 9)
	if b.tryLadder(coord.KNull, coord.Black, 10) {
		t.Fatalf("expected an off-board escape liberty to fail immediately")
	}
	v := b.Coord.V(5, 5)
	if b.tryLadder(v, coord.Black, 0) {
		t.Fatalf("expected a zero-depth budget to fail immediately")
	}
}

// TestLadderAtEdgeFailsToEscape builds a one-wide corridor against the
// board edge (spec.md section 4.4.5's natural-escape branch): a black
// stone in atari with its only liberty on the edge column, walled in on
// the other three sides. Extending along the edge gains only two
// liberties, and since the corridor is one point wide only, the very next
// chase move brings it straight back down to a single liberty - there is
// no room to ever reach three, so the ladder fails.
func TestLadderAtEdgeFailsToEscape(t *testing.T) {
	b := newTestBoard(t, 9)

	black := b.Coord.V(2, 5)
	w1, w2, w3 := b.Coord.V(2, 4), b.Coord.V(2, 6), b.Coord.V(3, 5)

	placeStone(b, black, coord.Black, []coord.Vertex{b.Coord.V(1, 5)})
	placeStone(b, w1, coord.White, []coord.Vertex{b.Coord.V(2, 3), b.Coord.V(1, 4), b.Coord.V(3, 4)})
	placeStone(b, w2, coord.White, []coord.Vertex{b.Coord.V(2, 7), b.Coord.V(1, 6), b.Coord.V(3, 6)})
	placeStone(b, w3, coord.White, []coord.Vertex{b.Coord.V(3, 4), b.Coord.V(3, 6), b.Coord.V(4, 5)})
	b.rebuildPatterns()

	if b.tryLadder(b.Coord.V(1, 5), coord.Black, 10) {
		t.Fatalf("expected the edge-corridor ladder to fail to escape")
	}
}

// TestLadderCaptureEscapeSucceeds builds the capture-escape branch spec.md
// section 4.4.5 adds ahead of the natural escape: a black stone in atari
// has an opponent neighbour that is itself in atari. Capturing it leaves the
// chased group two liberties, and whichever one the chaser ataris on, the
// group escapes through the other.
func TestLadderCaptureEscapeSucceeds(t *testing.T) {
	b := newTestBoard(t, 9)

	black := b.Coord.V(5, 5)
	shield1, shield2 := b.Coord.V(5, 6), b.Coord.V(6, 5)
	capturable := b.Coord.V(4, 5)
	blockerA, blockerB := b.Coord.V(4, 6), b.Coord.V(3, 5)
	anchor := b.Coord.V(4, 4)

	placeStone(b, black, coord.Black, []coord.Vertex{b.Coord.V(5, 4)})
	placeStone(b, shield1, coord.White, []coord.Vertex{b.Coord.V(5, 7), b.Coord.V(6, 6)})
	placeStone(b, shield2, coord.White, []coord.Vertex{b.Coord.V(6, 4), b.Coord.V(6, 6), b.Coord.V(7, 5)})
	placeStone(b, capturable, coord.White, []coord.Vertex{anchor})
	placeStone(b, blockerA, coord.Black, []coord.Vertex{b.Coord.V(4, 7), b.Coord.V(3, 6)})
	placeStone(b, blockerB, coord.Black, []coord.Vertex{b.Coord.V(3, 4), b.Coord.V(3, 6), b.Coord.V(2, 5)})
	// anchor (4,4) stays empty: it is White's sole liberty (the capture
	// point), only becoming a black stone when tryLadder actually plays
	// the capturing move.
	b.rebuildPatterns()

	if !b.tryLadder(b.Coord.V(5, 4), coord.Black, 10) {
		t.Fatalf("expected the capture-escape branch to let the atari group escape")
	}
}
