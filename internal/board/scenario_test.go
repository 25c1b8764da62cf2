package board

import (
	"testing"

	"github.com/hailam/gostone/internal/coord"
)

// playAll plays moves alternating from the current side to move, failing
// the test on the first illegal one.
func playAll(t *testing.T, b *Board, mode MoveMode, moves ...coord.Vertex) {
	t.Helper()
	for i, v := range moves {
		if !b.IsLegal(b.SideToMove, v) {
			t.Fatalf("move %d (%v for %v) is illegal", i, v, b.SideToMove)
		}
		b.MakeMove(mode, v)
	}
}

// TestKoScenario builds a real ko by capture and checks the full contract:
// the recapture is illegal immediately, and legal again after a pass.
func TestKoScenario(t *testing.T) {
	b := newTestBoard(t, 9)
	a := b.Coord.V(4, 4) // White's ko stone
	k := b.Coord.V(5, 4) // Black's capturing stone

	playAll(t, b, ModeOneWay,
		b.Coord.V(3, 4), // B, left of a
		b.Coord.V(6, 4), // W, right of k
		b.Coord.V(4, 3), // B, below a
		b.Coord.V(5, 3), // W, below k
		b.Coord.V(4, 5), // B, above a
		b.Coord.V(5, 5), // W, above k
		b.Coord.V(9, 9), // B, tenuki
		a,               // W plays into the mouth: one liberty at k
		k,               // B captures the single white stone
	)

	if b.Color(a) != coord.Empty {
		t.Fatalf("expected the white stone at the ko mouth to be captured")
	}
	if b.Ko() != a {
		t.Fatalf("ko point = %v, want %v", b.Ko(), a)
	}
	if b.IsLegal(coord.White, a) {
		t.Fatal("immediate ko recapture must be illegal")
	}

	// A pass clears the ko; after Black answers elsewhere, White may
	// recapture.
	b.MakeMove(ModeOneWay, coord.KPass) // W
	if b.Ko() != coord.KNull {
		t.Fatal("pass should clear the ko point")
	}
	b.MakeMove(ModeOneWay, b.Coord.V(9, 8)) // B tenuki
	if !b.IsLegal(coord.White, a) {
		t.Fatal("recapture must be legal again after a pass and an answer elsewhere")
	}
	b.MakeMove(ModeOneWay, a)
	if b.Color(k) != coord.Empty {
		t.Fatal("the recapture should take the black ko stone")
	}
	if b.Ko() != k {
		t.Fatalf("ko point after recapture = %v, want %v", b.Ko(), k)
	}
}

// TestNakadeResponseMoveAfterCapture captures an enclosed straight-three
// and expects the vital point in response slot 0 (spec.md section 4.4.4).
func TestNakadeResponseMoveAfterCapture(t *testing.T) {
	b := newTestBoard(t, 9)
	playAll(t, b, ModeOneWay,
		b.Coord.V(1, 2), // B
		b.Coord.V(1, 1), // W
		b.Coord.V(2, 2), // B
		b.Coord.V(2, 1), // W
		b.Coord.V(3, 2), // B
		b.Coord.V(3, 1), // W  -> white first-line three, one liberty at (4,1)
		b.Coord.V(5, 5), // B tenuki
		b.Coord.V(7, 7), // W tenuki
		b.Coord.V(4, 1), // B captures the three
	)

	if b.NumStones(coord.White) != 1 {
		t.Fatalf("expected only the tenuki white stone left, got %d", b.NumStones(coord.White))
	}
	vital := b.Coord.V(2, 1)
	if got := b.ResponseMove(RespNakadeVital); got != vital {
		t.Fatalf("nakade vital response = %v, want %v", got, vital)
	}
}

// TestSuperkoRepetitionDetected recreates a position with the same side to
// move and expects CheckRepetition to flag it under the SuperKo rule.
func TestSuperkoRepetitionDetected(t *testing.T) {
	b := newTestBoard(t, 9)
	// Two consecutive passes recreate the prior position with the same
	// side to move: stones unchanged, the two side-bit toggles cancel.
	b.MakeMove(ModeOneWay, coord.KPass)
	b.MakeMove(ModeOneWay, coord.KPass)
	if got := b.CheckRepetition(); got != RepLoseResult {
		t.Fatalf("CheckRepetition = %v, want RepLoseResult under SuperKo", got)
	}

	b2 := newTestBoard(t, 9)
	b2.RepRule = RepDraw
	b2.MakeMove(ModeOneWay, coord.KPass)
	b2.MakeMove(ModeOneWay, coord.KPass)
	if got := b2.CheckRepetition(); got != RepDrawResult {
		t.Fatalf("CheckRepetition = %v, want RepDrawResult under Draw rule", got)
	}
}

// TestUndoRoundTripAcrossCaptureSequence drives a capture through real
// moves in Reversible mode and verifies spec.md invariant I9: hash, group
// state, priors and empty-list bookkeeping all return exactly.
func TestUndoRoundTripAcrossCaptureSequence(t *testing.T) {
	b := newTestBoard(t, 9)
	playAll(t, b, ModeOneWay,
		b.Coord.V(4, 4), // B
		b.Coord.V(4, 5), // W
		b.Coord.V(3, 5), // B
		b.Coord.V(9, 9), // W tenuki
		b.Coord.V(5, 5), // B
		b.Coord.V(9, 8), // W tenuki
	)

	preHash := b.HashKey()
	preKeyHist := b.keyHistory
	preEmpty := b.NumEmpty()
	preProbs := append([]float64(nil), b.prob[0]...)

	// Black captures the white stone at (4,5) by filling its last liberty.
	capture := b.Coord.V(4, 6)
	playAll(t, b, ModeReversible, capture)
	if b.Color(b.Coord.V(4, 5)) != coord.Empty {
		t.Fatal("expected the white stone to be captured")
	}

	b.Undo()

	if b.HashKey() != preHash {
		t.Fatalf("hash not restored: %x vs %x", b.HashKey(), preHash)
	}
	if b.keyHistory != preKeyHist {
		t.Fatal("key history not restored")
	}
	if b.NumEmpty() != preEmpty {
		t.Fatalf("empty count not restored: %d vs %d", b.NumEmpty(), preEmpty)
	}
	if b.Color(b.Coord.V(4, 5)) != coord.White {
		t.Fatal("captured stone not resurrected")
	}
	for v := range preProbs {
		if b.prob[0][v] != preProbs[v] {
			t.Fatalf("rollout prior at %d not restored: %v vs %v", v, b.prob[0][v], preProbs[v])
		}
	}
	checkBoardInvariants(t, b)
}

// TestQuickUndoLeavesProbsUntouched plays and undoes a ModeQuick move (the
// ladder search's pattern) and checks the rollout-prior state is exactly
// what it was, since Quick mode is specified to skip prob maintenance.
func TestQuickUndoLeavesProbsUntouched(t *testing.T) {
	b := newTestBoard(t, 9)
	playAll(t, b, ModeOneWay, b.Coord.V(3, 3), b.Coord.V(7, 7))

	preP0 := append([]float64(nil), b.prob[0]...)
	preP1 := append([]float64(nil), b.prob[1]...)
	preRank := append([]float64(nil), b.sumProbRank[0]...)

	playAll(t, b, ModeQuick, b.Coord.V(5, 5))
	b.Undo()

	for v := range preP0 {
		if b.prob[0][v] != preP0[v] || b.prob[1][v] != preP1[v] {
			t.Fatalf("prior at %d changed across Quick make/undo", v)
		}
	}
	for i := range preRank {
		if b.sumProbRank[0][i] != preRank[i] {
			t.Fatalf("rank sum %d changed across Quick make/undo", i)
		}
	}
}

// TestReplayReproducesPositionAndHash is the incremental-vs-scratch Zobrist
// law from spec.md section 8: replaying a recorded move list from scratch
// lands on the identical hash and board.
func TestReplayReproducesPositionAndHash(t *testing.T) {
	b := newTestBoard(t, 9)
	playAll(t, b, ModeOneWay,
		b.Coord.V(3, 3), b.Coord.V(7, 7), b.Coord.V(3, 7), coord.KPass,
		b.Coord.V(7, 3), b.Coord.V(5, 5),
	)
	wantHash := b.HashKey()
	wantSide := b.SideToMove
	history := b.MoveHistory()

	b2 := newTestBoard(t, 9)
	if err := b2.Replay(history); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if b2.HashKey() != wantHash {
		t.Fatalf("replayed hash %x != original %x", b2.HashKey(), wantHash)
	}
	if b2.SideToMove != wantSide {
		t.Fatal("replayed side to move differs")
	}
	b.Coord.Walk(func(v coord.Vertex) {
		if b.Color(v) != b2.Color(v) {
			t.Fatalf("replayed board differs at %v", v)
		}
	})
}

// TestSymmetricHashesIdentityLaw checks the law the eval-cache probe
// relies on: the identity symmetry's hash equals the incrementally
// maintained key, including side-to-move and ko contributions.
func TestSymmetricHashesIdentityLaw(t *testing.T) {
	b := newTestBoard(t, 9)
	playAll(t, b, ModeOneWay,
		b.Coord.V(3, 3), b.Coord.V(7, 7), b.Coord.V(5, 5),
	)
	if got := b.SymmetricHashes()[0]; got != b.HashKey() {
		t.Fatalf("identity symmetric hash %x != HashKey %x", got, b.HashKey())
	}

	// A rotated move sequence must land on the corresponding rotated hash.
	b2 := newTestBoard(t, 9)
	rot := func(v coord.Vertex) coord.Vertex {
		return b.Coord.FromRaw(b.Coord.Symmetry(b.Coord.ToRaw(v), 1))
	}
	playAll(t, b2, ModeOneWay,
		rot(b.Coord.V(3, 3)), rot(b.Coord.V(7, 7)), rot(b.Coord.V(5, 5)),
	)
	if b.SymmetricHashes()[1] != b2.HashKey() {
		t.Fatalf("rotated-sequence hash mismatch: %x vs %x",
			b.SymmetricHashes()[1], b2.HashKey())
	}
}

// TestLadderEscapesFindsSecondLineEscape sets up a chased group whose
// extension reaches three liberties at once: LadderEscapes must offer that
// point, and the ladder-escape contract is exactly "extending there works".
func TestLadderEscapesFindsSecondLineEscape(t *testing.T) {
	b := newTestBoard(t, 9)
	// Black (5,5) in atari, sole liberty (5,4); extending to (5,4) yields
	// liberties (4,4),(6,4),(5,3): an immediate escape.
	placeStone(b, b.Coord.V(5, 5), coord.Black, []coord.Vertex{b.Coord.V(5, 4)})
	placeStone(b, b.Coord.V(4, 5), coord.White, []coord.Vertex{b.Coord.V(4, 4), b.Coord.V(3, 5), b.Coord.V(4, 6)})
	placeStone(b, b.Coord.V(6, 5), coord.White, []coord.Vertex{b.Coord.V(6, 4), b.Coord.V(7, 5), b.Coord.V(6, 6)})
	placeStone(b, b.Coord.V(5, 6), coord.White, []coord.Vertex{b.Coord.V(4, 6), b.Coord.V(6, 6), b.Coord.V(5, 7)})
	b.rebuildPatterns()

	escapes := b.LadderEscapes(4)
	if !escapes[b.Coord.V(5, 4)] {
		t.Fatalf("expected (5,4) in the ladder-escape set, got %v", escapes)
	}
}

// checkBoardInvariants asserts the quantified invariants from spec.md
// section 8: empty-list consistency, group ring sizes, and exact liberty
// sets.
func checkBoardInvariants(t *testing.T, b *Board) {
	t.Helper()

	// |empty_list| equals the number of empty vertices, and
	// empty_id[empty[i]] == i.
	emptyCount := 0
	b.Coord.Walk(func(v coord.Vertex) {
		if b.Color(v) == coord.Empty {
			emptyCount++
		}
	})
	if emptyCount != b.NumEmpty() {
		t.Fatalf("empty-list count %d != actual empties %d", b.NumEmpty(), emptyCount)
	}
	for i := 0; i < b.NumEmpty(); i++ {
		if b.emptyID[b.emptyList[i]] != i {
			t.Fatalf("emptyID[emptyList[%d]] = %d", i, b.emptyID[b.emptyList[i]])
		}
	}

	seen := map[coord.Vertex]bool{}
	b.Coord.Walk(func(v coord.Vertex) {
		c := b.Color(v)
		if c != coord.Black && c != coord.White {
			return
		}
		rep := b.sgID[v]
		if seen[rep] {
			return
		}
		seen[rep] = true
		g := b.groups[rep]

		// num_stones equals the ring length from any representative.
		ringLen := 0
		cur := rep
		for {
			ringLen++
			if b.sgID[cur] != rep {
				t.Fatalf("ring member %v has sgID %v, want %v", cur, b.sgID[cur], rep)
			}
			cur = b.nextV[cur]
			if cur == rep {
				break
			}
			if ringLen > b.Coord.NumVtx {
				t.Fatal("next_v ring does not close")
			}
		}
		if ringLen != g.NumStones() {
			t.Fatalf("group at %v: ring length %d != numStones %d", rep, ringLen, g.NumStones())
		}

		// The liberty bitboard is exactly the set of empty 4-neighbours of
		// the group's stones.
		want := map[coord.Vertex]bool{}
		cur = rep
		for i := 0; i < ringLen; i++ {
			for _, nv := range b.Coord.Neighbors4(cur) {
				if b.Coord.OnBoard(nv) && b.Color(nv) == coord.Empty {
					want[nv] = true
				}
			}
			cur = b.nextV[cur]
		}
		if g.NumLiberties() != len(want) {
			t.Fatalf("group at %v: %d liberties recorded, %d actual", rep, g.NumLiberties(), len(want))
		}
		g.liberties.Iter(func(lv coord.Vertex) {
			if !want[lv] {
				t.Fatalf("group at %v: stale liberty %v", rep, lv)
			}
		})
	})
}

// TestInvariantsHoldAcrossRandomishGame drives a fixed mid-length move
// sequence with merges and checks every invariant at the end.
func TestInvariantsHoldAcrossRandomishGame(t *testing.T) {
	b := newTestBoard(t, 9)
	playAll(t, b, ModeOneWay,
		b.Coord.V(3, 3), b.Coord.V(7, 7), b.Coord.V(3, 4), b.Coord.V(7, 6),
		b.Coord.V(4, 4), b.Coord.V(6, 6), b.Coord.V(4, 3), b.Coord.V(6, 7),
		b.Coord.V(5, 3), b.Coord.V(5, 7), b.Coord.V(3, 5), b.Coord.V(7, 5),
	)
	checkBoardInvariants(t, b)
}
