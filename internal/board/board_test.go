package board

import (
	"testing"

	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/pattern"
)

func newTestBoard(t *testing.T, size int) *Board {
	t.Helper()
	ct, err := coord.NewTable(size)
	if err != nil {
		t.Fatalf("coord.NewTable(%d): %v", size, err)
	}
	pat := pattern.NewTables()
	resp := pattern.NewRespTables()
	return New(ct, pat, resp, 7.5, RuleChinese, RepSuperKo)
}

func TestInitEmptyPosition(t *testing.T) {
	b := newTestBoard(t, 9)
	if b.NumStones(coord.Black) != 0 || b.NumStones(coord.White) != 0 {
		t.Fatalf("expected an empty board, got %d black %d white", b.NumStones(coord.Black), b.NumStones(coord.White))
	}
	if b.NumEmpty() != 81 {
		t.Fatalf("expected 81 empty vertices, got %d", b.NumEmpty())
	}
	if b.SideToMove != coord.Black {
		t.Fatalf("expected Black to move first")
	}
}

func TestMakeMoveUpdatesGroupsAndLiberties(t *testing.T) {
	b := newTestBoard(t, 9)
	v := b.Coord.V(5, 5)
	b.MakeMove(ModeOneWay, v)

	if b.Color(v) != coord.Black {
		t.Fatalf("expected a black stone at 5,5")
	}
	if b.NumStones(coord.Black) != 1 {
		t.Fatalf("expected 1 black stone, got %d", b.NumStones(coord.Black))
	}
	if got := b.Group(v).NumLiberties(); got != 4 {
		t.Fatalf("expected 4 liberties for a stone in the center, got %d", got)
	}
	if b.SideToMove != coord.White {
		t.Fatalf("expected White to move after Black's move")
	}
}

func TestCaptureRemovesGroupAndOpensLiberties(t *testing.T) {
	b := newTestBoard(t, 9)
	// Surround a single white stone at (5,5) with black, capturing it.
	white := b.Coord.V(5, 5)
	b.color[white] = coord.White
	b.removeEmpty(white)
	b.numStonesBy[1]++
	b.groups[white].numStones = 1
	b.groups[white].liberties.Clear()
	for _, nv := range b.Coord.Neighbors4(white) {
		b.groups[white].AddLiberty(nv)
	}
	b.rebuildPatterns()

	plays := []coord.Vertex{b.Coord.V(5, 4), b.Coord.V(4, 5), b.Coord.V(6, 5), b.Coord.V(5, 6)}
	// Alternate a throwaway Black move and White pass isn't needed here: just
	// force SideToMove so every surrounding play is Black's.
	for _, v := range plays {
		b.SideToMove = coord.Black
		b.MakeMove(ModeOneWay, v)
	}

	if b.Color(white) != coord.Empty {
		t.Fatalf("expected the surrounded white stone to be captured")
	}
	if b.NumStones(coord.White) != 0 {
		t.Fatalf("expected 0 white stones after capture, got %d", b.NumStones(coord.White))
	}
}

func TestNoKoAfterCaptureFreeMove(t *testing.T) {
	b := newTestBoard(t, 9)
	// Classic corner ko shape is fiddly to hand-build; instead verify the
	// Ko field is cleared/set consistently across a capture-less move.
	v := b.Coord.V(3, 3)
	b.MakeMove(ModeOneWay, v)
	if b.Ko() != coord.KNull {
		t.Fatalf("expected no ko after a capture-free move")
	}
}

func TestUndoRestoresExactState(t *testing.T) {
	b := newTestBoard(t, 9)
	v1 := b.Coord.V(3, 3)
	b.MakeMove(ModeOneWay, v1)

	preHash := b.hashKey
	preSide := b.SideToMove
	preEmpty := b.NumEmpty()
	preStonesB, preStonesW := b.NumStones(coord.Black), b.NumStones(coord.White)

	v2 := b.Coord.V(7, 7)
	b.MakeMove(ModeReversible, v2)
	b.Undo()

	if b.hashKey != preHash {
		t.Fatalf("hash not restored: got %x want %x", b.hashKey, preHash)
	}
	if b.SideToMove != preSide {
		t.Fatalf("side to move not restored")
	}
	if b.NumEmpty() != preEmpty {
		t.Fatalf("empty count not restored: got %d want %d", b.NumEmpty(), preEmpty)
	}
	if b.NumStones(coord.Black) != preStonesB || b.NumStones(coord.White) != preStonesW {
		t.Fatalf("stone counts not restored")
	}
	if b.Color(v2) != coord.Empty {
		t.Fatalf("expected v2 to be empty again after undo")
	}
}

func TestUndoAfterCaptureResurrectsGroup(t *testing.T) {
	b := newTestBoard(t, 9)
	white := b.Coord.V(5, 5)
	b.color[white] = coord.White
	b.removeEmpty(white)
	b.numStonesBy[1]++
	b.groups[white].numStones = 1
	b.groups[white].liberties.Clear()
	for _, nv := range b.Coord.Neighbors4(white) {
		b.groups[white].AddLiberty(nv)
	}
	b.rebuildPatterns()

	b.SideToMove = coord.Black
	b.MakeMove(ModeOneWay, b.Coord.V(5, 4))
	b.SideToMove = coord.Black
	b.MakeMove(ModeOneWay, b.Coord.V(4, 5))
	b.SideToMove = coord.Black
	b.MakeMove(ModeReversible, b.Coord.V(6, 5))

	b.SideToMove = coord.Black
	b.MakeMove(ModeReversible, b.Coord.V(5, 6))
	if b.Color(white) != coord.Empty {
		t.Fatalf("expected capture to have happened")
	}

	b.Undo()
	if b.Color(white) != coord.White {
		t.Fatalf("expected undo to resurrect the captured white stone")
	}
	if b.groupAt(white).NumLiberties() != 1 {
		t.Fatalf("expected the resurrected group to have its pre-capture single liberty back, got %d", b.groupAt(white).NumLiberties())
	}
}

func TestPassIncrementsCounterAndFlipsSide(t *testing.T) {
	b := newTestBoard(t, 9)
	b.MakeMove(ModeOneWay, coord.KPass)
	if b.numPasses[0] != 1 {
		t.Fatalf("expected Black's pass counter to be 1, got %d", b.numPasses[0])
	}
	if b.SideToMove != coord.White {
		t.Fatalf("expected White to move after Black passes")
	}
}

func TestIsEyeRecognizesSurroundedPoint(t *testing.T) {
	b := newTestBoard(t, 9)
	center := b.Coord.V(5, 5)
	for _, nv := range b.Coord.Neighbors4(center) {
		b.color[nv] = coord.Black
	}
	n8 := b.Coord.Neighbors8(center)
	for _, nv := range n8[4:8] {
		b.color[nv] = coord.Black
	}
	for v := 0; v < b.Coord.NumVtx; v++ {
		vv := coord.Vertex(v)
		if b.Coord.OnBoard(vv) && b.color[vv] == coord.Black {
			b.groups[vv].AddLiberty(center)
			b.groups[vv].AddLiberty(b.Coord.V(1, 1)) // keep every group above 1 liberty
		}
	}
	if !b.IsEye(center, coord.Black) {
		t.Fatalf("expected center to be recognized as a black eye")
	}
}

func TestLegalRejectsOccupiedAndKoPoints(t *testing.T) {
	b := newTestBoard(t, 9)
	v := b.Coord.V(4, 4)
	b.MakeMove(ModeOneWay, v)
	if b.IsLegal(coord.White, v) {
		t.Fatalf("expected an occupied point to be illegal")
	}
	b.ko = v
	if b.IsLegal(coord.White, v) {
		t.Fatalf("expected the ko point to be illegal even if later emptied")
	}
}
