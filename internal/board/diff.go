package board

import (
	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/feature"
	"github.com/hailam/gostone/internal/pattern"
)

// Diff is the per-move delta recorded in Reversible and Quick modes so Undo
// can restore every observable field bit-for-bit (spec.md invariant I9).
// Rather than small per-field maps (the source's "small maps from index to
// previous value" design), gostone records whole-group/whole-vertex
// snapshots for the handful of entities a single move can touch — cheaper
// to apply in reverse and just as cheap to record since a move only changes
// the groups around the played stone and around the stones it captures.
type Diff struct {
	mode MoveMode
	move coord.Vertex
	side coord.Color

	prevKo         coord.Vertex
	prevHash       uint64
	prevKeyHistory [8]uint64
	prevPly        int
	prevPrevMove   [2]coord.Vertex
	prevNumPasses  [2]int
	prevResponse   [4]coord.Vertex

	// Groups touched by this move (merges and liberty/atari transitions),
	// snapshotted before mutation.
	touchedGroups []groupSnapshot

	// Per-vertex snapshots (sgID, nextV, ptn, emptyID) for every vertex this
	// move's bookkeeping touched, so Undo can restore them verbatim without
	// re-deriving adjacency.
	vertexSnaps []vertexSnapshot

	prevNumStones [2]int
	prevCaptures  [2]int
	prevPrevPtn   [2]uint64

	// prevFeature is a full snapshot of the NN feature planes, taken before
	// ModeReversible's recordFeatureSnapshot call. ModeQuick never touches
	// Feature (mode.updatesFeature()==false), so this stays nil for it —
	// undoing a ladder-search move never needs to pay this snapshot's cost.
	prevFeature *feature.Planes

	snappedVertices map[coord.Vertex]bool
	snappedGroups   map[coord.Vertex]bool
}

type groupSnapshot struct {
	rep       coord.Vertex
	numStones int
	liberties *vertexSet
	atari     coord.Vertex
}

type vertexSnapshot struct {
	v       coord.Vertex
	color   coord.Color
	sgID    coord.Vertex
	nextV   coord.Vertex
	ptn     pattern.Pattern
	emptyID int
	prob    [2]float64
}
