package board

import "github.com/hailam/gostone/internal/coord"

// Undo reverses the most recent ModeReversible or ModeQuick move, restoring
// every field spec.md invariant I9 requires bit-for-bit: color, group
// membership/liberties, pattern bits, Ko, Zobrist hash and history, ply,
// per-side bookkeeping, response-move slots, and (for ModeReversible) the
// NN feature planes. A call with no recorded diff is a no-op, matching the
// "undo with empty history" contract from spec.md section 7.
func (b *Board) Undo() {
	n := len(b.diffs)
	if n == 0 {
		return
	}
	d := b.diffs[n-1]
	b.diffs = b.diffs[:n-1]

	// Groups: every entry holds the true pre-move state for its rep
	// (snapshotGroup dedups to the first touch), so order doesn't matter.
	for _, gs := range d.touchedGroups {
		g := b.groups[gs.rep]
		g.numStones = gs.numStones
		g.liberties.CopyFrom(gs.liberties)
		g.atariVertex = gs.atari
	}

	// Vertices: same dedup guarantee applies. The prior snapshot restores
	// the exact pre-move rollout weights, including any multiplicative
	// response/distance contributions a plain recompute from the pattern
	// could not reproduce.
	for _, vs := range d.vertexSnaps {
		b.color[vs.v] = vs.color
		b.sgID[vs.v] = vs.sgID
		b.nextV[vs.v] = vs.nextV
		b.ptn[vs.v] = vs.ptn
		b.prob[0][vs.v] = vs.prob[0]
		b.prob[1][vs.v] = vs.prob[1]
	}

	// The empty-vertex list uses swap-with-tail removal, so its ordering
	// after a move bears no fixed relationship to its ordering before one;
	// rebuilding it from the now-restored color array is simpler and just
	// as correct as trying to replay the exact splice in reverse, since the
	// only invariants that matter are membership and emptyID[emptyList[i]]==i.
	b.rebuildEmptyList()

	b.numStonesBy = d.prevNumStones
	b.captures = d.prevCaptures
	b.ko = d.prevKo
	b.hashKey = d.prevHash
	b.keyHistory = d.prevKeyHistory
	b.ply = d.prevPly
	b.prevMove = d.prevPrevMove
	b.numPasses = d.prevNumPasses
	b.responseMove = d.prevResponse
	b.prevPtn = d.prevPrevPtn
	b.SideToMove = d.side

	if len(b.moveHistory) > 0 {
		b.moveHistory = b.moveHistory[:len(b.moveHistory)-1]
	}

	if d.prevFeature != nil {
		b.Feature.CopyFrom(d.prevFeature)
	}

	// ModeQuick never touched the rank sums, so leave them alone there —
	// touching them on a ladder-search undo would desync them from the
	// untouched-by-Quick prob maintenance path.
	if d.mode.updatesProbs() {
		b.recomputeSumProbRank()
	}
}

func (b *Board) rebuildEmptyList() {
	b.emptyList = b.emptyList[:0]
	b.numEmpty = 0
	b.Coord.Walk(func(v coord.Vertex) {
		if b.color[v] == coord.Empty {
			b.emptyID[v] = len(b.emptyList)
			b.emptyList = append(b.emptyList, v)
			b.numEmpty++
		} else {
			b.emptyID[v] = -1
		}
	})
}
