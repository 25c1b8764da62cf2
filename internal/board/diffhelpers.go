package board

import "github.com/hailam/gostone/internal/coord"

func (b *Board) beginDiff(mode MoveMode, v coord.Vertex, side coord.Color) *Diff {
	d := &Diff{
		mode:            mode,
		move:            v,
		side:            side,
		prevKo:          b.ko,
		prevHash:        b.hashKey,
		prevKeyHistory:  b.keyHistory,
		prevPly:         b.ply,
		prevPrevMove:    b.prevMove,
		prevNumPasses:   b.numPasses,
		prevResponse:    b.responseMove,
		prevNumStones:   b.numStonesBy,
		prevCaptures:    b.captures,
		prevPrevPtn:     b.prevPtn,
		snappedVertices: make(map[coord.Vertex]bool),
		snappedGroups:   make(map[coord.Vertex]bool),
	}
	b.diffs = append(b.diffs, d)
	return d
}

// snapshotVertex records v's pre-mutation state into d, if d is non-nil and
// v is on board. Deduplicated per move: only the first call for a given
// vertex records anything, so the snapshot always holds the true state from
// before this move touched anything, no matter how many call sites along
// MakeMove's path end up touching the same vertex.
func (b *Board) snapshotVertex(d *Diff, v coord.Vertex) {
	if d == nil || !b.Coord.OnBoard(v) || d.snappedVertices[v] {
		return
	}
	d.snappedVertices[v] = true
	d.vertexSnaps = append(d.vertexSnaps, vertexSnapshot{
		v:       v,
		color:   b.color[v],
		sgID:    b.sgID[v],
		nextV:   b.nextV[v],
		ptn:     b.ptn[v],
		emptyID: b.emptyID[v],
		prob:    [2]float64{b.prob[0][v], b.prob[1][v]},
	})
}

// snapshotGroup records the StoneGroup at rep's pre-mutation state into d,
// if d is non-nil and not already recorded this move. Every mutation site
// that changes a pre-existing group's liberties/numStones/atari (merges,
// liberty removal, liberty addition from a capture) must call this first,
// so Undo can restore the group object verbatim.
func (b *Board) snapshotGroup(d *Diff, rep coord.Vertex) {
	if d == nil || d.snappedGroups[rep] {
		return
	}
	d.snappedGroups[rep] = true
	g := b.groups[rep]
	d.touchedGroups = append(d.touchedGroups, groupSnapshot{
		rep:       rep,
		numStones: g.numStones,
		liberties: g.liberties.Clone(),
		atari:     g.atariVertex,
	})
}
