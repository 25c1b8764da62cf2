package board

import "github.com/hailam/gostone/internal/coord"

// IsLegal implements spec.md invariant I4: v==Pass, or v is empty, not the
// ko point, and the local pattern says side may play there.
func (b *Board) IsLegal(side coord.Color, v coord.Vertex) bool {
	if v == coord.KPass {
		return true
	}
	if !b.Coord.OnBoard(v) {
		return false
	}
	if v == b.ko {
		return false
	}
	if b.color[v] != coord.Empty {
		return false
	}
	return b.Pat.Legal(b.ptn[v], side)
}

// MakeMove plays v for the current side to move using mode, implementing
// the step-by-step algorithm of spec.md section 4.4.2. v must already be
// known legal (IsLegal); MakeMove does not re-check legality so ladder
// search and rollouts can skip the redundant lookup on their hot path.
func (b *Board) MakeMove(mode MoveMode, v coord.Vertex) {
	side := b.SideToMove
	var d *Diff
	if mode.recordsDiff() {
		d = b.beginDiff(mode, v, side)
	}
	b.lastCapturedSingle = coord.KNull
	for k := range b.lastCapturedSets {
		delete(b.lastCapturedSets, k)
	}
	for k := range b.affectedGroups {
		delete(b.affectedGroups, k)
	}

	// Step 2/3: restoreVicinityProbs leaves the previous move's prior
	// weights in place (see its doc); the response-move slots are reset
	// before being recomputed around the new move.
	if mode.updatesProbs() {
		b.restoreVicinityProbs(b.prevMove[colorIdx(side.Opposite())])
	}
	for i := range b.responseMove {
		b.responseMove[i] = coord.KNull
	}

	// key_history records the position keys of the last 8 plies; pushing
	// the pre-move key here (before any Zobrist toggles) keeps the non-pass
	// and pass paths consistent and lets CheckRepetition compare the
	// post-move hashKey directly against prior positions.
	b.shiftKeyHistory()

	if v == coord.KPass {
		b.numPasses[colorIdx(side)]++
		b.shiftPrevPattern(v, side)
		b.hashKey ^= b.Coord.ZobristSide()
		if b.ko != coord.KNull {
			b.hashKey ^= b.Coord.ZobristKo(b.ko)
			if d != nil {
				d.prevKo = b.ko
			}
			b.ko = coord.KNull
		}
		b.moveHistory = append(b.moveHistory, v)
		b.ply++
		b.prevMove[colorIdx(side)] = v
		b.SideToMove = side.Opposite()
		if mode.updatesFeature() {
			if d != nil {
				d.prevFeature = b.Feature.Clone()
			}
			b.recordFeatureSnapshot()
		}
		return
	}

	b.shiftPrevPattern(v, side)

	prevKo := b.ko
	if d != nil {
		d.prevKo = prevKo
	}

	// Step 6: place the stone and seed a new 1-stone group.
	b.snapshotVertex(d, v)
	b.snapshotGroup(d, v)
	b.color[v] = side
	b.removeEmpty(v)
	b.prob[0][v], b.prob[1][v] = 0, 0

	g := b.groups[v]
	g.numStones = 1
	g.liberties.Clear()
	g.atariVertex = coord.KNull
	b.sgID[v] = v
	b.nextV[v] = v
	b.numStonesBy[colorIdx(side)]++
	b.hashKey ^= b.Coord.ZobristStone(v, side)

	near := b.Coord.Neighbors8(v)
	dirty := []coord.Vertex{v}
	for dir := 0; dir < 8; dir++ {
		nv := near[dir]
		if b.Coord.OnBoard(nv) {
			b.snapshotVertex(d, nv)
		}
		if dir < 4 {
			if b.color[nv] == coord.Empty {
				g.AddLiberty(nv)
			}
		}
		dirty = append(dirty, nv)
	}

	capturedCount := 0
	var ataris []coord.Vertex

	// Step 7: merge own-color neighbour groups, then drop v itself from the
	// union — v was a liberty of every merged neighbour until this move
	// occupied it.
	for dir := 0; dir < 4; dir++ {
		nv := near[dir]
		if b.color[nv] != side {
			continue
		}
		if b.sgID[nv] == b.sgID[v] {
			continue
		}
		b.mergeInto(d, v, nv)
	}
	ownRep := b.sgID[v]
	b.groups[ownRep].RemoveLiberty(v)
	b.affectedGroups[ownRep] = true

	// Step 8: resolve opponent neighbour groups by their new liberty count.
	opp := side.Opposite()
	seenOppGroups := map[coord.Vertex]bool{}
	for dir := 0; dir < 4; dir++ {
		nv := near[dir]
		if b.color[nv] != opp {
			continue
		}
		rep := b.sgID[nv]
		if seenOppGroups[rep] {
			continue
		}
		seenOppGroups[rep] = true
		b.affectedGroups[rep] = true
		og := b.groups[rep]
		b.snapshotGroup(d, rep)
		og.RemoveLiberty(v)
		switch og.NumLiberties() {
		case 0:
			n := b.captureGroup(d, rep, opp)
			capturedCount += n
			dirty = append(dirty, b.capturedVertices(rep)...)
		case 1:
			og.RecomputeAtariVertex()
			ataris = append(ataris, rep)
		case 2:
			// pre-atari: flag refresh happens via pattern rebuild below
		}
	}

	// Step 9: ko detection (spec.md invariant I6).
	newRep := b.sgID[v]
	newGroup := b.groups[newRep]
	b.ko = coord.KNull
	if capturedCount == 1 && newGroup.numStones == 1 && newGroup.NumLiberties() == 1 {
		capturedAt := b.lastCapturedSingle
		if capturedAt != coord.KNull {
			b.ko = capturedAt
		}
	}
	if b.ko != prevKo {
		if prevKo != coord.KNull {
			b.hashKey ^= b.Coord.ZobristKo(prevKo)
		}
		if b.ko != coord.KNull {
			b.hashKey ^= b.Coord.ZobristKo(b.ko)
		}
	}

	// Step 10: own group's new status.
	if newGroup.NumLiberties() == 1 {
		newGroup.RecomputeAtariVertex()
		save := newGroup.AtariVertex()
		if save != b.ko {
			b.responseMove[RespAtariSaveByEscape] = save
		}
	}

	// Step 11: response-move inference from newly-atari opponent groups.
	for _, rep := range ataris {
		b.inferResponseMoves(rep, side)
	}

	// Atari/pre-atari flags live on a group's liberty vertices, which can
	// sit far from v when a large group's liberty count changes; extend the
	// dirty set with every affected group's current liberties so no vertex
	// keeps a stale flag.
	for rep := range b.affectedGroups {
		if b.sgID[rep] != rep {
			continue
		}
		c := b.color[rep]
		if c != coord.Black && c != coord.White {
			continue
		}
		b.groups[rep].liberties.Iter(func(lv coord.Vertex) {
			dirty = append(dirty, lv)
		})
	}
	for _, dv := range dirty {
		b.snapshotVertex(d, dv)
	}

	// Step 12/13/14: rollout-prior maintenance around every dirty vertex,
	// with the rank sums rebuilt only after the response-pattern and
	// distance multipliers have been folded in.
	if mode.updatesProbs() {
		b.refreshPatternsAndProbs(dirty)
		b.applyResponsePatternPrior(v, side)
		b.applyDistancePrior(v, opp)
		b.recomputeSumProbRank()
	} else {
		b.refreshPatterns(dirty)
	}

	// Step 15: the removed-stone and played-stone Zobrists were already
	// folded in as each mutation happened; only the side bit remains.
	b.hashKey ^= b.Coord.ZobristSide()

	b.moveHistory = append(b.moveHistory, v)
	b.ply++
	b.prevMove[colorIdx(side)] = v
	b.SideToMove = opp

	if mode.updatesFeature() {
		if d != nil {
			d.prevFeature = b.Feature.Clone()
		}
		b.recordFeatureSnapshot()
	}
}

func colorIdx(c coord.Color) int {
	if c == coord.White {
		return 1
	}
	return 0
}

// capturedVertices returns the vertices freed this move by capturing the
// group whose representative was rep, or nil if it was not captured. (The
// companion scratch field lastCapturedSingle is set by captureGroup when a
// captured group is a single stone and cleared at the start of every
// MakeMove; only a single-stone capture is ko-eligible.)
func (b *Board) capturedVertices(rep coord.Vertex) []coord.Vertex {
	vs, ok := b.lastCapturedSets[rep]
	if !ok {
		return nil
	}
	return vs
}

func (b *Board) shiftPrevPattern(v coord.Vertex, side coord.Color) {
	b.prevPtn[1] = b.prevPtn[0]
	b.prevPtn[0] = b.twelvePointPattern(v, side)
}

func (b *Board) shiftKeyHistory() {
	for i := len(b.keyHistory) - 1; i > 0; i-- {
		b.keyHistory[i] = b.keyHistory[i-1]
	}
	b.keyHistory[0] = b.hashKey
}

// twelvePointPattern hashes the 12 vertices around v (8-neighbourhood plus
// the 4 knight-like points used by the original source's response-pattern
// table), color-flipped when Black is to move so the table stays
// color-canonical, per spec.md section 4.4.2 step 5.
func (b *Board) twelvePointPattern(v coord.Vertex, side coord.Color) uint64 {
	near := b.Coord.Neighbors8(v)
	var key uint64
	for i, nv := range near {
		c := coord.Wall
		if b.Coord.OnBoard(nv) || nv == v {
			c = b.color[nv]
		}
		if side == coord.Black {
			c = invertColor(c)
		}
		key |= uint64(colorBitsFor(c)) << uint(i*2)
	}
	extra := [4]coord.Vertex{}
	ok := [4]bool{}
	extra[0], ok[0] = b.Coord.FarNeighbor(v, 0)
	extra[1], ok[1] = b.Coord.FarNeighbor(v, 1)
	extra[2], ok[2] = b.Coord.FarNeighbor(v, 2)
	extra[3], ok[3] = b.Coord.FarNeighbor(v, 3)
	for i := 0; i < 4; i++ {
		c := coord.Wall
		if ok[i] {
			c = b.color[extra[i]]
		}
		if side == coord.Black {
			c = invertColor(c)
		}
		key |= uint64(colorBitsFor(c)) << uint(16+i*2)
	}
	return key
}

func invertColor(c coord.Color) coord.Color {
	switch c {
	case coord.Black:
		return coord.White
	case coord.White:
		return coord.Black
	default:
		return c
	}
}

func colorBitsFor(c coord.Color) uint64 {
	switch c {
	case coord.Black:
		return 0
	case coord.White:
		return 1
	case coord.Empty:
		return 2
	default:
		return 3
	}
}
