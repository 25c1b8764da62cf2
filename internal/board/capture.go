package board

import "github.com/hailam/gostone/internal/coord"

// mergeInto absorbs the group at neighborV into the group containing
// placedV (or vice versa, keeping whichever is larger as the surviving
// representative), splicing the two next_v rings and unioning liberties,
// per spec.md section 4.4.2 step 7.
func (b *Board) mergeInto(d *Diff, placedV, neighborV coord.Vertex) {
	repA := b.sgID[placedV]
	repB := b.sgID[neighborV]
	if repA == repB {
		return
	}
	ga, gb := b.groups[repA], b.groups[repB]

	base, absorbed := repA, repB
	baseG, absorbedG := ga, gb
	if gb.numStones > ga.numStones {
		base, absorbed = repB, repA
		baseG, absorbedG = gb, ga
	}

	b.snapshotGroup(d, base)
	b.snapshotGroup(d, absorbed)

	// Snapshot both representatives before the splice mutates their ring
	// pointers; the walk below only sees post-splice values.
	b.snapshotVertex(d, base)
	b.snapshotVertex(d, absorbed)

	// Splice the circular next_v rings: swap what each representative's
	// "next" pointer is, which joins the two rings into one cycle.
	b.nextV[base], b.nextV[absorbed] = b.nextV[absorbed], b.nextV[base]

	baseG.Merge(absorbedG)

	// Repoint every stone of the combined cycle to the base representative
	// (stones already owned by base are rewritten to the same value).
	cur := absorbed
	for {
		b.snapshotVertex(d, cur)
		b.sgID[cur] = base
		cur = b.nextV[cur]
		if cur == absorbed {
			break
		}
	}
}

// captureGroup removes every stone in the group rooted at rep, returns the
// number of stones removed, and records the freed vertices for ko/nakade
// detection.
func (b *Board) captureGroup(d *Diff, rep coord.Vertex, color coord.Color) int {
	g := b.groups[rep]
	n := g.numStones
	freed := make([]coord.Vertex, 0, n)

	cur := rep
	for i := 0; i < n; i++ {
		next := b.nextV[cur]
		if d != nil {
			b.snapshotVertex(d, cur)
		}
		b.hashKey ^= b.Coord.ZobristStone(cur, color)
		b.color[cur] = coord.Empty
		b.addEmpty(cur)
		b.numStonesBy[colorIdx(color)]--
		b.prob[0][cur], b.prob[1][cur] = 1.0, 1.0
		b.nextV[cur] = cur

		// The freed vertex becomes a liberty of every still-alive
		// neighbouring group (including the capturing group, added by the
		// caller's own liberty bookkeeping for v itself).
		for _, nv := range b.Coord.Neighbors4(cur) {
			if b.color[nv] == coord.Black || b.color[nv] == coord.White {
				nrep := b.sgID[nv]
				b.snapshotGroup(d, nrep)
				b.groups[nrep].AddLiberty(cur)
				b.affectedGroups[nrep] = true
			}
		}

		freed = append(freed, cur)
		cur = next
	}

	b.lastCapturedSets[rep] = freed
	if n == 1 {
		b.lastCapturedSingle = freed[0]
	}
	b.captures[colorIdx(color.Opposite())] += n
	if n >= 3 && n <= 6 {
		b.tryNakade(freed)
	}

	return n
}

// inferResponseMoves fills responseMove[CounterCapture] or
// responseMove[AtariSaveByCapture] for a neighbour group of color opp(side)
// that just entered atari, per spec.md section 4.4.2 step 11: prefer
// counter-capturing a neighbouring stone that is itself in atari, else the
// atari group's own escape point, skipping self-atari results and
// preferring the larger group.
func (b *Board) inferResponseMoves(rep coord.Vertex, sideJustPlayed coord.Color) {
	g := b.groups[rep]
	atariV := g.AtariVertex()
	opp := sideJustPlayed.Opposite()

	// savedSize is the size of the largest opp group in atari at v: the
	// group a slot already holding v would save.
	savedSize := func(v coord.Vertex) int {
		best := 0
		for _, nv := range b.Coord.Neighbors4(v) {
			if b.color[nv] == opp {
				if og := b.groupAt(nv); og.NumLiberties() == 1 && og.AtariVertex() == v && og.numStones > best {
					best = og.numStones
				}
			}
		}
		return best
	}

	// Counter-capture: does playing atariV itself capture a stone of
	// sideJustPlayed that is also in atari?
	for _, nv := range b.Coord.Neighbors4(atariV) {
		if b.color[nv] != sideJustPlayed {
			continue
		}
		ng := b.groupAt(nv)
		if ng.NumLiberties() == 1 && ng.AtariVertex() == atariV {
			if !b.wouldBeSelfAtari(opp, atariV) {
				if cur := b.responseMove[RespCounterCapture]; cur == coord.KNull || g.numStones > savedSize(cur) {
					b.responseMove[RespCounterCapture] = atariV
				}
				return
			}
		}
	}

	if !b.wouldBeSelfAtari(opp, atariV) {
		cur := b.responseMove[RespAtariSaveByCapture]
		if cur == coord.KNull || g.numStones > savedSize(cur) {
			b.responseMove[RespAtariSaveByCapture] = atariV
		}
	}
}

// wouldBeSelfAtari reports whether side playing at v would immediately
// leave its own new group in atari (a cheap, conservative estimate used
// only to filter response-move candidates, not full legality).
func (b *Board) wouldBeSelfAtari(side coord.Color, v coord.Vertex) bool {
	if !b.Coord.OnBoard(v) || b.color[v] != coord.Empty {
		return true
	}
	libs := 0
	merged := map[coord.Vertex]bool{}
	for _, nv := range b.Coord.Neighbors4(v) {
		switch b.color[nv] {
		case coord.Empty:
			libs++
		case side:
			rep := b.sgID[nv]
			if !merged[rep] {
				merged[rep] = true
				libs += b.groupAt(nv).NumLiberties()
			}
		}
	}
	return libs <= 1
}
