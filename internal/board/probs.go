package board

import "github.com/hailam/gostone/internal/coord"

// refreshPatterns recomputes the Pattern at every dirty vertex from
// scratch. Cheap enough to call per-move since only a local set of vertices
// is ever dirty (the placed stone's 8-neighbourhood, any captured groups'
// freed vertices, and the liberties of the groups the move touched).
func (b *Board) refreshPatterns(dirty []coord.Vertex) {
	seen := map[coord.Vertex]bool{}
	for _, v := range dirty {
		if seen[v] || !b.Coord.OnBoard(v) {
			continue
		}
		seen[v] = true
		b.ptn[v] = b.scratchPattern(v)
	}
}

// refreshPatternsAndProbs does what refreshPatterns does, then recomputes
// the rollout move-selection prior at every touched vertex directly from
// its (now current) pattern. This is a recompute from Pattern.Prob rather
// than a multiply-in/divide-out accumulator. Only dirty vertices are
// recomputed: the response-pattern and distance weights that
// applyResponsePatternPrior and applyDistancePrior multiplied into the
// previous move's vicinity are not divided out (restoreVicinityProbs does
// nothing); a vertex keeps them until it is dirty again.
func (b *Board) refreshPatternsAndProbs(dirty []coord.Vertex) {
	b.refreshPatterns(dirty)
	seen := map[coord.Vertex]bool{}
	for _, v := range dirty {
		if seen[v] || !b.Coord.OnBoard(v) || b.color[v] != coord.Empty {
			continue
		}
		seen[v] = true
		b.recomputeProb(v)
	}
}

func (b *Board) recomputeProb(v coord.Vertex) {
	p := b.ptn[v]
	b.prob[0][v] = b.Pat.Prob(p, coord.Black, false)
	b.prob[1][v] = b.Pat.Prob(p, coord.White, false)
}

func (b *Board) recomputeSumProbRank() {
	for c := 0; c < 2; c++ {
		for row := range b.sumProbRank[c] {
			b.sumProbRank[c][row] = 0
		}
	}
	for i := 0; i < b.numEmpty; i++ {
		v := b.emptyList[i]
		_, y := b.Coord.XY(v)
		b.sumProbRank[0][y] += b.prob[0][v]
		b.sumProbRank[1][y] += b.prob[1][v]
	}
}

// restoreVicinityProbs does nothing: the weights multiplied around the
// previous move are left in place (see refreshPatternsAndProbs).
func (b *Board) restoreVicinityProbs(prevMove coord.Vertex) {}

// applyResponsePatternPrior multiplies the prior at every vertex in v's
// 12-point vicinity by the response-pattern table's weight for the
// previous move's 12-point pattern, per spec.md section 4.4.2 step 13.
func (b *Board) applyResponsePatternPrior(v coord.Vertex, side coord.Color) {
	w := b.Resp.RespProb(b.prevPtn[0], false)
	if w == 1.0 {
		return
	}
	near := b.Coord.Neighbors8(v)
	vicinity := near[:]
	for dir := 0; dir < 4; dir++ {
		if fv, ok := b.Coord.FarNeighbor(v, dir); ok {
			vicinity = append(vicinity, fv)
		}
	}
	for _, nv := range vicinity {
		if b.Coord.OnBoard(nv) && b.color[nv] == coord.Empty {
			b.prob[0][nv] *= w
			b.prob[1][nv] *= w
		}
	}
}

// applyDistancePrior multiplies the 8 neighbours of v by the fixed
// distance-bucket weight for the opponent side, per spec.md section 4.4.2
// step 14.
func (b *Board) applyDistancePrior(v coord.Vertex, opp coord.Color) {
	bucket := b.Coord.DistanceBucket(v)
	w := b.Resp.DistProb(bucket, false)
	if w == 1.0 {
		return
	}
	idx := colorIdx(opp)
	for _, nv := range b.Coord.Neighbors8(v) {
		if b.Coord.OnBoard(nv) && b.color[nv] == coord.Empty {
			b.prob[idx][nv] *= w
		}
	}
}

// recordFeatureSnapshot pushes the current full-board occupancy into the
// incremental NN feature planes and refreshes their move-dependent
// per-vertex planes (liberties/capture-size/self-atari/ladder-escape/
// sensibleness). O(B^2); acceptable for OneWay/Reversible mode, which is
// only used outside the ladder search's hot loop.
func (b *Board) recordFeatureSnapshot() {
	n := b.Coord.Size * b.Coord.Size
	blackOcc := make([]bool, n)
	whiteOcc := make([]bool, n)
	b.Coord.Walk(func(v coord.Vertex) {
		rv := b.Coord.ToRaw(v)
		switch b.color[v] {
		case coord.Black:
			blackOcc[rv] = true
		case coord.White:
			whiteOcc[rv] = true
		}
	})
	b.Feature.RecordMove(blackOcc, whiteOcc, b.SideToMove)

	b.Feature.ClearLadderEscape()
	escapes := b.LadderEscapes(4)
	for v := range escapes {
		b.Feature.SetLadderEscape(b.Coord.ToRaw(v), true)
	}

	b.Coord.Walk(func(v coord.Vertex) {
		if b.color[v] != coord.Empty {
			return
		}
		rv := b.Coord.ToRaw(v)
		libsAfter, captureSize, selfAtariLibs := b.moveOutcomeEstimate(v, b.SideToMove)
		b.Feature.SetLibertiesAfter(rv, libsAfter)
		b.Feature.SetCaptureSize(rv, captureSize)
		b.Feature.SetSelfAtari(rv, selfAtariLibs)
		b.Feature.SetSensible(rv, !b.IsEye(v, b.SideToMove) && b.IsLegal(b.SideToMove, v))

		minLibs := 8
		for _, nv := range b.Coord.Neighbors4(v) {
			if b.color[nv] == coord.Black || b.color[nv] == coord.White {
				if l := b.groupAt(nv).NumLiberties(); l < minLibs {
					minLibs = l
				}
			}
		}
		b.Feature.SetLiberties(rv, minLibs)
	})
}

// moveOutcomeEstimate returns (liberties the new group would have, stones
// it would capture, liberties if that result is self-atari or else 0) for
// playing side at v, without mutating the board.
func (b *Board) moveOutcomeEstimate(v coord.Vertex, side coord.Color) (libsAfter, captureSize, selfAtariLibs int) {
	opp := side.Opposite()
	libs := map[coord.Vertex]bool{}
	for _, nv := range b.Coord.Neighbors4(v) {
		switch b.color[nv] {
		case coord.Empty:
			libs[nv] = true
		case opp:
			og := b.groupAt(nv)
			if og.NumLiberties() == 1 {
				captureSize += og.numStones
			}
		}
	}
	libsAfter = len(libs) + captureSize
	if libsAfter <= 1 {
		selfAtariLibs = libsAfter
	}
	return
}
