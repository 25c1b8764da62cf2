package board

import (
	"math/rand"

	"github.com/hailam/gostone/internal/coord"
)

// responseOrder is the priority order spec.md section 4.4.2 step 11 and
// section 4.4.4 establish for the four response-move slots: a rollout
// should play a sensible forced reply before falling back to the weighted
// random policy.
var responseOrder = [4]int{RespNakadeVital, RespCounterCapture, RespAtariSaveByCapture, RespAtariSaveByEscape}

// RolloutMove chooses the next move for side under the rollout
// move-selection policy (spec.md section 4.9's "make a legal move drawn by
// the rollout policy"): play the first legal response-move hint, in
// responseOrder, if one exists, otherwise sample an empty vertex with probability
// proportional to its rollout prior, skipping real eyes (playing into your
// own eye is never sensible for a rollout), and pass if nothing is left.
func (b *Board) RolloutMove(side coord.Color, rng *rand.Rand) coord.Vertex {
	for _, slot := range responseOrder {
		v := b.responseMove[slot]
		if v == coord.KNull || !b.Coord.OnBoard(v) {
			continue
		}
		if b.color[v] != coord.Empty || b.IsEye(v, side) {
			continue
		}
		if b.IsLegal(side, v) {
			return v
		}
	}

	idx := colorIdx(side)
	total := 0.0
	for row := 1; row <= b.Coord.Size; row++ {
		total += b.sumProbRank[idx][row]
	}
	if total <= 0 {
		return coord.KPass
	}

	// Two passes: first a weighted pick within the board (row-bucketed sum
	// avoids an O(B^2) scan on the common case), falling back to a linear
	// scan over all empties if the sampled weight lands on a vertex that
	// turns out illegal or an eye (rare, but self-atari/ko can make a
	// nonzero-prior vertex untakeable).
	for attempt := 0; attempt < 8; attempt++ {
		target := rng.Float64() * total
		row := 1
		for ; row <= b.Coord.Size; row++ {
			if target < b.sumProbRank[idx][row] {
				break
			}
			target -= b.sumProbRank[idx][row]
		}
		v := b.pickInRow(idx, row, target)
		if v == coord.KNull {
			continue
		}
		if b.IsEye(v, side) {
			continue
		}
		if b.IsLegal(side, v) {
			return v
		}
	}

	for i := 0; i < b.numEmpty; i++ {
		v := b.emptyList[i]
		if b.IsEye(v, side) {
			continue
		}
		if b.IsLegal(side, v) {
			return v
		}
	}
	return coord.KPass
}

// pickInRow scans the empty list for the first vertex on row whose
// cumulative probability mass exceeds target, returning KNull if the row
// holds no empty vertex with positive prior (can happen transiently right
// after a capture, before recomputeSumProbRank has run for this subtree).
func (b *Board) pickInRow(idx, row int, target float64) coord.Vertex {
	acc := 0.0
	for i := 0; i < b.numEmpty; i++ {
		v := b.emptyList[i]
		_, y := b.Coord.XY(v)
		if y != row {
			continue
		}
		acc += b.prob[idx][v]
		if acc >= target {
			return v
		}
	}
	return coord.KNull
}

// PlayRollout runs a full game to its end from the current position using
// RolloutMove for both sides, in ModeRollout (no feature/diff bookkeeping),
// stopping at double-pass or maxMoves plies, and returns the final score
// margin from Black's perspective (positive favors Black) computed by
// scratchScoreMargin — a single-sample version of the same rollout-based ownership estimate spec.md
// section 4.9 step 1 describes, inlined here so packages that only need a
// single rollout's result (the MCTS leaf backup) don't need the full
// scoring package's seki/bent-four/dame machinery.
func (b *Board) PlayRollout(rng *rand.Rand, maxMoves int) float64 {
	passes := 0
	for i := 0; i < maxMoves; i++ {
		v := b.RolloutMove(b.SideToMove, rng)
		b.MakeMove(ModeRollout, v)
		if v == coord.KPass {
			passes++
			if passes >= 2 {
				break
			}
		} else {
			passes = 0
		}
	}
	return b.scratchScoreMargin()
}

// scratchScoreMargin assigns every empty vertex to the single color (if
// any) bordering its flood-filled empty region and returns Black's
// stones+territory minus White's, minus komi (area scoring, whatever the
// board's Rule). This is deliberately the
// simple flood-neutral version (no seki/bent-four handling); the full
// Japanese-rule-accurate estimator with seki/dame/bent-four recognition
// lives in the scoring package and is what final_score and should_pass
// actually call.
func (b *Board) scratchScoreMargin() float64 {
	blackScore, whiteScore := float64(b.numStonesBy[0]), float64(b.numStonesBy[1])
	b.Coord.Walk(func(v coord.Vertex) {
		if b.color[v] != coord.Empty {
			return
		}
		owner, ok := b.soleNeighborColor(v)
		if !ok {
			return
		}
		if owner == coord.Black {
			blackScore++
		} else {
			whiteScore++
		}
	})
	return blackScore - whiteScore - b.Komi
}

// SymmetricHashes returns, for every symmetry index i in [0,8), the full
// Zobrist key the current position would have if transformed by symmetry i
// — the key an equivalent position reached by a transformed move sequence
// would actually be cached under, so EvalCache probing (spec.md section
// 4.5) can find it. Stones and the ko point transform with the board; the
// side-to-move bit is symmetry-invariant (its presence in the key is the
// ply parity). Index 0 (the identity) equals HashKey().
func (b *Board) SymmetricHashes() [8]uint64 {
	var hashes [8]uint64
	sideBit := uint64(0)
	if b.ply%2 == 1 {
		sideBit = b.Coord.ZobristSide()
	}
	for i := 0; i < 8; i++ {
		h := sideBit
		b.Coord.Walk(func(v coord.Vertex) {
			c := b.color[v]
			if c != coord.Black && c != coord.White {
				return
			}
			sv := b.Coord.FromRaw(b.Coord.Symmetry(b.Coord.ToRaw(v), i))
			h ^= b.Coord.ZobristStone(sv, c)
		})
		if b.ko != coord.KNull {
			skv := b.Coord.FromRaw(b.Coord.Symmetry(b.Coord.ToRaw(b.ko), i))
			h ^= b.Coord.ZobristKo(skv)
		}
		hashes[i] = h
	}
	return hashes
}

// soleNeighborColor reports the single color bordering v via a 4-connected
// flood fill through other empty vertices, or ok=false if both colors (or
// neither) border the empty region v belongs to.
func (b *Board) soleNeighborColor(v coord.Vertex) (coord.Color, bool) {
	seen := map[coord.Vertex]bool{v: true}
	queue := []coord.Vertex{v}
	var found coord.Color = coord.Empty
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nv := range b.Coord.Neighbors4(cur) {
			if !b.Coord.OnBoard(nv) {
				continue
			}
			c := b.color[nv]
			switch c {
			case coord.Empty:
				if !seen[nv] {
					seen[nv] = true
					queue = append(queue, nv)
				}
			case coord.Black, coord.White:
				if found == coord.Empty {
					found = c
				} else if found != c {
					return coord.Empty, false
				}
			}
		}
	}
	if found == coord.Empty {
		return coord.Empty, false
	}
	return found, true
}
