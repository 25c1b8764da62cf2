// Package scoring implements end-of-game area scoring and the pass oracle
// from spec.md section 4.9: a rollout-based ownership estimate, seki and
// bent-four-in-the-corner handling, and the Japanese/Chinese final score
// and should-pass decisions the `final_score` GTP command and the search
// loop's own pass logic consult.
package scoring

import (
	"math/rand"

	"github.com/hailam/gostone/internal/board"
	"github.com/hailam/gostone/internal/coord"
)

// defaultRollouts is the playout count spec.md section 4.9 names for both
// final_score and should_pass.
const defaultRollouts = 1000

// Owner is the per-vertex classification an ownership estimate assigns.
type Owner int

const (
	OwnerNone Owner = iota
	OwnerBlack
	OwnerWhite
)

// Ownership tallies, over a batch of independent rollouts from the same
// position, how often each vertex ended the game occupied or surrounded by
// each color.
type Ownership struct {
	ct      *coord.Table
	black   []int
	white   []int
	samples int
}

// Estimate runs n independent rollouts from a clone of b (so b itself is
// untouched) and tallies, per vertex, how many rollouts ended with that
// vertex belonging to Black or White by final stones-plus-flood-territory
// occupancy — spec.md section 4.9 step 1. n<=0 uses defaultRollouts.
func Estimate(b *board.Board, rng *rand.Rand, n int) *Ownership {
	if n <= 0 {
		n = defaultRollouts
	}

	// A position already ended by a double pass is scored as-is: playing
	// it out further would just add rollout-policy noise on top of an
	// already-decided game, and one deterministic sample of it says
	// everything n identical samples would.
	alreadyEnded := b.PrevMove(coord.Black) == coord.KPass && b.PrevMove(coord.White) == coord.KPass
	if alreadyEnded {
		n = 1
	}

	ct := b.Coord
	nv := ct.NumVtx
	o := &Ownership{ct: ct, black: make([]int, nv), white: make([]int, nv), samples: n}

	for i := 0; i < n; i++ {
		scratch := b
		if !alreadyEnded {
			scratch = b.Clone()
			scratch.PlayRollout(rng, rolloutPlyCap)
		}
		ct.Walk(func(v coord.Vertex) {
			switch scratch.Color(v) {
			case coord.Black:
				o.black[v]++
			case coord.White:
				o.white[v]++
			default:
				if owner, ok := soleNeighborColor(scratch, v); ok {
					if owner == coord.Black {
						o.black[v]++
					} else {
						o.white[v]++
					}
				}
			}
		})
	}
	return o
}

// rolloutPlyCap bounds each scoring rollout's own game length.
const rolloutPlyCap = 720

// BlackRatio and WhiteRatio return vertex v's occupancy fraction for each
// color across the sampled rollouts.
func (o *Ownership) BlackRatio(v coord.Vertex) float64 {
	return float64(o.black[v]) / float64(o.samples)
}
func (o *Ownership) WhiteRatio(v coord.Vertex) float64 {
	return float64(o.white[v]) / float64(o.samples)
}

// Classify applies spec.md section 4.9 step 2's 50%/20% thresholds: a
// clear majority (>50%) assigns the vertex to that color; otherwise it is
// Unknown. BothLow additionally reports the "both colors under 20%"
// condition step 3 uses to flag seki candidates.
func (o *Ownership) Classify(v coord.Vertex) (owner Owner, bothLow bool) {
	br, wr := o.BlackRatio(v), o.WhiteRatio(v)
	switch {
	case br > 0.5:
		return OwnerBlack, false
	case wr > 0.5:
		return OwnerWhite, false
	}
	return OwnerNone, br < 0.2 && wr < 0.2
}

// soleNeighborColor flood-fills the empty region containing v and reports
// the single color bordering it (ok=false if both or neither do). It is the
// same walk as the board package's unexported helper behind PlayRollout's
// scratch margin, reimplemented here so scoring does not need a
// board-internal export solely for this.
func soleNeighborColor(b *board.Board, v coord.Vertex) (coord.Color, bool) {
	ct := b.Coord
	seen := map[coord.Vertex]bool{v: true}
	queue := []coord.Vertex{v}
	found := coord.Empty
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nv := range ct.Neighbors4(cur) {
			if !ct.OnBoard(nv) {
				continue
			}
			c := b.Color(nv)
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
