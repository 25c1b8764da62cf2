package scoring

import (
	"fmt"
	"math/rand"

	"github.com/hailam/gostone/internal/board"
	"github.com/hailam/gostone/internal/coord"
)

// FinalScore implements spec.md section 4.9's final_score: an ownership
// estimate classifies every empty vertex, seki and bent-four-in-the-corner
// shapes are resolved specially, and the remaining points are tallied
// under b.Rule. It returns the margin from Black's perspective (positive
// favors Black) and the GTP-style result string ("B+n.n" / "W+n.n" / "0").
func FinalScore(b *board.Board, rng *rand.Rand, rollouts int) (float64, string) {
	margin := marginOf(b, rng, rollouts)
	return margin, formatResult(margin)
}

func formatResult(margin float64) string {
	switch {
	case margin > 0:
		return fmt.Sprintf("B+%.1f", margin)
	case margin < 0:
		return fmt.Sprintf("W+%.1f", -margin)
	default:
		return "0"
	}
}

func marginOf(b *board.Board, rng *rand.Rand, rollouts int) float64 {
	own := Estimate(b, rng, rollouts)
	ct := b.Coord

	blackStones, whiteStones := float64(b.NumStones(coord.Black)), float64(b.NumStones(coord.White))
	var blackTerr, whiteTerr float64

	flipped := bentFourFlips(b)

	ct.Walk(func(v coord.Vertex) {
		if b.Color(v) != coord.Empty {
			return
		}
		if flip, ok := flipped[v]; ok {
			if flip == coord.Black {
				blackTerr++
			} else {
				whiteTerr++
			}
			return
		}

		owner, bothLow := own.Classify(v)
		if owner == OwnerNone && !bothLow {
			return // dame: counts for neither side
		}
		if bothLow {
			// Seki or near-seki: spec.md section 4.9 step 3 assigns these
			// to the single surrounding color under Japanese rule, and to
			// neither side under Chinese rule (true two-sided seki, where
			// no single color borders it, is left uncounted under both).
			if b.Rule != board.RuleJapanese {
				return
			}
			sole, ok := soleNeighborColor(b, v)
			if !ok {
				return
			}
			owner = ownerFromColor(sole)
		}
		switch owner {
		case OwnerBlack:
			blackTerr++
		case OwnerWhite:
			whiteTerr++
		}
	})

	// Award each flipped group's stones to its new color exactly once
	// (per *StoneGroup, not per vertex — a group can border the flipped
	// region through more than one of its stones) and remove them from
	// their true color's tally.
	type flip struct {
		orig, to coord.Color
	}
	awarded := map[*board.StoneGroup]flip{}
	for v, to := range flipped {
		if b.Color(v) == coord.Empty {
			continue
		}
		awarded[b.Group(v)] = flip{orig: b.Color(v), to: to}
	}
	for g, f := range awarded {
		n := float64(g.NumStones())
		switch f.to {
		case coord.Black:
			blackStones += n
		case coord.White:
			whiteStones += n
		}
		switch f.orig {
		case coord.Black:
			blackStones -= n
		case coord.White:
			whiteStones -= n
		}
	}

	switch b.Rule {
	case board.RuleJapanese:
		blackScore := blackTerr + float64(b.Captures(coord.Black))
		whiteScore := whiteTerr + float64(b.Captures(coord.White))
		return blackScore - whiteScore - b.Komi
	default: // Chinese and Tromp-Taylor area scoring
		blackScore := blackStones + blackTerr
		whiteScore := whiteStones + whiteTerr
		return blackScore - whiteScore - b.Komi
	}
}

func ownerFromColor(c coord.Color) Owner {
	if c == coord.Black {
		return OwnerBlack
	}
	return OwnerWhite
}

// bentFourFlips scans every connected empty region that borders exactly
// one color and whose vertex set matches a known bent-four-in-the-corner
// Zobrist signature, per spec.md section 4.9 step 4. The returned map
// marks each such region's vertices (both the empty points and the
// bordering stones orthogonally adjacent to them) with the color
// they are awarded to: the bordering color's opponent, since a
// bent-four-in-the-corner shape is conventionally dead despite a naive
// rollout/flood-fill reading it as alive.
func bentFourFlips(b *board.Board) map[coord.Vertex]coord.Color {
	flips := map[coord.Vertex]coord.Color{}
	ct := b.Coord
	seen := map[coord.Vertex]bool{}

	ct.Walk(func(start coord.Vertex) {
		if b.Color(start) != coord.Empty || seen[start] {
			return
		}
		region := floodEmpty(b, start, seen)
		if len(region) != 4 {
			return
		}
		border, ok := soleNeighborColor(b, start)
		if !ok {
			return
		}
		var key uint64
		for _, v := range region {
			key += ct.ZobristStone(v, coord.Black) ^ ct.ZobristStone(v, coord.White)
		}
		if !ct.IsBentFour(key) {
			return
		}
		opp := border.Opposite()
		for _, v := range region {
			flips[v] = opp
		}
		for _, v := range region {
			for _, nv := range ct.Neighbors4(v) {
				if b.Color(nv) == border {
					flips[nv] = opp
				}
			}
		}
	})
	return flips
}

func floodEmpty(b *board.Board, start coord.Vertex, seen map[coord.Vertex]bool) []coord.Vertex {
	ct := b.Coord
	var region []coord.Vertex
	queue := []coord.Vertex{start}
	seen[start] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		region = append(region, cur)
		for _, nv := range ct.Neighbors4(cur) {
			if ct.OnBoard(nv) && b.Color(nv) == coord.Empty && !seen[nv] {
				seen[nv] = true
				queue = append(queue, nv)
			}
		}
	}
	return region
}

// NeedToBeFilled lists empty vertices that look eye-like for one color but
// are not real eyes (IsFalseEye) — spec.md section 4.9's `need_to_be_filled`
// list, vertices a correct Japanese-rule count requires actually playing
// out before territory can be assigned unambiguously.
func NeedToBeFilled(b *board.Board) []coord.Vertex {
	var out []coord.Vertex
	for i := 0; i < b.NumEmpty(); i++ {
		v := b.EmptyAt(i)
		if b.IsFalseEye(v, coord.Black) || b.IsFalseEye(v, coord.White) {
			out = append(out, v)
		}
	}
	return out
}

// ShouldPass implements spec.md section 4.9's should_pass: winRate is the
// search's current win-rate estimate for the side to move, and candidate
// is the move the caller would otherwise play (e.g. the top network-policy
// or search move). It returns true if side to move should pass instead.
func ShouldPass(b *board.Board, rng *rand.Rand, winRate float64, candidate coord.Vertex) bool {
	sideMargin := sideScore(b, rng)
	needFill := NeedToBeFilled(b)

	if winRate >= 0.95 && sideMargin > 0 && len(needFill) == 0 && !ownGroupWeakened(b) {
		return true
	}
	if candidate == coord.KPass {
		return true
	}

	afterCandidate := b.Clone()
	afterCandidate.MakeMove(board.ModeQuick, candidate)
	candMargin := sideScoreFor(afterCandidate, rng, b.SideToMove)

	afterPass := b.Clone()
	afterPass.MakeMove(board.ModeQuick, coord.KPass)
	passMargin := sideScoreFor(afterPass, rng, b.SideToMove)

	return passMargin >= candMargin
}

// sideScore returns the current position's score margin from b's own
// side-to-move's perspective (positive favors that side).
func sideScore(b *board.Board, rng *rand.Rand) float64 {
	margin := marginOf(b, rng, defaultRollouts)
	if b.SideToMove == coord.White {
		return -margin
	}
	return margin
}

// sideScoreFor is sideScore but scored from perspective rather than the
// (possibly different, post-move) board's own side to move.
func sideScoreFor(b *board.Board, rng *rand.Rand, perspective coord.Color) float64 {
	margin := marginOf(b, rng, defaultRollouts)
	if perspective == coord.White {
		return -margin
	}
	return margin
}

// ownGroupWeakened is a conservative stand-in for spec.md section 4.9
// step 3's "unless our previous move's own group became weak by a specific
// criterion": the group containing the side to move's last stone played
// has dropped to two or fewer liberties.
func ownGroupWeakened(b *board.Board) bool {
	last := b.PrevMove(b.SideToMove)
	if last == coord.KNull || last == coord.KPass {
		return false
	}
	if b.Color(last) != b.SideToMove {
		return false
	}
	return b.Group(last).NumLiberties() <= 2
}
