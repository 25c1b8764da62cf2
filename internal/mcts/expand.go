package mcts

import (
	"context"
	"sort"

	"github.com/hailam/gostone/internal/board"
	"github.com/hailam/gostone/internal/coord"
)

// buildNode runs (or reuses, via EvalCache) a network evaluation of b and
// constructs a fresh Node: one ChildNode per legal non-redundant move plus
// Pass, per spec.md section 3's Node lifecycle — "created exactly once
// from a Board, populated with legal moves (non-eye, non-seki,
// non-superko-losing) plus Pass, then its policy priors are set when the
// corresponding network eval completes." Since buildNode only runs once
// the eval is already in hand (synchronously, via the cache/worker path
// below), priors are set immediately rather than in a second pass.
func (t *Tree) buildNode(ctx context.Context, b *board.Board) (*Node, error) {
	res, err := t.evaluate(ctx, b)
	if err != nil {
		return nil, err
	}

	side := b.SideToMove
	escapes := b.LadderEscapes(4)

	var moves []coord.Vertex
	var priors []float64
	var ladder []bool
	sum := 0.0

	for i := 0; i < b.NumEmpty(); i++ {
		v := b.EmptyAt(i)
		if !b.IsLegal(side, v) {
			continue
		}
		if b.IsEye(v, side) {
			continue
		}
		if b.IsSeki(v) {
			continue
		}
		if losesBySuperko(b, v) {
			continue
		}
		p := float64(res.Policy[b.Coord.ToRaw(v)])
		isLadder := isLadderMove(b, v, side, escapes)
		if isLadder {
			p *= t.cfg.LadderReduction
		}
		moves = append(moves, v)
		priors = append(priors, p)
		ladder = append(ladder, isLadder)
		sum += p
	}

	// Children are kept prior-sorted so the Chinese-rule tail elision after
	// an opponent pass (spec.md section 4.8.1) drops the weakest quarter.
	order := make([]int, len(moves))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return priors[order[a]] > priors[order[b]] })
	sortedMoves := make([]coord.Vertex, len(moves))
	sortedPriors := make([]float64, len(moves))
	sortedLadder := make([]bool, len(moves))
	for i, j := range order {
		sortedMoves[i] = moves[j]
		sortedPriors[i] = priors[j]
		sortedLadder[i] = ladder[j]
	}
	moves, priors, ladder = sortedMoves, sortedPriors, sortedLadder

	// Pass is always a legal child, last in the slice per spec.md section
	// 4.8.1 ("the last child is Pass").
	passPrior := 0.0
	if n := len(res.Policy); n > 0 {
		passPrior = float64(res.Policy[n-1])
	}
	moves = append(moves, coord.KPass)
	priors = append(priors, passPrior)
	ladder = append(ladder, false)
	sum += passPrior

	if sum > 0 {
		for i := range priors {
			priors[i] /= sum
		}
	}

	t.nodes.Add(1)
	return newNode(b.HashKey(), b.Ply(), float64(res.Value), moves, priors, ladder), nil
}

// losesBySuperko trial-plays v in ModeQuick and checks whether it would
// recreate a prior position under a losing repetition rule, undoing
// immediately either way — the "non-superko-losing" filter from spec.md
// section 3's Node lifecycle.
func losesBySuperko(b *board.Board, v coord.Vertex) bool {
	if b.RepRule != board.RepSuperKo && b.RepRule != board.RepTrompTaylor {
		return false
	}
	b.MakeMove(board.ModeQuick, v)
	result := b.CheckRepetition()
	b.Undo()
	return result == board.RepLoseResult
}

// isLadderMove reports whether playing v would merely extend a friendly
// group that is currently laddered (in atari, with v as its sole liberty)
// without actually escaping, per spec.md section 4.4.5: v saves an
// own-color atari group, but v is not in the escapes set LadderEscapes(4)
// already computed for this board — the ladder fails within the bounded
// search depth, so the prior should be deprioritised rather than trusted.
func isLadderMove(b *board.Board, v coord.Vertex, side coord.Color, escapes map[coord.Vertex]bool) bool {
	if escapes[v] {
		return false
	}
	for _, nv := range b.Coord.Neighbors4(v) {
		if b.Color(nv) != side {
			continue
		}
		g := b.Group(nv)
		if g.NumLiberties() == 1 && g.AtariVertex() == v {
			return true
		}
	}
	return false
}
