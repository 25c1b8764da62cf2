package mcts

import (
	"context"
	"math"
	"math/rand"

	"github.com/hailam/gostone/internal/board"
	"github.com/hailam/gostone/internal/coord"
)

// descend implements one PUCT descent (spec.md section 4.8.2): select a
// child by score, apply virtual loss, recurse or expand at a leaf, then
// cancel the virtual loss and fold in the real result on unwind. It
// returns the outcome from node's own side-to-move's perspective (callers
// one level up negate it to convert to their own, matching the
// alternating-sign backup spec.md invariant I8 describes) plus whether the
// leaf resolved via a network value or a rollout, so every level of the
// unwind backs the result into the matching statistics bucket.
//
// useNetwork distinguishes spec.md section 4.8.3's two worker kinds: an
// evaluator descent (useNetwork=true, the majority of workers) resolves a
// freshly expanded leaf via EvalCache/EvalWorker; a rollout-only descent
// (useNetwork=false, the remainder, minimum one worker) never touches the
// network and instead resolves the leaf with a full random rollout,
// backing the result up into the rollout statistics bucket. Both kinds
// share the same selection, virtual-loss, and terminal-detection logic —
// they differ only in how an as-yet-unexpanded leaf gets its first value.
func (t *Tree) descend(ctx context.Context, rng *rand.Rand, node *Node, b *board.Board, useNetwork bool) (float64, bool) {
	oppJustPassed := b.PrevMove(b.SideToMove.Opposite()) == coord.KPass
	child := t.selectChild(node, oppJustPassed)
	if child == nil {
		return 0, !useNetwork
	}

	loss := float64(t.cfg.VirtualLoss)
	child.ApplyVirtualLoss(loss)

	var result float64
	var fromValue bool

	switch {
	case child.State() == Complete:
		next := child.Next()
		b.MakeMove(board.ModeQuick, child.Move)
		result, fromValue = t.descend(ctx, rng, next, b, useNetwork)
		result = -result
		b.Undo()

	case child.TryBeginCreate():
		result, fromValue = t.expandAndBackup(ctx, rng, child, b, useNetwork)

	default:
		next := child.WaitForComplete(ctx)
		if next == nil {
			child.CancelVirtualLoss(loss, 0, true)
			return 0, true
		}
		b.MakeMove(board.ModeQuick, child.Move)
		result, fromValue = t.descend(ctx, rng, next, b, useNetwork)
		result = -result
		b.Undo()
	}

	child.CancelVirtualLoss(loss, result, fromValue)
	return result, fromValue
}

// expandAndBackup is called exactly once per ChildNode (by whichever
// descent wins the Initial->Creating race): it plays the move, resolves a
// terminal outcome, a network evaluation, or (on a rollout-only descent) a
// plain Monte-Carlo rollout, publishes the resulting Node via Complete, and
// returns the backed-up value (already negated to the parent's
// perspective) along with whether it came from a rollout-based resolution
// or a network value, so the caller backs it up into the matching
// statistics bucket.
func (t *Tree) expandAndBackup(ctx context.Context, rng *rand.Rand, child *ChildNode, b *board.Board, useNetwork bool) (float64, bool) {
	b.MakeMove(board.ModeQuick, child.Move)
	defer b.Undo()

	// Double pass is resolved before the repetition check: two passes
	// recreate the pre-pass position by construction (the side bits cancel),
	// and that repeat means "game over, score it", not a superko loss.
	doublePass := child.Move == coord.KPass && b.PrevMove(b.SideToMove) == coord.KPass
	rep := board.RepNone
	if !doublePass {
		rep = b.CheckRepetition()
	}

	switch {
	case rep == board.RepLoseResult:
		node := t.terminalNode(b, 1.0)
		child.Complete(node)
		return -1.0, false

	case rep == board.RepDrawResult:
		node := t.terminalNode(b, 0.0)
		child.Complete(node)
		return 0.0, false

	case doublePass || b.Ply() >= maxPly:
		scratch := b.Clone()
		margin := scratch.PlayRollout(rng, rolloutDepth)
		value := marginToValue(margin, b.SideToMove)
		node := t.terminalNode(b, value)
		child.Complete(node)
		return -value, false

	case !useNetwork:
		scratch := b.Clone()
		margin := scratch.PlayRollout(rng, rolloutDepth)
		value := marginToValue(margin, b.SideToMove)
		node := t.rolloutNode(b, value)
		child.Complete(node)
		return -value, false

	default:
		node, err := t.buildNode(ctx, b)
		if err != nil {
			node = t.terminalNode(b, 0.0)
			child.Complete(node)
			return 0.0, true
		}
		child.Complete(node)
		return -node.Value, true
	}
}

// terminalNode wraps a resolved leaf value in a childless Node (its only
// "child" is an unreachable Pass placeholder so Node's invariants — every
// node has at least one child — hold without special-casing terminals
// throughout the selection code) so future visits to this already-decided
// child find Complete immediately rather than re-resolving the same
// terminal outcome.
func (t *Tree) terminalNode(b *board.Board, value float64) *Node {
	t.nodes.Add(1)
	return newNode(b.HashKey(), b.Ply(), value, []coord.Vertex{coord.KPass}, []float64{1.0}, []bool{false})
}

// rolloutNode builds a Node the way buildNode does (legal, non-eye,
// non-seki, non-superko-losing moves plus Pass) but without consulting the network:
// a rollout-only descent has no policy output to draw priors from, so
// every legal move gets a uniform prior instead. Ladder deprioritisation
// still applies, matching buildNode's treatment of laddered moves.
func (t *Tree) rolloutNode(b *board.Board, value float64) *Node {
	side := b.SideToMove
	escapes := b.LadderEscapes(4)

	var moves []coord.Vertex
	var ladder []bool
	for i := 0; i < b.NumEmpty(); i++ {
		v := b.EmptyAt(i)
		if !b.IsLegal(side, v) || b.IsEye(v, side) || b.IsSeki(v) || losesBySuperko(b, v) {
			continue
		}
		moves = append(moves, v)
		ladder = append(ladder, isLadderMove(b, v, side, escapes))
	}
	moves = append(moves, coord.KPass)
	ladder = append(ladder, false)

	priors := make([]float64, len(moves))
	if len(moves) > 0 {
		uniform := 1.0 / float64(len(moves))
		for i, isLadder := range ladder {
			priors[i] = uniform
			if isLadder {
				priors[i] *= t.cfg.LadderReduction
			}
		}
	}
	t.nodes.Add(1)
	return newNode(b.HashKey(), b.Ply(), value, moves, priors, ladder)
}

// marginToValue squashes a Black-perspective score margin (points) into a
// [-1,1] win indicator from side's perspective via tanh, matching the
// value head's output range (spec.md section 1's Infer contract).
func marginToValue(margin float64, side coord.Color) float64 {
	v := math.Tanh(margin / 20.0)
	if side == coord.White {
		v = -v
	}
	return v
}
