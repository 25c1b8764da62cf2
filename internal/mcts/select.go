package mcts

import "math"

// siblingReductionFactor scales the "sibling reduction" term spec.md
// section 4.8.1 describes only qualitatively ("a small sibling-reduction
// term derived from sum of visited-children priors, to force exploration
// initially"); gostone fixes it at this constant, matching the
// small-relative-to-Q magnitude the spec calls for.
const siblingReductionFactor = 0.1

// cpuct returns Cp(N) = log((N+Cbase)/Cbase) + CpInit, spec.md section
// 4.8.1's exploration-constant schedule.
func cpuct(parentVisits int64, cpBase, cpInit float64) float64 {
	return math.Log((float64(parentVisits)+cpBase)/cpBase) + cpInit
}

// selectChild applies PUCT over node's non-excluded children and returns
// the highest-scoring one; oppJustPassed feeds the pass/tail-child
// exclusion rules from spec.md section 4.8.1.
func (t *Tree) selectChild(node *Node, oppJustPassed bool) *ChildNode {
	lambda := t.lambda(node.Ply)
	parentVisits := node.TotalVisits()
	cp := cpuct(parentVisits, t.cfg.CPBase, t.cfg.CPInit)
	nodeQ, sumVisitedPriors := node.currentQ(lambda)

	n := len(node.Children)
	passIdx := n - 1 // spec.md: "the last child is Pass"

	var best *ChildNode
	bestScore := math.Inf(-1)
	for i, c := range node.Children {
		if t.excludeChild(node, i, passIdx, oppJustPassed) {
			continue
		}
		visits := c.Visits()
		var q float64
		if visits == 0 {
			q = nodeQ - siblingReductionFactor*sumVisitedPriors
		} else {
			q = (1-lambda)*c.RollRate() + lambda*c.ValueRate()
		}
		u := cp * c.Prior * math.Sqrt(float64(parentVisits)) / float64(1+visits)
		score := q + u
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// excludeChild implements spec.md section 4.8.1's exclusions: Pass is
// elided unless Japanese rule AND the game is past 2/3 of a full-board
// worth of moves, or a per-search playout cap has been reached; after an
// opponent Pass under Chinese rule the last 1/4 of children (the
// lowest-prior tail, since Children is expected to be prior-sorted at
// construction) is also elided.
func (t *Tree) excludeChild(node *Node, i, passIdx int, oppJustPassed bool) bool {
	n := len(node.Children)
	if i == passIdx {
		if t.searchLimitReached() {
			return false
		}
		if t.rule == ruleJapanese {
			twoThirds := (t.ct.Size * t.ct.Size * 2) / 3
			return node.Ply < twoThirds
		}
		return true
	}
	if oppJustPassed && t.rule == ruleChinese {
		tailStart := n - n/4
		if i >= tailStart {
			return true
		}
	}
	return false
}

func (t *Tree) searchLimitReached() bool {
	limit := t.cfg.SearchLimit
	if limit <= 0 {
		return false
	}
	return t.playouts.Load() >= limit
}
