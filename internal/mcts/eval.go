package mcts

import (
	"context"

	"github.com/hailam/gostone/internal/board"
	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/eval"
)

// evaluate resolves a leaf's (value, policy) via exact-key cache lookups
// first (direct key, then — early in the game — the 7 non-identity board
// symmetries per spec.md section 4.5), falling back to the batching
// EvalWorker on a full miss and warming the cache with the result.
func (t *Tree) evaluate(ctx context.Context, b *board.Board) (eval.Result, error) {
	key := b.HashKey()
	if r, ok := t.cache.Get(key); ok {
		return r, nil
	}

	earlyGame := b.Ply() < (t.ct.Size*t.ct.Size)/12
	if earlyGame {
		sym := b.SymmetricHashes()
		for i := 1; i < 8; i++ {
			if r, ok := t.cache.Get(sym[i]); ok {
				straight := unrotatePolicy(t.ct, r, i)
				t.cache.Set(key, straight)
				return straight, nil
			}
		}
	}

	res, err := t.eval.Evaluate(ctx, b.Feature.Tensor())
	if err != nil {
		return eval.Result{}, err
	}
	// A model trained to judge from Black's perspective is normalized to
	// side-to-move before anything downstream (or the cache) sees it.
	if t.cfg.ValueFromBlack && b.SideToMove == coord.White {
		res.Value = -res.Value
	}
	t.cache.Set(key, res)
	return res, nil
}

// unrotatePolicy maps a cached Result's policy plane (computed for the
// board as transformed by symmetry i, where this board's vertex rv sits at
// index Symmetry(rv, i)) back to the board's actual orientation, so the
// returned Result can be cached and consumed under the straight key.
func unrotatePolicy(ct *coord.Table, r eval.Result, symIdx int) eval.Result {
	n := ct.Size * ct.Size
	if len(r.Policy) < n {
		return r
	}
	policy := make([]float32, len(r.Policy))
	for rv := 0; rv < n; rv++ {
		policy[rv] = r.Policy[ct.Symmetry(coord.RawVertex(rv), symIdx)]
	}
	if len(r.Policy) > n {
		policy[n] = r.Policy[n] // pass slot is symmetry-invariant
	}
	return eval.Result{Policy: policy, Value: r.Value}
}
