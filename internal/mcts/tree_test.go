package mcts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hailam/gostone/internal/board"
	"github.com/hailam/gostone/internal/config"
	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/eval"
	"github.com/hailam/gostone/internal/feature"
	"github.com/hailam/gostone/internal/pattern"
)

type searchFixture struct {
	tree   *Tree
	board  *board.Board
	cancel context.CancelFunc
}

func newSearchFixture(t *testing.T, cfg *config.Options) *searchFixture {
	t.Helper()
	ct, err := coord.NewTable(9)
	if err != nil {
		t.Fatalf("coord.NewTable: %v", err)
	}
	cache, err := eval.NewCache(int64(cfg.NodeSize))
	if err != nil {
		t.Fatalf("eval.NewCache: %v", err)
	}
	worker := eval.NewWorker(eval.NewHeuristicEvaluator(feature.NumChannels),
		cfg.BatchSize, time.Millisecond, time.Millisecond, 10*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	t.Cleanup(func() {
		cancel()
		cache.Close()
	})

	b := board.New(ct, pattern.NewTables(), pattern.NewRespTables(),
		cfg.Komi, cfg.Rule, cfg.RepetitionRule)
	return &searchFixture{
		tree:   NewTree(cfg, ct, cache, worker),
		board:  b,
		cancel: cancel,
	}
}

func TestAtomicFloat64ConcurrentAdds(t *testing.T) {
	var f AtomicFloat64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				f.Add(0.5)
			}
		}()
	}
	wg.Wait()
	if got := f.Load(); got != 4000 {
		t.Fatalf("concurrent Add total = %v, want 4000", got)
	}
}

func TestVirtualLossIsConserved(t *testing.T) {
	c := newChildNode(coord.KPass, 1.0, false)
	const loss = 3.0

	c.ApplyVirtualLoss(loss)
	if c.Visits() != 1 {
		t.Fatalf("visits during descent = %d, want 1", c.Visits())
	}
	if got := c.winRollouts.Load(); got != -loss {
		t.Fatalf("win sum during descent = %v, want %v", got, -loss)
	}

	c.CancelVirtualLoss(loss, 0.25, false)
	if c.Visits() != 1 {
		t.Fatalf("visits after backup = %d, want 1", c.Visits())
	}
	if got := c.winRollouts.Load(); got != 0.25 {
		t.Fatalf("rollout win sum after backup = %v, want 0.25", got)
	}

	// Value-bucket backup moves the visit from the rollout placeholder to
	// the value statistics.
	c2 := newChildNode(coord.KPass, 1.0, false)
	c2.ApplyVirtualLoss(loss)
	c2.CancelVirtualLoss(loss, -0.5, true)
	if c2.numRollouts.Load() != 0 || c2.numValues.Load() != 1 {
		t.Fatalf("value backup buckets: rollouts=%d values=%d, want 0/1",
			c2.numRollouts.Load(), c2.numValues.Load())
	}
	if got := c2.winValues.Load(); got != -0.5 {
		t.Fatalf("value win sum = %v, want -0.5", got)
	}
	if got := c2.winRollouts.Load(); got != 0 {
		t.Fatalf("rollout win sum should net to zero, got %v", got)
	}
}

func TestChildNodeSingleWriterCreation(t *testing.T) {
	c := newChildNode(coord.KPass, 1.0, false)
	if !c.TryBeginCreate() {
		t.Fatal("first TryBeginCreate should win")
	}
	if c.TryBeginCreate() {
		t.Fatal("second TryBeginCreate should lose the race")
	}

	done := make(chan *Node, 1)
	go func() {
		done <- c.WaitForComplete(context.Background())
	}()

	n := &Node{Key: 7}
	c.Complete(n)
	select {
	case got := <-done:
		if got != n {
			t.Fatal("waiter observed a different node than the creator published")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForComplete never woke up")
	}
	if c.Next() != n {
		t.Fatal("Next should return the published node after Complete")
	}
}

func TestWaitForCompleteHonorsCancellation(t *testing.T) {
	c := newChildNode(coord.KPass, 1.0, false)
	c.TryBeginCreate() // never completed

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if got := c.WaitForComplete(ctx); got != nil {
		t.Fatal("canceled WaitForComplete should return nil")
	}
}

func TestLambdaSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.LambdaInit = 0.8
	cfg.LambdaDelta = 0.3
	cfg.LambdaMoveStart = 10
	cfg.LambdaMoveEnd = 20
	f := newSearchFixture(t, cfg)

	if got := f.tree.lambda(0); got != 0.8 {
		t.Errorf("lambda(0) = %v, want 0.8", got)
	}
	if got := f.tree.lambda(15); got != 0.65 {
		t.Errorf("lambda(15) = %v, want midpoint 0.65", got)
	}
	if got := f.tree.lambda(100); got != 0.5 {
		t.Errorf("lambda(100) = %v, want clamped 0.5", got)
	}
}

func TestCpuctGrowsWithParentVisits(t *testing.T) {
	small := cpuct(10, 19652, 1.5)
	large := cpuct(1_000_000, 19652, 1.5)
	if large <= small {
		t.Fatalf("Cp should grow with N: %v vs %v", small, large)
	}
	if small < 1.5 {
		t.Fatalf("Cp(N) must never dip below CpInit, got %v", small)
	}
}

func TestUpdateRootIsIdempotent(t *testing.T) {
	f := newSearchFixture(t, config.Default())
	ctx := context.Background()

	if err := f.tree.UpdateRoot(ctx, f.board); err != nil {
		t.Fatalf("UpdateRoot: %v", err)
	}
	first := f.tree.root
	if err := f.tree.UpdateRoot(ctx, f.board); err != nil {
		t.Fatalf("UpdateRoot (again): %v", err)
	}
	if f.tree.root != first {
		t.Fatal("re-calling UpdateRoot on the same position must be a no-op")
	}
}

func TestBuildNodeExcludesIllegalAndEyeMoves(t *testing.T) {
	f := newSearchFixture(t, config.Default())
	node, err := f.tree.buildNode(context.Background(), f.board)
	if err != nil {
		t.Fatalf("buildNode: %v", err)
	}
	// Empty 9x9 board: all 81 points legal plus Pass, Pass last.
	if len(node.Children) != 82 {
		t.Fatalf("children = %d, want 82", len(node.Children))
	}
	if node.Children[len(node.Children)-1].Move != coord.KPass {
		t.Fatal("the last child must be Pass")
	}
	sum := 0.0
	for _, c := range node.Children {
		sum += c.Prior
	}
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("priors should be normalized, sum = %v", sum)
	}
}

func TestSearchReturnsLegalMoveAndCountsPlayouts(t *testing.T) {
	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.SearchLimit = 30
	f := newSearchFixture(t, cfg)
	ctx := context.Background()

	if err := f.tree.UpdateRoot(ctx, f.board); err != nil {
		t.Fatalf("UpdateRoot: %v", err)
	}
	move, winRate := f.tree.Search(ctx, f.board, 2*time.Second)
	if move != coord.KPass && !f.board.Coord.OnBoard(move) {
		t.Fatalf("Search returned an off-board move %v", move)
	}
	if !f.board.IsLegal(f.board.SideToMove, move) {
		t.Fatalf("Search returned illegal move %v", move)
	}
	if winRate < 0 || winRate > 1 {
		t.Fatalf("win rate %v outside [0,1]", winRate)
	}
	if f.tree.playouts.Load() == 0 {
		t.Fatal("Search completed no playouts")
	}

	// With parallelism quiesced, every applied virtual loss has been
	// canceled: total root visits equals completed descents.
	if total := f.tree.root.TotalVisits(); total != f.tree.playouts.Load() {
		t.Fatalf("root visits %d != playouts %d (virtual loss not conserved)",
			total, f.tree.playouts.Load())
	}
}

func TestShiftRootRebasesToGrandchild(t *testing.T) {
	cfg := config.Default()
	cfg.NumThreads = 1
	cfg.SearchLimit = 40
	f := newSearchFixture(t, cfg)
	ctx := context.Background()

	if err := f.tree.UpdateRoot(ctx, f.board); err != nil {
		t.Fatalf("UpdateRoot: %v", err)
	}
	f.tree.Search(ctx, f.board, 2*time.Second)

	// Find an expanded child with an expanded grandchild to rebase onto.
	root := f.tree.root
	var move1, move2 coord.Vertex
	var want *Node
	for _, c1 := range root.Children {
		mid := c1.Next()
		if mid == nil || c1.Move == coord.KPass {
			continue
		}
		for _, c2 := range mid.Children {
			if gc := c2.Next(); gc != nil && c2.Move != coord.KPass {
				move1, move2, want = c1.Move, c2.Move, gc
				break
			}
		}
		if want != nil {
			break
		}
	}
	if want == nil {
		t.Skip("search did not expand two plies deep; nothing to rebase onto")
	}

	f.board.MakeMove(board.ModeOneWay, move1)
	f.board.MakeMove(board.ModeOneWay, move2)
	f.tree.ShiftRoot(f.board, move1, move2)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.tree.rootMu.Lock()
		root := f.tree.root
		f.tree.rootMu.Unlock()
		if root == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("ShiftRoot never rebased to the matching grandchild")
}

// TestEvaluateFindsSymmetricCacheEntry pins the symmetry law from spec.md
// section 8: an entry cached for a rotated equivalent of the position is
// found by evaluate and its policy is permuted back to this orientation.
func TestEvaluateFindsSymmetricCacheEntry(t *testing.T) {
	f := newSearchFixture(t, config.Default())
	f.board.MakeMove(board.ModeOneWay, f.board.Coord.V(3, 3))

	ct := f.board.Coord
	stoneRaw := ct.ToRaw(ct.V(3, 3))
	sym := f.board.SymmetricHashes()

	// Build a policy in the rotated orientation that spikes at the rotated
	// image of (3,3).
	policy := make([]float32, 82)
	policy[ct.Symmetry(stoneRaw, 1)] = 0.7
	f.tree.cache.Set(sym[1], eval.Result{Policy: policy, Value: 0.25})
	f.tree.cache.Wait()

	res, err := f.tree.evaluate(context.Background(), f.board)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Value != 0.25 {
		t.Fatalf("symmetric probe returned value %v, want 0.25", res.Value)
	}
	if res.Policy[stoneRaw] != 0.7 {
		t.Fatalf("policy not unrotated: spike at %v, want 0.7 at the stone's own vertex",
			res.Policy[stoneRaw])
	}
}

func TestMarginToValueSidePerspective(t *testing.T) {
	if v := marginToValue(30, coord.Black); v <= 0 {
		t.Fatalf("a Black lead should be positive for Black, got %v", v)
	}
	if v := marginToValue(30, coord.White); v >= 0 {
		t.Fatalf("a Black lead should be negative for White, got %v", v)
	}
	if v := marginToValue(0, coord.Black); v != 0 {
		t.Fatalf("an even margin should map to 0, got %v", v)
	}
}
