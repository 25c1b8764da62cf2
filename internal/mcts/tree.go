package mcts

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/gostone/internal/board"
	"github.com/hailam/gostone/internal/config"
	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/eval"
)

const (
	ruleChinese  = board.RuleChinese
	ruleJapanese = board.RuleJapanese
)

// maxPly bounds a single descent's synthetic game length, matching
// spec.md section 4.8.2's "Ply cap" terminal condition.
const maxPly = 720

// rolloutDepth bounds PlayRollout's own internal loop when a leaf resolves
// to a double-pass/ply-cap terminal, or a rollout-only descent reaches an
// unexpanded leaf, and needs a score estimate.
const rolloutDepth = 720

// Tree is the PUCT search tree from spec.md section 4.8: SearchTree's
// selection, parallel descent workers, time control and scoring
// orchestration, built over the Node/ChildNode records in node.go.
type Tree struct {
	cfg   *config.Options
	ct    *coord.Table
	cache *eval.Cache
	eval  *eval.Worker
	rule  board.Rule

	root     *Node
	rootMu   chanMutex // guards root swaps during UpdateRoot/ShiftRoot
	playouts atomic.Int64
	nodes    atomic.Int64 // nodes allocated since InitRoot; bounds the tree
	stop     atomic.Bool
}

// chanMutex is a trivial channel-backed mutex; used only to serialize the
// rare, non-hot-path root swap against concurrent Search calls (there are
// none in normal GTP usage, but this keeps the type honest under misuse).
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	c := make(chanMutex, 1)
	c <- struct{}{}
	return c
}
func (m chanMutex) Lock()   { <-m }
func (m chanMutex) Unlock() { m <- struct{}{} }

// NewTree builds a Tree with no root; call UpdateRoot before the first
// Search.
func NewTree(cfg *config.Options, ct *coord.Table, cache *eval.Cache, worker *eval.Worker) *Tree {
	return &Tree{
		cfg:    cfg,
		ct:     ct,
		cache:  cache,
		eval:   worker,
		rule:   cfg.Rule,
		rootMu: newChanMutex(),
	}
}

// InitRoot matches the `clear` command's Tree.init_root() contract
// (spec.md section 6): drop any existing tree.
func (t *Tree) InitRoot() {
	t.rootMu.Lock()
	defer t.rootMu.Unlock()
	t.root = nil
	t.nodes.Store(0)
}

// HasRoot reports whether a root Node exists.
func (t *Tree) HasRoot() bool {
	t.rootMu.Lock()
	defer t.rootMu.Unlock()
	return t.root != nil
}

// UpdateRoot ensures a root Node exists matching b's current position,
// building one from scratch if necessary. Re-calling it on the current
// root is a no-op (spec.md section 8's idempotence property).
func (t *Tree) UpdateRoot(ctx context.Context, b *board.Board) error {
	t.rootMu.Lock()
	defer t.rootMu.Unlock()
	if t.root != nil && t.root.Key == b.HashKey() {
		return nil
	}
	n, err := t.buildNode(ctx, b)
	if err != nil {
		return err
	}
	if t.cfg.UseDirichletNoise {
		addDirichletNoise(n, t.cfg.DirichletNoise, rand.New(rand.NewSource(int64(n.Key))))
	}
	t.root = n
	return nil
}

// addDirichletNoise blends a Dirichlet(alpha) sample into the root priors
// (0.75 prior + 0.25 noise), the exploration kick spec.md section 6's
// use_dirichlet_noise/dirichlet_noise keys configure. Gamma variates come
// from Marsaglia-Tsang, boosted for shape < 1.
func addDirichletNoise(n *Node, alpha float64, rng *rand.Rand) {
	if alpha <= 0 || len(n.Children) == 0 {
		return
	}
	noise := make([]float64, len(n.Children))
	sum := 0.0
	for i := range noise {
		noise[i] = gammaSample(rng, alpha)
		sum += noise[i]
	}
	if sum <= 0 {
		return
	}
	for i, c := range n.Children {
		c.Prior = 0.75*c.Prior + 0.25*noise[i]/sum
	}
}

func gammaSample(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		// Gamma(a) = Gamma(a+1) * U^(1/a)
		return gammaSample(rng, shape+1) * math.Pow(rng.Float64(), 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// ShiftRoot rebases the root to the grandchild along (oppMove, ownMove) —
// the two plies played on the real board since the last call — per spec.md
// section 3's root-shift: "reattaches to the matching grandchild... or
// creates a new Node from the board if the intermediate nodes are
// missing". The detached subtree (old root, and any sibling not on the
// path) is simply dropped for the garbage collector; spec.md's "released
// in a background task because releasing 10^5+ nodes synchronously stalls
// the UI loop" is Go's GC's job once nothing references the old root, so
// the only active work here is finding or rebuilding the new root, which
// this does in a background goroutine to keep ShiftRoot itself
// non-blocking.
func (t *Tree) ShiftRoot(b *board.Board, oppMove, ownMove coord.Vertex) {
	t.rootMu.Lock()
	oldRoot := t.root
	t.rootMu.Unlock()
	if oldRoot == nil {
		// Nothing to shift; the next UpdateRoot builds from scratch anyway.
		return
	}

	go func() {
		next := t.rebase(oldRoot, oppMove, ownMove)
		t.rootMu.Lock()
		defer t.rootMu.Unlock()
		if next != nil && next.Key == b.HashKey() {
			t.root = next
			return
		}
		// Fall back to building fresh from the board; background so a slow
		// rebuild never blocks the caller either.
		n, err := t.buildNode(context.Background(), b)
		if err == nil {
			t.root = n
		}
	}()
}

func (t *Tree) rebase(root *Node, oppMove, ownMove coord.Vertex) *Node {
	if root == nil {
		return nil
	}
	c1 := findChild(root, oppMove)
	if c1 == nil {
		return nil
	}
	mid := c1.Next()
	if mid == nil {
		return nil
	}
	c2 := findChild(mid, ownMove)
	if c2 == nil {
		return nil
	}
	return c2.Next()
}

func findChild(n *Node, move coord.Vertex) *ChildNode {
	for _, c := range n.Children {
		if c.Move == move {
			return c
		}
	}
	return nil
}

// lambda implements spec.md section 4.8.5's ramp: lambda_init at
// lambda_move_start, linearly down to lambda_init-lambda_delta at
// lambda_move_end, clamped outside that range.
func (t *Tree) lambda(ply int) float64 {
	c := t.cfg
	if ply <= c.LambdaMoveStart {
		return c.LambdaInit
	}
	if ply >= c.LambdaMoveEnd || c.LambdaMoveEnd <= c.LambdaMoveStart {
		return c.LambdaInit - c.LambdaDelta
	}
	frac := float64(ply-c.LambdaMoveStart) / float64(c.LambdaMoveEnd-c.LambdaMoveStart)
	return c.LambdaInit - c.LambdaDelta*frac
}

// Search runs parallel PUCT descent from the current root for up to budget
// (spec.md section 4.8.4 computes budget; Search itself just spends it),
// then returns the most-visited legal move and its blended win-rate
// estimate, applying the Chinese-rule top-two-child pass swap from spec.md
// section 4.8.6.
func (t *Tree) Search(ctx context.Context, b *board.Board, budget time.Duration) (coord.Vertex, float64) {
	t.rootMu.Lock()
	root := t.root
	t.rootMu.Unlock()
	if root == nil {
		return coord.KPass, 0
	}

	deadline := time.Now().Add(budget)
	searchCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	t.stop.Store(false)
	t.playouts.Store(0)

	numWorkers := t.cfg.NumThreads
	if numWorkers < 1 {
		numWorkers = 1
	}

	// spec.md section 4.8.3: workers split into evaluators (majority) and
	// rollout-only workers (the remainder, minimum 1) rather than all
	// running identical network-backed descents.
	numRollout := numWorkers / 5
	if numRollout < 1 {
		numRollout = 1
	}
	if numRollout >= numWorkers {
		numRollout = numWorkers - 1
	}

	go t.monitorOvertake(searchCtx, root, deadline)

	g, gctx := errgroup.WithContext(searchCtx)
	for i := 0; i < numWorkers; i++ {
		wid := i
		useNetwork := wid >= numRollout
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(wid) + 1))
			for {
				if t.stop.Load() || gctx.Err() != nil {
					return nil
				}
				playBoard := b.Clone()
				t.descend(gctx, rng, root, playBoard, useNetwork)
				t.playouts.Add(1)
				if time.Now().After(deadline) || t.searchLimitReached() || t.treeFull() {
					t.stop.Store(true)
					return nil
				}
			}
		})
	}
	_ = g.Wait()

	return t.bestMove(root, b.SideToMove)
}

// Playouts returns how many descents the most recent Search completed,
// for the caller's cumulative game statistics.
func (t *Tree) Playouts() int64 { return t.playouts.Load() }

// treeFull reports whether node allocation has hit the configured cap;
// the search aborts rather than evicting, per spec.md section 5.
func (t *Tree) treeFull() bool {
	return t.cfg.NodeSize > 0 && t.nodes.Load() >= int64(t.cfg.NodeSize)
}

// monitorOvertake is the termination monitor from spec.md section 4.8.3:
// once the runner-up can no longer catch the leader in the remaining
// budget (at the observed playout rate), searching on changes nothing, so
// stop_think is raised early. It waits for a minimum sample before
// trusting the rate estimate.
func (t *Tree) monitorOvertake(ctx context.Context, root *Node, deadline time.Time) {
	const minSample = 100
	start := time.Now()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if t.stop.Load() {
			return
		}
		done := t.playouts.Load()
		if done < minSample {
			continue
		}
		remaining := time.Until(deadline).Seconds()
		if remaining <= 0 {
			return
		}
		rate := float64(done) / time.Since(start).Seconds()
		best, second := int64(0), int64(0)
		for _, c := range root.Children {
			v := c.Visits()
			switch {
			case v > best:
				second, best = best, v
			case v > second:
				second = v
			}
		}
		if float64(best-second) > rate*remaining {
			t.stop.Store(true)
			return
		}
	}
}

func (t *Tree) bestMove(root *Node, side coord.Color) (coord.Vertex, float64) {
	if len(root.Children) == 0 {
		return coord.KPass, 0
	}
	best := root.Children[0]
	for _, c := range root.Children[1:] {
		if c.Visits() > best.Visits() || (c.Visits() == best.Visits() && c.Prior > best.Prior) {
			best = c
		}
	}

	if t.rule == ruleChinese && len(root.Children) >= 2 {
		passIdx := len(root.Children) - 1
		if best == root.Children[passIdx] {
			second := secondBest(root.Children, passIdx)
			if second != nil && root.Children[passIdx].winSum() < 0 && second.winSum() > 0 {
				best = second
			}
		}
	}

	lambda := t.lambda(root.Ply)
	q := (1-lambda)*best.RollRate() + lambda*best.ValueRate()
	// Backed-up results live in [-1,+1]; callers reason in win
	// probabilities, so rescale before handing the estimate out.
	return best.Move, (1 + q) / 2
}

// RootStats reports the current root's leading win-rate estimate along
// with its best and second-best children's visit counts and value rates,
// for a caller's own time-budget decisions (spec.md section 4.8.4's
// win-estimate compression and visit-closeness extension) between Search
// calls, without exposing the Node/ChildNode types themselves. ok is false
// if no root exists yet or the root has no children.
func (t *Tree) RootStats() (winRate float64, bestVisits, secondVisits int64, bestValueRate, secondValueRate float64, ok bool) {
	t.rootMu.Lock()
	root := t.root
	t.rootMu.Unlock()
	if root == nil || len(root.Children) == 0 {
		return 0, 0, 0, 0, 0, false
	}
	best := root.Children[0]
	bestIdx := 0
	for i, c := range root.Children[1:] {
		if c.Visits() > best.Visits() {
			best = c
			bestIdx = i + 1
		}
	}
	second := secondBest(root.Children, bestIdx)
	lambda := t.lambda(root.Ply)
	winRate = (1 + (1-lambda)*best.RollRate() + lambda*best.ValueRate()) / 2
	if second == nil {
		return winRate, best.Visits(), 0, best.ValueRate(), 0, true
	}
	return winRate, best.Visits(), second.Visits(), best.ValueRate(), second.ValueRate(), true
}

func secondBest(children []*ChildNode, exclude int) *ChildNode {
	var second *ChildNode
	for i, c := range children {
		if i == exclude {
			continue
		}
		if second == nil || c.Visits() > second.Visits() {
			second = c
		}
	}
	return second
}

func (c *ChildNode) winSum() float64 {
	return c.winRollouts.Load() + c.winValues.Load()
}
