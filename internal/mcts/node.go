package mcts

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hailam/gostone/internal/coord"
)

// CreationState tracks a ChildNode's expansion progress, per spec.md
// section 3's "exactly one thread may transition Initial->Creating and is
// responsible for populating next_ptr".
type CreationState int32

const (
	Initial CreationState = iota
	Creating
	Complete
)

// ChildNode is one legal move from a Node, with its own rate statistics
// and (once expanded) an owning pointer to the Node it leads to — spec.md
// section 3's ChildNode record.
type ChildNode struct {
	Move Vertex
	// Prior is the policy weight assigned at creation, already reduced by
	// config.LadderReduction when IsLadderMove is true. gostone tracks the
	// "ladder move, deprioritised" marker as an explicit bool rather than
	// the source's negative-prior sentinel, since nothing here needs to
	// pack the flag into the same field as the float.
	Prior        float64
	IsLadderMove bool

	numRollouts atomic.Int64
	numValues   atomic.Int64
	winRollouts AtomicFloat64
	winValues   AtomicFloat64

	state atomic.Int32
	mu    sync.Mutex
	cond  *sync.Cond
	next  *Node
}

func newChildNode(move Vertex, prior float64, ladder bool) *ChildNode {
	c := &ChildNode{Move: move, Prior: prior, IsLadderMove: ladder}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Visits is the child's total visit count across both rollout and
// network-value backups — the N_child spec.md section 4.8.1's PUCT formula
// selects on.
func (c *ChildNode) Visits() int64 {
	return c.numRollouts.Load() + c.numValues.Load()
}

// RollRate is the rollout-backed win rate, 0 if unvisited by a rollout.
func (c *ChildNode) RollRate() float64 {
	n := c.numRollouts.Load()
	if n <= 0 {
		return 0
	}
	return c.winRollouts.Load() / float64(n)
}

// ValueRate is the network-value-backed win rate, 0 if unvisited by a
// network eval.
func (c *ChildNode) ValueRate() float64 {
	n := c.numValues.Load()
	if n <= 0 {
		return 0
	}
	return c.winValues.Load() / float64(n)
}

// ApplyVirtualLoss records an in-flight descent: it adds one pessimistic
// rollout visit with a loss-sized negative contribution, per spec.md
// section 4.7's virtual-loss mechanism. CancelVirtualLoss (called exactly
// once per ApplyVirtualLoss, invariant I8) removes that placeholder and
// records the real backed-up result in the appropriate bucket.
func (c *ChildNode) ApplyVirtualLoss(loss float64) {
	c.numRollouts.Add(1)
	c.winRollouts.Add(-loss)
}

// CancelVirtualLoss cancels the matching ApplyVirtualLoss and records
// result into the rollout bucket (fromValue=false) or the value bucket
// (fromValue=true).
func (c *ChildNode) CancelVirtualLoss(loss float64, result float64, fromValue bool) {
	c.numRollouts.Add(-1)
	c.winRollouts.Add(loss)
	if fromValue {
		c.numValues.Add(1)
		c.winValues.Add(result)
	} else {
		c.numRollouts.Add(1)
		c.winRollouts.Add(result)
	}
}

// TryBeginCreate attempts the Initial->Creating transition. The caller
// that wins (returns true) is the single writer responsible for building
// the child's Node and calling Complete; all other callers should use
// WaitForComplete.
func (c *ChildNode) TryBeginCreate() bool {
	return c.state.CompareAndSwap(int32(Initial), int32(Creating))
}

// Complete publishes n as the child's Node and wakes any waiters. Acquiring
// c.mu before the state store and releasing after gives every later reader
// of state==Complete an acquire/release view of a fully populated Node,
// per spec.md section 5's ordering guarantee.
func (c *ChildNode) Complete(n *Node) {
	c.mu.Lock()
	c.next = n
	c.state.Store(int32(Complete))
	c.cond.Broadcast()
	c.mu.Unlock()
}

// WaitForComplete blocks until the winning creator calls Complete, or ctx
// is canceled (in which case it returns nil). This is one of the three
// suspension points spec.md section 5 names.
func (c *ChildNode) WaitForComplete(ctx context.Context) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state.Load() != int32(Complete) {
		if ctx.Err() != nil {
			return nil
		}
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				c.cond.Broadcast()
			case <-done:
			}
		}()
		c.cond.Wait()
		close(done)
	}
	return c.next
}

// Next returns the child's Node if expansion has completed, else nil.
func (c *ChildNode) Next() *Node {
	if c.state.Load() != int32(Complete) {
		return nil
	}
	return c.next
}

// State returns the child's current creation state.
func (c *ChildNode) State() CreationState {
	return CreationState(c.state.Load())
}

// Node is one position in the search tree: the set of legal moves (as
// ChildNode entries) plus the network value assigned when the node was
// created, per spec.md section 3.
type Node struct {
	Key   uint64
	Ply   int
	Value float64 // network value, signed from this node's side-to-move

	Children []*ChildNode
}

// Subtree-size accounting lives on the Tree as one atomic allocation
// counter rather than a per-node num_entries field: the cap's only job is
// aborting the search when the table is exhausted (spec.md section 5
// chooses that over graceful eviction), so an O(1) global count suffices.
func newNode(key uint64, ply int, value float64, moves []Vertex, priors []float64, ladder []bool) *Node {
	n := &Node{Key: key, Ply: ply, Value: value}
	n.Children = make([]*ChildNode, len(moves))
	for i := range moves {
		n.Children[i] = newChildNode(moves[i], priors[i], ladder[i])
	}
	return n
}

// TotalVisits sums every child's visit count — spec.md invariant I7,
// computed on demand from the children rather than incrementally
// maintained in a separate atomic, which trivially satisfies I7 by
// construction instead of needing its own reconciliation.
func (n *Node) TotalVisits() int64 {
	var total int64
	for _, c := range n.Children {
		total += c.Visits()
	}
	return total
}

// currentQ returns the node's own blended win-rate estimate (used as the
// fall-back Q for an as-yet-unvisited child, spec.md section 4.8.1) and the
// sum of priors of every child that has at least one visit, which feeds
// the small "sibling reduction" exploration term.
func (n *Node) currentQ(lambda float64) (q float64, sumVisitedPriors float64) {
	var weighted float64
	var totalVisits int64
	for _, c := range n.Children {
		v := c.Visits()
		if v == 0 {
			continue
		}
		sumVisitedPriors += c.Prior
		cq := (1-lambda)*c.RollRate() + lambda*c.ValueRate()
		weighted += cq * float64(v)
		totalVisits += v
	}
	if totalVisits == 0 {
		return n.Value, 0
	}
	return weighted / float64(totalVisits), sumVisitedPriors
}

// Vertex aliases coord.Vertex so callers of this package don't need to
// import internal/coord just to spell move types.
type Vertex = coord.Vertex
