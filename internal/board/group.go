package board

import "github.com/hailam/gostone/internal/coord"

// wallStones is the sentinel num_stones value that marks a wall group, so
// neighbour loops never need a special branch for border vertices
// (spec.md section 4.3).
const wallStones = -1

// StoneGroup is the aggregate of connected same-color stones rooted at one
// representative vertex: spec.md section 3's per-vertex StoneGroup,
// addressed indirectly through Board.sgID.
type StoneGroup struct {
	numStones   int
	liberties   *vertexSet
	atariVertex coord.Vertex
}

func newStoneGroup(n int) *StoneGroup {
	return &StoneGroup{numStones: 0, liberties: newVertexSet(n), atariVertex: coord.KNull}
}

func newWallGroup() *StoneGroup {
	return &StoneGroup{numStones: wallStones, liberties: nil, atariVertex: coord.KNull}
}

func (g *StoneGroup) isWall() bool { return g.numStones == wallStones }

// NumStones returns the group's stone count.
func (g *StoneGroup) NumStones() int { return g.numStones }

// NumLiberties returns the group's liberty count.
func (g *StoneGroup) NumLiberties() int {
	if g.isWall() {
		return 1 << 30 // walls never run out of liberties
	}
	return g.liberties.Count()
}

// AddLiberty records v as a liberty of the group.
func (g *StoneGroup) AddLiberty(v coord.Vertex) {
	if g.isWall() {
		return
	}
	g.liberties.Add(v)
}

// RemoveLiberty removes v from the group's liberties. If exactly one
// liberty remains afterward, the caller is responsible for recomputing
// AtariVertex via liberties.First(), per spec.md section 4.3.
func (g *StoneGroup) RemoveLiberty(v coord.Vertex) {
	if g.isWall() {
		return
	}
	g.liberties.Remove(v)
}

// AtariVertex returns the group's sole liberty. Only meaningful when
// NumLiberties()==1; stale otherwise.
func (g *StoneGroup) AtariVertex() coord.Vertex { return g.atariVertex }

// RecomputeAtariVertex refreshes AtariVertex from the liberty set; callers
// invoke this exactly on the transition to a single liberty.
func (g *StoneGroup) RecomputeAtariVertex() {
	if g.liberties.Count() == 1 {
		g.atariVertex = coord.Vertex(g.liberties.First())
	}
}

// Merge absorbs other into g: liberties are unioned. Caller is responsible
// for repointing sgID for other's stones and splicing the next_v rings; see
// Board.mergeInto for the "keep the larger group's id" policy from
// spec.md step 7.
func (g *StoneGroup) Merge(other *StoneGroup) {
	g.numStones += other.numStones
	g.liberties.Merge(other.liberties)
	if g.liberties.Count() == 1 {
		g.RecomputeAtariVertex()
	}
}
