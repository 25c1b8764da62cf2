// Package coord holds the static, derived-once tables shared by every other
// package: vertex<->(x,y) conversion, neighbour offsets, the 8 board
// symmetries, Manhattan-distance buckets, and Zobrist randoms. Nothing here
// is mutated after NewTable returns; callers pass the *Table around instead
// of reaching for package globals.
package coord

import "fmt"

// Color is the occupant of a vertex.
type Color uint8

const (
	Black Color = iota
	White
	Empty
	Wall
)

// Opposite returns the other playing color. Only meaningful for Black/White.
func (c Color) Opposite() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return c
	}
}

func (c Color) String() string {
	switch c {
	case Black:
		return "B"
	case White:
		return "W"
	case Empty:
		return "."
	default:
		return "#"
	}
}

// Vertex indexes the expansion board: [0, (B+2)^2). A 1-vertex wall border
// surrounds the playable B x B area so neighbour access never needs bounds
// checks.
type Vertex int32

// RawVertex is the compact [0, B^2) index used for network planes and file
// formats, with no wall border.
type RawVertex int32

const (
	// KPass is a distinguished vertex above the board representing a pass.
	KPass Vertex = 1 << 20
	// KNull is a distinguished vertex above KPass representing "no vertex".
	KNull Vertex = KPass + 1
)

// Table holds every statically derivable constant for one board size. Build
// once with NewTable and share the pointer; it is never mutated afterward.
type Table struct {
	Size   int // B: 9, 13, or 19
	Stride int // B + 2
	NumVtx int // (B+2)^2

	// Neighbour offsets, compile-time constants in the source this is
	// ported from; here they're fields of Table since B varies at runtime.
	Up, Down, Left, Right                Vertex
	UpLeft, UpRight, DownLeft, DownRight Vertex
	Up2, Down2, Left2, Right2            Vertex

	onBoard []bool // indexed by Vertex, true for the BxB play area
	toRaw   []RawVertex
	fromRaw []Vertex
	x, y    []int // indexed by Vertex

	// sym[i] maps a RawVertex under symmetry i in [0,8) to another RawVertex.
	sym [8][]RawVertex
	// symInverse[i] is the symmetry index that undoes sym[i].
	symInverse [8]int

	// distanceBucket[v] is one of 17 buckets used to weight rollout priors
	// by distance from the board edge/center, per original_source/distance.cpp.
	distanceBucket []int

	// Zobrist randoms.
	zobrist     [][2]uint64 // per vertex, per color (Black=0, White=1)
	zobristSide uint64
	zobristKo   []uint64 // per vertex, toggled when it becomes/stops being ko

	// Nakade vital-point table: zobrist-sum-of-empty-vertices of a dead
	// shape -> vital vertex, both translated onto this board.
	nakade map[uint64]Vertex
	// Bent-four corner shapes used during seki disambiguation.
	bentFour map[uint64]bool

	starPoints map[Vertex]bool
}

// V builds a Vertex from 1-based board coordinates (x,y in [1,B]).
func (t *Table) V(x, y int) Vertex {
	return Vertex(y*t.Stride + x)
}

// XY returns the 1-based board coordinates of v.
func (t *Table) XY(v Vertex) (int, int) {
	return t.x[v], t.y[v]
}

// OnBoard reports whether v is inside the BxB play area (not wall, not pass/null).
func (t *Table) OnBoard(v Vertex) bool {
	if v < 0 || int(v) >= len(t.onBoard) {
		return false
	}
	return t.onBoard[v]
}

// ToRaw converts an on-board Vertex to its compact RawVertex form.
func (t *Table) ToRaw(v Vertex) RawVertex {
	return t.toRaw[v]
}

// FromRaw converts a RawVertex back to an expansion-board Vertex.
func (t *Table) FromRaw(rv RawVertex) Vertex {
	return t.fromRaw[rv]
}

// Neighbors4 returns the 4 orthogonal neighbours of v.
func (t *Table) Neighbors4(v Vertex) [4]Vertex {
	return [4]Vertex{v + t.Up, v + t.Right, v + t.Down, v + t.Left}
}

// Neighbors8 returns the 4 orthogonal plus 4 diagonal neighbours of v.
func (t *Table) Neighbors8(v Vertex) [8]Vertex {
	return [8]Vertex{
		v + t.Up, v + t.Right, v + t.Down, v + t.Left,
		v + t.UpLeft, v + t.UpRight, v + t.DownLeft, v + t.DownRight,
	}
}

// Walk calls fn once for every on-board vertex (not wall, not pass/null).
func (t *Table) Walk(fn func(v Vertex)) {
	for v := 0; v < t.NumVtx; v++ {
		if t.onBoard[v] {
			fn(Vertex(v))
		}
	}
}

// FarNeighbor returns the vertex 2 steps out from v in direction dir
// (0=N,1=E,2=S,3=W), computed from (x,y) rather than raw pointer arithmetic
// so it never wraps into an adjacent row when v sits on the first/last rank
// or file — the single-vertex wall ring is only 1 deep, so a naive v+2*Up
// style offset can alias into the wrong row. ok is false (and the returned
// vertex meaningless) when the 2-step point falls outside the wall-bordered
// expansion board entirely.
func (t *Table) FarNeighbor(v Vertex, dir int) (Vertex, bool) {
	if v < 0 || int(v) >= len(t.x) {
		return 0, false
	}
	x, y := t.x[v], t.y[v]
	switch dir {
	case 0:
		y += 2
	case 1:
		x += 2
	case 2:
		y -= 2
	case 3:
		x -= 2
	}
	if x < 0 || x > t.Size+1 || y < 0 || y > t.Size+1 {
		return 0, false
	}
	return t.V(x, y), true
}

// ZobristStone returns the Zobrist random for placing color c at v.
func (t *Table) ZobristStone(v Vertex, c Color) uint64 {
	return t.zobrist[v][c]
}

// ZobristSide is XORed in whenever the side to move flips.
func (t *Table) ZobristSide() uint64 { return t.zobristSide }

// ZobristKo is XORed in when v transitions into/out of being the ko point.
func (t *Table) ZobristKo(v Vertex) uint64 {
	if v < 0 || int(v) >= len(t.zobristKo) {
		return 0
	}
	return t.zobristKo[v]
}

// DistanceBucket returns v's distance-from-edge/center bucket in [0,17),
// used to weight rollout move-selection priors.
func (t *Table) DistanceBucket(v Vertex) int {
	if !t.OnBoard(v) {
		return 0
	}
	return t.distanceBucket[v]
}

// Symmetry applies symmetry index i (in [0,8)) to a RawVertex.
func (t *Table) Symmetry(rv RawVertex, i int) RawVertex {
	return t.sym[i%8][rv]
}

// SymmetryInverse returns the index that undoes symmetry i.
func (t *Table) SymmetryInverse(i int) int {
	return t.symInverse[i%8]
}

// NakadeVital looks up the vital point for a captured dead-shape whose freed
// vertices hash to key (the sum of their per-vertex Zobrist values). Returns
// KNull, false on a miss.
func (t *Table) NakadeVital(key uint64) (Vertex, bool) {
	v, ok := t.nakade[key]
	if !ok {
		return KNull, false
	}
	return v, true
}

// IsBentFour reports whether key (a corner shape's Zobrist signature)
// matches one of the known bent-four templates.
func (t *Table) IsBentFour(key uint64) bool {
	return t.bentFour[key]
}

// IsStarPoint reports whether v is a conventional star/handicap point.
//
// Resolves spec.md's open question about the source's ambiguous
// `||`/`&&` mixing explicitly: star points are the four 4-4 corner points +
// tengen for boards >= 13 (plus the four side star points on 19x19), and
// the four 3-3 points + tengen for 9x9.
func (t *Table) IsStarPoint(v Vertex) bool {
	return t.starPoints[v]
}

// NewTable builds every derived constant table for a board of the given
// size. size must be 9, 13, or 19.
func NewTable(size int) (*Table, error) {
	if size != 9 && size != 13 && size != 19 {
		return nil, fmt.Errorf("coord: unsupported board size %d (want 9, 13, or 19)", size)
	}
	stride := size + 2
	numVtx := stride * stride

	t := &Table{
		Size:   size,
		Stride: stride,
		NumVtx: numVtx,

		Up: Vertex(stride), Down: Vertex(-stride), Right: 1, Left: -1,
		UpLeft: Vertex(stride - 1), UpRight: Vertex(stride + 1),
		DownLeft: Vertex(-stride - 1), DownRight: Vertex(-stride + 1),
		Up2: Vertex(2 * stride), Down2: Vertex(-2 * stride), Right2: 2, Left2: -2,
	}

	t.onBoard = make([]bool, numVtx)
	t.toRaw = make([]RawVertex, numVtx)
	t.fromRaw = make([]Vertex, size*size)
	t.x = make([]int, numVtx)
	t.y = make([]int, numVtx)

	raw := RawVertex(0)
	for y := 1; y <= size; y++ {
		for x := 1; x <= size; x++ {
			v := t.V(x, y)
			t.onBoard[v] = true
			t.x[v] = x
			t.y[v] = y
			t.toRaw[v] = raw
			t.fromRaw[raw] = v
			raw++
		}
	}

	t.buildSymmetries()
	t.buildDistanceBuckets()
	t.buildZobrist()
	t.buildNakadeTables()
	t.buildStarPoints()

	return t, nil
}

func (t *Table) buildStarPoints() {
	t.starPoints = make(map[Vertex]bool)
	size := t.Size

	var edge int
	switch {
	case size >= 13:
		edge = 4
	case size == 9:
		edge = 3
	default:
		edge = 3
	}
	far := size - edge + 1
	center := size/2 + 1

	add := func(x, y int) { t.starPoints[t.V(x, y)] = true }

	// Tengen (center point) always counts.
	add(center, center)

	if size == 9 {
		// 3-3 points only, no side/tengen-adjacent star points.
		add(edge, edge)
		add(edge, far)
		add(far, edge)
		add(far, far)
		return
	}

	// size >= 13: corner points plus their mirrors, explicit about the
	// (corner OR mirrored-corner) AND (on this board) intent that the
	// original source's precedence bug obscured.
	add(edge, edge)
	add(edge, far)
	add(far, edge)
	add(far, far)
	if size >= 19 {
		add(edge, center)
		add(far, center)
		add(center, edge)
		add(center, far)
	}
}
