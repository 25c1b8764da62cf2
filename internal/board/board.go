// Package board implements the full game-state representation from
// spec.md section 4.4: stone groups, liberties, local patterns, Ko/superko
// detection, and the four move-execution modes (Rollout, OneWay,
// Reversible, Quick).
package board

import (
	"fmt"

	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/feature"
	"github.com/hailam/gostone/internal/pattern"
)

// Response-move slot indices, per spec.md section 3.
const (
	RespNakadeVital = iota
	RespAtariSaveByCapture
	RespAtariSaveByEscape
	RespCounterCapture
)

// Board is the full mutable game state. It is not safe for concurrent use;
// spec.md section 5 calls for one Board per search worker, cloned from the
// search root.
type Board struct {
	Coord *coord.Table
	Pat   *pattern.Tables
	Resp  *pattern.RespTables

	color []coord.Color
	sgID  []coord.Vertex
	// groups is indexed by vertex; only entries where sgID[v]==v are
	// authoritative representatives, matching spec.md's "sg[sg_id[v]] is
	// the authoritative StoneGroup".
	groups []*StoneGroup
	nextV  []coord.Vertex

	emptyList []coord.Vertex
	emptyID   []int
	numEmpty  int

	numStonesBy [2]int // Black=0, White=1
	captures    [2]int // stones captured BY color (agehama), Black=0, White=1

	ptn     []pattern.Pattern
	prevPtn [2]uint64 // 12-point response pattern around the last two moves

	ko coord.Vertex

	moveHistory []coord.Vertex
	ply         int
	prevMove    [2]coord.Vertex
	numPasses   [2]int

	responseMove [4]coord.Vertex

	prob        [2][]float64
	sumProbRank [2][]float64

	hashKey    uint64
	keyHistory [8]uint64

	Feature *feature.Planes

	SideToMove coord.Color

	Komi    float64
	Rule    Rule
	RepRule RepetitionRule

	diffs []*Diff

	// Scratch state valid only during the current MakeMove call.
	lastCapturedSingle coord.Vertex
	lastCapturedSets   map[coord.Vertex][]coord.Vertex
	affectedGroups     map[coord.Vertex]bool
}

// New allocates a Board for the given coordinate table, pattern tables and
// komi, initialized to an empty position.
func New(t *coord.Table, pat *pattern.Tables, resp *pattern.RespTables, komi float64, rule Rule, repRule RepetitionRule) *Board {
	b := &Board{
		Coord:   t,
		Pat:     pat,
		Resp:    resp,
		Komi:    komi,
		Rule:    rule,
		RepRule: repRule,
	}
	b.Feature = feature.New(t)
	b.allocate()
	b.Init()
	return b
}

func (b *Board) allocate() {
	n := b.Coord.NumVtx
	b.color = make([]coord.Color, n)
	b.sgID = make([]coord.Vertex, n)
	b.groups = make([]*StoneGroup, n)
	b.nextV = make([]coord.Vertex, n)
	b.emptyList = make([]coord.Vertex, 0, n)
	b.emptyID = make([]int, n)
	b.ptn = make([]pattern.Pattern, n)
	b.prob[0] = make([]float64, n)
	b.prob[1] = make([]float64, n)
	b.sumProbRank[0] = make([]float64, b.Coord.Size+1)
	b.sumProbRank[1] = make([]float64, b.Coord.Size+1)
}

// Init resets the board to an empty position with Black to move, matching
// the "clear" command's Board.init() contract from spec.md section 6.
func (b *Board) Init() {
	n := b.Coord.NumVtx
	for v := 0; v < n; v++ {
		vv := coord.Vertex(v)
		if b.Coord.OnBoard(vv) {
			b.color[v] = coord.Empty
			b.sgID[v] = vv
			b.nextV[v] = vv
			b.groups[v] = newStoneGroup(n)
		} else {
			b.color[v] = coord.Wall
			b.sgID[v] = vv
			b.groups[v] = newWallGroup()
		}
		b.emptyID[v] = -1
		b.prob[0][v] = 1.0
		b.prob[1][v] = 1.0
	}

	b.emptyList = b.emptyList[:0]
	b.numEmpty = 0
	b.Coord.Walk(func(v coord.Vertex) {
		b.addEmpty(v)
	})

	b.numStonesBy[0], b.numStonesBy[1] = 0, 0
	b.captures[0], b.captures[1] = 0, 0
	b.ko = coord.KNull
	b.moveHistory = b.moveHistory[:0]
	b.ply = 0
	b.prevMove[0], b.prevMove[1] = coord.KNull, coord.KNull
	b.numPasses[0], b.numPasses[1] = 0, 0
	for i := range b.responseMove {
		b.responseMove[i] = coord.KNull
	}
	b.hashKey = 0
	for i := range b.keyHistory {
		b.keyHistory[i] = 0
	}
	b.SideToMove = coord.Black
	b.diffs = b.diffs[:0]
	b.prevPtn[0], b.prevPtn[1] = 0, 0

	b.lastCapturedSingle = coord.KNull
	b.lastCapturedSets = make(map[coord.Vertex][]coord.Vertex)
	b.affectedGroups = make(map[coord.Vertex]bool)

	b.Feature.Reset()
	b.rebuildPatterns()
	b.recomputeSumProbRank()
}

func (b *Board) addEmpty(v coord.Vertex) {
	b.emptyID[v] = len(b.emptyList)
	b.emptyList = append(b.emptyList, v)
	b.numEmpty++
}

// removeEmpty removes v from the empty list in O(1) by swapping with the
// tail entry, per spec.md's "ordered sequence of empty vertices with O(1)
// removal".
func (b *Board) removeEmpty(v coord.Vertex) {
	idx := b.emptyID[v]
	last := len(b.emptyList) - 1
	lastV := b.emptyList[last]
	b.emptyList[idx] = lastV
	b.emptyID[lastV] = idx
	b.emptyList = b.emptyList[:last]
	b.emptyID[v] = -1
	b.numEmpty--
}

// rebuildPatterns recomputes every on-board vertex's Pattern from scratch;
// used at Init and available as a consistency check against the
// incrementally maintained version.
func (b *Board) rebuildPatterns() {
	b.Coord.Walk(func(v coord.Vertex) {
		b.ptn[v] = b.scratchPattern(v)
	})
}

func (b *Board) scratchPattern(v coord.Vertex) pattern.Pattern {
	var p pattern.Pattern
	near := b.Coord.Neighbors8(v)
	for d := 0; d < 8; d++ {
		p = p.SetNear(d, b.color[near[d]])
	}
	for d := 0; d < 4; d++ {
		c := coord.Wall
		if fv, ok := b.Coord.FarNeighbor(v, d); ok {
			c = b.color[fv]
		}
		p = p.SetFar(d, c)
	}
	for d := 0; d < 4; d++ {
		nv := near[d]
		flag := uint32(0)
		if b.color[nv] == coord.Black || b.color[nv] == coord.White {
			if g := b.groupAt(nv); g != nil {
				switch g.NumLiberties() {
				case 1:
					flag = 1
				case 2:
					flag = 2
				}
			}
		}
		p = p.SetFlag(d, flag)
	}
	return p
}

func (b *Board) groupAt(v coord.Vertex) *StoneGroup {
	return b.groups[b.sgID[v]]
}

// Color returns the occupant of v.
func (b *Board) Color(v coord.Vertex) coord.Color { return b.color[v] }

// Ko returns the current simple-ko point, or coord.KNull.
func (b *Board) Ko() coord.Vertex { return b.ko }

// Ply returns the number of moves played so far.
func (b *Board) Ply() int { return b.ply }

// HashKey returns the current Zobrist key.
func (b *Board) HashKey() uint64 { return b.hashKey }

// NumStones returns the number of stones of color c on the board.
func (b *Board) NumStones(c coord.Color) int {
	if c == coord.White {
		return b.numStonesBy[1]
	}
	return b.numStonesBy[0]
}

// NumEmpty returns the number of empty vertices.
func (b *Board) NumEmpty() int { return b.numEmpty }

// EmptyAt returns the i-th entry of the empty-vertex list.
func (b *Board) EmptyAt(i int) coord.Vertex { return b.emptyList[i] }

// PrevMove returns the last move played by c (KNull if none yet).
func (b *Board) PrevMove(c coord.Color) coord.Vertex { return b.prevMove[colorIdx(c)] }

// NumPasses returns how many passes c has played this game.
func (b *Board) NumPasses(c coord.Color) int { return b.numPasses[colorIdx(c)] }

// Captures returns how many stones c has captured so far (agehama), used
// by Japanese-rule scoring's territory = empty + captured - agehama
// formula.
func (b *Board) Captures(c coord.Color) int { return b.captures[colorIdx(c)] }

// ResponseMove returns response-move slot i (see the Resp* constants).
func (b *Board) ResponseMove(i int) coord.Vertex { return b.responseMove[i] }

// Group returns the StoneGroup owning v (wall group for border vertices).
func (b *Board) Group(v coord.Vertex) *StoneGroup { return b.groupAt(v) }

// Pattern returns the current local pattern at v.
func (b *Board) Pattern(v coord.Vertex) pattern.Pattern { return b.ptn[v] }

// Clone returns an independent deep copy of b, sharing only the read-only
// Coord/Pat/Resp tables. Per spec.md section 5, each search worker
// descends with its own mutable Board cloned from the search root; Clone
// never copies the undo-diff stack since a worker's copy starts fresh
// (workers only ever play in ModeRollout from their clone, so Undo is
// never called on it).
func (b *Board) Clone() *Board {
	n := b.Coord.NumVtx
	nb := &Board{
		Coord:              b.Coord,
		Pat:                b.Pat,
		Resp:               b.Resp,
		color:              append([]coord.Color(nil), b.color...),
		sgID:               append([]coord.Vertex(nil), b.sgID...),
		groups:             make([]*StoneGroup, n),
		nextV:              append([]coord.Vertex(nil), b.nextV...),
		emptyList:          append([]coord.Vertex(nil), b.emptyList...),
		emptyID:            append([]int(nil), b.emptyID...),
		numEmpty:           b.numEmpty,
		numStonesBy:        b.numStonesBy,
		captures:           b.captures,
		ptn:                append([]pattern.Pattern(nil), b.ptn...),
		prevPtn:            b.prevPtn,
		ko:                 b.ko,
		moveHistory:        append([]coord.Vertex(nil), b.moveHistory...),
		ply:                b.ply,
		prevMove:           b.prevMove,
		numPasses:          b.numPasses,
		responseMove:       b.responseMove,
		hashKey:            b.hashKey,
		keyHistory:         b.keyHistory,
		Feature:            b.Feature.Clone(),
		SideToMove:         b.SideToMove,
		Komi:               b.Komi,
		Rule:               b.Rule,
		RepRule:            b.RepRule,
		lastCapturedSingle: coord.KNull,
		lastCapturedSets:   make(map[coord.Vertex][]coord.Vertex),
		affectedGroups:     make(map[coord.Vertex]bool),
	}
	for v := 0; v < n; v++ {
		g := b.groups[v]
		if g.isWall() {
			nb.groups[v] = newWallGroup()
			continue
		}
		ng := newStoneGroup(n)
		ng.numStones = g.numStones
		ng.liberties.CopyFrom(g.liberties)
		ng.atariVertex = g.atariVertex
		nb.groups[v] = ng
	}
	nb.prob[0] = append([]float64(nil), b.prob[0]...)
	nb.prob[1] = append([]float64(nil), b.prob[1]...)
	nb.sumProbRank[0] = append([]float64(nil), b.sumProbRank[0]...)
	nb.sumProbRank[1] = append([]float64(nil), b.sumProbRank[1]...)
	return nb
}

// MoveHistory returns a copy of every move played so far, in order — the
// move list an external SGF writer consumes and Replay accepts back.
func (b *Board) MoveHistory() []coord.Vertex {
	return append([]coord.Vertex(nil), b.moveHistory...)
}

// Replay resets the board and replays moves in order in OneWay mode,
// returning an error (with the board left at the failing ply) if any move
// is illegal. This is the seam an external SGF reader drives: it produces
// a move list, Replay turns it back into a position.
func (b *Board) Replay(moves []coord.Vertex) error {
	b.Init()
	for i, v := range moves {
		if !b.IsLegal(b.SideToMove, v) {
			return fmt.Errorf("replay: move %d (%v for %v) is illegal", i, v, b.SideToMove)
		}
		b.MakeMove(ModeOneWay, v)
	}
	return nil
}

// String renders a human-readable board, mirroring the terse debug
// printers the teacher keeps for its own Position type.
func (b *Board) String() string {
	s := ""
	for y := b.Coord.Size; y >= 1; y-- {
		for x := 1; x <= b.Coord.Size; x++ {
			v := b.Coord.V(x, y)
			switch b.color[v] {
			case coord.Black:
				s += "X "
			case coord.White:
				s += "O "
			default:
				if v == b.ko {
					s += "* "
				} else {
					s += ". "
				}
			}
		}
		s += "\n"
	}
	return s
}
