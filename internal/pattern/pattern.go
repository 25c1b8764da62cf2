// Package pattern implements the packed 3x3 + extended 12-point local
// pattern record from spec.md section 4.2: legality by table lookup,
// atari/pre-atari flags, and the rollout move-selection probability tables
// loaded from prob/*.txt at startup.
package pattern

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/hailam/gostone/internal/coord"
)

// Pattern is the packed 32-bit local-pattern record described in spec.md
// section 4.2:
//
//	bits 0..15:  8 near neighbours' colors, 2 bits each (N,E,S,W,NE,SE,SW,NW)
//	bits 16..23: 4 far neighbours' colors (N2,E2,S2,W2), 2 bits each
//	bits 24..31: per-direction atari(01)/pre-atari(10)/none(00) flag pairs
type Pattern uint32

// Direction indices into the near-neighbour color field and the
// atari/pre-atari flag field (which share the same 4-direction ordering for
// the orthogonal directions; diagonals only ever carry color, never a flag).
const (
	DirN = iota
	DirE
	DirS
	DirW
	DirNE
	DirSE
	DirSW
	DirNW
)

const (
	flagNone     = 0b00
	flagAtari    = 0b01
	flagPreAtari = 0b10
)

func colorBits(c coord.Color) uint32 {
	switch c {
	case coord.Black:
		return 0
	case coord.White:
		return 1
	case coord.Empty:
		return 2
	default: // Wall
		return 3
	}
}

func bitsColor(b uint32) coord.Color {
	switch b {
	case 0:
		return coord.Black
	case 1:
		return coord.White
	case 2:
		return coord.Empty
	default:
		return coord.Wall
	}
}

// SetNear sets the color of near-neighbour direction dir (0..7).
func (p Pattern) SetNear(dir int, c coord.Color) Pattern {
	shift := uint(dir * 2)
	mask := Pattern(0b11) << shift
	return (p &^ mask) | Pattern(colorBits(c)<<shift)
}

// Near returns the color of near-neighbour direction dir (0..7).
func (p Pattern) Near(dir int) coord.Color {
	shift := uint(dir * 2)
	return bitsColor(uint32(p>>shift) & 0b11)
}

// SetFar sets the color of far neighbour dir (0..3, N2/E2/S2/W2).
func (p Pattern) SetFar(dir int, c coord.Color) Pattern {
	shift := uint(16 + dir*2)
	mask := Pattern(0b11) << shift
	return (p &^ mask) | Pattern(colorBits(c)<<shift)
}

// Far returns the color of far neighbour dir (0..3).
func (p Pattern) Far(dir int) coord.Color {
	shift := uint(16 + dir*2)
	return bitsColor(uint32(p>>shift) & 0b11)
}

// SetFlag sets the atari/pre-atari flag for orthogonal direction dir (0..3).
func (p Pattern) SetFlag(dir int, flag uint32) Pattern {
	shift := uint(24 + dir*2)
	mask := Pattern(0b11) << shift
	return (p &^ mask) | Pattern(flag<<shift)
}

// Flag returns the atari/pre-atari flag for orthogonal direction dir (0..3).
func (p Pattern) Flag(dir int) uint32 {
	shift := uint(24 + dir*2)
	return uint32(p>>shift) & 0b11
}

// stoneAtariKey extracts the 24-bit key used to index the legality and
// probability tables: the 16 near-neighbour color bits in the low half and
// the 8 atari-flag bits above them. Far-neighbour colors are deliberately
// excluded — legality and the rollout prior depend only on the immediate
// ring and its groups' liberty state, and this is also the layout
// prob_ptn3x3.txt's (stone_bits, atari_bits) columns pack.
func (p Pattern) stoneAtariKey() uint32 {
	return (uint32(p) & 0xFFFF) | ((uint32(p) >> 24) << 16)
}

// fromStoneAtariKey rebuilds a Pattern carrying exactly the near-color and
// flag bits key encodes (far colors zeroed), the inverse of stoneAtariKey.
func fromStoneAtariKey(key uint32) Pattern {
	return Pattern((key & 0xFFFF) | ((key >> 16) << 24))
}

// Count returns the number of the 4 near (orthogonal) neighbours matching c.
func (p Pattern) Count(c coord.Color) int {
	n := 0
	for d := DirN; d <= DirW; d++ {
		if p.Near(d) == c {
			n++
		}
	}
	return n
}

// EnclosedBy reports whether all 4 near neighbours are color c or Wall —
// i.e. v is a candidate eye point for c.
func (p Pattern) EnclosedBy(c coord.Color) bool {
	for d := DirN; d <= DirW; d++ {
		n := p.Near(d)
		if n != c && n != coord.Wall {
			return false
		}
	}
	return true
}

// rotate90 permutes near/far/flag fields one quarter-turn clockwise:
// N->E->S->W->N for orthogonal slots, NE->SE->SW->NW->NE for diagonals.
func (p Pattern) rotate90() Pattern {
	var out Pattern
	orthoPerm := [4]int{DirW, DirN, DirE, DirS} // out[d] = in[orthoPerm[d]]
	diagPerm := [4]int{3, 0, 1, 2}              // NW,NE,SE,SW -> NE,SE,SW,NW
	for d := 0; d < 4; d++ {
		out = out.SetNear(d, p.Near(orthoPerm[d]))
		out = out.SetNear(4+d, p.Near(4+diagPerm[d]))
		out = out.SetFlag(d, p.Flag(orthoPerm[d]))
	}
	farPerm := [4]int{3, 0, 1, 2}
	for d := 0; d < 4; d++ {
		out = out.SetFar(d, p.Far(farPerm[d]))
	}
	return out
}

// invert swaps Black and White everywhere (colors only; flags/empties/walls
// are unaffected since they don't encode a side).
func (p Pattern) Invert() Pattern {
	var out Pattern
	for d := 0; d < 8; d++ {
		out = out.SetNear(d, swapColor(p.Near(d)))
	}
	for d := 0; d < 4; d++ {
		out = out.SetFar(d, swapColor(p.Far(d)))
		out = out.SetFlag(d, p.Flag(d))
	}
	return out
}

func swapColor(c coord.Color) coord.Color {
	switch c {
	case coord.Black:
		return coord.White
	case coord.White:
		return coord.Black
	default:
		return c
	}
}

// Rotate returns p rotated 90 degrees clockwise.
func (p Pattern) Rotate() Pattern { return p.rotate90() }

// Canonical returns the lexicographically smallest pattern among p's four
// rotations, used to key the probability table compactly during training
// and lookup.
func (p Pattern) Canonical() Pattern {
	best := p
	cur := p
	for i := 0; i < 4; i++ {
		cur = cur.rotate90()
		if uint32(cur) < uint32(best) {
			best = cur
		}
	}
	return best
}

// Tables holds the static legality and probability lookup tables, loaded
// once at startup and read-only thereafter.
type Tables struct {
	// legal[side][key] is exhaustively populated for every 24-bit
	// (stone-bits, atari-bits) key, per spec.md: the precomputation is
	// authoritative and is never overridden by file-sourced data (resolves
	// the open question in spec.md section 9). The array is a process-wide
	// read-only singleton shared by every Tables instance — it never
	// depends on anything but the rules of the game.
	legal *[2][1 << 24]bool

	// prob is sparse: unlisted keys default to a neutral weight of 1.0.
	// Keyed by (side, restore, 24-bit stone/atari key).
	prob [2][2]map[uint32]float64
}

var (
	legalOnce sync.Once
	legalTbl  *[2][1 << 24]bool
)

// NewTables builds a Tables sharing the exhaustive legality singleton, with
// its prob table seeded to neutral (1.0) weights.
func NewTables() *Tables {
	legalOnce.Do(populateLegalExhaustive)
	t := &Tables{legal: legalTbl}
	for side := 0; side < 2; side++ {
		t.prob[side][0] = make(map[uint32]float64)
		t.prob[side][1] = make(map[uint32]float64)
	}
	return t
}

// populateLegalExhaustive computes Legal(side) for every one of the 2^24
// (stone-bits, atari-bits) combinations, per spec.md's description of the
// source's exhaustive precomputation.
func populateLegalExhaustive() {
	legalTbl = &[2][1 << 24]bool{}
	for key := uint32(0); key < (1 << 24); key++ {
		p := fromStoneAtariKey(key)
		for sideIdx, side := range [2]coord.Color{coord.Black, coord.White} {
			legalTbl[sideIdx][key] = legalImpl(p, side)
		}
	}
}

// legalImpl is the exhaustive reference rule: at least one empty neighbour,
// OR some opponent neighbour is in atari, OR some own neighbour is NOT in
// atari (so playing there doesn't result in immediate self-capture).
func legalImpl(p Pattern, side coord.Color) bool {
	opp := side.Opposite()
	hasEmpty := false
	ownNotAtari := false
	oppAtari := false
	for d := 0; d < 4; d++ {
		c := p.Near(d)
		flag := p.Flag(d)
		switch c {
		case coord.Empty:
			hasEmpty = true
		case side:
			if flag != flagAtari {
				ownNotAtari = true
			}
		case opp:
			if flag == flagAtari {
				oppAtari = true
			}
		}
	}
	return hasEmpty || oppAtari || ownNotAtari
}

func sideIndex(side coord.Color) int {
	if side == coord.White {
		return 1
	}
	return 0
}

// Legal reports whether playing at a vertex with local pattern p is legal
// for side, per the exhaustive table.
func (t *Tables) Legal(p Pattern, side coord.Color) bool {
	return t.legal[sideIndex(side)][p.stoneAtariKey()]
}

// Prob returns the rollout-prior multiplicative weight for p and side. If
// restore is true, the inverse (1/weight) is returned so a caller can
// divide out a contribution it previously multiplied in.
func (t *Tables) Prob(p Pattern, side coord.Color, restore bool) float64 {
	ri := 0
	if restore {
		ri = 1
	}
	m := t.prob[sideIndex(side)][ri]
	key := p.stoneAtariKey()
	if w, ok := m[key]; ok {
		return w
	}
	return 1.0
}

// LoadProb3x3 overlays prob_ptn3x3.txt's trained weights: CSV rows
// `stone_bits, atari_bits, p_white, p_white_inv, p_black, p_black_inv`.
// A missing file is not fatal per spec.md section 7 ("Missing pattern
// tables: warn to stderr; proceed with neutral weights"); callers decide
// whether to treat the returned error as fatal.
func (t *Tables) LoadProb3x3(r io.Reader) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimSpace(sc.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		fields := strings.Split(row, ",")
		if len(fields) != 6 {
			return fmt.Errorf("prob_ptn3x3.txt:%d: expected 6 fields, got %d", line, len(fields))
		}
		vals := make([]float64, 6)
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return fmt.Errorf("prob_ptn3x3.txt:%d: %w", line, err)
			}
			vals[i] = v
		}
		stoneBits := uint32(vals[0])
		atariBits := uint32(vals[1])
		key := (stoneBits | (atariBits << 16)) & 0x00FFFFFF

		t.prob[1][0][key] = vals[2] // white, forward
		t.prob[1][1][key] = vals[3] // white, inverse
		t.prob[0][0][key] = vals[4] // black, forward
		t.prob[0][1][key] = vals[5] // black, inverse
	}
	return sc.Err()
}

// LoadProbFromFile is a convenience wrapper used by cmd/gostone-gtp's
// startup sequence.
func (t *Tables) LoadProbFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.LoadProb3x3(f)
}
