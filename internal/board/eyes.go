package board

import "github.com/hailam/gostone/internal/coord"

// isEyeLike reports the enclosure half of the eye test from spec.md
// section 4.4.3: v is empty and every orthogonal neighbour is side's color
// or the wall.
func (b *Board) isEyeLike(v coord.Vertex, side coord.Color) bool {
	if b.color[v] != coord.Empty {
		return false
	}
	for _, nv := range b.Coord.Neighbors4(v) {
		c := b.color[nv]
		if c != side && c != coord.Wall {
			return false
		}
	}
	return true
}

// wedgeCount counts the diagonal attackers that can break the eye at v:
// opponent stones on the diagonals, with any border touch counted as one
// wedge. A diagonal opponent already in atari does not count (it can be
// captured before it ever wedges in) unless its atari point is the current
// ko point, per spec.md section 4.4.3's special case.
func (b *Board) wedgeCount(v coord.Vertex, side coord.Color) int {
	opp := side.Opposite()
	wedges := 0
	border := false
	n8 := b.Coord.Neighbors8(v)
	for _, nv := range n8[4:8] {
		if !b.Coord.OnBoard(nv) {
			border = true
			continue
		}
		if b.color[nv] != opp {
			continue
		}
		g := b.groupAt(nv)
		if g.NumLiberties() == 1 && g.AtariVertex() != b.ko {
			continue
		}
		wedges++
	}
	if border {
		wedges++
	}
	return wedges
}

// IsEye reports whether v is a real one-point eye for side: enclosed by
// side, wedge count below 2, and not the sole liberty of any surrounding
// friendly group (so playing there is never the self-capture the opponent
// could force).
func (b *Board) IsEye(v coord.Vertex, side coord.Color) bool {
	if !b.isEyeLike(v, side) {
		return false
	}
	if b.wedgeCount(v, side) >= 2 {
		return false
	}
	for _, nv := range b.Coord.Neighbors4(v) {
		if b.color[nv] != side {
			continue
		}
		if b.groupAt(nv).NumLiberties() <= 1 {
			return false
		}
	}
	return true
}

// IsFalseEye reports whether v is enclosed by side but wedged open: no
// empty neighbours, a single enclosing color, and two or more wedges, per
// spec.md section 4.4.3's is_false_eye.
func (b *Board) IsFalseEye(v coord.Vertex, side coord.Color) bool {
	return b.isEyeLike(v, side) && b.wedgeCount(v, side) >= 2
}

// IsSeki reports whether the empty vertex v is the (or a) shared liberty of
// a mutual-life standoff between groups of both colors (spec.md section
// 4.4.3): v itself must be untouched, bordered by at least one group of
// each color, and the union of every bordering group's own liberties must
// total exactly two or three points — the two shapes the source's IsSeki
// recognizes directly, rather than falling back to a full life-and-death
// solver, which spec.md section 4.9 does not require Board itself to
// provide (that's scoring's job, informed by this check).
//
// Two shared liberties: neither side can fill either point without
// self-atari, UNLESS one of the two points is itself the vital point of a
// nakade-shaped dead group, or the two points form a bent-four-in-the-corner
// shape together with their bordering group — both of which are actually
// capturable and so are rejected as seki.
//
// Three shared liberties: seki if at least one of the three points is a
// false eye for either side, or if at least two of them are real eyes for
// either side (two independent eyes keep both groups alive without needing
// the third point).
func (b *Board) IsSeki(v coord.Vertex) bool {
	if b.color[v] != coord.Empty {
		return false
	}

	seenGroup := map[coord.Vertex]bool{}
	var groups []coord.Vertex
	colorsTouching := map[coord.Color]bool{}
	for _, nv := range b.Coord.Neighbors4(v) {
		c := b.color[nv]
		if c != coord.Black && c != coord.White {
			continue
		}
		rep := b.sgID[nv]
		if seenGroup[rep] {
			continue
		}
		seenGroup[rep] = true
		groups = append(groups, rep)
		colorsTouching[c] = true
	}
	if len(colorsTouching) != 2 {
		return false
	}

	libSet := map[coord.Vertex]bool{}
	for _, rep := range groups {
		b.groups[rep].liberties.Iter(func(lv coord.Vertex) {
			libSet[lv] = true
		})
	}

	switch len(libSet) {
	case 2:
		for lv := range libSet {
			if b.isNakadeVitalPoint(lv) || b.isBentFourPoint(lv) {
				return false
			}
		}
		return true
	case 3:
		eyeCount := 0
		for lv := range libSet {
			if b.IsFalseEye(lv, coord.Black) || b.IsFalseEye(lv, coord.White) {
				return true
			}
			if b.IsEye(lv, coord.Black) || b.IsEye(lv, coord.White) {
				eyeCount++
			}
		}
		return eyeCount >= 2
	default:
		return false
	}
}

// floodEmptyRegion returns every vertex in the connected empty region
// containing start, plus whether that region borders stones of exactly one
// color (the shape tryNakade/bentFourFlips key off of). Mirrors
// scoring.floodEmpty's walk, duplicated here since board must not import
// scoring.
func (b *Board) floodEmptyRegion(start coord.Vertex) ([]coord.Vertex, bool) {
	seen := map[coord.Vertex]bool{start: true}
	queue := []coord.Vertex{start}
	var region []coord.Vertex
	border := coord.Empty
	single := true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		region = append(region, cur)
		for _, nv := range b.Coord.Neighbors4(cur) {
			if !b.Coord.OnBoard(nv) {
				continue
			}
			c := b.color[nv]
			if c == coord.Empty {
				if !seen[nv] {
					seen[nv] = true
					queue = append(queue, nv)
				}
				continue
			}
			if border == coord.Empty {
				border = c
			} else if border != c {
				single = false
			}
		}
	}
	return region, single && border != coord.Empty
}

// hashRegion sums each vertex's color-folded Zobrist signature, matching
// coord.Table.buildNakadeTables' hashCells (and tryNakade/bentFourFlips'
// own copies of it): an order-independent shape key.
func (b *Board) hashRegion(region []coord.Vertex) uint64 {
	var key uint64
	for _, v := range region {
		key += b.Coord.ZobristStone(v, coord.Black) ^ b.Coord.ZobristStone(v, coord.White)
	}
	return key
}

// isNakadeVitalPoint reports whether lv is the recorded vital point of a
// 3-to-6 vertex dead-shape region bordering a single color, per the same
// vital-point table tryNakade consults after a capture (spec.md section
// 4.4.4). A seki liberty that is secretly a nakade vital point means the
// bordering group is actually capturable, not alive in a standoff.
func (b *Board) isNakadeVitalPoint(lv coord.Vertex) bool {
	region, single := b.floodEmptyRegion(lv)
	if !single || len(region) < 3 || len(region) > 6 {
		return false
	}
	vital, ok := b.Coord.NakadeVital(b.hashRegion(region))
	return ok && vital == lv
}

// isBentFourPoint reports whether lv sits in a 4-vertex empty region
// bordering a single color whose shape matches the bent-four-in-the-corner
// template scoring.bentFourFlips also tests for (spec.md section 4.9 step
// 4): such a region is conventionally dead despite looking like two shared
// liberties.
func (b *Board) isBentFourPoint(lv coord.Vertex) bool {
	region, single := b.floodEmptyRegion(lv)
	if !single || len(region) != 4 {
		return false
	}
	return b.Coord.IsBentFour(b.hashRegion(region))
}
