package coord

// buildSymmetries derives the 8 board symmetries (4 rotations x 2
// reflections) as permutations of RawVertex, plus each one's inverse index.
// Symmetry 0 is always the identity.
func (t *Table) buildSymmetries() {
	size := t.Size
	n := size * size

	// transform[i] maps (x,y) in [0,size) -> (x',y') for symmetry i.
	transform := [8]func(x, y int) (int, int){
		func(x, y int) (int, int) { return x, y },                       // identity
		func(x, y int) (int, int) { return size - 1 - y, x },            // rot90
		func(x, y int) (int, int) { return size - 1 - x, size - 1 - y }, // rot180
		func(x, y int) (int, int) { return y, size - 1 - x },            // rot270
		func(x, y int) (int, int) { return size - 1 - x, y },            // flip-x
		func(x, y int) (int, int) { return y, x },                       // flip-x then rot90
		func(x, y int) (int, int) { return x, size - 1 - y },            // flip-x then rot180
		func(x, y int) (int, int) { return size - 1 - y, size - 1 - x }, // flip-x then rot270
	}

	for i := 0; i < 8; i++ {
		t.sym[i] = make([]RawVertex, n)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				nx, ny := transform[i](x, y)
				from := RawVertex(y*size + x)
				to := RawVertex(ny*size + nx)
				t.sym[i][from] = to
			}
		}
	}

	// Find each symmetry's inverse by brute-force composition: i and j are
	// inverses iff applying both returns every point to itself.
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			identity := true
			for rv := 0; rv < n; rv++ {
				if t.sym[j][t.sym[i][rv]] != RawVertex(rv) {
					identity = false
					break
				}
			}
			if identity {
				t.symInverse[i] = j
				break
			}
		}
	}
}

// buildDistanceBuckets assigns each on-board vertex one of 17 buckets based
// on Manhattan distance to the nearest edge, matching the granularity
// original_source/src/distance.cpp uses to weight rollout priors.
func (t *Table) buildDistanceBuckets() {
	t.distanceBucket = make([]int, t.NumVtx)
	size := t.Size
	for v := 0; v < t.NumVtx; v++ {
		if !t.onBoard[Vertex(v)] {
			continue
		}
		x, y := t.x[v], t.y[v]
		dx := x - 1
		if size-x < dx {
			dx = size - x
		}
		dy := y - 1
		if size-y < dy {
			dy = size - y
		}
		edgeDist := dx
		if dy < edgeDist {
			edgeDist = dy
		}
		bucket := edgeDist
		if bucket > 16 {
			bucket = 16
		}
		t.distanceBucket[v] = bucket
	}
}

// splitMix64 is a fast, reproducible PRNG used to seed every static table.
// Same shape as the teacher's xorshift64* PRNG in internal/board/zobrist.go,
// swapped for splitmix64 since Table is built per-size at runtime rather
// than once via a package init().
type splitMix64 struct{ state uint64 }

func newSplitMix64(seed uint64) *splitMix64 { return &splitMix64{state: seed} }

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func (t *Table) buildZobrist() {
	rng := newSplitMix64(0x98F107A2BEEF1234 ^ uint64(t.Size))

	t.zobrist = make([][2]uint64, t.NumVtx)
	for v := 0; v < t.NumVtx; v++ {
		t.zobrist[v][Black] = rng.next()
		t.zobrist[v][White] = rng.next()
	}
	t.zobristSide = rng.next()

	t.zobristKo = make([]uint64, t.NumVtx)
	for v := 0; v < t.NumVtx; v++ {
		t.zobristKo[v] = rng.next()
	}
}

// nakadeTemplate is a dead-shape template expressed as relative offsets
// (dx,dy) from an anchor plus the vital point's own relative offset.
type nakadeTemplate struct {
	name  string
	cells [][2]int
	vital [2]int
}

// canonicalNakadeTemplates lists the common 3-6 vertex dead shapes whose
// vital point is well known: straight three, bent three (the "L" tromino),
// the pyramid/square four, and the bulky five. This is not an exhaustive
// library of every dead shape — it covers the shapes testable scenarios and
// everyday play actually produce; see DESIGN.md.
func canonicalNakadeTemplates() []nakadeTemplate {
	return []nakadeTemplate{
		{name: "straight-three", cells: [][2]int{{0, 0}, {1, 0}, {2, 0}}, vital: [2]int{1, 0}},
		{name: "bent-three", cells: [][2]int{{0, 0}, {1, 0}, {1, 1}}, vital: [2]int{1, 0}},
		{name: "square-four", cells: [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, vital: [2]int{0, 0}},
		{name: "pyramid-four", cells: [][2]int{{0, 0}, {1, 0}, {2, 0}, {1, 1}}, vital: [2]int{1, 0}},
		{name: "t-four", cells: [][2]int{{0, 0}, {1, 0}, {2, 0}, {1, -1}}, vital: [2]int{1, 0}},
		{name: "bulky-five", cells: [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 0}}, vital: [2]int{1, 0}},
	}
}

// bentFourTemplates lists the corner bent-four shapes consulted during seki
// disambiguation. Each is expressed the same way as a nakade template but
// only its cell set (not a vital point) matters.
func bentFourTemplates() [][][2]int {
	return [][][2]int{
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{0, 0}, {0, 1}, {1, 1}, {1, 2}},
	}
}

// rotateOffset applies one of the 8 symmetries to a relative offset around
// origin (0,0), used to generate every orientation of a template.
func rotateOffset(dx, dy, i int) (int, int) {
	switch i {
	case 0:
		return dx, dy
	case 1:
		return -dy, dx
	case 2:
		return -dx, -dy
	case 3:
		return dy, -dx
	case 4:
		return -dx, dy
	case 5:
		return dy, dx
	case 6:
		return dx, -dy
	case 7:
		return -dy, -dx
	}
	return dx, dy
}

// buildNakadeTables generates every translation and orientation of the
// canonical dead-shape templates that fits on this board, hashing each
// instance's freed vertices the way Board does after a capture (sum of
// per-vertex Zobrist values, color-independent) and recording its vital
// point. Also builds the bent-four signature set used by seki detection.
func (t *Table) buildNakadeTables() {
	t.nakade = make(map[uint64]Vertex)
	t.bentFour = make(map[uint64]bool)
	size := t.Size

	hashCells := func(vs []Vertex) uint64 {
		var sum uint64
		for _, v := range vs {
			// Freed vertices are empty; their "identity" hash ignores color,
			// so we fold both color randoms together into one empty-vertex
			// signature distinct from any occupied-vertex key space.
			sum += t.zobrist[v][Black] ^ t.zobrist[v][White]
		}
		return sum
	}

	for _, tmpl := range canonicalNakadeTemplates() {
		for orient := 0; orient < 8; orient++ {
			for ax := 1; ax <= size; ax++ {
				for ay := 1; ay <= size; ay++ {
					vs := make([]Vertex, 0, len(tmpl.cells))
					ok := true
					for _, c := range tmpl.cells {
						rx, ry := rotateOffset(c[0], c[1], orient)
						x, y := ax+rx, ay+ry
						if x < 1 || x > size || y < 1 || y > size {
							ok = false
							break
						}
						vs = append(vs, t.V(x, y))
					}
					if !ok {
						continue
					}
					vx, vy := rotateOffset(tmpl.vital[0], tmpl.vital[1], orient)
					vitalV := t.V(ax+vx, ay+vy)
					key := hashCells(vs)
					if _, exists := t.nakade[key]; !exists {
						t.nakade[key] = vitalV
					}
				}
			}
		}
	}

	for _, cells := range bentFourTemplates() {
		for orient := 0; orient < 8; orient++ {
			for ax := 1; ax <= size; ax++ {
				for ay := 1; ay <= size; ay++ {
					vs := make([]Vertex, 0, len(cells))
					ok := true
					for _, c := range cells {
						rx, ry := rotateOffset(c[0], c[1], orient)
						x, y := ax+rx, ay+ry
						if x < 1 || x > size || y < 1 || y > size {
							ok = false
							break
						}
						vs = append(vs, t.V(x, y))
					}
					if !ok {
						continue
					}
					t.bentFour[hashCells(vs)] = true
				}
			}
		}
	}
}
