package board

import "github.com/hailam/gostone/internal/coord"

// tryNakade looks up the just-freed vertex set against the vital-point
// table built from canonical dead shapes and, on a hit, records the vital
// point as a response-move candidate (spec.md section 4.4.4). freed is a
// 3-to-6 vertex group just removed by captureGroup.
func (b *Board) tryNakade(freed []coord.Vertex) {
	// Matches coord.Table.buildNakadeTables' hashCells: sum (not xor) of
	// each freed vertex's color-folded signature, order independent.
	var key uint64
	for _, v := range freed {
		key += b.Coord.ZobristStone(v, coord.Black) ^ b.Coord.ZobristStone(v, coord.White)
	}
	vital, ok := b.Coord.NakadeVital(key)
	if !ok {
		return
	}
	if b.responseMove[RespNakadeVital] == coord.KNull {
		b.responseMove[RespNakadeVital] = vital
	}
}
