package board

import (
	"github.com/hailam/gostone/internal/bitboard"
	"github.com/hailam/gostone/internal/coord"
)

// vertexSet is bitboard.Set specialized to coord.Vertex indices, saving the
// int(v)/coord.Vertex(v) casts at every call site in this package.
type vertexSet struct{ s *bitboard.Set }

func newVertexSet(n int) *vertexSet { return &vertexSet{s: bitboard.New(n)} }

func (v *vertexSet) Add(x coord.Vertex)      { v.s.Add(int(x)) }
func (v *vertexSet) Remove(x coord.Vertex)   { v.s.Remove(int(x)) }
func (v *vertexSet) Has(x coord.Vertex) bool { return v.s.Has(int(x)) }
func (v *vertexSet) Count() int              { return v.s.Count() }
func (v *vertexSet) First() int              { return v.s.First() }
func (v *vertexSet) Clear()                  { v.s.Clear() }
func (v *vertexSet) Merge(o *vertexSet)      { v.s.Merge(o.s) }
func (v *vertexSet) Clone() *vertexSet       { return &vertexSet{s: v.s.Clone()} }
func (v *vertexSet) CopyFrom(o *vertexSet)   { v.s.CopyFrom(o.s) }
func (v *vertexSet) Iter(fn func(x coord.Vertex)) {
	v.s.Iter(func(i int) { fn(coord.Vertex(i)) })
}
