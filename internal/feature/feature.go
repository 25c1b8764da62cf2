// Package feature builds the per-vertex input planes the inference engine
// consumes (spec.md section 6). The planes are incrementally maintained
// across moves rather than recomputed from scratch every ply — Board calls
// into this package's setters as it mutates state, the same way the
// teacher's sfnnue accumulator is updated incrementally instead of
// recomputed from the full board each move.
package feature

import "github.com/hailam/gostone/internal/coord"

// NumHistory is the number of past-position planes kept per color.
const NumHistory = 8

// NumLibertyBuckets is the number of liberty-count buckets (1,2,...,7,8+)
// used for the liberties/capture-size/self-atari/liberties-after plane
// groups.
const NumLibertyBuckets = 8

// NumChannels is kInputFeatures from spec.md section 6: 8 history planes
// per color (16) + 2 side-to-move planes + 4 groups of 8 liberty-bucket
// planes (32) + 1 ladder-escape plane + 1 sensibleness plane = 52.
const NumChannels = 2*NumHistory + 2 + 4*NumLibertyBuckets + 1 + 1

const (
	planeOwnHistoryBase     = 0
	planeOppHistoryBase     = NumHistory
	planeSideBlack          = 2 * NumHistory
	planeSideWhite          = 2*NumHistory + 1
	planeLibertiesBase      = 2*NumHistory + 2
	planeCaptureSizeBase    = planeLibertiesBase + NumLibertyBuckets
	planeSelfAtariBase      = planeCaptureSizeBase + NumLibertyBuckets
	planeLibertiesAfterBase = planeSelfAtariBase + NumLibertyBuckets
	planeLadderEscape       = planeLibertiesAfterBase + NumLibertyBuckets
	planeSensible           = planeLadderEscape + 1
)

// Planes holds NumChannels flat raw-vertex planes (B*B entries each, no
// wall border — this is what crosses into the model's tensor shape
// [batch, input_channels, B, B]).
type Planes struct {
	t *coord.Table
	n int // B*B

	data [][]float32 // [channel][rawVertex]

	// blackHistory/whiteHistory are ring buffers of stone occupancy
	// snapshots by color; RecordMove maps them onto the own/opponent planes
	// of the side to move, so history plane i exposes the occupancy from i
	// plies ago.
	blackHistory [NumHistory][]bool
	whiteHistory [NumHistory][]bool
}

// New allocates planes for board size t.
func New(t *coord.Table) *Planes {
	n := t.Size * t.Size
	p := &Planes{t: t, n: n}
	p.data = make([][]float32, NumChannels)
	for c := range p.data {
		p.data[c] = make([]float32, n)
	}
	for i := 0; i < NumHistory; i++ {
		p.blackHistory[i] = make([]bool, n)
		p.whiteHistory[i] = make([]bool, n)
	}
	return p
}

// Reset clears all planes and history, matching Board.Init().
func (p *Planes) Reset() {
	for c := range p.data {
		for i := range p.data[c] {
			p.data[c][i] = 0
		}
	}
	for i := 0; i < NumHistory; i++ {
		for j := range p.blackHistory[i] {
			p.blackHistory[i][j] = false
			p.whiteHistory[i][j] = false
		}
	}
}

// RecordMove shifts the history ring buffers by one ply using the current
// full occupancy (black, white indexed by RawVertex) and refreshes the
// side-to-move constant planes. Called once per move in OneWay/Reversible
// mode, after the move's group/liberty bookkeeping is final.
func (p *Planes) RecordMove(blackOcc, whiteOcc []bool, sideToMove coord.Color) {
	for i := NumHistory - 1; i > 0; i-- {
		p.blackHistory[i], p.blackHistory[i-1] = p.blackHistory[i-1], p.blackHistory[i]
		p.whiteHistory[i], p.whiteHistory[i-1] = p.whiteHistory[i-1], p.whiteHistory[i]
	}
	copy(p.blackHistory[0], blackOcc)
	copy(p.whiteHistory[0], whiteOcc)

	own, opp := p.blackHistory, p.whiteHistory
	if sideToMove == coord.White {
		own, opp = p.whiteHistory, p.blackHistory
	}
	for i := 0; i < NumHistory; i++ {
		for rv := 0; rv < p.n; rv++ {
			p.data[planeOwnHistoryBase+i][rv] = b2f(own[i][rv])
			p.data[planeOppHistoryBase+i][rv] = b2f(opp[i][rv])
		}
	}

	sideVal := float32(1)
	for rv := 0; rv < p.n; rv++ {
		p.data[planeSideBlack][rv] = 0
		p.data[planeSideWhite][rv] = 0
	}
	if sideToMove == coord.Black {
		fill(p.data[planeSideBlack], sideVal)
	} else {
		fill(p.data[planeSideWhite], sideVal)
	}
}

func fill(s []float32, v float32) {
	for i := range s {
		s[i] = v
	}
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func bucket(n int) int {
	if n <= 0 {
		return 0
	}
	if n > NumLibertyBuckets {
		return NumLibertyBuckets - 1
	}
	return n - 1
}

// SetLiberties one-hot encodes a group's current liberty count at rv across
// the 8 liberty-bucket planes.
func (p *Planes) SetLiberties(rv coord.RawVertex, liberties int) {
	p.setBucketed(planeLibertiesBase, rv, liberties)
}

// SetCaptureSize one-hot encodes how many stones playing at rv would
// capture.
func (p *Planes) SetCaptureSize(rv coord.RawVertex, captured int) {
	p.setBucketed(planeCaptureSizeBase, rv, captured)
}

// SetSelfAtari one-hot encodes the post-move liberty count of rv's own
// group if playing there would be self-atari (bucket 0 when not).
func (p *Planes) SetSelfAtari(rv coord.RawVertex, libertiesIfSelfAtari int) {
	p.setBucketed(planeSelfAtariBase, rv, libertiesIfSelfAtari)
}

// SetLibertiesAfter one-hot encodes the resulting liberty count of the
// group formed by playing at rv.
func (p *Planes) SetLibertiesAfter(rv coord.RawVertex, libertiesAfter int) {
	p.setBucketed(planeLibertiesAfterBase, rv, libertiesAfter)
}

func (p *Planes) setBucketed(base int, rv coord.RawVertex, n int) {
	b := bucket(n)
	for i := 0; i < NumLibertyBuckets; i++ {
		v := float32(0)
		if i == b {
			v = 1
		}
		p.data[base+i][rv] = v
	}
}

// SetLadderEscape marks rv as a ladder-escape point.
func (p *Planes) SetLadderEscape(rv coord.RawVertex, v bool) {
	p.data[planeLadderEscape][rv] = b2f(v)
}

// ClearLadderEscape zeroes the whole ladder-escape plane (called before
// recomputing it each move, since it's sparse and move-dependent).
func (p *Planes) ClearLadderEscape() {
	for i := range p.data[planeLadderEscape] {
		p.data[planeLadderEscape][i] = 0
	}
}

// SetSensible marks rv as a sensible move (not an eye-filling suicide-ish move).
func (p *Planes) SetSensible(rv coord.RawVertex, v bool) {
	p.data[planeSensible][rv] = b2f(v)
}

// Tensor flattens all channels into the [input_channels, B, B] layout the
// model file's Infer contract expects (spec.md section 6); the batch
// dimension is the inference engine's concern, not ours.
func (p *Planes) Tensor() []float32 {
	out := make([]float32, NumChannels*p.n)
	for c := 0; c < NumChannels; c++ {
		copy(out[c*p.n:(c+1)*p.n], p.data[c])
	}
	return out
}

// Clone returns an independent deep copy, used when Board.Clone is taken
// for a search worker.
func (p *Planes) Clone() *Planes {
	np := New(p.t)
	np.CopyFrom(p)
	return np
}

// CopyFrom overwrites p's planes and history with other's, used by
// Board.Undo to restore the feature state a Reversible move snapshotted.
func (p *Planes) CopyFrom(other *Planes) {
	for c := range p.data {
		copy(p.data[c], other.data[c])
	}
	for i := 0; i < NumHistory; i++ {
		copy(p.blackHistory[i], other.blackHistory[i])
		copy(p.whiteHistory[i], other.whiteHistory[i])
	}
}
