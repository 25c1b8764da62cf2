package board

import "github.com/hailam/gostone/internal/coord"

// LadderEscapes returns, for every group currently in atari, the empty
// vertex at its sole liberty if extending there escapes a ladder within
// maxDepth plies (spec.md section 4.4.5). Used to populate the
// ladder-escape NN feature plane; ladders that remain unresolved past
// maxDepth are treated as failing to escape, matching the source's
// bounded-depth convention (an unresolved deep ladder is not worth
// reporting as a usable escape).
func (b *Board) LadderEscapes(maxDepth int) map[coord.Vertex]bool {
	result := map[coord.Vertex]bool{}
	seen := map[coord.Vertex]bool{}
	b.Coord.Walk(func(v coord.Vertex) {
		c := b.color[v]
		if c != coord.Black && c != coord.White {
			return
		}
		rep := b.sgID[v]
		if seen[rep] {
			return
		}
		seen[rep] = true
		g := b.groups[rep]
		if g.NumLiberties() != 1 {
			return
		}
		lib := g.AtariVertex()
		if b.tryLadder(lib, c, maxDepth) {
			result[lib] = true
		}
	})
	return result
}

// tryLadder reports whether the owner-colour group in atari at
// escapeLiberty's neighbourhood survives the chaser's every response,
// recursing up to depth plies. Two escape routes are tried in order
// (spec.md section 4.4.5): first, any legal capture of an opponent group
// neighbouring the atari group that is itself in atari — escaping by
// removing the chaser's stones outright; only if every such capture still
// leads back into the ladder is the natural escape (extending onto the sole
// liberty itself) tried. Moves are made and undone in ModeQuick so the
// search leaves no trace on the real position.
func (b *Board) tryLadder(escapeLiberty coord.Vertex, escaping coord.Color, depth int) bool {
	if depth <= 0 || !b.Coord.OnBoard(escapeLiberty) {
		return false
	}
	if !b.IsLegal(escaping, escapeLiberty) {
		return false
	}

	if rep := b.atariGroupRep(escapeLiberty, escaping); rep != coord.KNull {
		if b.tryCaptureEscape(rep, escaping, depth) {
			return true
		}
	}

	return b.tryNaturalEscape(escapeLiberty, escaping, depth)
}

// tryNaturalEscape plays escapeLiberty itself and judges the result by
// liberty count: <=1 means captured, >=3 means escaped outright, exactly 2
// means the chaser gets to push on either of the two remaining liberties,
// each recursively tried.
func (b *Board) tryNaturalEscape(escapeLiberty coord.Vertex, escaping coord.Color, depth int) bool {
	b.MakeMove(ModeQuick, escapeLiberty)
	g := b.groupAt(escapeLiberty)
	libs := g.NumLiberties()

	switch {
	case libs >= 3:
		b.Undo()
		return true
	case libs <= 1:
		b.Undo()
		return false
	}

	var libList []coord.Vertex
	g.liberties.Iter(func(v coord.Vertex) { libList = append(libList, v) })
	chaser := escaping.Opposite()

	survives := true
	for _, cv := range libList {
		if !b.IsLegal(chaser, cv) {
			continue
		}
		var remaining coord.Vertex
		for _, ov := range libList {
			if ov != cv {
				remaining = ov
			}
		}
		b.MakeMove(ModeQuick, cv)
		escaped := b.tryLadder(remaining, escaping, depth-1)
		b.Undo()
		if !escaped {
			survives = false
			break
		}
	}

	b.Undo()
	return survives
}

// atariGroupRep returns the representative vertex of the owner-colour group
// in atari whose sole liberty is v, found among v's neighbours; coord.KNull
// if no such group is adjacent.
func (b *Board) atariGroupRep(v coord.Vertex, owner coord.Color) coord.Vertex {
	for _, nb := range b.Coord.Neighbors4(v) {
		if b.color[nb] != owner {
			continue
		}
		rep := b.sgID[nb]
		g := b.groups[rep]
		if g.NumLiberties() == 1 && g.AtariVertex() == v {
			return rep
		}
	}
	return coord.KNull
}

// tryCaptureEscape looks for an opponent group neighbouring the atari group
// at rep that is itself in atari and whose capture is legal for escaping;
// for each such capture, it plays the capturing move, then lets
// capturedGroupEscapes judge whether the freed group survives the chaser's
// reply. If any capture route escapes,
// the whole search escapes; if every capture still leads back into the
// ladder (or none is available), false is returned and the caller falls
// through to the natural escape.
func (b *Board) tryCaptureEscape(rep coord.Vertex, escaping coord.Color, depth int) bool {
	for _, capVertex := range b.enemyAtariLiberties(rep, escaping) {
		if !b.IsLegal(escaping, capVertex) {
			continue
		}
		b.MakeMove(ModeQuick, capVertex)
		escaped := b.capturedGroupEscapes(rep, escaping, depth)
		b.Undo()
		if escaped {
			return true
		}
	}
	return false
}

// enemyAtariLiberties walks the stones of the group at rep and collects the
// deduplicated sole liberties of every opponent group in atari adjacent to
// any of those stones — the candidate capturing moves spec.md section
// 4.4.5 calls "any opponent neighbour of the atari group in atari".
func (b *Board) enemyAtariLiberties(rep coord.Vertex, owner coord.Color) []coord.Vertex {
	opp := owner.Opposite()
	seenGroup := map[coord.Vertex]bool{}
	var out []coord.Vertex

	g := b.groups[rep]
	cur := rep
	for i := 0; i < g.numStones; i++ {
		for _, nb := range b.Coord.Neighbors4(cur) {
			if b.color[nb] != opp {
				continue
			}
			oppRep := b.sgID[nb]
			if seenGroup[oppRep] {
				continue
			}
			seenGroup[oppRep] = true
			oppGroup := b.groups[oppRep]
			if oppGroup.NumLiberties() == 1 {
				out = append(out, oppGroup.AtariVertex())
			}
		}
		cur = b.nextV[cur]
	}
	return out
}

// capturedGroupEscapes checks, immediately after a capturing move has been
// played, whether the group at rep survives: with >=3 liberties it escapes
// outright; with exactly 2 the chaser ataris on each in turn and the group
// must escape from the other via tryLadder, as in tryNaturalEscape.
func (b *Board) capturedGroupEscapes(rep coord.Vertex, escaping coord.Color, depth int) bool {
	g := b.groupAt(rep)
	if g.NumLiberties() >= 3 {
		return true
	}

	var libs []coord.Vertex
	g.liberties.Iter(func(v coord.Vertex) { libs = append(libs, v) })
	if len(libs) < 2 {
		return false
	}
	chaser := escaping.Opposite()
	for _, cv := range libs {
		if !b.IsLegal(chaser, cv) {
			continue
		}
		var remaining coord.Vertex
		for _, ov := range libs {
			if ov != cv {
				remaining = ov
			}
		}
		b.MakeMove(ModeQuick, cv)
		escaped := b.tryLadder(remaining, escaping, depth-1)
		b.Undo()
		if !escaped {
			return false
		}
	}
	return true
}
