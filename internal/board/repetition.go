package board

// CheckRepetition implements spec.md section 4.4.3's superko/positional
// repetition check: scans the 8-entry rolling key_history for the current
// hashKey, dispatching on RepRule for what a repeat means.
func (b *Board) CheckRepetition() RepetitionResult {
	for i, k := range b.keyHistory {
		if i >= b.ply {
			break
		}
		if k == b.hashKey {
			switch b.RepRule {
			case RepSuperKo:
				return RepLoseResult
			case RepDraw, RepTrompTaylor:
				return RepDrawResult
			}
		}
	}
	return RepNone
}
