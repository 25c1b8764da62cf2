package board

// Rule selects the scoring convention, per spec.md section 6's `rule`
// config key.
type Rule int

const (
	RuleChinese Rule = iota
	RuleJapanese
	RuleTromp
)

// RepetitionRule selects how a recreated position is treated, per spec.md
// section 4.4.3.
type RepetitionRule int

const (
	RepDraw RepetitionRule = iota
	RepSuperKo
	RepTrompTaylor
)

// RepetitionResult is what CheckRepetition finds a candidate move would
// cause.
type RepetitionResult int

const (
	RepNone RepetitionResult = iota
	RepDrawResult
	RepLoseResult
)
