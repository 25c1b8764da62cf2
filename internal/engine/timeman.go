package engine

import "time"

// TimeControl mirrors the GTP `time_settings`/`time_left` state the engine
// tracks per color.
type TimeControl struct {
	MainTime      time.Duration
	Byoyomi       time.Duration
	ByoyomiMargin time.Duration
	NumExtensions int

	left           [2]time.Duration
	extensionsLeft [2]int
}

// NewTimeControl builds a TimeControl from the main_time/byoyomi/margin
// values the `time_settings` command accepts, with both sides starting
// with the full main time bank.
func NewTimeControl(mainTime, byoyomi, margin time.Duration, numExtensions int) *TimeControl {
	tc := &TimeControl{
		MainTime:      mainTime,
		Byoyomi:       byoyomi,
		ByoyomiMargin: margin,
		NumExtensions: numExtensions,
	}
	tc.left[0], tc.left[1] = mainTime, mainTime
	tc.extensionsLeft[0], tc.extensionsLeft[1] = numExtensions, numExtensions
	return tc
}

// SetLeft applies the GTP `time_left` command: overrides color's
// remaining main time.
func (tc *TimeControl) SetLeft(idx int, d time.Duration) { tc.left[idx] = d }

// Spend deducts elapsed from color's remaining time bank (never below
// zero, since byoyomi periods are tracked separately by the budget
// formula rather than by a shared countdown here).
func (tc *TimeControl) Spend(idx int, elapsed time.Duration) {
	tc.left[idx] -= elapsed
	if tc.left[idx] < 0 {
		tc.left[idx] = 0
	}
}

// TimeManager computes a single search's time budget from a TimeControl
// and the tree's own progress, matching spec.md section 4.8.4's formula —
// the same shape as the teacher's own UCI time manager (remaining time,
// estimated moves-to-go, a safety margin), generalized to this system's
// main_time/byoyomi/extensions model instead of increments.
type TimeManager struct {
	tc       *TimeControl
	idx      int
	ply      int
	extended bool
}

// NewTimeManager builds a TimeManager for color idx (0=Black, 1=White) at
// the given ply.
func NewTimeManager(tc *TimeControl, idx, ply int) *TimeManager {
	return &TimeManager{tc: tc, idx: idx, ply: ply}
}

// Budget computes the base search budget per spec.md section 4.8.4 steps
// 1-3, before the win-estimate compression and post-search extension
// this package's Engine applies around the actual Search call.
func (tm *TimeManager) Budget() time.Duration {
	tc := tm.tc
	margin := tc.ByoyomiMargin
	left := tc.left[tm.idx]

	if tc.MainTime == 0 {
		return maxDuration(tc.Byoyomi-margin, 100*time.Millisecond)
	}
	if left < 2*tc.Byoyomi {
		return maxDuration(tc.Byoyomi-margin, time.Second)
	}

	denom := 55 + maxInt(0, 50-tm.ply)
	fromLeft := left / time.Duration(denom)

	frac := clamp01(float64(tm.ply-16) / 16)
	fromByoyomi := time.Duration(float64(tc.Byoyomi) * (0.5 + 1.5*frac))

	return maxDuration(fromLeft, fromByoyomi)
}

// Compress implements spec.md section 4.8.4's "either side's current win
// estimate is extreme and the game is past opening" rule: callers pass the
// current leading side's win-rate estimate and get back a short fixed
// budget when it's already decided.
func Compress(budget time.Duration, ply int, winRate float64, pastOpening int) time.Duration {
	if ply < pastOpening {
		return budget
	}
	if winRate < 0.01 || winRate > 0.95 {
		return 200 * time.Millisecond
	}
	return budget
}

// Extend implements spec.md section 4.8.4's post-search extension rule:
// when the best and second-best children are close in visits (within
// 1.5x) and the second has a higher value rate, the caller should search
// again with an extra 0.7x budget (or consume one of color's remaining
// extensions). It returns the extra budget to spend, or 0 if no extension
// applies or none remain.
func (tm *TimeManager) Extend(budget time.Duration, bestVisits, secondVisits int64, bestValueRate, secondValueRate float64) time.Duration {
	if tm.extended {
		return 0
	}
	if secondVisits == 0 || float64(bestVisits) > float64(secondVisits)*1.5 {
		return 0
	}
	if secondValueRate <= bestValueRate {
		return 0
	}
	if tm.tc.extensionsLeft[tm.idx] <= 0 {
		return 0
	}
	tm.tc.extensionsLeft[tm.idx]--
	tm.extended = true
	return time.Duration(float64(budget) * 0.7)
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
