// Package engine orchestrates a Board, a search Tree, the evaluation
// stack and end-of-game scoring behind the operations spec.md section 6's
// text protocol calls into: clear, play, gen_move, undo, final_score,
// time control and handicap setup. It plays the role the teacher's own
// Engine plays for its UCI front end — a single place that owns the
// mutable game state and exposes it as plain method calls, so the
// protocol layer only has to parse and format.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hailam/gostone/internal/board"
	"github.com/hailam/gostone/internal/config"
	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/eval"
	"github.com/hailam/gostone/internal/feature"
	"github.com/hailam/gostone/internal/mcts"
	"github.com/hailam/gostone/internal/pattern"
	"github.com/hailam/gostone/internal/scoring"
	"github.com/hailam/gostone/internal/store"
)

// PastOpeningPly is the ply past which an extreme win estimate compresses
// the search budget (spec.md section 4.8.4).
const PastOpeningPly = 40

// Engine is the mutable game-session state: the board, the persistent
// search tree, the evaluation stack, and per-side time control.
type Engine struct {
	cfg *config.Options
	ct  *coord.Table
	pat *pattern.Tables

	cache  *eval.Cache
	worker *eval.Worker

	cancelWorker context.CancelFunc

	tree *mcts.Tree
	b    *board.Board

	tc     *TimeControl
	rng    *rand.Rand
	logger *log.Logger

	st        *store.Store
	closeOnce sync.Once

	// Per-game accounting folded into the store's match statistics when
	// the game ends (Clear or Close).
	genColor     coord.Color
	genColorSet  bool
	gamePlayouts int64
	gameThink    time.Duration
}

// New builds an Engine for a fixed board size, wiring the evaluation
// stack (HeuristicEvaluator unless evalr is provided — the real model
// backend is outside this package's scope) behind a bounded cache and a
// batching Worker, then runs the worker's drain loop in the background
// until Close.
func New(cfg *config.Options, evalr eval.Evaluator, size int) (*Engine, error) {
	ct, err := coord.NewTable(size)
	if err != nil {
		return nil, fmt.Errorf("building coordinate table: %w", err)
	}
	pat := pattern.NewTables()
	resp := pattern.NewRespTables()
	loadProbTables(cfg.WorkingDir, pat, resp)

	cache, err := eval.NewCache(int64(cfg.NodeSize))
	if err != nil {
		return nil, fmt.Errorf("building eval cache: %w", err)
	}

	if evalr == nil {
		evalr = eval.NewHeuristicEvaluator(feature.NumChannels)
	}
	worker := eval.NewWorker(evalr, cfg.BatchSize, 2*time.Millisecond, 500*time.Microsecond, 20*time.Millisecond, cfg.NumGPUs)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	// Diagnostics go to stderr the way the teacher's own engines log; the
	// save_log key additionally tees them into working_dir/gostone.log.
	var logW io.Writer = os.Stderr
	if cfg.SaveLog {
		if f, err := os.OpenFile(filepath.Join(cfg.WorkingDir, "gostone.log"),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			logW = io.MultiWriter(os.Stderr, f)
		} else {
			fmt.Fprintf(os.Stderr, "[gostone] cannot open log file: %v\n", err)
		}
	}

	e := &Engine{
		cfg:          cfg,
		ct:           ct,
		pat:          pat,
		cache:        cache,
		worker:       worker,
		cancelWorker: cancel,
		tree:         mcts.NewTree(cfg, ct, cache, worker),
		b:            board.New(ct, pat, resp, cfg.Komi, cfg.Rule, cfg.RepetitionRule),
		tc:           NewTimeControl(secondsToDuration(cfg.MainTime), secondsToDuration(cfg.Byoyomi), secondsToDuration(cfg.ByoyomiMargin), cfg.NumExtensions),
		rng:          rand.New(rand.NewSource(1)),
		logger:       log.New(logW, "[gostone] ", log.LstdFlags),
	}
	return e, nil
}

// loadProbTables overlays the trained rollout-prior weights from
// working_dir/prob/. Missing or unreadable files are not fatal: the
// tables keep their neutral weights and play degrades gracefully, per
// the error-handling table in spec.md section 7.
func loadProbTables(workingDir string, pat *pattern.Tables, resp *pattern.RespTables) {
	probDir := filepath.Join(workingDir, "prob")
	if err := pat.LoadProbFromFile(filepath.Join(probDir, "prob_ptn3x3.txt")); err != nil {
		fmt.Fprintf(os.Stderr, "[gostone] 3x3 pattern weights unavailable, using neutral: %v\n", err)
	}
	if err := resp.LoadRespFromFile(filepath.Join(probDir, "prob_ptn_rsp.txt")); err != nil {
		fmt.Fprintf(os.Stderr, "[gostone] response pattern weights unavailable, using neutral: %v\n", err)
	}
	if err := resp.LoadDistFromFile(filepath.Join(probDir, "prob_dist.txt")); err != nil {
		fmt.Fprintf(os.Stderr, "[gostone] distance weights unavailable, using neutral: %v\n", err)
	}
}

// AttachStore connects the persistent store: the saved eval-cache warm
// snapshot is loaded into the live cache so the first searches of this
// session don't start fully cold (spec.md section 4.5's cache otherwise
// rebuilds from nothing), and game results/statistics are written back on
// Clear and Close.
func (e *Engine) AttachStore(st *store.Store) {
	if st == nil {
		return
	}
	e.st = st

	if first, err := st.IsFirstLaunch(); err == nil && first {
		if err := st.MarkFirstLaunchComplete(); err == nil {
			e.logger.Printf("persistent store initialized")
		}
	}

	n := e.ct.Size * e.ct.Size
	loaded := 0
	err := st.LoadEvalWarm(func(hash uint64, v [2]float32) bool {
		// Rebuild a minimal Result from the packed (pass-prob, value)
		// pair: the pass slot carries the saved probability and the board
		// slots split the remainder evenly. Enough of a prior to steer the
		// first visits; real evaluations overwrite it on arrival.
		policy := make([]float32, n+1)
		rest := (1 - v[0]) / float32(n)
		for i := 0; i < n; i++ {
			policy[i] = rest
		}
		policy[n] = v[0]
		e.cache.Set(hash, eval.Result{Policy: policy, Value: v[1]})
		loaded++
		return true
	})
	if err != nil {
		e.logger.Printf("eval warm-start load failed: %v", err)
		return
	}
	if loaded > 0 {
		e.cache.Wait()
		e.logger.Printf("eval cache warmed with %d stored entries", loaded)
	}
}

// finishGame folds the finished (or abandoned) game into the store's
// match statistics. A game only counts once the engine has generated at
// least one move of its own.
func (e *Engine) finishGame() {
	defer func() {
		e.genColorSet = false
		e.gamePlayouts = 0
		e.gameThink = 0
	}()
	if e.st == nil || !e.genColorSet || e.b.Ply() == 0 {
		return
	}
	margin, result := scoring.FinalScore(e.b, e.rng, 100)
	won := margin != 0 && (margin > 0) == (e.genColor == coord.Black)
	err := e.st.RecordGame(store.GameResult{
		EngineWasBlack: e.genColor == coord.Black,
		EngineWon:      won,
		Playouts:       e.gamePlayouts,
		ThinkTime:      e.gameThink,
	})
	if err != nil {
		e.logger.Printf("recording game result: %v", err)
		return
	}
	e.logger.Printf("game recorded: %s, %d playouts", result, e.gamePlayouts)
}

// Close records the in-progress game, snapshots the eval cache's warm
// entries into the store, then stops the background evaluation worker and
// releases the cache. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.finishGame()
		if e.st != nil {
			if err := e.st.SaveEvalWarm(e.cache.WarmEntries()); err != nil {
				e.logger.Printf("saving eval warm snapshot: %v", err)
			}
		}
		e.cancelWorker()
		e.cache.Close()
	})
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Clear matches the `clear` command: Board.init(), Tree.init_root(). The
// game being cleared away is first folded into the match statistics.
func (e *Engine) Clear() {
	e.finishGame()
	e.b.Init()
	e.tree.InitRoot()
	e.tc = NewTimeControl(secondsToDuration(e.cfg.MainTime), secondsToDuration(e.cfg.Byoyomi), secondsToDuration(e.cfg.ByoyomiMargin), e.cfg.NumExtensions)
}

// BoardSize reports whether n matches this Engine's compile-time board
// size, per spec.md section 6's `boardsize N` acceptance rule.
func (e *Engine) BoardSize(n int) bool { return n == e.ct.Size }

// SetKomi updates komi for subsequent scoring.
func (e *Engine) SetKomi(komi float64) { e.b.Komi = komi }

// Play applies c's move at v, failing if c does not match the board's
// current side to move, per spec.md section 6's `play c v` contract.
func (e *Engine) Play(c coord.Color, v coord.Vertex) error {
	if c != e.b.SideToMove {
		return fmt.Errorf("play: %v to move, not %v", e.b.SideToMove, c)
	}
	if v != coord.KPass && !e.b.IsLegal(c, v) {
		return fmt.Errorf("play: %v is not a legal move for %v", v, c)
	}
	prevOpp := e.b.PrevMove(c.Opposite())
	e.b.MakeMove(board.ModeReversible, v)
	e.tree.ShiftRoot(e.b, prevOpp, v)
	return nil
}

// GenMove runs a search for c (which must be the side to move) and plays
// the result, returning the move and whether the engine should resign
// instead (spec.md section 6's "resign threshold check").
func (e *Engine) GenMove(ctx context.Context, c coord.Color) (coord.Vertex, bool, error) {
	if c != e.b.SideToMove {
		return coord.KNull, false, fmt.Errorf("gen_move: %v to move, not %v", e.b.SideToMove, c)
	}
	if err := e.tree.UpdateRoot(ctx, e.b); err != nil {
		return coord.KNull, false, err
	}

	idx := colorIndex(c)
	tm := NewTimeManager(e.tc, idx, e.b.Ply())
	budget := tm.Budget()
	if prevWinRate, _, _, _, _, ok := e.tree.RootStats(); ok {
		budget = Compress(budget, e.b.Ply(), prevWinRate, PastOpeningPly)
	}

	e.genColor = c
	e.genColorSet = true

	start := time.Now()
	move, winRate := e.tree.Search(ctx, e.b, budget)
	e.tc.Spend(idx, time.Since(start))
	e.gamePlayouts += e.tree.Playouts()
	e.gameThink += time.Since(start)

	if _, bestVisits, secondVisits, bestValueRate, secondValueRate, ok := e.tree.RootStats(); ok {
		if extra := tm.Extend(budget, bestVisits, secondVisits, bestValueRate, secondValueRate); extra > 0 {
			extraStart := time.Now()
			move, winRate = e.tree.Search(ctx, e.b, extra)
			e.tc.Spend(idx, time.Since(extraStart))
			e.gamePlayouts += e.tree.Playouts()
			e.gameThink += time.Since(extraStart)
		}
	}

	e.logger.Printf("genmove %v: move %v winrate %.3f budget %v", c, move, winRate, budget)
	if winRate < e.cfg.ResignValue {
		return coord.KNull, true, nil
	}

	// The root stays put: ShiftRoot's two-ply rebase only lines up once the
	// opponent answers (Play), walking our-move then their-move from the
	// position this search ran at.
	e.b.MakeMove(board.ModeReversible, move)
	return move, false, nil
}

// Undo reverses the most recent move, matching spec.md section 6's
// "board-history replay" contract; real-game moves are played in
// Reversible mode exactly so this can restore the prior position
// bit-for-bit. An Undo with no moves played is a no-op that still
// succeeds, per the error-handling table in spec.md section 7. Undo also
// drops the search tree, since the tree is only valid for positions
// reachable forward from a root it has already built.
func (e *Engine) Undo() error {
	if e.b.Ply() == 0 {
		return nil
	}
	e.b.Undo()
	e.tree.InitRoot()
	return nil
}

// FinalScore implements the `final_score` command via the scoring
// package's rollout-based estimator.
func (e *Engine) FinalScore() string {
	_, result := scoring.FinalScore(e.b, e.rng, 0)
	return result
}

// TimeSettings implements the `time_settings` command.
func (e *Engine) TimeSettings(mainTime, byoyomi, margin time.Duration, numExtensions int) {
	e.tc = NewTimeControl(mainTime, byoyomi, margin, numExtensions)
}

// TimeLeft implements the `time_left c t` command.
func (e *Engine) TimeLeft(c coord.Color, left time.Duration) {
	e.tc.SetLeft(colorIndex(c), left)
}

// FixedHandicap places n handicap stones at the board's standard star
// points (smallest-first, matching common GTP engines' placement order)
// with an interleaved Pass for White between Black's placements, per
// spec.md section 6's "seed stones with interleaved Passes". The last
// action is always a Black stone, leaving White to move.
func (e *Engine) FixedHandicap(n int) ([]coord.Vertex, error) {
	if e.b.Ply() != 0 {
		return nil, errors.New("fixed_handicap: board is not empty")
	}
	points := e.handicapPoints(n)
	if len(points) < n {
		return nil, fmt.Errorf("fixed_handicap: %d stones requested, only %d star points available", n, len(points))
	}
	return points, e.seedHandicap(points)
}

// SetFreeHandicap seeds the caller-chosen handicap stones, the
// `set_free_handicap` variant of the same interleaved-Pass placement.
func (e *Engine) SetFreeHandicap(points []coord.Vertex) error {
	if e.b.Ply() != 0 {
		return errors.New("set_free_handicap: board is not empty")
	}
	for _, v := range points {
		if !e.ct.OnBoard(v) || e.b.Color(v) != coord.Empty {
			return fmt.Errorf("set_free_handicap: bad vertex %v", v)
		}
	}
	return e.seedHandicap(points)
}

func (e *Engine) seedHandicap(points []coord.Vertex) error {
	for i, v := range points {
		if i > 0 {
			e.b.MakeMove(board.ModeReversible, coord.KPass)
		}
		e.b.MakeMove(board.ModeReversible, v)
	}
	e.tree.InitRoot()
	return nil
}

func (e *Engine) handicapPoints(n int) []coord.Vertex {
	var pts []coord.Vertex
	e.ct.Walk(func(v coord.Vertex) {
		if e.ct.IsStarPoint(v) {
			pts = append(pts, v)
		}
	})
	if len(pts) > n {
		pts = pts[:n]
	}
	return pts
}

// Board exposes the current board for the protocol layer's `showboard`
// and analysis commands.
func (e *Engine) Board() *board.Board { return e.b }

// RootStats exposes the search tree's current root statistics for the
// protocol layer's `analyze` pondering loop.
func (e *Engine) RootStats() (winRate float64, bestVisits, secondVisits int64, bestValueRate, secondValueRate float64, ok bool) {
	return e.tree.RootStats()
}

func colorIndex(c coord.Color) int {
	if c == coord.White {
		return 1
	}
	return 0
}
