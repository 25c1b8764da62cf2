package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hailam/gostone/internal/config"
	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.SearchLimit = 20
	cfg.UseDirichletNoise = false
	e, err := New(cfg, nil, 9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestClearResetsBoardAndTree(t *testing.T) {
	e := newTestEngine(t)
	v := e.ct.V(4, 4)
	if err := e.Play(coord.Black, v); err != nil {
		t.Fatalf("Play: %v", err)
	}
	e.Clear()
	if e.b.Ply() != 0 {
		t.Errorf("Ply() = %d after Clear, want 0", e.b.Ply())
	}
	if e.tree.HasRoot() {
		t.Error("tree still has a root after Clear")
	}
}

func TestPlayRejectsWrongSide(t *testing.T) {
	e := newTestEngine(t)
	v := e.ct.V(4, 4)
	if err := e.Play(coord.White, v); err == nil {
		t.Error("Play with wrong side to move should fail")
	}
}

func TestPlayRejectsIllegalMove(t *testing.T) {
	e := newTestEngine(t)
	v := e.ct.V(4, 4)
	if err := e.Play(coord.Black, v); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := e.Play(coord.White, v); err == nil {
		t.Error("Play onto an occupied point should fail")
	}
}

func TestUndoReversesMostRecentPlay(t *testing.T) {
	e := newTestEngine(t)
	v := e.ct.V(4, 4)
	if err := e.Play(coord.Black, v); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := e.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if e.b.Ply() != 0 {
		t.Errorf("Ply() = %d after Undo, want 0", e.b.Ply())
	}
	if e.b.Color(v) != coord.Empty {
		t.Errorf("vertex still occupied after Undo")
	}
}

func TestUndoOnEmptyHistoryIsNoOp(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Undo(); err != nil {
		t.Errorf("Undo with no history should succeed as a no-op, got %v", err)
	}
	if e.b.Ply() != 0 {
		t.Errorf("Ply() = %d after no-op Undo, want 0", e.b.Ply())
	}
}

func TestFixedHandicapRejectsNonEmptyBoard(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Play(coord.Black, e.ct.V(4, 4)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if _, err := e.FixedHandicap(2); err == nil {
		t.Error("FixedHandicap on a non-empty board should error")
	}
}

func TestFixedHandicapPlacesStonesAndLeavesWhiteToMove(t *testing.T) {
	e := newTestEngine(t)
	points, err := e.FixedHandicap(2)
	if err != nil {
		t.Fatalf("FixedHandicap: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	for _, v := range points {
		if e.b.Color(v) != coord.Black {
			t.Errorf("handicap point %v is not Black", v)
		}
	}
	if e.b.SideToMove != coord.White {
		t.Errorf("SideToMove = %v after handicap placement, want White", e.b.SideToMove)
	}
}

func TestGenMoveReturnsLegalMoveOnEmptyBoard(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	move, resign, err := e.GenMove(ctx, coord.Black)
	if err != nil {
		t.Fatalf("GenMove: %v", err)
	}
	if resign {
		t.Fatal("GenMove resigned on an empty board")
	}
	if move != coord.KPass && !e.ct.OnBoard(move) {
		t.Errorf("GenMove returned off-board vertex %v", move)
	}
}

// TestAttachStorePersistsGameAndWarmCache drives the full persistence
// loop: a generated move and engine shutdown must leave a recorded game
// and a warm eval snapshot behind, and a fresh engine must load that
// snapshot back.
func TestAttachStorePersistsGameAndWarmCache(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	e := newTestEngine(t)
	e.AttachStore(st)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := e.GenMove(ctx, coord.Black); err != nil {
		t.Fatalf("GenMove: %v", err)
	}
	e.Close()

	stats, err := st.LoadMatchStats()
	if err != nil {
		t.Fatalf("LoadMatchStats: %v", err)
	}
	if stats.GamesPlayed != 1 {
		t.Errorf("GamesPlayed = %d, want 1", stats.GamesPlayed)
	}
	if stats.TotalPlayouts == 0 {
		t.Error("TotalPlayouts = 0 after a searched move")
	}

	warm := 0
	if err := st.LoadEvalWarm(func(uint64, [2]float32) bool { warm++; return true }); err != nil {
		t.Fatalf("LoadEvalWarm: %v", err)
	}
	if warm == 0 {
		t.Error("no warm eval entries persisted")
	}

	if first, err := st.IsFirstLaunch(); err != nil || first {
		t.Errorf("IsFirstLaunch after AttachStore = (%v, %v), want (false, nil)", first, err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("store close: %v", err)
	}

	// A second engine warm-starts its cache from the snapshot.
	st2, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open (reopen): %v", err)
	}
	defer st2.Close()
	e2 := newTestEngine(t)
	e2.AttachStore(st2)
	if len(e2.cache.WarmEntries()) == 0 {
		t.Error("reopened engine did not load the warm snapshot")
	}
}

func TestClearFoldsGameIntoStats(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	e := newTestEngine(t)
	e.AttachStore(st)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := e.GenMove(ctx, coord.Black); err != nil {
		t.Fatalf("GenMove: %v", err)
	}
	e.Clear()
	e.Clear() // second clear with no new game must not double-count

	stats, err := st.LoadMatchStats()
	if err != nil {
		t.Fatalf("LoadMatchStats: %v", err)
	}
	if stats.GamesPlayed != 1 {
		t.Errorf("GamesPlayed = %d, want 1", stats.GamesPlayed)
	}
}

func TestFinalScoreOnEmptyBoardFavorsWhiteByKomi(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Play(coord.Black, coord.KPass); err != nil {
		t.Fatalf("Play pass: %v", err)
	}
	if err := e.Play(coord.White, coord.KPass); err != nil {
		t.Fatalf("Play pass: %v", err)
	}
	result := e.FinalScore()
	if result[0] != 'W' {
		t.Errorf("FinalScore() = %q, want a White win on an empty board with positive komi", result)
	}
}
