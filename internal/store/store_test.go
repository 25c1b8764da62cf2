package store

import "testing"

func TestRecordGameAccumulatesStats(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.RecordGame(GameResult{EngineWasBlack: true, EngineWon: true, Playouts: 1000}); err != nil {
		t.Fatalf("RecordGame: %v", err)
	}
	if err := s.RecordGame(GameResult{EngineWasBlack: false, EngineWon: false, Playouts: 500}); err != nil {
		t.Fatalf("RecordGame: %v", err)
	}

	stats, err := s.LoadMatchStats()
	if err != nil {
		t.Fatalf("LoadMatchStats: %v", err)
	}
	if stats.GamesPlayed != 2 {
		t.Fatalf("expected 2 games played, got %d", stats.GamesPlayed)
	}
	if stats.WinsAsBlack != 1 {
		t.Fatalf("expected 1 win as black, got %d", stats.WinsAsBlack)
	}
	if stats.TotalPlayouts != 1500 {
		t.Fatalf("expected 1500 total playouts, got %d", stats.TotalPlayouts)
	}
}

func TestEvalWarmRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	want := map[uint64][2]float32{
		1: {0.1, 0.5},
		2: {0.2, -0.3},
	}
	if err := s.SaveEvalWarm(want); err != nil {
		t.Fatalf("SaveEvalWarm: %v", err)
	}

	got := map[uint64][2]float32{}
	if err := s.LoadEvalWarm(func(hash uint64, v [2]float32) bool {
		got[hash] = v
		return true
	}); err != nil {
		t.Fatalf("LoadEvalWarm: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for h, v := range want {
		if got[h] != v {
			t.Fatalf("entry %d: got %v want %v", h, got[h], v)
		}
	}
}
