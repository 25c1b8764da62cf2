// Command gostone-gtp runs the engine core behind a line-oriented GTP-style
// command loop, the external interface spec.md section 1 calls out as an
// external collaborator. It mirrors cmd/chessplay-uci/main.go's wiring:
// build the engine, auto-attach persistent state if available, run the
// protocol loop against stdin/stdout.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/hailam/gostone/internal/config"
	"github.com/hailam/gostone/internal/engine"
	"github.com/hailam/gostone/internal/gtp"
	"github.com/hailam/gostone/internal/store"
)

var (
	boardSize  = flag.Int("boardsize", 19, "board size: 9, 13 or 19")
	workingDir = flag.String("working-dir", ".", "directory containing prob/ pattern tables")
	modelPath  = flag.String("model", "", "inference model path (unused by the built-in heuristic evaluator)")
	noStore    = flag.Bool("no-store", false, "disable persistent match-stats/eval-warm store")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	cfg.WorkingDir = *workingDir
	cfg.ModelPath = *modelPath

	eng, err := engine.New(cfg, nil, *boardSize)
	if err != nil {
		log.Fatalf("[gostone] building engine: %v", err)
	}
	defer eng.Close()

	if !*noStore {
		st, err := store.Open("")
		if err != nil {
			log.Printf("[gostone] persistent store unavailable, continuing without it: %v", err)
		} else {
			// The engine flushes its warm snapshot and game record on
			// Close, so it must close before the store does. Close is
			// idempotent; the earlier deferred call becomes a no-op.
			defer func() {
				eng.Close()
				st.Close()
			}()
			eng.AttachStore(st)
		}
	}

	dispatcher := gtp.New(eng, eng.Board().Coord, os.Stdin, os.Stdout, os.Stderr)
	dispatcher.Run()
}
