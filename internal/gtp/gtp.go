// Package gtp is the thin line-oriented command dispatcher spec.md section 1
// calls out as an external collaborator ("specified only at their
// interface"): it parses the command table from section 6 (clear,
// boardsize, komi, play, gen_move, undo, final_score, time_settings,
// time_left, the handicap commands, analyze, quit) and calls straight into
// internal/engine. It owns no gameplay state of its own and performs no
// legality checking beyond what Engine already returns errors for. This
// mirrors how the teacher keeps internal/uci in-repo alongside
// cmd/chessplay-uci rather than treating the protocol as fully external.
package gtp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/hailam/gostone/internal/coord"
	"github.com/hailam/gostone/internal/engine"
)

// GTP runs the command loop over an *engine.Engine.
type GTP struct {
	eng    *engine.Engine
	ct     *coord.Table
	logger *log.Logger

	out *bufio.Writer
	in  *bufio.Scanner

	analyzing bool
	cancelPon context.CancelFunc
}

// New builds a GTP dispatcher reading r and writing replies to w, logging
// diagnostics to errW with the teacher's "[gostone]" prefix convention.
func New(eng *engine.Engine, ct *coord.Table, r io.Reader, w, errW io.Writer) *GTP {
	return &GTP{
		eng:    eng,
		ct:     ct,
		logger: log.New(errW, "[gostone] ", log.LstdFlags),
		out:    bufio.NewWriter(w),
		in:     bufio.NewScanner(r),
	}
}

// Run reads commands until EOF or `quit`, matching spec.md section 6's
// command table. Each reply follows GTP's `= text\n\n` / `? text\n\n`
// convention.
func (g *GTP) Run() {
	for g.in.Scan() {
		line := strings.TrimSpace(g.in.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		g.stopAnalyze()
		if cmd == "quit" {
			g.reply(true, "")
			return
		}

		ok, text := g.dispatch(cmd, args)
		g.reply(ok, text)
	}
}

func (g *GTP) reply(ok bool, text string) {
	if ok {
		fmt.Fprintf(g.out, "= %s\n\n", text)
	} else {
		fmt.Fprintf(g.out, "? %s\n\n", text)
	}
	g.out.Flush()
}

func (g *GTP) dispatch(cmd string, args []string) (bool, string) {
	switch cmd {
	case "clear", "clear_board":
		g.stopAnalyze()
		g.eng.Clear()
		return true, ""
	case "boardsize":
		if len(args) != 1 {
			return false, "boardsize requires one argument"
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, "invalid board size"
		}
		if !g.eng.BoardSize(n) {
			return false, fmt.Sprintf("unsupported board size %d", n)
		}
		return true, ""
	case "komi":
		if len(args) != 1 {
			return false, "komi requires one argument"
		}
		k, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, "invalid komi"
		}
		g.eng.SetKomi(k)
		return true, ""
	case "play":
		return g.handlePlay(args)
	case "gen_move", "genmove":
		return g.handleGenMove(args)
	case "undo":
		if err := g.eng.Undo(); err != nil {
			return false, err.Error()
		}
		return true, ""
	case "final_score":
		return true, g.eng.FinalScore()
	case "time_settings":
		return g.handleTimeSettings(args)
	case "time_left":
		return g.handleTimeLeft(args)
	case "fixed_handicap", "place_free_handicap":
		return g.handleFixedHandicap(args)
	case "set_free_handicap":
		return g.handleSetFreeHandicap(args)
	case "analyze", "lz-analyze":
		return g.handleAnalyze(args)
	case "name":
		return true, "gostone"
	case "version":
		return true, "1.0"
	case "protocol_version":
		return true, "2"
	case "known_command":
		if len(args) != 1 {
			return false, "known_command requires a command name"
		}
		for _, name := range commandList {
			if name == args[0] {
				return true, "true"
			}
		}
		return true, "false"
	case "list_commands":
		return true, strings.Join(commandList, "\n")
	case "showboard":
		return true, "\n" + g.eng.Board().String()
	default:
		return false, fmt.Sprintf("unknown command %q", cmd)
	}
}

var commandList = []string{
	"clear", "clear_board", "boardsize", "komi", "play", "gen_move", "genmove",
	"undo", "final_score", "time_settings", "time_left", "fixed_handicap",
	"place_free_handicap", "set_free_handicap", "analyze", "showboard",
	"name", "version", "protocol_version", "known_command", "list_commands",
	"quit",
}

func (g *GTP) handlePlay(args []string) (bool, string) {
	if len(args) != 2 {
		return false, "play requires color and vertex"
	}
	c, err := parseColor(args[0])
	if err != nil {
		return false, err.Error()
	}
	v, err := parseVertex(g.ct, args[1])
	if err != nil {
		return false, err.Error()
	}
	if err := g.eng.Play(c, v); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (g *GTP) handleGenMove(args []string) (bool, string) {
	if len(args) != 1 {
		return false, "gen_move requires a color"
	}
	c, err := parseColor(args[0])
	if err != nil {
		return false, err.Error()
	}
	move, resign, err := g.eng.GenMove(context.Background(), c)
	if err != nil {
		return false, err.Error()
	}
	if resign {
		return true, "resign"
	}
	return true, vertexString(g.ct, move)
}

func (g *GTP) handleTimeSettings(args []string) (bool, string) {
	if len(args) != 3 {
		return false, "time_settings requires main_time byoyomi_time byoyomi_stones"
	}
	main, err1 := strconv.ParseFloat(args[0], 64)
	byo, err2 := strconv.ParseFloat(args[1], 64)
	ext, err3 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return false, "invalid time_settings arguments"
	}
	g.eng.TimeSettings(secs(main), secs(byo), secs(0.3), ext)
	return true, ""
}

func (g *GTP) handleTimeLeft(args []string) (bool, string) {
	if len(args) < 2 {
		return false, "time_left requires color and seconds"
	}
	c, err := parseColor(args[0])
	if err != nil {
		return false, err.Error()
	}
	t, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return false, "invalid time value"
	}
	g.eng.TimeLeft(c, secs(t))
	return true, ""
}

func (g *GTP) handleFixedHandicap(args []string) (bool, string) {
	if len(args) != 1 {
		return false, "fixed_handicap requires a stone count"
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return false, "invalid handicap count"
	}
	pts, err := g.eng.FixedHandicap(n)
	if err != nil {
		return false, err.Error()
	}
	strs := make([]string, len(pts))
	for i, v := range pts {
		strs[i] = vertexString(g.ct, v)
	}
	return true, strings.Join(strs, " ")
}

func (g *GTP) handleSetFreeHandicap(args []string) (bool, string) {
	if len(args) == 0 {
		return false, "set_free_handicap requires at least one vertex"
	}
	pts := make([]coord.Vertex, 0, len(args))
	for _, s := range args {
		v, err := parseVertex(g.ct, s)
		if err != nil {
			return false, err.Error()
		}
		pts = append(pts, v)
	}
	if err := g.eng.SetFreeHandicap(pts); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// handleAnalyze starts a pondering loop that emits periodic candidate info
// to stderr (spec.md section 6's "pondering loop emitting candidate info at
// an interval") until the next command arrives and cancels it; it never
// blocks Run's read loop.
func (g *GTP) handleAnalyze(args []string) (bool, string) {
	g.stopAnalyze()
	interval := 1 * time.Second
	if len(args) > 0 {
		if ms, err := strconv.Atoi(args[0]); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancelPon = cancel
	g.analyzing = true
	go g.ponder(ctx, interval)
	return true, ""
}

func (g *GTP) ponder(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if winRate, visits, _, _, _, ok := g.eng.RootStats(); ok {
				g.logger.Printf("info visits %d winrate %.4f", visits, winRate)
			}
		}
	}
}

func (g *GTP) stopAnalyze() {
	if g.analyzing && g.cancelPon != nil {
		g.cancelPon()
	}
	g.analyzing = false
	g.cancelPon = nil
}

func secs(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func parseColor(s string) (coord.Color, error) {
	switch strings.ToLower(s) {
	case "b", "black":
		return coord.Black, nil
	case "w", "white":
		return coord.White, nil
	default:
		return coord.Empty, fmt.Errorf("invalid color %q", s)
	}
}

// gtpColumns skips "I" the way GTP vertex letters always do, to avoid
// confusion with the digit 1.
const gtpColumns = "ABCDEFGHJKLMNOPQRSTUVWXYZ"

func parseVertex(ct *coord.Table, s string) (coord.Vertex, error) {
	if strings.EqualFold(s, "pass") {
		return coord.KPass, nil
	}
	s = strings.ToUpper(s)
	if len(s) < 2 {
		return coord.KNull, fmt.Errorf("invalid vertex %q", s)
	}
	col := strings.IndexByte(gtpColumns, s[0])
	if col < 0 || col >= ct.Size {
		return coord.KNull, fmt.Errorf("invalid vertex %q", s)
	}
	row, err := strconv.Atoi(s[1:])
	if err != nil || row < 1 || row > ct.Size {
		return coord.KNull, fmt.Errorf("invalid vertex %q", s)
	}
	return ct.V(col+1, row), nil
}

func vertexString(ct *coord.Table, v coord.Vertex) string {
	if v == coord.KPass {
		return "pass"
	}
	if v == coord.KNull {
		return "null"
	}
	x, y := ct.XY(v)
	return fmt.Sprintf("%c%d", gtpColumns[x-1], y)
}
