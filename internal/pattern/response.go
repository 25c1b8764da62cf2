package pattern

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// RespTables holds the 12-point response-pattern and 17-bucket distance
// probability tables described by spec.md section 6's prob_ptn_rsp.txt and
// prob_dist.txt, loaded once at startup and read-only thereafter.
type RespTables struct {
	resp map[uint64][2]float64 // key -> [forward, inverse]
	dist [2][17]float64        // [forward=0/inverse=1][bucket]
}

// NewRespTables returns response/distance tables seeded with neutral (1.0)
// weights everywhere.
func NewRespTables() *RespTables {
	rt := &RespTables{resp: make(map[uint64][2]float64)}
	for b := 0; b < 17; b++ {
		rt.dist[0][b] = 1.0
		rt.dist[1][b] = 1.0
	}
	return rt
}

// RespProb returns the 12-point response-pattern weight for key (forward,
// or its inverse if restore is true). Defaults to neutral 1.0 on a miss.
func (rt *RespTables) RespProb(key uint64, restore bool) float64 {
	v, ok := rt.resp[key]
	if !ok {
		return 1.0
	}
	if restore {
		return v[1]
	}
	return v[0]
}

// DistProb returns the distance-bucket weight (forward, or inverse if
// restore is true).
func (rt *RespTables) DistProb(bucket int, restore bool) float64 {
	if bucket < 0 || bucket > 16 {
		return 1.0
	}
	if restore {
		return rt.dist[1][bucket]
	}
	return rt.dist[0][bucket]
}

// LoadProbRsp overlays prob_ptn_rsp.txt: CSV rows
// `12pt_pattern_bits, p_forward, p_inverse`.
func (rt *RespTables) LoadProbRsp(r io.Reader) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimSpace(sc.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		fields := strings.Split(row, ",")
		if len(fields) != 3 {
			return fmt.Errorf("prob_ptn_rsp.txt:%d: expected 3 fields, got %d", line, len(fields))
		}
		key, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("prob_ptn_rsp.txt:%d: %w", line, err)
		}
		fwd, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return fmt.Errorf("prob_ptn_rsp.txt:%d: %w", line, err)
		}
		inv, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return fmt.Errorf("prob_ptn_rsp.txt:%d: %w", line, err)
		}
		rt.resp[key] = [2]float64{fwd, inv}
	}
	return sc.Err()
}

// LoadProbDist overlays prob_dist.txt: two rows of 34 values each (17
// distance buckets x forward/inverse), per spec.md section 6.
func (rt *RespTables) LoadProbDist(r io.Reader) error {
	sc := bufio.NewScanner(r)
	rowIdx := 0
	for sc.Scan() && rowIdx < 2 {
		row := strings.TrimSpace(sc.Text())
		if row == "" {
			continue
		}
		fields := strings.Fields(strings.ReplaceAll(row, ",", " "))
		if len(fields) != 34 {
			return fmt.Errorf("prob_dist.txt: row %d expected 34 values, got %d", rowIdx, len(fields))
		}
		for b := 0; b < 17; b++ {
			fwd, err := strconv.ParseFloat(fields[2*b], 64)
			if err != nil {
				return err
			}
			inv, err := strconv.ParseFloat(fields[2*b+1], 64)
			if err != nil {
				return err
			}
			// Row 0 carries Black's weights, row 1 White's, each
			// interleaved forward/inverse; both rows write the same single
			// color-neutral table, so the later (White) row's values are
			// the ones kept. One table suffices since gostone applies the
			// 12-point and
			// distance priors only to the opponent side, matching
			// spec.md step 14's "fixed weight for the opponent side".
			rt.dist[0][b] = fwd
			rt.dist[1][b] = inv
		}
		rowIdx++
	}
	return sc.Err()
}

// LoadRespFromFile and LoadDistFromFile are convenience wrappers used by
// cmd/gostone-gtp's startup sequence. A missing file is not fatal per
// spec.md section 7; callers decide whether to surface the error.
func (rt *RespTables) LoadRespFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return rt.LoadProbRsp(f)
}

func (rt *RespTables) LoadDistFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return rt.LoadProbDist(f)
}
