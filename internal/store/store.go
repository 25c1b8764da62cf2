package store

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyFirstLaunch = "first_launch"
	keyMatchStats  = "match_stats"
	evalWarmPrefix = "evalwarm:"
)

// MatchStats tracks cumulative engine performance across GTP sessions, the
// Go-playing analogue of the teacher's GameStats.
type MatchStats struct {
	GamesPlayed   int           `json:"games_played"`
	WinsAsBlack   int           `json:"wins_as_black"`
	WinsAsWhite   int           `json:"wins_as_white"`
	TotalPlayouts int64         `json:"total_playouts"`
	TotalThink    time.Duration `json:"total_think_time"`
}

// NewMatchStats returns zeroed statistics.
func NewMatchStats() *MatchStats { return &MatchStats{} }

// GameResult is a single finished game's outcome, recorded into MatchStats.
type GameResult struct {
	EngineWasBlack bool
	EngineWon      bool
	Playouts       int64
	ThinkTime      time.Duration
}

// Store wraps BadgerDB for the engine's persistent state: match statistics
// and a warm-start snapshot of the evaluation cache's most valuable entries
// (spec.md section 4.5's cache is otherwise rebuilt from nothing each run).
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) the BadgerDB store at the platform
// data directory. A dedicated dir overrides the default, mainly for tests.
func Open(dir string) (*Store, error) {
	if dir == "" {
		d, err := GetDatabaseDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IsFirstLaunch reports whether this is the first time the store has been
// opened, matching the teacher's first-launch flag.
func (s *Store) IsFirstLaunch() (bool, error) {
	first := true
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		first = false
		return nil
	})
	return first, err
}

// MarkFirstLaunchComplete records that first-launch setup has run.
func (s *Store) MarkFirstLaunchComplete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
}

// LoadMatchStats loads cumulative statistics, or empty stats if none exist.
func (s *Store) LoadMatchStats() (*MatchStats, error) {
	stats := NewMatchStats()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMatchStats))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})
	return stats, err
}

// SaveMatchStats persists stats.
func (s *Store) SaveMatchStats(stats *MatchStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyMatchStats), data)
	})
}

// RecordGame folds a finished game's result into the running statistics.
func (s *Store) RecordGame(r GameResult) error {
	stats, err := s.LoadMatchStats()
	if err != nil {
		return err
	}
	stats.GamesPlayed++
	stats.TotalPlayouts += r.Playouts
	stats.TotalThink += r.ThinkTime
	if r.EngineWon {
		if r.EngineWasBlack {
			stats.WinsAsBlack++
		} else {
			stats.WinsAsWhite++
		}
	}
	return s.SaveMatchStats(stats)
}

// SaveEvalWarm persists a snapshot of the evaluation cache's hottest
// entries, keyed by Zobrist hash, so a freshly started engine doesn't begin
// with a cold cache (spec.md section 4.5). Values are the packed
// [policy-is-pass-prob, value] pair the evaluator returned for that
// position.
func (s *Store) SaveEvalWarm(entries map[uint64][2]float32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for hash, v := range entries {
			var key [8 + len(evalWarmPrefix)]byte
			n := copy(key[:], evalWarmPrefix)
			binary.BigEndian.PutUint64(key[n:], hash)

			var buf [8]byte
			binary.BigEndian.PutUint32(buf[0:4], math.Float32bits(v[0]))
			binary.BigEndian.PutUint32(buf[4:8], math.Float32bits(v[1]))
			if err := txn.Set(append([]byte(nil), key[:]...), buf[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadEvalWarm streams every persisted warm-cache entry to fn, stopping
// early if fn returns false.
func (s *Store) LoadEvalWarm(fn func(hash uint64, value [2]float32) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(evalWarmPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			hash := binary.BigEndian.Uint64(k[len(prefix):])
			var cont bool = true
			err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return nil
				}
				v := [2]float32{
					math.Float32frombits(binary.BigEndian.Uint32(val[0:4])),
					math.Float32frombits(binary.BigEndian.Uint32(val[4:8])),
				}
				cont = fn(hash, v)
				return nil
			})
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}
