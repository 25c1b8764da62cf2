// Package config holds the engine's frozen startup options: spec.md
// section 6's configuration loader produces a plain read-only struct
// (resolving the "process-wide Options map" redesign flag from section 9)
// rather than a generic string-keyed map, so every consumer gets compile-time
// field access and a single place documents every recognized key.
package config

import (
	"fmt"
	"strconv"

	"github.com/hailam/gostone/internal/board"
)

// Options is every recognized configuration key from spec.md section 6,
// populated with defaults by Default() and overridden one key at a time by
// Set, matching the GTP `config` command's semantics.
type Options struct {
	NumThreads int
	NumGPUs    int

	Komi           float64
	Rule           board.Rule
	RepetitionRule board.RepetitionRule

	MainTime      float64 // seconds
	Byoyomi       float64 // seconds
	ByoyomiMargin float64
	NumExtensions int

	BatchSize int

	LambdaInit      float64
	LambdaDelta     float64
	LambdaMoveStart int
	LambdaMoveEnd   int

	CPInit float64
	CPBase float64

	VirtualLoss     int
	LadderReduction float64

	UseDirichletNoise bool
	DirichletNoise    float64

	SearchLimit int64 // playout cap; 0 means time-controlled only

	UseFullFeatures bool
	ValueFromBlack  bool
	ResignValue     float64

	SaveLog    bool
	WorkingDir string
	ModelPath  string

	NodeSize int // tree node cap, spec.md section 5's "configured cap"
}

// Default returns the engine's out-of-the-box configuration.
func Default() *Options {
	return &Options{
		NumThreads: 8,
		NumGPUs:    0,

		Komi:           7.5,
		Rule:           board.RuleChinese,
		RepetitionRule: board.RepSuperKo,

		MainTime:      0,
		Byoyomi:       5,
		ByoyomiMargin: 0.3,
		NumExtensions: 1,

		BatchSize: 16,

		LambdaInit:      0.5,
		LambdaDelta:     0.0001,
		LambdaMoveStart: 0,
		LambdaMoveEnd:   200,

		CPInit: 1.5,
		CPBase: 19652,

		VirtualLoss:     3,
		LadderReduction: 0.5,

		UseDirichletNoise: false,
		DirichletNoise:    0.03,

		SearchLimit: 0,

		UseFullFeatures: true,
		ValueFromBlack:  false,
		ResignValue:     0.05,

		SaveLog:    false,
		WorkingDir: ".",
		ModelPath:  "",

		NodeSize: 500000,
	}
}

// Set applies a single `config key value` override, as accepted by the GTP
// `config` command (spec.md section 6). Invalid keys or values are reported
// with the key name so the caller can surface spec.md's "report to stderr
// with file:line context and terminate" contract at the protocol layer.
func (o *Options) Set(key, value string) error {
	switch key {
	case "num_threads":
		return setInt(&o.NumThreads, value)
	case "num_gpus":
		return setInt(&o.NumGPUs, value)
	case "komi":
		return setFloat(&o.Komi, value)
	case "rule":
		r, err := parseRule(value)
		if err != nil {
			return err
		}
		o.Rule = r
	case "repetition_rule":
		r, err := parseRepRule(value)
		if err != nil {
			return err
		}
		o.RepetitionRule = r
	case "main_time":
		return setFloat(&o.MainTime, value)
	case "byoyomi":
		return setFloat(&o.Byoyomi, value)
	case "byoyomi_margin":
		return setFloat(&o.ByoyomiMargin, value)
	case "num_extensions":
		return setInt(&o.NumExtensions, value)
	case "batch_size":
		return setInt(&o.BatchSize, value)
	case "lambda_init":
		return setFloat(&o.LambdaInit, value)
	case "lambda_delta":
		return setFloat(&o.LambdaDelta, value)
	case "lambda_move_start":
		return setInt(&o.LambdaMoveStart, value)
	case "lambda_move_end":
		return setInt(&o.LambdaMoveEnd, value)
	case "cp_init":
		return setFloat(&o.CPInit, value)
	case "cp_base":
		return setFloat(&o.CPBase, value)
	case "virtual_loss":
		return setInt(&o.VirtualLoss, value)
	case "ladder_reduction":
		return setFloat(&o.LadderReduction, value)
	case "use_dirichlet_noise":
		return setBool(&o.UseDirichletNoise, value)
	case "dirichlet_noise":
		return setFloat(&o.DirichletNoise, value)
	case "search_limit":
		return setInt64(&o.SearchLimit, value)
	case "use_full_features":
		return setBool(&o.UseFullFeatures, value)
	case "value_from_black":
		return setBool(&o.ValueFromBlack, value)
	case "resign_value":
		return setFloat(&o.ResignValue, value)
	case "save_log":
		return setBool(&o.SaveLog, value)
	case "working_dir":
		o.WorkingDir = value
	case "model_path":
		o.ModelPath = value
	case "node_size":
		return setInt(&o.NodeSize, value)
	default:
		return fmt.Errorf("unrecognized configuration key %q", key)
	}
	return nil
}

func setInt(dst *int, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", value, err)
	}
	*dst = v
	return nil
}

func setInt64(dst *int64, value string) error {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", value, err)
	}
	*dst = v
	return nil
}

func setFloat(dst *float64, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid float %q: %w", value, err)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean %q: %w", value, err)
	}
	*dst = v
	return nil
}

func parseRule(value string) (board.Rule, error) {
	switch value {
	case "chinese":
		return board.RuleChinese, nil
	case "japanese":
		return board.RuleJapanese, nil
	case "tromp":
		return board.RuleTromp, nil
	default:
		return 0, fmt.Errorf("invalid rule %q: expected chinese, japanese or tromp", value)
	}
}

func parseRepRule(value string) (board.RepetitionRule, error) {
	switch value {
	case "draw":
		return board.RepDraw, nil
	case "superko":
		return board.RepSuperKo, nil
	case "tromp":
		return board.RepTrompTaylor, nil
	default:
		return 0, fmt.Errorf("invalid repetition_rule %q: expected draw, superko or tromp", value)
	}
}
