package eval

import "context"

// HeuristicEvaluator is the "classical evaluation" fallback the engine
// wires in when no trained model is available at startup, the same way
// the teacher's UCI front end falls back to classical (non-NNUE)
// evaluation when its net files aren't found on disk. It returns a
// uniform policy and a neutral value for every request, which keeps the
// rest of the search machinery (EvalCache, Worker batching, the tree)
// fully exercised without depending on an actual inference engine —
// loading and running the real model is explicitly out of scope here.
type HeuristicEvaluator struct {
	numChannels int
}

// NewHeuristicEvaluator builds a fallback Evaluator for a board whose
// feature tensor has numChannels planes (feature.NumChannels).
func NewHeuristicEvaluator(numChannels int) *HeuristicEvaluator {
	return &HeuristicEvaluator{numChannels: numChannels}
}

// Infer satisfies Evaluator: for each flattened tensor in batch it derives
// the per-plane vertex count from the tensor length and numChannels, and
// returns a uniform policy over every vertex plus pass, with Value 0.
func (h *HeuristicEvaluator) Infer(ctx context.Context, batch [][]float32) ([]Result, error) {
	out := make([]Result, len(batch))
	for i, features := range batch {
		n := 0
		if h.numChannels > 0 {
			n = len(features) / h.numChannels
		}
		policy := make([]float32, n+1)
		if len(policy) > 0 {
			w := float32(1) / float32(len(policy))
			for j := range policy {
				policy[j] = w
			}
		}
		out[i] = Result{Policy: policy, Value: 0}
	}
	return out, nil
}
