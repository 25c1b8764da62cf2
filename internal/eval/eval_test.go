package eval

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c, err := NewCache(1024)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	want := Result{Policy: []float32{0.1, 0.9}, Value: 0.5}
	c.Set(42, want)
	c.Wait()

	got, ok := c.Get(42)
	if !ok {
		t.Fatal("expected a hit for a just-inserted key")
	}
	if got.Value != want.Value || len(got.Policy) != len(want.Policy) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if _, ok := c.Get(43); ok {
		t.Fatal("expected a miss for an absent key")
	}
}

func TestCacheRecordsWarmEntries(t *testing.T) {
	c, err := NewCache(1024)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	c.Set(9, Result{Policy: []float32{0.2, 0.8}, Value: -0.5})
	warm := c.WarmEntries()
	got, ok := warm[9]
	if !ok {
		t.Fatal("Set did not record a warm entry")
	}
	if got[0] != 0.8 || got[1] != -0.5 {
		t.Fatalf("warm entry = %v, want {0.8, -0.5} (pass prob, value)", got)
	}

	// The returned map is a copy; mutating it must not leak back.
	warm[9] = [2]float32{0, 0}
	if c.WarmEntries()[9][0] != 0.8 {
		t.Fatal("WarmEntries exposed internal state")
	}
}

func TestCacheProbeFindsSymmetricEntry(t *testing.T) {
	c, err := NewCache(1024)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	c.Set(777, Result{Policy: []float32{1}, Value: -0.25})
	c.Wait()

	var hashes [8]uint64
	for i := range hashes {
		hashes[i] = uint64(1000 + i)
	}
	hashes[5] = 777

	r, idx, ok := c.Probe(hashes)
	if !ok {
		t.Fatal("expected a probe hit via the symmetric hash")
	}
	if idx != 5 {
		t.Fatalf("probe matched index %d, want 5", idx)
	}
	if r.Value != -0.25 {
		t.Fatalf("probe value = %v, want -0.25", r.Value)
	}
}

// recordingEvaluator counts Infer calls and batch sizes, returning a value
// derived from each input so callers can check routing.
type recordingEvaluator struct {
	mu      sync.Mutex
	batches []int
	calls   atomic.Int64
}

func (r *recordingEvaluator) Infer(ctx context.Context, batch [][]float32) ([]Result, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.batches = append(r.batches, len(batch))
	r.mu.Unlock()
	out := make([]Result, len(batch))
	for i, f := range batch {
		v := float32(0)
		if len(f) > 0 {
			v = f[0]
		}
		out[i] = Result{Policy: []float32{v}, Value: v}
	}
	return out, nil
}

func TestWorkerEvaluateRoutesResultBack(t *testing.T) {
	ev := &recordingEvaluator{}
	w := NewWorker(ev, 4, time.Millisecond, time.Millisecond, 10*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	res, err := w.Evaluate(ctx, []float32{0.75})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Value != 0.75 {
		t.Fatalf("Evaluate routed the wrong result: %v", res.Value)
	}
}

func TestWorkerBatchesConcurrentRequests(t *testing.T) {
	ev := &recordingEvaluator{}
	w := NewWorker(ev, 8, 20*time.Millisecond, time.Millisecond, 50*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Enqueue every request before the drain loop starts, so the first
	// collected batch can carry all of them.
	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := w.Evaluate(ctx, []float32{float32(i) / n}); err != nil {
				t.Errorf("Evaluate %d: %v", i, err)
			}
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	go w.Run(ctx)
	wg.Wait()

	if calls := ev.calls.Load(); calls != 1 {
		t.Fatalf("expected the pre-queued requests to drain as one batch, got %d Infer calls", calls)
	}
}

func TestWorkerSingleflightCollapsesIdenticalRequests(t *testing.T) {
	ev := &recordingEvaluator{}
	w := NewWorker(ev, 4, 5*time.Millisecond, time.Millisecond, 20*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	same := []float32{0.5, 0.5}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.Evaluate(ctx, same); err != nil {
				t.Errorf("Evaluate: %v", err)
			}
		}()
	}
	wg.Wait()

	ev.mu.Lock()
	total := 0
	for _, b := range ev.batches {
		total += b
	}
	ev.mu.Unlock()
	if total >= 4 {
		t.Fatalf("singleflight should collapse identical requests: %d inference entries for 4 callers", total)
	}
}

func TestWorkerEvaluateHonorsCancellation(t *testing.T) {
	ev := &recordingEvaluator{}
	w := NewWorker(ev, 4, time.Millisecond, time.Millisecond, 10*time.Millisecond, 1)
	// No Run loop: the queue never drains, so Evaluate must fail via ctx.

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := w.Evaluate(ctx, []float32{1}); err == nil {
		t.Fatal("Evaluate without a running worker should fail on ctx timeout")
	}
}

func TestHeuristicEvaluatorUniformPolicy(t *testing.T) {
	h := NewHeuristicEvaluator(52)
	out, err := h.Infer(context.Background(), [][]float32{make([]float32, 52*81)})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one result, got %d", len(out))
	}
	if len(out[0].Policy) != 82 {
		t.Fatalf("policy length = %d, want 81+pass", len(out[0].Policy))
	}
	var sum float32
	for _, p := range out[0].Policy {
		sum += p
	}
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("uniform policy should sum to ~1, got %v", sum)
	}
	if out[0].Value != 0 {
		t.Fatalf("heuristic value = %v, want 0", out[0].Value)
	}
}
