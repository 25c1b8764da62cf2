package eval

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Evaluator runs neural-network inference over a batch of flattened NN
// input tensors, returning one Result per input in the same order.
type Evaluator interface {
	Infer(ctx context.Context, batch [][]float32) ([]Result, error)
}

type request struct {
	features []float32
	result   chan<- evalOutcome
}

type evalOutcome struct {
	r   Result
	err error
}

// RouteQueue is the buffered hand-off between MCTS leaves submitting
// features via Evaluate and the batch collector draining them in Run. It
// exists as its own type (rather than a bare channel field) so the queueing
// discipline — bounded capacity, context-aware push/drain — has one place
// to live and document, per spec.md section 4.6's batching queue.
type RouteQueue struct {
	ch chan *request
}

func newRouteQueue(capacity int) *RouteQueue {
	return &RouteQueue{ch: make(chan *request, capacity)}
}

// push enqueues req, blocking until there is room or ctx is done.
func (q *RouteQueue) push(ctx context.Context, req *request) error {
	select {
	case q.ch <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Worker batches concurrent evaluation requests from MCTS leaves into single
// Infer calls, per spec.md section 4.6: wait up to waitTime for batchSize
// entries to arrive, time out to whatever is pending if at least one
// request is queued, and self-tune waitTime based on whether the timeout
// was forced. golang.org/x/sync/singleflight collapses duplicate concurrent
// requests for the same position (two tree branches transposing into the
// same leaf before the cache has been populated) into one Infer call.
// golang.org/x/sync/semaphore bounds how many batches can be in flight to
// Evaluator.Infer at once, sized to the number of GPUs Infer can actually
// run on concurrently (spec.md section 4.6's "one inference stream per
// GPU"): Run keeps draining RouteQueue into batches and dispatching them
// to their own goroutine as soon as a GPU slot frees up, instead of
// serializing batch collection behind each Infer call.
type Worker struct {
	evalr     Evaluator
	batchSize int

	mu       sync.Mutex
	waitTime time.Duration
	minWait  time.Duration
	maxWait  time.Duration

	queue *RouteQueue
	gpus  *semaphore.Weighted
	sf    singleflight.Group
}

// NewWorker builds a Worker that batches up to batchSize requests, starting
// with initialWait between minWait and maxWait as its self-tuned timeout,
// and runs at most numGPUs batches through Infer concurrently. numGPUs < 1
// is treated as 1.
func NewWorker(evalr Evaluator, batchSize int, initialWait, minWait, maxWait time.Duration, numGPUs int) *Worker {
	if numGPUs < 1 {
		numGPUs = 1
	}
	return &Worker{
		evalr:     evalr,
		batchSize: batchSize,
		waitTime:  initialWait,
		minWait:   minWait,
		maxWait:   maxWait,
		queue:     newRouteQueue(batchSize * 4),
		gpus:      semaphore.NewWeighted(int64(numGPUs)),
	}
}

// Run drains RouteQueue into batches and dispatches each to Infer on its
// own goroutine, bounded by the GPU semaphore, until ctx is canceled. Call
// Run once per Worker: it already dispatches as many concurrent batches as
// the semaphore allows.
func (w *Worker) Run(ctx context.Context) error {
	for {
		batch, err := w.collectBatch(ctx)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}
		if err := w.gpus.Acquire(ctx, 1); err != nil {
			return err
		}
		go func(batch []*request) {
			defer w.gpus.Release(1)
			w.infer(ctx, batch)
		}(batch)
	}
}

func (w *Worker) collectBatch(ctx context.Context) ([]*request, error) {
	var batch []*request
	wait := w.currentWait()
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case req := <-w.queue.ch:
			batch = append(batch, req)
			if len(batch) >= w.batchSize {
				w.recordFullBatch()
				return batch, nil
			}
		case <-timer.C:
			if len(batch) > 0 {
				w.recordForcedTimeout()
			}
			return batch, nil
		}
	}
}

func (w *Worker) infer(ctx context.Context, batch []*request) {
	features := make([][]float32, len(batch))
	for i, req := range batch {
		features[i] = req.features
	}
	results, err := w.evalr.Infer(ctx, features)
	for i, req := range batch {
		var out evalOutcome
		if err != nil {
			out.err = err
		} else if i < len(results) {
			out.r = results[i]
		}
		req.result <- out
	}
}

// Evaluate submits features for inference and blocks until the batch it
// lands in has been run. Concurrent calls with identical features collapse
// into a single Infer invocation via singleflight.
func (w *Worker) Evaluate(ctx context.Context, features []float32) (Result, error) {
	key := featuresKey(features)
	v, err, _ := w.sf.Do(key, func() (any, error) {
		resCh := make(chan evalOutcome, 1)
		if err := w.queue.push(ctx, &request{features: features, result: resCh}); err != nil {
			return Result{}, err
		}
		select {
		case out := <-resCh:
			return out.r, out.err
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func featuresKey(features []float32) string {
	h := fnv.New64a()
	var buf [4]byte
	for _, f := range features {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		h.Write(buf[:])
	}
	return string(h.Sum(nil))
}

func (w *Worker) currentWait() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.waitTime
}

// recordForcedTimeout shrinks waitTime: a timeout with a partial batch means
// the queue is running dry, so waiting less next time reduces latency.
func (w *Worker) recordForcedTimeout() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waitTime = w.waitTime * 9 / 10
	if w.waitTime < w.minWait {
		w.waitTime = w.minWait
	}
}

// recordFullBatch grows waitTime back toward maxWait: the queue kept up
// with a full batch, so there's slack to wait a little longer and improve
// GPU utilization on the next round.
func (w *Worker) recordFullBatch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waitTime = w.waitTime * 11 / 10
	if w.waitTime > w.maxWait {
		w.waitTime = w.maxWait
	}
}
