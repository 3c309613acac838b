package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"swingcoach/internal/logging"
	"swingcoach/internal/metrics"
)

var (
	// ErrRunInProgress is returned when a swing already has a queued or
	// running pipeline run.
	ErrRunInProgress = errors.New("pipeline run already in progress")
	// ErrRunnerStopped is returned by Submit after Stop.
	ErrRunnerStopped = errors.New("pipeline runner stopped")
)

// Runner executes Coordinator runs in background goroutines, at most
// maxConcurrent at a time.
type Runner struct {
	coordinator *Coordinator
	sem         *semaphore.Weighted
	capacity    int
	runTimeout  time.Duration
	metrics     *metrics.Manager
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
	stopped  bool
	lastErr  error
}

// RunnerStatus is a point-in-time view of the runner.
type RunnerStatus struct {
	Capacity  int      `json:"capacity"`
	InFlight  []string `json:"inFlight"`
	Stopped   bool     `json:"stopped"`
	LastError string   `json:"lastError,omitempty"`
}

// NewRunner constructs a Runner. A non-positive runTimeout disables the
// per-run deadline.
func NewRunner(coordinator *Coordinator, maxConcurrent int, runTimeout time.Duration, mgr *metrics.Manager, logger *slog.Logger) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		coordinator: coordinator,
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
		capacity:    maxConcurrent,
		runTimeout:  runTimeout,
		metrics:     mgr,
		logger:      logging.NewComponentLogger(logger, "runner"),
		ctx:         ctx,
		cancel:      cancel,
		inFlight:    make(map[string]struct{}),
	}
}

// Submit schedules a run for the swing and returns immediately.
func (r *Runner) Submit(swingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrRunnerStopped
	}
	if _, busy := r.inFlight[swingID]; busy {
		return ErrRunInProgress
	}
	r.inFlight[swingID] = struct{}{}
	r.wg.Add(1)
	go r.execute(swingID)
	return nil
}

// Running reports whether the swing has a queued or running run.
func (r *Runner) Running(swingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inFlight[swingID]
	return busy
}

// Wait blocks until every submitted run has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Stop cancels in-flight runs, waits for them to return and rejects further
// submissions. Swings keep whatever status was last written.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}

// Status reports the runner's current load.
func (r *Runner) Status() RunnerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := RunnerStatus{
		Capacity: r.capacity,
		InFlight: make([]string, 0, len(r.inFlight)),
		Stopped:  r.stopped,
	}
	for id := range r.inFlight {
		status.InFlight = append(status.InFlight, id)
	}
	slices.Sort(status.InFlight)
	if r.lastErr != nil {
		status.LastError = r.lastErr.Error()
	}
	return status
}

func (r *Runner) execute(swingID string) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.inFlight, swingID)
		r.mu.Unlock()
	}()

	logger := r.logger.With(logging.String(logging.FieldSwingID, swingID))
	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		logger.Debug("run dropped before start", logging.Error(err))
		return
	}
	defer r.sem.Release(1)

	ctx := r.ctx
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	r.metrics.RunStarted()
	status, err := r.coordinator.Run(ctx, swingID)
	r.metrics.RunFinished(string(status))
	if err != nil {
		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		if errors.Is(err, context.DeadlineExceeded) && r.ctx.Err() == nil {
			final := r.coordinator.expire(swingID, status, r.runTimeout)
			logging.WarnWithContext(logger, "pipeline run exceeded its deadline", "run_timeout",
				logging.String(logging.FieldErrorHint, "raise workflow.run_timeout_seconds or reprocess the swing"),
				logging.String(logging.FieldImpact, "swing left in "+string(final)),
				logging.Duration("run_timeout", r.runTimeout),
			)
		}
	}
}
