// Package jobs runs pattern generations on a bounded pool of workers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/logging"
	"github.com/rmitchellscott/diamondperls/internal/pipeline"
	"github.com/rmitchellscott/diamondperls/internal/storage"
)

var (
	// ErrQueueFull is returned when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrNotRunning is returned when submitting to a stopped pool.
	ErrNotRunning = errors.New("worker pool is not running")
	// ErrUnknownJob is returned for ids the pool does not track.
	ErrUnknownJob = errors.New("unknown job")
)

// Runner executes one pattern run. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, src pipeline.Source, store storage.Backend, prefix string) (*pipeline.Result, error)
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Done reports whether the job reached a final state.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job represents a job to be processed by the worker pool
type Job struct {
	ID     uuid.UUID
	Source pipeline.Source
}

// JobResult represents the result of a job
type JobResult struct {
	JobID      uuid.UUID
	Result     *pipeline.Result
	Error      error
	DurationMs int
}

// State is a snapshot of a job.
type State struct {
	ID          uuid.UUID        `json:"id"`
	Status      Status           `json:"status"`
	Source      string           `json:"source"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   apperr.Kind      `json:"-"`
	Result      *pipeline.Result `json:"result,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
	DurationMs  int              `json:"duration_ms,omitempty"`
	Err         error            `json:"-"`
}

type tracked struct {
	state State
	done  chan struct{}
}

// Metrics tracks worker pool performance
type Metrics struct {
	TotalJobs     int64 `json:"total_jobs"`
	SuccessJobs   int64 `json:"success_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	ActiveWorkers int32 `json:"active_workers"`
	BusyWorkers   int32 `json:"busy_workers"`
	QueueLength   int32 `json:"queue_length"`
	QueueCapacity int   `json:"queue_capacity"`
}

// Pool manages a pool of workers processing pattern jobs via channels
type Pool struct {
	workerCount int
	runner      Runner
	store       storage.Backend
	jobChan     chan Job
	resultChan  chan JobResult
	quitChan    chan struct{}
	wg          sync.WaitGroup
	resultWG    sync.WaitGroup
	metrics     *Metrics

	// Finished jobs are forgotten after retention.
	retention     time.Duration
	cleanupTicker *time.Ticker

	jobsMu sync.RWMutex
	jobs   map[uuid.UUID]*tracked

	mu      sync.RWMutex
	running bool
	ctx     context.Context
}

// NewPool creates a worker pool. Outputs of job id land below the key
// prefix id in store.
func NewPool(runner Runner, store storage.Backend, workerCount, queueSize int) *Pool {
	if workerCount <= 0 {
		workerCount = 2
	}
	if queueSize <= 0 {
		queueSize = 16
	}

	return &Pool{
		workerCount: workerCount,
		runner:      runner,
		store:       store,
		jobChan:     make(chan Job, queueSize),
		resultChan:  make(chan JobResult, queueSize),
		quitChan:    make(chan struct{}),
		metrics:     &Metrics{QueueCapacity: queueSize},
		retention:   time.Hour,
		jobs:        make(map[uuid.UUID]*tracked),
	}
}

// SetRetention changes how long finished job states are kept.
func (p *Pool) SetRetention(d time.Duration) {
	p.retention = d
}

// Start initializes and starts the worker pool
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	logging.InfoWithComponent(logging.ComponentJobs, "Starting worker pool", "workers", p.workerCount, "queue_size", cap(p.jobChan))

	p.running = true
	p.ctx = ctx
	p.cleanupTicker = time.NewTicker(5 * time.Minute)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.resultWG.Add(2)
	go p.processResults()
	go p.cleanupRoutine()

	return nil
}

// Stop stops accepting jobs, lets queued jobs finish and waits for the
// workers to exit.
func (p *Pool) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	logging.InfoWithComponent(logging.ComponentJobs, "Stopping worker pool", "queued", len(p.jobChan))
	p.running = false
	p.cleanupTicker.Stop()
	close(p.jobChan)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.quitChan)
	close(p.resultChan)
	p.resultWG.Wait()

	logging.InfoWithComponent(logging.ComponentJobs, "Worker pool stopped")
	return nil
}

// Submit queues src and returns the job id. It never blocks.
func (p *Pool) Submit(src pipeline.Source) (uuid.UUID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return uuid.Nil, ErrNotRunning
	}

	job := Job{ID: uuid.New(), Source: src}
	t := &tracked{
		state: State{ID: job.ID, Status: StatusQueued, Source: src.Name, SubmittedAt: time.Now()},
		done:  make(chan struct{}),
	}

	p.jobsMu.Lock()
	p.jobs[job.ID] = t
	p.jobsMu.Unlock()

	select {
	case p.jobChan <- job:
		atomic.AddInt32(&p.metrics.QueueLength, 1)
		logging.DebugWithComponent(logging.ComponentJobs, "Job queued", "job_id", job.ID, "source", src.Name)
		return job.ID, nil
	default:
		p.jobsMu.Lock()
		delete(p.jobs, job.ID)
		p.jobsMu.Unlock()
		logging.WarnWithComponent(logging.ComponentJobs, "Job channel full, rejecting job", "source", src.Name)
		return uuid.Nil, ErrQueueFull
	}
}

// Get returns a snapshot of job id.
func (p *Pool) Get(id uuid.UUID) (State, bool) {
	p.jobsMu.RLock()
	defer p.jobsMu.RUnlock()

	t, ok := p.jobs[id]
	if !ok {
		return State{}, false
	}
	return t.state, true
}

// Wait blocks until job id finishes or ctx is done.
func (p *Pool) Wait(ctx context.Context, id uuid.UUID) (State, error) {
	p.jobsMu.RLock()
	t, ok := p.jobs[id]
	p.jobsMu.RUnlock()
	if !ok {
		return State{}, ErrUnknownJob
	}

	select {
	case <-ctx.Done():
		s, _ := p.Get(id)
		return s, ctx.Err()
	case <-t.done:
		s, _ := p.Get(id)
		return s, nil
	}
}

// GetMetrics returns current worker pool metrics
func (p *Pool) GetMetrics() Metrics {
	return Metrics{
		TotalJobs:     atomic.LoadInt64(&p.metrics.TotalJobs),
		SuccessJobs:   atomic.LoadInt64(&p.metrics.SuccessJobs),
		FailedJobs:    atomic.LoadInt64(&p.metrics.FailedJobs),
		ActiveWorkers: atomic.LoadInt32(&p.metrics.ActiveWorkers),
		BusyWorkers:   atomic.LoadInt32(&p.metrics.BusyWorkers),
		QueueLength:   int32(len(p.jobChan)),
		QueueCapacity: p.metrics.QueueCapacity,
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logging.DebugWithComponent(logging.ComponentJobs, "Starting worker", "worker_id", id)
	atomic.AddInt32(&p.metrics.ActiveWorkers, 1)
	defer atomic.AddInt32(&p.metrics.ActiveWorkers, -1)

	for job := range p.jobChan {
		p.resultChan <- p.processJob(id, job)
	}
	logging.DebugWithComponent(logging.ComponentJobs, "Job channel closed", "worker_id", id)
}

// processJob runs a single job and recovers from panics in the run.
func (p *Pool) processJob(workerID int, job Job) (result JobResult) {
	atomic.AddInt32(&p.metrics.BusyWorkers, 1)
	defer atomic.AddInt32(&p.metrics.BusyWorkers, -1)
	atomic.AddInt64(&p.metrics.TotalJobs, 1)
	atomic.AddInt32(&p.metrics.QueueLength, -1)

	now := time.Now()
	p.update(job.ID, func(s *State) {
		s.Status = StatusProcessing
		s.StartedAt = &now
	})
	logging.DebugWithComponent(logging.ComponentJobs, "Processing job", "worker_id", workerID, "job_id", job.ID, "source", job.Source.Name)

	result.JobID = job.ID
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("pattern run panicked: %v", r)
		}
		result.DurationMs = int(time.Since(now).Milliseconds())
	}()

	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	result.Result, result.Error = p.runner.Run(ctx, job.Source, p.store, job.ID.String())
	return result
}

func (p *Pool) processResults() {
	defer p.resultWG.Done()

	for result := range p.resultChan {
		p.handleResult(result)
	}
}

func (p *Pool) handleResult(result JobResult) {
	finished := time.Now()
	var done chan struct{}

	p.jobsMu.Lock()
	if t, ok := p.jobs[result.JobID]; ok {
		t.state.FinishedAt = &finished
		t.state.DurationMs = result.DurationMs
		if result.Error != nil {
			t.state.Status = StatusFailed
			t.state.Error = result.Error.Error()
			t.state.ErrorKind = apperr.KindOf(result.Error)
			t.state.Err = result.Error
		} else {
			t.state.Status = StatusCompleted
			if result.Result != nil {
				// States are retained; the pattern bitmap is not.
				res := *result.Result
				res.Pattern = nil
				t.state.Result = &res
			}
		}
		done = t.done
	}
	p.jobsMu.Unlock()

	if result.Error != nil {
		atomic.AddInt64(&p.metrics.FailedJobs, 1)
		logging.ErrorWithComponent(logging.ComponentJobs, "Pattern job failed", "job_id", result.JobID, "error", result.Error)
	} else {
		atomic.AddInt64(&p.metrics.SuccessJobs, 1)
		logging.InfoWithComponent(logging.ComponentJobs, "Pattern job completed",
			"job_id", result.JobID, "duration_s", float64(result.DurationMs)/1000.0)
	}

	if done != nil {
		close(done)
	}
}

func (p *Pool) update(id uuid.UUID, fn func(*State)) {
	p.jobsMu.Lock()
	defer p.jobsMu.Unlock()
	if t, ok := p.jobs[id]; ok {
		fn(&t.state)
	}
}

// Forget drops finished job states older than maxAge and returns how many
// were removed.
func (p *Pool) Forget(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	p.jobsMu.Lock()
	defer p.jobsMu.Unlock()

	removed := 0
	for id, t := range p.jobs {
		if t.state.Status.Done() && t.state.FinishedAt != nil && t.state.FinishedAt.Before(cutoff) {
			delete(p.jobs, id)
			removed++
		}
	}
	return removed
}

func (p *Pool) cleanupRoutine() {
	defer p.resultWG.Done()

	for {
		select {
		case <-p.quitChan:
			return
		case <-p.cleanupTicker.C:
			if n := p.Forget(p.retention); n > 0 {
				logging.DebugWithComponent(logging.ComponentJobs, "Forgot finished jobs", "count", n)
			}
		}
	}
}
