package workflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"venue-enrichment/internal/models"
	"venue-enrichment/internal/trust"
	"venue-enrichment/pkg/events"
	"venue-enrichment/pkg/logging"
)

// Job is one queued enrichment run. Priority comes from the submitter's
// trust assessment and is recorded for observability.
type Job struct {
	Run      *models.WorkflowRun
	Priority int
}

// Stats tracks engine-level counters.
type Stats struct {
	TotalRuns     int64
	CompletedRuns int64
	Published     int64
	NeedsReview   int64
	Rejected      int64
	Failed        int64
	AverageTimeMs int64
	StartTime     time.Time
	LastActivity  time.Time
	WorkerCount   int
	QueueDepth    int64
	TotalTokens   int
	TotalCostUSD  float64
}

// Deps are the engine's collaborators, wired explicitly by the caller.
// Store and Events may be nil; the engine then runs without persistence.
type Deps struct {
	Mapper   PlaceMapper
	Inferrer ActivityInferrer
	Embedder Embedder
	Scorer   QualityScorer
	Index    DuplicateIndex
	Store    RunStore
	Events   events.EventStore
	Trust    *trust.Calculator
	Logger   *logging.Logger
}

// Engine processes submissions concurrently through the enrichment state
// machine with rate limiting and graceful shutdown.
type Engine struct {
	mapper   PlaceMapper
	inferrer ActivityInferrer
	embedder Embedder
	scorer   QualityScorer
	index    DuplicateIndex
	store    RunStore
	events   events.EventStore
	trust    *trust.Calculator
	log      *logging.Logger

	cfg EngineConfig

	providerLimit *RateLimiter
	modelLimit    *RateLimiter

	jobQueue chan Job
	results  chan *models.WorkflowRun
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	procDone chan struct{}

	stats   Stats
	statsMu sync.RWMutex

	// snapshots holds race-free copies of runs for external polling,
	// refreshed on every stage transition.
	snapshots  map[string]models.WorkflowRun
	snapshotMu sync.RWMutex

	// submitMu orders Submit against Stop: submitters hold the read side
	// while sending, Stop holds the write side while closing the queue, so
	// no send can land on a closed channel during the drain window.
	submitMu     sync.RWMutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewEngine validates the configuration and wires the engine.
func NewEngine(deps Deps, cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	log := deps.Logger
	if log == nil {
		log = logging.NewNop()
	}
	tc := deps.Trust
	if tc == nil {
		tc = trust.NewDefault()
	}

	return &Engine{
		mapper:        deps.Mapper,
		inferrer:      deps.Inferrer,
		embedder:      deps.Embedder,
		scorer:        deps.Scorer,
		index:         deps.Index,
		store:         deps.Store,
		events:        deps.Events,
		trust:         tc,
		log:           log.WithComponent("workflow"),
		cfg:           cfg,
		providerLimit: NewRateLimiter(cfg.ProviderRPS, cfg.ProviderBurst),
		modelLimit:    NewRateLimiter(cfg.ModelRPS, cfg.ModelBurst),
		jobQueue:      make(chan Job, cfg.QueueSize),
		results:       make(chan *models.WorkflowRun, cfg.QueueSize),
		ctx:           ctx,
		cancel:        cancel,
		snapshots:     make(map[string]models.WorkflowRun),
		procDone:      make(chan struct{}),
		shutdown:      make(chan struct{}),
		stats: Stats{
			StartTime:    time.Now(),
			LastActivity: time.Now(),
			WorkerCount:  cfg.WorkerCount,
		},
	}, nil
}

// Start launches workers, the result processor and the rate limiters.
func (e *Engine) Start() {
	e.log.Info("starting engine", logging.Int("workers", e.cfg.WorkerCount))

	e.providerLimit.Start()
	e.modelLimit.Start()

	for i := 0; i < e.cfg.WorkerCount; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}

	go e.resultProcessor()
}

// Stop drains the engine gracefully, failing with an error if workers do
// not finish within the timeout.
func (e *Engine) Stop(timeout time.Duration) error {
	var err error

	e.shutdownOnce.Do(func() {
		e.log.Info("shutting down engine")

		e.submitMu.Lock()
		close(e.shutdown)
		close(e.jobQueue)
		e.submitMu.Unlock()

		// Workers drain the closed queue, then the result channel is closed
		// and the result processor finishes whatever is still in flight.
		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(e.results)
			<-e.procDone
			close(done)
		}()

		select {
		case <-done:
			e.log.Info("all workers stopped")
		case <-time.After(timeout):
			err = fmt.Errorf("shutdown timeout exceeded")
			e.log.Warn("shutdown timeout reached")
		}

		e.cancel()
		e.providerLimit.Stop()
		e.modelLimit.Stop()
	})

	return err
}

// Submit queues a submission for asynchronous processing and returns the
// run ID for polling. The vendor history feeds queue priority only.
func (e *Engine) Submit(sub models.VenueSubmission, history trust.VendorHistory) (string, error) {
	run := models.NewWorkflowRun(uuid.NewString(), sub, time.Now())
	assessment := e.trust.Assess(history)

	run.Priority = assessment.PriorityBonus
	job := Job{Run: run, Priority: assessment.PriorityBonus}

	e.submitMu.RLock()
	select {
	case <-e.shutdown:
		e.submitMu.RUnlock()
		return "", fmt.Errorf("engine is shutting down")
	default:
	}

	select {
	case e.jobQueue <- job:
		e.submitMu.RUnlock()
	default:
		e.submitMu.RUnlock()
		return "", fmt.Errorf("job queue is full")
	}

	atomic.AddInt64(&e.stats.QueueDepth, 1)
	e.statsMu.Lock()
	e.stats.TotalRuns++
	e.statsMu.Unlock()

	e.storeSnapshot(run)
	e.log.Info("submission queued",
		logging.String("run_id", run.ID),
		logging.String("venue", sub.Name),
		logging.Int("priority", job.Priority),
		logging.String("trust", assessment.Reason))
	return run.ID, nil
}

// ProcessSubmission runs one submission synchronously through the pipeline.
// Persistence still happens; stats are updated like queued runs.
func (e *Engine) ProcessSubmission(ctx context.Context, sub models.VenueSubmission) (*models.WorkflowRun, error) {
	run := models.NewWorkflowRun(uuid.NewString(), sub, time.Now())

	e.statsMu.Lock()
	e.stats.TotalRuns++
	e.statsMu.Unlock()

	e.storeSnapshot(run)
	e.runPipeline(ctx, run)
	e.finishRun(run)
	return run, nil
}

// GetRun returns the latest snapshot of a run, if the engine knows it.
func (e *Engine) GetRun(id string) (models.WorkflowRun, bool) {
	e.snapshotMu.RLock()
	defer e.snapshotMu.RUnlock()
	run, ok := e.snapshots[id]
	return run, ok
}

// GetStats returns current engine counters.
func (e *Engine) GetStats() Stats {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()

	stats := e.stats
	stats.QueueDepth = atomic.LoadInt64(&e.stats.QueueDepth)
	if cr, ok := e.inferrer.(CostReporter); ok {
		tokens, _, cost, _ := cr.GetCostStats()
		stats.TotalTokens = tokens
		stats.TotalCostUSD = cost
	}
	return stats
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()

	log := e.log.WithComponent("worker")
	log.Debug("worker started", logging.Int("worker", id))
	defer log.Debug("worker stopped", logging.Int("worker", id))

	for {
		select {
		case job, ok := <-e.jobQueue:
			if !ok {
				return
			}
			atomic.AddInt64(&e.stats.QueueDepth, -1)
			e.runPipeline(e.ctx, job.Run)

			select {
			case e.results <- job.Run:
			case <-e.ctx.Done():
				return
			}

		case <-e.ctx.Done():
			return
		}
	}
}

func (e *Engine) resultProcessor() {
	defer close(e.procDone)

	for {
		select {
		case run, ok := <-e.results:
			if !ok {
				return
			}
			e.finishRun(run)

		case <-e.ctx.Done():
			return
		}
	}
}

// finishRun updates counters and hands the terminal record to the
// persistence collaborator.
func (e *Engine) finishRun(run *models.WorkflowRun) {
	elapsed := int64(0)
	if run.FinishedAt != nil {
		elapsed = run.FinishedAt.Sub(run.StartedAt).Milliseconds()
	}

	e.statsMu.Lock()
	e.stats.CompletedRuns++
	e.stats.LastActivity = time.Now()
	if e.stats.CompletedRuns == 1 {
		e.stats.AverageTimeMs = elapsed
	} else {
		e.stats.AverageTimeMs = (e.stats.AverageTimeMs + elapsed) / 2
	}
	switch run.Outcome {
	case models.OutcomePublished:
		e.stats.Published++
	case models.OutcomeNeedsReview:
		e.stats.NeedsReview++
	case models.OutcomeRejected:
		e.stats.Rejected++
	case models.OutcomeFailed:
		e.stats.Failed++
	}
	e.statsMu.Unlock()

	e.storeSnapshot(run)

	if e.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := e.store.SaveRun(ctx, run); err != nil {
			e.log.Error("failed to persist run", err, logging.String("run_id", run.ID))
		}
		cancel()
	}
}

// storeSnapshot copies the run for external polling. Attempts, Candidates
// and Transitions are cloned; the worker keeps mutating the live run while
// pollers iterate the snapshot.
func (e *Engine) storeSnapshot(run *models.WorkflowRun) {
	snap := *run
	if run.Attempts != nil {
		attempts := make(map[models.Stage]int, len(run.Attempts))
		for stage, n := range run.Attempts {
			attempts[stage] = n
		}
		snap.Attempts = attempts
	}
	snap.Candidates = append([]models.ActivityCandidate(nil), run.Candidates...)
	snap.Transitions = append([]models.Transition(nil), run.Transitions...)

	e.snapshotMu.Lock()
	e.snapshots[run.ID] = snap
	e.snapshotMu.Unlock()
}

func (e *Engine) emit(ev events.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Append(context.Background(), ev); err != nil {
		e.log.Warn("failed to append event", logging.String("type", ev.Type()))
	}
}

func (e *Engine) base(run *models.WorkflowRun) events.Base {
	return events.Base{Ts: time.Now(), RID: run.ID}
}
