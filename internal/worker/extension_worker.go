package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	"github.com/brightpath-edu/scheduling-api/pkg/config"
	"github.com/brightpath-edu/scheduling-api/pkg/jobs"
)

const jobTypeExtensionRun = "extension_run"

type extensionService interface {
	RunExtension(ctx context.Context) (*dto.ExtensionRunSummary, error)
}

type runObserver interface {
	ObserveExtensionRun(instances, failures int, duration time.Duration)
}

// ExtensionWorker schedules periodic extension runs and funnels them through
// a single-worker queue so two runs never execute at the same time.
type ExtensionWorker struct {
	service  extensionService
	metrics  runObserver
	queue    *jobs.Queue
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
}

// NewExtensionWorker constructs the worker. Metrics may be nil.
func NewExtensionWorker(service extensionService, metrics runObserver, cfg config.RecurrenceConfig, logger *zap.Logger) *ExtensionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.RunInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	w := &ExtensionWorker{
		service:  service,
		metrics:  metrics,
		interval: interval,
		logger:   logger,
	}
	w.queue = jobs.NewQueue("recurrence-extension", w.handle, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return w
}

// Start launches the queue and the periodic ticker. An initial run is
// enqueued immediately so a restart never delays extension by a full
// interval.
func (w *ExtensionWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.queue.Start(runCtx)
	w.started = true

	if err := w.enqueueRun(); err != nil {
		w.logger.Sugar().Warnw("initial extension run enqueue failed", "error", err)
	}

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := w.enqueueRun(); err != nil {
					w.logger.Sugar().Warnw("extension run enqueue failed", "error", err)
				}
			}
		}
	}()

	w.logger.Sugar().Infow("extension worker started", "interval", w.interval.String())
}

// Stop halts the ticker and drains the queue workers.
func (w *ExtensionWorker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.cancel()
	w.started = false
	w.mu.Unlock()

	w.queue.Stop()
	w.logger.Sugar().Infow("extension worker stopped")
}

// Trigger enqueues an out-of-band extension run.
func (w *ExtensionWorker) Trigger() error {
	return w.enqueueRun()
}

func (w *ExtensionWorker) enqueueRun() error {
	return w.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeExtensionRun,
	})
}

func (w *ExtensionWorker) handle(ctx context.Context, job jobs.Job) error {
	summary, err := w.service.RunExtension(ctx)
	if err != nil {
		return fmt.Errorf("extension run %s: %w", job.ID, err)
	}

	if w.metrics != nil {
		w.metrics.ObserveExtensionRun(summary.TotalInstancesGenerated, summary.GroupsFailed, summary.FinishedAt.Sub(summary.StartedAt))
	}
	return nil
}
