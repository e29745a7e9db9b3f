package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/shared"
)

// Handler executes one task of a registered kind
type Handler func(ctx context.Context, t *shared.Task) error

// ProcessorConfig holds configuration for the task processor
type ProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultProcessorConfig returns default configuration
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
}

// Processor polls the task table and dispatches claimed tasks to their
// registered handlers. When a completed task declares a follow-up kind, its
// continuation is enqueued in the same pass, which is how category creation
// chains into the deferred product sync apply.
type Processor struct {
	repo     shared.TaskRepository
	handlers map[string]Handler
	config   ProcessorConfig
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor creates a new task processor
func NewProcessor(repo shared.TaskRepository, config ProcessorConfig, logger *zap.Logger) *Processor {
	return &Processor{
		repo:     repo,
		handlers: make(map[string]Handler),
		config:   config,
		logger:   logger,
	}
}

// Register binds a handler to a task kind. Registering the same kind twice
// replaces the previous handler.
func (p *Processor) Register(kind string, handler Handler) {
	p.handlers[kind] = handler
}

// Start starts the background processing
func (p *Processor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("task processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the processor
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("task processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// processLoop is the main processing loop
func (p *Processor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch processes one batch of pending and retryable tasks
func (p *Processor) ProcessBatch(ctx context.Context) {
	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending tasks", zap.Error(err))
		return
	}
	if len(pending) > 0 {
		p.processTasks(ctx, pending)
	}

	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable tasks", zap.Error(err))
		return
	}
	if len(retryable) > 0 {
		p.processTasks(ctx, retryable)
	}
}

// processTasks claims and runs a slice of tasks
func (p *Processor) processTasks(ctx context.Context, tasks []*shared.Task) {
	ids := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to mark tasks as processing", zap.Error(err))
		return
	}

	for _, t := range claimed {
		p.processTask(ctx, t)
	}
}

// processTask runs a single claimed task
func (p *Processor) processTask(ctx context.Context, t *shared.Task) {
	handler, ok := p.handlers[t.Kind]
	if !ok {
		p.fail(ctx, t, fmt.Errorf("no handler registered for task kind %q", t.Kind))
		return
	}

	if err := p.runHandler(ctx, handler, t); err != nil {
		p.fail(ctx, t, err)
		return
	}

	t.MarkCompleted()
	if err := p.repo.Update(ctx, t); err != nil {
		p.logger.Error("failed to mark task as completed",
			zap.String("task_id", t.ID.String()),
			zap.Error(err),
		)
		return
	}

	if next := t.Continuation(); next != nil {
		if err := p.repo.Save(ctx, next); err != nil {
			p.logger.Error("failed to enqueue continuation task",
				zap.String("task_id", t.ID.String()),
				zap.String("next_kind", next.Kind),
				zap.Error(err),
			)
			return
		}
		p.logger.Debug("continuation task enqueued",
			zap.String("task_id", t.ID.String()),
			zap.String("next_kind", next.Kind),
		)
	}

	p.logger.Debug("task processed successfully",
		zap.String("task_id", t.ID.String()),
		zap.String("kind", t.Kind),
	)
}

// runHandler isolates handler panics so a bad payload cannot take down the
// whole processor.
func (p *Processor) runHandler(ctx context.Context, handler Handler, t *shared.Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in task handler: %v", rec)
		}
	}()
	return handler(ctx, t)
}

// fail records a handler failure and schedules the retry
func (p *Processor) fail(ctx context.Context, t *shared.Task, cause error) {
	p.logger.Error("task handler failed",
		zap.String("task_id", t.ID.String()),
		zap.String("kind", t.Kind),
		zap.Error(cause),
	)
	t.MarkFailed(cause.Error())
	if t.IsDead() {
		p.logger.Warn("task moved to dead letter queue",
			zap.String("task_id", t.ID.String()),
			zap.String("kind", t.Kind),
			zap.Int("retry_count", t.RetryCount),
			zap.String("last_error", t.LastError),
		)
	}
	if err := p.repo.Update(ctx, t); err != nil {
		p.logger.Error("failed to update task", zap.Error(err))
	}
}

// cleanupLoop periodically removes old completed tasks
func (p *Processor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := p.repo.DeleteOlderThan(ctx, time.Now().Add(-p.config.CleanupRetention))
			if err != nil {
				p.logger.Error("task cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				p.logger.Info("old tasks cleaned up", zap.Int64("deleted", deleted))
			}
		}
	}
}
