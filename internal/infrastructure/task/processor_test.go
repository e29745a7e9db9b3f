package task

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/shared"
)

// fakeTaskRepository is an in-memory TaskRepository for processor tests
type fakeTaskRepository struct {
	mu    gosync.Mutex
	tasks map[uuid.UUID]*shared.Task
}

func newFakeTaskRepository() *fakeTaskRepository {
	return &fakeTaskRepository{tasks: make(map[uuid.UUID]*shared.Task)}
}

func (r *fakeTaskRepository) Save(ctx context.Context, tasks ...*shared.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tasks {
		copied := *t
		r.tasks[t.ID] = &copied
	}
	return nil
}

func (r *fakeTaskRepository) FindPending(ctx context.Context, limit int) ([]*shared.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.Task
	for _, t := range r.tasks {
		if t.Status == shared.TaskStatusPending && len(out) < limit {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTaskRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.Task
	for _, t := range r.tasks {
		if t.Status == shared.TaskStatusFailed && t.NextRetryAt != nil && t.NextRetryAt.Before(before) && len(out) < limit {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTaskRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.Task, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.Task
	for _, t := range r.tasks {
		if t.Status == shared.TaskStatusDead {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, errors.New("task not found")
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTaskRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []*shared.Task
	for _, id := range ids {
		t, ok := r.tasks[id]
		if !ok {
			continue
		}
		if err := t.MarkProcessing(); err != nil {
			continue
		}
		copied := *t
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (r *fakeTaskRepository) Update(ctx context.Context, task *shared.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *fakeTaskRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, t := range r.tasks {
		if t.Status == shared.TaskStatusCompleted && t.ProcessedAt != nil && t.ProcessedAt.Before(before) {
			delete(r.tasks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeTaskRepository) CountByStatus(ctx context.Context) (map[shared.TaskStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[shared.TaskStatus]int64)
	for _, t := range r.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

func (r *fakeTaskRepository) get(id uuid.UUID) *shared.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil
	}
	copied := *t
	return &copied
}

func (r *fakeTaskRepository) byKind(kind string) []*shared.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.Task
	for _, t := range r.tasks {
		if t.Kind == kind {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out
}

func newTestProcessor(repo shared.TaskRepository) *Processor {
	config := DefaultProcessorConfig()
	config.BatchSize = 10
	return NewProcessor(repo, config, zap.NewNop())
}

func TestProcessor_ProcessBatch_DispatchesToHandler(t *testing.T) {
	repo := newFakeTaskRepository()
	processor := newTestProcessor(repo)

	var handled []*shared.Task
	processor.Register("category.create_missing", func(ctx context.Context, task *shared.Task) error {
		handled = append(handled, task)
		return nil
	})

	task := shared.NewTask(uuid.New(), "category.create_missing", []byte(`{"storeId":"s1"}`))
	require.NoError(t, repo.Save(context.Background(), task))

	processor.ProcessBatch(context.Background())

	require.Len(t, handled, 1)
	assert.Equal(t, task.ID, handled[0].ID)
	assert.Equal(t, []byte(`{"storeId":"s1"}`), handled[0].Payload)

	stored := repo.get(task.ID)
	require.NotNil(t, stored)
	assert.Equal(t, shared.TaskStatusCompleted, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestProcessor_ProcessBatch_EnqueuesContinuation(t *testing.T) {
	repo := newFakeTaskRepository()
	processor := newTestProcessor(repo)

	processor.Register("category.create_missing", func(ctx context.Context, task *shared.Task) error {
		return nil
	})

	tenantID := uuid.New()
	payload := []byte(`{"productId":"p1"}`)
	task := shared.NewTask(tenantID, "category.create_missing", payload).Then("product.apply_sync")
	require.NoError(t, repo.Save(context.Background(), task))

	processor.ProcessBatch(context.Background())

	followUps := repo.byKind("product.apply_sync")
	require.Len(t, followUps, 1)
	assert.Equal(t, tenantID, followUps[0].TenantID)
	assert.Equal(t, payload, followUps[0].Payload)
	assert.Equal(t, shared.TaskStatusPending, followUps[0].Status)
	assert.Empty(t, followUps[0].NextKind)
}

func TestProcessor_ProcessBatch_HandlerErrorSchedulesRetry(t *testing.T) {
	repo := newFakeTaskRepository()
	processor := newTestProcessor(repo)

	processor.Register("category.create_missing", func(ctx context.Context, task *shared.Task) error {
		return errors.New("remote tree unavailable")
	})

	task := shared.NewTask(uuid.New(), "category.create_missing", nil)
	require.NoError(t, repo.Save(context.Background(), task))

	processor.ProcessBatch(context.Background())

	stored := repo.get(task.ID)
	require.NotNil(t, stored)
	assert.Equal(t, shared.TaskStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, "remote tree unavailable", stored.LastError)
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now()))
}

func TestProcessor_ProcessBatch_UnregisteredKindFails(t *testing.T) {
	repo := newFakeTaskRepository()
	processor := newTestProcessor(repo)

	task := shared.NewTask(uuid.New(), "unknown.kind", nil)
	require.NoError(t, repo.Save(context.Background(), task))

	processor.ProcessBatch(context.Background())

	stored := repo.get(task.ID)
	require.NotNil(t, stored)
	assert.Equal(t, shared.TaskStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "no handler registered")
}

func TestProcessor_ProcessBatch_RecoversFromHandlerPanic(t *testing.T) {
	repo := newFakeTaskRepository()
	processor := newTestProcessor(repo)

	processor.Register("category.create_missing", func(ctx context.Context, task *shared.Task) error {
		panic("corrupt payload")
	})

	task := shared.NewTask(uuid.New(), "category.create_missing", nil)
	require.NoError(t, repo.Save(context.Background(), task))

	assert.NotPanics(t, func() {
		processor.ProcessBatch(context.Background())
	})

	stored := repo.get(task.ID)
	require.NotNil(t, stored)
	assert.Equal(t, shared.TaskStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "corrupt payload")
}

func TestProcessor_ProcessBatch_ExhaustedRetriesMoveTaskToDead(t *testing.T) {
	repo := newFakeTaskRepository()
	processor := newTestProcessor(repo)

	processor.Register("category.create_missing", func(ctx context.Context, task *shared.Task) error {
		return errors.New("still failing")
	})

	task := shared.NewTask(uuid.New(), "category.create_missing", nil)
	task.RetryCount = task.MaxRetries - 1
	task.Status = shared.TaskStatusFailed
	past := time.Now().Add(-time.Minute)
	task.NextRetryAt = &past
	require.NoError(t, repo.Save(context.Background(), task))

	processor.ProcessBatch(context.Background())

	stored := repo.get(task.ID)
	require.NotNil(t, stored)
	assert.Equal(t, shared.TaskStatusDead, stored.Status)
	assert.Equal(t, task.MaxRetries, stored.RetryCount)
}

func TestProcessor_StartStop(t *testing.T) {
	repo := newFakeTaskRepository()
	config := DefaultProcessorConfig()
	config.PollInterval = 10 * time.Millisecond
	config.CleanupEnabled = false
	processor := NewProcessor(repo, config, zap.NewNop())

	var mu gosync.Mutex
	handled := 0
	processor.Register("category.create_missing", func(ctx context.Context, task *shared.Task) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	})

	require.NoError(t, repo.Save(context.Background(), shared.NewTask(uuid.New(), "category.create_missing", nil)))
	require.NoError(t, processor.Start(context.Background()))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled == 1
	}, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(stopCtx))
}
