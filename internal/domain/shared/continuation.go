package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of a durable task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusDead       TaskStatus = "DEAD"
)

// Default retry configuration
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// Task is a durably stored unit of background work. A task may name a
// follow-up kind that is enqueued with the same payload once the task
// completes, so multi-step flows survive process restarts between steps.
type Task struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Kind        string
	NextKind    string
	Payload     []byte
	Status      TaskStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTask creates a pending task of the given kind
func NewTask(tenantID uuid.UUID, kind string, payload []byte) *Task {
	return &Task{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Kind:       kind,
		Payload:    payload,
		Status:     TaskStatusPending,
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// Then sets the kind enqueued after this task completes
func (t *Task) Then(kind string) *Task {
	t.NextKind = kind
	return t
}

// Continuation returns the follow-up task to enqueue when this task
// completes, or nil if none is chained.
func (t *Task) Continuation() *Task {
	if t.NextKind == "" {
		return nil
	}
	return NewTask(t.TenantID, t.NextKind, t.Payload)
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Status == TaskStatusFailed && t.RetryCount < t.MaxRetries
}

// MarkProcessing marks the task as being processed
func (t *Task) MarkProcessing() error {
	if t.Status != TaskStatusPending && t.Status != TaskStatusFailed {
		return errors.New("can only mark pending or failed tasks as processing")
	}
	t.Status = TaskStatusProcessing
	t.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted marks the task as successfully completed
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.ProcessedAt = &now
	t.UpdatedAt = now
}

// MarkFailed marks the task as failed with error and calculates next retry time
func (t *Task) MarkFailed(errMsg string) {
	t.RetryCount++
	t.LastError = errMsg
	t.UpdatedAt = time.Now()

	if t.RetryCount >= t.MaxRetries {
		t.Status = TaskStatusDead
	} else {
		t.Status = TaskStatusFailed
		// Exponential backoff: 1s, 2s, 4s, 8s, 16s, ...
		backoff := DefaultBaseBackoff * time.Duration(1<<uint(t.RetryCount-1))
		nextRetry := time.Now().Add(backoff)
		t.NextRetryAt = &nextRetry
	}
}

// ResetForRetry resets a dead task for another attempt
func (t *Task) ResetForRetry() error {
	if t.Status != TaskStatusDead {
		return errors.New("can only retry dead tasks")
	}
	t.Status = TaskStatusPending
	t.RetryCount = 0
	t.LastError = ""
	t.NextRetryAt = nil
	t.UpdatedAt = time.Now()
	return nil
}

// IsDead returns true if the task is in dead status
func (t *Task) IsDead() bool {
	return t.Status == TaskStatusDead
}

// TaskRepository defines the interface for durable task persistence
type TaskRepository interface {
	// Save persists one or more tasks
	Save(ctx context.Context, tasks ...*Task) error
	// FindPending retrieves pending tasks up to the specified limit
	FindPending(ctx context.Context, limit int) ([]*Task, error)
	// FindRetryable retrieves failed tasks that are due for retry
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*Task, error)
	// FindDead retrieves dead tasks with pagination
	FindDead(ctx context.Context, page, pageSize int) ([]*Task, int64, error)
	// FindByID retrieves a single task by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// MarkProcessing atomically marks tasks as processing and returns them
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*Task, error)
	// Update updates an existing task
	Update(ctx context.Context, task *Task) error
	// DeleteOlderThan deletes completed tasks older than the specified time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns count of tasks for each status
	CountByStatus(ctx context.Context) (map[TaskStatus]int64, error)
}
