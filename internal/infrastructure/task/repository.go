package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/infrastructure/persistence/models"
)

// GormTaskRepository implements TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based task repository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormTaskRepository) WithTx(tx *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: tx}
}

// Save persists one or more tasks
func (r *GormTaskRepository) Save(ctx context.Context, tasks ...*shared.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	taskModels := make([]*models.TaskModel, len(tasks))
	for i, t := range tasks {
		taskModels[i] = models.TaskModelFromDomain(t)
	}
	return r.db.WithContext(ctx).Create(taskModels).Error
}

// FindPending retrieves pending tasks up to the specified limit
func (r *GormTaskRepository) FindPending(ctx context.Context, limit int) ([]*shared.Task, error) {
	var taskModels []models.TaskModel
	err := r.db.WithContext(ctx).
		Where("status = ?", shared.TaskStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&taskModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainTasks(taskModels), nil
}

// FindRetryable retrieves failed tasks that are due for retry
func (r *GormTaskRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.Task, error) {
	var taskModels []models.TaskModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", shared.TaskStatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&taskModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainTasks(taskModels), nil
}

// FindDead retrieves dead tasks with pagination
func (r *GormTaskRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.Task, int64, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	base := r.db.WithContext(ctx).
		Model(&models.TaskModel{}).
		Where("status = ?", shared.TaskStatusDead)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var taskModels []models.TaskModel
	if err := base.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&taskModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainTasks(taskModels), total, nil
}

// FindByID retrieves a single task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.Task, error) {
	var model models.TaskModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// MarkProcessing atomically marks tasks as processing and returns them.
// FOR UPDATE SKIP LOCKED lets multiple workers poll the same table without
// claiming each other's rows.
func (r *GormTaskRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var taskModels []models.TaskModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("id IN ? AND status IN ?", ids, []shared.TaskStatus{
				shared.TaskStatusPending,
				shared.TaskStatusFailed,
			}).
			Find(&taskModels).Error; err != nil {
			return err
		}

		if len(taskModels) == 0 {
			return nil
		}

		claimedIDs := make([]uuid.UUID, len(taskModels))
		for i, m := range taskModels {
			claimedIDs[i] = m.ID
		}

		now := time.Now()
		if err := tx.Model(&models.TaskModel{}).
			Where("id IN ?", claimedIDs).
			Updates(map[string]interface{}{
				"status":     shared.TaskStatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		for i := range taskModels {
			taskModels[i].Status = shared.TaskStatusProcessing
			taskModels[i].UpdatedAt = now
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return toDomainTasks(taskModels), nil
}

// Update updates an existing task
func (r *GormTaskRepository) Update(ctx context.Context, task *shared.Task) error {
	task.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.TaskModelFromDomain(task)).Error
}

// DeleteOlderThan deletes completed tasks older than the specified time
func (r *GormTaskRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.TaskStatusCompleted, before).
		Delete(&models.TaskModel{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns count of tasks for each status
func (r *GormTaskRepository) CountByStatus(ctx context.Context) (map[shared.TaskStatus]int64, error) {
	type row struct {
		Status shared.TaskStatus
		Total  int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.TaskModel{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[shared.TaskStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func toDomainTasks(taskModels []models.TaskModel) []*shared.Task {
	tasks := make([]*shared.Task, len(taskModels))
	for i := range taskModels {
		tasks[i] = taskModels[i].ToDomain()
	}
	return tasks
}

// Ensure GormTaskRepository implements TaskRepository
var _ shared.TaskRepository = (*GormTaskRepository)(nil)
