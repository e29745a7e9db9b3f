package mapping

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/domain/store"
)

// TaskHandlers adapts the asynchronous half of category reconciliation to
// the background task processor. Creation tasks materialize missing local
// categories; the chained apply task converts and stores the deferred
// product selection once mappings exist.
type TaskHandlers struct {
	storeRepo  store.StoreRepository
	hierarchy  *CategoryHierarchySynchronizer
	selections *StoreSelectionService
	logger     *zap.Logger
}

// NewTaskHandlers creates a new TaskHandlers
func NewTaskHandlers(
	storeRepo store.StoreRepository,
	hierarchy *CategoryHierarchySynchronizer,
	selections *StoreSelectionService,
	logger *zap.Logger,
) *TaskHandlers {
	return &TaskHandlers{
		storeRepo:  storeRepo,
		hierarchy:  hierarchy,
		selections: selections,
		logger:     logger,
	}
}

// HandleCreateCategories runs a category creation task
func (h *TaskHandlers) HandleCreateCategories(ctx context.Context, t *shared.Task) error {
	payload, st, err := h.decode(ctx, t)
	if err != nil {
		return err
	}

	h.logger.Info("creating missing local categories",
		zap.String("store", st.Code),
		zap.String("correlation", payload.Correlation.String()),
		zap.Int64s("remote_ids", payload.RemoteIDs))

	return h.hierarchy.CreateMissing(ctx, t.TenantID, st, payload.RemoteIDs)
}

// HandleApplyProductSync runs the chained apply task. By the time it fires
// the creation task has completed, so the conversion is expected to resolve
// every remote id; a re-schedule means creation silently lost rows and the
// task is failed for retry.
func (h *TaskHandlers) HandleApplyProductSync(ctx context.Context, t *shared.Task) error {
	payload, st, err := h.decode(ctx, t)
	if err != nil {
		return err
	}

	scheduled, err := h.selections.ApplyRemoteAssignment(ctx, t.TenantID, payload.ProductID, st, payload.RemoteIDs)
	if err != nil {
		return err
	}
	if scheduled {
		return fmt.Errorf("mappings still missing after category creation for product %s", payload.ProductID)
	}

	h.logger.Info("deferred product sync applied",
		zap.String("store", st.Code),
		zap.String("product_id", payload.ProductID.String()),
		zap.String("correlation", payload.Correlation.String()))
	return nil
}

func (h *TaskHandlers) decode(ctx context.Context, t *shared.Task) (*CategoryCreationPayload, *store.Store, error) {
	var payload CategoryCreationPayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		return nil, nil, fmt.Errorf("decode task payload: %w", err)
	}

	st, err := h.storeRepo.FindByIDForTenant(ctx, t.TenantID, payload.StoreID)
	if err != nil {
		return nil, nil, err
	}
	return &payload, st, nil
}
