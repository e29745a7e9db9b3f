package mapping

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/store"
)

// StoreSelectionService manages the per-product-per-store category
// selection. Selections are always replaced wholesale and re-validated; a
// product-store pair with no stored selection inherits the product's
// store-agnostic default.
type StoreSelectionService struct {
	selectionRepo mapping.SelectionRepository
	identityMap   *CategoryIdentityMap
	hierarchy     *CategoryHierarchySynchronizer
	logger        *zap.Logger
}

// NewStoreSelectionService creates a new StoreSelectionService
func NewStoreSelectionService(
	selectionRepo mapping.SelectionRepository,
	identityMap *CategoryIdentityMap,
	hierarchy *CategoryHierarchySynchronizer,
	logger *zap.Logger,
) *StoreSelectionService {
	return &StoreSelectionService{
		selectionRepo: selectionRepo,
		identityMap:   identityMap,
		hierarchy:     hierarchy,
		logger:        logger,
	}
}

// Get returns the stored selection for a product-store pair. The second
// return is false when no override exists (the pair inherits the default).
func (s *StoreSelectionService) Get(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*mapping.CategorySelection, bool, error) {
	sel, err := s.selectionRepo.Find(ctx, tenantID, productID, storeID)
	if err != nil {
		if errors.Is(err, mapping.ErrSelectionNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return sel, true, nil
}

// UpdateFromUI replaces the selection with a UI-supplied canonical id list
func (s *StoreSelectionService) UpdateFromUI(ctx context.Context, tenantID, productID uuid.UUID, st *store.Store, selectedIDs []uuid.UUID, primaryID *uuid.UUID) (*mapping.CategorySelection, error) {
	sel, err := s.identityMap.FromUISelection(ctx, tenantID, st, selectedIDs, primaryID)
	if err != nil {
		return nil, err
	}
	if err := s.selectionRepo.Replace(ctx, tenantID, productID, st.ID, sel); err != nil {
		return nil, err
	}
	return sel, nil
}

// ApplyRemoteAssignment imports a remote-side category assignment. When
// every remote id already has a mapping the selection is converted and
// stored immediately. When mappings are missing, a creation task is
// scheduled instead (chained to a follow-up apply), and the stored
// selection is left untouched until that chain completes; the first return
// is true in that case.
func (s *StoreSelectionService) ApplyRemoteAssignment(ctx context.Context, tenantID, productID uuid.UUID, st *store.Store, remoteIDs []int64) (scheduled bool, err error) {
	scheduled, err = s.hierarchy.ScheduleCreation(ctx, tenantID, st, productID, remoteIDs)
	if err != nil {
		return false, err
	}
	if scheduled {
		return true, nil
	}

	sel, err := s.identityMap.FromRemoteIDList(ctx, tenantID, st, remoteIDs)
	if err != nil {
		return false, err
	}
	if err := s.selectionRepo.Replace(ctx, tenantID, productID, st.ID, sel); err != nil {
		return false, err
	}
	return false, nil
}

// Refresh re-resolves the stored selection's mappings against current
// mapping state and stores the result. No-op for pairs without a selection.
func (s *StoreSelectionService) Refresh(ctx context.Context, tenantID, productID uuid.UUID, st *store.Store) error {
	sel, found, err := s.Get(ctx, tenantID, productID, st.ID)
	if err != nil || !found {
		return err
	}

	if err := s.identityMap.RefreshMappings(ctx, tenantID, st, sel); err != nil {
		return err
	}
	return s.selectionRepo.Replace(ctx, tenantID, productID, st.ID, sel)
}

// Clear removes the stored selection so the pair falls back to the
// product's default assignment.
func (s *StoreSelectionService) Clear(ctx context.Context, tenantID, productID, storeID uuid.UUID) error {
	return s.selectionRepo.Delete(ctx, tenantID, productID, storeID)
}
