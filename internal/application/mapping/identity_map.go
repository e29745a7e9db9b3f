package mapping

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/store"
)

// CategoryIdentityMap translates between canonical category ids and a
// store's remote ids, and converts category selections between the formats
// the system exchanges.
//
// Conversion paths differ in strictness: the UI paths tolerate gaps in the
// mapping table (unmapped ids are dropped with a warning), while the
// remote-pull path must fill gaps by creating local categories, because it
// is the side responsible for importing the remote assignment.
type CategoryIdentityMap struct {
	mappingRepo mapping.CategoryMappingRepository
	hierarchy   *CategoryHierarchySynchronizer
	logger      *zap.Logger
}

// NewCategoryIdentityMap creates a new CategoryIdentityMap
func NewCategoryIdentityMap(
	mappingRepo mapping.CategoryMappingRepository,
	hierarchy *CategoryHierarchySynchronizer,
	logger *zap.Logger,
) *CategoryIdentityMap {
	return &CategoryIdentityMap{
		mappingRepo: mappingRepo,
		hierarchy:   hierarchy,
		logger:      logger,
	}
}

// ResolveRemoteID looks up the active remote id for a canonical category id.
// Pure lookup, no side effects; the second return is false when no active
// mapping exists.
func (s *CategoryIdentityMap) ResolveRemoteID(ctx context.Context, tenantID uuid.UUID, st *store.Store, canonicalID uuid.UUID) (int64, bool, error) {
	m, err := s.mappingRepo.FindActive(ctx, tenantID, st.ID, mapping.MappingTypeCategory, canonicalID)
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return m.RemoteID, true, nil
}

// ResolveCanonicalID looks up the canonical id for a remote id. Pure lookup.
func (s *CategoryIdentityMap) ResolveCanonicalID(ctx context.Context, tenantID uuid.UUID, st *store.Store, remoteID int64) (uuid.UUID, bool, error) {
	m, err := s.mappingRepo.FindActiveByRemote(ctx, tenantID, st.ID, mapping.MappingTypeCategory, remoteID)
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return m.CanonicalID, true, nil
}

// ResolveOrCreateCanonicalID returns the canonical id mapped to a remote id,
// creating the local category (and any missing remote ancestors) when no
// mapping exists. Idempotent under concurrent callers for the same
// (store, remoteID).
func (s *CategoryIdentityMap) ResolveOrCreateCanonicalID(ctx context.Context, tenantID uuid.UUID, st *store.Store, remoteID int64) (uuid.UUID, error) {
	if canonicalID, ok, err := s.ResolveCanonicalID(ctx, tenantID, st, remoteID); err != nil {
		return uuid.Nil, err
	} else if ok {
		return canonicalID, nil
	}
	return s.hierarchy.CreateSingle(ctx, tenantID, st, remoteID)
}

// FromUISelection builds a validated selection from a UI-supplied canonical
// id list. Lenient: selected ids with no active mapping are dropped with a
// logged warning rather than failing the whole selection.
func (s *CategoryIdentityMap) FromUISelection(ctx context.Context, tenantID uuid.UUID, st *store.Store, selectedIDs []uuid.UUID, primaryID *uuid.UUID) (*mapping.CategorySelection, error) {
	return s.fromCanonicalIDs(ctx, tenantID, st, selectedIDs, primaryID, mapping.SourceManual)
}

// FromPersistedCanonicalIDs is FromUISelection for canonical id lists read
// back from storage rather than supplied by a user.
func (s *CategoryIdentityMap) FromPersistedCanonicalIDs(ctx context.Context, tenantID uuid.UUID, st *store.Store, canonicalIDs []uuid.UUID, primaryID *uuid.UUID) (*mapping.CategorySelection, error) {
	return s.fromCanonicalIDs(ctx, tenantID, st, canonicalIDs, primaryID, mapping.SourceSync)
}

func (s *CategoryIdentityMap) fromCanonicalIDs(ctx context.Context, tenantID uuid.UUID, st *store.Store, selectedIDs []uuid.UUID, primaryID *uuid.UUID, source mapping.SelectionSource) (*mapping.CategorySelection, error) {
	selectedIDs = lo.Uniq(selectedIDs)

	mapped, err := s.activeMappingsFor(ctx, tenantID, st, selectedIDs)
	if err != nil {
		return nil, err
	}

	kept := make([]uuid.UUID, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		if _, ok := mapped[id]; !ok {
			s.logger.Warn("dropping category with no remote mapping",
				zap.String("tenant_id", tenantID.String()),
				zap.String("store", st.Code),
				zap.String("category_id", id.String()))
			continue
		}
		kept = append(kept, id)
	}

	if primaryID != nil && !lo.Contains(kept, *primaryID) {
		primaryID = nil
	}
	if primaryID == nil && len(kept) > 0 {
		primaryID = &kept[0]
	}

	sel := mapping.NewCategorySelection(kept, primaryID, source)
	for id, remoteID := range mapped {
		sel.SetMapping(id, remoteID)
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	return sel, nil
}

// FromRemoteIDList builds a validated selection from a remote id list,
// resolving or creating a canonical id for every non-sentinel entry. Strict:
// a remote id that cannot be resolved fails the conversion.
func (s *CategoryIdentityMap) FromRemoteIDList(ctx context.Context, tenantID uuid.UUID, st *store.Store, remoteIDs []int64) (*mapping.CategorySelection, error) {
	selected := make([]uuid.UUID, 0, len(remoteIDs))
	resolved := make(map[uuid.UUID]int64, len(remoteIDs))

	for _, remoteID := range lo.Uniq(remoteIDs) {
		if st.IsRootSentinel(remoteID) {
			continue
		}
		canonicalID, err := s.ResolveOrCreateCanonicalID(ctx, tenantID, st, remoteID)
		if err != nil {
			return nil, err
		}
		selected = append(selected, canonicalID)
		resolved[canonicalID] = remoteID
	}

	var primary *uuid.UUID
	if len(selected) > 0 {
		primary = &selected[0]
	}

	sel := mapping.NewCategorySelection(selected, primary, mapping.SourcePull)
	for canonicalID, remoteID := range resolved {
		sel.SetMapping(canonicalID, remoteID)
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	return sel, nil
}

// ToUISelectionCanonicalIDs projects the selected canonical ids and primary
func (s *CategoryIdentityMap) ToUISelectionCanonicalIDs(sel *mapping.CategorySelection) ([]uuid.UUID, *uuid.UUID) {
	return sel.Selected, sel.Primary
}

// ToUISelectionRemoteIDs projects the selection as remote ids, filtering
// unresolved placeholders. The primary is nil when its remote id is
// unresolved.
func (s *CategoryIdentityMap) ToUISelectionRemoteIDs(sel *mapping.CategorySelection) ([]int64, *int64) {
	ids := sel.RemoteIDs()
	if remoteID, ok := sel.PrimaryRemoteID(); ok {
		return ids, &remoteID
	}
	return ids, nil
}

// ToRemoteIDList returns the selection's resolved remote ids
func (s *CategoryIdentityMap) ToRemoteIDList(sel *mapping.CategorySelection) []int64 {
	return sel.RemoteIDs()
}

// RefreshMappings re-resolves every selected id's remote id against current
// mapping state, preserving selected and primary. Used after external
// mapping changes.
func (s *CategoryIdentityMap) RefreshMappings(ctx context.Context, tenantID uuid.UUID, st *store.Store, sel *mapping.CategorySelection) error {
	mapped, err := s.activeMappingsFor(ctx, tenantID, st, sel.Selected)
	if err != nil {
		return err
	}

	for _, id := range sel.Selected {
		if remoteID, ok := mapped[id]; ok {
			sel.SetMapping(id, remoteID)
		} else {
			sel.SetMapping(id, mapping.UnresolvedRemoteID)
		}
	}
	sel.Touch(mapping.SourceRefresh)

	return sel.Validate()
}

func (s *CategoryIdentityMap) activeMappingsFor(ctx context.Context, tenantID uuid.UUID, st *store.Store, canonicalIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if len(canonicalIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	mappings, err := s.mappingRepo.FindActiveByCanonicalIDs(ctx, tenantID, st.ID, mapping.MappingTypeCategory, canonicalIDs)
	if err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]int64, len(mappings))
	for _, m := range mappings {
		result[m.CanonicalID] = m.RemoteID
	}
	return result, nil
}
