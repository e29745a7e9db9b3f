package mapping

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// MaxSelectedCategories bounds how many categories one product may be
// assigned per store.
const MaxSelectedCategories = 10

// UnresolvedRemoteID is the persisted placeholder for "not yet resolved".
// It must never appear in any remote-facing id list.
const UnresolvedRemoteID int64 = 0

// SelectionSource records where a selection came from.
type SelectionSource string

const (
	SourceManual    SelectionSource = "manual"
	SourcePull      SelectionSource = "pull"
	SourceSync      SelectionSource = "sync"
	SourceMigration SelectionSource = "migration"
	SourceRefresh   SelectionSource = "refresh"
	SourceEmpty     SelectionSource = "empty"
)

// IsValid returns true if the source is one of the known values
func (s SelectionSource) IsValid() bool {
	switch s {
	case SourceManual, SourcePull, SourceSync, SourceMigration, SourceRefresh, SourceEmpty:
		return true
	default:
		return false
	}
}

// SelectionFormat identifies the persisted shape of a selection blob.
type SelectionFormat string

const (
	FormatCanonical     SelectionFormat = "canonical"
	FormatUILegacy      SelectionFormat = "uiLegacy"
	FormatRemoteSelfMap SelectionFormat = "remoteSelfMapLegacy"
	FormatUnknown       SelectionFormat = "unknown"
)

// ---------------------------------------------------------------------------
// CategorySelection Value Object
// ---------------------------------------------------------------------------

// CategorySelection is the canonical per-product-per-store category
// assignment. Invariants, enforced by Validate:
//
//   - Selected holds at most MaxSelectedCategories unique ids
//   - Primary is set and contained in Selected whenever Selected is non-empty
//   - the key set of Mappings equals the set of Selected ids
//
// A mapping value of UnresolvedRemoteID means the remote id is not resolved
// yet; it is filtered from every remote-facing projection. Unresolved holds
// remote ids recovered from the self-map legacy format whose canonical ids
// cannot be reconstructed; they await manual re-resolution.
type CategorySelection struct {
	Selected   []uuid.UUID
	Primary    *uuid.UUID
	Mappings   map[uuid.UUID]int64
	Unresolved []int64
	UpdatedAt  time.Time
	Source     SelectionSource
}

// NewCategorySelection builds a selection with unresolved placeholders for
// every selected id. Callers fill in remote ids afterwards.
func NewCategorySelection(selected []uuid.UUID, primary *uuid.UUID, source SelectionSource) *CategorySelection {
	mappings := make(map[uuid.UUID]int64, len(selected))
	for _, id := range selected {
		mappings[id] = UnresolvedRemoteID
	}
	return &CategorySelection{
		Selected:  selected,
		Primary:   primary,
		Mappings:  mappings,
		UpdatedAt: time.Now(),
		Source:    source,
	}
}

// EmptySelection returns a valid selection with nothing selected.
func EmptySelection() *CategorySelection {
	return &CategorySelection{
		Mappings:  make(map[uuid.UUID]int64),
		UpdatedAt: time.Now(),
		Source:    SourceEmpty,
	}
}

// Validate checks the selection invariants. It returns a wrapped
// ErrSelectionInvalid describing the first violation found.
func (s *CategorySelection) Validate() error {
	if len(s.Selected) > MaxSelectedCategories {
		return fmt.Errorf("%w: %d categories selected, maximum is %d", ErrSelectionInvalid, len(s.Selected), MaxSelectedCategories)
	}

	seen := make(map[uuid.UUID]struct{}, len(s.Selected))
	for _, id := range s.Selected {
		if id == uuid.Nil {
			return fmt.Errorf("%w: nil category id in selection", ErrSelectionInvalid)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate category id %s", ErrSelectionInvalid, id)
		}
		seen[id] = struct{}{}
	}

	if len(s.Selected) == 0 {
		if s.Primary != nil {
			return fmt.Errorf("%w: primary set on empty selection", ErrSelectionInvalid)
		}
	} else {
		if s.Primary == nil {
			return fmt.Errorf("%w: primary is required when categories are selected", ErrSelectionInvalid)
		}
		if _, ok := seen[*s.Primary]; !ok {
			return fmt.Errorf("%w: primary %s is not among selected categories", ErrSelectionInvalid, *s.Primary)
		}
	}

	if len(s.Mappings) != len(s.Selected) {
		return fmt.Errorf("%w: mapping key set does not match selected set", ErrSelectionInvalid)
	}
	for id, remoteID := range s.Mappings {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: mapping key %s is not among selected categories", ErrSelectionInvalid, id)
		}
		if remoteID < 0 {
			return fmt.Errorf("%w: negative remote id %d", ErrSelectionInvalid, remoteID)
		}
	}

	if !s.Source.IsValid() {
		return fmt.Errorf("%w: unknown source %q", ErrSelectionInvalid, s.Source)
	}

	return nil
}

// Sanitize best-effort repairs the selection in place and then validates it.
// Used for ingesting untrusted or legacy data without throwing: duplicates
// are dropped, the selection is clamped to MaxSelectedCategories, a missing
// or stray primary is defaulted to the first selected element, mapping keys
// are reconciled with the selected set, and metadata is defaulted.
func (s *CategorySelection) Sanitize() error {
	s.Selected = lo.Uniq(s.Selected)
	s.Selected = lo.Filter(s.Selected, func(id uuid.UUID, _ int) bool { return id != uuid.Nil })
	if len(s.Selected) > MaxSelectedCategories {
		s.Selected = s.Selected[:MaxSelectedCategories]
	}

	if len(s.Selected) == 0 {
		s.Primary = nil
	} else if s.Primary == nil || !lo.Contains(s.Selected, *s.Primary) {
		first := s.Selected[0]
		s.Primary = &first
	}

	if s.Mappings == nil {
		s.Mappings = make(map[uuid.UUID]int64, len(s.Selected))
	}
	for id, remoteID := range s.Mappings {
		if !lo.Contains(s.Selected, id) || remoteID < 0 {
			delete(s.Mappings, id)
		}
	}
	for _, id := range s.Selected {
		if _, ok := s.Mappings[id]; !ok {
			s.Mappings[id] = UnresolvedRemoteID
		}
	}

	if !s.Source.IsValid() {
		s.Source = SourceEmpty
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	return s.Validate()
}

// Touch updates the metadata after a change
func (s *CategorySelection) Touch(source SelectionSource) {
	s.UpdatedAt = time.Now()
	s.Source = source
}

// SetMapping records the remote id for a selected canonical id
func (s *CategorySelection) SetMapping(canonicalID uuid.UUID, remoteID int64) {
	s.Mappings[canonicalID] = remoteID
}

// RemoteIDFor returns the resolved remote id for a canonical id. The second
// return is false for unselected ids and unresolved placeholders.
func (s *CategorySelection) RemoteIDFor(canonicalID uuid.UUID) (int64, bool) {
	remoteID, ok := s.Mappings[canonicalID]
	if !ok || remoteID == UnresolvedRemoteID {
		return 0, false
	}
	return remoteID, true
}

// RemoteIDs returns all resolved remote ids in selection order, with
// unresolved placeholders filtered out.
func (s *CategorySelection) RemoteIDs() []int64 {
	ids := make([]int64, 0, len(s.Selected))
	for _, canonicalID := range s.Selected {
		if remoteID, ok := s.RemoteIDFor(canonicalID); ok {
			ids = append(ids, remoteID)
		}
	}
	return ids
}

// PrimaryRemoteID returns the resolved remote id of the primary category
func (s *CategorySelection) PrimaryRemoteID() (int64, bool) {
	if s.Primary == nil {
		return 0, false
	}
	return s.RemoteIDFor(*s.Primary)
}

// HasUnresolved reports whether any selected id still carries the
// unresolved placeholder.
func (s *CategorySelection) HasUnresolved() bool {
	for _, remoteID := range s.Mappings {
		if remoteID == UnresolvedRemoteID {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Canonical JSON codec
// ---------------------------------------------------------------------------

type selectionWireUI struct {
	Selected []string `json:"selected"`
	Primary  *string  `json:"primary"`
}

type selectionWireMetadata struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Source      string    `json:"source"`
}

type selectionWire struct {
	UI         selectionWireUI       `json:"ui"`
	Mappings   map[string]int64      `json:"mappings"`
	Unresolved []int64               `json:"unresolved,omitempty"`
	Metadata   selectionWireMetadata `json:"metadata"`
}

// MarshalJSON encodes the selection in the canonical persisted format
func (s *CategorySelection) MarshalJSON() ([]byte, error) {
	wire := selectionWire{
		UI: selectionWireUI{
			Selected: lo.Map(s.Selected, func(id uuid.UUID, _ int) string { return id.String() }),
		},
		Mappings:   make(map[string]int64, len(s.Mappings)),
		Unresolved: s.Unresolved,
		Metadata: selectionWireMetadata{
			LastUpdated: s.UpdatedAt,
			Source:      string(s.Source),
		},
	}
	if s.Primary != nil {
		p := s.Primary.String()
		wire.UI.Primary = &p
	}
	for id, remoteID := range s.Mappings {
		wire.Mappings[id.String()] = remoteID
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the canonical persisted format. The decoded value is
// not validated; callers run Validate or Sanitize depending on trust.
func (s *CategorySelection) UnmarshalJSON(data []byte) error {
	var wire selectionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	s.Selected = make([]uuid.UUID, 0, len(wire.UI.Selected))
	for _, raw := range wire.UI.Selected {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: invalid selected id %q", ErrSelectionInvalid, raw)
		}
		s.Selected = append(s.Selected, id)
	}

	s.Primary = nil
	if wire.UI.Primary != nil {
		id, err := uuid.Parse(*wire.UI.Primary)
		if err != nil {
			return fmt.Errorf("%w: invalid primary id %q", ErrSelectionInvalid, *wire.UI.Primary)
		}
		s.Primary = &id
	}

	s.Mappings = make(map[uuid.UUID]int64, len(wire.Mappings))
	for raw, remoteID := range wire.Mappings {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: invalid mapping key %q", ErrSelectionInvalid, raw)
		}
		s.Mappings[id] = remoteID
	}

	s.Unresolved = wire.Unresolved
	s.UpdatedAt = wire.Metadata.LastUpdated
	s.Source = SelectionSource(wire.Metadata.Source)
	return nil
}

// ---------------------------------------------------------------------------
// Legacy format detection and migration
// ---------------------------------------------------------------------------

// DetectFormat classifies a decoded selection blob. The self-map heuristic
// (every key a numeric string, every value an integer) can in principle
// misclassify other numeric maps; blobs written by this system always carry
// the ui/mappings/metadata envelope and are checked first.
func DetectFormat(raw map[string]any) SelectionFormat {
	if raw == nil {
		return FormatUnknown
	}

	if _, hasUI := raw["ui"]; hasUI {
		if _, hasMappings := raw["mappings"]; hasMappings {
			return FormatCanonical
		}
	}

	if _, hasSelected := raw["selected"]; hasSelected {
		return FormatUILegacy
	}

	if len(raw) > 0 && isNumericSelfMap(raw) {
		return FormatRemoteSelfMap
	}

	return FormatUnknown
}

// isNumericSelfMap reports whether every key is a numeric string and every
// value coerces to an integer.
func isNumericSelfMap(raw map[string]any) bool {
	for key, value := range raw {
		if _, err := cast.ToInt64E(key); err != nil {
			return false
		}
		switch value.(type) {
		case map[string]any, []any:
			return false
		}
		if _, err := cast.ToInt64E(value); err != nil {
			return false
		}
	}
	return true
}

// MigrateLegacy converts a legacy blob into a canonical selection. The
// self-map format carries only remote ids; their canonical counterparts
// cannot be recovered, so they are parked in Unresolved with an empty
// selection, pending manual re-resolution.
func MigrateLegacy(raw map[string]any) (*CategorySelection, error) {
	switch DetectFormat(raw) {
	case FormatCanonical:
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		sel := &CategorySelection{}
		if err := json.Unmarshal(data, sel); err != nil {
			return nil, err
		}
		if err := sel.Sanitize(); err != nil {
			return nil, err
		}
		return sel, nil

	case FormatUILegacy:
		return migrateUILegacy(raw)

	case FormatRemoteSelfMap:
		return migrateRemoteSelfMap(raw)

	default:
		return nil, ErrSelectionUnknownFormat
	}
}

func migrateUILegacy(raw map[string]any) (*CategorySelection, error) {
	var selected []uuid.UUID
	for _, item := range cast.ToSlice(raw["selected"]) {
		if id, err := uuid.Parse(cast.ToString(item)); err == nil {
			selected = append(selected, id)
		}
	}

	var primary *uuid.UUID
	if rawPrimary, ok := raw["primary"]; ok && rawPrimary != nil {
		if id, err := uuid.Parse(cast.ToString(rawPrimary)); err == nil {
			primary = &id
		}
	}

	sel := NewCategorySelection(selected, primary, SourceMigration)
	if err := sel.Sanitize(); err != nil {
		return nil, err
	}
	sel.Source = SourceMigration
	return sel, nil
}

func migrateRemoteSelfMap(raw map[string]any) (*CategorySelection, error) {
	remoteIDs := make([]int64, 0, len(raw))
	for _, value := range raw {
		remoteID, err := cast.ToInt64E(value)
		if err != nil || remoteID <= 0 {
			continue
		}
		remoteIDs = append(remoteIDs, remoteID)
	}
	remoteIDs = lo.Uniq(remoteIDs)
	sort.Slice(remoteIDs, func(i, j int) bool { return remoteIDs[i] < remoteIDs[j] })

	sel := EmptySelection()
	sel.Unresolved = remoteIDs
	sel.Source = SourceMigration
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	return sel, nil
}
