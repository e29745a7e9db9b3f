package comparison

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/store"
)

// OverrideStatus classifies a product's per-store category assignment
// against its store-agnostic default.
type OverrideStatus string

const (
	// OverrideInherited means the store has no override and follows the default
	OverrideInherited OverrideStatus = "inherited"
	// OverrideIdentical means an override exists but matches the default exactly
	OverrideIdentical OverrideStatus = "identical"
	// OverrideCustom means the override diverges from the default
	OverrideCustom OverrideStatus = "custom"
)

// OverrideBadge is a presentation descriptor for an override status
type OverrideBadge struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
}

// OverrideDiff details how an override diverges from the default
type OverrideDiff struct {
	Added          []uuid.UUID `json:"added"`
	Removed        []uuid.UUID `json:"removed"`
	PrimaryChanged bool        `json:"primary_changed"`
	DefaultPrimary *uuid.UUID  `json:"default_primary"`
	ShopPrimary    *uuid.UUID  `json:"shop_primary"`
}

// ShopOverrideResult is the validation outcome for one product-store pair
type ShopOverrideResult struct {
	StoreID   uuid.UUID      `json:"store_id"`
	StoreCode string         `json:"store_code"`
	Status    OverrideStatus `json:"status"`
	Diff      *OverrideDiff  `json:"diff,omitempty"`
	Badge     OverrideBadge  `json:"badge"`
	Summary   string         `json:"summary"`
}

// ProductOverrideReport aggregates override results across every active store
type ProductOverrideReport struct {
	ProductID  uuid.UUID            `json:"product_id"`
	Results    []ShopOverrideResult `json:"results"`
	Consistent bool                 `json:"consistent"`
}

// CategoryOverrideValidator decides whether a product's per-store category
// assignment diverges from its store-agnostic default.
type CategoryOverrideValidator struct {
	productRepo   catalog.ProductRepository
	categoryRepo  catalog.CategoryRepository
	storeRepo     store.StoreRepository
	selectionRepo mapping.SelectionRepository
	logger        *zap.Logger
}

// NewCategoryOverrideValidator creates a new CategoryOverrideValidator
func NewCategoryOverrideValidator(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	storeRepo store.StoreRepository,
	selectionRepo mapping.SelectionRepository,
	logger *zap.Logger,
) *CategoryOverrideValidator {
	return &CategoryOverrideValidator{
		productRepo:   productRepo,
		categoryRepo:  categoryRepo,
		storeRepo:     storeRepo,
		selectionRepo: selectionRepo,
		logger:        logger,
	}
}

// ValidateShop validates one product against one store
func (v *CategoryOverrideValidator) ValidateShop(ctx context.Context, tenantID uuid.UUID, product *catalog.Product, st *store.Store) (*ShopOverrideResult, error) {
	var shopIDs []uuid.UUID
	var shopPrimary *uuid.UUID

	sel, err := v.selectionRepo.Find(ctx, tenantID, product.ID, st.ID)
	if err != nil && !errors.Is(err, mapping.ErrSelectionNotFound) {
		return nil, err
	}
	if sel != nil {
		shopIDs = sel.Selected
		shopPrimary = sel.Primary
	}

	result := &ShopOverrideResult{
		StoreID:   st.ID,
		StoreCode: st.Code,
	}

	defaultIDs := sortedUnique(product.DefaultCategories)
	shopSorted := sortedUnique(shopIDs)

	switch {
	case len(shopIDs) == 0:
		result.Status = OverrideInherited

	case equalIDs(defaultIDs, shopSorted) && equalPrimary(product.DefaultPrimary, shopPrimary):
		result.Status = OverrideIdentical

	default:
		result.Status = OverrideCustom
		result.Diff = &OverrideDiff{
			Added:          differenceIDs(shopSorted, defaultIDs),
			Removed:        differenceIDs(defaultIDs, shopSorted),
			PrimaryChanged: !equalPrimary(product.DefaultPrimary, shopPrimary),
			DefaultPrimary: product.DefaultPrimary,
			ShopPrimary:    shopPrimary,
		}
	}

	result.Badge = Badge(result.Status)

	summary, err := v.summarize(ctx, tenantID, result)
	if err != nil {
		return nil, err
	}
	result.Summary = summary

	return result, nil
}

// ValidateAllShops validates a product against every enabled store. The
// report is consistent iff no store carries a custom override.
func (v *CategoryOverrideValidator) ValidateAllShops(ctx context.Context, tenantID, productID uuid.UUID) (*ProductOverrideReport, error) {
	product, err := v.productRepo.FindByIDForTenant(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	stores, err := v.storeRepo.FindAllEnabled(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &ProductOverrideReport{
		ProductID:  productID,
		Consistent: true,
	}
	for i := range stores {
		result, err := v.ValidateShop(ctx, tenantID, product, &stores[i])
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, *result)
		if result.Status == OverrideCustom {
			report.Consistent = false
		}
	}
	return report, nil
}

// Badge returns the presentation descriptor for an override status
func Badge(status OverrideStatus) OverrideBadge {
	switch status {
	case OverrideInherited:
		return OverrideBadge{Label: "Inherited", Severity: "info"}
	case OverrideIdentical:
		return OverrideBadge{Label: "Identical", Severity: "info"}
	default:
		return OverrideBadge{Label: "Custom", Severity: "warning"}
	}
}

// summarize renders a one line diff description. Category names are
// resolved with a single batched lookup.
func (v *CategoryOverrideValidator) summarize(ctx context.Context, tenantID uuid.UUID, result *ShopOverrideResult) (string, error) {
	switch result.Status {
	case OverrideInherited:
		return "follows the default assignment", nil
	case OverrideIdentical:
		return "override matches the default assignment", nil
	}

	diff := result.Diff
	lookupIDs := append(append([]uuid.UUID{}, diff.Added...), diff.Removed...)
	if diff.DefaultPrimary != nil {
		lookupIDs = append(lookupIDs, *diff.DefaultPrimary)
	}
	if diff.ShopPrimary != nil {
		lookupIDs = append(lookupIDs, *diff.ShopPrimary)
	}

	names := map[uuid.UUID]string{}
	if len(lookupIDs) > 0 {
		categories, err := v.categoryRepo.FindByIDs(ctx, tenantID, lo.Uniq(lookupIDs))
		if err != nil {
			return "", err
		}
		for _, c := range categories {
			names[c.ID] = c.Name
		}
	}

	var parts []string
	if len(diff.Added) > 0 {
		parts = append(parts, "added "+nameList(diff.Added, names))
	}
	if len(diff.Removed) > 0 {
		parts = append(parts, "removed "+nameList(diff.Removed, names))
	}
	if diff.PrimaryChanged {
		parts = append(parts, fmt.Sprintf("primary %s instead of %s",
			nameOrNone(diff.ShopPrimary, names), nameOrNone(diff.DefaultPrimary, names)))
	}
	return strings.Join(parts, "; "), nil
}

func nameList(ids []uuid.UUID, names map[uuid.UUID]string) string {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = nameOrNone(&id, names)
	}
	return strings.Join(labels, ", ")
}

func nameOrNone(id *uuid.UUID, names map[uuid.UUID]string) string {
	if id == nil {
		return "none"
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return id.String()
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := lo.Uniq(ids)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func equalIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalPrimary(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func differenceIDs(from, subtract []uuid.UUID) []uuid.UUID {
	result, _ := lo.Difference(from, subtract)
	return result
}
