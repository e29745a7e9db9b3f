package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pim/backend/internal/domain/store"
)

// RemoteProduct is the remote store's representation of a product, as
// returned by the store gateway. Identifiers are the store's own numeric ids.
type RemoteProduct struct {
	RemoteID         int64
	Code             string
	Name             string
	ShortDescription string
	LongDescription  string
	Price            decimal.Decimal
	Published        bool
	CategoryIDs      []int64
	AttributeIDs     []int64
	ImageSettings    string
}

// RemoteCategoryNode is one node of a remote store's category tree
type RemoteCategoryNode struct {
	RemoteID  int64
	ParentID  int64
	Name      string
	Active    bool
	SortOrder int
	Children  []*RemoteCategoryNode
}

// Walk visits the node and all descendants depth-first
func (n *RemoteCategoryNode) Walk(visit func(node *RemoteCategoryNode) bool) {
	if !visit(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(visit)
	}
}

// RemoteTreeProvider serves a store's remote category tree. Implementations
// may cache the tree; Invalidate must be called whenever local mappings
// change so stale trees are not diffed against fresh mapping state.
type RemoteTreeProvider interface {
	CategoryTree(ctx context.Context, s *store.Store) ([]*RemoteCategoryNode, error)
	Invalidate(ctx context.Context, storeID uuid.UUID)
}

// RemoteStoreGateway reads product and category data from a remote store.
// Implementations live in infrastructure.
type RemoteStoreGateway interface {
	// FetchProduct retrieves a product by its code. Returns (nil, nil) when
	// the remote store has no product with that code.
	FetchProduct(ctx context.Context, s *store.Store, productCode string) (*RemoteProduct, error)
	// FetchCategoryTree retrieves the store's full category tree as a list
	// of root nodes.
	FetchCategoryTree(ctx context.Context, s *store.Store) ([]*RemoteCategoryNode, error)
}
