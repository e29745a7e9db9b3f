package comparison

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/domain/store"
	"github.com/pim/backend/internal/domain/sync"
)

// NodeStatus classifies one node of the merged comparison tree
type NodeStatus string

const (
	// NodeStatusBoth means an active mapping links the remote and local node
	NodeStatusBoth NodeStatus = "both"
	// NodeStatusRemoteOnly means the remote store has the node but no
	// mapping points at a local category.
	NodeStatusRemoteOnly NodeStatus = "remote_only"
	// NodeStatusLocalOnly means a local category has no mapped counterpart
	// in the remote tree.
	NodeStatusLocalOnly NodeStatus = "local_only"
)

// ComparisonNode is one node of the merged remote/local category tree. It is
// built fresh on every comparison and never persisted.
type ComparisonNode struct {
	CanonicalID  *uuid.UUID        `json:"canonical_id"`
	RemoteID     *int64            `json:"remote_id"`
	Name         string            `json:"name"`
	Status       NodeStatus        `json:"status"`
	Depth        int               `json:"depth"`
	Path         string            `json:"path"`
	ProductCount int               `json:"product_count"`
	Deletable    bool              `json:"deletable"`
	Children     []*ComparisonNode `json:"children"`
}

// ComparisonCounts aggregates the merged tree
type ComparisonCounts struct {
	Synced      int `json:"synced"`
	ToAdd       int `json:"to_add"`
	ToRemove    int `json:"to_remove"`
	RemoteTotal int `json:"remote_total"`
	LocalTotal  int `json:"local_total"`
}

// ComparisonResult is the full diff between a store's remote category tree
// and the local catalog.
type ComparisonResult struct {
	StoreID uuid.UUID         `json:"store_id"`
	Nodes   []*ComparisonNode `json:"nodes"`
	Counts  ComparisonCounts  `json:"counts"`
}

// CategoryComparisonEngine merges a store's remote category tree with the
// local tree and classifies every node. Matching is strictly by recorded
// mapping; name equality never infers identity.
type CategoryComparisonEngine struct {
	mappingRepo  mapping.CategoryMappingReader
	categoryRepo catalog.CategoryRepository
	trees        sync.RemoteTreeProvider
	logger       *zap.Logger
}

// NewCategoryComparisonEngine creates a new CategoryComparisonEngine
func NewCategoryComparisonEngine(
	mappingRepo mapping.CategoryMappingReader,
	categoryRepo catalog.CategoryRepository,
	trees sync.RemoteTreeProvider,
	logger *zap.Logger,
) *CategoryComparisonEngine {
	return &CategoryComparisonEngine{
		mappingRepo:  mappingRepo,
		categoryRepo: categoryRepo,
		trees:        trees,
		logger:       logger,
	}
}

// Compare builds the merged diff tree for a store. The remote-driven pass
// classifies every non-sentinel remote node as both or remote_only; a second
// pass emits local categories the first pass never visited as local_only.
func (e *CategoryComparisonEngine) Compare(ctx context.Context, tenantID uuid.UUID, st *store.Store) (*ComparisonResult, error) {
	remoteRoots, err := e.trees.CategoryTree(ctx, st)
	if err != nil {
		return nil, err
	}

	active, err := e.mappingRepo.FindActiveForStore(ctx, tenantID, st.ID, mapping.MappingTypeCategory)
	if err != nil {
		return nil, err
	}
	byRemote := make(map[int64]uuid.UUID, len(active))
	for _, m := range active {
		byRemote[m.RemoteID] = m.CanonicalID
	}

	locals, err := e.categoryRepo.FindAllForTenant(ctx, tenantID, shared.Filter{OrderBy: "sort_order", OrderDir: "asc"})
	if err != nil {
		return nil, err
	}

	productCounts, err := e.categoryRepo.CountProductsByCategory(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	m := &merge{
		store:         st,
		byRemote:      byRemote,
		productCounts: productCounts,
		visited:       make(map[uuid.UUID]bool),
		localByID:     make(map[uuid.UUID]*catalog.Category, len(locals)),
		localChildren: make(map[uuid.UUID][]*catalog.Category),
	}
	for i := range locals {
		c := &locals[i]
		m.localByID[c.ID] = c
		if c.ParentID != nil {
			m.localChildren[*c.ParentID] = append(m.localChildren[*c.ParentID], c)
		} else {
			m.localRoots = append(m.localRoots, c)
		}
	}

	var nodes []*ComparisonNode
	for _, root := range remoteRoots {
		nodes = append(nodes, m.mergeRemote(root, 0, "")...)
	}
	nodes = append(nodes, m.collectLocalOnly(m.localRoots, 0, "")...)

	return &ComparisonResult{
		StoreID: st.ID,
		Nodes:   nodes,
		Counts:  Count(nodes),
	}, nil
}

type merge struct {
	store         *store.Store
	byRemote      map[int64]uuid.UUID
	productCounts map[uuid.UUID]int
	visited       map[uuid.UUID]bool
	localByID     map[uuid.UUID]*catalog.Category
	localChildren map[uuid.UUID][]*catalog.Category
	localRoots    []*catalog.Category
}

// mergeRemote classifies one remote node and its subtree. Sentinel nodes are
// skipped but their children are lifted to the current level.
func (m *merge) mergeRemote(remote *sync.RemoteCategoryNode, depth int, path string) []*ComparisonNode {
	if m.store.IsRootSentinel(remote.RemoteID) {
		var lifted []*ComparisonNode
		for _, child := range remote.Children {
			lifted = append(lifted, m.mergeRemote(child, depth, path)...)
		}
		return lifted
	}

	nodePath := joinPath(path, remote.Name)
	node := &ComparisonNode{
		RemoteID: &remote.RemoteID,
		Name:     remote.Name,
		Status:   NodeStatusRemoteOnly,
		Depth:    depth,
		Path:     nodePath,
	}

	if canonicalID, ok := m.byRemote[remote.RemoteID]; ok {
		node.Status = NodeStatusBoth
		node.CanonicalID = &canonicalID
		node.ProductCount = m.productCounts[canonicalID]
		m.visited[canonicalID] = true
		if local, ok := m.localByID[canonicalID]; ok {
			node.Name = local.Name
		}
	}

	for _, child := range remote.Children {
		node.Children = append(node.Children, m.mergeRemote(child, depth+1, nodePath)...)
	}

	return []*ComparisonNode{node}
}

// collectLocalOnly emits unvisited local categories as local_only subtrees.
// A visited category contributes nothing itself but its unvisited children
// surface at the current level.
func (m *merge) collectLocalOnly(categories []*catalog.Category, depth int, path string) []*ComparisonNode {
	var nodes []*ComparisonNode
	for _, c := range categories {
		children := m.localChildren[c.ID]
		if m.visited[c.ID] {
			nodes = append(nodes, m.collectLocalOnly(children, depth, path)...)
			continue
		}

		nodePath := joinPath(path, c.Name)
		count := m.productCounts[c.ID]
		canonicalID := c.ID
		node := &ComparisonNode{
			CanonicalID:  &canonicalID,
			Name:         c.Name,
			Status:       NodeStatusLocalOnly,
			Depth:        depth,
			Path:         nodePath,
			ProductCount: count,
			Deletable:    count == 0,
			Children:     m.collectLocalOnly(children, depth+1, nodePath),
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + " / " + name
}

// Count folds a comparison forest into aggregate counts
func Count(nodes []*ComparisonNode) ComparisonCounts {
	var counts ComparisonCounts
	walkNodes(nodes, func(node *ComparisonNode) {
		switch node.Status {
		case NodeStatusBoth:
			counts.Synced++
			counts.RemoteTotal++
			counts.LocalTotal++
		case NodeStatusRemoteOnly:
			counts.ToAdd++
			counts.RemoteTotal++
		case NodeStatusLocalOnly:
			counts.ToRemove++
			counts.LocalTotal++
		}
	})
	return counts
}

// FilterByStatus flattens the forest into the nodes matching one status
func FilterByStatus(nodes []*ComparisonNode, status NodeStatus) []*ComparisonNode {
	var matched []*ComparisonNode
	walkNodes(nodes, func(node *ComparisonNode) {
		if node.Status == status {
			matched = append(matched, node)
		}
	})
	return matched
}

func walkNodes(nodes []*ComparisonNode, visit func(*ComparisonNode)) {
	for _, node := range nodes {
		visit(node)
		walkNodes(node.Children, visit)
	}
}
