package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/store"
	"github.com/pim/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from a remote store (10MB)
const maxResponseSize = 10 * 1024 * 1024

// RestStoreGateway implements RemoteStoreGateway against the remote
// platform's REST API. Each store carries its own base URL and API key, so
// one gateway instance serves every configured store.
type RestStoreGateway struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRestStoreGateway creates a new REST store gateway
func NewRestStoreGateway(timeout time.Duration, logger *zap.Logger) *RestStoreGateway {
	return &RestStoreGateway{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// remoteProductDTO is the wire shape of a product on the remote platform
type remoteProductDTO struct {
	ID               int64           `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	ShortDescription string          `json:"short_description"`
	FullDescription  string          `json:"full_description"`
	Price            decimal.Decimal `json:"price"`
	Published        bool            `json:"published"`
	CategoryIDs      []int64         `json:"category_ids"`
	AttributeIDs     []int64         `json:"attribute_ids"`
	ImageSettings    json.RawMessage `json:"image_settings"`
}

// remoteCategoryDTO is the wire shape of a category tree node
type remoteCategoryDTO struct {
	ID        int64               `json:"id"`
	ParentID  int64               `json:"parent_id"`
	Name      string              `json:"name"`
	Published bool                `json:"published"`
	SortOrder int                 `json:"display_order"`
	Children  []remoteCategoryDTO `json:"children"`
}

// FetchProduct retrieves a product by its code. A 404 from the remote store
// means the product simply does not exist there and is not an error.
func (g *RestStoreGateway) FetchProduct(ctx context.Context, st *store.Store, productCode string) (*sync.RemoteProduct, error) {
	endpoint := fmt.Sprintf("%s/api/products/by-code/%s", st.BaseURL, url.PathEscape(productCode))

	body, status, err := g.doGet(ctx, st, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: store %s returned HTTP %d", sync.ErrRemoteUnavailable, st.Code, status)
	}

	var dto remoteProductDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("store %s: decode product %s: %w", st.Code, productCode, err)
	}

	return &sync.RemoteProduct{
		RemoteID:         dto.ID,
		Code:             dto.Code,
		Name:             dto.Name,
		ShortDescription: dto.ShortDescription,
		LongDescription:  dto.FullDescription,
		Price:            dto.Price,
		Published:        dto.Published,
		CategoryIDs:      dto.CategoryIDs,
		AttributeIDs:     dto.AttributeIDs,
		ImageSettings:    string(dto.ImageSettings),
	}, nil
}

// FetchCategoryTree retrieves the store's full category tree
func (g *RestStoreGateway) FetchCategoryTree(ctx context.Context, st *store.Store) ([]*sync.RemoteCategoryNode, error) {
	endpoint := st.BaseURL + "/api/categories/tree"

	body, status, err := g.doGet(ctx, st, endpoint)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: store %s returned HTTP %d", sync.ErrRemoteUnavailable, st.Code, status)
	}

	var dtos []remoteCategoryDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("%w: store %s: %v", sync.ErrRemoteTreeMalformed, st.Code, err)
	}

	roots := make([]*sync.RemoteCategoryNode, len(dtos))
	for i := range dtos {
		roots[i] = toDomainNode(&dtos[i])
	}
	return roots, nil
}

func toDomainNode(dto *remoteCategoryDTO) *sync.RemoteCategoryNode {
	node := &sync.RemoteCategoryNode{
		RemoteID:  dto.ID,
		ParentID:  dto.ParentID,
		Name:      dto.Name,
		Active:    dto.Published,
		SortOrder: dto.SortOrder,
		Children:  make([]*sync.RemoteCategoryNode, len(dto.Children)),
	}
	for i := range dto.Children {
		node.Children[i] = toDomainNode(&dto.Children[i])
	}
	return node
}

// doGet performs an authenticated GET against the store's API. Transport
// failures map to ErrRemoteUnavailable; HTTP status handling is left to the
// caller because a 404 is meaningful for product lookups.
func (g *RestStoreGateway) doGet(ctx context.Context, st *store.Store, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("store %s: build request: %w", st.Code, err)
	}

	req.Header.Set("Accept", "application/json")
	if st.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+st.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", sync.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("store %s: read response: %w", st.Code, err)
	}

	return body, resp.StatusCode, nil
}

// Ensure RestStoreGateway implements RemoteStoreGateway
var _ sync.RemoteStoreGateway = (*RestStoreGateway)(nil)
