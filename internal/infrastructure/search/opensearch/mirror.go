package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/vlxd-platform/market-intelligence/internal/application/search"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

const defaultIndex = "vlxd-products"

// productMapping keeps category and brand as keywords for faceting while the
// text fields use the standard analyzer, which handles Vietnamese tokens
// adequately for term-level matching.
const productMapping = `{
	"settings": {"number_of_shards": 1, "number_of_replicas": 1},
	"mappings": {
		"properties": {
			"name":           {"type": "text"},
			"description":    {"type": "text"},
			"specifications": {"type": "text"},
			"category":       {"type": "keyword"},
			"brand":          {"type": "keyword"},
			"price":          {"type": "double"},
			"in_stock":       {"type": "boolean"}
		}
	}
}`

// ---------------------------------------------------------------------------
// ProductMirror
// ---------------------------------------------------------------------------

// MirrorConfig controls the product mirror index.
type MirrorConfig struct {
	Index string `mapstructure:"index"`
}

// ProductMirror copies the indexed product catalog into OpenSearch. It
// implements the search service's keyword indexer port.
type ProductMirror struct {
	client *Client
	index  string
	logger logging.Logger
}

var _ search.KeywordIndexer = (*ProductMirror)(nil)

// NewProductMirror creates the mirror. Call EnsureIndex before first use.
func NewProductMirror(c *Client, cfg MirrorConfig, log logging.Logger) *ProductMirror {
	if log == nil {
		log = logging.NewNopLogger()
	}
	index := cfg.Index
	if index == "" {
		index = defaultIndex
	}
	return &ProductMirror{client: c, index: index, logger: log.Named("product-mirror")}
}

// EnsureIndex creates the product index when it does not exist yet.
func (m *ProductMirror) EnsureIndex(ctx context.Context) error {
	resp, err := m.client.API().Indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{m.index}})
	if resp != nil && resp.StatusCode == 200 {
		return nil
	}
	if resp == nil && err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check index")
	}

	_, err = m.client.API().Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: m.index,
		Body:  strings.NewReader(productMapping),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create index")
	}

	m.logger.Info("Product index created", logging.String("index", m.index))
	return nil
}

// IndexProducts bulk-upserts products into the mirror index.
func (m *ProductMirror) IndexProducts(ctx context.Context, products []search.Product) error {
	if len(products) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, p := range products {
		if p.ID == "" {
			return errors.NewValidationError("id", "product id is required")
		}
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, m.index, p.ID)
		body.WriteString(meta)
		body.WriteByte('\n')

		inStock := true
		if p.InStock != nil {
			inStock = *p.InStock
		}
		doc, err := json.Marshal(map[string]interface{}{
			"name":           p.Name,
			"description":    p.Description,
			"specifications": p.Specifications,
			"category":       p.Category,
			"brand":          p.Brand,
			"price":          p.Price,
			"in_stock":       inStock,
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode product")
		}
		body.Write(doc)
		body.WriteByte('\n')
	}

	resp, err := m.client.API().Bulk(ctx, opensearchapi.BulkReq{Body: &body})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "bulk indexing failed")
	}
	if resp.Errors {
		for _, item := range resp.Items {
			for _, result := range item {
				if result.Error != nil {
					m.logger.Warn("Bulk item failed",
						logging.String("id", result.ID),
						logging.String("reason", result.Error.Reason))
				}
			}
		}
		return errors.New(errors.ErrCodeInternal, "some products were not mirrored")
	}

	m.logger.Debug("Products mirrored", logging.Int("count", len(products)))
	return nil
}

// DeleteProducts removes products from the mirror index. Missing documents
// are not an error.
func (m *ProductMirror) DeleteProducts(ctx context.Context, ids []string) error {
	for _, id := range ids {
		resp, err := m.client.API().Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
			Index: m.index, DocumentID: id,
		})
		if err != nil {
			if resp != nil && resp.Inspect().Response.StatusCode == 404 {
				continue
			}
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to delete product")
		}
	}
	return nil
}

// Match is one keyword search hit from the mirror.
type Match struct {
	ID    string
	Score float64
}

// Search runs a multi-field match query and returns ranked product ids.
func (m *ProductMirror) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError("query", "query is required")
	}
	if limit <= 0 {
		limit = 20
	}

	body, err := json.Marshal(map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^2", "description", "specifications"},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode query")
	}

	resp, err := m.client.API().Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{m.index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "keyword search failed")
	}

	matches := make([]Match, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		matches = append(matches, Match{ID: hit.ID, Score: float64(hit.Score)})
	}
	return matches, nil
}
