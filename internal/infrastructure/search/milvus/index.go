package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/vectorstore"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// ProductIndex
// ---------------------------------------------------------------------------

// IndexConfig controls the product collection layout and search behavior.
type IndexConfig struct {
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
	MaxTopK    int    `mapstructure:"max_top_k"`
	EfSearch   int    `mapstructure:"ef_search"`
}

func applyIndexDefaults(cfg *IndexConfig) {
	if cfg.Collection == "" {
		cfg.Collection = "products"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 384
	}
	if cfg.MaxTopK == 0 {
		cfg.MaxTopK = 1000
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}
}

// ProductIndex is the Milvus-backed vector index for product embeddings.
// Filterable attributes are stored as scalar fields so filtering happens
// server-side; the full metadata travels as a JSON payload column.
type ProductIndex struct {
	client *Client
	config IndexConfig
	logger logging.Logger
}

var _ vectorstore.VectorIndex = (*ProductIndex)(nil)

// NewProductIndex creates the index handle. Call EnsureCollection before the
// first upsert or search.
func NewProductIndex(c *Client, cfg IndexConfig, log logging.Logger) *ProductIndex {
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyIndexDefaults(&cfg)
	return &ProductIndex{client: c, config: cfg, logger: log.Named("product-index")}
}

// EnsureCollection creates, indexes and loads the product collection when it
// does not exist yet.
func (p *ProductIndex) EnsureCollection(ctx context.Context) error {
	mc := p.client.Milvus()

	exists, err := mc.HasCollection(ctx, p.config.Collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check collection")
	}
	if exists {
		return mc.LoadCollection(ctx, p.config.Collection, false)
	}

	schema := &entity.Schema{
		CollectionName: p.config.Collection,
		Description:    "product embeddings for semantic search",
		Fields: []*entity.Field{
			entity.NewField().WithName("id").WithDataType(entity.FieldTypeVarChar).
				WithIsPrimaryKey(true).WithMaxLength(128),
			entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(p.config.Dimension)),
			entity.NewField().WithName("category").WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(256),
			entity.NewField().WithName("price").WithDataType(entity.FieldTypeDouble),
			entity.NewField().WithName("in_stock").WithDataType(entity.FieldTypeBool),
			entity.NewField().WithName("metadata").WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(65535),
		},
	}
	if err := mc.CreateCollection(ctx, schema, 2); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create collection")
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build index definition")
	}
	if err := mc.CreateIndex(ctx, p.config.Collection, "vector", idx, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create index")
	}
	if err := mc.LoadCollection(ctx, p.config.Collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to load collection")
	}

	p.logger.Info("Product collection created",
		logging.String("collection", p.config.Collection),
		logging.Int("dimension", p.config.Dimension))
	return nil
}

// Upsert writes documents into the collection, replacing matching ids.
func (p *ProductIndex) Upsert(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	vectors := make([][]float32, len(docs))
	categories := make([]string, len(docs))
	prices := make([]float64, len(docs))
	inStock := make([]bool, len(docs))
	payloads := make([]string, len(docs))

	for i, doc := range docs {
		if doc.ID == "" {
			return errors.NewValidationError("id", "document id is required")
		}
		if len(doc.Vector) != p.config.Dimension {
			return errors.NewValidationError("vector",
				fmt.Sprintf("expected dimension %d, got %d", p.config.Dimension, len(doc.Vector)))
		}
		ids[i] = doc.ID
		vectors[i] = toFloat32(doc.Vector)
		categories[i], _ = doc.Metadata["category"].(string)
		prices[i] = metaFloat(doc.Metadata, "price")
		inStock[i], _ = doc.Metadata["inStock"].(bool)

		payload, err := json.Marshal(doc.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode metadata")
		}
		payloads[i] = string(payload)
	}

	_, err := p.client.Milvus().Upsert(ctx, p.config.Collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("vector", p.config.Dimension, vectors),
		entity.NewColumnVarChar("category", categories),
		entity.NewColumnDouble("price", prices),
		entity.NewColumnBool("in_stock", inStock),
		entity.NewColumnVarChar("metadata", payloads),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to upsert documents")
	}

	p.logger.Debug("Documents upserted", logging.Int("count", len(docs)))
	return nil
}

// Delete removes documents by id. Unknown ids are ignored by Milvus.
func (p *ProductIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	expr := fmt.Sprintf("id in [%s]", strings.Join(quoted, ","))

	if err := p.client.Milvus().Delete(ctx, p.config.Collection, "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to delete documents")
	}
	return nil
}

// Search returns the topK nearest documents, optionally constrained by the
// filter, scored by cosine similarity.
func (p *ProductIndex) Search(ctx context.Context, vector []float64, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	if len(vector) != p.config.Dimension {
		return nil, errors.NewValidationError("vector",
			fmt.Sprintf("expected dimension %d, got %d", p.config.Dimension, len(vector)))
	}
	if topK <= 0 {
		return nil, errors.NewValidationError("topK", "must be greater than zero")
	}
	if topK > p.config.MaxTopK {
		topK = p.config.MaxTopK
	}

	sp, err := entity.NewIndexHNSWSearchParam(p.config.EfSearch)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build search params")
	}

	results, err := p.client.Milvus().Search(ctx, p.config.Collection, nil,
		buildFilterExpr(filter), []string{"metadata"},
		[]entity.Vector{entity.FloatVector(toFloat32(vector))},
		"vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "vector search failed")
	}

	var matches []vectorstore.Match
	for _, result := range results {
		batch, err := p.convertResult(result)
		if err != nil {
			return nil, err
		}
		matches = append(matches, batch...)
	}
	return matches, nil
}

// Count returns the number of stored documents.
func (p *ProductIndex) Count(ctx context.Context) (int, error) {
	stats, err := p.client.Milvus().GetCollectionStatistics(ctx, p.config.Collection)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to read collection statistics")
	}
	count, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "unexpected row_count statistic")
	}
	return count, nil
}

func (p *ProductIndex) convertResult(result client.SearchResult) ([]vectorstore.Match, error) {
	idCol, ok := result.IDs.(*entity.ColumnVarChar)
	if !ok {
		return nil, errors.New(errors.ErrCodeInternal, "unexpected id column type")
	}

	var metaCol *entity.ColumnVarChar
	for _, col := range result.Fields {
		if col.Name() == "metadata" {
			metaCol, _ = col.(*entity.ColumnVarChar)
		}
	}

	matches := make([]vectorstore.Match, 0, result.ResultCount)
	for i, id := range idCol.Data() {
		match := vectorstore.Match{ID: id}
		if i < len(result.Scores) {
			match.Score = float64(result.Scores[i])
		}
		if metaCol != nil && i < len(metaCol.Data()) {
			var meta map[string]interface{}
			if err := json.Unmarshal([]byte(metaCol.Data()[i]), &meta); err == nil {
				match.Metadata = meta
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// buildFilterExpr translates the port filter into a Milvus boolean expression.
// An empty string means no server-side filtering.
func buildFilterExpr(filter *vectorstore.Filter) string {
	if filter == nil {
		return ""
	}

	var clauses []string
	if filter.Category != "" {
		clauses = append(clauses, fmt.Sprintf("category == %s", strconv.Quote(filter.Category)))
	}
	if filter.MinPrice > 0 {
		clauses = append(clauses, fmt.Sprintf("price >= %g", filter.MinPrice))
	}
	if filter.MaxPrice > 0 {
		clauses = append(clauses, fmt.Sprintf("price <= %g", filter.MaxPrice))
	}
	if filter.InStock != nil {
		clauses = append(clauses, fmt.Sprintf("in_stock == %t", *filter.InStock))
	}
	return strings.Join(clauses, " && ")
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func metaFloat(meta map[string]interface{}, key string) float64 {
	switch v := meta[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
