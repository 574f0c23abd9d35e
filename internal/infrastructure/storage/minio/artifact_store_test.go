package minio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/vlxd-platform/market-intelligence/pkg/errors"
)

func newTestStore(api API) *ArtifactStore {
	return NewArtifactStore(newTestClient(api), logging.NewNopLogger())
}

func TestArtifactStorePutModel(t *testing.T) {
	api := newMockAPI()
	store := newTestStore(api)

	path, err := store.PutModel(context.Background(), "prod_001", []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, "s3://vlxd-models/prod_001.model", path)
	assert.Equal(t, []byte{0x01, 0x02}, api.objects["prod_001.model"])
	assert.Equal(t, "application/octet-stream", api.contentType["prod_001.model"])
}

func TestArtifactStorePutModelWriteFailure(t *testing.T) {
	api := newMockAPI()
	api.putErr = assert.AnError
	store := newTestStore(api)

	_, err := store.PutModel(context.Background(), "prod_001", []byte{0x01})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInternal))
}

func TestArtifactStorePutMetrics(t *testing.T) {
	api := newMockAPI()
	store := newTestStore(api)

	require.NoError(t, store.PutMetrics(context.Background(), "prod_001", []byte(`{"accuracy":91.5}`)))
	assert.Equal(t, "application/json", api.contentType["prod_001.metrics.json"])
}

func TestArtifactStoreRejectsBadProductIDs(t *testing.T) {
	store := newTestStore(newMockAPI())

	for _, id := range []string{"", "a/b", `a\b`, "../evil"} {
		_, err := store.PutModel(context.Background(), id, []byte{0x01})
		assert.Error(t, err, "id %q", id)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation), "id %q", id)
	}
}

func TestArtifactStoreListProducts(t *testing.T) {
	api := newMockAPI()
	api.objects["prod_002.model"] = []byte{0x01}
	api.objects["prod_001.model"] = []byte{0x01}
	api.objects["prod_001.metrics.json"] = []byte("{}")
	store := newTestStore(api)

	ids, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"prod_001", "prod_002"}, ids)
}

func TestArtifactStoreListProductsFailure(t *testing.T) {
	api := newMockAPI()
	api.listErr = assert.AnError
	store := newTestStore(api)

	_, err := store.ListProducts(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInternal))
}
