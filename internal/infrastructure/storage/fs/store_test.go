package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/storage/fs"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

func TestNewStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	_, err := fs.NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = fs.NewStore("  ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInternal))
}

func TestModelRoundTrip(t *testing.T) {
	store, err := fs.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.PutModel(ctx, "prod_001", []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, "prod_001.model", filepath.Base(path))

	blob, err := store.GetModel(ctx, "prod_001")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, blob)

	_, err = store.GetModel(ctx, "prod_002")
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))
}

func TestMetricsRoundTrip(t *testing.T) {
	store, err := fs.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutMetrics(ctx, "prod_001", []byte(`{"accuracy":91.5}`)))

	blob, err := store.GetMetrics(ctx, "prod_001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"accuracy":91.5}`, string(blob))

	_, err = store.GetMetrics(ctx, "prod_002")
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))
}

func TestListProducts(t *testing.T) {
	store, err := fs.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ids, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = store.PutModel(ctx, "prod_002", []byte{0x01})
	require.NoError(t, err)
	_, err = store.PutModel(ctx, "prod_001", []byte{0x01})
	require.NoError(t, err)
	// Metrics sidecars must not show up as products.
	require.NoError(t, store.PutMetrics(ctx, "prod_003", []byte(`{}`)))

	ids, err = store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"prod_001", "prod_002"}, ids)
}

func TestRejectsPathEscapes(t *testing.T) {
	store, err := fs.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"", "../evil", "a/b", `a\b`} {
		_, err := store.PutModel(ctx, id, []byte{0x01})
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), "id %q", id)
	}
}
