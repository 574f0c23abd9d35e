// Package fs stores forecast model artifacts on the local filesystem.  It is
// the default artifact backend for single-node deployments; object storage
// replaces it in clustered ones.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

const (
	modelSuffix   = ".model"
	metricsSuffix = ".metrics.json"

	fileMode = 0o644
	dirMode  = 0o755
)

// Store keeps one <productID>.model blob and one <productID>.metrics.json
// sidecar per product in a flat directory.
type Store struct {
	dir string
}

// NewStore creates the directory if needed and returns the store.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New(errors.ErrCodeInternal, "fs store: directory is required")
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "fs store: creating directory failed")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) PutModel(_ context.Context, productID string, blob []byte) (string, error) {
	path, err := s.path(productID, modelSuffix)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, blob, fileMode); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "fs store: writing model failed")
	}
	return path, nil
}

func (s *Store) GetModel(_ context.Context, productID string) ([]byte, error) {
	path, err := s.path(productID, modelSuffix)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.ArtifactNotFound(productID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "fs store: reading model failed")
	}
	return blob, nil
}

func (s *Store) PutMetrics(_ context.Context, productID string, blob []byte) error {
	path, err := s.path(productID, metricsSuffix)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, blob, fileMode); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "fs store: writing metrics failed")
	}
	return nil
}

func (s *Store) GetMetrics(_ context.Context, productID string) ([]byte, error) {
	path, err := s.path(productID, metricsSuffix)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.ArtifactNotFound(productID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "fs store: reading metrics failed")
	}
	return blob, nil
}

// ListProducts returns the product ids with a stored model, sorted.
func (s *Store) ListProducts(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "fs store: listing directory failed")
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, modelSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, modelSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}

// path rejects ids that would escape the store directory.
func (s *Store) path(productID, suffix string) (string, error) {
	id := strings.TrimSpace(productID)
	if id == "" || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return "", errors.NewValidationError("productId", fmt.Sprintf("invalid product id %q", productID))
	}
	return filepath.Join(s.dir, id+suffix), nil
}
