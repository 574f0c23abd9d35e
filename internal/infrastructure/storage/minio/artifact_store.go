package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

const (
	modelSuffix   = ".model"
	metricsSuffix = ".metrics.json"

	modelContentType   = "application/octet-stream"
	metricsContentType = "application/json"
)

// ArtifactStore keeps forecast model blobs and metrics sidecars in the
// models bucket.  It is the clustered counterpart of the filesystem store.
type ArtifactStore struct {
	client *Client
	logger logging.Logger
}

func NewArtifactStore(client *Client, log logging.Logger) *ArtifactStore {
	return &ArtifactStore{client: client, logger: log.Named("artifacts")}
}

func (s *ArtifactStore) PutModel(ctx context.Context, productID string, blob []byte) (string, error) {
	key, err := objectKey(productID, modelSuffix)
	if err != nil {
		return "", err
	}
	bucket := s.client.ModelsBucket()
	_, err = s.client.API().PutObject(ctx, bucket, key,
		bytes.NewReader(blob), int64(len(blob)),
		minio.PutObjectOptions{ContentType: modelContentType})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "storing model artifact failed")
	}
	s.logger.Debug("Model artifact stored",
		logging.String("productId", productID),
		logging.Int("bytes", len(blob)))
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

func (s *ArtifactStore) GetModel(ctx context.Context, productID string) ([]byte, error) {
	key, err := objectKey(productID, modelSuffix)
	if err != nil {
		return nil, err
	}
	return s.readObject(ctx, productID, key)
}

func (s *ArtifactStore) PutMetrics(ctx context.Context, productID string, blob []byte) error {
	key, err := objectKey(productID, metricsSuffix)
	if err != nil {
		return err
	}
	_, err = s.client.API().PutObject(ctx, s.client.ModelsBucket(), key,
		bytes.NewReader(blob), int64(len(blob)),
		minio.PutObjectOptions{ContentType: metricsContentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "storing metrics sidecar failed")
	}
	return nil
}

func (s *ArtifactStore) GetMetrics(ctx context.Context, productID string) ([]byte, error) {
	key, err := objectKey(productID, metricsSuffix)
	if err != nil {
		return nil, err
	}
	return s.readObject(ctx, productID, key)
}

// ListProducts returns the product ids with a stored model, sorted.
func (s *ArtifactStore) ListProducts(ctx context.Context) ([]string, error) {
	var ids []string
	objects := s.client.API().ListObjects(ctx, s.client.ModelsBucket(), minio.ListObjectsOptions{Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeInternal, "listing model artifacts failed")
		}
		if strings.HasSuffix(obj.Key, modelSuffix) {
			ids = append(ids, strings.TrimSuffix(obj.Key, modelSuffix))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *ArtifactStore) readObject(ctx context.Context, productID, key string) ([]byte, error) {
	obj, err := s.client.API().GetObject(ctx, s.client.ModelsBucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "reading artifact failed")
	}
	defer obj.Close()

	blob, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, errors.ArtifactNotFound(productID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "reading artifact failed")
	}
	return blob, nil
}

// objectKey rejects ids that would nest or escape the flat key layout.
func objectKey(productID, suffix string) (string, error) {
	id := strings.TrimSpace(productID)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", errors.NewValidationError("productId", fmt.Sprintf("invalid product id %q", productID))
	}
	return id + suffix, nil
}
