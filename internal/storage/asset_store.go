// Package storage persists generated media assets and returns their public
// URLs. Assets live under stories/<storyID>/ in a single bucket.
package storage

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"storybook-server/internal/model"
)

// AssetStore uploads a media asset and returns its public URL.
type AssetStore interface {
	Upload(ctx context.Context, storyID string, path string, data []byte, contentType string) (string, error)
}

type firebaseAssetStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
	logger     *zap.Logger
}

// NewFirebaseAssetStore resolves the configured default bucket from the
// Firebase app.
func NewFirebaseAssetStore(ctx context.Context, app *firebase.App, bucketName string, logger *zap.Logger) (AssetStore, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bucket %q: %w", bucketName, err)
	}
	return &firebaseAssetStore{
		bucket:     bucket,
		bucketName: bucketName,
		logger:     logger,
	}, nil
}

func (s *firebaseAssetStore) Upload(ctx context.Context, storyID string, path string, data []byte, contentType string) (string, error) {
	objectPath := fmt.Sprintf("stories/%s/%s", storyID, path)
	obj := s.bucket.Object(objectPath)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("%w: write %s: %v", model.ErrAssetUploadFailed, objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %v", model.ErrAssetUploadFailed, objectPath, err)
	}

	// Readers fetch assets directly by URL, without signed tokens.
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		return "", fmt.Errorf("%w: set ACL on %s: %v", model.ErrAssetUploadFailed, objectPath, err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, objectPath)
	s.logger.Debug("asset uploaded",
		zap.String("object", objectPath),
		zap.Int("size_bytes", len(data)),
	)
	return url, nil
}
