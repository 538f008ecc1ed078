package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lifestyle-planner/internal/model"
)

// BlobStore keeps opaque JSON documents by key.
type BlobStore interface {
	// Load returns the stored document and whether it exists.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
}

// SQLiteBlobStore stores blobs in a single gorm-managed table.
type SQLiteBlobStore struct {
	db *gorm.DB
}

func NewSQLiteBlobStore(db *gorm.DB) *SQLiteBlobStore {
	return &SQLiteBlobStore{db: db}
}

func (r *SQLiteBlobStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var blob model.Blob
	err := r.db.WithContext(ctx).Where(&model.Blob{Key: key}).First(&blob).Error
	switch {
	case err == nil:
		return blob.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("load blob %q: %w", key, err)
	}
}

func (r *SQLiteBlobStore) Save(ctx context.Context, key string, data []byte) error {
	blob := model.Blob{Key: key, Value: data}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return fmt.Errorf("save blob %q: %w", key, err)
	}
	return nil
}
