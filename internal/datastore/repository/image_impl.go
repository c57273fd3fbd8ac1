package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/datastore/entities"
)

const relabelScope = "project_id = ? AND part_id = ? AND is_relabel = ?"

// imageRepository implements ImageRepository.
type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, img *entities.Image) error {
	if img == nil || img.ProjectID == 0 || img.PartID == 0 {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *imageRepository) CountRelabel(ctx context.Context, projectID, partID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Image{}).
		Where(relabelScope, projectID, partID, true).
		Count(&count).Error
	return count, err
}

func (r *imageRepository) OldestRelabel(ctx context.Context, projectID, partID uint, limit int) ([]entities.Image, error) {
	if limit <= 0 {
		return nil, nil
	}
	var images []entities.Image
	err := r.relabelOrdered(ctx, projectID, partID).Limit(limit).Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (r *imageRepository) ListRelabel(ctx context.Context, projectID, partID uint) ([]entities.Image, error) {
	var images []entities.Image
	if err := r.relabelOrdered(ctx, projectID, partID).Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (r *imageRepository) relabelOrdered(ctx context.Context, projectID, partID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Where(relabelScope, projectID, partID, true).
		Order("timestamp ASC").
		Order("id ASC")
}

func (r *imageRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Delete(&entities.Image{}, ids)
	return result.RowsAffected, result.Error
}

func (r *imageRepository) Transaction(ctx context.Context, fn func(ImageRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&imageRepository{db: tx})
	})
}
