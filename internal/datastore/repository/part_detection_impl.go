package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/errors"
)

// partDetectionRepository implements PartDetectionRepository.
type partDetectionRepository struct {
	db *gorm.DB
}

// NewPartDetectionRepository creates a new PartDetectionRepository.
func NewPartDetectionRepository(db *gorm.DB) PartDetectionRepository {
	return &partDetectionRepository{db: db}
}

func (r *partDetectionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Project").
		Preload("InferenceModule").
		Preload("Camera").
		Preload("Cameras").
		Preload("Parts")
}

func (r *partDetectionRepository) Get(ctx context.Context, id uint) (*entities.PartDetection, error) {
	var pd entities.PartDetection
	err := r.preloaded(ctx).First(&pd, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPartDetectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pd, nil
}

func (r *partDetectionRepository) List(ctx context.Context) ([]entities.PartDetection, error) {
	var pds []entities.PartDetection
	if err := r.preloaded(ctx).Order("id ASC").Find(&pds).Error; err != nil {
		return nil, err
	}
	return pds, nil
}

func (r *partDetectionRepository) ListConfiguredByProject(ctx context.Context, projectID uint) ([]entities.PartDetection, error) {
	var pds []entities.PartDetection
	err := r.preloaded(ctx).
		Where("project_id = ? AND has_configured = ?", projectID, true).
		Order("id ASC").
		Find(&pds).Error
	if err != nil {
		return nil, err
	}
	return pds, nil
}

func (r *partDetectionRepository) Create(ctx context.Context, pd *entities.PartDetection) error {
	if pd == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(pd).Error
}

func (r *partDetectionRepository) MarkConfigured(ctx context.Context, id uint) error {
	return r.updateColumn(ctx, id, "has_configured", true)
}

func (r *partDetectionRepository) UpdateProbThreshold(ctx context.Context, id uint, threshold int) error {
	return r.updateColumn(ctx, id, "prob_threshold", threshold)
}

// updateColumn writes one column, including zero values.
func (r *partDetectionRepository) updateColumn(ctx context.Context, id uint, column string, value any) error {
	result := r.db.WithContext(ctx).
		Model(&entities.PartDetection{}).
		Where("id = ?", id).
		Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPartDetectionNotFound
	}
	return nil
}
