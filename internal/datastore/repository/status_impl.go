package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/errors"
)

var statusUpdateColumns = []string{"status", "log", "updated_at"}

// trainingStatusRepository implements TrainingStatusRepository.
type trainingStatusRepository struct {
	db *gorm.DB
}

// NewTrainingStatusRepository creates a new TrainingStatusRepository.
func NewTrainingStatusRepository(db *gorm.DB) TrainingStatusRepository {
	return &trainingStatusRepository{db: db}
}

func (r *trainingStatusRepository) Get(ctx context.Context, projectID uint) (*entities.TrainingStatus, error) {
	var status entities.TrainingStatus
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTrainingStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *trainingStatusRepository) Upsert(ctx context.Context, projectID uint, status, log string) error {
	if projectID == 0 || status == "" {
		return ErrInvalidInput
	}
	row := entities.TrainingStatus{
		ProjectID: projectID,
		Status:    status,
		Log:       log,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}},
			DoUpdates: clause.AssignmentColumns(statusUpdateColumns),
		}).
		Create(&row).Error
}

// deployStatusRepository implements DeployStatusRepository.
type deployStatusRepository struct {
	db *gorm.DB
}

// NewDeployStatusRepository creates a new DeployStatusRepository.
func NewDeployStatusRepository(db *gorm.DB) DeployStatusRepository {
	return &deployStatusRepository{db: db}
}

func (r *deployStatusRepository) Get(ctx context.Context, partDetectionID uint) (*entities.DeployStatus, error) {
	var status entities.DeployStatus
	err := r.db.WithContext(ctx).Where("part_detection_id = ?", partDetectionID).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeployStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *deployStatusRepository) Upsert(ctx context.Context, partDetectionID uint, status, log string) error {
	if partDetectionID == 0 || status == "" {
		return ErrInvalidInput
	}
	row := entities.DeployStatus{
		PartDetectionID: partDetectionID,
		Status:          status,
		Log:             log,
		UpdatedAt:       time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "part_detection_id"}},
			DoUpdates: clause.AssignmentColumns(statusUpdateColumns),
		}).
		Create(&row).Error
}
