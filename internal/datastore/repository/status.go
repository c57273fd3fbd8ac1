package repository

import (
	"context"

	"github.com/tphakala/partdetect/internal/datastore/entities"
)

// TrainingStatusRepository stores one training status row per project.
type TrainingStatusRepository interface {
	Get(ctx context.Context, projectID uint) (*entities.TrainingStatus, error)
	// Upsert writes status and log, creating the row on first use.
	Upsert(ctx context.Context, projectID uint, status, log string) error
}

// DeployStatusRepository stores one deploy status row per part detection.
type DeployStatusRepository interface {
	Get(ctx context.Context, partDetectionID uint) (*entities.DeployStatus, error)
	Upsert(ctx context.Context, partDetectionID uint, status, log string) error
}
