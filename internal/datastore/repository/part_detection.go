package repository

import (
	"context"

	"github.com/tphakala/partdetect/internal/datastore/entities"
)

// PartDetectionRepository provides access to part detection configurations.
// Get and List preload Project, InferenceModule, Camera, Cameras and Parts.
type PartDetectionRepository interface {
	Get(ctx context.Context, id uint) (*entities.PartDetection, error)
	List(ctx context.Context) ([]entities.PartDetection, error)
	// ListConfiguredByProject returns the configured part detections of a project.
	ListConfiguredByProject(ctx context.Context, projectID uint) ([]entities.PartDetection, error)
	Create(ctx context.Context, pd *entities.PartDetection) error
	MarkConfigured(ctx context.Context, id uint) error
	UpdateProbThreshold(ctx context.Context, id uint, threshold int) error
}
