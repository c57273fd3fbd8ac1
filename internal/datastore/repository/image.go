package repository

import (
	"context"

	"github.com/tphakala/partdetect/internal/datastore/entities"
)

// ImageRepository manages relabel images. All relabel queries are scoped to
// (project, part, is_relabel = true) and ordered oldest first by
// (timestamp, id).
type ImageRepository interface {
	Create(ctx context.Context, img *entities.Image) error
	CountRelabel(ctx context.Context, projectID, partID uint) (int64, error)
	// OldestRelabel returns up to limit relabel images, oldest first.
	OldestRelabel(ctx context.Context, projectID, partID uint, limit int) ([]entities.Image, error)
	ListRelabel(ctx context.Context, projectID, partID uint) ([]entities.Image, error)
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
	// Transaction runs fn against a repository bound to a single transaction.
	Transaction(ctx context.Context, fn func(ImageRepository) error) error
}
