package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/errors"
)

// ProjectRepository reads projects and records training completion.
type ProjectRepository interface {
	Get(ctx context.Context, id uint) (*entities.Project, error)
	MarkTrained(ctx context.Context, id uint, trained bool) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Get(ctx context.Context, id uint) (*entities.Project, error) {
	var project entities.Project
	err := r.db.WithContext(ctx).First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) MarkTrained(ctx context.Context, id uint, trained bool) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Project{}).
		Where("id = ?", id).
		Update("is_trained", trained)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}
