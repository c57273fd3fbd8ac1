package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/datastore/entities"
)

// ScenarioRepository lists the preset part detection scenarios.
type ScenarioRepository interface {
	List(ctx context.Context) ([]entities.PDScenario, error)
}

type scenarioRepository struct {
	db *gorm.DB
}

// NewScenarioRepository creates a new ScenarioRepository.
func NewScenarioRepository(db *gorm.DB) ScenarioRepository {
	return &scenarioRepository{db: db}
}

func (r *scenarioRepository) List(ctx context.Context) ([]entities.PDScenario, error) {
	var scenarios []entities.PDScenario
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&scenarios).Error; err != nil {
		return nil, err
	}
	return scenarios, nil
}
