package training

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
	"github.com/tphakala/partdetect/internal/partdetection"
)

// Status is the training progress of a project.
type Status struct {
	ProjectID   uint                `json:"project_id"`
	Stage       partdetection.Stage `json:"-"`
	Status      string              `json:"status"`
	Log         string              `json:"log"`
	Performance string              `json:"performance,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// StatusStore records training stages per project. Writes are checked
// against partdetection.CanTransition and published on success.
type StatusStore struct {
	repo      repository.TrainingStatusRepository
	publisher Publisher
	log       logger.Logger

	// mu serialises the read-check-write of UpsertStatus.
	mu sync.Mutex
}

// NewStatusStore creates a StatusStore. publisher and log may be nil.
func NewStatusStore(repo repository.TrainingStatusRepository, publisher Publisher, log logger.Logger) *StatusStore {
	return &StatusStore{
		repo:      repo,
		publisher: orNopPublisher(publisher),
		log:       orDefaultLogger(log),
	}
}

// UpsertStatus moves the project to stage. A project without a status row
// starts from NOT_STARTED. Moves rejected by CanTransition return a
// CategoryState error and leave the row unchanged.
func (s *StatusStore) UpsertStatus(ctx context.Context, projectID uint, stage partdetection.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.currentStage(ctx, projectID)
	if err != nil {
		return err
	}
	if !partdetection.CanTransition(current, stage) {
		return errors.Newf("training status of project %d cannot move from %s to %s", projectID, current, stage).
			Component("training").
			Category(errors.CategoryState).
			Context("project_id", projectID).
			Context("from", current.String()).
			Context("to", stage.String()).
			Build()
	}

	if err := s.repo.Upsert(ctx, projectID, stage.String(), stage.Log()); err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryDatabase).
			Context("operation", "upsert_training_status").
			Context("project_id", projectID).
			Build()
	}

	s.log.Info("training status changed",
		logger.Uint("project_id", projectID),
		logger.String("from", current.String()),
		logger.String("to", stage.String()))

	publish(ctx, s.publisher, s.log, &Event{
		Kind:      EventTraining,
		ProjectID: projectID,
		Status:    stage.String(),
		Log:       stage.Log(),
	})
	return nil
}

// GetStatus returns the training status of a project.
func (s *StatusStore) GetStatus(ctx context.Context, projectID uint) (*Status, error) {
	row, err := s.repo.Get(ctx, projectID)
	if errors.Is(err, repository.ErrTrainingStatusNotFound) {
		return nil, errors.Newf("training status for project %d not found", projectID).
			Component("training").
			Category(errors.CategoryNotFound).
			Context("project_id", projectID).
			Build()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("training").
			Category(errors.CategoryDatabase).
			Context("operation", "get_training_status").
			Build()
	}

	stage, err := partdetection.ParseStage(row.Status)
	if err != nil {
		s.log.Warn("unknown stored training stage",
			logger.Uint("project_id", projectID),
			logger.String("status", row.Status))
	}
	return &Status{
		ProjectID:   row.ProjectID,
		Stage:       stage,
		Status:      row.Status,
		Log:         row.Log,
		Performance: row.Performance,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (s *StatusStore) currentStage(ctx context.Context, projectID uint) (partdetection.Stage, error) {
	row, err := s.repo.Get(ctx, projectID)
	if errors.Is(err, repository.ErrTrainingStatusNotFound) {
		return partdetection.StageNotStarted, nil
	}
	if err != nil {
		return 0, errors.New(err).
			Component("training").
			Category(errors.CategoryDatabase).
			Context("operation", "get_training_status").
			Build()
	}
	stage, err := partdetection.ParseStage(row.Status)
	if err != nil {
		// Unknown rows are treated as a fresh start.
		return partdetection.StageNotStarted, nil
	}
	return stage, nil
}
