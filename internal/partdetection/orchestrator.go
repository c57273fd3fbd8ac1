package partdetection

import (
	"context"
	"strconv"
	"strings"

	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

// Configure outcomes passed to Recorder.RecordConfigure.
const (
	configureOK       = "ok"
	configureRejected = "rejected"
	configureError    = "error"
)

// OrchestratorDeps are the collaborators of an Orchestrator. Recorder and
// Logger are optional.
type OrchestratorDeps struct {
	Configs  ConfigStore
	Status   StatusUpdater
	Trainer  Trainer
	Deployer Deployer
	Cameras  CameraSyncer
	Recorder Recorder
	Logger   logger.Logger
}

// Orchestrator drives a part detection through configuration, training and
// deployment.
type Orchestrator struct {
	configs  ConfigStore
	status   StatusUpdater
	trainer  Trainer
	deployer Deployer
	cameras  CameraSyncer
	recorder Recorder
	log      logger.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		configs:  deps.Configs,
		status:   deps.Status,
		trainer:  deps.Trainer,
		deployer: deps.Deployer,
		cameras:  deps.Cameras,
		recorder: orNop(deps.Recorder),
		log:      orDefaultLogger(deps.Logger),
	}
}

// Configure checks that configID has an inference module, a project and
// cameras, in that order, then marks it configured, starts training of the
// project and deploys if the project is already trained. It returns once the
// triggers have fired; callers poll the training and deploy status for the
// outcome.
func (o *Orchestrator) Configure(ctx context.Context, configID uint) error {
	err := o.configure(ctx, configID)
	switch {
	case err == nil:
		o.recorder.RecordConfigure(configureOK)
	case KindOf(err) != "":
		o.recorder.RecordConfigure(configureRejected)
	default:
		o.recorder.RecordConfigure(configureError)
	}
	return err
}

func (o *Orchestrator) configure(ctx context.Context, configID uint) error {
	pd, err := loadConfig(ctx, o.configs, configID)
	if err != nil {
		return err
	}

	if pd.InferenceModule == nil {
		return newError(KindConfigureWithoutInferenceModule, "", nil)
	}
	if pd.Project == nil {
		return newError(KindConfigureWithoutProject, "", nil)
	}
	// Missing cameras share the inference module kind; clients depend on it.
	if len(pd.Cameras) == 0 {
		return newError(KindConfigureWithoutInferenceModule, "part detection has no cameras", nil)
	}

	projectID := pd.Project.ID
	if err := o.status.UpsertStatus(ctx, projectID, StageFindingProject); err != nil {
		return err
	}
	if err := o.configs.MarkConfigured(ctx, pd.ID); err != nil {
		return errors.New(err).
			Component("partdetection").
			Category(errors.CategoryDatabase).
			Context("operation", "mark_configured").
			Context("part_detection_id", pd.ID).
			Build()
	}

	o.trainer.TrainProject(ctx, projectID)
	if err := o.deployer.DeployIfTrained(ctx, pd.ID); err != nil {
		return err
	}

	o.log.Info("part detection configured",
		logger.Uint("part_detection_id", pd.ID),
		logger.Uint("project_id", projectID),
		logger.Int("cameras", len(pd.Cameras)))
	return nil
}

// UpdateProbThreshold parses raw as an integer in [0, 100] and stores it as
// the bounding box threshold of configID.
func (o *Orchestrator) UpdateProbThreshold(ctx context.Context, configID uint, raw string) error {
	pd, err := loadConfig(ctx, o.configs, configID)
	if err != nil {
		return err
	}

	threshold, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return newError(KindProbThresholdNotInteger, "", nil)
	}
	if threshold < 0 || threshold > 100 {
		return errorf(KindProbThresholdOutOfRange, "prob_threshold must be between 0 and 100, got %d", threshold)
	}

	if err := o.configs.UpdateProbThreshold(ctx, pd.ID, threshold); err != nil {
		return errors.New(err).
			Component("partdetection").
			Category(errors.CategoryDatabase).
			Context("operation", "update_prob_threshold").
			Context("part_detection_id", pd.ID).
			Build()
	}

	o.log.Info("prob threshold updated",
		logger.Uint("part_detection_id", pd.ID),
		logger.Int("prob_threshold", threshold))
	return nil
}

// UpdateCamera asks the edge to resync the cameras of configID.
func (o *Orchestrator) UpdateCamera(ctx context.Context, configID uint) error {
	pd, err := loadConfig(ctx, o.configs, configID)
	if err != nil {
		return err
	}
	return o.cameras.SyncCameras(ctx, pd.ID)
}
