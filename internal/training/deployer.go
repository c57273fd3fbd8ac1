package training

import (
	"context"

	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
	"github.com/tphakala/partdetect/internal/partdetection"
)

const waitingForTraining = "Waiting for training"

// ConfigLister loads part detections with their project and inference
// module preloaded.
type ConfigLister interface {
	Get(ctx context.Context, id uint) (*entities.PartDetection, error)
	ListConfiguredByProject(ctx context.Context, projectID uint) ([]entities.PartDetection, error)
}

// DeployerDeps are the collaborators of a Deployer. Publisher and Logger
// are optional.
type DeployerDeps struct {
	Configs   ConfigLister
	Projects  repository.ProjectRepository
	Deploys   repository.DeployStatusRepository
	Status    StageRecorder
	Publisher Publisher
	Logger    logger.Logger
}

// Deployer deploys trained models to inference modules and handles the
// completion signals of the training and deployment subsystems.
type Deployer struct {
	configs   ConfigLister
	projects  repository.ProjectRepository
	deploys   repository.DeployStatusRepository
	status    StageRecorder
	publisher Publisher
	log       logger.Logger
}

// NewDeployer creates a Deployer.
func NewDeployer(deps DeployerDeps) *Deployer {
	return &Deployer{
		configs:   deps.Configs,
		projects:  deps.Projects,
		deploys:   deps.Deploys,
		status:    deps.Status,
		publisher: orNopPublisher(deps.Publisher),
		log:       orDefaultLogger(deps.Logger),
	}
}

// DeployIfTrained starts deployment of configID when its project has a
// trained model. Otherwise deployment is deferred until CompleteTraining
// and a NOT_STARTED deploy status is created if none exists.
func (d *Deployer) DeployIfTrained(ctx context.Context, configID uint) error {
	pd, err := d.loadConfig(ctx, configID)
	if err != nil {
		return err
	}
	if pd.Project == nil {
		return errors.Newf("part detection %d has no project", configID).
			Component("training").
			Category(errors.CategoryPrecondition).
			Build()
	}

	log := d.log.WithContext(ctx).With(
		logger.Uint("part_detection_id", configID),
		logger.Uint("project_id", pd.Project.ID))

	if !pd.Project.IsTrained {
		_, err := d.deploys.Get(ctx, configID)
		switch {
		case errors.Is(err, repository.ErrDeployStatusNotFound):
			if err := d.deploys.Upsert(ctx, configID, partdetection.StageNotStarted.String(), waitingForTraining); err != nil {
				return dbError(err, "upsert_deploy_status")
			}
		case err != nil:
			return dbError(err, "get_deploy_status")
		}
		log.Debug("project not trained, deployment deferred")
		return nil
	}

	stage := partdetection.StageDeploying
	if err := d.deploys.Upsert(ctx, configID, stage.String(), stage.Log()); err != nil {
		return dbError(err, "upsert_deploy_status")
	}

	ev := &Event{
		Kind:            EventDeploy,
		ProjectID:       pd.Project.ID,
		PartDetectionID: configID,
		Status:          stage.String(),
		Log:             stage.Log(),
		ModelURI:        pd.Project.DownloadURI,
	}
	if pd.InferenceModule != nil {
		ev.ModuleURL = pd.InferenceModule.URL
	}
	publish(ctx, d.publisher, log, ev)

	log.Info("deployment started")
	return nil
}

// CompleteTraining records the outcome of a training run. On success the
// project is marked trained and every configured part detection of the
// project is deployed.
func (d *Deployer) CompleteTraining(ctx context.Context, projectID uint, ok bool) error {
	if _, err := d.projects.Get(ctx, projectID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return notFound("project %d not found", projectID)
		}
		return dbError(err, "get_project")
	}

	if !ok {
		return d.status.UpsertStatus(ctx, projectID, partdetection.StageFailed)
	}
	if err := d.status.UpsertStatus(ctx, projectID, partdetection.StageTrained); err != nil {
		return err
	}
	if err := d.projects.MarkTrained(ctx, projectID, true); err != nil {
		return dbError(err, "mark_project_trained")
	}

	configs, err := d.configs.ListConfiguredByProject(ctx, projectID)
	if err != nil {
		return dbError(err, "list_configured_part_detections")
	}

	var errs []error
	for i := range configs {
		if err := d.DeployIfTrained(ctx, configs[i].ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CompleteDeployment records the outcome of a deployment started by
// DeployIfTrained.
func (d *Deployer) CompleteDeployment(ctx context.Context, configID uint, ok bool) error {
	current, err := d.deploys.Get(ctx, configID)
	if errors.Is(err, repository.ErrDeployStatusNotFound) {
		return notFound("deploy status for part detection %d not found", configID)
	}
	if err != nil {
		return dbError(err, "get_deploy_status")
	}
	if current.Status != partdetection.StageDeploying.String() {
		return errors.Newf("part detection %d is not deploying, status is %s", configID, current.Status).
			Component("training").
			Category(errors.CategoryState).
			Build()
	}

	stage := partdetection.StageDeployed
	if !ok {
		stage = partdetection.StageFailed
	}
	if err := d.deploys.Upsert(ctx, configID, stage.String(), stage.Log()); err != nil {
		return dbError(err, "upsert_deploy_status")
	}

	publish(ctx, d.publisher, d.log, &Event{
		Kind:            EventDeploy,
		PartDetectionID: configID,
		Status:          stage.String(),
		Log:             stage.Log(),
	})
	return nil
}

func (d *Deployer) loadConfig(ctx context.Context, configID uint) (*entities.PartDetection, error) {
	pd, err := d.configs.Get(ctx, configID)
	if errors.Is(err, repository.ErrPartDetectionNotFound) {
		return nil, notFound("part detection %d not found", configID)
	}
	if err != nil {
		return nil, dbError(err, "load_part_detection")
	}
	return pd, nil
}
