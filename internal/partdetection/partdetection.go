// Package partdetection implements the part detection workflow: configuring
// a part detection for training and deployment, admitting relabel images
// into a bounded per-part pool, and reporting deployment status together
// with live inference metrics.
package partdetection

import (
	"context"
	"time"

	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

// ConfigStore loads and mutates part detections. Get must preload the
// project, inference module, cameras and parts.
type ConfigStore interface {
	Get(ctx context.Context, id uint) (*entities.PartDetection, error)
	MarkConfigured(ctx context.Context, id uint) error
	UpdateProbThreshold(ctx context.Context, id uint, threshold int) error
}

// DeployStatusReader looks up the deploy status of a part detection.
type DeployStatusReader interface {
	Get(ctx context.Context, partDetectionID uint) (*entities.DeployStatus, error)
}

// StatusUpdater writes the training progress stage of a project.
type StatusUpdater interface {
	UpsertStatus(ctx context.Context, projectID uint, stage Stage) error
}

// Trainer starts remote training. It returns immediately; outcome is
// observed through the training status.
type Trainer interface {
	TrainProject(ctx context.Context, projectID uint)
}

// Deployer deploys a part detection if its project has been trained and
// defers otherwise.
type Deployer interface {
	DeployIfTrained(ctx context.Context, configID uint) error
}

// CameraSyncer pushes the camera set of a part detection to the edge.
type CameraSyncer interface {
	SyncCameras(ctx context.Context, configID uint) error
}

// MetricsFetcher reads live metrics from an inference module.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context, endpointURL string) (*Metrics, error)
}

// Recorder receives workflow outcomes for metrics.
type Recorder interface {
	RecordAdmission(decision string)
	RecordEvictions(n int)
	RecordMetricsFetch(elapsed time.Duration, outcome string)
	RecordConfigure(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAdmission(string)                   {}
func (nopRecorder) RecordEvictions(int)                      {}
func (nopRecorder) RecordMetricsFetch(time.Duration, string) {}
func (nopRecorder) RecordConfigure(string)                   {}

// GetLogger returns the partdetection module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("partdetection")
}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func orDefaultLogger(log logger.Logger) logger.Logger {
	if log == nil {
		return GetLogger()
	}
	return log
}

// loadConfig fetches a part detection, mapping a missing row to KindNotFound.
func loadConfig(ctx context.Context, configs ConfigStore, id uint) (*entities.PartDetection, error) {
	pd, err := configs.Get(ctx, id)
	if errors.Is(err, repository.ErrPartDetectionNotFound) {
		return nil, errorf(KindNotFound, "part detection %d not found", id)
	}
	if err != nil {
		return nil, errors.New(err).
			Component("partdetection").
			Category(errors.CategoryDatabase).
			Context("operation", "load_part_detection").
			Context("part_detection_id", id).
			Build()
	}
	return pd, nil
}
