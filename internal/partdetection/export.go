package partdetection

import (
	"context"

	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

// ExportSnapshot is the deployment status of a part detection combined with
// the live metrics of its inference module.
type ExportSnapshot struct {
	Status          string  `json:"status"`
	Log             string  `json:"log"`
	DownloadURI     string  `json:"download_uri"`
	SuccessRate     float64 `json:"success_rate"`
	InferenceNum    int     `json:"inference_num"`
	UnidentifiedNum int     `json:"unidentified_num"`
	GPU             bool    `json:"gpu"`
	AverageTime     float64 `json:"average_time"`
	Count           int     `json:"count"`
}

// ExportReporter builds export snapshots.
type ExportReporter struct {
	configs ConfigStore
	deploys DeployStatusReader
	metrics MetricsFetcher
	log     logger.Logger
}

// NewExportReporter creates an ExportReporter.
func NewExportReporter(configs ConfigStore, deploys DeployStatusReader, metrics MetricsFetcher, log logger.Logger) *ExportReporter {
	return &ExportReporter{
		configs: configs,
		deploys: deploys,
		metrics: metrics,
		log:     orDefaultLogger(log),
	}
}

// BuildExportSnapshot reports on configID. Any lookup or metrics failure
// fails the whole snapshot; partial values are never returned.
func (r *ExportReporter) BuildExportSnapshot(ctx context.Context, configID uint) (*ExportSnapshot, error) {
	pd, err := loadConfig(ctx, r.configs, configID)
	if err != nil {
		return nil, err
	}

	deploy, err := r.deploys.Get(ctx, pd.ID)
	if errors.Is(err, repository.ErrDeployStatusNotFound) {
		return nil, errorf(KindNotFound, "deploy status for part detection %d not found", pd.ID)
	}
	if err != nil {
		return nil, errors.New(err).
			Component("partdetection").
			Category(errors.CategoryDatabase).
			Context("operation", "load_deploy_status").
			Context("part_detection_id", pd.ID).
			Build()
	}

	if pd.Project == nil {
		return nil, newError(KindConfigureWithoutProject, "", nil)
	}
	if pd.InferenceModule == nil {
		return nil, newError(KindConfigureWithoutInferenceModule, "", nil)
	}

	m, err := r.metrics.FetchMetrics(ctx, pd.InferenceModule.URL)
	if err != nil {
		return nil, err
	}

	r.log.Info("export snapshot built",
		logger.Uint("part_detection_id", pd.ID),
		logger.Float64("success_rate", m.SuccessRate),
		logger.Int("inference_num", m.InferenceNum))

	return &ExportSnapshot{
		Status:          deploy.Status,
		Log:             "Status: " + deploy.Log,
		DownloadURI:     pd.Project.DownloadURI,
		SuccessRate:     m.SuccessRate,
		InferenceNum:    m.InferenceNum,
		UnidentifiedNum: m.UnidentifiedNum,
		GPU:             m.IsGPU,
		AverageTime:     m.AverageInferenceTime,
		Count:           m.LastPredictionCount,
	}, nil
}
