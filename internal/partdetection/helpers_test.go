package partdetection

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/datastore/datastoretest"
	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError)
}

type testEnv struct {
	db      *gorm.DB
	fixture *datastoretest.Fixture
	configs repository.PartDetectionRepository
	images  repository.ImageRepository
	deploys repository.DeployStatusRepository
}

func newTestEnv(t *testing.T, opts datastoretest.Options) *testEnv {
	t.Helper()
	db := datastoretest.NewSQLite(t)
	return &testEnv{
		db:      db,
		fixture: datastoretest.Seed(t, db, opts),
		configs: repository.NewPartDetectionRepository(db),
		images:  repository.NewImageRepository(db),
		deploys: repository.NewDeployStatusRepository(db),
	}
}

func (e *testEnv) relabelCount(t *testing.T) int64 {
	t.Helper()
	n, err := e.images.CountRelabel(t.Context(), e.fixture.Project.ID, e.fixture.Part.ID)
	require.NoError(t, err)
	return n
}

func (e *testEnv) relabelImages(t *testing.T) []entities.Image {
	t.Helper()
	imgs, err := e.images.ListRelabel(t.Context(), e.fixture.Project.ID, e.fixture.Part.ID)
	require.NoError(t, err)
	return imgs
}

type recordingRecorder struct {
	mu         sync.Mutex
	admissions []string
	evictions  int
	fetches    []string
	configures []string
}

func (r *recordingRecorder) RecordAdmission(decision string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admissions = append(r.admissions, decision)
}

func (r *recordingRecorder) RecordEvictions(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions += n
}

func (r *recordingRecorder) RecordMetricsFetch(_ time.Duration, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches = append(r.fetches, outcome)
}

func (r *recordingRecorder) RecordConfigure(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configures = append(r.configures, result)
}

// fakeWorkflow records calls made by the Orchestrator.
type fakeWorkflow struct {
	mu        sync.Mutex
	calls     []string
	stages    map[uint]Stage
	trained   []uint
	deployed  []uint
	synced    []uint
	deployErr error
	statusErr error
}

func newFakeWorkflow() *fakeWorkflow {
	return &fakeWorkflow{stages: make(map[uint]Stage)}
}

func (f *fakeWorkflow) UpsertStatus(_ context.Context, projectID uint, stage Stage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "status:"+stage.String())
	if f.statusErr != nil {
		return f.statusErr
	}
	f.stages[projectID] = stage
	return nil
}

func (f *fakeWorkflow) TrainProject(_ context.Context, projectID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "train")
	f.trained = append(f.trained, projectID)
}

func (f *fakeWorkflow) DeployIfTrained(_ context.Context, configID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "deploy")
	f.deployed = append(f.deployed, configID)
	return f.deployErr
}

func (f *fakeWorkflow) SyncCameras(_ context.Context, configID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, configID)
	return nil
}

func (f *fakeWorkflow) orchestrator(configs ConfigStore, rec Recorder) *Orchestrator {
	return NewOrchestrator(OrchestratorDeps{
		Configs:  configs,
		Status:   f,
		Trainer:  f,
		Deployer: f,
		Cameras:  f,
		Recorder: rec,
		Logger:   quietLogger(),
	})
}
