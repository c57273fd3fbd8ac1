package training

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/datastore/datastoretest"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/logger"
	"github.com/tphakala/partdetect/internal/partdetection"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError)
}

type message struct {
	topic string
	event Event
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message{topic: topic, event: ev})
	return p.err
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.topic)
	}
	return out
}

func (p *recordingPublisher) last() message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[len(p.messages)-1]
}

type testEnv struct {
	db        *gorm.DB
	fixture   *datastoretest.Fixture
	configs   repository.PartDetectionRepository
	projects  repository.ProjectRepository
	deploys   repository.DeployStatusRepository
	statuses  repository.TrainingStatusRepository
	publisher *recordingPublisher
	store     *StatusStore
}

func newTestEnv(t *testing.T, opts datastoretest.Options) *testEnv {
	t.Helper()
	db := datastoretest.NewSQLite(t)
	env := &testEnv{
		db:        db,
		fixture:   datastoretest.Seed(t, db, opts),
		configs:   repository.NewPartDetectionRepository(db),
		projects:  repository.NewProjectRepository(db),
		deploys:   repository.NewDeployStatusRepository(db),
		statuses:  repository.NewTrainingStatusRepository(db),
		publisher: &recordingPublisher{},
	}
	env.store = NewStatusStore(env.statuses, env.publisher, quietLogger())
	return env
}

func (e *testEnv) deployer() *Deployer {
	return NewDeployer(DeployerDeps{
		Configs:   e.configs,
		Projects:  e.projects,
		Deploys:   e.deploys,
		Status:    e.store,
		Publisher: e.publisher,
		Logger:    quietLogger(),
	})
}

func (e *testEnv) stage(t *testing.T) partdetection.Stage {
	t.Helper()
	status, err := e.store.GetStatus(t.Context(), e.fixture.Project.ID)
	require.NoError(t, err)
	return status.Stage
}

func (e *testEnv) deployStatus(t *testing.T) string {
	t.Helper()
	row, err := e.deploys.Get(t.Context(), e.fixture.Config.ID)
	require.NoError(t, err)
	return row.Status
}
