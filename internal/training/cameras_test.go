package training

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/partdetect/internal/datastore/datastoretest"
)

func TestCameraSyncer_PublishesCameras(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, datastoretest.Options{})
	syncer := NewCameraSyncer(env.configs, env.publisher, quietLogger())

	require.NoError(t, syncer.SyncCameras(t.Context(), env.fixture.Config.ID))

	msg := env.publisher.last()
	assert.Equal(t, fmt.Sprintf("cameras/%d", env.fixture.Config.ID), msg.topic)
	require.Len(t, msg.event.Cameras, 1)
	assert.Equal(t, "rtsp://camera.local/stream", msg.event.Cameras[0].RTSP)
	assert.Equal(t, "inference:5000", msg.event.ModuleURL)
}

func TestCameraSyncer_NilPublisher(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, datastoretest.Options{NoCameras: true})
	syncer := NewCameraSyncer(env.configs, nil, quietLogger())

	assert.NoError(t, syncer.SyncCameras(t.Context(), env.fixture.Config.ID))
}
