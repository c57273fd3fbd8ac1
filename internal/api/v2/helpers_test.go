package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/logger"
	"github.com/tphakala/partdetect/internal/observability"
	"github.com/tphakala/partdetect/internal/partdetection"
	"github.com/tphakala/partdetect/internal/training"
)

type mockWorkflow struct{ mock.Mock }

func (m *mockWorkflow) Configure(ctx context.Context, id uint) error {
	return m.Called(id).Error(0)
}

func (m *mockWorkflow) UpdateProbThreshold(ctx context.Context, id uint, raw string) error {
	return m.Called(id, raw).Error(0)
}

func (m *mockWorkflow) UpdateCamera(ctx context.Context, id uint) error {
	return m.Called(id).Error(0)
}

type mockExporter struct{ mock.Mock }

func (m *mockExporter) BuildExportSnapshot(ctx context.Context, id uint) (*partdetection.ExportSnapshot, error) {
	args := m.Called(id)
	snapshot, _ := args.Get(0).(*partdetection.ExportSnapshot)
	return snapshot, args.Error(1)
}

// admittedImage captures what the handler passed to Admit.
type admittedImage struct {
	req   partdetection.RelabelRequest
	bytes []byte
}

type mockAdmitter struct {
	mock.Mock
	admitted []admittedImage
}

func (m *mockAdmitter) Admit(ctx context.Context, req partdetection.RelabelRequest) (*partdetection.AdmitResult, error) {
	data, _ := io.ReadAll(req.Image)
	m.admitted = append(m.admitted, admittedImage{req: req, bytes: data})
	args := m.Called(req.ConfigID, req.PartName)
	result, _ := args.Get(0).(*partdetection.AdmitResult)
	return result, args.Error(1)
}

type mockCompletions struct{ mock.Mock }

func (m *mockCompletions) CompleteTraining(ctx context.Context, projectID uint, ok bool) error {
	return m.Called(projectID, ok).Error(0)
}

func (m *mockCompletions) CompleteDeployment(ctx context.Context, configID uint, ok bool) error {
	return m.Called(configID, ok).Error(0)
}

type mockTrainingStatus struct{ mock.Mock }

func (m *mockTrainingStatus) GetStatus(ctx context.Context, projectID uint) (*training.Status, error) {
	args := m.Called(projectID)
	status, _ := args.Get(0).(*training.Status)
	return status, args.Error(1)
}

type mockPartDetections struct{ mock.Mock }

func (m *mockPartDetections) Get(ctx context.Context, id uint) (*entities.PartDetection, error) {
	args := m.Called(id)
	pd, _ := args.Get(0).(*entities.PartDetection)
	return pd, args.Error(1)
}

func (m *mockPartDetections) List(ctx context.Context) ([]entities.PartDetection, error) {
	args := m.Called()
	pds, _ := args.Get(0).([]entities.PartDetection)
	return pds, args.Error(1)
}

type mockScenarios struct{ mock.Mock }

func (m *mockScenarios) List(ctx context.Context) ([]entities.PDScenario, error) {
	args := m.Called()
	scenarios, _ := args.Get(0).([]entities.PDScenario)
	return scenarios, args.Error(1)
}

type testEnv struct {
	e              *echo.Echo
	controller     *Controller
	workflow       *mockWorkflow
	exporter       *mockExporter
	admitter       *mockAdmitter
	completions    *mockCompletions
	trainingStatus *mockTrainingStatus
	partDetections *mockPartDetections
	scenarios      *mockScenarios
	pingErr        error
}

// setupTestEnvironment builds a controller backed by mocks and serves it
// through a fresh echo instance. Upload rate limiting is off unless a
// modifier enables it.
func setupTestEnvironment(t *testing.T, modify ...func(*conf.Settings)) *testEnv {
	t.Helper()

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	env := &testEnv{
		e:              echo.New(),
		workflow:       &mockWorkflow{},
		exporter:       &mockExporter{},
		admitter:       &mockAdmitter{},
		completions:    &mockCompletions{},
		trainingStatus: &mockTrainingStatus{},
		partDetections: &mockPartDetections{},
		scenarios:      &mockScenarios{},
	}
	settings := &conf.Settings{
		WebServer: conf.WebServerSettings{MaxUploadSize: "1M"},
		Media:     conf.MediaSettings{Path: t.TempDir()},
	}
	for _, m := range modify {
		m(settings)
	}

	env.controller = New(env.e, Deps{
		Settings:       settings,
		PartDetections: env.partDetections,
		Scenarios:      env.scenarios,
		Workflow:       env.workflow,
		Exporter:       env.exporter,
		Admitter:       env.admitter,
		Completions:    env.completions,
		TrainingStatus: env.trainingStatus,
		Metrics:        metrics,
		Ping:           func(context.Context) error { return env.pingErr },
	}, WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError)))

	t.Cleanup(func() {
		env.workflow.AssertExpectations(t)
		env.exporter.AssertExpectations(t)
		env.admitter.AssertExpectations(t)
		env.completions.AssertExpectations(t)
		env.trainingStatus.AssertExpectations(t)
		env.partDetections.AssertExpectations(t)
		env.scenarios.AssertExpectations(t)
	})
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(path string) *httptest.ResponseRecorder {
	return env.do(httptest.NewRequest(http.MethodGet, path, http.NoBody))
}

func (env *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return env.do(req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// relabelForm builds a multipart upload. Empty values are omitted.
func relabelForm(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("img", "frame.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}
