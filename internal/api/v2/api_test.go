// api_test.go: tests for the part detection API endpoints.

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/partdetection"
	"github.com/tphakala/partdetect/internal/training"
)

func pdError(kind partdetection.Kind, detail string) error {
	return &partdetection.Error{Kind: kind, Detail: detail}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.get("/api/v2/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.DatabaseStatus)
	assert.GreaterOrEqual(t, resp.System.CPUUsage, 0.0)
	assert.Positive(t, resp.System.NumGoroutine)
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.pingErr = errors.NewStd("database is locked")

	rec := env.get("/api/v2/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "database is locked", resp.DatabaseError)
}

func TestConfigure(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.workflow.On("Configure", uint(7)).Return(nil)

	rec := env.get("/api/v2/part-detections/7/configure")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestConfigureErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{
			name:     "missing inference module",
			err:      pdError(partdetection.KindConfigureWithoutInferenceModule, "part detection has no inference module"),
			wantCode: http.StatusBadRequest,
			wantKind: "ConfigureWithoutInferenceModule",
		},
		{
			name:     "missing project",
			err:      pdError(partdetection.KindConfigureWithoutProject, "please configure a project first"),
			wantCode: http.StatusBadRequest,
			wantKind: "ConfigureWithoutProject",
		},
		{
			name:     "not found",
			err:      pdError(partdetection.KindNotFound, "part detection 7 not found"),
			wantCode: http.StatusNotFound,
			wantKind: "NotFound",
		},
		{
			name:     "illegal stage move",
			err:      errors.Newf("cannot move").Category(errors.CategoryState).Build(),
			wantCode: http.StatusConflict,
		},
		{
			name:     "database failure",
			err:      errors.Newf("disk I/O error").Category(errors.CategoryDatabase).Build(),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := setupTestEnvironment(t)
			env.workflow.On("Configure", uint(7)).Return(tt.err)

			rec := env.get("/api/v2/part-detections/7/configure")
			require.Equal(t, tt.wantCode, rec.Code)

			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.NotEmpty(t, resp.CorrelationID)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestInvalidID(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	for _, path := range []string{
		"/api/v2/part-detections/abc/configure",
		"/api/v2/part-detections/0/export",
		"/api/v2/part-detections/-1",
	} {
		rec := env.get(path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestExport(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.exporter.On("BuildExportSnapshot", uint(3)).Return(&partdetection.ExportSnapshot{
		Status:       "DEPLOYED",
		Log:          "Status: Model deployed",
		DownloadURI:  "https://models.example.com/box.zip",
		SuccessRate:  0.86,
		InferenceNum: 120,
		GPU:          true,
		AverageTime:  0.05,
		Count:        2,
	}, nil)

	rec := env.get("/api/v2/part-detections/3/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"status": "DEPLOYED",
		"log": "Status: Model deployed",
		"download_uri": "https://models.example.com/box.zip",
		"success_rate": 0.86,
		"inference_num": 120,
		"unidentified_num": 0,
		"gpu": true,
		"average_time": 0.05,
		"count": 2
	}`, rec.Body.String())
}

func TestExportUnreachable(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.exporter.On("BuildExportSnapshot", uint(3)).
		Return(nil, pdError(partdetection.KindInferenceModuleUnreachable, "inference module http://edge:5000/metrics unreachable"))

	rec := env.get("/api/v2/part-detections/3/export")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "InferenceModuleUnreachable", resp.Kind)
	assert.Equal(t, "inference module http://edge:5000/metrics unreachable", resp.Message)
}

func TestUpdateProbThreshold(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.workflow.On("UpdateProbThreshold", uint(2), "55").Return(nil)
	env.workflow.On("UpdateProbThreshold", uint(2), "abc").
		Return(pdError(partdetection.KindProbThresholdNotInteger, "prob_threshold must be an integer"))
	env.workflow.On("UpdateProbThreshold", uint(2), "").
		Return(pdError(partdetection.KindProbThresholdNotInteger, "prob_threshold must be an integer"))

	rec := env.get("/api/v2/part-detections/2/update-prob-threshold?prob_threshold=55")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.get("/api/v2/part-detections/2/update-prob-threshold?prob_threshold=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ProbThresholdNotInteger", decodeError(t, rec).Kind)

	rec = env.get("/api/v2/part-detections/2/update-prob-threshold")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCamera(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.workflow.On("UpdateCamera", uint(4)).Return(nil)

	rec := env.get("/api/v2/part-detections/4/update-cam")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListAndGetPartDetections(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	projectID := uint(1)
	pd := entities.PartDetection{
		ID:            9,
		Name:          "line 1 boxes",
		HasConfigured: true,
		ProbThreshold: 10,
		ProjectID:     &projectID,
		Cameras:       []entities.Camera{{ID: 3}},
		Parts:         []entities.Part{{ID: 5, Name: "box"}},
	}
	env.partDetections.On("List").Return([]entities.PartDetection{pd}, nil)
	env.partDetections.On("Get", uint(9)).Return(&pd, nil)
	env.partDetections.On("Get", uint(10)).Return(nil, repository.ErrPartDetectionNotFound)

	rec := env.get("/api/v2/part-detections")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []PartDetectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, []uint{3}, list[0].Cameras)
	assert.Equal(t, []string{"box"}, list[0].Parts)
	assert.Nil(t, list[0].InferenceModuleID)

	rec = env.get("/api/v2/part-detections/9")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.get("/api/v2/part-detections/10")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRelabelImage(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.admitter.On("Admit", uint(5), "box").
		Return(&partdetection.AdmitResult{Decision: partdetection.DecisionAccepted, ImageID: 11}, nil)

	body, contentType := relabelForm(t, map[string]string{
		"part_name":  "box",
		"confidence": "0.72",
		"labels":     `[{"x1":0.1,"y1":0.1,"x2":0.5,"y2":0.5}]`,
	}, []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/part-detections/5/upload-relabel-image", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.Len(t, env.admitter.admitted, 1)
	got := env.admitter.admitted[0]
	assert.InDelta(t, 0.72, got.req.Confidence, 1e-9)
	assert.Equal(t, `[{"x1":0.1,"y1":0.1,"x2":0.5,"y2":0.5}]`, got.req.Labels)
	assert.Equal(t, []byte("jpeg-bytes"), got.bytes)
}

func TestUploadRelabelImageFull(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.admitter.On("Admit", uint(5), "box").
		Return(&partdetection.AdmitResult{Decision: partdetection.DecisionRejected},
			pdError(partdetection.KindRelabelImageFull, "relabel images are full for this part"))

	body, contentType := relabelForm(t, map[string]string{
		"part_name":  "box",
		"confidence": "0.7",
		"labels":     "[]",
	}, []byte("jpeg"))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/part-detections/5/upload-relabel-image", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	rec := env.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "RelabelImageFull", decodeError(t, rec).Kind)
}

func TestUploadRelabelImageValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields map[string]string
		image  []byte
	}{
		{"missing part name", map[string]string{"confidence": "0.7", "labels": "[]"}, []byte("x")},
		{"non numeric confidence", map[string]string{"part_name": "box", "confidence": "high", "labels": "[]"}, []byte("x")},
		{"nan confidence", map[string]string{"part_name": "box", "confidence": "NaN", "labels": "[]"}, []byte("x")},
		{"infinite confidence", map[string]string{"part_name": "box", "confidence": "+Inf", "labels": "[]"}, []byte("x")},
		{"missing labels", map[string]string{"part_name": "box", "confidence": "0.7"}, []byte("x")},
		{"missing image", map[string]string{"part_name": "box", "confidence": "0.7", "labels": "[]"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := setupTestEnvironment(t)

			body, contentType := relabelForm(t, tt.fields, tt.image)
			req := httptest.NewRequest(http.MethodPost, "/api/v2/part-detections/5/upload-relabel-image", body)
			req.Header.Set(echo.HeaderContentType, contentType)

			rec := env.do(req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, env.admitter.admitted)
		})
	}
}

func TestUploadRelabelImageBodyLimit(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	body, contentType := relabelForm(t, map[string]string{
		"part_name":  "box",
		"confidence": "0.7",
		"labels":     "[]",
	}, []byte(strings.Repeat("x", 2<<20)))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/part-detections/5/upload-relabel-image", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	rec := env.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestTrainingComplete(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.completions.On("CompleteTraining", uint(1), true).Return(nil)
	env.completions.On("CompleteTraining", uint(2), false).
		Return(errors.Newf("training status of project 2 cannot move from FAILED to FAILED").
			Category(errors.CategoryState).Build())

	rec := env.postJSON("/api/v2/projects/1/training-complete", `{"success":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.postJSON("/api/v2/projects/2/training-complete", `{"success":false}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.postJSON("/api/v2/projects/1/training-complete", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployComplete(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.completions.On("CompleteDeployment", uint(8), true).Return(nil)
	env.completions.On("CompleteDeployment", uint(9), true).
		Return(errors.Newf("deploy status for part detection 9 not found").Category(errors.CategoryNotFound).Build())

	rec := env.postJSON("/api/v2/part-detections/8/deploy-complete", `{"success":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.postJSON("/api/v2/part-detections/9/deploy-complete", `{"success":true}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTrainingStatus(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.trainingStatus.On("GetStatus", uint(1)).Return(&training.Status{
		ProjectID: 1,
		Stage:     partdetection.StageTraining,
		Status:    "TRAINING",
		Log:       "Training in progress",
	}, nil)

	rec := env.get("/api/v2/projects/1/training-status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "TRAINING", resp["status"])
	assert.Equal(t, "Training in progress", resp["log"])
}

func TestListScenariosIsCached(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.scenarios.On("List").Return([]entities.PDScenario{
		{ID: 1, Name: "Counting objects", InferenceMode: "PC"},
	}, nil).Once()

	for range 3 {
		rec := env.get("/api/v2/pd-scenarios")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"id":1,"name":"Counting objects","inference_mode":"PC","project":null}]`, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUploadRelabelImageRateLimited(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, func(s *conf.Settings) {
		s.WebServer.UploadRateLimit = 0.001
		s.WebServer.UploadBurst = 1
	})
	env.admitter.On("Admit", uint(5), "box").
		Return(&partdetection.AdmitResult{Decision: partdetection.DecisionAccepted, ImageID: 1}, nil).Once()

	upload := func() *httptest.ResponseRecorder {
		body, contentType := relabelForm(t, map[string]string{
			"part_name":  "box",
			"confidence": "0.7",
			"labels":     "[]",
		}, []byte("jpeg"))
		req := httptest.NewRequest(http.MethodPost, "/api/v2/part-detections/5/upload-relabel-image", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		return env.do(req)
	}

	require.Equal(t, http.StatusOK, upload().Code)
	rec := upload()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many relabel uploads, try again later", decodeError(t, rec).Message)
	assert.Len(t, env.admitter.admitted, 1)
}
