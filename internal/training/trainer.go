package training

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
	"github.com/tphakala/partdetect/internal/partdetection"
)

// JSONPoster posts a JSON body and discards the response.
// *httpclient.Client satisfies it.
type JSONPoster interface {
	PostJSON(ctx context.Context, url string, body any) error
}

// StageRecorder writes project training stages. *StatusStore satisfies it.
type StageRecorder interface {
	UpsertStatus(ctx context.Context, projectID uint, stage partdetection.Stage) error
}

// TrainRequest is the body of the training trigger.
type TrainRequest struct {
	ProjectID uint `json:"project_id"`
}

// RemoteTrainer fires training runs on the remote training service. Each
// trigger runs in its own goroutine bound to the trainer's lifetime, not
// to the request that started it.
type RemoteTrainer struct {
	endpoint string
	timeout  time.Duration
	http     JSONPoster
	status   StageRecorder
	log      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRemoteTrainer creates a RemoteTrainer. An empty endpoint disables the
// remote call; triggers then only record UPLOADING_IMAGES.
func NewRemoteTrainer(endpoint string, timeout time.Duration, http JSONPoster, status StageRecorder, log logger.Logger) *RemoteTrainer {
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteTrainer{
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		http:     http,
		status:   status,
		log:      orDefaultLogger(log),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// TrainProject starts training of projectID and returns immediately.
func (t *RemoteTrainer) TrainProject(ctx context.Context, projectID uint) {
	log := t.log.WithContext(ctx).With(logger.Uint("project_id", projectID))

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.train(projectID); err != nil {
			log.Error("training trigger failed", logger.Error(err))
			if serr := t.status.UpsertStatus(t.ctx, projectID, partdetection.StageFailed); serr != nil {
				log.Error("failed to record training failure", logger.Error(serr))
			}
			return
		}
		log.Info("training triggered")
	}()
}

func (t *RemoteTrainer) train(projectID uint) error {
	if err := t.status.UpsertStatus(t.ctx, projectID, partdetection.StageUploadingImages); err != nil {
		return err
	}
	if t.endpoint == "" {
		t.log.Debug("no training endpoint configured, skipping remote trigger",
			logger.Uint("project_id", projectID))
		return nil
	}

	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/projects/%d/train", t.endpoint, projectID)
	start := time.Now()
	if err := t.http.PostJSON(ctx, url, TrainRequest{ProjectID: projectID}); err != nil {
		return errors.New(err).
			Component("training").
			Category(triggerCategory(err)).
			NetworkContext(url, t.timeout).
			Timing("train_trigger", time.Since(start)).
			Context("project_id", projectID).
			Build()
	}
	return t.status.UpsertStatus(t.ctx, projectID, partdetection.StageTraining)
}

// triggerCategory separates expired and cancelled triggers from failures
// reported by the training service.
func triggerCategory(err error) errors.ErrorCategory {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		return errors.CategoryCancellation
	default:
		return errors.CategoryTraining
	}
}

// Wait blocks until all fired triggers have finished.
func (t *RemoteTrainer) Wait() {
	t.wg.Wait()
}

// Shutdown waits for in-flight triggers. When ctx ends first the triggers
// are cancelled and ctx.Err() is returned.
func (t *RemoteTrainer) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	defer t.cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.cancel()
		<-done
		return ctx.Err()
	}
}
