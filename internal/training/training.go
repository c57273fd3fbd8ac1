// Package training adapts the remote training and deployment subsystems to
// the part detection workflow. It keeps the per-project training status and
// the per-part-detection deploy status, fires training triggers and
// announces status changes to edge devices through a Publisher.
package training

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

// Publisher delivers status events. mqtt.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte) error { return nil }

// Event is the payload published on every status change.
type Event struct {
	Kind            string    `json:"kind"`
	ProjectID       uint      `json:"project_id,omitempty"`
	PartDetectionID uint      `json:"part_detection_id,omitempty"`
	Status          string    `json:"status"`
	Log             string    `json:"log,omitempty"`
	ModelURI        string    `json:"model_uri,omitempty"`
	ModuleURL       string    `json:"module_url,omitempty"`
	Cameras         []Camera  `json:"cameras,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Camera is the camera description carried by camera sync events.
type Camera struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	RTSP string `json:"rtsp"`
}

// Event kinds.
const (
	EventTraining = "training"
	EventDeploy   = "deploy"
	EventCameras  = "cameras"
)

// GetLogger returns the training module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("training")
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("training").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

func notFound(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("training").
		Category(errors.CategoryNotFound).
		Build()
}

func orNopPublisher(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func orDefaultLogger(log logger.Logger) logger.Logger {
	if log == nil {
		return GetLogger()
	}
	return log
}

// eventTopic returns the topic an event is published on, e.g. "training/3".
func eventTopic(ev *Event) string {
	if ev.Kind == EventTraining {
		return fmt.Sprintf("%s/%d", ev.Kind, ev.ProjectID)
	}
	return fmt.Sprintf("%s/%d", ev.Kind, ev.PartDetectionID)
}

// publish sends ev best effort. Failures are logged and never returned;
// the database row is the source of truth.
func publish(ctx context.Context, p Publisher, log logger.Logger, ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error("failed to encode status event", logger.Error(err))
		return
	}
	topic := eventTopic(ev)
	if err := p.Publish(ctx, topic, payload); err != nil {
		log.Warn("failed to publish status event",
			logger.String("topic", topic),
			logger.Error(err))
	}
}
