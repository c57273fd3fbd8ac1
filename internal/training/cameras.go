package training

import (
	"context"

	"github.com/tphakala/partdetect/internal/logger"
)

// CameraSyncer announces the camera set of a part detection to its
// inference module.
type CameraSyncer struct {
	configs   ConfigLister
	publisher Publisher
	log       logger.Logger
}

// NewCameraSyncer creates a CameraSyncer.
func NewCameraSyncer(configs ConfigLister, publisher Publisher, log logger.Logger) *CameraSyncer {
	return &CameraSyncer{
		configs:   configs,
		publisher: orNopPublisher(publisher),
		log:       orDefaultLogger(log),
	}
}

// SyncCameras publishes the current cameras of configID.
func (s *CameraSyncer) SyncCameras(ctx context.Context, configID uint) error {
	pd, err := s.configs.Get(ctx, configID)
	if err != nil {
		return dbError(err, "load_part_detection")
	}

	cameras := make([]Camera, 0, len(pd.Cameras))
	for _, c := range pd.Cameras {
		cameras = append(cameras, Camera{ID: c.ID, Name: c.Name, RTSP: c.RTSP})
	}

	ev := &Event{
		Kind:            EventCameras,
		PartDetectionID: configID,
		Status:          "SYNC",
		Cameras:         cameras,
	}
	if pd.InferenceModule != nil {
		ev.ModuleURL = pd.InferenceModule.URL
	}

	log := s.log.WithContext(ctx).With(
		logger.Uint("part_detection_id", configID),
		logger.Int("cameras", len(cameras)))
	publish(ctx, s.publisher, log, ev)
	log.Info("camera sync requested")
	return nil
}
