package partdetection

import (
	"context"
	"io"
	"time"

	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

// Decision is the admission regime applied to a relabel image.
type Decision string

const (
	// DecisionAccepted stores the image below capacity.
	DecisionAccepted Decision = "accepted"
	// DecisionQueued stores the image at capacity after the relabel window
	// expired and evicts the oldest image.
	DecisionQueued Decision = "queued"
	// DecisionRejected refuses the image at capacity inside the relabel
	// window and trims any overshoot.
	DecisionRejected Decision = "rejected"
)

// RelabelRequest is an image resubmitted by an inference module.
type RelabelRequest struct {
	ConfigID   uint
	PartName   string
	Confidence float64 // [0, 1]
	Labels     string  // JSON bounding boxes, stored as is
	Image      io.Reader
}

// AdmitResult describes a successful or rejected admission.
type AdmitResult struct {
	Decision Decision
	ImageID  uint // zero when rejected
	Evicted  int
}

// AdmissionPolicy keeps the relabel images of each (project, part) at or
// below the project's MaxImages.
type AdmissionPolicy struct {
	configs  ConfigStore
	images   repository.ImageRepository
	media    MediaStore
	locks    *keyedMutex
	now      func() time.Time
	recorder Recorder
	log      logger.Logger
}

// NewAdmissionPolicy creates an AdmissionPolicy.
func NewAdmissionPolicy(configs ConfigStore, images repository.ImageRepository, media MediaStore, recorder Recorder, log logger.Logger) *AdmissionPolicy {
	return &AdmissionPolicy{
		configs:  configs,
		images:   images,
		media:    media,
		locks:    newKeyedMutex(),
		now:      time.Now,
		recorder: orNop(recorder),
		log:      orDefaultLogger(log),
	}
}

// Admit validates req against its part detection and applies one of three
// regimes given the current relabel count:
//
//   - below MaxImages: store the image
//   - at capacity, window expired: store it, then evict the oldest image
//   - at capacity, window open: store nothing, trim down to MaxImages and
//     fail with KindRelabelImageFull
//
// Admissions for one (project, part) are serialised and each runs in a single
// transaction. The returned result is non-nil on KindRelabelImageFull.
func (p *AdmissionPolicy) Admit(ctx context.Context, req RelabelRequest) (*AdmitResult, error) {
	pd, err := loadConfig(ctx, p.configs, req.ConfigID)
	if err != nil {
		return nil, err
	}

	part := pd.PartByName(req.PartName)
	if part == nil {
		return nil, errorf(KindNotFound, "part %q not found in part detection %d", req.PartName, pd.ID)
	}
	project := pd.Project
	if project == nil {
		p.log.Error("relabel image for part detection without project", logger.Uint("part_detection_id", pd.ID))
		return nil, newError(KindConfigureWithoutProject, "", nil)
	}

	confidence := req.Confidence * 100
	// Written positively so NaN fails the range.
	if !(confidence >= float64(pd.AccuracyRangeMin) && confidence <= float64(pd.AccuracyRangeMax)) {
		return nil, errorf(KindRelabelConfidenceOutOfRange,
			"confidence %.2f outside accuracy range [%d, %d]", confidence, pd.AccuracyRangeMin, pd.AccuracyRangeMax)
	}

	unlock := p.locks.Lock(relabelKey{projectID: project.ID, partID: part.ID})
	defer unlock()

	now := p.now()
	var (
		result    AdmitResult
		savedPath string
		evicted   []entities.Image
	)
	err = p.images.Transaction(ctx, func(tx repository.ImageRepository) error {
		count, err := tx.CountRelabel(ctx, project.ID, part.ID)
		if err != nil {
			return err
		}
		capacity := int64(project.MaxImages)

		switch {
		case count < capacity:
			result.Decision = DecisionAccepted
		case !now.Before(project.RelabelExpiredTime):
			result.Decision = DecisionQueued
		default:
			result.Decision = DecisionRejected
			evicted, err = tx.OldestRelabel(ctx, project.ID, part.ID, int(count-capacity))
			if err != nil {
				return err
			}
			return deleteImages(ctx, tx, evicted)
		}

		savedPath, err = p.media.Save(req.Image)
		if err != nil {
			return err
		}
		img := entities.Image{
			ProjectID:  project.ID,
			PartID:     part.ID,
			CameraID:   pd.CameraID,
			Confidence: req.Confidence,
			Labels:     req.Labels,
			IsRelabel:  true,
			FilePath:   savedPath,
			Timestamp:  now,
		}
		if err := tx.Create(ctx, &img); err != nil {
			return err
		}
		result.ImageID = img.ID

		if result.Decision == DecisionQueued {
			// One eviction at capacity; more if a lowered MaxImages left an overshoot.
			evicted, err = tx.OldestRelabel(ctx, project.ID, part.ID, int(count+1-capacity))
			if err != nil {
				return err
			}
			return deleteImages(ctx, tx, evicted)
		}
		return nil
	})
	if err != nil {
		if savedPath != "" {
			_ = p.media.Remove(savedPath)
		}
		var enhanced *errors.EnhancedError
		if KindOf(err) != "" || errors.As(err, &enhanced) {
			return nil, err
		}
		return nil, errors.New(err).
			Component("partdetection").
			Category(errors.CategoryDatabase).
			Context("operation", "admit_relabel_image").
			Context("project_id", project.ID).
			Context("part_id", part.ID).
			Build()
	}

	result.Evicted = len(evicted)
	p.removeFiles(evicted)
	p.recorder.RecordAdmission(string(result.Decision))
	p.recorder.RecordEvictions(result.Evicted)

	p.log.Info("relabel image admission",
		logger.Uint("part_detection_id", pd.ID),
		logger.Uint("project_id", project.ID),
		logger.Uint("part_id", part.ID),
		logger.String("decision", string(result.Decision)),
		logger.Int("evicted", result.Evicted))

	if result.Decision == DecisionRejected {
		return &result, errorf(KindRelabelImageFull,
			"part %q already has %d relabel images", part.Name, project.MaxImages)
	}
	return &result, nil
}

func deleteImages(ctx context.Context, tx repository.ImageRepository, images []entities.Image) error {
	if len(images) == 0 {
		return nil
	}
	ids := make([]uint, len(images))
	for i := range images {
		ids[i] = images[i].ID
	}
	_, err := tx.DeleteByIDs(ctx, ids)
	return err
}

// removeFiles deletes files of evicted images; failures are logged only.
func (p *AdmissionPolicy) removeFiles(images []entities.Image) {
	for i := range images {
		if err := p.media.Remove(images[i].FilePath); err != nil {
			p.log.Warn("failed to remove evicted image file",
				logger.Uint("image_id", images[i].ID),
				logger.Error(err))
		}
	}
}
