// Package datastoretest provides a throwaway SQLite database and seeded
// fixtures for tests in other packages.
package datastoretest

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/datastore"
	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/logger"
)

// NewSQLite opens a migrated SQLite database under t.TempDir and closes it
// on cleanup.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	mgr, err := datastore.NewSQLiteManager(path, false, logger.NewSlogLogger(io.Discard, logger.LogLevelError))
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	t.Cleanup(func() { _ = mgr.Close() })

	return mgr.DB()
}

// Options controls what Seed creates. The zero value seeds a complete,
// unconfigured part detection.
type Options struct {
	NoProject         bool
	NoInferenceModule bool
	NoCameras         bool
	Trained           bool
	MaxImages         int       // default 5
	RelabelExpiredAt  time.Time // default one hour from now
	ModuleURL         string    // default "inference:5000"
	AccuracyRangeMin  int       // default 60
	AccuracyRangeMax  int       // default 80
}

// Fixture holds the rows created by Seed.
type Fixture struct {
	Project *entities.Project
	Part    *entities.Part
	Module  *entities.InferenceModule
	Camera  *entities.Camera
	Config  *entities.PartDetection
}

// Seed creates a project with one part, a camera, an inference module and
// a part detection referencing them according to opts.
func Seed(t testing.TB, db *gorm.DB, opts Options) *Fixture {
	t.Helper()

	if opts.MaxImages == 0 {
		opts.MaxImages = 5
	}
	if opts.RelabelExpiredAt.IsZero() {
		opts.RelabelExpiredAt = time.Now().Add(time.Hour)
	}
	if opts.ModuleURL == "" {
		opts.ModuleURL = "inference:5000"
	}
	if opts.AccuracyRangeMin == 0 {
		opts.AccuracyRangeMin = 60
	}
	if opts.AccuracyRangeMax == 0 {
		opts.AccuracyRangeMax = 80
	}

	f := &Fixture{
		Project: &entities.Project{
			Name:               "box inspection",
			MaxImages:          opts.MaxImages,
			RelabelExpiredTime: opts.RelabelExpiredAt,
			DownloadURI:        "https://models.example.com/box.zip",
			IsTrained:          opts.Trained,
		},
		Module: &entities.InferenceModule{Name: "edge-1", URL: opts.ModuleURL},
		Camera: &entities.Camera{Name: "line-1", RTSP: "rtsp://camera.local/stream"},
	}
	require.NoError(t, db.Create(f.Project).Error)
	require.NoError(t, db.Create(f.Module).Error)
	require.NoError(t, db.Create(f.Camera).Error)

	f.Part = &entities.Part{Name: "box", ProjectID: f.Project.ID}
	require.NoError(t, db.Create(f.Part).Error)

	f.Config = &entities.PartDetection{
		Name:             "line 1 boxes",
		ProbThreshold:    10,
		AccuracyRangeMin: opts.AccuracyRangeMin,
		AccuracyRangeMax: opts.AccuracyRangeMax,
		CameraID:         &f.Camera.ID,
		Parts:            []entities.Part{*f.Part},
	}
	if !opts.NoProject {
		f.Config.ProjectID = &f.Project.ID
	}
	if !opts.NoInferenceModule {
		f.Config.InferenceModuleID = &f.Module.ID
	}
	if !opts.NoCameras {
		f.Config.Cameras = []entities.Camera{*f.Camera}
	}
	require.NoError(t, db.Create(f.Config).Error)

	return f
}

// AddRelabelImages inserts n relabel images for the fixture's project and
// part with strictly increasing timestamps starting at start.
func AddRelabelImages(t testing.TB, db *gorm.DB, f *Fixture, n int, start time.Time) []entities.Image {
	t.Helper()

	images := make([]entities.Image, 0, n)
	for i := range n {
		img := entities.Image{
			ProjectID:  f.Project.ID,
			PartID:     f.Part.ID,
			IsRelabel:  true,
			Timestamp:  start.Add(time.Duration(i) * time.Second),
			Confidence: 0.7,
			Labels:     "[]",
		}
		require.NoError(t, db.Create(&img).Error)
		images = append(images, img)
	}
	return images
}
