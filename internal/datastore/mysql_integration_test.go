//go:build integration

package datastore_test

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/datastore"
	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/logger"
)

// startMySQL runs a disposable MySQL 8 container and returns settings pointing at it.
func startMySQL(t *testing.T) *conf.Settings {
	t.Helper()
	ctx := t.Context()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("partdetect"),
		tcmysql.WithUsername("partdetect"),
		tcmysql.WithPassword("partdetect"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	return &conf.Settings{
		Database: conf.DatabaseSettings{
			Type: conf.DatabaseMySQL,
			MySQL: conf.MySQLSettings{
				Host:     host,
				Port:     mapped.Int(),
				Username: "partdetect",
				Password: "partdetect",
				Database: "partdetect",
			},
		},
	}
}

func TestMySQLManager_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MySQL container test in short mode")
	}

	settings := startMySQL(t)
	mgr, err := datastore.Open(settings, logger.NewSlogLogger(io.Discard, logger.LogLevelError))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	assert.True(t, mgr.IsMySQL())
	assert.NotContains(t, mgr.Path(), "partdetect:partdetect@", "credentials must not leak into Path")

	db := mgr.DB()
	ctx := t.Context()

	project := entities.Project{Name: "p", MaxImages: 2, RelabelExpiredTime: time.Now()}
	require.NoError(t, db.Create(&project).Error)
	part := entities.Part{Name: "box", ProjectID: project.ID}
	require.NoError(t, db.Create(&part).Error)
	pd := entities.PartDetection{Name: "pd", ProjectID: &project.ID, Parts: []entities.Part{part}}
	require.NoError(t, db.Create(&pd).Error)

	pdRepo := repository.NewPartDetectionRepository(db)
	require.NoError(t, pdRepo.MarkConfigured(ctx, pd.ID))
	require.NoError(t, pdRepo.MarkConfigured(ctx, pd.ID), "unchanged rows still count as matched")

	images := repository.NewImageRepository(db)
	start := time.Now().Add(-time.Hour).Truncate(time.Second)
	for i := range 3 {
		img := entities.Image{ProjectID: project.ID, PartID: part.ID, IsRelabel: true, Timestamp: start.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, images.Create(ctx, &img))
	}

	oldest, err := images.OldestRelabel(ctx, project.ID, part.ID, 1)
	require.NoError(t, err)
	require.Len(t, oldest, 1)
	assert.True(t, oldest[0].Timestamp.Equal(start))

	status := repository.NewTrainingStatusRepository(db)
	require.NoError(t, status.Upsert(ctx, project.ID, "TRAINING", "training"))
	require.NoError(t, status.Upsert(ctx, project.ID, "TRAINED", "trained"))
	ts, err := status.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRAINED", ts.Status)
}
