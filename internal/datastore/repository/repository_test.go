package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/partdetect/internal/datastore/datastoretest"
	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/datastore/repository"
)

func TestPartDetectionRepository_GetPreloads(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	f := datastoretest.Seed(t, db, datastoretest.Options{})
	repo := repository.NewPartDetectionRepository(db)

	pd, err := repo.Get(t.Context(), f.Config.ID)
	require.NoError(t, err)

	require.NotNil(t, pd.Project)
	require.NotNil(t, pd.InferenceModule)
	require.NotNil(t, pd.Camera)
	assert.Equal(t, f.Project.ID, pd.Project.ID)
	assert.Equal(t, "inference:5000", pd.InferenceModule.URL)
	assert.Len(t, pd.Cameras, 1)
	require.Len(t, pd.Parts, 1)
	assert.Equal(t, f.Part.ID, pd.PartByName("box").ID)
	assert.Nil(t, pd.PartByName("lid"))
	assert.False(t, pd.HasConfigured)
}

func TestPartDetectionRepository_NotFound(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	repo := repository.NewPartDetectionRepository(db)

	_, err := repo.Get(t.Context(), 404)
	require.ErrorIs(t, err, repository.ErrPartDetectionNotFound)

	err = repo.MarkConfigured(t.Context(), 404)
	require.ErrorIs(t, err, repository.ErrPartDetectionNotFound)
}

func TestPartDetectionRepository_Updates(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	f := datastoretest.Seed(t, db, datastoretest.Options{})
	repo := repository.NewPartDetectionRepository(db)
	ctx := t.Context()

	require.NoError(t, repo.MarkConfigured(ctx, f.Config.ID))
	require.NoError(t, repo.MarkConfigured(ctx, f.Config.ID), "marking twice is not an error")
	require.NoError(t, repo.UpdateProbThreshold(ctx, f.Config.ID, 0))

	pd, err := repo.Get(ctx, f.Config.ID)
	require.NoError(t, err)
	assert.True(t, pd.HasConfigured)
	assert.Equal(t, 0, pd.ProbThreshold, "zero thresholds must be written")

	configured, err := repo.ListConfiguredByProject(ctx, f.Project.ID)
	require.NoError(t, err)
	require.Len(t, configured, 1)
	assert.Equal(t, f.Config.ID, configured[0].ID)

	other, err := repo.ListConfiguredByProject(ctx, f.Project.ID+1)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPartDetectionRepository_NullableReferences(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	f := datastoretest.Seed(t, db, datastoretest.Options{NoProject: true, NoInferenceModule: true, NoCameras: true})
	repo := repository.NewPartDetectionRepository(db)

	pd, err := repo.Get(t.Context(), f.Config.ID)
	require.NoError(t, err)
	assert.Nil(t, pd.Project)
	assert.Nil(t, pd.InferenceModule)
	assert.Empty(t, pd.Cameras)
}

func TestImageRepository_OldestFirstOrdering(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	f := datastoretest.Seed(t, db, datastoretest.Options{})
	repo := repository.NewImageRepository(db)
	ctx := t.Context()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	seeded := datastoretest.AddRelabelImages(t, db, f, 3, start)

	// Same timestamp as the first image; breaks the tie by id.
	tied := entities.Image{ProjectID: f.Project.ID, PartID: f.Part.ID, IsRelabel: true, Timestamp: start}
	require.NoError(t, repo.Create(ctx, &tied))

	// Not a relabel image, never counted.
	plain := entities.Image{ProjectID: f.Project.ID, PartID: f.Part.ID, Timestamp: start.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, &plain))

	count, err := repo.CountRelabel(ctx, f.Project.ID, f.Part.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	oldest, err := repo.OldestRelabel(ctx, f.Project.ID, f.Part.ID, 2)
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, seeded[0].ID, oldest[0].ID)
	assert.Equal(t, tied.ID, oldest[1].ID)

	none, err := repo.OldestRelabel(ctx, f.Project.ID, f.Part.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestImageRepository_DeleteAndTransaction(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	f := datastoretest.Seed(t, db, datastoretest.Options{})
	repo := repository.NewImageRepository(db)
	ctx := t.Context()

	seeded := datastoretest.AddRelabelImages(t, db, f, 3, time.Now().Add(-time.Minute))

	deleted, err := repo.DeleteByIDs(ctx, []uint{seeded[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// A failing transaction rolls back its delete.
	errBoom := assert.AnError
	err = repo.Transaction(ctx, func(tx repository.ImageRepository) error {
		if _, err := tx.DeleteByIDs(ctx, []uint{seeded[1].ID}); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	remaining, err := repo.ListRelabel(ctx, f.Project.ID, f.Part.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, seeded[1].ID, remaining[0].ID)
}

func TestImageRepository_CreateRejectsMissingKeys(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	repo := repository.NewImageRepository(db)

	err := repo.Create(t.Context(), &entities.Image{PartID: 1})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestStatusRepositories_Upsert(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	f := datastoretest.Seed(t, db, datastoretest.Options{})
	training := repository.NewTrainingStatusRepository(db)
	deploy := repository.NewDeployStatusRepository(db)
	ctx := t.Context()

	_, err := training.Get(ctx, f.Project.ID)
	require.ErrorIs(t, err, repository.ErrTrainingStatusNotFound)
	_, err = deploy.Get(ctx, f.Config.ID)
	require.ErrorIs(t, err, repository.ErrDeployStatusNotFound)

	require.NoError(t, training.Upsert(ctx, f.Project.ID, "FINDING_PROJECT", "finding project"))
	require.NoError(t, training.Upsert(ctx, f.Project.ID, "TRAINED", "trained"))
	require.NoError(t, deploy.Upsert(ctx, f.Config.ID, "DEPLOYING", "deploying"))

	ts, err := training.Get(ctx, f.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRAINED", ts.Status)
	assert.Equal(t, "trained", ts.Log)

	var rows int64
	require.NoError(t, db.Model(&entities.TrainingStatus{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	ds, err := deploy.Get(ctx, f.Config.ID)
	require.NoError(t, err)
	assert.Equal(t, "DEPLOYING", ds.Status)

	require.ErrorIs(t, training.Upsert(ctx, 0, "TRAINED", ""), repository.ErrInvalidInput)
}

func TestScenarioRepository_List(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	require.NoError(t, db.Create(&entities.PDScenario{Name: "Count objects", InferenceMode: "PC"}).Error)
	require.NoError(t, db.Create(&entities.PDScenario{Name: "Detect defects", InferenceMode: "DD"}).Error)

	scenarios, err := repository.NewScenarioRepository(db).List(t.Context())
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "Count objects", scenarios[0].Name)
}

func TestProjectRepository_MarkTrained(t *testing.T) {
	t.Parallel()
	db := datastoretest.NewSQLite(t)
	f := datastoretest.Seed(t, db, datastoretest.Options{})
	repo := repository.NewProjectRepository(db)
	ctx := t.Context()

	project, err := repo.Get(ctx, f.Project.ID)
	require.NoError(t, err)
	assert.False(t, project.IsTrained)

	require.NoError(t, repo.MarkTrained(ctx, f.Project.ID, true))
	project, err = repo.Get(ctx, f.Project.ID)
	require.NoError(t, err)
	assert.True(t, project.IsTrained)

	_, err = repo.Get(ctx, 404)
	require.ErrorIs(t, err, repository.ErrProjectNotFound)
	require.ErrorIs(t, repo.MarkTrained(ctx, 404, true), repository.ErrProjectNotFound)
}
