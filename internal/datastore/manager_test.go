package datastore

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError)
}

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "pd.db")
	settings := &conf.Settings{Database: conf.DatabaseSettings{
		Type:   conf.DatabaseSQLite,
		SQLite: conf.SQLiteSettings{Path: path},
	}}

	mgr, err := Open(settings, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	assert.False(t, mgr.IsMySQL())
	assert.Equal(t, path, mgr.Path())

	for _, table := range []string{
		"projects", "parts", "cameras", "inference_modules", "part_detections",
		"part_detection_cameras", "part_detection_parts", "images",
		"training_statuses", "deploy_statuses", "pd_scenarios",
	} {
		assert.True(t, mgr.DB().Migrator().HasTable(table), "missing table %s", table)
	}

	// Migrating again is a no-op.
	require.NoError(t, mgr.Initialize())
}

func TestOpenRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Open(&conf.Settings{Database: conf.DatabaseSettings{Type: "postgres"}}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := mysqlDSN(&conf.MySQLSettings{
		Host:     "db.local",
		Port:     3307,
		Username: "pd",
		Password: "secret",
		Database: "partdetect",
	})

	assert.Contains(t, dsn, "pd:secret@tcp(db.local:3307)/partdetect")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "clientFoundRows=true")
}
