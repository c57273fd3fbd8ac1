// Package datastore opens the SQLite or MySQL database behind the part
// detection service and migrates its schema.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

// slowQueryThreshold is the duration after which a statement is logged at WARN.
const slowQueryThreshold = 200 * time.Millisecond

// Manager defines the interface for database lifecycle operations.
type Manager interface {
	// Initialize creates or migrates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/database for MySQL).
	Path() string
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// Open creates the manager selected by settings.Database.Type and runs
// Initialize on it.
func Open(settings *conf.Settings, log logger.Logger) (Manager, error) {
	if log == nil {
		log = GetLogger()
	}

	var (
		m   Manager
		err error
	)
	switch settings.Database.Type {
	case conf.DatabaseMySQL:
		m, err = NewMySQLManager(&settings.Database.MySQL, settings.Database.Debug, log)
	case conf.DatabaseSQLite, "":
		m, err = NewSQLiteManager(settings.Database.SQLite.Path, settings.Database.Debug, log)
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Database.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, err
	}

	if err := m.Initialize(); err != nil {
		_ = m.Close()
		return nil, err
	}

	log.Info("database ready",
		logger.String("type", settings.Database.Type),
		logger.String("location", m.Path()))
	return m, nil
}

func gormConfig(log logger.Logger, debug bool) *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold).TraceStatements(debug),
	}
}

func migrate(db *gorm.DB, backend string) error {
	if err := db.AutoMigrate(entities.All()...); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("backend", backend).
			Build()
	}
	return nil
}

// SQLiteManager handles the SQLite database file.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens the SQLite database at dbPath, creating its directory.
func NewSQLiteManager(dbPath string, debug bool, log logger.Logger) (*SQLiteManager, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("db_path", dbPath).
				Build()
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(log, debug))
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_sqlite").
			Context("db_path", dbPath).
			Build()
	}

	return &SQLiteManager{db: db, dbPath: dbPath}, nil
}

// Initialize migrates the schema.
func (m *SQLiteManager) Initialize() error {
	return migrate(m.db, conf.DatabaseSQLite)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}
