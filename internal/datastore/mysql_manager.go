package datastore

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

const mysqlConnectTimeout = 10 * time.Second

// MySQLManager handles a MySQL database.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// mysqlDSN builds the driver DSN. Credentials never appear in Path().
func mysqlDSN(cfg *conf.MySQLSettings) string {
	dc := mysql.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Database
	dc.ParseTime = true
	dc.Loc = time.Local
	dc.Timeout = mysqlConnectTimeout
	dc.ClientFoundRows = true // RowsAffected counts matched rows, as on SQLite
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// NewMySQLManager opens a MySQL connection pool.
func NewMySQLManager(cfg *conf.MySQLSettings, debug bool, log logger.Logger) (*MySQLManager, error) {
	location := fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(gormmysql.Open(mysqlDSN(cfg)), gormConfig(log, debug))
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_mysql").
			Context("location", location).
			Build()
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{db: db, location: location}, nil
}

// Initialize migrates the schema.
func (m *MySQLManager) Initialize() error {
	return migrate(m.db, conf.DatabaseMySQL)
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database location (host:port/database).
func (m *MySQLManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// IsMySQL returns true for MySQL manager.
func (m *MySQLManager) IsMySQL() bool {
	return true
}
