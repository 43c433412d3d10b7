package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amoylab/rowgate/internal/common/config"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// SQLite implements the Database interface using SQLite
type SQLite struct {
	*store
	cfg *config.DatabaseConfig
}

// NewSQLite creates a new SQLite instance
func NewSQLite(cfg *config.DatabaseConfig) (Database, error) {
	if cfg.DBName != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBName), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gormDB, err := gorm.Open(sqlite.Open(sqliteDSN(cfg.DBName)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := newStore(gormDB)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLite{store: s, cfg: cfg}, nil
}

// sqliteDSN enables foreign keys and a busy timeout unless the caller set pragmas.
func sqliteDSN(name string) string {
	if strings.Contains(name, "_pragma=") {
		return name
	}
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}
