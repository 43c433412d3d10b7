package database

import (
	"fmt"

	"github.com/amoylab/rowgate/internal/common/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQL implements the Database interface using MySQL
type MySQL struct {
	*store
	cfg *config.DatabaseConfig
}

// NewMySQL creates a new MySQL instance
func NewMySQL(cfg *config.DatabaseConfig) (Database, error) {
	gormDB, err := gorm.Open(mysql.Open(cfg.GetDSN()), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := newStore(gormDB)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &MySQL{store: s, cfg: cfg}, nil
}
