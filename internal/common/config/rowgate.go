package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amoylab/rowgate/pkg/trace"
)

type (
	// RowGateConfig is the root configuration of the rowgate server
	RowGateConfig struct {
		Port        int            `yaml:"port"`
		AdminSecret string         `yaml:"admin_secret"`
		Logger      LoggerConfig   `yaml:"logger"`
		Database    DatabaseConfig `yaml:"database"`
		Gateway     GatewayConfig  `yaml:"gateway"`
		CORS        CORSConfig     `yaml:"cors"`
		Notifier    NotifierConfig `yaml:"notifier"`
		Metrics     MetricsConfig  `yaml:"metrics"`
		Tracing     trace.Config   `yaml:"tracing"`
	}

	DatabaseConfig struct {
		Type     string `yaml:"type"`     // mysql, postgres, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
	}

	// GatewayConfig controls table exposure and row limits of the query gateway
	GatewayConfig struct {
		// PublicTables are readable by every authorized caller without owner scoping.
		PublicTables []string `yaml:"public_tables"`
		// Tables restricts the gateway to the listed tables when non-empty.
		Tables          []string `yaml:"tables"`
		MaxRows         int      `yaml:"max_rows"`
		EnforceReadonly bool     `yaml:"enforce_readonly"`
	}

	CORSConfig struct {
		AllowOrigins     []string `yaml:"allow_origins"`
		AllowMethods     []string `yaml:"allow_methods"`
		AllowHeaders     []string `yaml:"allow_headers"`
		ExposeHeaders    []string `yaml:"expose_headers"`
		AllowCredentials bool     `yaml:"allow_credentials"`
	}

	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Path      string    `yaml:"path"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

const (
	DefaultPort    = 8788
	DefaultMaxRows = 1000

	DefaultAuditStream = "rowgate:audit"
)

func (c *RowGateConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.DBName == "" {
		c.Database.DBName = "./data/rowgate.db"
	}
	if c.Gateway.MaxRows <= 0 {
		c.Gateway.MaxRows = DefaultMaxRows
	}
	if c.Notifier.Type == "" {
		c.Notifier.Type = NotifierTypeNone
	}
	if c.Notifier.Redis.Stream == "" {
		c.Notifier.Redis.Stream = DefaultAuditStream
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "rowgate"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "rowgate"
	}
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"*"}
	}
	if len(c.CORS.AllowMethods) == 0 {
		c.CORS.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowHeaders) == 0 {
		c.CORS.AllowHeaders = []string{"Content-Type", "Authorization", "X-App-Key", "X-User-Key", "X-Trace-Id"}
	}
	c.Gateway.PublicTables = normalizeNames(c.Gateway.PublicTables)
	c.Gateway.Tables = normalizeNames(c.Gateway.Tables)
}

// IsPublic reports whether table is configured as a public table
func (c *GatewayConfig) IsPublic(table string) bool {
	for _, t := range c.PublicTables {
		if t == table {
			return true
		}
	}
	return false
}

// Exposes reports whether table passes the configured allow-list.
// An empty allow-list exposes every table.
func (c *GatewayConfig) Exposes(table string) bool {
	if len(c.Tables) == 0 {
		return true
	}
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return c.getPostgresDSN()
	case "mysql":
		return c.getMySQLDSN()
	case "sqlite":
		// Ensure the directory for the SQLite database exists.
		if err := os.MkdirAll(filepath.Dir(c.DBName), 0755); err != nil {
			panic(fmt.Errorf("failed to create directory for sqlite database: %w", err))
		}
		return c.DBName
	default:
		return ""
	}
}

func (c *DatabaseConfig) getPostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func (c *DatabaseConfig) getMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
