package database

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup or targeted mutation matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an insert collides with an existing key
	ErrDuplicateKey = errors.New("duplicate key")
)

// Condition is an equality predicate on one column. A slice value matches any
// of its elements and a nil value matches NULL.
type Condition struct {
	Column string
	Value  any
}

// Database defines the methods for database operations.
type Database interface {
	// Close closes the database connection.
	Close() error

	// Transaction runs fn in a transaction. Calls made with the context passed
	// to fn join it; a transaction already on ctx is reused.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	CredentialStore
	GrantStore
	DataStore
}

// CredentialStore holds apps, users and role assignments.
type CredentialStore interface {
	CreateApp(ctx context.Context, app *App) error
	GetAppByID(ctx context.Context, appID string) (*App, error)
	GetAppByKey(ctx context.Context, appKey string) (*App, error)
	ListApps(ctx context.Context) ([]*App, error)
	// UpdateAppKey returns ErrNotFound when the app does not exist.
	UpdateAppKey(ctx context.Context, appID, appKey string) error
	// DeleteApp reports whether a row was removed.
	DeleteApp(ctx context.Context, appID string) (bool, error)

	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByKey(ctx context.Context, userKey string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUserKey(ctx context.Context, userID, userKey string) error
	DeleteUser(ctx context.Context, userID string) (bool, error)

	// GetUserRole returns the stored role, or "" when the user has none.
	GetUserRole(ctx context.Context, userID string) (string, error)
	ListUserRoles(ctx context.Context) ([]*UserRole, error)
	UpsertUserRole(ctx context.Context, userID, role string) error
	DeleteUserRole(ctx context.Context, userID string) error
}

// GrantStore holds user to app grants and per-table permission overrides.
type GrantStore interface {
	HasGrant(ctx context.Context, userID, appID string) (bool, error)
	CreateGrant(ctx context.Context, userID, appID string) error
	DeleteGrant(ctx context.Context, userID, appID string) (bool, error)
	ListGrants(ctx context.Context) ([]*UserApp, error)
	DeleteAppGrants(ctx context.Context, appID string) error
	DeleteUserGrants(ctx context.Context, userID string) error

	// GetTablePermission returns ErrNotFound when no override exists.
	GetTablePermission(ctx context.Context, userID, table string) (*TablePermission, error)
	// ReplaceTablePermission deletes any existing row for the pair, then inserts perm.
	ReplaceTablePermission(ctx context.Context, perm *TablePermission) error
	// ListTablePermissions lists every override, or only userID's when set.
	ListTablePermissions(ctx context.Context, userID string) ([]*TablePermission, error)
	DeleteUserTablePermissions(ctx context.Context, userID string) error
}

// DataStore runs row operations against caller-defined tables. Table and
// column names must already be validated; they are quoted by the dialect and
// every value is bound.
type DataStore interface {
	ListTables(ctx context.Context) ([]string, error)
	TableColumns(ctx context.Context, table string) ([]string, error)
	SelectRows(ctx context.Context, table string, conds []Condition, limit int) ([]map[string]any, error)
	InsertRow(ctx context.Context, table string, row map[string]any) (int64, error)
	UpdateRows(ctx context.Context, table string, set map[string]any, conds []Condition) (int64, error)
	DeleteRows(ctx context.Context, table string, conds []Condition) (int64, error)
	QueryRaw(ctx context.Context, sql string, params []any) ([]map[string]any, error)
	ExecRaw(ctx context.Context, sql string, params []any) (int64, error)
}
