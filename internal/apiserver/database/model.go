package database

import (
	"time"

	"github.com/amoylab/rowgate/internal/common/cnst"
)

// App is a registered calling application
type App struct {
	AppID     string    `json:"app_id" gorm:"column:app_id;primaryKey;type:varchar(64)"`
	AppKey    string    `json:"app_key" gorm:"column:app_key;type:varchar(64);uniqueIndex;not null"`
	AppName   string    `json:"app_name" gorm:"column:app_name;type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (App) TableName() string { return cnst.TableApps }

// User is a registered end user
type User struct {
	UserID    string    `json:"user_id" gorm:"column:user_id;primaryKey;type:varchar(64)"`
	UserKey   string    `json:"user_key" gorm:"column:user_key;type:varchar(64);uniqueIndex;not null"`
	Username  string    `json:"username" gorm:"column:username;type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (User) TableName() string { return cnst.TableUsers }

// UserRole assigns a role to a user. The primary key keeps it to one row per user.
type UserRole struct {
	UserID    string    `json:"user_id" gorm:"column:user_id;primaryKey;type:varchar(64)"`
	Role      string    `json:"role" gorm:"column:role;type:varchar(32);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (UserRole) TableName() string { return cnst.TableUserRoles }

// UserApp grants a user access to an app
type UserApp struct {
	UserID    string    `json:"user_id" gorm:"column:user_id;primaryKey;type:varchar(64)"`
	AppID     string    `json:"app_id" gorm:"column:app_id;primaryKey;type:varchar(64);index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (UserApp) TableName() string { return cnst.TableUserApps }

// TablePermission restricts the actions a user may run against one table
type TablePermission struct {
	UserID         string    `json:"user_id" gorm:"column:user_id;primaryKey;type:varchar(64)"`
	Table          string    `json:"table_name" gorm:"column:table_name;primaryKey;type:varchar(128)"`
	PermissionType string    `json:"permission_type" gorm:"column:permission_type;type:varchar(255);not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
}

func (TablePermission) TableName() string { return cnst.TableTablePermissions }

func models() []any {
	return []any{&App{}, &User{}, &UserRole{}, &UserApp{}, &TablePermission{}}
}
