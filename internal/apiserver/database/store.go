package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// store implements Database on top of a gorm connection. The dialect specific
// types embed it and only differ in how the connection is opened.
type store struct {
	db *gorm.DB
}

func newStore(db *gorm.DB) (*store, error) {
	if err := db.AutoMigrate(models()...); err != nil {
		return nil, err
	}
	return &store{db: db}, nil
}

// conn returns the transaction on ctx, or the pool bound to ctx.
func (s *store) conn(ctx context.Context) *gorm.DB {
	return getDBFromContext(ctx, s.db)
}

// Close closes the database connection
func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return err
	}
}

func (s *store) CreateApp(ctx context.Context, app *App) error {
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}
	return translate(s.conn(ctx).Create(app).Error)
}

func (s *store) GetAppByID(ctx context.Context, appID string) (*App, error) {
	var app App
	if err := s.conn(ctx).Where("app_id = ?", appID).First(&app).Error; err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

func (s *store) GetAppByKey(ctx context.Context, appKey string) (*App, error) {
	var app App
	if err := s.conn(ctx).Where("app_key = ?", appKey).First(&app).Error; err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

func (s *store) ListApps(ctx context.Context) ([]*App, error) {
	var apps []*App
	err := s.conn(ctx).Order("created_at desc").Find(&apps).Error
	return apps, err
}

func (s *store) UpdateAppKey(ctx context.Context, appID, appKey string) error {
	res := s.conn(ctx).Model(&App{}).Where("app_id = ?", appID).Update("app_key", appKey)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *store) DeleteApp(ctx context.Context, appID string) (bool, error) {
	res := s.conn(ctx).Where("app_id = ?", appID).Delete(&App{})
	return res.RowsAffected > 0, res.Error
}

func (s *store) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	return translate(s.conn(ctx).Create(user).Error)
}

func (s *store) GetUserByID(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *store) GetUserByKey(ctx context.Context, userKey string) (*User, error) {
	var user User
	if err := s.conn(ctx).Where("user_key = ?", userKey).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *store) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.conn(ctx).Order("created_at desc").Find(&users).Error
	return users, err
}

func (s *store) UpdateUserKey(ctx context.Context, userID, userKey string) error {
	res := s.conn(ctx).Model(&User{}).Where("user_id = ?", userID).Update("user_key", userKey)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *store) DeleteUser(ctx context.Context, userID string) (bool, error) {
	res := s.conn(ctx).Where("user_id = ?", userID).Delete(&User{})
	return res.RowsAffected > 0, res.Error
}

func (s *store) GetUserRole(ctx context.Context, userID string) (string, error) {
	var roles []UserRole
	if err := s.conn(ctx).Where("user_id = ?", userID).Limit(1).Find(&roles).Error; err != nil {
		return "", err
	}
	if len(roles) == 0 {
		return "", nil
	}
	return roles[0].Role, nil
}

func (s *store) ListUserRoles(ctx context.Context) ([]*UserRole, error) {
	var roles []*UserRole
	err := s.conn(ctx).Find(&roles).Error
	return roles, err
}

func (s *store) UpsertUserRole(ctx context.Context, userID, role string) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(&UserRole{UserID: userID, Role: role, CreatedAt: time.Now()}).Error
}

func (s *store) DeleteUserRole(ctx context.Context, userID string) error {
	return s.conn(ctx).Where("user_id = ?", userID).Delete(&UserRole{}).Error
}

func (s *store) HasGrant(ctx context.Context, userID, appID string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&UserApp{}).
		Where("user_id = ? AND app_id = ?", userID, appID).
		Count(&count).Error
	return count > 0, err
}

func (s *store) CreateGrant(ctx context.Context, userID, appID string) error {
	return translate(s.conn(ctx).Create(&UserApp{UserID: userID, AppID: appID, CreatedAt: time.Now()}).Error)
}

func (s *store) DeleteGrant(ctx context.Context, userID, appID string) (bool, error) {
	res := s.conn(ctx).Where("user_id = ? AND app_id = ?", userID, appID).Delete(&UserApp{})
	return res.RowsAffected > 0, res.Error
}

func (s *store) ListGrants(ctx context.Context) ([]*UserApp, error) {
	var grants []*UserApp
	err := s.conn(ctx).Order("created_at desc").Find(&grants).Error
	return grants, err
}

func (s *store) DeleteAppGrants(ctx context.Context, appID string) error {
	return s.conn(ctx).Where("app_id = ?", appID).Delete(&UserApp{}).Error
}

func (s *store) DeleteUserGrants(ctx context.Context, userID string) error {
	return s.conn(ctx).Where("user_id = ?", userID).Delete(&UserApp{}).Error
}

func (s *store) GetTablePermission(ctx context.Context, userID, table string) (*TablePermission, error) {
	var perm TablePermission
	err := s.conn(ctx).Where("user_id = ? AND table_name = ?", userID, table).First(&perm).Error
	if err != nil {
		return nil, translate(err)
	}
	return &perm, nil
}

func (s *store) ReplaceTablePermission(ctx context.Context, perm *TablePermission) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		if err := s.conn(ctx).
			Where("user_id = ? AND table_name = ?", perm.UserID, perm.Table).
			Delete(&TablePermission{}).Error; err != nil {
			return err
		}
		if perm.CreatedAt.IsZero() {
			perm.CreatedAt = time.Now()
		}
		return translate(s.conn(ctx).Create(perm).Error)
	})
}

func (s *store) ListTablePermissions(ctx context.Context, userID string) ([]*TablePermission, error) {
	var perms []*TablePermission
	q := s.conn(ctx).Order("user_id asc, table_name asc")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Find(&perms).Error
	return perms, err
}

func (s *store) DeleteUserTablePermissions(ctx context.Context, userID string) error {
	return s.conn(ctx).Where("user_id = ?", userID).Delete(&TablePermission{}).Error
}
