package console

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/auth"
	"github.com/amoylab/rowgate/internal/common/config"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []dto.AuditEvent
	err    error
}

func (r *recordingNotifier) Publish(_ context.Context, e *dto.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return r.err
}

func (r *recordingNotifier) Watch(context.Context, string) (<-chan *dto.AuditEvent, error) {
	return nil, errors.New("not supported")
}

func (r *recordingNotifier) Close() error { return nil }

func (r *recordingNotifier) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func newTestConsole(t *testing.T) (*Console, database.Database, *recordingNotifier) {
	t.Helper()
	db, err := database.NewSQLite(&config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "console.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	rec := &recordingNotifier{}
	return New(db, zap.NewNop(), WithNotifier(rec)), db, rec
}

func do(t *testing.T, c *Console, req dto.AdminRequest) *dto.AdminResponse {
	t.Helper()
	resp, err := c.Handle(context.Background(), &req)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)
	return resp
}

func fail(t *testing.T, c *Console, req dto.AdminRequest, want *errorx.APIError) *errorx.APIError {
	t.Helper()
	_, err := c.Handle(context.Background(), &req)
	var apiErr *errorx.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, errors.Is(err, want), "got %s, want %s", apiErr.Code, want.Code)
	return apiErr
}

func TestConsole_VerifyAndUnknown(t *testing.T) {
	c, _, _ := newTestConsole(t)
	resp := do(t, c, dto.AdminRequest{Action: "verify"})
	assert.Equal(t, "Authenticated", resp.Message)

	apiErr := fail(t, c, dto.AdminRequest{Action: "reboot"}, errorx.ErrUnknownAction)
	assert.Equal(t, c.Actions(), apiErr.Details["available_actions"])
	assert.Len(t, c.Actions(), 15)
}

func TestConsole_RegisterApp(t *testing.T) {
	c, db, rec := newTestConsole(t)

	resp := do(t, c, dto.AdminRequest{Action: "register_app", AppID: "tasker", AppName: "Tasker"})
	assert.Equal(t, "tasker", resp.AppID)
	assert.Regexp(t, `^tk_[A-Za-z0-9]{32}$`, resp.AppKey)

	app, err := db.GetAppByKey(context.Background(), resp.AppKey)
	require.NoError(t, err)
	assert.Equal(t, "Tasker", app.AppName)

	fail(t, c, dto.AdminRequest{Action: "register_app", AppID: "tasker", AppName: "Other"}, errorx.ErrDuplicateID)
	apiErr := fail(t, c, dto.AdminRequest{Action: "register_app"}, errorx.ErrMissingField)
	assert.Equal(t, []string{"app_id", "app_name"}, apiErr.Details["fields"])

	list := do(t, c, dto.AdminRequest{Action: "list_apps"})
	assert.Len(t, list.Data, 1)
	assert.Equal(t, []string{"register_app"}, rec.actions())
}

func TestConsole_RegisterUser(t *testing.T) {
	c, db, _ := newTestConsole(t)
	ctx := context.Background()

	resp := do(t, c, dto.AdminRequest{Action: "register_user", Username: "alice"})
	assert.Regexp(t, `^usr_[A-Za-z0-9]{16}$`, resp.UserID)
	assert.Regexp(t, `^uk_[A-Za-z0-9]{32}$`, resp.UserKey)
	assert.Equal(t, "user", resp.Role)
	role, err := db.GetUserRole(ctx, resp.UserID)
	require.NoError(t, err)
	assert.Empty(t, role)

	resp = do(t, c, dto.AdminRequest{Action: "register_user", Username: "root", UserID: "root", Role: "admin"})
	assert.Equal(t, "root", resp.UserID)
	assert.Equal(t, "admin", resp.Role)
	role, err = db.GetUserRole(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	resp = do(t, c, dto.AdminRequest{Action: "register_user", Username: "eve", UserID: "eve", Role: "god"})
	assert.Equal(t, "user", resp.Role)
	role, err = db.GetUserRole(ctx, "eve")
	require.NoError(t, err)
	assert.Empty(t, role)

	fail(t, c, dto.AdminRequest{Action: "register_user", Username: "again", UserID: "root"}, errorx.ErrDuplicateID)
	fail(t, c, dto.AdminRequest{Action: "register_user"}, errorx.ErrMissingField)

	list := do(t, c, dto.AdminRequest{Action: "list_users"})
	users := list.Data.([]*dto.UserInfo)
	require.Len(t, users, 3)
	roles := map[string]string{}
	for _, u := range users {
		roles[u.UserID] = u.Role
	}
	assert.Equal(t, "admin", roles["root"])
	assert.Equal(t, "user", roles["eve"])
}

func TestConsole_UpdateRole(t *testing.T) {
	c, db, _ := newTestConsole(t)
	ctx := context.Background()
	do(t, c, dto.AdminRequest{Action: "register_user", Username: "alice", UserID: "alice"})

	fail(t, c, dto.AdminRequest{Action: "update_role", UserID: "alice", Role: "owner"}, errorx.ErrInvalidRole)
	fail(t, c, dto.AdminRequest{Action: "update_role", UserID: "ghost", Role: "admin"}, errorx.ErrUserNotFound)

	do(t, c, dto.AdminRequest{Action: "update_role", UserID: "alice", Role: "readonly"})
	resp := do(t, c, dto.AdminRequest{Action: "update_role", UserID: "alice", Role: "admin"})
	assert.Equal(t, "admin", resp.Role)

	roles, err := db.ListUserRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "admin", roles[0].Role)
}

func TestConsole_SetTablePermission(t *testing.T) {
	c, db, _ := newTestConsole(t)
	ctx := context.Background()
	do(t, c, dto.AdminRequest{Action: "register_user", Username: "alice", UserID: "alice"})

	fail(t, c, dto.AdminRequest{Action: "set_table_permission", UserID: "ghost", TableName: "notes", PermissionType: "select"}, errorx.ErrUserNotFound)
	fail(t, c, dto.AdminRequest{Action: "set_table_permission", UserID: "alice", TableName: "notes", PermissionType: "select,fly"}, errorx.ErrInvalidPermission)
	fail(t, c, dto.AdminRequest{Action: "set_table_permission", UserID: "alice", TableName: "no tes", PermissionType: "select"}, errorx.ErrInvalidIdentifier)
	fail(t, c, dto.AdminRequest{Action: "set_table_permission", UserID: "alice"}, errorx.ErrMissingField)

	resp := do(t, c, dto.AdminRequest{Action: "set_table_permission", UserID: "alice", TableName: "notes", PermissionType: "Insert, select, insert"})
	assert.Equal(t, "select,insert", resp.PermissionType)

	do(t, c, dto.AdminRequest{Action: "set_table_permission", UserID: "alice", TableName: "notes", PermissionType: "*"})
	perms, err := db.ListTablePermissions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "*", perms[0].PermissionType)

	list := do(t, c, dto.AdminRequest{Action: "list_table_permissions"})
	assert.Len(t, list.Data, 1)
}

func TestConsole_RegenerateKeys(t *testing.T) {
	c, db, _ := newTestConsole(t)
	ctx := context.Background()
	app := do(t, c, dto.AdminRequest{Action: "register_app", AppID: "tasker", AppName: "Tasker"})
	user := do(t, c, dto.AdminRequest{Action: "register_user", Username: "alice", UserID: "alice"})
	do(t, c, dto.AdminRequest{Action: "grant_access", UserID: "alice", AppID: "tasker"})

	authn := auth.NewAuthenticator(db, zap.NewNop())
	_, err := authn.Authenticate(ctx, app.AppKey, user.UserKey)
	require.NoError(t, err)

	newApp := do(t, c, dto.AdminRequest{Action: "regenerate_app_key", AppID: "tasker"})
	assert.NotEqual(t, app.AppKey, newApp.NewKey)
	_, err = authn.Authenticate(ctx, app.AppKey, user.UserKey)
	assert.ErrorIs(t, err, errorx.ErrInvalidAppKey)

	newUser := do(t, c, dto.AdminRequest{Action: "regenerate_user_key", UserID: "alice"})
	_, err = authn.Authenticate(ctx, newApp.NewKey, user.UserKey)
	assert.ErrorIs(t, err, errorx.ErrInvalidUserKey)
	_, err = authn.Authenticate(ctx, newApp.NewKey, newUser.NewKey)
	assert.NoError(t, err)

	fail(t, c, dto.AdminRequest{Action: "regenerate_app_key", AppID: "ghost"}, errorx.ErrAppNotFound)
	fail(t, c, dto.AdminRequest{Action: "regenerate_user_key", UserID: "ghost"}, errorx.ErrUserNotFound)
}

func TestConsole_GrantAndRevoke(t *testing.T) {
	c, db, rec := newTestConsole(t)
	ctx := context.Background()
	do(t, c, dto.AdminRequest{Action: "register_app", AppID: "tasker", AppName: "Tasker"})
	do(t, c, dto.AdminRequest{Action: "register_user", Username: "alice", UserID: "alice"})

	fail(t, c, dto.AdminRequest{Action: "grant_access", UserID: "ghost", AppID: "tasker"}, errorx.ErrUserNotFound)
	fail(t, c, dto.AdminRequest{Action: "grant_access", UserID: "alice", AppID: "ghost"}, errorx.ErrAppNotFound)

	resp := do(t, c, dto.AdminRequest{Action: "grant_access", UserID: "alice", AppID: "tasker"})
	assert.Equal(t, "Access granted", resp.Message)
	resp = do(t, c, dto.AdminRequest{Action: "grant_access", UserID: "alice", AppID: "tasker"})
	assert.Equal(t, "Access already granted", resp.Message)

	grants, err := db.ListGrants(ctx)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
	list := do(t, c, dto.AdminRequest{Action: "list_user_apps"})
	assert.Len(t, list.Data, 1)

	do(t, c, dto.AdminRequest{Action: "revoke_access", UserID: "alice", AppID: "tasker"})
	fail(t, c, dto.AdminRequest{Action: "revoke_access", UserID: "alice", AppID: "tasker"}, errorx.ErrGrantNotFound)

	assert.Equal(t, []string{"register_app", "register_user", "grant_access", "revoke_access"}, rec.actions())
}

func TestConsole_DeleteUserCascades(t *testing.T) {
	c, db, _ := newTestConsole(t)
	ctx := context.Background()
	app := do(t, c, dto.AdminRequest{Action: "register_app", AppID: "tasker", AppName: "Tasker"})
	user := do(t, c, dto.AdminRequest{Action: "register_user", Username: "alice", UserID: "alice", Role: "readonly"})
	do(t, c, dto.AdminRequest{Action: "grant_access", UserID: "alice", AppID: "tasker"})
	do(t, c, dto.AdminRequest{Action: "set_table_permission", UserID: "alice", TableName: "notes", PermissionType: "select"})

	do(t, c, dto.AdminRequest{Action: "delete_user", UserID: "alice"})

	grants, err := db.ListGrants(ctx)
	require.NoError(t, err)
	assert.Empty(t, grants)
	roles, err := db.ListUserRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
	perms, err := db.ListTablePermissions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, perms)

	_, err = auth.NewAuthenticator(db, zap.NewNop()).Authenticate(ctx, app.AppKey, user.UserKey)
	assert.ErrorIs(t, err, errorx.ErrInvalidUserKey)
	_, err = db.GetUserByKey(ctx, user.UserKey)
	assert.ErrorIs(t, err, database.ErrNotFound)

	fail(t, c, dto.AdminRequest{Action: "delete_user", UserID: "alice"}, errorx.ErrUserNotFound)
}

func TestConsole_DeleteAppCascades(t *testing.T) {
	c, db, _ := newTestConsole(t)
	ctx := context.Background()
	do(t, c, dto.AdminRequest{Action: "register_app", AppID: "tasker", AppName: "Tasker"})
	do(t, c, dto.AdminRequest{Action: "register_user", Username: "alice", UserID: "alice"})
	do(t, c, dto.AdminRequest{Action: "grant_access", UserID: "alice", AppID: "tasker"})

	do(t, c, dto.AdminRequest{Action: "delete_app", AppID: "tasker"})
	grants, err := db.ListGrants(ctx)
	require.NoError(t, err)
	assert.Empty(t, grants)

	// stale grants for an app that no longer exists are still cleaned up
	require.NoError(t, db.CreateGrant(ctx, "alice", "gone"))
	fail(t, c, dto.AdminRequest{Action: "delete_app", AppID: "gone"}, errorx.ErrAppNotFound)
	grants, err = db.ListGrants(ctx)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestConsole_AuditFailureDoesNotFailMutation(t *testing.T) {
	c, db, rec := newTestConsole(t)
	rec.err = errors.New("redis down")

	do(t, c, dto.AdminRequest{Action: "register_app", AppID: "tasker", AppName: "Tasker"})
	_, err := db.GetAppByID(context.Background(), "tasker")
	assert.NoError(t, err)
}
