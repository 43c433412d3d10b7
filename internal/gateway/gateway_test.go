package gateway

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/common/config"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const appKey = "tk_abc"

var userKeys = map[string]string{
	"alice": "uk_xyz",
	"bob":   "uk_bob",
	"root":  "uk_root",
}

type fixture struct {
	t  *testing.T
	db database.Database
	gw *Gateway
}

func newFixture(t *testing.T, cfg config.GatewayConfig) *fixture {
	t.Helper()
	db, err := database.NewSQLite(&config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "gateway.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.CreateApp(ctx, &database.App{AppID: "tasker", AppKey: appKey, AppName: "Tasker"}))
	for name, key := range userKeys {
		require.NoError(t, db.CreateUser(ctx, &database.User{UserID: name, UserKey: key, Username: name}))
		require.NoError(t, db.CreateGrant(ctx, name, "tasker"))
	}
	require.NoError(t, db.UpsertUserRole(ctx, "root", "admin"))

	_, err = db.ExecRaw(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, note TEXT, user_id TEXT)", nil)
	require.NoError(t, err)
	_, err = db.ExecRaw(ctx, "CREATE TABLE news (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT)", nil)
	require.NoError(t, err)

	if cfg.PublicTables == nil {
		cfg.PublicTables = []string{"news"}
	}
	return &fixture{t: t, db: db, gw: New(db, cfg, zap.NewNop())}
}

func (f *fixture) query(user string, req dto.QueryRequest) (*dto.QueryResponse, error) {
	req.AppKey = appKey
	req.UserKey = userKeys[user]
	return f.gw.Query(context.Background(), &req)
}

func (f *fixture) mustQuery(user string, req dto.QueryRequest) *dto.QueryResponse {
	f.t.Helper()
	resp, err := f.query(user, req)
	require.NoError(f.t, err)
	return resp
}

func (f *fixture) insertNote(user, note string) {
	f.t.Helper()
	f.mustQuery(user, dto.QueryRequest{Action: "insert", Table: "notes", Data: map[string]any{"note": note}})
}

func notesOf(rows []map[string]any) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["note"].(string))
	}
	return out
}

func TestQuery_AliceScenario(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})

	resp := f.mustQuery("alice", dto.QueryRequest{
		Action: "insert", Table: "notes",
		Data: map[string]any{"note": "hi", "user_id": "bob"},
	})
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(1), resp.Meta.RowsAffected)
	assert.Equal(t, dto.AuthInfo{App: "Tasker", User: "alice", Role: "user"}, resp.Auth)

	f.insertNote("bob", "bob's")

	resp = f.mustQuery("alice", dto.QueryRequest{Action: "select", Table: "notes"})
	require.Len(t, resp.Result.Results, 1)
	assert.Equal(t, "hi", resp.Result.Results[0]["note"])
	assert.Equal(t, "alice", resp.Result.Results[0]["user_id"])
	assert.Equal(t, int64(1), resp.Meta.RowsReturned)

	require.NoError(t, f.db.ReplaceTablePermission(context.Background(), &database.TablePermission{
		UserID: "alice", Table: "notes", PermissionType: "select",
	}))
	_, err := f.query("alice", dto.QueryRequest{Action: "insert", Table: "notes", Data: map[string]any{"note": "again"}})
	assert.ErrorIs(t, err, errorx.ErrPermissionDenied)

	resp = f.mustQuery("alice", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.Len(t, resp.Result.Results, 1)
}

func TestQuery_SystemTablesDeniedForEveryone(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})
	for _, user := range []string{"alice", "root"} {
		for _, table := range []string{"apps", "users", "user_roles", "user_apps", "table_permissions", "USERS"} {
			for _, req := range []dto.QueryRequest{
				{Action: "select", Table: table},
				{Action: "insert", Table: table, Data: map[string]any{"x": 1}},
				{Action: "update", Table: table, Data: map[string]any{"x": 1}, Where: map[string]any{"x": 2}},
				{Action: "delete", Table: table, Where: map[string]any{"x": 2}},
				{Action: "custom", SQL: "SELECT * FROM " + table},
			} {
				_, err := f.query(user, req)
				assert.ErrorIs(t, err, errorx.ErrSystemTableForbidden, "%s %s %s", user, req.Action, table)
			}
		}
	}
}

func TestQuery_NonAdminMutationsAreScoped(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})
	f.insertNote("alice", "a1")
	f.insertNote("bob", "b1")
	f.insertNote("bob", "b2")

	resp := f.mustQuery("alice", dto.QueryRequest{
		Action: "update", Table: "notes",
		Data:  map[string]any{"note": "changed"},
		Where: map[string]any{"note": []any{"a1", "b1", "b2"}},
	})
	assert.Equal(t, int64(1), resp.Result.Changes)

	resp = f.mustQuery("alice", dto.QueryRequest{
		Action: "delete", Table: "notes",
		Where: map[string]any{"user_id": "bob"},
	})
	assert.Equal(t, int64(0), resp.Result.Changes)

	resp = f.mustQuery("bob", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.ElementsMatch(t, []string{"b1", "b2"}, notesOf(resp.Result.Results))

	resp = f.mustQuery("alice", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.Equal(t, []string{"changed"}, notesOf(resp.Result.Results))
}

func TestQuery_AdminIsUnscoped(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})
	f.insertNote("alice", "a1")
	f.insertNote("bob", "b1")

	resp := f.mustQuery("root", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.ElementsMatch(t, []string{"a1", "b1"}, notesOf(resp.Result.Results))

	resp = f.mustQuery("root", dto.QueryRequest{
		Action: "update", Table: "notes",
		Data:  map[string]any{"note": "x"},
		Where: map[string]any{"note": []any{"a1", "b1"}},
	})
	assert.Equal(t, int64(2), resp.Result.Changes)

	resp = f.mustQuery("root", dto.QueryRequest{Action: "delete", Table: "notes", Where: map[string]any{"note": "x"}})
	assert.Equal(t, int64(2), resp.Result.Changes)

	resp = f.mustQuery("root", dto.QueryRequest{
		Action: "insert", Table: "notes",
		Data: map[string]any{"note": "for bob", "user_id": "bob"},
	})
	assert.Equal(t, int64(1), resp.Result.Changes)
	resp = f.mustQuery("bob", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.Equal(t, []string{"for bob"}, notesOf(resp.Result.Results))
}

func TestQuery_AdminInsertStampsOwner(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})

	f.mustQuery("root", dto.QueryRequest{Action: "insert", Table: "notes", Data: map[string]any{"note": "admin note"}})
	resp := f.mustQuery("root", dto.QueryRequest{
		Action: "select", Table: "notes",
		Where: map[string]any{"user_id": "root"},
	})
	require.Len(t, resp.Result.Results, 1)
	assert.Equal(t, "admin note", resp.Result.Results[0]["note"])

	f.mustQuery("root", dto.QueryRequest{Action: "insert", Table: "notes", Data: map[string]any{"note": "for alice", "user_id": "alice"}})
	resp = f.mustQuery("alice", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.Equal(t, []string{"for alice"}, notesOf(resp.Result.Results))

	// public tables have no owner column and stay as given
	resp = f.mustQuery("root", dto.QueryRequest{Action: "insert", Table: "news", Data: map[string]any{"title": "t"}})
	assert.Equal(t, int64(1), resp.Result.Changes)
}

func TestQuery_PublicTables(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})

	f.mustQuery("alice", dto.QueryRequest{Action: "insert", Table: "news", Data: map[string]any{"title": "hello"}})
	f.mustQuery("root", dto.QueryRequest{Action: "insert", Table: "news", Data: map[string]any{"title": "world"}})

	resp := f.mustQuery("bob", dto.QueryRequest{Action: "select", Table: "news"})
	assert.Len(t, resp.Result.Results, 2)

	_, err := f.query("alice", dto.QueryRequest{
		Action: "update", Table: "news",
		Data: map[string]any{"title": "x"}, Where: map[string]any{"title": "hello"},
	})
	assert.ErrorIs(t, err, errorx.ErrPermissionDenied)
	_, err = f.query("alice", dto.QueryRequest{Action: "delete", Table: "news", Where: map[string]any{"title": "hello"}})
	assert.ErrorIs(t, err, errorx.ErrPermissionDenied)

	resp = f.mustQuery("root", dto.QueryRequest{Action: "delete", Table: "news", Where: map[string]any{"title": "hello"}})
	assert.Equal(t, int64(1), resp.Result.Changes)
}

func TestQuery_OwnerIsImmutable(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})
	f.insertNote("alice", "a1")

	for _, user := range []string{"alice", "root"} {
		_, err := f.query(user, dto.QueryRequest{
			Action: "update", Table: "notes",
			Data: map[string]any{"user_id": "bob"}, Where: map[string]any{"note": "a1"},
		})
		assert.ErrorIs(t, err, errorx.ErrInvalidInput, user)
	}
}

func TestQuery_IdentifierHardening(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{Tables: []string{"notes"}})

	_, err := f.query("alice", dto.QueryRequest{Action: "select", Table: "notes; DROP TABLE notes"})
	assert.ErrorIs(t, err, errorx.ErrInvalidIdentifier)

	_, err = f.query("alice", dto.QueryRequest{Action: "insert", Table: "notes", Data: map[string]any{"note) VALUES ('x'); --": "y"}})
	assert.ErrorIs(t, err, errorx.ErrInvalidIdentifier)

	_, err = f.query("alice", dto.QueryRequest{Action: "select", Table: "missing"})
	assert.ErrorIs(t, err, errorx.ErrTableNotFound)

	_, err = f.query("root", dto.QueryRequest{Action: "select", Table: "news"})
	assert.ErrorIs(t, err, errorx.ErrTableNotFound, "outside the allow-list")

	_, err = f.query("alice", dto.QueryRequest{Action: "select", Table: "notes", Where: map[string]any{"nope": 1}})
	assert.ErrorIs(t, err, errorx.ErrInvalidIdentifier)

	resp := f.mustQuery("alice", dto.QueryRequest{Action: "tables"})
	assert.Equal(t, []map[string]any{{"name": "notes"}}, resp.Result.Results)
}

func TestQuery_Validation(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})

	cases := []struct {
		name string
		req  dto.QueryRequest
		want *errorx.APIError
	}{
		{"no action", dto.QueryRequest{}, errorx.ErrMissingField},
		{"unknown action", dto.QueryRequest{Action: "merge"}, errorx.ErrUnknownAction},
		{"select without table", dto.QueryRequest{Action: "select"}, errorx.ErrMissingField},
		{"insert without data", dto.QueryRequest{Action: "insert", Table: "notes"}, errorx.ErrMissingField},
		{"update without where", dto.QueryRequest{Action: "update", Table: "notes", Data: map[string]any{"note": "x"}}, errorx.ErrMissingField},
		{"delete without where", dto.QueryRequest{Action: "delete", Table: "notes"}, errorx.ErrMissingField},
		{"custom without sql", dto.QueryRequest{Action: "custom", SQL: "  "}, errorx.ErrMissingField},
		{"nested value", dto.QueryRequest{Action: "insert", Table: "notes", Data: map[string]any{"note": map[string]any{"a": 1}}}, errorx.ErrInvalidInput},
		{"empty in list", dto.QueryRequest{Action: "select", Table: "notes", Where: map[string]any{"id": []any{}}}, errorx.ErrInvalidInput},
		{"negative limit", dto.QueryRequest{Action: "select", Table: "notes", Limit: -1}, errorx.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.query("alice", tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.query("alice", dto.QueryRequest{Action: "merge"})
	var apiErr *errorx.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "tables, select, insert, update, delete, custom")
}

func TestQuery_Authentication(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})

	_, err := f.gw.Query(context.Background(), &dto.QueryRequest{Action: "tables"})
	assert.ErrorIs(t, err, errorx.ErrMissingCredentials)

	ctx := context.Background()
	require.NoError(t, f.db.UpdateAppKey(ctx, "tasker", "tk_new"))
	_, err = f.query("alice", dto.QueryRequest{Action: "tables"})
	assert.ErrorIs(t, err, errorx.ErrInvalidAppKey)

	_, err = f.gw.Query(ctx, &dto.QueryRequest{Action: "tables", AppKey: "tk_new", UserKey: userKeys["alice"]})
	assert.NoError(t, err)

	_, err = f.db.DeleteGrant(ctx, "alice", "tasker")
	require.NoError(t, err)
	_, err = f.gw.Query(ctx, &dto.QueryRequest{Action: "tables", AppKey: "tk_new", UserKey: userKeys["alice"]})
	assert.ErrorIs(t, err, errorx.ErrAccessDenied)
}

func TestQuery_Custom(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})
	f.insertNote("alice", "a1")

	resp := f.mustQuery("alice", dto.QueryRequest{
		Action: "custom",
		SQL:    "SELECT note FROM notes WHERE user_id = ?",
		Params: []any{"alice"},
	})
	assert.Equal(t, []string{"a1"}, notesOf(resp.Result.Results))

	resp = f.mustQuery("alice", dto.QueryRequest{
		Action: "custom",
		SQL:    "UPDATE notes SET note = ? WHERE note = ?",
		Params: []any{"a2", "a1"},
	})
	assert.Equal(t, int64(1), resp.Meta.RowsAffected)

	_, err := f.query("alice", dto.QueryRequest{Action: "custom", SQL: "DROP TABLE notes"})
	assert.ErrorIs(t, err, errorx.ErrPermissionDenied)

	_, err = f.query("alice", dto.QueryRequest{Action: "custom", SQL: "SELECT * FROM nowhere"})
	assert.ErrorIs(t, err, errorx.ErrBackendFailure)

	f.mustQuery("root", dto.QueryRequest{Action: "custom", SQL: "DROP TABLE news"})
	resp = f.mustQuery("root", dto.QueryRequest{Action: "tables"})
	assert.Equal(t, []map[string]any{{"name": "notes"}}, resp.Result.Results)
}

func TestQuery_CustomDeniedWithTablePermissions(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{})
	f.insertNote("bob", "b1")
	require.NoError(t, f.db.ReplaceTablePermission(context.Background(), &database.TablePermission{
		UserID: "alice", Table: "notes", PermissionType: "select",
	}))

	_, err := f.query("alice", dto.QueryRequest{
		Action: "custom",
		SQL:    "INSERT INTO notes (note, user_id) VALUES ('c', 'bob')",
	})
	assert.ErrorIs(t, err, errorx.ErrPermissionDenied)
	_, err = f.query("alice", dto.QueryRequest{Action: "custom", SQL: "SELECT * FROM notes"})
	assert.ErrorIs(t, err, errorx.ErrPermissionDenied)

	resp := f.mustQuery("bob", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.Equal(t, []string{"b1"}, notesOf(resp.Result.Results))

	resp = f.mustQuery("alice", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.Empty(t, resp.Result.Results)
}

func TestQuery_LimitAndNumbers(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{MaxRows: 2})
	for _, n := range []string{"a", "b", "c"} {
		f.insertNote("alice", n)
	}

	resp := f.mustQuery("alice", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.Len(t, resp.Result.Results, 2)
	resp = f.mustQuery("alice", dto.QueryRequest{Action: "select", Table: "notes", Limit: 100})
	assert.Len(t, resp.Result.Results, 2)
	resp = f.mustQuery("alice", dto.QueryRequest{Action: "select", Table: "notes", Limit: 1})
	assert.Len(t, resp.Result.Results, 1)

	resp = f.mustQuery("alice", dto.QueryRequest{
		Action: "select", Table: "notes",
		Where: map[string]any{"id": json.Number("2")},
	})
	assert.Equal(t, []string{"b"}, notesOf(resp.Result.Results))
}

func TestQuery_ReadonlyEnforcement(t *testing.T) {
	f := newFixture(t, config.GatewayConfig{EnforceReadonly: true})
	require.NoError(t, f.db.UpsertUserRole(context.Background(), "bob", "readonly"))

	_, err := f.query("bob", dto.QueryRequest{Action: "insert", Table: "notes", Data: map[string]any{"note": "x"}})
	assert.ErrorIs(t, err, errorx.ErrPermissionDenied)
	resp := f.mustQuery("bob", dto.QueryRequest{Action: "select", Table: "notes"})
	assert.Equal(t, "readonly", resp.Auth.Role)
}

func TestNormalizeScalar(t *testing.T) {
	v, err := normalizeScalar(json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
	v, err = normalizeScalar(json.Number("4.5"))
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)
	_, err = normalizeScalar([]any{1})
	assert.Error(t, err)
}
