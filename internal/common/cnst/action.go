package cnst

// Action is a data operation accepted by the query gateway
type Action string

const (
	ActionTables Action = "tables"
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionCustom Action = "custom"
)

// GatewayActions lists the gateway actions in the order they are reported to clients
var GatewayActions = []Action{ActionTables, ActionSelect, ActionInsert, ActionUpdate, ActionDelete, ActionCustom}

// ParseAction returns the gateway action named s
func ParseAction(s string) (Action, bool) {
	for _, a := range GatewayActions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// NeedsTable reports whether the action operates on a single named table
func (a Action) NeedsTable() bool {
	switch a {
	case ActionSelect, ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Mutates reports whether the action can change stored rows
func (a Action) Mutates() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete, ActionCustom:
		return true
	}
	return false
}

// AdminAction is an operation accepted by the admin console
type AdminAction string

const (
	AdminVerify               AdminAction = "verify"
	AdminListApps             AdminAction = "list_apps"
	AdminListUsers            AdminAction = "list_users"
	AdminListUserApps         AdminAction = "list_user_apps"
	AdminListTablePermissions AdminAction = "list_table_permissions"
	AdminRegisterApp          AdminAction = "register_app"
	AdminRegisterUser         AdminAction = "register_user"
	AdminUpdateRole           AdminAction = "update_role"
	AdminSetTablePermission   AdminAction = "set_table_permission"
	AdminRegenerateAppKey     AdminAction = "regenerate_app_key"
	AdminRegenerateUserKey    AdminAction = "regenerate_user_key"
	AdminDeleteApp            AdminAction = "delete_app"
	AdminDeleteUser           AdminAction = "delete_user"
	AdminGrantAccess          AdminAction = "grant_access"
	AdminRevokeAccess         AdminAction = "revoke_access"
)

var AdminActions = []AdminAction{
	AdminVerify,
	AdminListApps,
	AdminListUsers,
	AdminListUserApps,
	AdminListTablePermissions,
	AdminRegisterApp,
	AdminRegisterUser,
	AdminUpdateRole,
	AdminSetTablePermission,
	AdminRegenerateAppKey,
	AdminRegenerateUserKey,
	AdminDeleteApp,
	AdminDeleteUser,
	AdminGrantAccess,
	AdminRevokeAccess,
}
