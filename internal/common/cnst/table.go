package cnst

const (
	TableApps             = "apps"
	TableUsers            = "users"
	TableUserRoles        = "user_roles"
	TableUserApps         = "user_apps"
	TableTablePermissions = "table_permissions"
)

// SystemTables hold credentials and access-control state; the gateway never exposes them.
var SystemTables = []string{TableApps, TableUsers, TableUserRoles, TableUserApps, TableTablePermissions}

// IsSystemTable reports whether name is one of the system tables
func IsSystemTable(name string) bool {
	for _, t := range SystemTables {
		if t == name {
			return true
		}
	}
	return false
}

// OwnerColumn holds the owning user's id in private data tables
const OwnerColumn = "user_id"

// PermissionAll grants every gateway action on a table
const PermissionAll = "*"
