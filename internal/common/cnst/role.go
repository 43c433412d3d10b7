package cnst

// Role is the coarse privilege class of a user
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleReadonly Role = "readonly"
)

// DefaultRole applies to users without a stored role
const DefaultRole = RoleUser

var Roles = []Role{RoleAdmin, RoleUser, RoleReadonly}

// ParseRole returns the role named s
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}
