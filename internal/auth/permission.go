package auth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/amoylab/rowgate/internal/common/cnst"

	"github.com/ifuryst/lol"
)

// PermissionSet is the parsed form of a table permission_type value.
type PermissionSet struct {
	All     bool
	Actions []cnst.Action
}

// Allows reports whether the set contains action
func (p PermissionSet) Allows(action cnst.Action) bool {
	return p.All || slices.Contains(p.Actions, action)
}

// String renders the set in its stored form
func (p PermissionSet) String() string {
	if p.All {
		return cnst.PermissionAll
	}
	parts := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

// ParsePermission parses "*" or a comma separated list of gateway actions.
// Names are trimmed, lowercased and deduplicated; the result is ordered the
// way the gateway lists its actions.
func ParsePermission(s string) (PermissionSet, error) {
	s = strings.TrimSpace(s)
	if s == cnst.PermissionAll {
		return PermissionSet{All: true}, nil
	}

	var names []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if part == cnst.PermissionAll {
			return PermissionSet{All: true}, nil
		}
		names = append(names, part)
	}
	if len(names) == 0 {
		return PermissionSet{}, fmt.Errorf("permission list is empty")
	}

	var actions []cnst.Action
	for _, name := range lol.UniqSlice(names) {
		a, ok := cnst.ParseAction(name)
		if !ok {
			return PermissionSet{}, fmt.Errorf("unknown action %q", name)
		}
		actions = append(actions, a)
	}
	slices.SortFunc(actions, func(a, b cnst.Action) int {
		return slices.Index(cnst.GatewayActions, a) - slices.Index(cnst.GatewayActions, b)
	})
	return PermissionSet{Actions: actions}, nil
}

// parseStoredPermission reads a stored permission_type leniently: unknown
// names are ignored so a bad row can only narrow access.
func parseStoredPermission(s string) PermissionSet {
	var set PermissionSet
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == cnst.PermissionAll {
			return PermissionSet{All: true}
		}
		if a, ok := cnst.ParseAction(part); ok {
			set.Actions = append(set.Actions, a)
		}
	}
	return set
}
