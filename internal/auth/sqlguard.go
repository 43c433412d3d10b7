package auth

import (
	"regexp"
	"strings"

	"github.com/amoylab/rowgate/internal/common/cnst"
)

// IdentifierPattern is the only shape a table or column name may take
var IdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name matches IdentifierPattern
func ValidIdentifier(name string) bool {
	return IdentifierPattern.MatchString(name)
}

// DangerousKeywords gate custom statements to admins. Matching is a plain
// case-insensitive substring test: "created_at" trips "create" and DDL outside
// this list (rename, vacuum) is not gated.
var DangerousKeywords = []string{"drop", "alter", "truncate", "create"}

// ContainsDangerousKeyword returns the first keyword found in sql, if any
func ContainsDangerousKeyword(sql string) (string, bool) {
	lower := strings.ToLower(sql)
	for _, kw := range DangerousKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// ReferencedSystemTable returns the first system table whose name occurs in sql
func ReferencedSystemTable(sql string) (string, bool) {
	lower := strings.ToLower(sql)
	for _, t := range cnst.SystemTables {
		if strings.Contains(lower, t) {
			return t, true
		}
	}
	return "", false
}

// StatementKind tells the gateway how to run a custom statement
type StatementKind int

const (
	// StatementExec changes data or schema and reports affected rows
	StatementExec StatementKind = iota
	// StatementQuery returns rows
	StatementQuery
)

var queryVerbs = []string{"select", "with", "pragma", "explain", "values", "show", "describe"}

// ClassifyStatement looks at the first keyword of sql, skipping leading
// whitespace, comments and parentheses.
func ClassifyStatement(sql string) StatementKind {
	verb := strings.ToLower(firstWord(sql))
	for _, v := range queryVerbs {
		if verb == v {
			return StatementQuery
		}
	}
	return StatementExec
}

func firstWord(sql string) string {
	s := sql
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}
			return ""
		}
		break
	}
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
