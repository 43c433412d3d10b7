package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/errorx"

	"go.uber.org/zap"
)

// Request is one authorization question: may this caller run action on table?
type Request struct {
	UserID   string
	Username string
	AppName  string
	Role     cnst.Role
	Table    string
	Action   cnst.Action
	// SQL is the statement text of a custom action
	SQL string
}

// Decision is the outcome of the first rule that did not abstain
type Decision struct {
	Allowed bool
	Rule    string
	// Err explains a denial and is nil when Allowed
	Err *errorx.APIError
}

// Rule inspects a request and returns nil to abstain. A non-nil error means
// the rule could not be evaluated, not that access is denied.
type Rule struct {
	Name  string
	Check func(ctx context.Context, req *Request) (*Decision, error)
}

const (
	RuleSystemTable = "system-table"
	RuleDangerous   = "dangerous-statement"
	RuleRestricted  = "restricted-custom"
	RulePermission  = "table-permission"
	RuleReadonly    = "readonly-role"
	RuleDefault     = "default-allow"
)

// Authorizer walks an ordered rule chain; the first rule with an opinion wins.
type Authorizer struct {
	rules  []Rule
	logger *zap.Logger
}

// AuthorizerOption adjusts the default chain
type AuthorizerOption func(*authorizerOptions)

type authorizerOptions struct {
	enforceReadonly bool
}

// WithReadonlyEnforcement denies mutating actions to readonly users before
// the default allow.
func WithReadonlyEnforcement(enabled bool) AuthorizerOption {
	return func(o *authorizerOptions) { o.enforceReadonly = enabled }
}

// NewAuthorizer builds the default chain: system tables, dangerous custom
// statements, custom statements of users with table overrides, explicit table
// permissions, optional readonly check, allow.
func NewAuthorizer(store database.GrantStore, logger *zap.Logger, opts ...AuthorizerOption) *Authorizer {
	var o authorizerOptions
	for _, opt := range opts {
		opt(&o)
	}

	rules := []Rule{
		SystemTableRule(),
		DangerousStatementRule(),
		RestrictedCustomRule(store),
		TablePermissionRule(store),
	}
	if o.enforceReadonly {
		rules = append(rules, ReadonlyRule())
	}
	rules = append(rules, DefaultAllowRule())
	return NewAuthorizerWithRules(logger, rules...)
}

// NewAuthorizerWithRules builds an authorizer over an explicit chain
func NewAuthorizerWithRules(logger *zap.Logger, rules ...Rule) *Authorizer {
	return &Authorizer{rules: rules, logger: logger.Named("authorizer")}
}

// Rules returns the names of the chain in evaluation order
func (a *Authorizer) Rules() []string {
	names := make([]string, len(a.rules))
	for i, r := range a.rules {
		names[i] = r.Name
	}
	return names
}

// Authorize evaluates the chain. A chain where every rule abstains denies.
func (a *Authorizer) Authorize(ctx context.Context, req *Request) (*Decision, error) {
	for _, r := range a.rules {
		d, err := r.Check(ctx, req)
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}
		d.Rule = r.Name
		if !d.Allowed {
			a.logger.Info("request denied",
				zap.String("rule", r.Name),
				zap.String("user", req.Username),
				zap.String("app", req.AppName),
				zap.String("table", req.Table),
				zap.String("action", string(req.Action)))
		}
		return d, nil
	}
	return deny(req, errorx.ErrPermissionDenied.WithMessage("No rule allowed %s", req.Action)), nil
}

func allow() *Decision { return &Decision{Allowed: true} }

func deny(req *Request, err *errorx.APIError) *Decision {
	err = err.WithDetail("user", req.Username).WithDetail("action", string(req.Action))
	if req.AppName != "" {
		err = err.WithDetail("app", req.AppName)
	}
	if req.Table != "" {
		err = err.WithDetail("table", req.Table)
	}
	return &Decision{Err: err}
}

// SystemTableRule denies any request naming a system table, and any custom
// statement whose text mentions one.
func SystemTableRule() Rule {
	return Rule{Name: RuleSystemTable, Check: func(_ context.Context, req *Request) (*Decision, error) {
		if req.Table != "" && cnst.IsSystemTable(strings.ToLower(req.Table)) {
			return deny(req, errorx.ErrSystemTableForbidden), nil
		}
		if req.Action == cnst.ActionCustom {
			if t, ok := ReferencedSystemTable(req.SQL); ok {
				return deny(req, errorx.ErrSystemTableForbidden.WithDetail("referenced", t)), nil
			}
		}
		return nil, nil
	}}
}

// DangerousStatementRule requires admin for custom statements containing a
// schema-changing keyword.
func DangerousStatementRule() Rule {
	return Rule{Name: RuleDangerous, Check: func(_ context.Context, req *Request) (*Decision, error) {
		if req.Action != cnst.ActionCustom || req.Role == cnst.RoleAdmin {
			return nil, nil
		}
		if kw, ok := ContainsDangerousKeyword(req.SQL); ok {
			return deny(req, errorx.ErrPermissionDenied.
				WithMessage("Only admins may run statements containing %q", kw).
				WithDetail("keyword", kw)), nil
		}
		return nil, nil
	}}
}

// RestrictedCustomRule denies custom statements to non-admins that have any
// table permission row. Custom SQL names no table, so the rows could not
// otherwise constrain it.
func RestrictedCustomRule(store database.GrantStore) Rule {
	return Rule{Name: RuleRestricted, Check: func(ctx context.Context, req *Request) (*Decision, error) {
		if req.Action != cnst.ActionCustom || req.Role == cnst.RoleAdmin {
			return nil, nil
		}
		perms, err := store.ListTablePermissions(ctx, req.UserID)
		if err != nil {
			return nil, errorx.BackendError(err)
		}
		if len(perms) == 0 {
			return nil, nil
		}
		return deny(req, errorx.ErrPermissionDenied.
			WithMessage("Custom statements are not allowed for users with table permissions")), nil
	}}
}

// TablePermissionRule applies an explicit (user, table) permission row
func TablePermissionRule(store database.GrantStore) Rule {
	return Rule{Name: RulePermission, Check: func(ctx context.Context, req *Request) (*Decision, error) {
		if req.Table == "" {
			return nil, nil
		}
		perm, err := store.GetTablePermission(ctx, req.UserID, req.Table)
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, errorx.BackendError(err)
		}
		if parseStoredPermission(perm.PermissionType).Allows(req.Action) {
			return allow(), nil
		}
		return deny(req, errorx.ErrPermissionDenied.
			WithMessage("Permission denied: %s on %s", req.Action, req.Table).
			WithDetail("allowed", perm.PermissionType)), nil
	}}
}

// ReadonlyRule denies mutating actions to readonly users
func ReadonlyRule() Rule {
	return Rule{Name: RuleReadonly, Check: func(_ context.Context, req *Request) (*Decision, error) {
		if req.Role == cnst.RoleReadonly && req.Action.Mutates() {
			return deny(req, errorx.ErrPermissionDenied.
				WithMessage("Readonly users cannot %s", req.Action)), nil
		}
		return nil, nil
	}}
}

// DefaultAllowRule allows everything that reached it
func DefaultAllowRule() Rule {
	return Rule{Name: RuleDefault, Check: func(context.Context, *Request) (*Decision, error) {
		return allow(), nil
	}}
}
