package console

import (
	"context"
	"errors"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/apiserver/notifier"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"
	"github.com/amoylab/rowgate/pkg/metrics"
	"github.com/amoylab/rowgate/pkg/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type operation func(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error)

// Console provisions apps, users, roles, grants and table permissions. The
// caller has already checked the admin secret.
type Console struct {
	db       database.Database
	notifier notifier.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	ops      map[cnst.AdminAction]operation
}

// Option customizes a Console
type Option func(*Console)

// WithNotifier publishes an audit event after every successful mutation
func WithNotifier(n notifier.Notifier) Option {
	return func(c *Console) { c.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Console) { c.metrics = m }
}

func New(db database.Database, logger *zap.Logger, opts ...Option) *Console {
	c := &Console{
		db:       db,
		notifier: notifier.Noop{},
		logger:   logger.Named("console"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ops = map[cnst.AdminAction]operation{
		cnst.AdminVerify:               c.verify,
		cnst.AdminListApps:             c.listApps,
		cnst.AdminListUsers:            c.listUsers,
		cnst.AdminListUserApps:         c.listUserApps,
		cnst.AdminListTablePermissions: c.listTablePermissions,
		cnst.AdminRegisterApp:          c.registerApp,
		cnst.AdminRegisterUser:         c.registerUser,
		cnst.AdminUpdateRole:           c.updateRole,
		cnst.AdminSetTablePermission:   c.setTablePermission,
		cnst.AdminRegenerateAppKey:     c.regenerateAppKey,
		cnst.AdminRegenerateUserKey:    c.regenerateUserKey,
		cnst.AdminDeleteApp:            c.deleteApp,
		cnst.AdminDeleteUser:           c.deleteUser,
		cnst.AdminGrantAccess:          c.grantAccess,
		cnst.AdminRevokeAccess:         c.revokeAccess,
	}
	return c
}

// Handle dispatches req to its action. Errors are *errorx.APIError values.
func (c *Console) Handle(ctx context.Context, req *dto.AdminRequest) (resp *dto.AdminResponse, err error) {
	action := cnst.AdminAction(req.Action)
	op, ok := c.ops[action]
	if !ok {
		c.metrics.AdminDone("unknown", "error")
		return nil, unknownAction(req.Action)
	}

	span := trace.Tracer(cnst.TraceConsole).Start(ctx, cnst.SpanConsoleOp).
		WithAttrs(attribute.String(cnst.AttrAction, req.Action))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.Fail(err)
		}
		span.End()
		c.metrics.AdminDone(req.Action, outcome)
	}()

	resp, err = op(span.Ctx, req)
	if err != nil {
		var apiErr *errorx.APIError
		if !errors.As(err, &apiErr) {
			c.logger.Error("admin operation failed", zap.String("action", req.Action), zap.Error(err))
			err = errorx.BackendError(err)
		}
		return nil, err
	}
	resp.Status = "ok"
	return resp, nil
}

// Actions lists the supported admin actions
func (c *Console) Actions() []string {
	names := make([]string, len(cnst.AdminActions))
	for i, a := range cnst.AdminActions {
		names[i] = string(a)
	}
	return names
}

func unknownAction(action string) *errorx.APIError {
	names := make([]string, len(cnst.AdminActions))
	for i, a := range cnst.AdminActions {
		names[i] = string(a)
	}
	return errorx.ErrUnknownAction.
		WithMessage("Unknown action: %s", action).
		WithDetail("available_actions", names)
}

// require returns a MissingField error naming every empty value
func requireFields(fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if f[1] == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return errorx.MissingFieldError(missing...)
	}
	return nil
}

func field(name, value string) [2]string { return [2]string{name, value} }
