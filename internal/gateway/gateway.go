package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/auth"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/config"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"
	"github.com/amoylab/rowgate/pkg/metrics"
	"github.com/amoylab/rowgate/pkg/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	outcomeOK     = "ok"
	outcomeDenied = "denied"
	outcomeError  = "error"
)

// Gateway runs one authenticated, authorized and owner-scoped data operation
// per request: parse, authenticate, authorize, scope, execute, envelope.
type Gateway struct {
	db      database.Database
	authn   *auth.Authenticator
	authz   *auth.Authorizer
	cfg     config.GatewayConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option customizes a Gateway
type Option func(*Gateway)

// WithMetrics records per-action counters and latencies
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithAuthorizer replaces the default rule chain
func WithAuthorizer(a *auth.Authorizer) Option {
	return func(g *Gateway) { g.authz = a }
}

func New(db database.Database, cfg config.GatewayConfig, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		db:     db,
		cfg:    cfg,
		logger: logger.Named("gateway"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.authn = auth.NewAuthenticator(db, logger)
	if g.authz == nil {
		g.authz = auth.NewAuthorizer(db, logger, auth.WithReadonlyEnforcement(cfg.EnforceReadonly))
	}
	return g
}

// Query handles one gateway request. Errors are *errorx.APIError values
// ready for the error envelope.
func (g *Gateway) Query(ctx context.Context, req *dto.QueryRequest) (resp *dto.QueryResponse, err error) {
	start := g.now()
	span := trace.Tracer(cnst.TraceGateway).Start(ctx, cnst.SpanGatewayQuery).
		WithAttrs(attribute.String(cnst.AttrAction, req.Action), attribute.String(cnst.AttrTable, req.Table))
	ctx = span.Ctx

	var affected, returned int64
	defer func() {
		outcome := outcomeOK
		if err != nil {
			outcome = outcomeFor(err)
			span.Fail(err)
		}
		span.WithAttrs(attribute.String(cnst.AttrDecision, outcome), attribute.Int64(cnst.AttrRows, affected+returned))
		span.End()
		g.metrics.QueryDone(actionLabel(req.Action), outcome, start, affected, returned)
	}()

	op, err := parse(req, g.cfg.MaxRows)
	if err != nil {
		return nil, err
	}

	id, err := g.authn.Authenticate(ctx, req.AppKey, req.UserKey)
	if err != nil {
		return nil, err
	}
	span.WithAttrs(
		attribute.String(cnst.AttrApp, id.App.AppID),
		attribute.String(cnst.AttrUser, id.User.UserID),
		attribute.String(cnst.AttrRole, string(id.Role)),
	)

	decision, err := g.authz.Authorize(ctx, &auth.Request{
		UserID:   id.User.UserID,
		Username: id.User.Username,
		AppName:  id.App.AppName,
		Role:     id.Role,
		Table:    op.table,
		Action:   op.action,
		SQL:      op.sql,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err
	}

	if op.action.NeedsTable() {
		if err := g.checkSchema(ctx, op); err != nil {
			return nil, err
		}
		if err := g.scope(op, id); err != nil {
			return nil, err
		}
	}

	result, err := g.execute(ctx, op)
	if err != nil {
		g.logger.Error("data operation failed",
			zap.String("action", string(op.action)),
			zap.String("table", op.table),
			zap.String("user", id.User.Username),
			zap.Error(err))
		return nil, errorx.BackendError(err)
	}
	affected = result.Changes
	returned = int64(len(result.Results))

	return &dto.QueryResponse{
		Status:    "ok",
		LatencyMS: g.now().Sub(start).Milliseconds(),
		TS:        start.UnixMilli(),
		Action:    string(op.action),
		Auth: dto.AuthInfo{
			App:  id.App.AppName,
			User: id.User.Username,
			Role: string(id.Role),
		},
		Result: *result,
		Meta: dto.QueryMeta{
			Success:      true,
			RowsAffected: affected,
			RowsReturned: returned,
		},
	}, nil
}

func actionLabel(action string) string {
	if _, ok := cnst.ParseAction(action); ok {
		return action
	}
	return "unknown"
}

func outcomeFor(err error) string {
	var apiErr *errorx.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Category {
		case errorx.CategoryAuthentication, errorx.CategoryAuthorization:
			return outcomeDenied
		}
	}
	return outcomeError
}
