package gateway

import (
	"context"
	"slices"
	"strings"

	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/errorx"
)

// visibleTables lists the tables the gateway exposes: present in the live
// schema, not a system table, and inside the configured allow-list.
func (g *Gateway) visibleTables(ctx context.Context) ([]string, error) {
	tables, err := g.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if cnst.IsSystemTable(strings.ToLower(t)) || !g.cfg.Exposes(t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// checkSchema confirms the table and every referenced column exist. It runs
// after authorization so a denied caller learns nothing about the schema.
func (g *Gateway) checkSchema(ctx context.Context, op *operation) error {
	tables, err := g.visibleTables(ctx)
	if err != nil {
		return errorx.BackendError(err)
	}
	if !slices.Contains(tables, op.table) {
		return errorx.ErrTableNotFound.
			WithMessage("Table not found: %s", op.table).
			WithDetail("table", op.table)
	}

	columns, err := g.db.TableColumns(ctx, op.table)
	if err != nil {
		return errorx.BackendError(err)
	}
	op.columns = columns

	for col := range op.data {
		if !slices.Contains(columns, col) {
			return unknownColumn(op.table, col)
		}
	}
	for _, c := range op.where {
		if !slices.Contains(columns, c.Column) {
			return unknownColumn(op.table, c.Column)
		}
	}
	return nil
}

func unknownColumn(table, column string) *errorx.APIError {
	return errorx.ErrInvalidIdentifier.
		WithMessage("Unknown column %s on table %s", column, table).
		WithDetail("table", table).
		WithDetail("column", column)
}
