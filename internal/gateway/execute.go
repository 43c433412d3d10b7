package gateway

import (
	"context"

	"github.com/amoylab/rowgate/internal/auth"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/dto"
)

// execute runs the single data operation of op
func (g *Gateway) execute(ctx context.Context, op *operation) (*dto.QueryResult, error) {
	result := &dto.QueryResult{Results: []map[string]any{}}
	var err error

	switch op.action {
	case cnst.ActionTables:
		var tables []string
		tables, err = g.visibleTables(ctx)
		for _, t := range tables {
			result.Results = append(result.Results, map[string]any{"name": t})
		}
	case cnst.ActionSelect:
		result.Results, err = g.db.SelectRows(ctx, op.table, op.where, op.limit)
	case cnst.ActionInsert:
		result.Changes, err = g.db.InsertRow(ctx, op.table, op.data)
	case cnst.ActionUpdate:
		result.Changes, err = g.db.UpdateRows(ctx, op.table, op.data, op.where)
	case cnst.ActionDelete:
		result.Changes, err = g.db.DeleteRows(ctx, op.table, op.where)
	case cnst.ActionCustom:
		if auth.ClassifyStatement(op.sql) == auth.StatementQuery {
			result.Results, err = g.db.QueryRaw(ctx, op.sql, op.params)
		} else {
			result.Changes, err = g.db.ExecRaw(ctx, op.sql, op.params)
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
