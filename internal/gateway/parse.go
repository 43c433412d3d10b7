package gateway

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/auth"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"
)

// operation is a parsed request whose identifiers passed the syntax check
type operation struct {
	action cnst.Action
	table  string
	data   map[string]any
	where  []database.Condition
	sql    string
	params []any
	limit  int

	// columns of table, filled in by the schema check
	columns []string
}

func parse(req *dto.QueryRequest, maxRows int) (*operation, error) {
	if req.Action == "" {
		return nil, errorx.MissingFieldError("action")
	}
	action, ok := cnst.ParseAction(req.Action)
	if !ok {
		return nil, unknownAction(req.Action)
	}

	op := &operation{action: action, table: req.Table, sql: req.SQL}

	var missing []string
	if action.NeedsTable() && req.Table == "" {
		missing = append(missing, "table")
	}
	if (action == cnst.ActionInsert || action == cnst.ActionUpdate) && len(req.Data) == 0 {
		missing = append(missing, "data")
	}
	if (action == cnst.ActionUpdate || action == cnst.ActionDelete) && len(req.Where) == 0 {
		missing = append(missing, "where")
	}
	if action == cnst.ActionCustom && strings.TrimSpace(req.SQL) == "" {
		missing = append(missing, "sql")
	}
	if len(missing) > 0 {
		return nil, errorx.MissingFieldError(missing...)
	}

	if !action.NeedsTable() {
		if action == cnst.ActionCustom {
			params, err := normalizeParams(req.Params)
			if err != nil {
				return nil, err
			}
			op.params = params
		}
		return op, nil
	}

	if !auth.ValidIdentifier(req.Table) {
		return nil, invalidIdentifier("table", req.Table)
	}

	if action == cnst.ActionInsert || action == cnst.ActionUpdate {
		data := make(map[string]any, len(req.Data))
		for col, v := range req.Data {
			if !auth.ValidIdentifier(col) {
				return nil, invalidIdentifier("column", col)
			}
			nv, err := normalizeScalar(v)
			if err != nil {
				return nil, errorx.ValidationError("data", fmt.Sprintf("column %s: %s", col, err))
			}
			data[col] = nv
		}
		op.data = data
	}

	if action != cnst.ActionInsert {
		where, err := parseWhere(req.Where)
		if err != nil {
			return nil, err
		}
		op.where = where
	}

	if action == cnst.ActionSelect {
		if req.Limit < 0 {
			return nil, errorx.ValidationError("limit", "must not be negative")
		}
		op.limit = req.Limit
		if op.limit == 0 || (maxRows > 0 && op.limit > maxRows) {
			op.limit = maxRows
		}
	}
	return op, nil
}

// parseWhere turns the equality filter into conditions ordered by column
func parseWhere(where map[string]any) ([]database.Condition, error) {
	conds := make([]database.Condition, 0, len(where))
	for col, v := range where {
		if !auth.ValidIdentifier(col) {
			return nil, invalidIdentifier("column", col)
		}
		if list, ok := v.([]any); ok {
			if len(list) == 0 {
				return nil, errorx.ValidationError("where", fmt.Sprintf("column %s: empty list", col))
			}
			values := make([]any, len(list))
			for i, item := range list {
				nv, err := normalizeScalar(item)
				if err != nil {
					return nil, errorx.ValidationError("where", fmt.Sprintf("column %s: %s", col, err))
				}
				values[i] = nv
			}
			conds = append(conds, database.Condition{Column: col, Value: values})
			continue
		}
		nv, err := normalizeScalar(v)
		if err != nil {
			return nil, errorx.ValidationError("where", fmt.Sprintf("column %s: %s", col, err))
		}
		conds = append(conds, database.Condition{Column: col, Value: nv})
	}
	sort.Slice(conds, func(i, j int) bool { return conds[i].Column < conds[j].Column })
	return conds, nil
}

func normalizeParams(params []any) ([]any, error) {
	out := make([]any, len(params))
	for i, p := range params {
		nv, err := normalizeScalar(p)
		if err != nil {
			return nil, errorx.ValidationError("params", fmt.Sprintf("position %d: %s", i, err))
		}
		out[i] = nv
	}
	return out, nil
}

// normalizeScalar converts decoded JSON numbers to int64 when integral and
// float64 otherwise. Objects and arrays are rejected.
func normalizeScalar(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s", x)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("value must be a string, number, boolean or null")
	}
}

func unknownAction(action string) *errorx.APIError {
	names := make([]string, len(cnst.GatewayActions))
	for i, a := range cnst.GatewayActions {
		names[i] = string(a)
	}
	return errorx.ErrUnknownAction.
		WithMessage("Unknown action: %s. Available: %s", action, strings.Join(names, ", ")).
		WithDetail("available_actions", names)
}

func invalidIdentifier(kind, name string) *errorx.APIError {
	return errorx.ErrInvalidIdentifier.
		WithMessage("Invalid %s name: %q", kind, name).
		WithDetail(kind, name)
}
