package database

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm/clause"
)

func (s *store) ListTables(ctx context.Context) ([]string, error) {
	tables, err := s.conn(ctx).Migrator().GetTables()
	if err != nil {
		return nil, err
	}
	out := tables[:0]
	for _, t := range tables {
		// sqlite bookkeeping tables such as sqlite_sequence
		if strings.HasPrefix(t, "sqlite_") {
			continue
		}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (s *store) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.conn(ctx).Raw("SELECT * FROM ? LIMIT 0", clause.Table{Name: table}).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

func (s *store) SelectRows(ctx context.Context, table string, conds []Condition, limit int) ([]map[string]any, error) {
	sql := "SELECT * FROM ?"
	vars := []any{clause.Table{Name: table}}
	if len(conds) > 0 {
		sql += " WHERE ?"
		vars = append(vars, whereExpr(conds))
	}
	if limit > 0 {
		sql += " LIMIT ?"
		vars = append(vars, limit)
	}

	var rows []map[string]any
	if err := s.conn(ctx).Raw(sql, vars...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return normalizeRows(rows), nil
}

func (s *store) InsertRow(ctx context.Context, table string, row map[string]any) (int64, error) {
	cols := sortedKeys(row)
	columns := make([]clause.Column, 0, len(cols))
	values := make([]any, 0, len(cols))
	for _, c := range cols {
		columns = append(columns, clause.Column{Name: c})
		values = append(values, row[c])
	}
	res := s.conn(ctx).Exec("INSERT INTO ? (?) VALUES (?)", clause.Table{Name: table}, columns, values)
	return res.RowsAffected, translate(res.Error)
}

func (s *store) UpdateRows(ctx context.Context, table string, set map[string]any, conds []Condition) (int64, error) {
	cols := sortedKeys(set)
	assignments := make([]clause.Expression, 0, len(cols))
	for _, c := range cols {
		assignments = append(assignments, clause.Expr{SQL: "? = ?", Vars: []any{clause.Column{Name: c}, set[c]}})
	}
	res := s.conn(ctx).Exec("UPDATE ? SET ? WHERE ?",
		clause.Table{Name: table}, clause.CommaExpression{Exprs: assignments}, whereExpr(conds))
	return res.RowsAffected, translate(res.Error)
}

func (s *store) DeleteRows(ctx context.Context, table string, conds []Condition) (int64, error) {
	res := s.conn(ctx).Exec("DELETE FROM ? WHERE ?", clause.Table{Name: table}, whereExpr(conds))
	return res.RowsAffected, res.Error
}

func (s *store) QueryRaw(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	var rows []map[string]any
	if err := s.conn(ctx).Raw(sql, params...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return normalizeRows(rows), nil
}

func (s *store) ExecRaw(ctx context.Context, sql string, params []any) (int64, error) {
	res := s.conn(ctx).Exec(sql, params...)
	return res.RowsAffected, res.Error
}

// whereExpr ANDs the conditions together. Callers never pass an empty slice
// to UPDATE or DELETE.
func whereExpr(conds []Condition) clause.Expression {
	exprs := make([]clause.Expression, 0, len(conds))
	for _, c := range conds {
		exprs = append(exprs, clause.Eq{Column: clause.Column{Name: c.Column}, Value: c.Value})
	}
	return clause.And(exprs...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeRows turns driver byte slices into strings so rows encode as text.
func normalizeRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	for _, row := range rows {
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
	}
	return rows
}
