package gateway

import (
	"slices"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/auth"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/errorx"
)

// scope rewrites op so it can only touch rows the caller owns.
//
//	public table:  select/insert as given, update/delete admin only
//	private table: admins unscoped; everyone else filtered on user_id and
//	               inserts stamped with the caller's id
//
// An admin insert keeps a supplied user_id and is otherwise stamped too.
//
// user_id is never assignable on a private-table update.
func (g *Gateway) scope(op *operation, id *auth.Identity) error {
	if g.cfg.IsPublic(op.table) {
		switch op.action {
		case cnst.ActionUpdate, cnst.ActionDelete:
			if !id.IsAdmin() {
				return errorx.ErrPermissionDenied.
					WithMessage("Only admins may %s rows of public table %s", op.action, op.table).
					WithDetail("user", id.User.Username).
					WithDetail("app", id.App.AppName).
					WithDetail("table", op.table).
					WithDetail("action", string(op.action))
			}
		}
		return nil
	}

	if op.action == cnst.ActionUpdate {
		if _, ok := op.data[cnst.OwnerColumn]; ok {
			return errorx.ValidationError("data", "user_id cannot be changed on a private table")
		}
	}

	if id.IsAdmin() {
		if op.action == cnst.ActionInsert && slices.Contains(op.columns, cnst.OwnerColumn) {
			if owner, ok := op.data[cnst.OwnerColumn]; !ok || owner == nil {
				op.data[cnst.OwnerColumn] = id.User.UserID
			}
		}
		return nil
	}

	if !slices.Contains(op.columns, cnst.OwnerColumn) {
		return errorx.ErrInvalidInput.
			WithMessage("Table %s has no user_id column and is not public", op.table).
			WithDetail("table", op.table)
	}

	switch op.action {
	case cnst.ActionInsert:
		op.data[cnst.OwnerColumn] = id.User.UserID
	case cnst.ActionSelect, cnst.ActionUpdate, cnst.ActionDelete:
		op.where = append(op.where, database.Condition{Column: cnst.OwnerColumn, Value: id.User.UserID})
	}
	return nil
}
