package console

import (
	"context"
	"errors"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/auth"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"
)

func (c *Console) listUserApps(ctx context.Context, _ *dto.AdminRequest) (*dto.AdminResponse, error) {
	grants, err := c.db.ListGrants(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.AdminResponse{Data: grants}, nil
}

func (c *Console) listTablePermissions(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	perms, err := c.db.ListTablePermissions(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.AdminResponse{Data: perms}, nil
}

// setTablePermission replaces any existing permission for (user, table)
func (c *Console) setTablePermission(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(
		field("user_id", req.UserID),
		field("table_name", req.TableName),
		field("permission_type", req.PermissionType),
	); err != nil {
		return nil, err
	}
	if !auth.ValidIdentifier(req.TableName) {
		return nil, errorx.ErrInvalidIdentifier.
			WithMessage("Invalid table name: %q", req.TableName).
			WithDetail("table", req.TableName)
	}
	perm, err := auth.ParsePermission(req.PermissionType)
	if err != nil {
		return nil, errorx.ErrInvalidPermission.
			WithMessage("Invalid permission type %q: %s", req.PermissionType, err).
			WithDetail("permission_type", req.PermissionType)
	}

	err = c.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := c.db.GetUserByID(ctx, req.UserID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return userNotFound(req.UserID)
			}
			return err
		}
		return c.db.ReplaceTablePermission(ctx, &database.TablePermission{
			UserID:         req.UserID,
			Table:          req.TableName,
			PermissionType: perm.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	c.audit(ctx, dto.AuditEvent{
		Action:    string(cnst.AdminSetTablePermission),
		UserID:    req.UserID,
		TableName: req.TableName,
		Detail:    perm.String(),
	})
	return &dto.AdminResponse{
		UserID:         req.UserID,
		TableName:      req.TableName,
		PermissionType: perm.String(),
		Message:        "Permission set",
	}, nil
}

// grantAccess is idempotent: an existing grant is reported, not duplicated
func (c *Console) grantAccess(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("user_id", req.UserID), field("app_id", req.AppID)); err != nil {
		return nil, err
	}

	var existed bool
	err := c.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := c.db.GetUserByID(ctx, req.UserID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return userNotFound(req.UserID)
			}
			return err
		}
		if _, err := c.db.GetAppByID(ctx, req.AppID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return appNotFound(req.AppID)
			}
			return err
		}
		var err error
		if existed, err = c.db.HasGrant(ctx, req.UserID, req.AppID); err != nil || existed {
			return err
		}
		err = c.db.CreateGrant(ctx, req.UserID, req.AppID)
		if errors.Is(err, database.ErrDuplicateKey) {
			existed = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.AdminResponse{UserID: req.UserID, AppID: req.AppID}
	if existed {
		resp.Message = "Access already granted"
		return resp, nil
	}
	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminGrantAccess), UserID: req.UserID, AppID: req.AppID})
	resp.Message = "Access granted"
	return resp, nil
}

func (c *Console) revokeAccess(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("user_id", req.UserID), field("app_id", req.AppID)); err != nil {
		return nil, err
	}
	removed, err := c.db.DeleteGrant(ctx, req.UserID, req.AppID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, errorx.ErrGrantNotFound.
			WithMessage("Access not found for user %s on app %s", req.UserID, req.AppID).
			WithDetail("user_id", req.UserID).
			WithDetail("app_id", req.AppID)
	}

	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminRevokeAccess), UserID: req.UserID, AppID: req.AppID})
	return &dto.AdminResponse{UserID: req.UserID, AppID: req.AppID, Message: "Access revoked"}, nil
}
