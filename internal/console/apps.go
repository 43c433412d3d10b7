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

func (c *Console) verify(context.Context, *dto.AdminRequest) (*dto.AdminResponse, error) {
	return &dto.AdminResponse{Message: "Authenticated"}, nil
}

func (c *Console) listApps(ctx context.Context, _ *dto.AdminRequest) (*dto.AdminResponse, error) {
	apps, err := c.db.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.AdminResponse{Data: apps}, nil
}

func (c *Console) registerApp(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("app_id", req.AppID), field("app_name", req.AppName)); err != nil {
		return nil, err
	}
	key, err := auth.NewAppKey()
	if err != nil {
		return nil, err
	}

	err = c.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := c.db.GetAppByID(ctx, req.AppID); err == nil {
			return errorx.ConflictError("App", "app_id", req.AppID)
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		err := c.db.CreateApp(ctx, &database.App{AppID: req.AppID, AppKey: key, AppName: req.AppName})
		if errors.Is(err, database.ErrDuplicateKey) {
			return errorx.ConflictError("App", "app_id", req.AppID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminRegisterApp), AppID: req.AppID})
	return &dto.AdminResponse{
		AppID:   req.AppID,
		AppKey:  key,
		Message: "App registered successfully",
	}, nil
}

func (c *Console) regenerateAppKey(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("app_id", req.AppID)); err != nil {
		return nil, err
	}
	key, err := auth.NewAppKey()
	if err != nil {
		return nil, err
	}
	if err := c.db.UpdateAppKey(ctx, req.AppID, key); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, appNotFound(req.AppID)
		}
		return nil, err
	}

	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminRegenerateAppKey), AppID: req.AppID})
	return &dto.AdminResponse{AppID: req.AppID, NewKey: key}, nil
}

// deleteApp removes the app's grants, then the app. Grant cleanup is kept
// even when the app row turns out to be missing.
func (c *Console) deleteApp(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("app_id", req.AppID)); err != nil {
		return nil, err
	}

	var removed bool
	err := c.db.Transaction(ctx, func(ctx context.Context) error {
		if err := c.db.DeleteAppGrants(ctx, req.AppID); err != nil {
			return err
		}
		var err error
		removed, err = c.db.DeleteApp(ctx, req.AppID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, appNotFound(req.AppID)
	}

	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminDeleteApp), AppID: req.AppID})
	return &dto.AdminResponse{AppID: req.AppID, Message: "App deleted"}, nil
}

func appNotFound(appID string) *errorx.APIError {
	return errorx.ErrAppNotFound.WithMessage("App not found: %s", appID).WithDetail("app_id", appID)
}

func userNotFound(userID string) *errorx.APIError {
	return errorx.ErrUserNotFound.WithMessage("User not found: %s", userID).WithDetail("user_id", userID)
}
