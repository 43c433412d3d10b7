package console

import (
	"context"
	"errors"
	"strings"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/auth"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"

	"go.uber.org/zap"
)

func (c *Console) listUsers(ctx context.Context, _ *dto.AdminRequest) (*dto.AdminResponse, error) {
	users, err := c.db.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := c.db.ListUserRoles(ctx)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]string, len(roles))
	for _, r := range roles {
		byUser[r.UserID] = r.Role
	}

	out := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, &dto.UserInfo{
			UserID:    u.UserID,
			UserKey:   u.UserKey,
			Username:  u.Username,
			Role:      string(effectiveRole(byUser[u.UserID])),
			CreatedAt: u.CreatedAt,
		})
	}
	return &dto.AdminResponse{Data: out}, nil
}

// registerUser creates a user and, when a valid role is given, its role row.
// An invalid role is ignored and the user gets the default role.
func (c *Console) registerUser(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("username", req.Username)); err != nil {
		return nil, err
	}

	userID := req.UserID
	if userID == "" {
		var err error
		if userID, err = auth.NewUserID(); err != nil {
			return nil, err
		}
	}
	key, err := auth.NewUserKey()
	if err != nil {
		return nil, err
	}
	role, validRole := cnst.ParseRole(req.Role)
	if req.Role != "" && !validRole {
		c.logger.Info("ignoring invalid role on register_user",
			zap.String("user_id", userID), zap.String("role", req.Role))
	}

	err = c.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := c.db.GetUserByID(ctx, userID); err == nil {
			return errorx.ConflictError("User", "user_id", userID)
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		err := c.db.CreateUser(ctx, &database.User{UserID: userID, UserKey: key, Username: req.Username})
		if errors.Is(err, database.ErrDuplicateKey) {
			return errorx.ConflictError("User", "user_id", userID)
		}
		if err != nil {
			return err
		}
		if validRole {
			return c.db.UpsertUserRole(ctx, userID, string(role))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !validRole {
		role = cnst.DefaultRole
	}

	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminRegisterUser), UserID: userID, Detail: string(role)})
	return &dto.AdminResponse{
		UserID:  userID,
		UserKey: key,
		Role:    string(role),
		Message: "User registered successfully",
	}, nil
}

func (c *Console) updateRole(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("user_id", req.UserID), field("role", req.Role)); err != nil {
		return nil, err
	}
	role, ok := cnst.ParseRole(req.Role)
	if !ok {
		names := make([]string, len(cnst.Roles))
		for i, r := range cnst.Roles {
			names[i] = string(r)
		}
		return nil, errorx.ErrInvalidRole.
			WithMessage("Invalid role. Use: %s", strings.Join(names, ", ")).
			WithDetail("role", req.Role)
	}

	err := c.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := c.db.GetUserByID(ctx, req.UserID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return userNotFound(req.UserID)
			}
			return err
		}
		return c.db.UpsertUserRole(ctx, req.UserID, string(role))
	})
	if err != nil {
		return nil, err
	}

	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminUpdateRole), UserID: req.UserID, Detail: string(role)})
	return &dto.AdminResponse{UserID: req.UserID, Role: string(role), Message: "Role updated"}, nil
}

func (c *Console) regenerateUserKey(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("user_id", req.UserID)); err != nil {
		return nil, err
	}
	key, err := auth.NewUserKey()
	if err != nil {
		return nil, err
	}
	if err := c.db.UpdateUserKey(ctx, req.UserID, key); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, userNotFound(req.UserID)
		}
		return nil, err
	}

	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminRegenerateUserKey), UserID: req.UserID})
	return &dto.AdminResponse{UserID: req.UserID, NewKey: key}, nil
}

// deleteUser removes grants, role and table permissions, then the user row
func (c *Console) deleteUser(ctx context.Context, req *dto.AdminRequest) (*dto.AdminResponse, error) {
	if err := requireFields(field("user_id", req.UserID)); err != nil {
		return nil, err
	}

	var removed bool
	err := c.db.Transaction(ctx, func(ctx context.Context) error {
		if err := c.db.DeleteUserGrants(ctx, req.UserID); err != nil {
			return err
		}
		if err := c.db.DeleteUserRole(ctx, req.UserID); err != nil {
			return err
		}
		if err := c.db.DeleteUserTablePermissions(ctx, req.UserID); err != nil {
			return err
		}
		var err error
		removed, err = c.db.DeleteUser(ctx, req.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, userNotFound(req.UserID)
	}

	c.audit(ctx, dto.AuditEvent{Action: string(cnst.AdminDeleteUser), UserID: req.UserID})
	return &dto.AdminResponse{UserID: req.UserID, Message: "User deleted"}, nil
}

func effectiveRole(stored string) cnst.Role {
	if r, ok := cnst.ParseRole(stored); ok {
		return r
	}
	return cnst.DefaultRole
}
