package auth

import (
	"context"
	"errors"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/errorx"

	"go.uber.org/zap"
)

// Identity is the verified caller of a gateway request
type Identity struct {
	App  *database.App
	User *database.User
	Role cnst.Role
}

// IsAdmin reports whether the caller holds the admin role
func (i *Identity) IsAdmin() bool {
	return i.Role == cnst.RoleAdmin
}

// Store is what the authenticator and authorizer read from
type Store interface {
	database.CredentialStore
	database.GrantStore
}

// Authenticator resolves an (app key, user key) pair to an Identity.
// Nothing is cached: a regenerated or deleted key stops working on the next request.
type Authenticator struct {
	store  Store
	logger *zap.Logger
}

func NewAuthenticator(store Store, logger *zap.Logger) *Authenticator {
	return &Authenticator{store: store, logger: logger.Named("authenticator")}
}

// Authenticate verifies both keys and the user's grant for the app.
func (a *Authenticator) Authenticate(ctx context.Context, appKey, userKey string) (*Identity, error) {
	if appKey == "" || userKey == "" {
		return nil, errorx.ErrMissingCredentials
	}

	app, err := a.store.GetAppByKey(ctx, appKey)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errorx.ErrInvalidAppKey
		}
		return nil, errorx.BackendError(err)
	}

	user, err := a.store.GetUserByKey(ctx, userKey)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errorx.ErrInvalidUserKey
		}
		return nil, errorx.BackendError(err)
	}

	stored, err := a.store.GetUserRole(ctx, user.UserID)
	if err != nil {
		return nil, errorx.BackendError(err)
	}
	role, ok := cnst.ParseRole(stored)
	if !ok {
		if stored != "" {
			a.logger.Warn("ignoring unknown stored role",
				zap.String("user_id", user.UserID), zap.String("role", stored))
		}
		role = cnst.DefaultRole
	}

	granted, err := a.store.HasGrant(ctx, user.UserID, app.AppID)
	if err != nil {
		return nil, errorx.BackendError(err)
	}
	if !granted {
		a.logger.Info("access denied: no grant",
			zap.String("app", app.AppName), zap.String("user", user.Username))
		return nil, errorx.ErrAccessDenied.
			WithMessage("User %s does not have access to app %s", user.Username, app.AppName).
			WithDetail("app", app.AppName).
			WithDetail("user", user.Username)
	}

	return &Identity{App: app, User: user, Role: role}, nil
}
