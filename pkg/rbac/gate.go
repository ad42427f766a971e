package rbac

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"tasktracker/pkg/apperr"
	"tasktracker/pkg/metrics"
)

// PermissionStore 查询用户（通过其角色）是否拥有某权限。只有 active 用户可能返回 true。
type PermissionStore interface {
	HasPermission(ctx context.Context, userID int, p Permission) (bool, error)
}

// Authorizer 由 Gate 实现，服务层依赖此接口
type Authorizer interface {
	Authorize(ctx context.Context, callerID int, p Permission) error
}

// ErrUndefinedPermission 调用方传入了零值 Permission，属于编程错误
var ErrUndefinedPermission = errors.New("rbac: undefined permission")

// Gate 权限闸门。每次调用都查询存储，不做缓存，权限撤销在下一次请求生效。
type Gate struct {
	store  PermissionStore
	logger *zap.Logger
}

func NewGate(store PermissionStore, logger *zap.Logger) *Gate {
	return &Gate{store: store, logger: logger}
}

// Authorize 返回 nil 表示允许；
// callerID <= 0 返回 Unauthenticated 且不访问存储，存储失败返回 Unavailable，无权限返回 Forbidden。
// 零值 Permission 直接返回 ErrUndefinedPermission，同样不访问存储。
func (g *Gate) Authorize(ctx context.Context, callerID int, p Permission) error {
	if callerID <= 0 {
		metrics.RecordAuthorization(p.String(), "unauthenticated")
		return apperr.Unauthenticated()
	}
	if p.IsZero() {
		g.logger.Error("Authorization requested for undefined permission", zap.Int("user_id", callerID))
		metrics.RecordAuthorization("undefined", "error")
		return ErrUndefinedPermission
	}

	ok, err := g.store.HasPermission(ctx, callerID, p)
	if err != nil {
		g.logger.Error("Permission lookup failed",
			zap.Int("user_id", callerID),
			zap.String("permission", p.String()),
			zap.Error(err),
		)
		metrics.RecordAuthorization(p.String(), "error")
		return apperr.Unavailable("permission lookup failed", err)
	}

	if !ok {
		g.logger.Info("Permission denied",
			zap.Int("user_id", callerID),
			zap.String("permission", p.String()),
		)
		metrics.RecordAuthorization(p.String(), "deny")
		return apperr.Forbidden(p.String())
	}

	metrics.RecordAuthorization(p.String(), "allow")
	return nil
}
