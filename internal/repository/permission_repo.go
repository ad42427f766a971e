package repository

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/pkg/db"
	"tasktracker/pkg/rbac"
)

// PermissionRepository 实现 rbac.PermissionStore
type PermissionRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewPermissionRepository(conn db.DBTX, logger *zap.Logger) *PermissionRepository {
	return &PermissionRepository{db: conn, logger: logger}
}

var _ rbac.PermissionStore = (*PermissionRepository)(nil)

// HasPermission 只有 active 用户的角色权限生效
func (r *PermissionRepository) HasPermission(ctx context.Context, userID int, p rbac.Permission) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM users u
			JOIN role_permissions rp ON rp.role_id = u.role_id
			JOIN permissions pm ON pm.id = rp.permission_id
			WHERE u.id = $1 AND u.status = 'active' AND pm.name = $2
		)
	`, userID, p.String()).Scan(&ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// SyncRoles 写入权限表，并用配置覆盖各角色的权限集合；未出现在配置中的角色保持不变
func (r *PermissionRepository) SyncRoles(ctx context.Context, roles map[string][]rbac.Permission) error {
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)

	return db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, p := range rbac.All() {
			if _, err := tx.Exec(ctx,
				`INSERT INTO permissions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, p.String()); err != nil {
				return err
			}
		}

		for _, role := range names {
			var roleID int
			err := tx.QueryRow(ctx, `
				INSERT INTO roles (name) VALUES ($1)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id
			`, role).Scan(&roleID)
			if err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
				return err
			}

			perms := make([]string, 0, len(roles[role]))
			for _, p := range roles[role] {
				perms = append(perms, p.String())
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				SELECT $1, p.id FROM permissions p WHERE p.name = ANY($2)
			`, roleID, perms); err != nil {
				return err
			}

			r.logger.Info("Role synced", zap.String("role", role), zap.Strings("permissions", perms))
		}
		return nil
	})
}
