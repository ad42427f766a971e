package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/db"
)

type UserRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewUserRepository(conn db.DBTX, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: conn, logger: logger}
}

const userColumns = `u.id, u.login, u.email, u.password_hash, u.role_id, r.name, u.status`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Login, &u.Email, &u.PasswordHash, &u.RoleID, &u.Role, &u.Status); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser 按角色名创建 active 用户，角色不存在返回 NotFound
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (login, email, password_hash, role_id, status)
        SELECT $1, $2, $3, r.id, 'active' FROM roles r WHERE r.name = $4
        RETURNING id, role_id, status
    `
	err := r.db.QueryRow(ctx, query, u.Login, u.Email, u.PasswordHash, u.Role).Scan(&u.ID, &u.RoleID, &u.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperr.InvalidValue("role", "unknown role "+u.Role)
		}
		r.logger.Error("Failed to create user", zap.String("login", u.Login), zap.Error(err))
		return apperr.FromStore(err, "user", 0)
	}

	r.logger.Info("User created", zap.Int("id", u.ID), zap.String("login", u.Login), zap.String("role", u.Role))
	return nil
}

// FindByLogin returns user by login.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users u JOIN roles r ON r.id = u.role_id
        WHERE u.login = $1
    `, login))
	if err != nil {
		return nil, apperr.FromStore(err, "user", 0)
	}
	return u, nil
}

// FindByID returns user by id.
func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users u JOIN roles r ON r.id = u.role_id
        WHERE u.id = $1
    `, id))
	if err != nil {
		return nil, apperr.FromStore(err, "user", id)
	}
	return u, nil
}
