package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/util"
)

type UserStore interface {
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
}

type Service struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewService(users UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func invalidCredentials() *apperr.Error {
	return &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "invalid login or password"}
}

// Login checks user credentials and returns JWT. Only active users may log in.
func (s *Service) Login(ctx context.Context, login, password string) (string, *model.User, error) {
	if login == "" || password == "" {
		return "", nil, apperr.MissingFields(missingCredentials(login, password)...)
	}

	u, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", nil, invalidCredentials()
		}
		return "", nil, err
	}

	if u.Status != model.UserActive || !util.CheckPassword(password, u.PasswordHash) {
		s.logger.Info("Login rejected", zap.String("login", login), zap.String("status", string(u.Status)))
		return "", nil, invalidCredentials()
	}

	token, err := util.GenerateJWT(u.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("User logged in", zap.Int("user_id", u.ID))
	return token, u, nil
}

// Register creates a new active user with the given role.
func (s *Service) Register(ctx context.Context, login, email, password, role string) (*model.User, error) {
	var missing []string
	if login == "" {
		missing = append(missing, "login")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return nil, apperr.MissingFields(missing...)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Login:        login,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func missingCredentials(login, password string) []string {
	var fields []string
	if login == "" {
		fields = append(fields, "login")
	}
	if password == "" {
		fields = append(fields, "password")
	}
	return fields
}
