package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/util"
)

type memUsers struct {
	byLogin map[string]*model.User
	err     error
}

func (m *memUsers) FindByLogin(_ context.Context, login string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byLogin[login]
	if !ok {
		return nil, apperr.NotFound("user", 0)
	}
	return u, nil
}

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	if _, ok := m.byLogin[u.Login]; ok {
		return apperr.Conflict("login taken")
	}
	u.ID = len(m.byLogin) + 1
	u.Status = model.UserActive
	m.byLogin[u.Login] = u
	return nil
}

const secret = "test-secret"

func newService(t *testing.T) (*Service, *memUsers) {
	t.Helper()
	users := &memUsers{byLogin: map[string]*model.User{}}
	return NewService(users, secret, time.Hour, zap.NewNop()), users
}

func TestLogin_IssuesTokenForActiveUser(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), "alice", "a@example.com", "pw", "developer")
	require.NoError(t, err)

	token, u, err := svc.Login(context.Background(), "alice", "pw")

	require.NoError(t, err)
	id, err := util.ParseJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestLogin_WrongPasswordAndUnknownUserLookTheSame(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), "alice", "", "pw", "developer")
	require.NoError(t, err)

	_, _, err1 := svc.Login(context.Background(), "alice", "nope")
	_, _, err2 := svc.Login(context.Background(), "bob", "pw")

	assert.True(t, apperr.Is(err1, apperr.KindUnauthenticated))
	assert.True(t, apperr.Is(err2, apperr.KindUnauthenticated))
	assert.Equal(t, err1.Error(), err2.Error())
}

func TestLogin_SuspendedUserRejected(t *testing.T) {
	svc, users := newService(t)
	u, err := svc.Register(context.Background(), "alice", "", "pw", "developer")
	require.NoError(t, err)
	users.byLogin["alice"].Status = model.UserSuspended

	_, _, err = svc.Login(context.Background(), u.Login, "pw")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestLogin_StoreFailurePropagates(t *testing.T) {
	svc, users := newService(t)
	users.err = apperr.Unavailable("db down", errors.New("dial tcp"))

	_, _, err := svc.Login(context.Background(), "alice", "pw")
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Register(context.Background(), "", "", "", "")

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"login", "password", "role"}, e.Fields)
}
