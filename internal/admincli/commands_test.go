package admincli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/model"
	"tasktracker/pkg/rbac"
)

type fakeSyncer struct {
	synced map[string][]rbac.Permission
}

func (f *fakeSyncer) SyncRoles(_ context.Context, roles map[string][]rbac.Permission) error {
	f.synced = roles
	return nil
}

type fakeRegistrar struct {
	login, email, password, role string
}

func (f *fakeRegistrar) Register(_ context.Context, login, email, password, role string) (*model.User, error) {
	f.login, f.email, f.password, f.role = login, email, password, role
	return &model.User{ID: 42, Login: login, Role: role}, nil
}

type fakeReplayer struct {
	ids   []int64
	limit int
}

func (f *fakeReplayer) ReplayEvent(_ context.Context, id int64) error {
	f.ids = append(f.ids, id)
	return nil
}

func (f *fakeReplayer) ReplayFailedEvents(_ context.Context, limit int) (int, error) {
	f.limit = limit
	return 3, nil
}

type fakePurger struct{ err error }

func (f fakePurger) PurgeOnce(context.Context) (int64, error) { return 5, f.err }

type harness struct {
	app      *App
	syncer   *fakeSyncer
	users    *fakeRegistrar
	replayer *fakeReplayer
}

func newHarness(roles map[string][]string) *harness {
	h := &harness{syncer: &fakeSyncer{}, users: &fakeRegistrar{}, replayer: &fakeReplayer{}}
	h.app = &App{Roles: roles, Syncer: h.syncer, Users: h.users, Replayer: h.replayer, Cleanup: fakePurger{}}
	return h
}

func run(app *App, args ...string) (string, error) {
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestSeedRoles_SyncsValidatedRoles(t *testing.T) {
	h := newHarness(map[string][]string{
		"admin":  {"Create tasks", "Manage users"},
		"viewer": {},
	})

	out, err := run(h.app, "seed-roles")
	require.NoError(t, err)

	assert.Equal(t, []rbac.Permission{rbac.CreateTasks, rbac.ManageUsers}, h.syncer.synced["admin"])
	assert.Contains(t, h.syncer.synced, "viewer")
	assert.Contains(t, out, "Synced 2 roles")
}

func TestSeedRoles_UnknownPermissionFailsBeforeSync(t *testing.T) {
	h := newHarness(map[string][]string{"dev": {"Fly rockets"}})

	_, err := run(h.app, "seed-roles")

	var unknown *rbac.UnknownPermissionError
	require.ErrorAs(t, err, &unknown)
	assert.Nil(t, h.syncer.synced)
}

func TestSeedRoles_DryRun(t *testing.T) {
	h := newHarness(map[string][]string{"admin": {"Edit tasks"}})

	out, err := run(h.app, "seed-roles", "--dry-run")
	require.NoError(t, err)
	assert.Nil(t, h.syncer.synced)
	assert.Contains(t, out, "admin")
}

func TestCreateUser_PasswordFromEnv(t *testing.T) {
	h := newHarness(nil)
	t.Setenv("TTADMIN_PASSWORD", "pw-from-env")

	out, err := run(h.app, "create-user", "--login", "alice", "--email", "a@example.com", "--role", "manager")
	require.NoError(t, err)

	assert.Equal(t, "alice", h.users.login)
	assert.Equal(t, "pw-from-env", h.users.password)
	assert.Equal(t, "manager", h.users.role)
	assert.Contains(t, out, "id=42")
}

func TestCreateUser_RequiresLogin(t *testing.T) {
	h := newHarness(nil)
	_, err := run(h.app, "create-user", "--email", "a@example.com")
	assert.Error(t, err)
}

func TestReplayOutbox(t *testing.T) {
	h := newHarness(nil)

	_, err := run(h.app, "replay-outbox", "--id", "9")
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, h.replayer.ids)

	out, err := run(h.app, "replay-outbox", "--failed", "--limit", "20")
	require.NoError(t, err)
	assert.Equal(t, 20, h.replayer.limit)
	assert.Contains(t, out, "Replayed 3 failed events")

	_, err = run(h.app, "replay-outbox")
	assert.Error(t, err)

	_, err = run(h.app, "replay-outbox", "--id", "1", "--failed")
	assert.Error(t, err)
}

func TestCleanupNotifications(t *testing.T) {
	h := newHarness(nil)
	out, err := run(h.app, "cleanup-notifications")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 5 notifications")

	h.app.Cleanup = fakePurger{err: errors.New("db down")}
	_, err = run(h.app, "cleanup-notifications")
	assert.Error(t, err)
}
