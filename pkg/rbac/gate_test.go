package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/pkg/apperr"
)

type fakeStore struct {
	grants map[int][]Permission
	err    error
	calls  int
}

func (f *fakeStore) HasPermission(_ context.Context, userID int, p Permission) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	for _, g := range f.grants[userID] {
		if g == p {
			return true, nil
		}
	}
	return false, nil
}

func TestGate_NoCallerIsUnauthenticatedWithoutStoreCall(t *testing.T) {
	store := &fakeStore{err: errors.New("must not be called")}
	gate := NewGate(store, zap.NewNop())

	for _, p := range All() {
		err := gate.Authorize(context.Background(), 0, p)
		assert.True(t, apperr.Is(err, apperr.KindUnauthenticated), p.String())
	}
	assert.True(t, apperr.Is(gate.Authorize(context.Background(), -3, CreateTasks), apperr.KindUnauthenticated))
	assert.Equal(t, 0, store.calls)
}

func TestGate_ZeroPermissionFailsWithoutStoreCall(t *testing.T) {
	store := &fakeStore{grants: map[int][]Permission{7: All()}}
	gate := NewGate(store, zap.NewNop())

	err := gate.Authorize(context.Background(), 7, Permission{})

	require.ErrorIs(t, err, ErrUndefinedPermission)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 0, store.calls)
}

func TestGate_MissingPermissionIsForbidden(t *testing.T) {
	store := &fakeStore{grants: map[int][]Permission{7: {EditTasks}}}
	gate := NewGate(store, zap.NewNop())

	err := gate.Authorize(context.Background(), 7, CreateTasks)

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindForbidden, e.Kind)
	assert.Equal(t, "Create tasks", e.Permission)
}

func TestGate_GrantedPermissionAllows(t *testing.T) {
	store := &fakeStore{grants: map[int][]Permission{7: {EditTasks, CreateTasks}}}
	gate := NewGate(store, zap.NewNop())

	assert.NoError(t, gate.Authorize(context.Background(), 7, CreateTasks))
	assert.Equal(t, 1, store.calls)
}

func TestGate_StoreFailureIsUnavailable(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	gate := NewGate(store, zap.NewNop())

	err := gate.Authorize(context.Background(), 7, CreateTasks)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
	assert.False(t, apperr.Is(err, apperr.KindForbidden))
}

func TestGate_NoCaching(t *testing.T) {
	store := &fakeStore{grants: map[int][]Permission{7: {DeleteTasks}}}
	gate := NewGate(store, zap.NewNop())

	require.NoError(t, gate.Authorize(context.Background(), 7, DeleteTasks))

	store.grants[7] = nil
	err := gate.Authorize(context.Background(), 7, DeleteTasks)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, 2, store.calls)
}
