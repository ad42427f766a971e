package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
)

type memStore struct {
	rows   []model.Notification
	failOn int // recipient id
}

func (m *memStore) Create(_ context.Context, n *model.Notification) error {
	if m.failOn != 0 && n.UserID == m.failOn {
		return errors.New("insert failed")
	}
	n.ID = len(m.rows) + 1
	m.rows = append(m.rows, *n)
	return nil
}

type tasks map[int]*model.Task

func (t tasks) Get(_ context.Context, id int) (*model.Task, error) {
	if task, ok := t[id]; ok {
		return task, nil
	}
	return nil, apperr.NotFound("task", id)
}

type watchers map[int][]int

func (w watchers) EffectiveWatchers(_ context.Context, t *model.Task) ([]int, error) {
	return append([]int{t.HolderID, t.AssigneeID, t.CreatedBy}, w[t.ID]...), nil
}

type members map[int][]int

func (m members) Members(_ context.Context, projectID int) ([]int, error) {
	return m[projectID], nil
}

func recipients(ns []model.Notification) []int {
	ids := make([]int, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, n.UserID)
	}
	return ids
}

func TestNotify_TaskExcludesActor(t *testing.T) {
	store := &memStore{}
	f := NewFanout(store,
		tasks{1: {ID: 1, HolderID: 2, AssigneeID: 3, CreatedBy: 1}},
		watchers{1: {4, 2}},
		members{},
		zap.NewNop(),
	)

	got, err := f.Notify(context.Background(), model.TaskSubject(1), 1, model.TaskUpdated)

	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, recipients(got))
	for _, n := range got {
		assert.False(t, n.IsRead)
		assert.Equal(t, 1, n.ActorID)
		assert.Equal(t, model.TaskSubject(1), n.Subject)
		assert.Equal(t, model.TaskUpdated, n.Type)
	}
}

func TestNotify_ProjectUsesMembers(t *testing.T) {
	store := &memStore{}
	f := NewFanout(store, tasks{}, watchers{}, members{9: {1, 5, 6}}, zap.NewNop())

	got, err := f.Notify(context.Background(), model.ProjectSubject(9), 5, model.ProjectUpdated)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 6}, recipients(got))
}

func TestNotify_MissingTask(t *testing.T) {
	f := NewFanout(&memStore{}, tasks{}, watchers{}, members{}, zap.NewNop())

	_, err := f.Notify(context.Background(), model.TaskSubject(42), 1, model.TaskUpdated)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestNotifyUsers_ActorOnlyAudienceCreatesNothing(t *testing.T) {
	store := &memStore{}
	f := NewFanout(store, tasks{}, watchers{}, members{}, zap.NewNop())

	got, err := f.NotifyUsers(context.Background(), model.TaskSubject(1), 7, model.TaskCreated, []int{7, 7})

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, store.rows)
}

func TestNotifyUsers_StopsAtFirstFailure(t *testing.T) {
	store := &memStore{failOn: 3}
	f := NewFanout(store, tasks{}, watchers{}, members{}, zap.NewNop())

	got, err := f.NotifyUsers(context.Background(), model.TaskSubject(1), 1, model.TaskCreated, []int{2, 3, 4})

	require.Error(t, err)
	assert.Equal(t, []int{2}, recipients(got))
	assert.Len(t, store.rows, 1)
}

func TestNotifyUsers_NoDedupAcrossCalls(t *testing.T) {
	store := &memStore{}
	f := NewFanout(store, tasks{}, watchers{}, members{}, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := f.NotifyUsers(context.Background(), model.TaskSubject(1), 1, model.TaskComment, []int{2})
		require.NoError(t, err)
	}
	require.Len(t, store.rows, 2)
	assert.NotEqual(t, store.rows[0].ID, store.rows[1].ID)
}

func TestNotifyUsers_TypeMustMatchSubject(t *testing.T) {
	store := &memStore{}
	f := NewFanout(store, tasks{}, watchers{}, members{}, zap.NewNop())

	_, err := f.NotifyUsers(context.Background(), model.ProjectSubject(1), 1, model.TaskCreated, []int{2})
	assert.Error(t, err)
	assert.Empty(t, store.rows)
}
