package tag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/rbac"
)

type grants map[int][]rbac.Permission

func (g grants) HasPermission(_ context.Context, userID int, p rbac.Permission) (bool, error) {
	for _, granted := range g[userID] {
		if granted == p {
			return true, nil
		}
	}
	return false, nil
}

type memTags struct{ rows []model.Tag }

func (m *memTags) List(context.Context) ([]model.Tag, error) { return m.rows, nil }

func (m *memTags) Create(_ context.Context, t *model.Tag) error {
	for _, existing := range m.rows {
		if existing.Name == t.Name {
			return apperr.Conflict("tag already exists")
		}
	}
	t.ID = len(m.rows) + 1
	m.rows = append(m.rows, *t)
	return nil
}

func newService(g grants) (*Service, *memTags) {
	store := &memTags{}
	return NewService(rbac.NewGate(g, zap.NewNop()), store, zap.NewNop()), store
}

func TestCreateTag_Defaults(t *testing.T) {
	s, store := newService(grants{1: {rbac.EditTasks}})

	tag, err := s.CreateTag(context.Background(), 1, CreateInput{Name: "  backend "})

	require.NoError(t, err)
	assert.Equal(t, "backend", tag.Name)
	assert.Equal(t, "#607d8b", tag.Color)
	assert.Equal(t, "Label", tag.Icon)
	assert.Equal(t, 1, tag.CreatedBy)
	assert.Len(t, store.rows, 1)
}

func TestCreateTag_Validation(t *testing.T) {
	s, store := newService(grants{1: {rbac.EditTasks}})

	_, err := s.CreateTag(context.Background(), 1, CreateInput{Name: " "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.CreateTag(context.Background(), 1, CreateInput{Name: "ui", Color: "red"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, store.rows)
}

func TestCreateTag_DuplicateIsConflict(t *testing.T) {
	s, _ := newService(grants{1: {rbac.EditTasks}})

	_, err := s.CreateTag(context.Background(), 1, CreateInput{Name: "ui", Color: "#FF0000"})
	require.NoError(t, err)
	_, err = s.CreateTag(context.Background(), 1, CreateInput{Name: "ui"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCreateTag_RequiresEditTasks(t *testing.T) {
	s, store := newService(grants{1: {rbac.CreateProjects}})

	_, err := s.CreateTag(context.Background(), 1, CreateInput{Name: "ui"})

	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Empty(t, store.rows)
}

func TestListTags(t *testing.T) {
	s, store := newService(grants{})
	store.rows = []model.Tag{{ID: 1, Name: "a"}}

	tags, err := s.ListTags(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	_, err = s.ListTags(context.Background(), 0)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}
