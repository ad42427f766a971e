package project

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/internal/filter"
	"tasktracker/internal/model"
	"tasktracker/internal/service/notification"
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

type memProjects struct {
	rows       map[int]model.Project
	members    map[int][]int
	nextID     int
	writes     int
	lastClause filter.Clause
}

func newMemProjects() *memProjects {
	return &memProjects{rows: map[int]model.Project{}, members: map[int][]int{}}
}

func (m *memProjects) Create(_ context.Context, p *model.Project, memberIDs []int) error {
	m.writes++
	m.nextID++
	p.ID = m.nextID
	m.rows[p.ID] = *p
	m.members[p.ID] = append([]int{p.CreatedBy}, memberIDs...)
	return nil
}

func (m *memProjects) Get(_ context.Context, id int) (*model.Project, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("project", id)
	}
	return &p, nil
}

func (m *memProjects) SetStatus(_ context.Context, id int, _, to model.ProjectStatus) error {
	m.writes++
	p := m.rows[id]
	p.Status = to
	m.rows[id] = p
	return nil
}

func (m *memProjects) List(_ context.Context, clause filter.Clause) ([]model.Project, error) {
	m.lastClause = clause
	return nil, nil
}

func (m *memProjects) ListSubprojects(context.Context, int) ([]model.Project, error) { return nil, nil }

func (m *memProjects) Members(_ context.Context, id int) ([]int, error) {
	return m.members[id], nil
}

func (m *memProjects) AddMember(_ context.Context, id, userID int) error {
	for _, u := range m.members[id] {
		if u == userID {
			return apperr.Conflict("already a member")
		}
	}
	m.writes++
	m.members[id] = append(m.members[id], userID)
	return nil
}

func (m *memProjects) RemoveMember(_ context.Context, id, userID int) error {
	list := m.members[id]
	for i, u := range list {
		if u == userID {
			m.writes++
			m.members[id] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("project member", userID)
}

type memNotifications struct {
	rows []model.Notification
	err  error
}

func (m *memNotifications) Create(_ context.Context, n *model.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifications) recipients() []int {
	var ids []int
	for _, n := range m.rows {
		ids = append(ids, n.UserID)
	}
	sort.Ints(ids)
	return ids
}

type fixture struct {
	svc           *Service
	projects      *memProjects
	notifications *memNotifications
	grants        grants
}

func newFixture() *fixture {
	log := zap.NewNop()
	f := &fixture{
		projects:      newMemProjects(),
		notifications: &memNotifications{},
		grants:        grants{1: rbac.All(), 2: rbac.All()},
	}
	fanout := notification.NewFanout(f.notifications, nil, nil, f.projects, log)
	f.svc = NewService(rbac.NewGate(f.grants, log), f.projects, fanout, log)
	return f
}

func (f *fixture) seed(status model.ProjectStatus, members ...int) int {
	f.projects.nextID++
	id := f.projects.nextID
	f.projects.rows[id] = model.Project{ID: id, Name: "p", Status: status}
	f.projects.members[id] = members
	return id
}

func TestCreateProject_CreatorIsMemberAndNotNotified(t *testing.T) {
	f := newFixture()

	p, err := f.svc.CreateProject(context.Background(), 1, CreateInput{Name: "apollo", MemberIDs: []int{2, 3}})

	require.NoError(t, err)
	assert.Equal(t, model.ProjectActive, p.Status)
	assert.Equal(t, []int{1, 2, 3}, f.projects.members[p.ID])
	assert.Equal(t, []int{2, 3}, f.notifications.recipients())
	assert.Equal(t, model.ProjectCreated, f.notifications.rows[0].Type)
}

func TestCreateProject_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateProject(context.Background(), 1, CreateInput{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	missing := 42
	_, err = f.svc.CreateProject(context.Background(), 1, CreateInput{Name: "x", ParentID: &missing})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	deleted := f.seed(model.ProjectDeleted)
	_, err = f.svc.CreateProject(context.Background(), 1, CreateInput{Name: "x", ParentID: &deleted})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.Zero(t, f.projects.writes)
}

func TestCreateProject_Forbidden(t *testing.T) {
	f := newFixture()
	f.grants[3] = []rbac.Permission{rbac.CreateTasks}

	_, err := f.svc.CreateProject(context.Background(), 3, CreateInput{Name: "x"})

	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Zero(t, f.projects.writes)
}

func TestUpdateProjectStatus_TerminalRejected(t *testing.T) {
	f := newFixture()
	for _, from := range []model.ProjectStatus{model.ProjectCompleted, model.ProjectCancelled, model.ProjectDeleted} {
		id := f.seed(from, 1, 2)
		_, err := f.svc.UpdateProjectStatus(context.Background(), 1, id, model.ProjectActive)
		assert.True(t, apperr.Is(err, apperr.KindInvalidTransition), string(from))
		_, err = f.svc.UpdateProjectStatus(context.Background(), 1, id, from)
		assert.True(t, apperr.Is(err, apperr.KindInvalidTransition), string(from))
	}
	assert.Zero(t, f.projects.writes)
}

func TestUpdateProjectStatus_NotifiesMembers(t *testing.T) {
	f := newFixture()
	id := f.seed(model.ProjectActive, 1, 2, 3)

	p, err := f.svc.UpdateProjectStatus(context.Background(), 1, id, model.ProjectOnHold)

	require.NoError(t, err)
	assert.Equal(t, model.ProjectOnHold, p.Status)
	assert.Equal(t, []int{2, 3}, f.notifications.recipients())
}

func TestUpdateProjectStatus_SameStatusNoop(t *testing.T) {
	f := newFixture()
	id := f.seed(model.ProjectActive, 1, 2)

	_, err := f.svc.UpdateProjectStatus(context.Background(), 1, id, model.ProjectActive)

	require.NoError(t, err)
	assert.Zero(t, f.projects.writes)
	assert.Empty(t, f.notifications.rows)
}

func TestUpdateProjectStatus_DeletedTargetNeedsDeletePath(t *testing.T) {
	f := newFixture()
	f.grants[1] = []rbac.Permission{rbac.EditProjects}
	id := f.seed(model.ProjectActive, 1, 2)

	_, err := f.svc.UpdateProjectStatus(context.Background(), 1, id, model.ProjectDeleted)

	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, model.ProjectActive, f.projects.rows[id].Status)
	assert.Zero(t, f.projects.writes)
	assert.Empty(t, f.notifications.rows)

	err = f.svc.DeleteProject(context.Background(), 1, id)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestAddProjectMember_NewMemberNotified(t *testing.T) {
	f := newFixture()
	id := f.seed(model.ProjectActive, 1, 2)

	require.NoError(t, f.svc.AddProjectMember(context.Background(), 1, id, 4))

	assert.Equal(t, []int{2, 4}, f.notifications.recipients())
	assert.Equal(t, model.ProjectMemberAdded, f.notifications.rows[0].Type)
}

func TestAddProjectMember_Duplicate(t *testing.T) {
	f := newFixture()
	id := f.seed(model.ProjectActive, 1, 2)

	err := f.svc.AddProjectMember(context.Background(), 1, id, 2)

	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Empty(t, f.notifications.rows)
}

func TestRemoveProjectMember_RemainingMembersNotified(t *testing.T) {
	f := newFixture()
	id := f.seed(model.ProjectActive, 1, 2, 3)

	require.NoError(t, f.svc.RemoveProjectMember(context.Background(), 1, id, 3))

	assert.Equal(t, []int{2}, f.notifications.recipients())

	err := f.svc.RemoveProjectMember(context.Background(), 1, id, 3)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteProject_Quiet(t *testing.T) {
	f := newFixture()
	id := f.seed(model.ProjectActive, 1, 2)

	require.NoError(t, f.svc.DeleteProject(context.Background(), 1, id))

	assert.Equal(t, model.ProjectDeleted, f.projects.rows[id].Status)
	assert.Empty(t, f.notifications.rows)
	assert.True(t, apperr.Is(f.svc.DeleteProject(context.Background(), 1, id), apperr.KindInvalidTransition))
}

func TestMutation_FanoutFailureSwallowed(t *testing.T) {
	f := newFixture()
	f.notifications.err = errors.New("boom")
	id := f.seed(model.ProjectActive, 1, 2)

	_, err := f.svc.UpdateProjectStatus(context.Background(), 1, id, model.ProjectCompleted)

	require.NoError(t, err)
	assert.Equal(t, model.ProjectCompleted, f.projects.rows[id].Status)
}

func TestListProjects_PassesWhitelistedFilters(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListProjects(context.Background(), 1, map[string]string{"status": "on_hold", "name; DROP": "x"})

	require.NoError(t, err)
	assert.True(t, f.projects.lastClause.Has("status"))
	assert.Equal(t, []any{"on_hold"}, f.projects.lastClause.Args)

	_, err = f.svc.ListProjects(context.Background(), 0, nil)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}
