package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_Transitions(t *testing.T) {
	allowed := map[TaskStatus][]TaskStatus{
		TaskToDo:       {TaskInProgress, TaskOnHold, TaskCancelled, TaskDeleted},
		TaskInProgress: {TaskToDo, TaskOnHold, TaskReview, TaskDone, TaskCancelled, TaskDeleted},
		TaskOnHold:     {TaskToDo, TaskInProgress, TaskCancelled, TaskDeleted},
		TaskReview:     {TaskInProgress, TaskDone, TaskCancelled, TaskDeleted},
	}
	all := []TaskStatus{TaskToDo, TaskInProgress, TaskOnHold, TaskReview, TaskDone, TaskCancelled, TaskDeleted}

	for from, targets := range allowed {
		for _, to := range all {
			want := false
			for _, a := range targets {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTaskStatus_TerminalRejectsEverything(t *testing.T) {
	all := []TaskStatus{TaskToDo, TaskInProgress, TaskOnHold, TaskReview, TaskDone, TaskCancelled, TaskDeleted}
	for _, from := range []TaskStatus{TaskDone, TaskCancelled, TaskDeleted} {
		assert.True(t, from.IsTerminal())
		for _, to := range all {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTaskStatus_UnknownTarget(t *testing.T) {
	assert.False(t, TaskToDo.CanTransitionTo("archived"))
	assert.False(t, TaskStatus("archived").Valid())
}

func TestProjectStatus_Transitions(t *testing.T) {
	assert.True(t, ProjectActive.CanTransitionTo(ProjectOnHold))
	assert.True(t, ProjectOnHold.CanTransitionTo(ProjectActive))
	assert.True(t, ProjectActive.CanTransitionTo(ProjectCompleted))
	assert.False(t, ProjectActive.CanTransitionTo(ProjectActive))
	assert.False(t, ProjectCompleted.CanTransitionTo(ProjectActive))
	assert.False(t, ProjectDeleted.CanTransitionTo(ProjectDeleted))
}

func TestNotificationType_SubjectKind(t *testing.T) {
	assert.Equal(t, SubjectTask, TaskComment.SubjectKind())
	assert.Equal(t, SubjectProject, ProjectMemberRemoved.SubjectKind())
	assert.False(t, NotificationType("digest").Valid())
}
