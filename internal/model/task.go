package model

import "time"

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskToDo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskOnHold     TaskStatus = "on_hold"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
	TaskDeleted    TaskStatus = "deleted"
)

// ActiveTaskStatuses 列表默认展示的状态
var ActiveTaskStatuses = []TaskStatus{TaskToDo, TaskInProgress, TaskOnHold, TaskReview}

// InactiveTaskStatuses 已结束但未删除
var InactiveTaskStatuses = []TaskStatus{TaskDone, TaskCancelled}

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskToDo:       {TaskInProgress, TaskOnHold},
	TaskInProgress: {TaskToDo, TaskOnHold, TaskReview, TaskDone},
	TaskOnHold:     {TaskToDo, TaskInProgress},
	TaskReview:     {TaskInProgress, TaskDone},
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskToDo, TaskInProgress, TaskOnHold, TaskReview, TaskDone, TaskCancelled, TaskDeleted:
		return true
	}
	return false
}

// IsTerminal done/cancelled/deleted 不再接受任何状态变更
func (s TaskStatus) IsTerminal() bool {
	return s == TaskDone || s == TaskCancelled || s == TaskDeleted
}

// CanTransitionTo 状态机：非终态可以随时取消或删除，其余按 taskTransitions。
// 相同状态不算迁移，由调用方按 no-op 处理。
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s.IsTerminal() || !next.Valid() || s == next {
		return false
	}
	if next == TaskCancelled || next == TaskDeleted {
		return true
	}
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Task 任务
type Task struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	EstimatedTime *float64   `json:"estimated_time,omitempty"`
	SpentTime     float64    `json:"spent_time"`
	Progress      int        `json:"progress"`
	StartDate     time.Time  `json:"start_date"`
	DueDate       time.Time  `json:"due_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Status        TaskStatus `json:"status"`
	PriorityID    int        `json:"priority_id"`
	TypeID        int        `json:"type_id"`
	ParentID      *int       `json:"parent_id,omitempty"`
	ProjectID     int        `json:"project_id"`
	HolderID      int        `json:"holder_id"`
	AssigneeID    int        `json:"assignee_id"`
	CreatedBy     int        `json:"created_by"`
	TagIDs        []int      `json:"tag_ids,omitempty"`
	CreatedOn     time.Time  `json:"created_on"`
	UpdatedOn     time.Time  `json:"updated_on"`
}
