package model

import "time"

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
	ProjectDeleted   ProjectStatus = "deleted"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled, ProjectDeleted:
		return true
	}
	return false
}

func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled || s == ProjectDeleted
}

// CanTransitionTo active 与 on_hold 之间可以互转，非终态可进入任一终态
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	return !s.IsTerminal() && next.Valid() && s != next
}

// Project 项目，ParentID 构成项目树
type Project struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	StartDate   *time.Time    `json:"start_date,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
	Status      ProjectStatus `json:"status"`
	ParentID    *int          `json:"parent_id,omitempty"`
	CreatedBy   int           `json:"created_by"`
	CreatedOn   time.Time     `json:"created_on"`
	UpdatedOn   time.Time     `json:"updated_on"`
}
