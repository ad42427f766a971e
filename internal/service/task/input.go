package task

import (
	"time"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
)

// CreateInput 创建任务的请求体
type CreateInput struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	EstimatedTime *float64         `json:"estimated_time"`
	Progress      int              `json:"progress"`
	StartDate     *time.Time       `json:"start_date"`
	DueDate       *time.Time       `json:"due_date"`
	EndDate       *time.Time       `json:"end_date"`
	Status        model.TaskStatus `json:"status"`
	PriorityID    int              `json:"priority_id"`
	TypeID        int              `json:"type_id"`
	ProjectID     int              `json:"project_id"`
	HolderID      int              `json:"holder_id"`
	AssigneeID    int              `json:"assignee_id"`
	ParentID      *int             `json:"parent_id"`
	TagIDs        []int            `json:"tag_ids"`
}

// missing 返回全部缺失的必填字段
func (in CreateInput) missing() []string {
	var fields []string
	if in.Name == "" {
		fields = append(fields, "name")
	}
	if in.StartDate == nil {
		fields = append(fields, "start_date")
	}
	if in.DueDate == nil {
		fields = append(fields, "due_date")
	}
	if in.PriorityID <= 0 {
		fields = append(fields, "priority_id")
	}
	if in.Status == "" {
		fields = append(fields, "status")
	}
	if in.TypeID <= 0 {
		fields = append(fields, "type_id")
	}
	if in.ProjectID <= 0 {
		fields = append(fields, "project_id")
	}
	if in.HolderID <= 0 {
		fields = append(fields, "holder_id")
	}
	if in.AssigneeID <= 0 {
		fields = append(fields, "assignee_id")
	}
	return fields
}

func (in CreateInput) validate() error {
	if fields := in.missing(); len(fields) > 0 {
		return apperr.MissingFields(fields...)
	}
	if !in.Status.Valid() || in.Status == model.TaskDeleted {
		return apperr.InvalidValue("status", string(in.Status))
	}
	if err := validateProgress(in.Progress); err != nil {
		return err
	}
	return validateDates(*in.StartDate, *in.DueDate, in.EndDate)
}

func (in CreateInput) toTask(callerID int) *model.Task {
	return &model.Task{
		Name:          in.Name,
		Description:   in.Description,
		EstimatedTime: in.EstimatedTime,
		Progress:      in.Progress,
		StartDate:     *in.StartDate,
		DueDate:       *in.DueDate,
		EndDate:       in.EndDate,
		Status:        in.Status,
		PriorityID:    in.PriorityID,
		TypeID:        in.TypeID,
		ParentID:      in.ParentID,
		ProjectID:     in.ProjectID,
		HolderID:      in.HolderID,
		AssigneeID:    in.AssigneeID,
		CreatedBy:     callerID,
		TagIDs:        in.TagIDs,
	}
}

// Patch 部分更新，nil 字段保持不变
type Patch struct {
	Name          *string           `json:"name"`
	ProjectID     *int              `json:"project_id"`
	HolderID      *int              `json:"holder_id"`
	AssigneeID    *int              `json:"assignee_id"`
	Description   *string           `json:"description"`
	EstimatedTime *float64          `json:"estimated_time"`
	Status        *model.TaskStatus `json:"status"`
	PriorityID    *int              `json:"priority_id"`
	TypeID        *int              `json:"type_id"`
	StartDate     *time.Time        `json:"start_date"`
	DueDate       *time.Time        `json:"due_date"`
	EndDate       *time.Time        `json:"end_date"`
	Progress      *int              `json:"progress"`
}

// apply 把 patch 合并到 t 上（不含 status，由状态机单独处理）
func (p Patch) apply(t *model.Task) error {
	if p.Name != nil {
		if *p.Name == "" {
			return apperr.InvalidValue("name", "must not be empty")
		}
		t.Name = *p.Name
	}
	if err := applyID("project_id", p.ProjectID, &t.ProjectID); err != nil {
		return err
	}
	if err := applyID("holder_id", p.HolderID, &t.HolderID); err != nil {
		return err
	}
	if err := applyID("assignee_id", p.AssigneeID, &t.AssigneeID); err != nil {
		return err
	}
	if err := applyID("priority_id", p.PriorityID, &t.PriorityID); err != nil {
		return err
	}
	if err := applyID("type_id", p.TypeID, &t.TypeID); err != nil {
		return err
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.EstimatedTime != nil {
		t.EstimatedTime = p.EstimatedTime
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.EndDate != nil {
		t.EndDate = p.EndDate
	}
	if p.Progress != nil {
		if err := validateProgress(*p.Progress); err != nil {
			return err
		}
		t.Progress = *p.Progress
	}
	return validateDates(t.StartDate, t.DueDate, t.EndDate)
}

func applyID(field string, v *int, dst *int) error {
	if v == nil {
		return nil
	}
	if *v <= 0 {
		return apperr.InvalidValue(field, "must be a positive id")
	}
	*dst = *v
	return nil
}

func validateProgress(p int) error {
	if p < 0 || p > 100 {
		return apperr.InvalidValue("progress", "must be between 0 and 100")
	}
	return nil
}

// validateDates due >= start；end 存在时 end >= start
func validateDates(start, due time.Time, end *time.Time) error {
	var bad []string
	if due.Before(start) {
		bad = append(bad, "due_date")
	}
	if end != nil && end.Before(start) {
		bad = append(bad, "end_date")
	}
	if len(bad) > 0 {
		return apperr.InvalidDateRange(append([]string{"start_date"}, bad...)...)
	}
	return nil
}
