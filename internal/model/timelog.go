package model

import "time"

// TimeLog 一条工时记录，写入和删除时同步汇总到 tasks.spent_time
type TimeLog struct {
	ID             int       `json:"id"`
	TaskID         int       `json:"task_id"`
	UserID         int       `json:"user_id"`
	LogDate        time.Time `json:"log_date"`
	SpentTime      float64   `json:"spent_time"`
	Description    string    `json:"description"`
	ActivityTypeID int       `json:"activity_type_id"`
	CreatedOn      time.Time `json:"created_on"`
	UpdatedOn      time.Time `json:"updated_on"`
}

type Tag struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedBy int       `json:"created_by"`
	CreatedOn time.Time `json:"created_on"`
}
