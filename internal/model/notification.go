package model

import "time"

// NotificationType 通知类型
type NotificationType string

const (
	TaskCreated          NotificationType = "task_created"
	TaskUpdated          NotificationType = "task_updated"
	TaskComment          NotificationType = "task_comment"
	ProjectCreated       NotificationType = "project_created"
	ProjectUpdated       NotificationType = "project_updated"
	ProjectMemberAdded   NotificationType = "project_member_added"
	ProjectMemberRemoved NotificationType = "project_member_removed"
)

// SubjectKind 通知指向的实体类型
type SubjectKind string

const (
	SubjectTask    SubjectKind = "task"
	SubjectProject SubjectKind = "project"
)

// SubjectKind 返回该类型通知对应的实体类型，未知类型返回空
func (t NotificationType) SubjectKind() SubjectKind {
	switch t {
	case TaskCreated, TaskUpdated, TaskComment:
		return SubjectTask
	case ProjectCreated, ProjectUpdated, ProjectMemberAdded, ProjectMemberRemoved:
		return SubjectProject
	}
	return ""
}

func (t NotificationType) Valid() bool {
	return t.SubjectKind() != ""
}

// Subject 通知引用（不拥有）的实体
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   int         `json:"id"`
}

func TaskSubject(id int) Subject {
	return Subject{Kind: SubjectTask, ID: id}
}

func ProjectSubject(id int) Subject {
	return Subject{Kind: SubjectProject, ID: id}
}

// Notification 通知记录。SubjectName 来自 LEFT JOIN，实体不存在时为空。
type Notification struct {
	ID          int              `json:"id"`
	UserID      int              `json:"user_id"`
	ActorID     int              `json:"actor_id"`
	Type        NotificationType `json:"type"`
	Subject     Subject          `json:"subject"`
	SubjectName *string          `json:"subject_name,omitempty"`
	IsRead      bool             `json:"is_read"`
	ReadOn      *time.Time       `json:"read_on,omitempty"`
	Active      bool             `json:"-"`
	SentOn      *time.Time       `json:"sent_on,omitempty"`
	CreatedOn   time.Time        `json:"created_on"`
}
