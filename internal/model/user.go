package model

// UserStatus 用户状态，用户不会被物理删除
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserDeleted   UserStatus = "deleted"
)

type User struct {
	ID           int        `json:"id"`
	Login        string     `json:"login"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleID       int        `json:"role_id"`
	Role         string     `json:"role"`
	Status       UserStatus `json:"status"`
}
