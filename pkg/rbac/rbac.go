package rbac

import (
	"fmt"
	"sort"
)

// Permission 权限名称，取值只能是本包导出的变量
type Permission struct {
	name string
}

func (p Permission) String() string {
	return p.name
}

// IsZero 零值不代表任何权限
func (p Permission) IsZero() bool {
	return p.name == ""
}

// 权限常量
var (
	CreateTasks    = Permission{"Create tasks"}
	EditTasks      = Permission{"Edit tasks"}
	DeleteTasks    = Permission{"Delete tasks"}
	CreateProjects = Permission{"Create projects"}
	EditProjects   = Permission{"Edit projects"}
	DeleteProjects = Permission{"Delete projects"}
	ManageUsers    = Permission{"Manage users"}
)

var all = []Permission{
	CreateTasks,
	EditTasks,
	DeleteTasks,
	CreateProjects,
	EditProjects,
	DeleteProjects,
	ManageUsers,
}

// All 返回全部权限
func All() []Permission {
	out := make([]Permission, len(all))
	copy(out, all)
	return out
}

// ParsePermission 将配置中的权限名转换为 Permission，未知名称返回错误
func ParsePermission(name string) (Permission, error) {
	for _, p := range all {
		if p.name == name {
			return p, nil
		}
	}
	return Permission{}, &UnknownPermissionError{Name: name}
}

// UnknownPermissionError 配置中出现了未定义的权限
type UnknownPermissionError struct {
	Role string
	Name string
}

func (e *UnknownPermissionError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("role %q: unknown permission %q", e.Role, e.Name)
	}
	return fmt.Sprintf("unknown permission %q", e.Name)
}

// ValidateRoles 校验角色配置并转换为 Permission，启动时调用
func ValidateRoles(roles map[string][]string) (map[string][]Permission, error) {
	names := make([]string, 0, len(roles))
	for role := range roles {
		names = append(names, role)
	}
	sort.Strings(names)

	out := make(map[string][]Permission, len(roles))
	for _, role := range names {
		if role == "" {
			return nil, fmt.Errorf("role name must not be empty")
		}
		seen := make(map[Permission]bool)
		perms := make([]Permission, 0, len(roles[role]))
		for _, name := range roles[role] {
			p, err := ParsePermission(name)
			if err != nil {
				return nil, &UnknownPermissionError{Role: role, Name: name}
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			perms = append(perms, p)
		}
		out[role] = perms
	}
	return out, nil
}
