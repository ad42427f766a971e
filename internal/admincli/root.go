package admincli

import (
	"context"

	"github.com/spf13/cobra"

	"tasktracker/internal/model"
	"tasktracker/pkg/rbac"
)

type RoleSyncer interface {
	SyncRoles(ctx context.Context, roles map[string][]rbac.Permission) error
}

type Registrar interface {
	Register(ctx context.Context, login, email, password, role string) (*model.User, error)
}

type Replayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

type Purger interface {
	PurgeOnce(ctx context.Context) (int64, error)
}

// App 持有命令依赖；Roles 为配置文件中的角色定义
type App struct {
	Roles    map[string][]string
	Syncer   RoleSyncer
	Users    Registrar
	Replayer Replayer
	Cleanup  Purger
}

// NewRootCmd 创建 ttadmin 根命令
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "ttadmin",
		Short:         "Task tracker administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSeedRolesCmd(app),
		newCreateUserCmd(app),
		newReplayOutboxCmd(app),
		newCleanupCmd(app),
	)
	return root
}
