package admincli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"tasktracker/pkg/rbac"
)

func newSeedRolesCmd(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed-roles",
		Short: "Validate configured roles and sync them to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			roles, err := rbac.ValidateRoles(app.Roles)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(roles))
			for name := range roles {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d permissions\n", name, len(roles[name]))
			}

			if dryRun {
				return nil
			}
			if err := app.Syncer.SyncRoles(cmd.Context(), roles); err != nil {
				return fmt.Errorf("sync roles: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d roles\n", len(roles))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate only, do not write")
	return cmd
}

func newCreateUserCmd(app *App) *cobra.Command {
	var login, email, password, role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user with the given role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("TTADMIN_PASSWORD")
			}
			u, err := app.Users.Register(cmd.Context(), login, email, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id=%d, role=%s)\n", u.Login, u.ID, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "Login name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (defaults to $TTADMIN_PASSWORD)")
	cmd.Flags().StringVar(&role, "role", "developer", "Role name")
	_ = cmd.MarkFlagRequired("login")
	return cmd
}

func newReplayOutboxCmd(app *App) *cobra.Command {
	var id int64
	var failed bool
	var limit int

	cmd := &cobra.Command{
		Use:   "replay-outbox",
		Short: "Re-publish outbox events",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case id > 0 && failed:
				return fmt.Errorf("--id and --failed are mutually exclusive")
			case id > 0:
				if err := app.Replayer.ReplayEvent(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Replayed event %d\n", id)
			case failed:
				n, err := app.Replayer.ReplayFailedEvents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d failed events\n", n)
			default:
				return fmt.Errorf("one of --id or --failed is required")
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Outbox event ID")
	cmd.Flags().BoolVar(&failed, "failed", false, "Replay all failed events")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of failed events to replay")
	return cmd
}

func newCleanupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-notifications",
		Short: "Purge read notifications older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Cleanup.PurgeOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d notifications\n", n)
			return nil
		},
	}
}
