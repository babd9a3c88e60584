package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"linkshelf/internal/models"
	"linkshelf/internal/service"

	"github.com/spf13/cobra"
)

func userCommands(run runFunc) []*cobra.Command {
	approve := &cobra.Command{
		Use:   "approve <username>",
		Short: "Approve a pending account",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, app *adminApp, args []string) error {
			user, err := app.admin.ApproveByUsername(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "✅ Approved %s (ID: %d)\n", user.Username, user.ID)
			return nil
		}),
	}

	var days int
	var revoke bool
	premium := &cobra.Command{
		Use:   "premium <username>",
		Short: "Grant or revoke the premium tier",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, app *adminApp, args []string) error {
			patch := service.AdminUserPatch{IsPremium: boolPtr(!revoke)}
			if !revoke && days > 0 {
				until := time.Now().Add(time.Duration(days) * 24 * time.Hour)
				patch.PremiumUntil = &until
			}
			user, err := updateByName(ctx, app, args[0], patch)
			if err != nil {
				return err
			}
			if user.IsPremium {
				fmt.Fprintf(app.out, "✅ %s is premium until %s (quota %d)\n",
					user.Username, user.PremiumUntil.Format(time.DateOnly), user.MaxBookmarks)
			} else {
				fmt.Fprintf(app.out, "✅ %s is back on the free tier (quota %d)\n", user.Username, user.MaxBookmarks)
			}
			return nil
		}),
	}
	premium.Flags().IntVar(&days, "days", 0, "premium duration in days (default 30)")
	premium.Flags().BoolVar(&revoke, "off", false, "revoke premium instead of granting it")

	quota := &cobra.Command{
		Use:   "quota <username> <max-bookmarks>",
		Short: "Override a user's bookmark quota",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, app *adminApp, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("max-bookmarks must be an integer: %w", err)
			}
			user, err := updateByName(ctx, app, args[0], service.AdminUserPatch{MaxBookmarks: &n})
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "✅ %s may now keep %d bookmarks\n", user.Username, user.MaxBookmarks)
			return nil
		}),
	}

	return []*cobra.Command{
		approve, premium, quota,
		roleCommand(run, "promote", models.RoleAdmin),
		roleCommand(run, "demote", models.RoleUser),
		{
			Use:   "list-admins",
			Short: "List all admins",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, app *adminApp, _ []string) error {
				admins, err := app.admin.ListAdmins(ctx)
				if err != nil {
					return err
				}
				if len(admins) == 0 {
					fmt.Fprintln(app.out, "No admins found in the system")
					return nil
				}
				fmt.Fprintf(app.out, "Found %d admin(s):\n", len(admins))
				for _, a := range admins {
					fmt.Fprintf(app.out, "  - %s (ID: %d, Email: %s)\n", a.Username, a.ID, a.Email)
				}
				return nil
			}),
		},
	}
}

func roleCommand(run runFunc, verb, role string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <username>",
		Short: fmt.Sprintf("Set a user's role to %s", role),
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, app *adminApp, args []string) error {
			user, err := app.admin.UserByUsername(ctx, args[0])
			if err != nil {
				return err
			}
			if user.Role == role {
				fmt.Fprintf(app.out, "%s (ID: %d) already has role %s\n", user.Username, user.ID, role)
				return nil
			}
			// the CLI acts without a principal, so self-demotion rules do not apply
			user, err = app.admin.SetRole(ctx, nil, user.ID, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "✅ %s (ID: %d) is now %s\n", user.Username, user.ID, user.Role)
			return nil
		}),
	}
}

func updateByName(ctx context.Context, app *adminApp, username string, patch service.AdminUserPatch) (*models.User, error) {
	user, err := app.admin.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return app.admin.UpdateUser(ctx, user.ID, patch)
}

func boolPtr(b bool) *bool { return &b }
