// Command admin provides operator utilities for linkshelf.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"linkshelf/internal/bootstrap"
	"linkshelf/internal/config"
	"linkshelf/internal/repository"
	"linkshelf/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// adminApp bundles the services the commands drive.
type adminApp struct {
	admin     *service.AdminService
	favorites *service.FavoriteService
	tags      *service.TagService
	out       io.Writer
}

func newAdminApp(db *gorm.DB, out io.Writer) *adminApp {
	userRepo := repository.NewUserRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	tagRepo := repository.NewTagRepository(db)
	return &adminApp{
		admin:     service.NewAdminService(userRepo, bookmarkRepo, tagRepo),
		favorites: service.NewFavoriteService(repository.NewFavoriteRepository(db), nil),
		tags:      service.NewTagService(tagRepo),
		out:       out,
	}
}

// loader builds the app lazily so --help never touches the database.
type loader func(ctx context.Context) (*adminApp, error)

func runtimeLoader(out io.Writer) loader {
	return func(ctx context.Context) (*adminApp, error) {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipSchema: true})
		if err != nil {
			return nil, err
		}
		return newAdminApp(db, out), nil
	}
}

func newRootCmd(load loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "linkshelf operator utilities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// run adapts a command body that needs the app.
	run := func(fn func(ctx context.Context, app *adminApp, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			app, err := load(cmd.Context())
			if err != nil {
				return err
			}
			return fn(cmd.Context(), app, args)
		}
	}

	root.AddCommand(userCommands(run)...)
	root.AddCommand(maintenanceCommands(run)...)
	return root
}

type runFunc func(fn func(ctx context.Context, app *adminApp, args []string) error) func(*cobra.Command, []string) error

func main() {
	root := newRootCmd(runtimeLoader(os.Stdout))
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
