package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"linkshelf/internal/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func maintenanceCommands(run runFunc) []*cobra.Command {
	var format, output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of users, public bookmarks and tags",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, app *adminApp, _ []string) error {
			snap, err := app.admin.Export(ctx)
			if err != nil {
				return err
			}
			w := app.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return writeSnapshot(w, snap, format)
		}),
	}
	export.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	export.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	return []*cobra.Command{
		{
			Use:   "reconcile-favorites",
			Short: "Recompute favorite_count from the favorites table",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, app *adminApp, _ []string) error {
				n, err := app.favorites.Reconcile(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.out, "✅ Fixed favorite counts on %d bookmark(s)\n", n)
				return nil
			}),
		},
		{
			Use:   "expire-premium",
			Short: "Move lapsed premium accounts back to the free tier",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, app *adminApp, _ []string) error {
				n, err := app.admin.ExpirePremium(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.out, "✅ Expired %d premium account(s)\n", n)
				return nil
			}),
		},
		{
			Use:   "prune-tags",
			Short: "Delete tags no bookmark uses",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, app *adminApp, _ []string) error {
				n, err := app.tags.PruneOrphans(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.out, "✅ Pruned %d orphan tag(s)\n", n)
				return nil
			}),
		},
		export,
	}
}

func writeSnapshot(w io.Writer, snap *service.Snapshot, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml", "yml":
		// round-trip through JSON so json:"-" fields such as password hashes stay out
		raw, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
