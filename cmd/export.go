package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/forks"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/markup"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

var (
	exportUser string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export <theme-id>",
	Short: "Write a theme to a clean standalone HTML file",
	Long: `Writes a theme with all editor scaffolding removed. With --user the
user's edited copy is exported when one exists; otherwise the catalog
original is.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportUser, "user", "", "email of the user whose copy to export")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (defaults to a name derived from the title)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	store := themes.NewStore(database)
	users := identity.NewStore(database)
	resolver := forks.NewResolver(store, users)

	actor, userID := audit.SystemActor, ""
	if exportUser != "" {
		u, err := lookupUser(ctx, users, exportUser)
		if err != nil {
			return err
		}
		actor, userID = u.ID, u.ID
	}

	res, err := resolver.Resolve(ctx, userID, args[0])
	if err != nil {
		return fmt.Errorf("resolving theme %s: %w", args[0], err)
	}

	out := exportOut
	if out == "" {
		out = markup.ExportFilename(res.Title)
	}
	if err := os.WriteFile(out, []byte(markup.Sanitize(res.Markup)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	audit.NewStore(database).Record(ctx, actor, audit.ActionExported, res.ThemeID, res.Title)

	source := "original"
	if res.IsFork {
		source = "edited copy"
	}
	fmt.Printf("Exported %q (%s) to %s\n", res.Title, source, out)
	return nil
}
