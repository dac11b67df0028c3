package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Manage catalog themes",
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		list, err := themes.NewStore(database).List(context.Background())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No themes in the catalog. Run `themestudio import <dir>` to add some.")
			return nil
		}
		fmt.Printf("%-36s  %-9s  %s\n", "ID", "Downloads", "Title")
		for _, t := range list {
			title := t.Title
			if t.Author != "" {
				title += " by " + t.Author
			}
			fmt.Printf("%-36s  %9d  %s\n", t.ID, t.Downloads, title)
		}
		return nil
	},
}

var themeDeleteCmd = &cobra.Command{
	Use:   "delete <theme-id>",
	Short: "Remove a theme from the catalog",
	Long:  `Removes a catalog theme. Users' edited copies of it are kept in their libraries.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if err := store.Delete(ctx, args[0]); err != nil {
			if errors.Is(err, themes.ErrNotFound) {
				return fmt.Errorf("no theme with id %s", args[0])
			}
			return err
		}
		audit.NewStore(database).Record(ctx, audit.SystemActor, audit.ActionThemeDeleted, args[0], "deleted from the command line")
		fmt.Printf("Deleted theme %s\n", args[0])
		return nil
	},
}

func init() {
	themeCmd.AddCommand(themeListCmd)
	themeCmd.AddCommand(themeDeleteCmd)
	rootCmd.AddCommand(themeCmd)
}
