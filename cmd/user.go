package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

var (
	userName  string
	userAdmin bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users and the themes they have unlocked",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a user and print their access token",
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

		u, token, err := identity.NewStore(database).CreateUser(context.Background(), userName, args[0], userAdmin)
		if err != nil {
			return err
		}
		role := "user"
		if u.IsAdmin {
			role = "admin"
		}
		fmt.Printf("Created %s %s (%s)\n", role, u.Email, u.ID)
		fmt.Printf("Token: %s\n", token)
		fmt.Println("The token is shown once. Use `themestudio user token` to issue a new one.")
		return nil
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "Issue a new access token, revoking the old one",
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
		users := identity.NewStore(database)
		u, err := lookupUser(ctx, users, args[0])
		if err != nil {
			return err
		}
		token, err := users.RotateToken(ctx, u.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Token: %s\n", token)
		return nil
	},
}

var userUnlockCmd = &cobra.Command{
	Use:   "unlock <email> <theme-id>",
	Short: "Unlock a catalog theme for a user",
	Args:  cobra.ExactArgs(2),
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
		users := identity.NewStore(database)
		u, err := lookupUser(ctx, users, args[0])
		if err != nil {
			return err
		}
		t, err := themes.NewStore(database).Get(ctx, args[1])
		if err != nil {
			return fmt.Errorf("looking up theme %s: %w", args[1], err)
		}
		if err := users.Unlock(ctx, u.ID, t.ID); err != nil {
			return err
		}
		audit.NewStore(database).Record(ctx, audit.SystemActor, audit.ActionThemeUnlocked, t.ID, "for "+u.Email)
		fmt.Printf("Unlocked %q for %s\n", t.Title, u.Email)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
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
		users := identity.NewStore(database)
		list, err := users.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range list {
			unlocked, err := users.Unlocked(ctx, u.ID)
			if err != nil {
				return err
			}
			admin := ""
			if u.IsAdmin {
				admin = " [admin]"
			}
			fmt.Printf("%s  %s%s  %d unlocked\n", u.ID, u.Email, admin, len(unlocked))
		}
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name (defaults to the email)")
	userCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant administrator rights")
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userTokenCmd)
	userCmd.AddCommand(userUnlockCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}
