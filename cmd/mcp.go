package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/identity"
	mcpserver "github.com/ziadkadry99/themestudio/internal/mcp"
	"github.com/ziadkadry99/themestudio/internal/rewrite"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

var mcpUser string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing the theme
editor to AI agents. All edits are made as the user given by --user and
saved to that user's personal copies.`,
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

		users := identity.NewStore(database)
		user, err := lookupUser(context.Background(), users, mcpUser)
		if err != nil {
			return err
		}

		var rewriter rewrite.Rewriter
		if rewriter, err = createRewriterFromConfig(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: AI edits disabled: %v\n", err)
		}

		mcpserver.Version = Version
		srv := mcpserver.NewServer(mcpserver.Deps{
			Themes:   themes.NewStore(database),
			Users:    users,
			Audit:    audit.NewStore(database),
			Rewriter: rewriter,
		}, user)

		fmt.Fprintf(os.Stderr, "themestudio MCP server started on stdio (user=%s)\n", user.Email)
		return srv.Serve()
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpUser, "user", "", "email of the user the agent edits as")
	mcpCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(mcpCmd)
}
