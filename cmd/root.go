package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "themestudio",
	Short: "Theme marketplace with an AI-assisted live page editor",
	Long: `Theme Studio serves a catalog of HTML themes. Users who unlock a theme
can open it in a live editor, change text in place or describe changes
to an AI designer, and every edit is saved to their personal copy.
The editor is also exposed to AI agents via MCP.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".themestudio.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
