package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/themestudio/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize themestudio configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the AI provider, data directory and server port, and writes a .themestudio.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
