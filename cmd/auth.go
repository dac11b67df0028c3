package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/themestudio/internal/auth"
)

var keyProviders = []string{"openai", "openrouter", "google"}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API keys for LLM providers",
	Long: `Store and manage API keys for the AI designer's LLM provider.

Keys are stored in ~/.themestudio/credentials.json and used as a
fallback when environment variables are not set.`,
}

var authSetCmd = &cobra.Command{
	Use:       "set <provider>",
	Short:     "Store an API key for a provider",
	Args:      cobra.ExactArgs(1),
	ValidArgs: keyProviders,
	RunE:      runAuthSet,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have credentials",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [provider]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials for a provider.

If no provider is specified, removes all stored credentials.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	provider := args[0]
	prompt := promptui.Prompt{
		Label: provider + " API key",
		Mask:  '*',
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("API key is required")
			}
			return nil
		},
	}
	key, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}
	if err := auth.SetAPIKey(provider, strings.TrimSpace(key)); err != nil {
		return err
	}
	fmt.Printf("%s credentials stored successfully!\n", provider)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	path, _ := auth.CredentialPath()
	fmt.Printf("Credentials file: %s\n\n", path)

	fmt.Println("Provider     Status")
	fmt.Println("--------     ------")
	for _, p := range keyProviders {
		status := "not configured"
		if src := auth.KeySource(p); src != "" {
			status = "configured (" + src + ")"
		}
		fmt.Printf("%-12s %s\n", p, status)
	}
	fmt.Println("ollama       available (local)")
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	provider := ""
	if len(args) == 1 {
		provider = args[0]
	}
	if err := auth.RemoveAPIKey(provider); err != nil {
		return err
	}
	if provider == "" {
		fmt.Println("All stored credentials removed.")
	} else {
		fmt.Printf("%s credentials removed.\n", provider)
	}
	return nil
}
