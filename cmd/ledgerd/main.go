package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:          "ledgerd",
		Short:        "Token ledger HTTP server",
		SuggestFor:   []string{"ledger"},
		SilenceUsage: true,
	}
)

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"",
		"path to config file (default ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.AddCommand(
		newServeCmd(),
		newAccountCmd(),
		newPrincipalCmd(),
		newVersionCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd failed: %v\n", err)
		os.Exit(1)
	}
}
