package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nudgectl",
		Short: "Inspect and manage nudge reminders",
		Long: `nudgectl works against the same store the server uses. Changes made
while the server is running take effect at its next fire or restart.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(cancelCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(sendCmd())

	return rootCmd
}
