package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the dayboard application
var rootCmd = &cobra.Command{
	Use:   "dayboard",
	Short: "Backend for the dayboard personal dashboard",
	Long: `dayboard is the backend-for-frontend of a personal dashboard that
shows Gmail, Google Calendar and Google Tasks side by side with a
local todo list.

Users sign in with Google once; the server keeps their OAuth tokens
in MongoDB, refreshes them ahead of expiry, and exposes a small
session-authenticated JSON API for the browser frontend.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "dayboard version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDisconnectCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
