package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the clavr application
var rootCmd = &cobra.Command{
	Use:   "clavr",
	Short: "Personal assistant backend for email, calendar, and tasks",
	Long: `clavr is a personal-assistant backend. It turns natural-language queries
("archive everything from newsletters", "what's on my calendar tomorrow",
"remind me to file the expense report by friday") into actions against
Gmail, Google Calendar, and a local task store.

It can run as:
  - An HTTP REST API with webhook delivery and background jobs (default)
  - An MCP (Model Context Protocol) stdio server for AI assistants`,
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
	rootCmd.SetVersionTemplate(`{{printf "clavr version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVersionCmd())
}
