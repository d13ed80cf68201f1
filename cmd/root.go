package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the macos-calendar-mcp application
var rootCmd = &cobra.Command{
	Use:   "macos-calendar-mcp",
	Short: "MCP server for macOS Calendar",
	Long: `macos-calendar-mcp exposes macOS Calendar to AI assistants over the
Model Context Protocol. Calendar is driven through AppleScript, so the
server must run on the Mac that owns the calendars.

It can serve MCP over:
  - stdio (default)
  - streamable HTTP, for clients on other machines`,
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
	rootCmd.SetVersionTemplate(`{{printf "macos-calendar-mcp version %s\n" .Version}}`)

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
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
