package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jongik-sv/kirosync/cmd/kirosync/commands"
)

var rootCmd = &cobra.Command{
	Use:   "kirosync",
	Short: "KiroSync - real-time collaborative BPMN diagram editing engine",
	Long: `KiroSync - a WebSocket-backed server for collaboratively editing BPMN
process diagrams. Multiple users join the same diagram, see each other's
cursors, and have their edits broadcast and merged in real time.

Available commands:
  server  - Start the WebSocket/REST collaboration server
  migrate - Apply pending database migrations
  version - Show build/version information`,
}

func init() {
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
