package commands

import (
	"fmt"

	"github.com/jongik-sv/kirosync/internal/version"
)

// printStartupBanner prints the user-friendly startup message shown when
// the server command launches.
func printStartupBanner(addr, dbPath string) {
	cyan := "\033[36m"
	green := "\033[32m"
	bold := "\033[1m"
	reset := "\033[0m"

	info := version.Get()

	fmt.Printf("\n%s%sKiroSync%s — real-time BPMN diagram collaboration\n\n", cyan, bold, reset)
	fmt.Printf("%s│%s Version:  %s (commit %s)\n", green, reset, info.Version, info.Short())
	fmt.Printf("%s│%s Address:  %s\n", green, reset, addr)
	fmt.Printf("%s│%s Database: %s\n", green, reset, dbPath)
	fmt.Printf("\nPress Ctrl+C to stop\n\n")
}
