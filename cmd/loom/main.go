package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╔═╗╔═╗╔╦╗
  ║  ║ ║║ ║║║║
  ╩═╝╚═╝╚═╝╩ ╩
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Fine-grained reactive state for Go",
		Long: `Loom is a dependency-tracking reactivity engine for Go.

Effects re-run automatically when the refs, records and lists they
read are written. This CLI ships two ways to see the engine at work:

  • demo: a live reactive graph with the websocket inspector
    and a Prometheus endpoint attached
  • bench: load profiles reporting effect runs/sec and
    trigger throughput`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		demoCmd(),
		benchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the Loom ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
