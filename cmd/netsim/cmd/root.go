// Package cmd provides the command-line interface of netsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Root is the netsim command without any subcommand.
var Root = &cobra.Command{
	Use:   "netsim",
	Short: "netsim runs client/server replication scenarios over an emulated network.",
	Long: `netsim runs a host and a number of clients over an emulated, lossy network ` +
		`and reports how well the clients track the host's world. Packets can be ` +
		`traced into SQLite and the run can be watched with a web monitor.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it. The
// process leaves through atexit so that trace files are flushed.
func Execute() {
	if err := Root.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
