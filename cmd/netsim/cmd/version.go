package cmd

import (
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/sarchlab/netsync/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Version information",
	Run:   startVersion,
}

func init() {
	Root.AddCommand(versionCmd)
}

func startVersion(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()

	fmt.Fprint(out, version.String())
	if ts := version.HumanRevisionTime(); ts != "" {
		fmt.Fprintf(out, " (%s)", ts)
	}
	fmt.Fprintln(out)

	sqliteVersion, _, _ := sqlite3.Version()
	fmt.Fprintf(out, "sqlite: %s\n", sqliteVersion)
}
