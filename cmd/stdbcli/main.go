// Command stdbcli is a thin demonstration CLI over the client façade. It is
// not part of the module's public contract: it exists to exercise connect,
// subscribe, and call-reducer against a running instance from a terminal.
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
	var configPath string

	root := &cobra.Command{
		Use:           "stdbcli",
		Short:         "Minimal CLI over the SpacetimeDB client façade",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML client config (see client.LoadConfigFile)")

	root.AddCommand(
		newConnectCmd(&configPath),
		newSubscribeCmd(&configPath),
		newCallReducerCmd(&configPath),
	)
	return root
}
