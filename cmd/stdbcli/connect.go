package main

import (
	"github.com/spf13/cobra"

	"github.com/spacetimedb/sdk-go/client"
)

func newConnectCmd(configPath *string) *cobra.Command {
	var flags connFlags

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Fetch the schema, connect, and stream events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(*configPath, flags)
			if err != nil {
				return err
			}
			c := client.New(*cfg, printObserver{})
			return c.Start(cmd.Context())
		},
	}
	addConnFlags(cmd, &flags)
	return cmd
}
