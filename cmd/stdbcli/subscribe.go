package main

import (
	"github.com/spf13/cobra"

	"github.com/spacetimedb/sdk-go/client"
)

func newSubscribeCmd(configPath *string) *cobra.Command {
	var flags connFlags

	cmd := &cobra.Command{
		Use:   "subscribe [query...]",
		Short: "Connect and subscribe to the given SQL queries, streaming row events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(*configPath, flags)
			if err != nil {
				return err
			}
			cfg.Subscriptions = args
			c := client.New(*cfg, printObserver{})
			return c.Start(cmd.Context())
		},
	}
	addConnFlags(cmd, &flags)
	return cmd
}
