package main

import (
	"github.com/spf13/cobra"

	"github.com/spacetimedb/sdk-go/client"
)

// connFlags holds the per-command overrides layered on top of --config.
type connFlags struct {
	host     string
	database string
	scheme   string
	token    string
}

func addConnFlags(cmd *cobra.Command, f *connFlags) {
	cmd.Flags().StringVar(&f.host, "host", "", "server host:port (overrides config)")
	cmd.Flags().StringVar(&f.database, "database", "", "database name (overrides config)")
	cmd.Flags().StringVar(&f.scheme, "scheme", "", "ws or wss (overrides config)")
	cmd.Flags().StringVar(&f.token, "token", "", "auth token (overrides config)")
}

// resolveConfig loads --config if given, then layers any non-empty flag
// overrides on top of it.
func resolveConfig(configPath string, f connFlags) (*client.Config, error) {
	var cfg client.Config
	if configPath != "" {
		loaded, err := client.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if f.host != "" {
		cfg.Host = f.host
	}
	if f.database != "" {
		cfg.Database = f.database
	}
	if f.scheme != "" {
		cfg.Scheme = f.scheme
	}
	if f.token != "" {
		cfg.Token = f.token
	}
	return &cfg, nil
}
