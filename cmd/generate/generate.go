// Package generate provides the CLI endpoint to the "generate" command.
package generate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davidsbond/chinadns/internal/config"
	"github.com/davidsbond/chinadns/internal/generator"
)

// Command returns the "generate" command used to produce the upstream configuration file.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [config-file]",
		Short: "Generate the upstream configuration file",
		Example: `
# Generate with default configuration
chinadns generate

# Generate with a configuration file.
chinadns generate config.toml`,
		Long: `Downloads the configured China domain lists, merges them with the manual override file and writes the
AdGuard Home upstream configuration.

If no configuration file is specified, the felixonmars dnsmasq-china-list accelerated and apple lists are used,
matched domains route to AliDNS (223.5.5.5, 223.6.6.6) and all other traffic routes to Google DNS over TLS. The
result is written to china-dns-adguardhome.conf in the working directory, replacing any previous version after
backing it up to a .bak sibling.`,
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg := config.DefaultConfig()

			if len(args) > 0 {
				cfg, err = config.LoadConfig(args[0])
				if err != nil {
					return fmt.Errorf("failed to load configuration file: %w", err)
				}
			}

			return generator.Run(cmd.Context(), cfg)
		},
	}
}
