// Package check provides the CLI endpoint to the "check" command.
package check

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/davidsbond/chinadns/internal/config"
	"github.com/davidsbond/chinadns/internal/probe"
)

// Command returns the "check" command used to probe the configured resolvers.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "check [config-file]",
		Short: "Probe the configured DNS resolvers",
		Example: `
# Check the default resolvers
chinadns check

# Check the resolvers from a configuration file.
chinadns check config.toml`,
		Long: `Sends a test query to every China and trusted resolver in the configuration and reports round-trip
times. Exits non-zero if any resolver is unreachable.`,
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

			if err = cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			resolvers := slices.Concat(cfg.DNS.China, cfg.DNS.Trusted)

			var failed int
			for _, result := range probe.Run(cmd.Context(), resolvers, logger) {
				if result.Err != nil {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d resolvers unreachable", failed)
			}

			return nil
		},
	}
}
