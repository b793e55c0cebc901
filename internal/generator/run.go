package generator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/davidsbond/chinadns/internal/config"
	"github.com/davidsbond/chinadns/internal/override"
	"github.com/davidsbond/chinadns/internal/source"
)

// Run the pipeline end-to-end: load overrides, download and parse each configured source in order, merge,
// validate and write the output file. Sources are fetched one at a time and the first failure aborts the run;
// nothing is written unless every stage before the write succeeded, so the previous output survives any failed
// run intact.
func Run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Logging != nil {
		level = levelFromString(cfg.Logging.Level)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	overrides, err := override.Load(cfg.Output.OverrideFile, logger)
	if err != nil {
		return fmt.Errorf("failed to load override file: %w", err)
	}

	fetcher := source.NewFetcher(&http.Client{}, logger)

	documents := make([]Document, 0, len(cfg.Sources.URLs))
	for _, url := range cfg.Sources.URLs {
		body, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return err
		}

		domains, err := source.Parse(ctx, strings.NewReader(body), logger)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", url, err)
		}

		documents = append(documents, Document{
			URL:     url,
			Domains: domains,
		})
	}

	records := Merge(documents, overrides)

	if err = Validate(records, cfg.Sources.MinimumRecords); err != nil {
		return err
	}

	target := strings.Join(cfg.DNS.China, " ")

	if err = Write(cfg.Output.File, cfg.DNS.Trusted, overrides, records, target); err != nil {
		return err
	}

	logger.
		With(
			"records", len(records),
			"overrides", overrides.Len(),
			"file", cfg.Output.File,
		).
		Info("configuration written")

	return nil
}
