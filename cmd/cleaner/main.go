// Command cleaner runs the stat-domain cleaning pipeline from the shell.
//
// Usage:
//
//	cleaner [-s 2024-25 | -S 2022-23,2023-24 | -a] [-f] [--domain player_stats]
//
// Without a season flag the configured default season is cleaned. With
// --domain only that stat domain runs; otherwise every registered domain
// with raw data is cleaned.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"nbacli/internal/catalog"
	"nbacli/internal/config"
	"nbacli/internal/infrastructure"
	"nbacli/internal/operations"
)

func main() {
	_ = godotenv.Load()

	var (
		season     = flag.StringP("season", "s", "", "single season label (YYYY-YY)")
		seasons    = flag.StringSliceP("seasons", "S", nil, "comma-separated season labels")
		allSeasons = flag.BoolP("all-seasons", "a", false, "clean every season found on disk")
		force      = flag.BoolP("force", "f", false, "rewrite outputs even when up to date")
		domain     = flag.String("domain", "", "restrict the run to one stat domain")
	)
	flag.Parse()

	if err := run(*season, *seasons, *allSeasons, *force, *domain); err != nil {
		fmt.Fprintf(os.Stderr, "cleaner: %v\n", err)
		os.Exit(1)
	}
}

func run(season string, seasons []string, allSeasons, force bool, domain string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}

	opts := operations.RunOptions{
		Season:     season,
		Seasons:    seasons,
		AllSeasons: allSeasons,
		Force:      force,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := operations.NewPipeline(paths, nil, logger).
		WithDefaultSeason(cfg.Pipeline.DefaultSeason)

	// The catalog records the run history; cleaning still works without it.
	if cat, err := catalog.Open(paths.CatalogFile, logger); err != nil {
		logger.Warn("run catalog unavailable, history will not be recorded",
			slog.String("error", err.Error()))
	} else {
		defer cat.Close()
		pipeline = pipeline.WithRecorder(cat)
	}

	var manifests []*operations.RunManifest
	if domain != "" {
		manifest, err := pipeline.CleanDomain(ctx, domain, opts)
		if manifest != nil {
			manifests = append(manifests, manifest)
		}
		if err != nil {
			printSummary(manifests)
			return err
		}
	} else {
		manifests, err = pipeline.CleanAll(ctx, opts)
		if err != nil {
			printSummary(manifests)
			return err
		}
	}

	printSummary(manifests)
	return nil
}

func printSummary(manifests []*operations.RunManifest) {
	written, skipped, failed, rows := 0, 0, 0, 0
	for _, m := range manifests {
		written += m.FilesWritten()
		skipped += m.FilesSkipped()
		failed += m.FilesFailed()
		rows += m.RowsWritten()
	}
	fmt.Printf("cleaned %d domain(s): %d written, %d skipped, %d failed, %d rows\n",
		len(manifests), written, skipped, failed, rows)
}
