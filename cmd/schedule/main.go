// Command schedule derives per-season game schedules from the cleaned
// team box score tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"nbacli/internal/config"
	"nbacli/internal/infrastructure"
	"nbacli/internal/operations"
	"nbacli/internal/schedule"
)

func main() {
	_ = godotenv.Load()

	var (
		season     = flag.StringP("season", "s", "", "single season label (YYYY-YY)")
		seasons    = flag.StringSliceP("seasons", "S", nil, "comma-separated season labels")
		allSeasons = flag.BoolP("all-seasons", "a", false, "build every season found on disk")
		force      = flag.BoolP("force", "f", false, "rewrite outputs even when up to date")
	)
	flag.Parse()

	if err := run(*season, *seasons, *allSeasons, *force); err != nil {
		fmt.Fprintf(os.Stderr, "schedule: %v\n", err)
		os.Exit(1)
	}
}

func run(season string, seasons []string, allSeasons, force bool) error {
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

	builder := schedule.NewBuilder(paths, logger)

	scope, err := resolveSeasons(builder, opts, cfg.Pipeline.DefaultSeason)
	if err != nil {
		return err
	}

	results, err := builder.Build(ctx, scope, force)
	games := 0
	for _, r := range results {
		games += r.RegularGames + r.PlayoffGames
		fmt.Printf("%s: %d teams, %d regular, %d playoff\n",
			r.Season, r.Teams, r.RegularGames, r.PlayoffGames)
	}
	fmt.Printf("built %d season(s), %d games\n", len(results), games)
	return err
}

func resolveSeasons(builder *schedule.Builder, opts operations.RunOptions, defaultSeason string) ([]string, error) {
	switch {
	case opts.AllSeasons:
		return builder.SeasonsOnDisk()
	case len(opts.Seasons) > 0:
		return opts.Seasons, nil
	case opts.Season != "":
		return []string{opts.Season}, nil
	default:
		return []string{defaultSeason}, nil
	}
}
