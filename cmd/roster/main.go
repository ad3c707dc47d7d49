// Command roster cleans the season-independent player and franchise
// tables: bio standardization, headshot repair, position and draft
// splits, and duplicate pruning.
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
	"nbacli/internal/roster"
)

func main() {
	_ = godotenv.Load()

	force := flag.BoolP("force", "f", false, "rewrite outputs even when up to date")
	flag.Parse()

	if err := run(*force); err != nil {
		fmt.Fprintf(os.Stderr, "roster: %v\n", err)
		os.Exit(1)
	}
}

func run(force bool) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := roster.NewCleaner(paths, cfg.Pipeline, logger).Clean(ctx, force)
	for _, r := range results {
		fmt.Printf("%s: %d rows in, %d rows out, %d duplicates, %d pruned\n",
			r.Table, r.RowsIn, r.RowsOut, r.Duplicates, r.Pruned)
	}
	return err
}
