// Command awards cleans the award voting tables: EOY ballots, MVP vote
// shares and all-league team selections.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"nbacli/internal/awards"
	"nbacli/internal/config"
	"nbacli/internal/infrastructure"
)

func main() {
	_ = godotenv.Load()

	force := flag.BoolP("force", "f", false, "rewrite outputs even when up to date")
	flag.Parse()

	if err := run(*force); err != nil {
		fmt.Fprintf(os.Stderr, "awards: %v\n", err)
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

	results, err := awards.NewCleaner(paths, logger).Clean(ctx, force)
	for _, r := range results {
		fmt.Printf("%s: %d rows in, %d rows out, %d duplicates\n",
			r.Award, r.RowsIn, r.RowsOut, r.Duplicates)
	}
	return err
}
