// Command importer converts raw stat workbooks (.xlsx) dropped into the
// raw tree into the per-season CSV layout the cleaning pipeline reads.
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

	force := flag.BoolP("force", "f", false, "re-import workbooks already converted")
	flag.Parse()

	if err := run(*force); err != nil {
		fmt.Fprintf(os.Stderr, "importer: %v\n", err)
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

	importer := operations.NewImporter(paths, nil, logger)

	if cat, err := catalog.Open(paths.CatalogFile, logger); err != nil {
		logger.Warn("run catalog unavailable, history will not be recorded",
			slog.String("error", err.Error()))
	} else {
		defer cat.Close()
		importer = importer.WithRecorder(cat)
	}

	manifest, err := importer.ImportAll(ctx, force)
	if manifest != nil {
		fmt.Printf("imported: %d written, %d skipped, %d failed\n",
			manifest.FilesWritten(), manifest.FilesSkipped(), manifest.FilesFailed())
	}
	return err
}
