package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"camclassify/internal/config"
	"camclassify/internal/logger"
	"camclassify/internal/service/export"
	"camclassify/internal/service/storage"
)

func main() {
	out := flag.String("out", export.FileName, "Output file, - for stdout")
	flag.Parse()

	if err := run(context.Background(), *out, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run exports every stored prediction to out. A summary is printed to
// stdout unless the export itself goes there.
func run(ctx context.Context, out string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l := logger.NewLogger(cfg)
	defer l.Close()

	store := storage.NewPredictionStore(cfg, l)
	if err := store.Open(ctx); err != nil {
		return fmt.Errorf("failed to open prediction store: %w", err)
	}
	defer store.Close()

	exporter := export.NewExporter(store)

	if out == "-" {
		if err := exporter.ExportAll(ctx, stdout); err != nil {
			return fmt.Errorf("failed to export predictions: %w", err)
		}
		return nil
	}

	if err := writeExport(ctx, exporter, out); err != nil {
		return err
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count predictions: %w", err)
	}
	fmt.Fprintf(stdout, "✅ Exported %d predictions to %s\n", count, out)
	return nil
}

func writeExport(ctx context.Context, exporter *export.Exporter, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := exporter.ExportAll(ctx, file); err != nil {
		file.Close()
		return fmt.Errorf("failed to export predictions: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
