package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"recebiveis/internal/config"
	"recebiveis/internal/engine"
	"recebiveis/internal/filter"
	"recebiveis/internal/schema"
	"recebiveis/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log := newLogger(cfg)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	registry, err := schema.Load(cfg.DatasetsPath)
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	eng := engine.New(cfg, registry, db, log)
	ctx := context.Background()

	cmd := os.Args[1]
	switch cmd {
	case "datasets":
		for _, ds := range registry.Datasets {
			fmt.Printf("%s\tbuckets=%s\t%s\n", ds.Name, ds.BucketSet, ds.Description)
		}

	case "load":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dataset := fs.String("dataset", "receivables", "dataset name")
		force := fs.Bool("force", false, "bypass the cache")
		_ = fs.Parse(os.Args[2:])
		t, err := eng.LoadDataset(ctx, *dataset, *force)
		must(err)
		fmt.Printf("loaded dataset=%s rows=%d dropped=%d\n", *dataset, len(t.Rows), t.DroppedRows)

	case "report":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dataset := fs.String("dataset", "receivables", "dataset name")
		filtersJSON := fs.String("filters", "", "filters as JSON")
		_ = fs.Parse(os.Args[2:])
		filters, opts, err := parseFilters(*filtersJSON)
		must(err)
		rep, err := eng.Report(ctx, *dataset, filters, opts)
		must(err)
		out, err := json.MarshalIndent(map[string]any{"report": rep, "summary": rep.Summary()}, "", "  ")
		must(err)
		fmt.Println(string(out))

	case "export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dataset := fs.String("dataset", "receivables", "dataset name")
		out := fs.String("out", "", "output xlsx path")
		filtersJSON := fs.String("filters", "", "filters as JSON")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			*out = filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s.xlsx", *dataset, time.Now().Format("20060102_150405")))
		}
		filters, opts, err := parseFilters(*filtersJSON)
		must(err)
		f, err := eng.Workbook(ctx, *dataset, filters, opts)
		must(err)
		must(os.MkdirAll(filepath.Dir(*out), 0o755))
		must(f.SaveAs(*out))
		fmt.Printf("exported dataset=%s output=%s\n", *dataset, *out)

	case "options":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dataset := fs.String("dataset", "receivables", "dataset name")
		dimension := fs.String("dimension", "", "dimension name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*dimension) == "" {
			must(fmt.Errorf("--dimension is required"))
		}
		values, err := eng.Options(ctx, *dataset, *dimension, nil)
		must(err)
		for _, v := range values {
			fmt.Println(v)
		}

	case "cache:clear":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dataset := fs.String("dataset", "", "dataset name (empty clears all)")
		_ = fs.Parse(os.Args[2:])
		if *dataset != "" {
			eng.Invalidate(*dataset)
			fmt.Printf("cache cleared dataset=%s\n", *dataset)
			return
		}
		for _, ds := range registry.Datasets {
			eng.Invalidate(ds.Name)
		}
		fmt.Println("cache cleared")

	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs to list")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, run := range runs {
			fmt.Printf("%s\tdataset=%s\trows=%d\tdropped=%d\tfiltered=%d\n",
				run.TraceID, run.Dataset, run.RowsLoaded, run.RowsDropped, run.FilteredRows)
		}

	default:
		usage()
		os.Exit(1)
	}
}

// parseFilters accepts the same JSON body the HTTP API takes.
func parseFilters(raw string) (filter.Filters, engine.ReportOptions, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, engine.ReportOptions{}, nil
	}
	return engine.ParseFilterJSON([]byte(raw))
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger().Level(level)
}

func usage() {
	fmt.Println("usage: recebiveis <command>")
	fmt.Println("commands:")
	fmt.Println("  datasets")
	fmt.Println("  load --dataset=receivables [--force]")
	fmt.Println("  report --dataset=receivables [--filters='{\"year\":[2025]}']")
	fmt.Println("  export --dataset=receivables [--out=./out/report.xlsx] [--filters=...]")
	fmt.Println("  options --dataset=receivables --dimension=salesperson")
	fmt.Println("  cache:clear [--dataset=receivables]")
	fmt.Println("  runs [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
