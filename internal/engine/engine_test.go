package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"recebiveis/internal/config"
	"recebiveis/internal/filter"
	"recebiveis/internal/schema"
	"recebiveis/internal/storage"
)

func writeXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue("Sheet1", ref, cell); err != nil {
				t.Fatal(err)
			}
		}
	}
	buf := bytes.NewBuffer(nil)
	if _, err := f.WriteTo(buf); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testEngine(t *testing.T, rows [][]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "pendentes.xlsx")
	writeXLSX(t, src, rows)

	registry := schema.Default()
	for i := range registry.Datasets {
		if registry.Datasets[i].Name == "receivables" {
			registry.Datasets[i].SourceURI = src
		}
	}

	db, err := storage.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		DBPath:                  filepath.Join(dir, "test.db"),
		RawDir:                  filepath.Join(dir, "raw"),
		SourceTimeoutMs:         5000,
		CacheTTLMinutes:         60,
		InactivityThresholdDays: 30,
		TopN:                    10,
	}
	return New(cfg, registry, db, zerolog.Nop())
}

func sourceRows() [][]string {
	return [][]string{
		{"Entidade", "Comercial", "Data Venc.", "Dias", "Valor Pendente"},
		{"Alfa", "Rui", "16/08/2025", "15", "1.234,56"},
		{"Alfa", "Rui", "01/07/2025", "-31", "500"},
		{"Beta", "Ana", "10/09/2025", "40", "250,10"},
	}
}

func TestEngineReport(t *testing.T) {
	eng := testEngine(t, sourceRows())
	ctx := context.Background()

	rep, err := eng.Report(ctx, "receivables", nil, ReportOptions{Today: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	if rep.KPIs.RowCount != 3 {
		t.Fatalf("rows=%d", rep.KPIs.RowCount)
	}
	summary := rep.Summary()
	if summary[0].Count != 0 || summary[1].Count != 1 || summary[2].Count != 1 {
		t.Fatalf("summary=%+v", summary)
	}
	if other := summary[len(summary)-1]; other.Count != 1 {
		t.Fatalf("other=%+v", other)
	}

	// filtering restricts the same canonical table
	rep, err = eng.Report(ctx, "receivables", filter.Filters{
		filter.DimSalesperson: filter.SelectValues("Rui"),
	}, ReportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if rep.KPIs.RowCount != 2 {
		t.Fatalf("rows=%d", rep.KPIs.RowCount)
	}
	if rep.KPIs.TotalPending.String() != "1734.56" {
		t.Fatalf("pending=%s", rep.KPIs.TotalPending)
	}
}

func TestEngineMemoizesCanonicalTable(t *testing.T) {
	eng := testEngine(t, sourceRows())
	ctx := context.Background()

	t1, err := eng.LoadDataset(ctx, "receivables", false)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := eng.LoadDataset(ctx, "receivables", false)
	if err != nil {
		t.Fatal(err)
	}
	if t1 != t2 {
		t.Fatal("expected the memoized table")
	}

	eng.Invalidate("receivables")
	t3, err := eng.LoadDataset(ctx, "receivables", false)
	if err != nil {
		t.Fatal(err)
	}
	if t1 == t3 {
		t.Fatal("expected a fresh table after invalidation")
	}
}

func TestEngineOptions(t *testing.T) {
	eng := testEngine(t, sourceRows())

	values, err := eng.Options(context.Background(), "receivables", filter.DimSalesperson, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 2 || values[0] != "Ana" || values[1] != "Rui" {
		t.Fatalf("values=%v", values)
	}
}

func TestEngineUnknownDataset(t *testing.T) {
	eng := testEngine(t, sourceRows())
	if _, err := eng.LoadDataset(context.Background(), "nope", false); err == nil {
		t.Fatal("expected error")
	}
}

func TestEngineRunLog(t *testing.T) {
	eng := testEngine(t, sourceRows())
	if _, err := eng.LoadDataset(context.Background(), "receivables", false); err != nil {
		t.Fatal(err)
	}

	runs, err := eng.db.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Dataset != "receivables" || runs[0].RowsLoaded != 3 {
		t.Fatalf("runs=%+v", runs)
	}
}
