// Package engine wires the pipeline: load source bytes, normalize into the
// canonical table, apply the session's filters, run analytics and compose
// the report. The canonical table is memoized per dataset; every
// derivation is a pure function of (canonical table, filters).
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"recebiveis/internal/config"
	"recebiveis/internal/filter"
	"recebiveis/internal/normalize"
	"recebiveis/internal/report"
	"recebiveis/internal/schema"
	"recebiveis/internal/source"
	"recebiveis/internal/storage"
	"recebiveis/internal/table"
)

type Engine struct {
	cfg      config.Config
	registry *schema.Registry
	loader   *source.Loader
	db       *storage.DB
	log      zerolog.Logger

	mu     sync.Mutex
	tables map[string]*table.Table
}

func New(cfg config.Config, registry *schema.Registry, db *storage.DB, log zerolog.Logger) *Engine {
	loader := source.NewLoader(
		db,
		cfg.RawDir,
		time.Duration(cfg.SourceTimeoutMs)*time.Millisecond,
		time.Duration(cfg.CacheTTLMinutes)*time.Minute,
		log,
	)
	return &Engine{
		cfg:      cfg,
		registry: registry,
		loader:   loader,
		db:       db,
		log:      log,
		tables:   map[string]*table.Table{},
	}
}

func (e *Engine) Registry() *schema.Registry {
	return e.registry
}

// LoadDataset returns the canonical table for a dataset, loading and
// normalizing on first use. force refetches the source even inside the
// cache TTL.
func (e *Engine) LoadDataset(ctx context.Context, name string, force bool) (*table.Table, error) {
	ds, ok := e.registry.Dataset(name)
	if !ok {
		return nil, fmt.Errorf("unknown dataset: %s", name)
	}

	if !force {
		e.mu.Lock()
		t, ok := e.tables[name]
		e.mu.Unlock()
		if ok {
			return t, nil
		}
	}

	started := time.Now()
	rows, err := e.loader.Load(ctx, source.Descriptor{URI: ds.SourceURI, Sheet: ds.Sheet, AuthToken: ds.AuthToken}, force)
	if err != nil {
		return nil, err
	}

	t, err := normalize.Normalize(rows, ds, time.Now())
	if err != nil {
		return nil, err
	}
	if t.Empty() {
		e.log.Warn().Str("dataset", name).Int("dropped", t.DroppedRows).Msg("canonical table is empty after normalization")
	}

	e.mu.Lock()
	e.tables[name] = t
	e.mu.Unlock()

	if e.db != nil {
		_ = e.db.InsertRun(storage.RunRow{
			TraceID:     uuid.NewString(),
			Dataset:     name,
			RowsLoaded:  len(t.Rows),
			RowsDropped: t.DroppedRows,
			DurationMs:  float64(time.Since(started).Milliseconds()),
		})
	}
	e.log.Info().Str("dataset", name).Int("rows", len(t.Rows)).Int("dropped", t.DroppedRows).Msg("dataset loaded")

	return t, nil
}

// ReportOptions carries the per-request knobs of the analytics kernel.
// Zero values fall back to the configured defaults.
type ReportOptions struct {
	Today                time.Time
	BucketSet            string
	InactivityThreshold  int
	MinimumLifetimeValue decimal.Decimal
	TopN                 int
}

// Report loads, filters and analyzes one dataset.
func (e *Engine) Report(ctx context.Context, name string, filters filter.Filters, opts ReportOptions) (*report.Report, error) {
	t, err := e.LoadDataset(ctx, name, false)
	if err != nil {
		return nil, err
	}

	filtered, err := filter.Apply(filters, t)
	if err != nil {
		return nil, err
	}

	ds, _ := e.registry.Dataset(name)
	bucketSetName := opts.BucketSet
	if bucketSetName == "" {
		bucketSetName = ds.BucketSet
	}
	set, ok := e.registry.BucketSet(bucketSetName)
	if !ok {
		return nil, fmt.Errorf("unknown bucket set: %s", bucketSetName)
	}

	today := opts.Today
	if today.IsZero() {
		today = t.Today
	}
	threshold := opts.InactivityThreshold
	if threshold <= 0 {
		threshold = e.cfg.InactivityThresholdDays
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = e.cfg.TopN
	}

	rep := report.Compose(filtered, report.Options{
		BucketSet:            set,
		Today:                today,
		InactivityThreshold:  threshold,
		MinimumLifetimeValue: opts.MinimumLifetimeValue,
		TopN:                 topN,
	})

	if e.db != nil {
		_ = e.db.InsertRun(storage.RunRow{
			TraceID:      uuid.NewString(),
			Dataset:      name,
			RowsLoaded:   len(t.Rows),
			RowsDropped:  t.DroppedRows,
			FilteredRows: len(filtered.Rows),
		})
	}

	return rep, nil
}

// Workbook produces the downloadable multi-sheet workbook for a report.
func (e *Engine) Workbook(ctx context.Context, name string, filters filter.Filters, opts ReportOptions) (*excelize.File, error) {
	rep, err := e.Report(ctx, name, filters, opts)
	if err != nil {
		return nil, err
	}
	return report.BuildWorkbook(rep)
}

// Options lists the values a dimension takes under the partial filters,
// for cascading selects.
func (e *Engine) Options(ctx context.Context, name, dimension string, partial filter.Filters) ([]string, error) {
	t, err := e.LoadDataset(ctx, name, false)
	if err != nil {
		return nil, err
	}
	return filter.Options(dimension, partial, t)
}

// Invalidate drops both the normalized table memo and the byte cache for a
// dataset.
func (e *Engine) Invalidate(name string) {
	ds, ok := e.registry.Dataset(name)
	if !ok {
		return
	}
	e.mu.Lock()
	delete(e.tables, name)
	e.mu.Unlock()
	e.loader.Invalidate(ds.SourceURI)
	e.log.Info().Str("dataset", name).Msg("cache invalidated")
}

// Warm preloads every dataset; used by the scheduled refresh.
func (e *Engine) Warm(ctx context.Context) {
	for _, ds := range e.registry.Datasets {
		if ds.SourceURI == "" {
			continue
		}
		if _, err := e.LoadDataset(ctx, ds.Name, true); err != nil {
			e.log.Error().Err(err).Str("dataset", ds.Name).Msg("refresh failed")
		}
	}
}
