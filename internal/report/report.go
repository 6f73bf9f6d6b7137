// Package report materializes the analytics outputs: summary and detail
// tables for the shell, and the multi-sheet workbook download.
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"recebiveis/internal"
	"recebiveis/internal/analytics"
	"recebiveis/internal/table"
)

type Options struct {
	BucketSet            internal.BucketSet
	Today                time.Time
	InactivityThreshold  int
	MinimumLifetimeValue decimal.Decimal
	TopN                 int
}

type SummaryRow struct {
	Label        string          `json:"label"`
	Count        int             `json:"count"`
	TotalPending decimal.Decimal `json:"totalPending"`
}

type Report struct {
	Dataset     string    `json:"dataset"`
	Today       time.Time `json:"today"`
	GeneratedAt time.Time `json:"generatedAt"`

	KPIs    analytics.KPIs         `json:"kpis"`
	Buckets analytics.Bucketization `json:"buckets"`

	Inactivity     []internal.InactivityRecord `json:"inactivity"`
	Variations     []internal.VariationRecord  `json:"variations"`
	TopEntities    []analytics.RankedEntry     `json:"topEntities"`
	TopArticles    []analytics.RankedEntry     `json:"topArticles"`
	MissingPeriods []analytics.EntityGap       `json:"missingPeriods"`

	Rows        []internal.Receivable `json:"-"`
	DroppedRows int                   `json:"droppedRows"`
	Notes       []string              `json:"notes"`
}

// Compose runs the analytics kernel over the filtered table and assembles
// the report. Sections the dataset cannot support (inactivity without an
// issue date, variations without periods) are omitted with a note instead
// of failing.
func Compose(t *table.Table, opts Options) *Report {
	rep := &Report{
		Dataset:     t.Dataset,
		Today:       opts.Today,
		GeneratedAt: time.Now(),
		Rows:        t.Rows,
		DroppedRows: t.DroppedRows,
		KPIs:        analytics.ComputeKPIs(t.Rows),
		Buckets:     analytics.Bucketize(t.Rows, opts.BucketSet),
	}

	if t.DroppedRows > 0 {
		rep.Notes = append(rep.Notes, fmt.Sprintf("dropped_rows_count: %d", t.DroppedRows))
	}
	if len(t.Rows) == 0 {
		rep.Notes = append(rep.Notes, "no rows after normalization and filtering")
	}

	if hasIssueDates(t.Rows) {
		rep.Inactivity = analytics.Inactivity(t.Rows, analytics.InactivityOptions{
			Today:                opts.Today,
			ThresholdDays:        opts.InactivityThreshold,
			MinimumLifetimeValue: opts.MinimumLifetimeValue,
		})
	} else if len(t.Rows) > 0 {
		rep.Notes = append(rep.Notes, "inactivity omitted: no issue_date values")
	}

	// Variation and gap analysis only need (year, month), which Ano/Mês
	// columns can carry without any issue date.
	if hasPeriods(t.Rows) {
		rep.Variations = analytics.Variations(t.Rows)
		rep.MissingPeriods = analytics.MissingPeriods(t.Rows)
	} else if len(t.Rows) > 0 {
		rep.Notes = append(rep.Notes, "variations and missing_periods omitted: no (year, month) values")
	}

	rep.TopEntities = analytics.TopEntities(t.Rows, opts.TopN)
	rep.TopArticles = analytics.TopArticles(t.Rows, opts.TopN)

	return rep
}

// Summary returns one row per bucket plus the trailing "other" row.
func (r *Report) Summary() []SummaryRow {
	out := make([]SummaryRow, 0, len(r.Buckets.Buckets)+1)
	for _, b := range r.Buckets.Buckets {
		out = append(out, SummaryRow{Label: b.Bucket.Label, Count: b.Count, TotalPending: b.TotalPending})
	}
	out = append(out, SummaryRow{Label: r.Buckets.Other.Bucket.Label, Count: r.Buckets.Other.Count, TotalPending: r.Buckets.Other.TotalPending})
	return out
}

// Detail returns the rows of one bucket by label, in source order.
func (r *Report) Detail(label string) []internal.Receivable {
	for _, b := range r.Buckets.Buckets {
		if b.Bucket.Label == label {
			return b.Rows
		}
	}
	if r.Buckets.Other.Bucket.Label == label {
		return r.Buckets.Other.Rows
	}
	return nil
}

func hasIssueDates(rows []internal.Receivable) bool {
	for _, row := range rows {
		if row.IssueDate != nil {
			return true
		}
	}
	return false
}

func hasPeriods(rows []internal.Receivable) bool {
	for _, row := range rows {
		if row.Year != nil && row.Month != nil {
			return true
		}
	}
	return false
}
