// Package normalize turns raw workbook rows into the canonical table. The
// dataset schema drives everything: header synonyms, per-column coercions,
// and which columns a row needs to survive. Rows that fail a required
// coercion are dropped and counted, never raised.
package normalize

import (
	"strings"
	"time"

	"recebiveis/internal"
	"recebiveis/internal/schema"
	"recebiveis/internal/table"
)

type boundColumn struct {
	spec    schema.ColumnSpec
	known   bool
	header  string
	present bool
}

// Normalize builds the canonical table from raw rows (header row first).
// today is the reference date for derived days-to-due and must be the same
// value later handed to the analytics kernel.
func Normalize(rows [][]string, ds schema.Dataset, today time.Time) (*table.Table, error) {
	header := []string{}
	if len(rows) > 0 {
		header = rows[0]
	}

	bound := make([]boundColumn, len(header))
	resolved := map[string]bool{}
	extras := []string{}
	for i, h := range header {
		trimmed := strings.TrimSpace(h)
		if trimmed == "" {
			continue
		}
		if spec, ok := ds.Resolve(trimmed); ok && !resolved[spec.Name] {
			bound[i] = boundColumn{spec: spec, known: true, header: trimmed, present: true}
			resolved[spec.Name] = true
			continue
		}
		bound[i] = boundColumn{header: trimmed, present: true}
		extras = append(extras, trimmed)
	}

	for _, required := range ds.RequiredColumns() {
		if !resolved[required] {
			return nil, &internal.RequiredColumnMissingError{Dataset: ds.Name, Column: required}
		}
	}

	t := &table.Table{
		Dataset:      ds.Name,
		Rows:         make([]internal.Receivable, 0, max(0, len(rows)-1)),
		ExtraColumns: extras,
		Today:        dateOnly(today),
	}

	for _, raw := range rows[min(1, len(rows)):] {
		if blankRow(raw) {
			continue
		}
		rec, ok := buildRow(raw, bound, ds)
		if !ok {
			t.DroppedRows++
			continue
		}
		deriveFields(&rec, t.Today)
		t.Rows = append(t.Rows, rec)
	}

	return t, nil
}

func buildRow(raw []string, bound []boundColumn, ds schema.Dataset) (internal.Receivable, bool) {
	rec := internal.Receivable{}
	missing := map[string]bool{}

	for i, col := range bound {
		if !col.present {
			continue
		}
		value := ""
		if i < len(raw) {
			value = strings.TrimSpace(raw[i])
		}
		if !col.known {
			if value != "" {
				if rec.Extra == nil {
					rec.Extra = map[string]string{}
				}
				rec.Extra[col.header] = value
			}
			continue
		}
		if !assignField(&rec, col.spec, value) {
			missing[col.spec.Name] = true
		}
	}

	for _, required := range ds.RequiredColumns() {
		if missing[required] {
			return internal.Receivable{}, false
		}
	}
	return rec, true
}

// assignField coerces value per the column type and stores it; false means
// the value is MISSING for this row.
func assignField(rec *internal.Receivable, spec schema.ColumnSpec, value string) bool {
	if value == "" {
		return false
	}

	switch spec.Type {
	case schema.TypeDate:
		parsed, ok := ParseDate(value)
		if !ok {
			return false
		}
		switch spec.Name {
		case schema.ColIssueDate:
			rec.IssueDate = internal.TimePtr(parsed)
		case schema.ColDueDate:
			rec.DueDate = internal.TimePtr(parsed)
		}
		return true

	case schema.TypeNumber:
		parsed, ok := ParseDecimal(value)
		if !ok {
			return false
		}
		switch spec.Name {
		case schema.ColPendingAmount:
			rec.PendingAmount = internal.DecimalPtr(parsed)
		case schema.ColNetValue:
			rec.NetValue = internal.DecimalPtr(parsed)
		case schema.ColQuantity:
			rec.Quantity = internal.DecimalPtr(parsed)
		}
		return true

	case schema.TypeInteger:
		parsed, ok := ParseInt(value)
		if !ok {
			return false
		}
		switch spec.Name {
		case schema.ColDaysToDue:
			rec.DaysToDue = internal.IntPtr(parsed)
		case schema.ColYear:
			if parsed < 1000 || parsed > 9999 {
				return false
			}
			rec.Year = internal.IntPtr(parsed)
		}
		return true

	case schema.TypeMonth:
		parsed, ok := MonthOrdinal(value)
		if !ok {
			return false
		}
		rec.Month = internal.IntPtr(parsed)
		return true

	default:
		switch spec.Name {
		case schema.ColEntity:
			rec.Entity = value
		case schema.ColSalesperson:
			rec.Salesperson = value
		case schema.ColCategory:
			rec.Category = value
		case schema.ColDocumentID:
			rec.DocumentID = value
		case schema.ColArticle:
			rec.Article = value
		default:
			if rec.Extra == nil {
				rec.Extra = map[string]string{}
			}
			rec.Extra[spec.Name] = value
		}
		return true
	}
}

// deriveFields fills year, month, iso week and days-to-due when the source
// did not carry them. A source "Dias" column wins over recomputation.
func deriveFields(rec *internal.Receivable, today time.Time) {
	if rec.IssueDate != nil {
		if rec.Year == nil {
			rec.Year = internal.IntPtr(rec.IssueDate.Year())
		}
		if rec.Month == nil {
			rec.Month = internal.IntPtr(int(rec.IssueDate.Month()))
		}
		if rec.ISOWeek == nil {
			_, week := rec.IssueDate.ISOWeek()
			rec.ISOWeek = internal.IntPtr(week)
		}
	}
	if rec.DaysToDue == nil && rec.DueDate != nil {
		rec.DaysToDue = internal.IntPtr(DaysBetween(today, *rec.DueDate))
	}
}

func blankRow(raw []string) bool {
	for _, cell := range raw {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
