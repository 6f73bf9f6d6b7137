// Package filter restricts the canonical table by user selections. All
// dimensions combine conjunctively; a missing dimension means "all".
package filter

import (
	"sort"
	"strconv"
	"time"

	"recebiveis/internal"
	"recebiveis/internal/table"
)

// Selection is one restriction over a single dimension. Exactly one of the
// optional members is set; the zero Selection (All) keeps every row.
type Selection struct {
	All       bool
	Values    map[string]struct{}
	IntRange  *[2]int
	DateRange *[2]time.Time
}

func SelectAll() Selection {
	return Selection{All: true}
}

func SelectValues(values ...string) Selection {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Selection{Values: set}
}

func SelectIntRange(lo, hi int) Selection {
	return Selection{IntRange: &[2]int{lo, hi}}
}

func SelectDateRange(from, to time.Time) Selection {
	return Selection{DateRange: &[2]time.Time{from, to}}
}

type Filters map[string]Selection

// Recognized dimension names.
const (
	DimEntity      = "entity"
	DimSalesperson = "salesperson"
	DimCategory    = "category"
	DimArticle     = "article"
	DimDocumentID  = "document_id"
	DimYear        = "year"
	DimMonth       = "month"
	DimDaysToDue   = "days_to_due"
	DimIssueDate   = "issue_date"
	DimDueDate     = "due_date"
)

var dimensions = map[string]struct{}{
	DimEntity: {}, DimSalesperson: {}, DimCategory: {}, DimArticle: {},
	DimDocumentID: {}, DimYear: {}, DimMonth: {}, DimDaysToDue: {},
	DimIssueDate: {}, DimDueDate: {},
}

// Apply computes the restricted row set. The canonical table is never
// mutated; when no filter restricts anything the input table is returned
// as is, so filtering with "all" everywhere yields the canonical table.
func Apply(filters Filters, t *table.Table) (*table.Table, error) {
	for dim := range filters {
		if _, ok := dimensions[dim]; !ok {
			return nil, &internal.UnknownDimensionError{Dimension: dim}
		}
	}

	restrictive := false
	for _, sel := range filters {
		if !sel.All && (sel.Values != nil || sel.IntRange != nil || sel.DateRange != nil) {
			restrictive = true
			break
		}
	}
	if !restrictive {
		return t, nil
	}

	kept := make([]internal.Receivable, 0, len(t.Rows))
	for _, row := range t.Rows {
		if rowMatches(row, filters) {
			kept = append(kept, row)
		}
	}
	return t.Derive(kept), nil
}

func rowMatches(row internal.Receivable, filters Filters) bool {
	for dim, sel := range filters {
		if !selectionMatches(row, dim, sel) {
			return false
		}
	}
	return true
}

func selectionMatches(row internal.Receivable, dim string, sel Selection) bool {
	if sel.All {
		return true
	}

	switch {
	case sel.Values != nil:
		v, ok := textValue(row, dim)
		if !ok {
			return false
		}
		_, hit := sel.Values[v]
		return hit

	case sel.IntRange != nil:
		v, ok := intValue(row, dim)
		if !ok {
			return false
		}
		return v >= sel.IntRange[0] && v <= sel.IntRange[1]

	case sel.DateRange != nil:
		v, ok := dateValue(row, dim)
		if !ok {
			return false
		}
		return !v.Before(sel.DateRange[0]) && !v.After(sel.DateRange[1])
	}

	return true
}

func textValue(row internal.Receivable, dim string) (string, bool) {
	switch dim {
	case DimEntity:
		return row.Entity, row.Entity != ""
	case DimSalesperson:
		return row.Salesperson, row.Salesperson != ""
	case DimCategory:
		return row.Category, row.Category != ""
	case DimArticle:
		return row.Article, row.Article != ""
	case DimDocumentID:
		return row.DocumentID, row.DocumentID != ""
	case DimYear:
		if row.Year == nil {
			return "", false
		}
		return strconv.Itoa(*row.Year), true
	case DimMonth:
		if row.Month == nil {
			return "", false
		}
		return strconv.Itoa(*row.Month), true
	}
	return "", false
}

func intValue(row internal.Receivable, dim string) (int, bool) {
	switch dim {
	case DimYear:
		if row.Year != nil {
			return *row.Year, true
		}
	case DimMonth:
		if row.Month != nil {
			return *row.Month, true
		}
	case DimDaysToDue:
		if row.DaysToDue != nil {
			return *row.DaysToDue, true
		}
	}
	return 0, false
}

func dateValue(row internal.Receivable, dim string) (time.Time, bool) {
	switch dim {
	case DimIssueDate:
		if row.IssueDate != nil {
			return *row.IssueDate, true
		}
	case DimDueDate:
		if row.DueDate != nil {
			return *row.DueDate, true
		}
	}
	return time.Time{}, false
}

// Options returns the distinct values a dimension takes inside the rows
// kept by partial, sorted for stable cascading selects.
func Options(dimension string, partial Filters, t *table.Table) ([]string, error) {
	if _, ok := dimensions[dimension]; !ok {
		return nil, &internal.UnknownDimensionError{Dimension: dimension}
	}

	restricted, err := Apply(partial, t)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, row := range restricted.Rows {
		if dimension == DimIssueDate || dimension == DimDueDate {
			if v, ok := dateValue(row, dimension); ok {
				seen[v.Format("2006-01-02")] = struct{}{}
			}
			continue
		}
		if v, ok := textValue(row, dimension); ok {
			seen[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	if dimension == DimYear || dimension == DimMonth {
		sort.Slice(out, func(i, j int) bool {
			a, _ := strconv.Atoi(out[i])
			b, _ := strconv.Atoi(out[j])
			return a < b
		})
	} else {
		sort.Strings(out)
	}
	return out, nil
}
