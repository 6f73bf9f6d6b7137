package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"recebiveis/internal"
)

type RankedEntry struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
	Rows  int             `json:"rows"`
}

// TopEntities ranks entities by summed pending amount, falling back to net
// value for datasets without a pending column.
func TopEntities(rows []internal.Receivable, n int) []RankedEntry {
	return topBy(rows, n, func(r internal.Receivable) string { return r.Entity }, func(r internal.Receivable) *decimal.Decimal {
		if r.PendingAmount != nil {
			return r.PendingAmount
		}
		return r.NetValue
	})
}

// TopArticles ranks articles by summed quantity.
func TopArticles(rows []internal.Receivable, n int) []RankedEntry {
	return topBy(rows, n, func(r internal.Receivable) string { return r.Article }, func(r internal.Receivable) *decimal.Decimal {
		return r.Quantity
	})
}

func topBy(rows []internal.Receivable, n int, key func(internal.Receivable) string, value func(internal.Receivable) *decimal.Decimal) []RankedEntry {
	totals := map[string]*RankedEntry{}
	order := []string{}
	for _, row := range rows {
		k := key(row)
		if k == "" {
			continue
		}
		entry, ok := totals[k]
		if !ok {
			entry = &RankedEntry{Name: k, Total: decimal.Zero}
			totals[k] = entry
			order = append(order, k)
		}
		entry.Rows++
		if v := value(row); v != nil {
			entry.Total = entry.Total.Add(*v)
		}
	}

	out := make([]RankedEntry, 0, len(order))
	for _, k := range order {
		out = append(out, *totals[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type EntityGap struct {
	Entity  string            `json:"entity"`
	Missing []internal.Period `json:"missing"`
}

// MissingPeriods lists, per entity, the observed periods in which the
// entity recorded no rows. Entities with no gaps are omitted.
func MissingPeriods(rows []internal.Receivable) []EntityGap {
	periods := observedPeriods(rows)
	if len(periods) == 0 {
		return []EntityGap{}
	}

	present := map[string]map[internal.Period]struct{}{}
	order := []string{}
	for _, row := range rows {
		if row.Entity == "" || row.Year == nil || row.Month == nil {
			continue
		}
		set, ok := present[row.Entity]
		if !ok {
			set = map[internal.Period]struct{}{}
			present[row.Entity] = set
			order = append(order, row.Entity)
		}
		set[internal.Period{Year: *row.Year, Month: *row.Month}] = struct{}{}
	}

	sort.Strings(order)
	out := []EntityGap{}
	for _, entity := range order {
		gap := EntityGap{Entity: entity}
		for _, p := range periods {
			if _, ok := present[entity][p]; !ok {
				gap.Missing = append(gap.Missing, p)
			}
		}
		if len(gap.Missing) > 0 {
			out = append(out, gap)
		}
	}
	return out
}
