package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"recebiveis/internal"
	"recebiveis/internal/normalize"
)

type InactivityOptions struct {
	Today         time.Time
	ThresholdDays int
	// MinimumLifetimeValue drops entities whose summed net value stays
	// below it. Zero keeps everyone.
	MinimumLifetimeValue decimal.Decimal
}

// Inactivity summarizes purchase recency per entity. Rows without an issue
// date cannot anchor a last purchase and are ignored; an entity with no
// dated rows at all does not appear. Records come back ordered by days
// since last purchase, most inactive first.
func Inactivity(rows []internal.Receivable, opts InactivityOptions) []internal.InactivityRecord {
	type acc struct {
		last        time.Time
		lifetime    decimal.Decimal
		count       int
		categories  map[string]decimal.Decimal
		salespeople map[string]struct{}
		salesperson string
	}

	byEntity := map[string]*acc{}
	order := []string{}

	for _, row := range rows {
		if row.Entity == "" || row.IssueDate == nil {
			continue
		}
		a, ok := byEntity[row.Entity]
		if !ok {
			a = &acc{
				lifetime:    decimal.Zero,
				categories:  map[string]decimal.Decimal{},
				salespeople: map[string]struct{}{},
			}
			byEntity[row.Entity] = a
			order = append(order, row.Entity)
		}
		if row.IssueDate.After(a.last) {
			a.last = *row.IssueDate
		}
		a.count++
		if row.NetValue != nil {
			a.lifetime = a.lifetime.Add(*row.NetValue)
			a.categories[row.Category] = a.categories[row.Category].Add(*row.NetValue)
		} else if row.Category != "" {
			if _, seen := a.categories[row.Category]; !seen {
				a.categories[row.Category] = decimal.Zero
			}
		}
		if row.Salesperson != "" {
			a.salespeople[row.Salesperson] = struct{}{}
			a.salesperson = row.Salesperson
		}
	}

	out := make([]internal.InactivityRecord, 0, len(byEntity))
	for _, entity := range order {
		a := byEntity[entity]
		if a.lifetime.LessThan(opts.MinimumLifetimeValue) {
			continue
		}

		days := normalize.DaysBetween(a.last, opts.Today)
		rec := internal.InactivityRecord{
			Entity:                entity,
			LastPurchaseDate:      a.last,
			DaysSinceLastPurchase: days,
			LifetimeValue:         a.lifetime,
			PurchaseCount:         a.count,
			PreferredCategory:     preferredCategory(a.categories),
			Salesperson:           a.salesperson,
			Risk:                  internal.RiskFor(days),
			Inactive:              days > opts.ThresholdDays,
		}
		if a.count > 0 {
			rec.AverageTicket = a.lifetime.Div(decimal.NewFromInt(int64(a.count)))
		}
		if len(a.salespeople) > 1 {
			rec.Salesperson = "MIXED"
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysSinceLastPurchase > out[j].DaysSinceLastPurchase
	})
	return out
}

// preferredCategory picks the category with the largest net value, ties
// broken alphabetically.
func preferredCategory(categories map[string]decimal.Decimal) string {
	best := ""
	bestValue := decimal.Decimal{}
	first := true
	for cat, value := range categories {
		if cat == "" {
			continue
		}
		switch {
		case first, value.GreaterThan(bestValue):
			best, bestValue, first = cat, value, false
		case value.Equal(bestValue) && cat < best:
			best = cat
		}
	}
	return best
}
