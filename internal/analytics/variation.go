package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"recebiveis/internal"
)

// Variations computes month-over-month quantity changes per (entity,
// article) pair. The distinct (year, month) periods of the rows are
// ordered ascending and each pair's quantity series is zero-filled over
// that full period list, so a skipped month shows up as a drop to zero.
// The record of the most recent period pair carries Headline.
func Variations(rows []internal.Receivable) []internal.VariationRecord {
	periods := observedPeriods(rows)
	if len(periods) < 2 {
		return []internal.VariationRecord{}
	}
	periodIdx := make(map[internal.Period]int, len(periods))
	for i, p := range periods {
		periodIdx[p] = i
	}

	type pairKey struct{ entity, article string }
	series := map[pairKey][]decimal.Decimal{}
	order := []pairKey{}

	for _, row := range rows {
		if row.Entity == "" || row.Year == nil || row.Month == nil {
			continue
		}
		key := pairKey{entity: row.Entity, article: row.Article}
		vec, ok := series[key]
		if !ok {
			vec = make([]decimal.Decimal, len(periods))
			for i := range vec {
				vec[i] = decimal.Zero
			}
			series[key] = vec
			order = append(order, key)
		}
		idx := periodIdx[internal.Period{Year: *row.Year, Month: *row.Month}]
		if row.Quantity != nil {
			vec[idx] = vec[idx].Add(*row.Quantity)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].entity != order[j].entity {
			return order[i].entity < order[j].entity
		}
		return order[i].article < order[j].article
	})

	out := []internal.VariationRecord{}
	for _, key := range order {
		vec := series[key]
		for i := 1; i < len(periods); i++ {
			rec := classifyPair(vec[i-1], vec[i])
			rec.Entity = key.entity
			rec.Article = key.article
			rec.PrevPeriod = periods[i-1]
			rec.CurrPeriod = periods[i]
			rec.Headline = i == len(periods)-1
			out = append(out, rec)
		}
	}
	return out
}

// classifyPair applies the alert rules in order. The previous period is
// always the denominator; when it is zero no percentage is emitted.
func classifyPair(prev, curr decimal.Decimal) internal.VariationRecord {
	rec := internal.VariationRecord{PrevQty: prev, CurrQty: curr}

	switch {
	case prev.IsZero() && curr.IsPositive():
		rec.Alert = internal.AlertNewCustomer
		return rec
	case prev.IsPositive() && curr.IsZero():
		rec.Alert = internal.AlertStoppedBuying
		rec.VariationPct = internal.FloatPtr(-100)
		return rec
	case prev.IsZero():
		rec.Alert = internal.AlertStable
		return rec
	}

	pct, _ := curr.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Float64()
	rec.VariationPct = internal.FloatPtr(pct)

	switch {
	case pct > 50:
		rec.Alert = internal.AlertStrongRise
	case pct > 20:
		rec.Alert = internal.AlertModerateRise
	case pct > 0:
		rec.Alert = internal.AlertLightRise
	case pct == 0:
		rec.Alert = internal.AlertStable
	case pct >= -20:
		rec.Alert = internal.AlertLightDrop
	case pct >= -50:
		rec.Alert = internal.AlertModerateDrop
	default:
		rec.Alert = internal.AlertStrongDrop
	}
	return rec
}

// Headlines keeps only the most recent pair per (entity, article).
func Headlines(records []internal.VariationRecord) []internal.VariationRecord {
	out := make([]internal.VariationRecord, 0, len(records))
	for _, rec := range records {
		if rec.Headline {
			out = append(out, rec)
		}
	}
	return out
}

func observedPeriods(rows []internal.Receivable) []internal.Period {
	seen := map[internal.Period]struct{}{}
	for _, row := range rows {
		if row.Year == nil || row.Month == nil {
			continue
		}
		seen[internal.Period{Year: *row.Year, Month: *row.Month}] = struct{}{}
	}
	out := make([]internal.Period, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
