package analytics

import (
	"github.com/shopspring/decimal"

	"recebiveis/internal"
)

// KPIs are scalar rollups over the filtered rows. AverageTicket and
// AverageDaysToDue are nil when undefined; callers render the sentinel as
// a neutral placeholder, never as zero.
type KPIs struct {
	RowCount int `json:"rowCount"`

	TotalPending  decimal.Decimal `json:"totalPending"`
	TotalNetValue decimal.Decimal `json:"totalNetValue"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`

	UniqueEntities    int `json:"uniqueEntities"`
	UniqueArticles    int `json:"uniqueArticles"`
	UniqueSalespeople int `json:"uniqueSalespeople"`

	AverageTicket    *decimal.Decimal `json:"averageTicket"`
	AverageDaysToDue *float64         `json:"averageDaysToDue"`
}

func ComputeKPIs(rows []internal.Receivable) KPIs {
	k := KPIs{
		RowCount:      len(rows),
		TotalPending:  decimal.Zero,
		TotalNetValue: decimal.Zero,
		TotalQuantity: decimal.Zero,
	}

	entities := map[string]struct{}{}
	articles := map[string]struct{}{}
	salespeople := map[string]struct{}{}
	daysSum := 0
	daysCount := 0

	for _, row := range rows {
		if row.PendingAmount != nil {
			k.TotalPending = k.TotalPending.Add(*row.PendingAmount)
		}
		if row.NetValue != nil {
			k.TotalNetValue = k.TotalNetValue.Add(*row.NetValue)
		}
		if row.Quantity != nil {
			k.TotalQuantity = k.TotalQuantity.Add(*row.Quantity)
		}
		if row.Entity != "" {
			entities[row.Entity] = struct{}{}
		}
		if row.Article != "" {
			articles[row.Article] = struct{}{}
		}
		if row.Salesperson != "" {
			salespeople[row.Salesperson] = struct{}{}
		}
		if row.DaysToDue != nil {
			daysSum += *row.DaysToDue
			daysCount++
		}
	}

	k.UniqueEntities = len(entities)
	k.UniqueArticles = len(articles)
	k.UniqueSalespeople = len(salespeople)

	if k.RowCount > 0 {
		avg := k.TotalNetValue.Div(decimal.NewFromInt(int64(k.RowCount)))
		k.AverageTicket = internal.DecimalPtr(avg)
	}
	if daysCount > 0 {
		avg := float64(daysSum) / float64(daysCount)
		k.AverageDaysToDue = internal.FloatPtr(avg)
	}

	return k
}
