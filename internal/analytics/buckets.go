// Package analytics derives aging buckets, KPIs, inactivity and variation
// collections from a filtered row set. Every function is a pure function
// of its inputs; "today" is always an explicit parameter.
package analytics

import (
	"github.com/shopspring/decimal"

	"recebiveis/internal"
)

type BucketResult struct {
	Bucket       internal.Bucket       `json:"bucket"`
	Count        int                   `json:"count"`
	TotalPending decimal.Decimal       `json:"totalPending"`
	Rows         []internal.Receivable `json:"-"`
}

// Bucketization holds one result per bucket of the set plus the implicit
// "other" bucket for rows outside every interval. Rows without a
// days-to-due value are skipped and counted separately.
type Bucketization struct {
	Set        internal.BucketSet `json:"set"`
	Buckets    []BucketResult     `json:"buckets"`
	Other      BucketResult       `json:"other"`
	NoDaysRows int                `json:"noDaysRows"`
}

// Bucketize assigns each row to the first bucket whose half-open interval
// contains its days-to-due. Rows keep source order inside each bucket.
func Bucketize(rows []internal.Receivable, set internal.BucketSet) Bucketization {
	out := Bucketization{
		Set:     set,
		Buckets: make([]BucketResult, len(set.Buckets)),
		Other:   BucketResult{Bucket: internal.Bucket{Label: "Outros"}},
	}
	for i, b := range set.Buckets {
		out.Buckets[i] = BucketResult{Bucket: b, TotalPending: decimal.Zero}
	}
	out.Other.TotalPending = decimal.Zero

	for _, row := range rows {
		if row.DaysToDue == nil {
			out.NoDaysRows++
			continue
		}
		target := &out.Other
		for i := range out.Buckets {
			if out.Buckets[i].Bucket.Contains(*row.DaysToDue) {
				target = &out.Buckets[i]
				break
			}
		}
		target.Count++
		if row.PendingAmount != nil {
			target.TotalPending = target.TotalPending.Add(*row.PendingAmount)
		}
		target.Rows = append(target.Rows, row)
	}

	return out
}
