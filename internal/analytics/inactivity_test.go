package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"recebiveis/internal"
)

func saleRow(entity, salesperson, category string, issue time.Time, net int64) internal.Receivable {
	return internal.Receivable{
		Entity:      entity,
		Salesperson: salesperson,
		Category:    category,
		IssueDate:   internal.TimePtr(issue),
		NetValue:    internal.DecimalPtr(decimal.NewFromInt(net)),
	}
}

func TestInactivityRiskAndOrdering(t *testing.T) {
	today := day(2025, 8, 1)
	rows := []internal.Receivable{
		saleRow("A", "Rui", "Ferragens", day(2025, 7, 20), 100), // 12 days
		saleRow("B", "Rui", "Tintas", day(2025, 6, 20), 200),    // 42 days
		saleRow("C", "Ana", "Tintas", day(2025, 5, 1), 300),     // 92 days
		{Entity: "D"}, // no issue date, never appears
	}

	got := Inactivity(rows, InactivityOptions{Today: today, ThresholdDays: 30})
	if len(got) != 3 {
		t.Fatalf("records=%d", len(got))
	}

	// most inactive first
	if got[0].Entity != "C" || got[1].Entity != "B" || got[2].Entity != "A" {
		t.Fatalf("order=%s,%s,%s", got[0].Entity, got[1].Entity, got[2].Entity)
	}
	if got[0].DaysSinceLastPurchase != 92 || got[0].Risk != internal.RiskCritical || !got[0].Inactive {
		t.Fatalf("C=%+v", got[0])
	}
	if got[1].DaysSinceLastPurchase != 42 || got[1].Risk != internal.RiskLow || !got[1].Inactive {
		t.Fatalf("B=%+v", got[1])
	}
	if got[2].DaysSinceLastPurchase != 12 || got[2].Risk != internal.RiskActive || got[2].Inactive {
		t.Fatalf("A=%+v", got[2])
	}
}

func TestInactivityAggregation(t *testing.T) {
	today := day(2025, 8, 1)
	rows := []internal.Receivable{
		saleRow("A", "Rui", "Tintas", day(2025, 3, 1), 100),
		saleRow("A", "Rui", "Ferragens", day(2025, 6, 10), 300),
		saleRow("A", "Rui", "Tintas", day(2025, 5, 5), 100),
	}

	got := Inactivity(rows, InactivityOptions{Today: today, ThresholdDays: 30})
	if len(got) != 1 {
		t.Fatalf("records=%d", len(got))
	}
	rec := got[0]
	if !rec.LastPurchaseDate.Equal(day(2025, 6, 10)) {
		t.Fatalf("last=%s", rec.LastPurchaseDate)
	}
	if rec.PurchaseCount != 3 || rec.LifetimeValue.String() != "500" {
		t.Fatalf("count=%d lifetime=%s", rec.PurchaseCount, rec.LifetimeValue)
	}
	if rec.AverageTicket.StringFixed(2) != "166.67" {
		t.Fatalf("ticket=%s", rec.AverageTicket)
	}
	if rec.PreferredCategory != "Ferragens" {
		t.Fatalf("category=%s", rec.PreferredCategory)
	}
	if rec.Salesperson != "Rui" {
		t.Fatalf("salesperson=%s", rec.Salesperson)
	}
}

func TestInactivityMixedSalespeople(t *testing.T) {
	rows := []internal.Receivable{
		saleRow("A", "Rui", "", day(2025, 6, 1), 100),
		saleRow("A", "Ana", "", day(2025, 7, 1), 100),
	}
	got := Inactivity(rows, InactivityOptions{Today: day(2025, 8, 1), ThresholdDays: 30})
	if len(got) != 1 || got[0].Salesperson != "MIXED" {
		t.Fatalf("got=%+v", got)
	}
}

func TestInactivityPreferredCategoryTie(t *testing.T) {
	rows := []internal.Receivable{
		saleRow("A", "Rui", "Tintas", day(2025, 6, 1), 100),
		saleRow("A", "Rui", "Ferragens", day(2025, 6, 2), 100),
	}
	got := Inactivity(rows, InactivityOptions{Today: day(2025, 8, 1), ThresholdDays: 30})
	if got[0].PreferredCategory != "Ferragens" {
		t.Fatalf("category=%s", got[0].PreferredCategory)
	}
}

func TestInactivityLifetimeFloor(t *testing.T) {
	rows := []internal.Receivable{
		saleRow("A", "Rui", "", day(2025, 6, 1), 50),
		saleRow("B", "Rui", "", day(2025, 6, 1), 500),
	}
	got := Inactivity(rows, InactivityOptions{
		Today:                day(2025, 8, 1),
		ThresholdDays:        30,
		MinimumLifetimeValue: decimal.NewFromInt(100),
	})
	if len(got) != 1 || got[0].Entity != "B" {
		t.Fatalf("got=%+v", got)
	}
}
