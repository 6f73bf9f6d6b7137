package analytics

import (
	"testing"

	"github.com/shopspring/decimal"

	"recebiveis/internal"
)

func TestTopEntities(t *testing.T) {
	rows := []internal.Receivable{
		daysRow(5, 100),
		{Entity: "Beta", PendingAmount: internal.DecimalPtr(decimal.NewFromInt(300))},
		{Entity: "Gama", NetValue: internal.DecimalPtr(decimal.NewFromInt(200))},
		daysRow(10, 50),
	}

	got := TopEntities(rows, 2)
	if len(got) != 2 {
		t.Fatalf("entries=%d", len(got))
	}
	if got[0].Name != "Beta" || got[0].Total.String() != "300" {
		t.Fatalf("first=%+v", got[0])
	}
	// Gama has no pending amount; net value fills in
	if got[1].Name != "Gama" || got[1].Total.String() != "200" {
		t.Fatalf("second=%+v", got[1])
	}
}

func TestTopArticlesTieBreaksByName(t *testing.T) {
	rows := []internal.Receivable{
		qtyRow("A", "X2", 2025, 1, 5),
		qtyRow("A", "X1", 2025, 1, 5),
	}
	got := TopArticles(rows, 0)
	if len(got) != 2 || got[0].Name != "X1" || got[1].Name != "X2" {
		t.Fatalf("got=%+v", got)
	}
}

func TestMissingPeriods(t *testing.T) {
	rows := []internal.Receivable{
		qtyRow("A", "X1", 2025, 1, 10),
		qtyRow("A", "X1", 2025, 3, 10),
		qtyRow("B", "X1", 2025, 2, 10),
	}

	got := MissingPeriods(rows)
	if len(got) != 2 {
		t.Fatalf("gaps=%d", len(got))
	}
	if got[0].Entity != "A" || len(got[0].Missing) != 1 || got[0].Missing[0].String() != "2025-02" {
		t.Fatalf("A=%+v", got[0])
	}
	if got[1].Entity != "B" || len(got[1].Missing) != 2 {
		t.Fatalf("B=%+v", got[1])
	}
}
