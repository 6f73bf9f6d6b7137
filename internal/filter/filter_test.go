package filter

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"recebiveis/internal"
	"recebiveis/internal/table"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func row(entity, salesperson string, year, month, days int, due time.Time) internal.Receivable {
	return internal.Receivable{
		Entity:        entity,
		Salesperson:   salesperson,
		Year:          internal.IntPtr(year),
		Month:         internal.IntPtr(month),
		DaysToDue:     internal.IntPtr(days),
		DueDate:       internal.TimePtr(due),
		PendingAmount: internal.DecimalPtr(decimal.NewFromInt(100)),
	}
}

func testTable() *table.Table {
	return &table.Table{
		Dataset: "receivables",
		Today:   day(2025, 8, 1),
		Rows: []internal.Receivable{
			row("Alfa", "Rui", 2025, 1, 10, day(2025, 8, 11)),
			row("Alfa", "Rui", 2025, 3, -5, day(2025, 7, 27)),
			row("Beta", "Ana", 2025, 3, 40, day(2025, 9, 10)),
			row("Gama", "Ana", 2024, 12, 95, day(2025, 11, 4)),
		},
	}
}

func entities(t *table.Table) []string {
	out := []string{}
	for _, r := range t.Rows {
		out = append(out, r.Entity)
	}
	return out
}

func TestApplyConjunctive(t *testing.T) {
	tab := testTable()
	got, err := Apply(Filters{
		DimSalesperson: SelectValues("Ana"),
		DimYear:        SelectValues("2025"),
	}, tab)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Beta"}; !reflect.DeepEqual(entities(got), want) {
		t.Fatalf("got %v want %v", entities(got), want)
	}
}

func TestApplyIntAndDateRanges(t *testing.T) {
	tab := testTable()

	got, err := Apply(Filters{DimDaysToDue: SelectIntRange(0, 40)}, tab)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Alfa", "Beta"}; !reflect.DeepEqual(entities(got), want) {
		t.Fatalf("got %v", entities(got))
	}

	got, err = Apply(Filters{DimDueDate: SelectDateRange(day(2025, 8, 1), day(2025, 9, 30))}, tab)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Alfa", "Beta"}; !reflect.DeepEqual(entities(got), want) {
		t.Fatalf("got %v", entities(got))
	}
}

func TestApplyAllReturnsCanonical(t *testing.T) {
	tab := testTable()
	got, err := Apply(Filters{DimEntity: SelectAll()}, tab)
	if err != nil {
		t.Fatal(err)
	}
	if got != tab {
		t.Fatal("expected the canonical table back")
	}

	got, err = Apply(nil, tab)
	if err != nil {
		t.Fatal(err)
	}
	if got != tab {
		t.Fatal("expected the canonical table back")
	}
}

func TestApplyTwiceIsIdempotent(t *testing.T) {
	tab := testTable()
	filters := Filters{DimSalesperson: SelectValues("Ana")}

	once, err := Apply(filters, tab)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Apply(filters, once)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(entities(once), entities(twice)) {
		t.Fatalf("%v vs %v", entities(once), entities(twice))
	}
}

func TestApplyUnknownDimension(t *testing.T) {
	_, err := Apply(Filters{"colour": SelectValues("red")}, testTable())
	var unknown *internal.UnknownDimensionError
	if !errors.As(err, &unknown) {
		t.Fatalf("err=%v", err)
	}
	if unknown.Dimension != "colour" {
		t.Fatalf("dimension=%s", unknown.Dimension)
	}
}

func TestApplyMissingValueNeverMatches(t *testing.T) {
	tab := &table.Table{Rows: []internal.Receivable{{Entity: "Alfa"}}}
	got, err := Apply(Filters{DimDaysToDue: SelectIntRange(-100, 100)}, tab)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 0 {
		t.Fatalf("rows=%d", len(got.Rows))
	}
}

func TestOptionsCascade(t *testing.T) {
	tab := testTable()

	got, err := Options(DimEntity, Filters{DimSalesperson: SelectValues("Ana")}, tab)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Beta", "Gama"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}

	// month sorts numerically, not lexically
	got, err = Options(DimMonth, nil, tab)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"1", "3", "12"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}

	got, err = Options(DimDueDate, Filters{DimEntity: SelectValues("Alfa")}, tab)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"2025-07-27", "2025-08-11"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
}
