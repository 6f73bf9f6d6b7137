package source

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"recebiveis/internal"
	"recebiveis/internal/normalize"
	"recebiveis/internal/schema"
)

func mkXLSX(t *testing.T, sheet string, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "" && sheet != "Sheet1" {
		f.SetSheetName(f.GetSheetName(0), sheet)
	}
	name := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue(name, ref, cell); err != nil {
				t.Fatal(err)
			}
		}
	}
	buf := bytes.NewBuffer(nil)
	if _, err := f.WriteTo(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeWorkbookXLSX(t *testing.T) {
	rows := [][]string{
		{"Entidade", "Valor Pendente"},
		{"Alfa", "100"},
	}
	raw := mkXLSX(t, "Pendentes", rows)

	got, err := DecodeWorkbook(raw, "Pendentes")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("got %v", got)
	}

	// empty sheet name falls back to the first sheet
	got, err = DecodeWorkbook(raw, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("got %v", got)
	}
}

// Date and numeric cells written as typed values, not strings. The decoder
// must hand back raw serials and numbers so the coercion ladder sees them,
// not the cell's display format.
func TestDecodeWorkbookTypedCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	for j, h := range []string{"Entidade", "Data Venc.", "Dias", "Valor Pendente"} {
		ref, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := f.SetCellValue("Sheet1", ref, h); err != nil {
			t.Fatal(err)
		}
	}
	for ref, v := range map[string]any{
		"A2": "Alfa",
		"B2": time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		"C2": 15,
		"D2": 1234.56,
		"A3": "Beta",
		"B3": time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		"C3": -31,
		"D3": 500.0,
	} {
		if err := f.SetCellValue("Sheet1", ref, v); err != nil {
			t.Fatal(err)
		}
	}
	buf := bytes.NewBuffer(nil)
	if _, err := f.WriteTo(buf); err != nil {
		t.Fatal(err)
	}

	raw, err := DecodeWorkbook(buf.Bytes(), "Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	// typed dates surface as serial offsets against the 1899-12-30 epoch
	if raw[1][1] != "45720" || raw[2][1] != "45672" {
		t.Fatalf("serials=%q,%q", raw[1][1], raw[2][1])
	}

	ds, ok := schema.Default().Dataset("receivables")
	if !ok {
		t.Fatal("receivables dataset missing")
	}
	tab, err := normalize.Normalize(raw, ds, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Rows) != 2 || tab.DroppedRows != 0 {
		t.Fatalf("rows=%d dropped=%d", len(tab.Rows), tab.DroppedRows)
	}

	first := tab.Rows[0]
	if !first.DueDate.Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("due=%v", first.DueDate)
	}
	if *first.DaysToDue != 15 || first.PendingAmount.String() != "1234.56" {
		t.Fatalf("row=%+v", first)
	}
	second := tab.Rows[1]
	if !second.DueDate.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("due=%v", second.DueDate)
	}
	if *second.DaysToDue != -31 || second.PendingAmount.String() != "500" {
		t.Fatalf("row=%+v", second)
	}
}

func TestDecodeWorkbookSheetMissing(t *testing.T) {
	raw := mkXLSX(t, "Sheet1", [][]string{{"a"}})
	_, err := DecodeWorkbook(raw, "Nope")
	if !errors.Is(err, internal.ErrSheetMissing) {
		t.Fatalf("err=%v", err)
	}
}

func TestDecodeWorkbookHTMLTable(t *testing.T) {
	raw := []byte(`<html><body>
<table>
<tr><th>Entidade</th><th>Valor Pendente</th></tr>
<tr><td>Alfa</td><td> 1.234,56 </td></tr>
</table>
</body></html>`)

	got, err := DecodeWorkbook(raw, "")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Entidade", "Valor Pendente"},
		{"Alfa", "1.234,56"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
}

func TestDecodeWorkbookCorrupt(t *testing.T) {
	for _, raw := range [][]byte{
		[]byte("garbage that is not a workbook"),
		append([]byte("PK"), []byte("not a zip")...),
		[]byte("<html><body>no table here</body></html>"),
	} {
		_, err := DecodeWorkbook(raw, "")
		if !errors.Is(err, internal.ErrSourceCorrupt) {
			t.Fatalf("raw=%q err=%v", raw[:8], err)
		}
	}
}
