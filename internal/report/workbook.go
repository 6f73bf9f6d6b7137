package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"recebiveis/internal/analytics"
)

const currencyFormat = "€#,##0.00"

var filteredRowHeaders = []string{
	"entity", "salesperson", "category", "document_id", "article",
	"issue_date", "due_date", "days_to_due",
	"pending_amount", "net_value", "quantity",
	"year", "month",
}

// BuildWorkbook renders the report as a multi-sheet workbook. Numeric
// columns hold numbers; the euro format is a cell number format on the
// currency columns only. Sheets the report could not produce are listed in
// the notes sheet.
func BuildWorkbook(rep *Report) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), "filtered_rows")

	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(currencyFormat)})
	if err != nil {
		return nil, err
	}

	if err := writeFilteredRows(f, rep, currency); err != nil {
		return nil, err
	}
	if err := writeKPIs(f, rep, currency); err != nil {
		return nil, err
	}
	if err := writeSummary(f, rep, currency); err != nil {
		return nil, err
	}

	omitted := []string{}
	if len(rep.Inactivity) > 0 {
		if err := writeInactivity(f, rep, currency); err != nil {
			return nil, err
		}
	} else {
		omitted = append(omitted, "inactivity_records")
	}
	if len(rep.Variations) > 0 {
		if err := writeVariations(f, rep); err != nil {
			return nil, err
		}
	} else {
		omitted = append(omitted, "variations")
	}
	if len(rep.TopEntities) > 0 {
		if err := writeRanking(f, "top_entities", rep.TopEntities, currency); err != nil {
			return nil, err
		}
	} else {
		omitted = append(omitted, "top_entities")
	}
	if len(rep.TopArticles) > 0 {
		if err := writeRanking(f, "top_articles", rep.TopArticles, 0); err != nil {
			return nil, err
		}
	} else {
		omitted = append(omitted, "top_articles")
	}
	if len(rep.MissingPeriods) > 0 {
		if err := writeMissingPeriods(f, rep); err != nil {
			return nil, err
		}
	} else {
		omitted = append(omitted, "missing_periods")
	}

	if err := writeNotes(f, rep, omitted); err != nil {
		return nil, err
	}

	return f, nil
}

func writeFilteredRows(f *excelize.File, rep *Report, currency int) error {
	sheet := "filtered_rows"
	w := newSheetWriter(f, sheet)
	w.row(toAnySlice(filteredRowHeaders))

	for _, r := range rep.Rows {
		w.row([]any{
			r.Entity, r.Salesperson, r.Category, r.DocumentID, r.Article,
			dateCell(r.IssueDate), dateCell(r.DueDate), intCell(r.DaysToDue),
			decimalCell(r.PendingAmount), decimalCell(r.NetValue), decimalCell(r.Quantity),
			intCell(r.Year), intCell(r.Month),
		})
	}
	if w.err != nil {
		return w.err
	}

	last := len(rep.Rows) + 1
	if last > 1 {
		if err := f.SetCellStyle(sheet, "I2", fmt.Sprintf("J%d", last), currency); err != nil {
			return err
		}
	}
	return nil
}

func writeKPIs(f *excelize.File, rep *Report, currency int) error {
	sheet := "kpis"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	w := newSheetWriter(f, sheet)
	w.row([]any{"kpi", "value"})
	w.row([]any{"row_count", rep.KPIs.RowCount})
	w.row([]any{"total_pending", rep.KPIs.TotalPending.InexactFloat64()})
	w.row([]any{"total_net_value", rep.KPIs.TotalNetValue.InexactFloat64()})
	w.row([]any{"total_quantity", rep.KPIs.TotalQuantity.InexactFloat64()})
	w.row([]any{"unique_entities", rep.KPIs.UniqueEntities})
	w.row([]any{"unique_articles", rep.KPIs.UniqueArticles})
	w.row([]any{"unique_salespeople", rep.KPIs.UniqueSalespeople})

	// Undefined KPIs stay blank, never zero.
	if rep.KPIs.AverageTicket != nil {
		w.row([]any{"average_ticket", rep.KPIs.AverageTicket.InexactFloat64()})
	} else {
		w.row([]any{"average_ticket", ""})
	}
	if rep.KPIs.AverageDaysToDue != nil {
		w.row([]any{"average_days_to_due", *rep.KPIs.AverageDaysToDue})
	} else {
		w.row([]any{"average_days_to_due", ""})
	}
	if w.err != nil {
		return w.err
	}

	for _, cell := range []string{"B3", "B4"} {
		if err := f.SetCellStyle(sheet, cell, cell, currency); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, rep *Report, currency int) error {
	sheet := "summary_by_bucket"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	w := newSheetWriter(f, sheet)
	w.row([]any{"label", "count", "total_pending"})
	summary := rep.Summary()
	for _, row := range summary {
		w.row([]any{row.Label, row.Count, row.TotalPending.InexactFloat64()})
	}
	if w.err != nil {
		return w.err
	}
	return f.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", len(summary)+1), currency)
}

func writeInactivity(f *excelize.File, rep *Report, currency int) error {
	sheet := "inactivity_records"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	red, err := fillStyle(f, "FFC7CE")
	if err != nil {
		return err
	}
	orange, err := fillStyle(f, "FFD8B1")
	if err != nil {
		return err
	}
	yellow, err := fillStyle(f, "FFF2CC")
	if err != nil {
		return err
	}

	w := newSheetWriter(f, sheet)
	w.row([]any{
		"entity", "last_purchase_date", "days_since_last_purchase",
		"lifetime_value", "average_ticket", "purchase_count",
		"preferred_category", "salesperson", "risk_level", "inactive",
	})
	for i, rec := range rep.Inactivity {
		w.row([]any{
			rec.Entity, rec.LastPurchaseDate.Format("2006-01-02"), rec.DaysSinceLastPurchase,
			rec.LifetimeValue.InexactFloat64(), rec.AverageTicket.InexactFloat64(), rec.PurchaseCount,
			rec.PreferredCategory, rec.Salesperson, string(rec.Risk), rec.Inactive,
		})

		// Color bands on days_since_last_purchase.
		style := 0
		switch {
		case rec.DaysSinceLastPurchase > 120:
			style = red
		case rec.DaysSinceLastPurchase > 90:
			style = orange
		case rec.DaysSinceLastPurchase > 60:
			style = yellow
		}
		if style != 0 {
			cell := fmt.Sprintf("C%d", i+2)
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	if w.err != nil {
		return w.err
	}

	last := len(rep.Inactivity) + 1
	return f.SetCellStyle(sheet, "D2", fmt.Sprintf("E%d", last), currency)
}

func writeVariations(f *excelize.File, rep *Report) error {
	sheet := "variations"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	w := newSheetWriter(f, sheet)
	w.row([]any{
		"entity", "article", "prev_period", "curr_period",
		"prev_qty", "curr_qty", "variation_pct", "alert", "headline",
	})
	for _, rec := range rep.Variations {
		pct := any("")
		if rec.VariationPct != nil {
			pct = *rec.VariationPct
		}
		w.row([]any{
			rec.Entity, rec.Article, rec.PrevPeriod.String(), rec.CurrPeriod.String(),
			rec.PrevQty.InexactFloat64(), rec.CurrQty.InexactFloat64(), pct, string(rec.Alert), rec.Headline,
		})
	}
	return w.err
}

func writeRanking(f *excelize.File, sheet string, entries []analytics.RankedEntry, currency int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	w := newSheetWriter(f, sheet)
	w.row([]any{"name", "total", "rows"})
	for _, e := range entries {
		w.row([]any{e.Name, e.Total.InexactFloat64(), e.Rows})
	}
	if w.err != nil {
		return w.err
	}
	if currency != 0 && len(entries) > 0 {
		return f.SetCellStyle(sheet, "B2", fmt.Sprintf("B%d", len(entries)+1), currency)
	}
	return nil
}

func writeMissingPeriods(f *excelize.File, rep *Report) error {
	sheet := "missing_periods"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	w := newSheetWriter(f, sheet)
	w.row([]any{"entity", "missing_periods"})
	for _, gap := range rep.MissingPeriods {
		labels := make([]string, 0, len(gap.Missing))
		for _, p := range gap.Missing {
			labels = append(labels, p.String())
		}
		w.row([]any{gap.Entity, strings.Join(labels, ", ")})
	}
	return w.err
}

func writeNotes(f *excelize.File, rep *Report, omitted []string) error {
	sheet := "notes"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	w := newSheetWriter(f, sheet)
	w.row([]any{"note"})
	w.row([]any{fmt.Sprintf("dataset: %s", rep.Dataset)})
	w.row([]any{fmt.Sprintf("today: %s", rep.Today.Format("2006-01-02"))})
	w.row([]any{fmt.Sprintf("generated_at: %s", rep.GeneratedAt.Format(time.RFC3339))})
	w.row([]any{fmt.Sprintf("dropped_rows_count: %d", rep.DroppedRows)})
	for _, note := range rep.Notes {
		w.row([]any{note})
	}
	for _, name := range omitted {
		w.row([]any{fmt.Sprintf("sheet omitted (no data): %s", name)})
	}
	return w.err
}

// sheetWriter appends rows to a sheet, carrying the first error forward.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func newSheetWriter(f *excelize.File, sheet string) *sheetWriter {
	return &sheetWriter{f: f, sheet: sheet, next: 1}
}

func (w *sheetWriter) row(values []any) {
	if w.err != nil {
		return
	}
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.next)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
			w.err = err
			return
		}
	}
	w.next++
}

func fillStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
}

func dateCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func intCell(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func decimalCell(v *decimal.Decimal) any {
	if v == nil {
		return ""
	}
	return v.InexactFloat64()
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func strPtr(v string) *string { return &v }
