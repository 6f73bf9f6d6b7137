package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"recebiveis/internal"
)

// DecodeWorkbook sniffs the byte container and returns the raw cell grid
// of the requested sheet. Supported containers: xlsx (zip), legacy BIFF
// .xls, and the HTML table some ERPs export under an .xls name. An empty
// sheet name means the first sheet.
func DecodeWorkbook(raw []byte, sheet string) ([][]string, error) {
	switch {
	case bytes.HasPrefix(raw, []byte("PK")):
		return decodeXLSX(raw, sheet)
	case bytes.HasPrefix(raw, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		return decodeBIFF(raw, sheet)
	case looksLikeHTML(raw):
		return decodeHTMLTable(raw)
	default:
		return nil, fmt.Errorf("%w: unrecognized workbook container", internal.ErrSourceCorrupt)
	}
}

func decodeXLSX(raw []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrSourceCorrupt, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	// Raw values, not formatted text: typed date cells must surface as
	// serial offsets, not as whatever month-first display format the cell
	// carries.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", internal.ErrSheetMissing, sheet)
	}
	return rows, nil
}

func decodeBIFF(raw []byte, sheet string) ([][]string, error) {
	book, err := xls.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrSourceCorrupt, err)
	}

	index := 0
	if sheet != "" {
		index = -1
		for i := 0; i < book.GetNumberSheets(); i++ {
			s, err := book.GetSheet(i)
			if err != nil {
				continue
			}
			if s.GetName() == sheet {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("%w: %s", internal.ErrSheetMissing, sheet)
		}
	}

	s, err := book.GetSheet(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", internal.ErrSheetMissing, sheet)
	}

	out := [][]string{}
	for _, row := range s.GetRows() {
		cells := []string{}
		for _, col := range row.GetCols() {
			cells = append(cells, col.GetString())
		}
		out = append(out, cells)
	}
	return out, nil
}

// decodeHTMLTable reads the first <table> of an HTML document as the
// sheet; the sheet name is meaningless in this container and ignored.
func decodeHTMLTable(raw []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrSourceCorrupt, err)
	}

	out := [][]string{}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no table element", internal.ErrSourceCorrupt)
	}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			out = append(out, cells)
		}
	})
	return out, nil
}

func looksLikeHTML(raw []byte) bool {
	head := strings.ToLower(string(bytes.TrimSpace(raw)))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") || strings.HasPrefix(head, "<table")
}
