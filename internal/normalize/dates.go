package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Ordered format list, day-first preference on ambiguity. Padded and
// unpadded variants of the same layout are both listed because time.Parse
// with a zero-padded reference rejects single-digit fields.
var dateLayouts = []string{
	"02/01/2006", "2/1/2006",
	"02-01-2006", "2-1-2006",
	"02.01.2006", "2.1.2006",
	"02/01/06", "2/1/06",
	"02-01-06", "2-1-06",
	"02.01.06", "2.1.06",
	"01/02/2006",
	"2006-01-02", "2006/01/02",
	"2 Jan 2006", "02 Jan 2006",
	"2 January 2006", "02 January 2006",
}

// A fractional part is a time-of-day offset; dateOnly drops it.
var serialPattern = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

// ParseDate runs the coercion ladder over a workbook cell already rendered
// as text: spreadsheet serial offsets first, then the ordered layout list,
// then a loose day-first split that also understands Portuguese month
// names. The epoch for serials is 1899-12-30.
func ParseDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}

	if serialPattern.MatchString(v) {
		serial, err := strconv.ParseFloat(v, 64)
		if err == nil && serial > 59 && serial < 200000 {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return dateOnly(t), true
			}
		}
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return dateOnly(t), true
		}
	}

	return parseDayFirstLoose(v)
}

// parseDayFirstLoose is the last resort: split into day, month, year and
// assemble day-first. The month token may be numeric or a (Portuguese or
// English) month name.
func parseDayFirstLoose(v string) (time.Time, bool) {
	parts := regexp.MustCompile(`[\s/.\-]+`).Split(v, -1)
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			fields = append(fields, strings.TrimSpace(p))
		}
	}
	if len(fields) != 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(fields[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := MonthOrdinal(fields[1])
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	if year < 1900 || year > 2200 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

var monthNames = []string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

var monthNamesEN = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// MonthOrdinal maps a month given as a number, a Portuguese name, or a
// three-letter prefix to its 1-12 ordinal.
func MonthOrdinal(value string) (int, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(v); err == nil {
		if n >= 1 && n <= 12 {
			return n, true
		}
		return 0, false
	}

	prefix := firstRunes(v, 3)
	if len([]rune(v)) < 3 {
		return 0, false
	}
	for i, name := range monthNames {
		if prefix == firstRunes(name, 3) {
			return i + 1, true
		}
	}
	for i, name := range monthNamesEN {
		if prefix == firstRunes(name, 3) {
			return i + 1, true
		}
	}
	return 0, false
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) < n {
		return string(r)
	}
	return string(r[:n])
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b, negative when b is
// before a.
func DaysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}
