package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyMarks   = regexp.MustCompile(`[€$\s\x{00A0}]`)
	thousandsDots   = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
	thousandsCommas = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
)

// ParseDecimal coerces a workbook cell to a decimal, accepting the decimal
// comma and dot or comma thousand grouping.
func ParseDecimal(value string) (decimal.Decimal, bool) {
	v := currencyMarks.ReplaceAllString(strings.TrimSpace(value), "")
	if v == "" {
		return decimal.Decimal{}, false
	}

	switch {
	case thousandsDots.MatchString(v):
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	case thousandsCommas.MatchString(v):
		v = strings.ReplaceAll(v, ",", "")
	case strings.Contains(v, ",") && !strings.Contains(v, "."):
		v = strings.ReplaceAll(v, ",", ".")
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseInt coerces a cell to a signed integer, rejecting fractional values.
func ParseInt(value string) (int, bool) {
	d, ok := ParseDecimal(value)
	if !ok {
		return 0, false
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return int(d.IntPart()), true
}
