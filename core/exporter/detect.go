package exporter

import (
	"strconv"
	"strings"
	"time"

	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/search"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Detection is the format chosen for a column and its Excel number format.
type Detection struct {
	Format schema.ColumnFormat
	NumFmt string

	// Scale multiplies numeric values of percentage columns declared with
	// whole percents (12.5 meaning 12.5%).
	Scale float64
}

// Excel number formats.
const (
	NumFmtInteger  = "#,##0"
	NumFmtDecimal  = "#,##0.00"
	NumFmtPercent  = "0.00%"
	NumFmtCurrency = `#,##0 "₫"`
)

// sampleSize bounds how many values DetectFormat inspects.
const sampleSize = 100

var currencyMarks = []string{"₫", "VNĐ", "VND", "$", "€"}

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// DetectFormat picks a column format from sampled values. A format wins
// when at least 80% of the non-empty sample has it, checked in the order
// percentage, currency, date, number; otherwise the column is text.
func DetectFormat(values []any) Detection {
	var sample []any
	for _, v := range values {
		if v == nil || strings.TrimSpace(search.Stringify(v)) == "" {
			continue
		}
		sample = append(sample, v)
		if len(sample) == sampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return Detection{Format: schema.FormatText}
	}

	var percents, currencies, dates, numbers int
	fractional := false
	for _, v := range sample {
		if s, ok := v.(string); ok {
			if _, ok := percentValue(s); ok {
				percents++
				continue
			}
			if _, ok := currencyValue(s); ok {
				currencies++
				continue
			}
		}
		if _, ok := dateValue(v); ok {
			dates++
			continue
		}
		if n, ok := numberValue(v); ok {
			numbers++
			if n != float64(int64(n)) {
				fractional = true
			}
		}
	}

	majority := func(n int) bool { return n*5 >= len(sample)*4 }
	switch {
	case majority(percents):
		return Detection{Format: schema.FormatPercentage, NumFmt: NumFmtPercent, Scale: 1}
	case majority(currencies):
		return Detection{Format: schema.FormatCurrency, NumFmt: NumFmtCurrency, Scale: 1}
	case majority(dates):
		return Detection{Format: schema.FormatDate}
	case majority(numbers):
		if fractional {
			return Detection{Format: schema.FormatNumber, NumFmt: NumFmtDecimal, Scale: 1}
		}
		return Detection{Format: schema.FormatNumber, NumFmt: NumFmtInteger, Scale: 1}
	}
	return Detection{Format: schema.FormatText}
}

// explicit completes a declared column format.
func explicit(f schema.ColumnFormat, values []any) Detection {
	d := Detection{Format: f, Scale: 1}
	switch f {
	case schema.FormatNumber:
		d.NumFmt = NumFmtInteger
		for _, v := range values {
			if n, ok := numberValue(v); ok && n != float64(int64(n)) {
				d.NumFmt = NumFmtDecimal
				break
			}
		}
	case schema.FormatCurrency:
		d.NumFmt = NumFmtCurrency
	case schema.FormatPercentage:
		d.NumFmt = NumFmtPercent
		for _, v := range values {
			if n, ok := numberValue(v); ok && (n > 1 || n < -1) {
				d.Scale = 0.01
				break
			}
		}
	}
	return d
}

// convert turns a display value into the typed cell of its column.
func convert(v any, d Detection) any {
	if v == nil {
		return nil
	}
	switch d.Format {
	case schema.FormatPercentage:
		if s, ok := v.(string); ok {
			if n, ok := percentValue(s); ok {
				return n
			}
		}
		if n, ok := numberValue(v); ok {
			return n * d.Scale
		}
	case schema.FormatCurrency:
		if s, ok := v.(string); ok {
			if n, ok := currencyValue(s); ok {
				return n
			}
		}
		if n, ok := numberValue(v); ok {
			return n
		}
	case schema.FormatNumber:
		if n, ok := numberValue(v); ok {
			return n
		}
	case schema.FormatDate:
		if t, ok := dateValue(v); ok {
			return t
		}
	}
	return search.Stringify(v)
}

var printer = message.NewPrinter(language.Vietnamese)

// formatText renders a typed cell as Vietnamese display text.
func formatText(v any, d Detection, dateFormat string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		switch d.Format {
		case schema.FormatPercentage:
			return printer.Sprintf("%v%%", number.Decimal(x*100, number.MaxFractionDigits(2)))
		case schema.FormatCurrency:
			return printer.Sprintf("%v ₫", number.Decimal(x, number.MaxFractionDigits(0)))
		}
		return printer.Sprint(number.Decimal(x, number.MaxFractionDigits(2)))
	case time.Time:
		return x.Format(goLayout(dateFormat))
	}
	return search.Stringify(v)
}

// goLayout maps an Options.DateFormat to a Go time layout.
func goLayout(dateFormat string) string {
	switch dateFormat {
	case DateMDY:
		return "01/02/2006"
	case DateYMD:
		return "2006-01-02"
	default:
		return "02/01/2006"
	}
}

// excelDateFormat maps an Options.DateFormat to an Excel number format.
func excelDateFormat(dateFormat string) string {
	switch dateFormat {
	case DateMDY:
		return "mm/dd/yyyy"
	case DateYMD:
		return "yyyy-mm-dd"
	default:
		return "dd/mm/yyyy"
	}
}

func percentValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, false
	}
	n, ok := parseGrouped(strings.TrimSpace(strings.TrimSuffix(s, "%")))
	return n / 100, ok
}

func currencyValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	marked := false
	for _, m := range currencyMarks {
		if strings.Contains(s, m) {
			s = strings.ReplaceAll(s, m, "")
			marked = true
		}
	}
	if !marked && strings.HasSuffix(s, "đ") {
		s = strings.TrimSuffix(s, "đ")
		marked = true
	}
	if !marked {
		return 0, false
	}
	return parseGrouped(strings.TrimSpace(s))
}

func numberValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		// Codes and phone numbers keep their leading zeros as text.
		if len(s) > 1 && s[0] == '0' && s[1] != '.' && s[1] != ',' {
			return 0, false
		}
		return parseGrouped(s)
	}
	return 0, false
}

// parseGrouped parses numbers written with either "1,500,000.5" or
// "1.500.000,5" grouping. A lone dot is a decimal point; a lone comma is
// a decimal comma unless exactly three digits follow it.
func parseGrouped(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.TrimLeft(s, "0123456789+-.,") != "" {
		return 0, false
	}
	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")

	decimalComma := false
	switch {
	case dots > 1:
		decimalComma = true
	case commas > 1:
	case dots == 1 && commas == 1:
		decimalComma = lastComma > lastDot
	case commas == 1:
		decimalComma = len(s)-lastComma-1 != 3
	}

	if decimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	n, err := strconv.ParseFloat(s, 64)
	return n, err == nil
}

func dateValue(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
