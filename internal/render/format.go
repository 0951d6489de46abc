package render

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatNumber renders v with a numeral-style pattern such as "0,0" (grouped
// integer), "0.00" (two decimals), "0,0.0" or "0.0%" (scaled by 100).
func FormatNumber(v float64, pattern string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	percent := strings.HasSuffix(pattern, "%")
	pattern = strings.TrimSuffix(pattern, "%")
	if percent {
		v *= 100
	}

	intPattern, fracPattern, _ := strings.Cut(pattern, ".")
	grouping := strings.Contains(intPattern, ",")
	decimals := strings.Count(fracPattern, "0")

	// Halves round away from zero; FormatFloat alone rounds them to even.
	scale := math.Pow10(decimals)
	rounded := math.Round(math.Abs(v)*scale) / scale
	s := strconv.FormatFloat(rounded, 'f', decimals, 64)
	whole, frac, _ := strings.Cut(s, ".")
	if grouping {
		if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
			whole = printer.Sprintf("%d", n)
		}
	}

	var b strings.Builder
	if v < 0 && strings.Trim(s, "0.") != "" {
		b.WriteByte('-')
	}
	b.WriteString(whole)
	if decimals > 0 {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	if percent {
		b.WriteByte('%')
	}
	return b.String()
}
