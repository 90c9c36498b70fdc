package notification

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatUSD renders a quote amount with grouping, e.g. "1,234.50".
func FormatUSD(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// FormatCrypto renders an asset amount with a fixed number of places.
func FormatCrypto(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

// Vars is a merge-variable builder.
type Vars map[string]string

// Stamp adds the date, time and year variables every template expects.
func (v Vars) Stamp(now time.Time) Vars {
	v["date"] = now.Format("01/02/2006")
	v["time"] = now.Format("3:04:05 PM")
	v["year"] = strconv.Itoa(now.Year())
	return v
}
