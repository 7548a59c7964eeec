// Package money formats amounts for display.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts with a currency symbol. With Localized set,
// digit grouping and the decimal separator follow Locale; otherwise the
// amount is printed as a plain fixed-point number.
type Formatter struct {
	Locale    language.Tag
	Symbol    string
	Localized bool
}

// NewFormatter parses the locale tag, e.g. "pt-BR"
func NewFormatter(locale, symbol string, localized bool) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return &Formatter{Locale: tag, Symbol: symbol, Localized: localized}, nil
}

// Format renders v with two fractional digits
func (f *Formatter) Format(v decimal.Decimal) string {
	if !f.Localized {
		return f.Symbol + " " + v.StringFixed(2)
	}
	// amounts are bounded by simulation.MaxBalance (1e13), and every cent
	// value below 2^53/100 survives the float64 conversion exactly
	p := message.NewPrinter(f.Locale)
	return p.Sprintf("%s %.2f", f.Symbol, v.Round(2).InexactFloat64())
}

// Summary is the final-balance sentence shown after a simulation
func (f *Formatter) Summary(days int, final decimal.Decimal) string {
	return fmt.Sprintf("Saldo final após %d dias: %s", days, f.Format(final))
}
