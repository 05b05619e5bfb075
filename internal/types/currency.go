package types

import (
	"strings"

	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/shopspring/decimal"
)

// CURRENCY_MINOR_UNITS maps 3 letter ISO currency codes to the number of
// decimal places of their minor unit. Currencies not listed default to 2.
var CURRENCY_MINOR_UNITS = map[string]int32{
	"jpy": 0,
	"krw": 0,
	"vnd": 0,
	"bhd": 3,
	"jod": 3,
	"kwd": 3,
	"omr": 3,
	"tnd": 3,
}

// GetCurrencyPrecision returns the minor unit precision for a currency code.
func GetCurrencyPrecision(code string) int32 {
	if precision, ok := CURRENCY_MINOR_UNITS[strings.ToLower(code)]; ok {
		return precision
	}
	return 2
}

// RoundToCurrency rounds amount to the currency's minor unit using
// half-up rounding. All invoice line amounts are rounded at line level
// with this helper; totals are sums of already-rounded lines.
func RoundToCurrency(amount decimal.Decimal, code string) decimal.Decimal {
	// decimal.Round rounds half away from zero, which is half-up for the
	// non-negative amounts handled here.
	return amount.Round(GetCurrencyPrecision(code))
}

// ValidateCurrency accepts any 3 letter alphabetic code.
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return ierr.NewError("invalid currency code").
			WithHintf("Currency must be a 3 letter ISO code, got %q", code).
			Mark(ierr.ErrValidation)
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return ierr.NewError("invalid currency code").
				WithHintf("Currency must be a 3 letter ISO code, got %q", code).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
