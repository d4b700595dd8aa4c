package bank

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

// FormatCents renders cents as units with two decimals, bold, with the
// currency emoji.
func FormatCents(cents int64) string {
	return "*" + decimal.New(cents, -2).StringFixed(2) + ":sc:*"
}

// Units renders cents as plain units with two decimals.
func Units(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseCents reads a positive whole number of cents. JSON numbers, quoted
// integers and exponent notation are accepted.
func ParseCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)

	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() {
		return 0, ledger.Inputf(ledger.ErrInvalidAmount, "Expected numerical transaction amount, not %s", raw)
	}

	if !d.IsPositive() {
		return 0, ledger.Inputf(ledger.ErrInvalidAmount, "You can only transact positive amounts, not %s", raw)
	}

	if d.GreaterThan(decimal.New(1, 15)) {
		return 0, ledger.Inputf(ledger.ErrInvalidAmount, "%s is more cents than exist", raw)
	}

	return d.IntPart(), nil
}
