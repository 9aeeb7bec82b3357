package handler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
)

// minorUnitExponent shifts major-unit amounts to minor units: "10.50" -> 1050.
const minorUnitExponent = 2

// parseAmount converts a decimal amount string from the wire into minor
// units. Non-numeric input, amounts finer than the minor unit, zero and
// negative values are all rejected as invalid amounts.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parseAmount: %w", domain.ErrInvalidAmount)
	}

	minor := d.Mul(decimal.New(1, minorUnitExponent))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("parseAmount: sub-minor-unit precision: %w", domain.ErrInvalidAmount)
	}
	if minor.Sign() <= 0 {
		return 0, fmt.Errorf("parseAmount: %w", domain.ErrInvalidAmount)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("parseAmount: overflow: %w", domain.ErrInvalidAmount)
	}

	return minor.IntPart(), nil
}

// formatAmount renders minor units back into the wire format.
func formatAmount(minor int64) string {
	return decimal.New(minor, -minorUnitExponent).StringFixed(minorUnitExponent)
}
