package model

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a two-place amount into integer minor currency units,
// rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
    return amount.Mul(hundred).Round(0).IntPart()
}

// Sum adds up amounts.  An empty input sums to zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
    total := decimal.Zero
    for _, a := range amounts {
        total = total.Add(a)
    }
    return total
}
