// Package money provides fixed-point arithmetic for bridge fee calculations.
// Percentages are 1e18-scaled integers (1e18 == 100%), matching the on-chain
// fee convention, so fee math stays exact over token amounts of any magnitude.
package money

import (
	"fmt"
	"math/big"
)

// Scale factors for the 1e18 percentage representation
var (
	pctScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil) // 1e18 == 100%
	bpsScale = big.NewInt(100_000_000_000_000)                       // 1 bps == 1e14
)

// Pct is a percentage scaled by 1e18. The zero value is 0%.
// Pct values are immutable; arithmetic returns new values.
type Pct struct {
	v *big.Int
}

// --- Pct Constructors ---

// ZeroPct returns 0%.
func ZeroPct() Pct {
	return Pct{}
}

// PctFromBPS creates a Pct from basis points (1 bps = 0.01%).
func PctFromBPS(bps int64) Pct {
	return Pct{v: new(big.Int).Mul(big.NewInt(bps), bpsScale)}
}

// PctFromBigInt creates a Pct from a raw 1e18-scaled value. The input is
// copied.
func PctFromBigInt(v *big.Int) Pct {
	if v == nil {
		return Pct{}
	}
	return Pct{v: new(big.Int).Set(v)}
}

// PctFromString parses a raw 1e18-scaled decimal string.
func PctFromString(s string) (Pct, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Pct{}, fmt.Errorf("money: invalid percentage %q", s)
	}
	return Pct{v: v}, nil
}

// --- Pct Arithmetic ---

// Add returns p + q.
func (p Pct) Add(q Pct) Pct {
	return Pct{v: new(big.Int).Add(p.value(), q.value())}
}

// ApplyTo returns amount * p / 1e18, truncated toward zero.
func (p Pct) ApplyTo(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	total := new(big.Int).Mul(amount, p.value())
	return total.Quo(total, pctScale)
}

// PctOf returns part/whole as a percentage (part * 1e18 / whole).
// A zero whole yields 0%.
func PctOf(part, whole *big.Int) Pct {
	if part == nil || whole == nil || whole.Sign() == 0 {
		return Pct{}
	}
	v := new(big.Int).Mul(part, pctScale)
	return Pct{v: v.Quo(v, whole)}
}

// --- Pct Comparison ---

// Cmp compares p and q, returning -1, 0, or +1.
func (p Pct) Cmp(q Pct) int {
	return p.value().Cmp(q.value())
}

// IsZero returns true if p == 0%.
func (p Pct) IsZero() bool {
	return p.value().Sign() == 0
}

// --- Pct Conversion ---

// BigInt returns a copy of the raw 1e18-scaled value.
func (p Pct) BigInt() *big.Int {
	return new(big.Int).Set(p.value())
}

// String returns the raw 1e18-scaled value as a decimal string, the wire
// format fee percentages are served in.
func (p Pct) String() string {
	return p.value().String()
}

// Percent returns a human-readable percentage like "0.0500%".
func (p Pct) Percent() string {
	v := p.value()
	sign := ""
	if v.Sign() < 0 {
		sign = "-"
		v = new(big.Int).Neg(v)
	}

	// Four decimal places: scale to 1e-4 percent units.
	q := new(big.Int).Quo(new(big.Int).Mul(v, big.NewInt(10_000)), pctScale)
	whole, frac := new(big.Int).QuoRem(q, big.NewInt(10_000), new(big.Int))
	return fmt.Sprintf("%s%s.%04d%%", sign, whole, frac)
}

func (p Pct) value() *big.Int {
	if p.v == nil {
		return new(big.Int)
	}
	return p.v
}

// --- Utility Functions ---

// TokenUnits converts a USD amount in cents into base units of a token with
// the given decimals, priced at priceCents per whole token. A non-positive
// price yields zero.
func TokenUnits(usdCents, priceCents int64, decimals int) *big.Int {
	if priceCents <= 0 {
		return new(big.Int)
	}
	units := new(big.Int).Mul(big.NewInt(usdCents), Pow10(decimals))
	return units.Quo(units, big.NewInt(priceCents))
}

// Pow10 returns 10^n as a big integer.
func Pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
