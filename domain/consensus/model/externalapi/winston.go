package externalapi

import (
	"math/big"

	"github.com/pkg/errors"
)

// Winston is the smallest denomination of the weave's native token
// (1 AR = 10^12 Winston). Quantity/reward fields are allowed up to a
// 21-byte decimal string, which can exceed a 64-bit integer, so Winston
// wraps big.Int rather than risk silent overflow or float rounding drift.
type Winston struct {
	v *big.Int
}

// ZeroWinston is the zero amount.
func ZeroWinston() Winston {
	return Winston{v: big.NewInt(0)}
}

// NewWinstonFromUint64 constructs a Winston amount from a uint64.
func NewWinstonFromUint64(n uint64) Winston {
	return Winston{v: new(big.Int).SetUint64(n)}
}

// NewWinstonFromString parses a decimal string (up to 21 bytes)
// into a Winston amount.
func NewWinstonFromString(s string) (Winston, error) {
	if len(s) > 21 {
		return Winston{}, errors.Errorf("winston amount %q exceeds the 21-byte decimal limit", s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Winston{}, errors.Errorf("invalid winston amount %q", s)
	}
	if v.Sign() < 0 {
		return Winston{}, errors.Errorf("winston amount %q is negative", s)
	}
	return Winston{v: v}, nil
}

func (w Winston) big() *big.Int {
	if w.v == nil {
		return big.NewInt(0)
	}
	return w.v
}

// String renders the amount as a decimal string.
func (w Winston) String() string {
	return w.big().String()
}

// Add returns w + other.
func (w Winston) Add(other Winston) Winston {
	return Winston{v: new(big.Int).Add(w.big(), other.big())}
}

// Sub returns w - other. The caller must check Cmp first if underflow must
// be detected rather than produce a negative amount.
func (w Winston) Sub(other Winston) Winston {
	return Winston{v: new(big.Int).Sub(w.big(), other.big())}
}

// Cmp compares w to other: -1, 0, or 1.
func (w Winston) Cmp(other Winston) int {
	return w.big().Cmp(other.big())
}

// IsZero reports whether w is zero.
func (w Winston) IsZero() bool {
	return w.big().Sign() == 0
}

// IsNegative reports whether w is negative.
func (w Winston) IsNegative() bool {
	return w.big().Sign() < 0
}

// MulRat returns floor(w * num / den), using integer arithmetic throughout
// so the result never drifts due to floating point rounding.
func (w Winston) MulRat(num, den *big.Int) Winston {
	if den.Sign() == 0 {
		return ZeroWinston()
	}
	product := new(big.Int).Mul(w.big(), num)
	return Winston{v: product.Div(product, den)}
}

// Clone returns a copy of w.
func (w Winston) Clone() Winston {
	return Winston{v: new(big.Int).Set(w.big())}
}
