package values

import (
	"math"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/funvibe/oscript/internal/config"
)

// Number is an arbitrary precision decimal. The wrapped decimal is never
// mutated after construction, so numbers can be shared freely.
type Number struct {
	d *apd.Decimal
}

// arith is the context for all script arithmetic.
var arith = apd.BaseContext.WithPrecision(config.DefaultNumberPrecision)

var (
	zeroDecimal = apd.New(0, 0)
	Zero        = Number{d: zeroDecimal}
	One         = Number{d: apd.New(1, 0)}
)

func (Number) DataType() DataType { return TypeNumber }
func (Number) TypeName() string   { return TypeNumber.String() }

func (n Number) String() string {
	var r apd.Decimal
	r.Reduce(n.dec())
	if r.IsZero() {
		return "0"
	}
	return r.Text('f')
}

func (n Number) dec() *apd.Decimal {
	if n.d == nil {
		return zeroDecimal
	}
	return n.d
}

// Decimal returns a copy of the underlying decimal.
func (n Number) Decimal() *apd.Decimal {
	return new(apd.Decimal).Set(n.dec())
}

func NumberFromDecimal(d *apd.Decimal) Number {
	return Number{d: new(apd.Decimal).Set(d)}
}

func NumberFromInt(i int64) Number {
	return Number{d: apd.New(i, 0)}
}

// NumberFromFloat converts f exactly. NaN and infinities are rejected.
func NumberFromFloat(f float64) (Number, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero, NumberOverflow()
	}
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return Zero, err
	}
	// drop binary noise past 15 significant digits
	var r apd.Decimal
	if _, err := apd.BaseContext.WithPrecision(15).Round(&r, d); err != nil {
		return Zero, err
	}
	return Number{d: &r}, nil
}

// ParseNumber accepts an optionally signed decimal with '.' as separator.
func ParseNumber(s string) (Number, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, false
	}
	for i, r := range s {
		if (r < '0' || r > '9') && r != '.' && !(i == 0 && (r == '-' || r == '+')) {
			return Zero, false
		}
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Zero, false
	}
	return Number{d: d}, true
}

func (n Number) IsZero() bool { return n.dec().IsZero() }
func (n Number) Sign() int    { return n.dec().Sign() }

func (n Number) Cmp(o Number) int {
	return n.dec().Cmp(o.dec())
}

// Int64 truncates toward zero. Out of range values saturate.
func (n Number) Int64() int64 {
	var integ, frac apd.Decimal
	n.dec().Modf(&integ, &frac)
	i, err := integ.Int64()
	if err != nil {
		if n.Sign() < 0 {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return i
}

// Int truncates toward zero like Int64.
func (n Number) Int() int {
	return int(n.Int64())
}

func (n Number) Float64() float64 {
	f, _ := n.dec().Float64()
	return f
}

// IsInteger reports whether n has no fractional part.
func (n Number) IsInteger() bool {
	var integ, frac apd.Decimal
	n.dec().Modf(&integ, &frac)
	return frac.IsZero()
}

type decimalOp func(d, x, y *apd.Decimal) (apd.Condition, error)

func (n Number) apply(op decimalOp, o Number) (Number, error) {
	d := new(apd.Decimal)
	if _, err := op(d, n.dec(), o.dec()); err != nil {
		return Zero, arithmeticError(err)
	}
	return Number{d: d}, nil
}

func (n Number) Add(o Number) (Number, error) { return n.apply(arith.Add, o) }
func (n Number) Sub(o Number) (Number, error) { return n.apply(arith.Sub, o) }
func (n Number) Mul(o Number) (Number, error) { return n.apply(arith.Mul, o) }

func (n Number) Div(o Number) (Number, error) {
	if o.IsZero() {
		return Zero, DivideByZero()
	}
	return n.apply(arith.Quo, o)
}

// Mod is the remainder with the sign of the dividend.
func (n Number) Mod(o Number) (Number, error) {
	if o.IsZero() {
		return Zero, DivideByZero()
	}
	return n.apply(arith.Rem, o)
}

func (n Number) Neg() Number {
	return Number{d: new(apd.Decimal).Neg(n.dec())}
}

// Truncate drops the fractional part.
func (n Number) Truncate() Number {
	var integ, frac apd.Decimal
	n.dec().Modf(&integ, &frac)
	return Number{d: &integ}
}

// RoundMode selects how Round treats an exact half.
type RoundMode int

const (
	// RoundHalfTowardZero is Окр15как10: 1.5 becomes 1.
	RoundHalfTowardZero RoundMode = 0
	// RoundHalfAwayFromZero is Окр15как20: 1.5 becomes 2.
	RoundHalfAwayFromZero RoundMode = 1
)

// Round keeps digits fractional digits; negative digits round to tens,
// hundreds and so on.
func (n Number) Round(digits int, mode RoundMode) (Number, error) {
	exp := int32(-digits)
	if n.dec().Exponent >= exp {
		return n, nil
	}
	ctx := arith.WithPrecision(config.DefaultNumberPrecision + 2)
	ctx.Rounding = apd.RoundHalfUp
	if mode == RoundHalfTowardZero {
		ctx.Rounding = apd.RoundHalfDown
	}
	d := new(apd.Decimal)
	if _, err := ctx.Quantize(d, n.dec(), exp); err != nil {
		return Zero, arithmeticError(err)
	}
	return Number{d: d}, nil
}

// Pow raises n to the power e. A non-negative integer exponent is computed
// exactly by repeated squaring.
func (n Number) Pow(e Number) (Number, error) {
	if e.Sign() >= 0 && e.IsInteger() {
		k := e.Int64()
		result := new(apd.Decimal).Set(One.dec())
		base := new(apd.Decimal).Set(n.dec())
		for k > 0 {
			if k&1 == 1 {
				if _, err := arith.Mul(result, result, base); err != nil {
					return Zero, arithmeticError(err)
				}
			}
			k >>= 1
			if k > 0 {
				if _, err := arith.Mul(base, base, base); err != nil {
					return Zero, arithmeticError(err)
				}
			}
		}
		return Number{d: result}, nil
	}
	return n.apply(arith.Pow, e)
}

func (n Number) Sqrt() (Number, error) {
	d := new(apd.Decimal)
	if _, err := arith.Sqrt(d, n.dec()); err != nil {
		return Zero, arithmeticError(err)
	}
	return Number{d: d}, nil
}

func (n Number) Ln() (Number, error) {
	d := new(apd.Decimal)
	if _, err := arith.Ln(d, n.dec()); err != nil {
		return Zero, arithmeticError(err)
	}
	return Number{d: d}, nil
}

func (n Number) Log10() (Number, error) {
	d := new(apd.Decimal)
	if _, err := arith.Log10(d, n.dec()); err != nil {
		return Zero, arithmeticError(err)
	}
	return Number{d: d}, nil
}

func (n Number) Exp() (Number, error) {
	d := new(apd.Decimal)
	if _, err := arith.Exp(d, n.dec()); err != nil {
		return Zero, arithmeticError(err)
	}
	return Number{d: d}, nil
}
