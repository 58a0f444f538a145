package values

// Add is "+": string concatenation when the left operand is a string,
// date shift when a date is followed by a number, numeric sum otherwise.
func Add(a, b Value) (Value, error) {
	a, b = Raw(a), Raw(b)
	switch x := a.(type) {
	case String:
		return x + String(b.String()), nil
	case Date:
		if n, ok := b.(Number); ok {
			return x.AddSeconds(n.Int64()), nil
		}
	}
	return numeric(a, b, Number.Add)
}

// Sub is "-". The difference of two dates is a number of seconds.
func Sub(a, b Value) (Value, error) {
	a, b = Raw(a), Raw(b)
	if x, ok := a.(Date); ok {
		switch y := b.(type) {
		case Date:
			return NumberFromInt(x.Sub(y)), nil
		case Number:
			return x.AddSeconds(-y.Int64()), nil
		}
	}
	return numeric(a, b, Number.Sub)
}

func Mul(a, b Value) (Value, error) { return numeric(Raw(a), Raw(b), Number.Mul) }
func Div(a, b Value) (Value, error) { return numeric(Raw(a), Raw(b), Number.Div) }
func Mod(a, b Value) (Value, error) { return numeric(Raw(a), Raw(b), Number.Mod) }

func Neg(a Value) (Value, error) {
	n, err := AsNumber(a)
	if err != nil {
		return nil, err
	}
	return n.Neg(), nil
}

func numeric(a, b Value, op func(Number, Number) (Number, error)) (Value, error) {
	x, err := AsNumber(a)
	if err != nil {
		return nil, err
	}
	y, err := AsNumber(b)
	if err != nil {
		return nil, err
	}
	r, err := op(x, y)
	if err != nil {
		return nil, err
	}
	return r, nil
}
