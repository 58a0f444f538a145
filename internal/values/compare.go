package values

// Equaler lets an object define its own equality; by default objects
// are equal only to themselves.
type Equaler interface {
	Equals(other Value) bool
}

// Equals is the script "=" operator. Values of different types are never equal.
func Equals(a, b Value) bool {
	a, b = Raw(a), Raw(b)
	if a.DataType() != b.DataType() {
		return false
	}
	switch x := a.(type) {
	case undefinedValue, nullValue:
		return true
	case Boolean:
		return x == b.(Boolean)
	case String:
		return x == b.(String)
	case Number:
		return x.Cmp(b.(Number)) == 0
	case Date:
		return x.Cmp(b.(Date)) == 0
	case TypeValue:
		return x.SameType(b.(TypeValue))
	}
	if eq, ok := a.(Equaler); ok {
		return eq.Equals(b)
	}
	return a == b
}

// Compare orders two values of the same primitive type.
func Compare(a, b Value) (int, error) {
	a, b = Raw(a), Raw(b)
	if a.DataType() == b.DataType() {
		switch x := a.(type) {
		case Number:
			return x.Cmp(b.(Number)), nil
		case String:
			y := b.(String)
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		case Date:
			return x.Cmp(b.(Date)), nil
		case Boolean:
			return boolRank(x) - boolRank(b.(Boolean)), nil
		}
	}
	return 0, ComparisonNotSupported(a, b)
}

func boolRank(b Boolean) int {
	if b {
		return 1
	}
	return 0
}
