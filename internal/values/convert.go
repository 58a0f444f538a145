package values

import (
	"github.com/funvibe/oscript/internal/token"
)

var (
	trueWords  = map[string]bool{token.Fold("Истина"): true, token.Fold("True"): true}
	falseWords = map[string]bool{token.Fold("Ложь"): true, token.Fold("False"): true}
)

func AsBoolean(v Value) (bool, error) {
	switch x := Raw(v).(type) {
	case Boolean:
		return bool(x), nil
	case Number:
		return !x.IsZero(), nil
	case String:
		f := token.Fold(string(x))
		if trueWords[f] {
			return true, nil
		}
		if falseWords[f] {
			return false, nil
		}
	}
	return false, ConvertToBoolean(Raw(v))
}

func AsNumber(v Value) (Number, error) {
	switch x := Raw(v).(type) {
	case Number:
		return x, nil
	case Boolean:
		if x {
			return One, nil
		}
		return Zero, nil
	case String:
		if n, ok := ParseNumber(string(x)); ok {
			return n, nil
		}
	}
	return Zero, ConvertToNumber(Raw(v))
}

func AsDate(v Value) (Date, error) {
	switch x := Raw(v).(type) {
	case Date:
		return x, nil
	case String:
		if d, ok := ParseDate(string(x)); ok {
			return d, nil
		}
	}
	return EmptyDate, ConvertToDate(Raw(v))
}

// AsString is the presentation of the raw value.
func AsString(v Value) string {
	return Raw(v).String()
}

// AsInt converts to a number and truncates it.
func AsInt(v Value) (int, error) {
	n, err := AsNumber(v)
	if err != nil {
		return 0, err
	}
	return n.Int(), nil
}
