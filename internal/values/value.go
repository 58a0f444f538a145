// Package values holds the runtime value model: primitive values,
// variable cells, the object (context) protocol and runtime errors.
package values

import (
	"github.com/funvibe/oscript/internal/token"
)

// DataType is the primitive kind of a value.
type DataType uint8

const (
	TypeUndefined DataType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeDate
	TypeType
	TypeObject
)

var dataTypeNames = [...]string{
	TypeUndefined: "Неопределено",
	TypeNull:      "Null",
	TypeBoolean:   "Булево",
	TypeNumber:    "Число",
	TypeString:    "Строка",
	TypeDate:      "Дата",
	TypeType:      "Тип",
	TypeObject:    "Объект",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return "?"
}

// Value is any script value. Variables and references also implement it;
// Raw strips them.
type Value interface {
	DataType() DataType
	// TypeName is the script-visible type name.
	TypeName() string
	// String is the presentation used by Строка() and Сообщить().
	String() string
}

type undefinedValue struct{}

func (undefinedValue) DataType() DataType { return TypeUndefined }
func (undefinedValue) TypeName() string   { return TypeUndefined.String() }
func (undefinedValue) String() string     { return "" }

type nullValue struct{}

func (nullValue) DataType() DataType { return TypeNull }
func (nullValue) TypeName() string   { return TypeNull.String() }
func (nullValue) String() string     { return "" }

var (
	Undefined Value = undefinedValue{}
	Null      Value = nullValue{}
)

// Boolean is Истина / Ложь.
type Boolean bool

const (
	True  = Boolean(true)
	False = Boolean(false)
)

func (Boolean) DataType() DataType { return TypeBoolean }
func (Boolean) TypeName() string   { return TypeBoolean.String() }

func (b Boolean) String() string {
	if b {
		return "Да"
	}
	return "Нет"
}

// String is an immutable script string.
type String string

func (String) DataType() DataType { return TypeString }
func (String) TypeName() string   { return TypeString.String() }
func (s String) String() string   { return string(s) }

// TypeValue is the result of Тип() and ТипЗнч().
type TypeValue struct {
	Name string
}

func (TypeValue) DataType() DataType { return TypeType }
func (TypeValue) TypeName() string   { return TypeType.String() }
func (t TypeValue) String() string   { return t.Name }

// TypeOf returns the type of a raw value.
func TypeOf(v Value) TypeValue {
	return TypeValue{Name: Raw(v).TypeName()}
}

// SameType compares type names case-insensitively.
func (t TypeValue) SameType(o TypeValue) bool {
	return token.EqualFold(t.Name, o.Name)
}

// IsUndefined reports whether the raw value is Неопределено.
func IsUndefined(v Value) bool {
	return v == nil || Raw(v).DataType() == TypeUndefined
}

// Raw dereferences variables and references down to the stored value.
// A reference whose read fails yields Undefined; use Get for the error.
func Raw(v Value) Value {
	for {
		ref, ok := v.(Variable)
		if !ok {
			if v == nil {
				return Undefined
			}
			return v
		}
		inner, err := ref.Get()
		if err != nil {
			return Undefined
		}
		v = inner
	}
}

// Get dereferences v like Raw but reports read failures.
func Get(v Value) (Value, error) {
	for {
		ref, ok := v.(Variable)
		if !ok {
			if v == nil {
				return Undefined, nil
			}
			return v, nil
		}
		inner, err := ref.Get()
		if err != nil {
			return nil, err
		}
		v = inner
	}
}
